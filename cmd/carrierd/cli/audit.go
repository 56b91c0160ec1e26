package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carrierd/carrierd/internal/model"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Read the audit log",
	}

	cmd.AddCommand(newAuditListCmd())

	return cmd
}

func newAuditListCmd() *cobra.Command {
	var (
		filter     model.AuditFilter
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List audit entries, newest first",
		Example: `  carrierd audit list --carrier 0190c3e2-... --limit 20
  carrierd audit list --type jump --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuditList(filter, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&filter.CarrierID, "carrier", "", "Only entries for this carrier id")
	cmd.Flags().StringVar(&filter.KeyID, "key", "", "Only entries made with this API key id")
	cmd.Flags().StringVar(&filter.Type, "type", "", "Only entries of this type (jump, permission, service-activate, ...)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 50, "Maximum entries to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runAuditList(filter model.AuditFilter, jsonOutput bool) error {
	st, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.ListAuditEntries(context.Background(), filter)
	if err != nil {
		return fmt.Errorf("list audit entries: %w", err)
	}

	if jsonOutput {
		return printJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No audit entries match.")
		return nil
	}

	fmt.Printf("%-20s %-36s %-18s %-8s %s\n", "TIME", "CARRIER", "TYPE", "SOURCE", "CHANGE")
	fmt.Printf("%-20s %-36s %-18s %-8s %s\n", "----", "-------", "----", "------", "------")
	for _, e := range entries {
		fmt.Printf("%-20s %-36s %-18s %-8s %s -> %s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"), e.CarrierID, e.Type, e.Source,
			e.OldValue.String(), e.NewValue.String())
	}
	return nil
}
