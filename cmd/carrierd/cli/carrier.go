package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newCarrierCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "carrier",
		Short: "Inspect tracked carriers",
		Long:  "Read carriers directly from the store. Changes go through the API so they are audited.",
	}

	cmd.AddCommand(newCarrierListCmd())

	return cmd
}

func newCarrierListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all carriers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCarrierList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runCarrierList(jsonOutput bool) error {
	st, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer st.Close()

	carriers, err := st.ListCarriers(context.Background())
	if err != nil {
		return fmt.Errorf("list carriers: %w", err)
	}

	if jsonOutput {
		return printJSON(carriers)
	}

	if len(carriers) == 0 {
		fmt.Println("No carriers tracked yet.")
		return nil
	}

	fmt.Printf("%-36s %-9s %-24s %-24s %-18s\n", "ID", "CALLSIGN", "NAME", "LOCATION", "DOCKING")
	fmt.Printf("%-36s %-9s %-24s %-24s %-18s\n", "--", "--------", "----", "--------", "-------")
	for _, c := range carriers {
		fmt.Printf("%-36s %-9s %-24s %-24s %-18s\n", c.ID, c.Callsign, c.Name, c.CurrentLocation, c.DockingAccess)
	}
	return nil
}
