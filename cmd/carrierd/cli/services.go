package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carrierd/carrierd/internal/model"
	"github.com/carrierd/carrierd/internal/store"
)

func newServiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the carrier service catalogue",
		Long:  "List, add, remove and seed the services (Refuel, Shipyard, ...) that carriers can activate.",
	}

	cmd.AddCommand(newServiceListCmd())
	cmd.AddCommand(newServiceAddCmd())
	cmd.AddCommand(newServiceRemoveCmd())
	cmd.AddCommand(newServiceSeedCmd())

	return cmd
}

// ---------- service list ----------

func newServiceListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the service catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServiceList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runServiceList(jsonOutput bool) error {
	st, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer st.Close()

	services, err := st.ListServices(context.Background())
	if err != nil {
		return fmt.Errorf("list services: %w", err)
	}

	if jsonOutput {
		return printJSON(services)
	}

	if len(services) == 0 {
		fmt.Println("No services configured. Use 'carrierd service seed' to install the defaults.")
		return nil
	}

	fmt.Printf("%-24s %-32s %-8s\n", "NAME", "LABEL", "ODYSSEY")
	fmt.Printf("%-24s %-32s %-8s\n", "----", "-----", "-------")
	for _, s := range services {
		fmt.Printf("%-24s %-32s %-8s\n", s.Name, s.Label, yesNo(s.Odyssey))
	}
	return nil
}

// ---------- service add ----------

func newServiceAddCmd() *cobra.Command {
	var (
		label   string
		odyssey bool
	)

	cmd := &cobra.Command{
		Use:     "add <name>",
		Short:   "Add a service to the catalogue",
		Example: `  carrierd service add "Vista Genomics" --odyssey`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServiceAdd(args[0], label, odyssey)
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "Display label (default is the name)")
	cmd.Flags().BoolVar(&odyssey, "odyssey", false, "Service requires the Odyssey expansion")

	return cmd
}

func runServiceAdd(name, label string, odyssey bool) error {
	if label == "" {
		label = name
	}

	st, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer st.Close()

	err = st.CreateService(context.Background(), &model.CarrierService{Name: name, Label: label, Odyssey: odyssey})
	if errors.Is(err, store.ErrDuplicate) {
		return fmt.Errorf("service %q already exists", name)
	}
	if err != nil {
		return fmt.Errorf("add service: %w", err)
	}

	fmt.Printf("Added service %q\n", name)
	return nil
}

// ---------- service remove ----------

func newServiceRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a service from the catalogue",
		Long:    "Remove a service. Carriers that had it active lose it.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServiceRemove(args[0])
		},
	}

	return cmd
}

func runServiceRemove(name string) error {
	st, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer st.Close()

	err = st.DeleteService(context.Background(), name)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("service %q not found", name)
	}
	if err != nil {
		return fmt.Errorf("remove service: %w", err)
	}

	fmt.Printf("Removed service %q\n", name)
	return nil
}

// ---------- service seed ----------

func newServiceSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Install the default service catalogue",
		Long:  "Add every default service that is not already in the catalogue. Existing entries are left unchanged.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServiceSeed()
		},
	}

	return cmd
}

func runServiceSeed() error {
	st, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.SeedServices(context.Background(), model.DefaultServices)
	if err != nil {
		return fmt.Errorf("seed services: %w", err)
	}

	fmt.Printf("Added %d of %d default services\n", n, len(model.DefaultServices))
	return nil
}
