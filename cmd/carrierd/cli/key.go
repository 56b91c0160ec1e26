package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/carrierd/carrierd/internal/model"
	"github.com/carrierd/carrierd/internal/service"
	"github.com/carrierd/carrierd/internal/store"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"apikey"},
		Short:   "Manage API keys",
		Long:    "Create, list, grant and revoke API keys used to authenticate against the carrier API.",
	}

	cmd.AddCommand(newKeyCreateCmd())
	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyGrantCmd())
	cmd.AddCommand(newKeyRevokeCmd())

	return cmd
}

// keyAccess collects the access flags shared by key create and key grant.
type keyAccess struct {
	readAll  bool
	writeAll bool
	read     []string
	write    []string
}

func (a *keyAccess) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&a.readAll, "read-all", false, "Allow reading every carrier")
	cmd.Flags().BoolVar(&a.writeAll, "write-all", false, "Allow changing every carrier, including creating new ones")
	cmd.Flags().StringSliceVar(&a.read, "read", nil, "Carrier ids the key may read")
	cmd.Flags().StringSliceVar(&a.write, "write", nil, "Carrier ids the key may change")
}

func (a *keyAccess) apply(key *model.APIKey) {
	key.CanReadAll = a.readAll
	key.CanWriteAll = a.writeAll
	key.ReadCarriers = a.read
	key.WriteCarriers = a.write
}

// checkCarriers verifies that every granted carrier exists.
func checkCarriers(ctx context.Context, st *store.Store, ids ...[]string) error {
	for _, set := range ids {
		for _, id := range set {
			ok, err := st.Exists(ctx, "carriers", "id", id)
			if err != nil {
				return fmt.Errorf("check carrier %q: %w", id, err)
			}
			if !ok {
				return fmt.Errorf("carrier %q not found", id)
			}
		}
	}
	return nil
}

// ---------- key create ----------

func newKeyCreateCmd() *cobra.Command {
	var (
		label   string
		expires time.Duration
		acc     keyAccess
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Generate a new API key. The raw key is shown once and cannot be retrieved again.",
		Example: `  carrierd key create --label "EDMC plugin" --read-all --write 0190c3e2-...
  carrierd key create --label "discord bot" --read-all --write-all --expires 720h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyCreate(label, expires, acc)
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "Human-readable label for the key")
	cmd.Flags().DurationVar(&expires, "expires", 0, "Expire the key after this long (default never)")
	acc.bind(cmd)

	return cmd
}

func runKeyCreate(label string, expires time.Duration, acc keyAccess) error {
	st, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	if err := checkCarriers(ctx, st, acc.read, acc.write); err != nil {
		return err
	}

	key := &model.APIKey{Label: label}
	acc.apply(key)
	if expires > 0 {
		at := time.Now().UTC().Add(expires)
		key.ExpiresAt = &at
	}

	rawKey, err := service.NewAuthService(st, "").NewAPIKey(ctx, key)
	if err != nil {
		return err
	}

	fmt.Println("API Key created:")
	fmt.Println()
	fmt.Printf("  Key:    %s\n", rawKey)
	fmt.Printf("  ID:     %s\n", key.ID)
	if label != "" {
		fmt.Printf("  Label:  %s\n", label)
	}
	fmt.Printf("  Access: %s\n", describeAccess(key))
	fmt.Println()
	fmt.Println("  Save this key now - it cannot be retrieved again.")
	return nil
}

func describeAccess(k *model.APIKey) string {
	read := fmt.Sprintf("%d carriers", len(k.ReadCarriers))
	if k.CanReadAll {
		read = "all"
	}
	write := fmt.Sprintf("%d carriers", len(k.WriteCarriers))
	if k.CanWriteAll {
		write = "all"
	}
	return "read " + read + ", write " + write
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runKeyList(jsonOutput bool) error {
	st, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer st.Close()

	keys, err := st.ListAPIKeys(context.Background())
	if err != nil {
		return fmt.Errorf("list api keys: %w", err)
	}

	if jsonOutput {
		return printJSON(keys)
	}

	if len(keys) == 0 {
		fmt.Println("No API keys configured. Use 'carrierd key create' to create one.")
		return nil
	}

	fmt.Printf("%-18s %-24s %-36s %-8s\n", "PREFIX", "LABEL", "ACCESS", "EXPIRED")
	fmt.Printf("%-18s %-24s %-36s %-8s\n", "------", "-----", "------", "-------")
	now := time.Now()
	for i := range keys {
		k := &keys[i]
		expired := k.ExpiresAt != nil && k.ExpiresAt.Before(now)
		fmt.Printf("%-18s %-24s %-36s %-8s\n", k.KeyPrefix, k.Label, describeAccess(k), yesNo(expired))
	}

	return nil
}

// ---------- key grant ----------

func newKeyGrantCmd() *cobra.Command {
	var acc keyAccess

	cmd := &cobra.Command{
		Use:     "grant <id-or-prefix>",
		Short:   "Replace the access of an API key",
		Long:    "Set the read and write access of an existing key. Grants not named here are removed.",
		Example: `  carrierd key grant carrierd_1a2b3c4d --read-all --write 0190c3e2-...`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyGrant(args[0], acc)
		},
	}

	acc.bind(cmd)

	return cmd
}

func runKeyGrant(ref string, acc keyAccess) error {
	st, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	key, err := findKey(ctx, st, ref)
	if err != nil {
		return err
	}
	if err := checkCarriers(ctx, st, acc.read, acc.write); err != nil {
		return err
	}
	acc.apply(key)
	if err := st.SetAPIKeyAccess(ctx, key); err != nil {
		return fmt.Errorf("set api key access: %w", err)
	}

	fmt.Printf("Updated API key %s: %s\n", key.KeyPrefix, describeAccess(key))
	return nil
}

// findKey resolves a key by id or display prefix.
func findKey(ctx context.Context, st *store.Store, ref string) (*model.APIKey, error) {
	keys, err := st.ListAPIKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	for i := range keys {
		if keys[i].ID == ref || keys[i].KeyPrefix == ref {
			return &keys[i], nil
		}
	}
	return nil, fmt.Errorf("no API key found with id or prefix %q", ref)
}

// ---------- key revoke ----------

func newKeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <prefix>",
		Short: "Revoke an API key by its prefix",
		Long:  "Delete an API key, preventing any further authenticated requests using that key.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyRevoke(args[0])
		},
	}

	return cmd
}

func runKeyRevoke(prefix string) error {
	st, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeleteAPIKeyByPrefix(context.Background(), prefix); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no API key found with prefix %q", prefix)
		}
		return fmt.Errorf("revoke api key: %w", err)
	}

	fmt.Printf("Revoked API key with prefix %q\n", prefix)
	return nil
}
