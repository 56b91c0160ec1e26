package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/carrierd/carrierd/internal/service"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin users",
		Long:  "Create and list administrative users who manage keys and the service catalogue through the system API.",
	}

	cmd.AddCommand(newAdminCreateCmd())
	cmd.AddCommand(newAdminListCmd())
	cmd.AddCommand(newAdminTokenCmd())

	return cmd
}

// ---------- admin create ----------

func newAdminCreateCmd() *cobra.Command {
	var (
		email    string
		password string
		name     string
		super    bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new admin user",
		Example: `  carrierd admin create --email admin@example.com --password secret123
  carrierd admin create --email admin@example.com  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminCreate(email, password, name, super)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (prompted if omitted)")
	cmd.Flags().StringVar(&name, "name", "", "Admin display name")
	cmd.Flags().BoolVar(&super, "super", false, "Grant super admin rights")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runAdminCreate(email, password, name string, super bool) error {
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address: %q", email)
	}

	// Prompt for password if not provided
	if password == "" {
		var err error
		if password, err = promptPassword(); err != nil {
			return err
		}
	}

	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	st, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer st.Close()

	admin, err := service.NewAuthService(st, "").CreateAdmin(context.Background(), email, password, name, super)
	if errors.Is(err, service.ErrAdminExists) {
		return fmt.Errorf("an admin with email %q already exists", email)
	}
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	fmt.Printf("Created admin user %q (id %s)\n", admin.Email, admin.ID)
	return nil
}

func promptPassword() (string, error) {
	fmt.Print("Password: ")
	pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	fmt.Print("Confirm password: ")
	confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	fmt.Println()

	if string(pwBytes) != string(confirmBytes) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(pwBytes), nil
}

// ---------- admin list ----------

func newAdminListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all admin users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runAdminList(jsonOutput bool) error {
	st, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer st.Close()

	admins, err := st.ListAdmins(context.Background())
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}

	if jsonOutput {
		return printJSON(admins)
	}

	if len(admins) == 0 {
		fmt.Println("No admin users configured. Use 'carrierd admin create' to create one.")
		return nil
	}

	fmt.Printf("%-30s %-24s %-8s %-6s\n", "EMAIL", "NAME", "ACTIVE", "SUPER")
	fmt.Printf("%-30s %-24s %-8s %-6s\n", "-----", "----", "------", "-----")
	for _, a := range admins {
		fmt.Printf("%-30s %-24s %-8s %-6s\n", a.Email, a.Name, yesNo(a.IsActive), yesNo(a.IsSuperAdmin))
	}

	return nil
}

// ---------- admin token ----------

func newAdminTokenCmd() *cobra.Command {
	var (
		email    string
		password string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin session token",
		Long: `Log in as an admin and print a bearer token for the system API. The token is
signed with auth.jwt_secret, so the server must be configured with the same secret.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminToken(email, password, ttl)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (prompted if omitted)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default auth.jwt_expiry)")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runAdminToken(email, password string, ttl time.Duration) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must be set to issue tokens (CARRIERD_AUTH_JWT_SECRET)")
	}
	if ttl <= 0 {
		ttl = cfg.Auth.JWTExpiry
	}

	if password == "" {
		fmt.Print("Password: ")
		pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Println()
		password = string(pwBytes)
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	authSvc := service.NewAuthService(st, cfg.Auth.JWTSecret)
	admin, err := authSvc.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	token, err := authSvc.IssueJWT(ctx, admin.ID, admin.Email, ttl)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	fmt.Println(token)
	return nil
}
