package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/carrierd/carrierd/internal/apierr"
	"github.com/carrierd/carrierd/internal/cache"
	"github.com/carrierd/carrierd/internal/carrier"
	"github.com/carrierd/carrierd/internal/model"
	"github.com/carrierd/carrierd/internal/server"
	"github.com/carrierd/carrierd/internal/service"
)

const banner = `
  ___ __ _ _ __ _ __(_) ___ _ __ __| |
 / __/ _' | '__| '__| |/ _ \ '__/ _' |
| (_| (_| | |  | |  | |  __/ | | (_| |
 \___\__,_|_|  |_|  |_|\___|_|  \__,_|
`

func newServeCmd() *cobra.Command {
	var (
		port     int
		host     string
		noPublic bool
		dev      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the carrierd API server",
		Long:  "Start the HTTP server that exposes the carrier API, the admin API and public carrier views.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(noPublic, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&noPublic, "no-public", false, "Disable the public carrier views")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (debug logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(noPublic, dev bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dev {
		cfg.Logging.Level = "debug"
	}
	logger := newLogger(cfg.Logging)

	fmt.Print(banner)
	fmt.Println()

	ctx := context.Background()

	// 1. Open the store and apply migrations
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	logger.Info("store initialized", "driver", st.Driver())

	// 2. Install the service catalogue on first start
	services, err := st.ListServices(ctx)
	if err != nil {
		st.Close()
		return fmt.Errorf("list services: %w", err)
	}
	if len(services) == 0 {
		n, err := st.SeedServices(ctx, model.DefaultServices)
		if err != nil {
			st.Close()
			return fmt.Errorf("seed services: %w", err)
		}
		logger.Info("seeded service catalogue", "added", n)
	}

	// 3. Message catalog and view cache
	catalog, err := apierr.NewCatalog(cfg.Docs.BaseURL)
	if err != nil {
		st.Close()
		return fmt.Errorf("load message catalog: %w", err)
	}
	viewCache, err := cache.New(ctx, cache.Config{
		RedisAddr:     cfg.Cache.RedisAddr,
		RedisPassword: cfg.Cache.RedisPassword,
		TTL:           cfg.Cache.TTL,
	})
	if err != nil {
		st.Close()
		return fmt.Errorf("init cache: %w", err)
	}

	// 4. Auth and carrier services
	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = randomSecret()
		logger.Warn("auth.jwt_secret is not set; admin sessions will not survive a restart")
	}
	authSvc := service.NewAuthService(st, jwtSecret)
	carriers := carrier.NewService(st, logger)

	// 5. Check for first-run (no admin exists)
	hasAdmin, err := st.HasAnyAdmin(ctx)
	if err != nil {
		logger.Warn("failed to check for admin", "error", err)
	}
	if !hasAdmin {
		logger.Warn("no admin account found - run: carrierd admin create")
	}

	// 6. Build and start HTTP server
	srvCfg := server.DefaultConfig()
	srvCfg.Host = cfg.Server.Host
	srvCfg.Port = cfg.Server.Port
	srvCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	srvCfg.CORSOrigins = cfg.Server.CORSOrigins
	srvCfg.BaseURL = cfg.Server.BaseURL
	srvCfg.Version = versionString()
	srvCfg.RateLimit = cfg.RateLimit.RequestsPerMinute
	srvCfg.PublicRateLimit = cfg.RateLimit.PublicPerMinute
	srvCfg.SessionTTL = cfg.Auth.JWTExpiry
	srvCfg.EnablePublic = cfg.Server.Public && !noPublic

	srv := server.New(srvCfg, st, authSvc, carriers, viewCache, catalog, logger)

	fmt.Printf("→ carrierd %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d\n", srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ API:        http://%s:%d/api/v1\n", srvCfg.Host, srvCfg.Port)
	if srvCfg.EnablePublic {
		fmt.Printf("→ Public:     http://%s:%d/public/carriers\n", srvCfg.Host, srvCfg.Port)
	}
	fmt.Printf("→ OpenAPI:    http://%s:%d/openapi.json\n", srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ Health:     http://%s:%d/healthz\n", srvCfg.Host, srvCfg.Port)
	fmt.Println()

	return srv.ListenAndServe()
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	return hex.EncodeToString(b)
}
