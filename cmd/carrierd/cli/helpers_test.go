package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/carrierd/carrierd/internal/model"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	resetViper(t)
	t.Setenv("CARRIERD_SERVER_PORT", "9191")
	t.Setenv("CARRIERD_AUTH_JWT_SECRET", "from-env")
	cfgFile = ""
	initConfig()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("port = %d, want 9191", cfg.Server.Port)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("jwt_secret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("driver = %q, want default sqlite", cfg.Database.Driver)
	}
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	resetViper(t)
	t.Setenv("CARRIERD_DATABASE_DRIVER", "oracle")
	cfgFile = ""
	initConfig()

	if _, err := loadConfig(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestOpenStoreInDataDir(t *testing.T) {
	resetViper(t)
	dataDir = t.TempDir()
	t.Cleanup(func() { dataDir = "" })
	cfgFile = ""
	initConfig()

	st, err := openConfiguredStore()
	if err != nil {
		t.Fatalf("openConfiguredStore: %v", err)
	}
	defer st.Close()
	if err := st.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if st.Driver() != "sqlite" {
		t.Errorf("driver = %q", st.Driver())
	}
}

func TestDescribeAccess(t *testing.T) {
	tests := []struct {
		key  model.APIKey
		want string
	}{
		{model.APIKey{CanReadAll: true, CanWriteAll: true}, "read all, write all"},
		{model.APIKey{CanReadAll: true, WriteCarriers: []string{"a"}}, "read all, write 1 carriers"},
		{model.APIKey{}, "read 0 carriers, write 0 carriers"},
	}
	for _, tt := range tests {
		if got := describeAccess(&tt.key); got != tt.want {
			t.Errorf("describeAccess(%+v) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestVersionString(t *testing.T) {
	defer func(v string) { appVersion = v }(appVersion)
	for in, want := range map[string]string{"": "dev", "dev": "dev", "1.2.0": "v1.2.0", "v1.2.0": "v1.2.0"} {
		appVersion = in
		if got := versionString(); got != want {
			t.Errorf("versionString(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd("1.0.0", "abc", "today")
	for _, path := range [][]string{
		{"serve"}, {"key", "create"}, {"key", "grant"}, {"key", "revoke"},
		{"admin", "token"}, {"service", "seed"}, {"carrier", "list"},
		{"audit", "list"}, {"mcp"}, {"openapi"}, {"config", "init"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Errorf("command %v not found: %v", path, err)
		}
	}
}

func TestVersionCommandShort(t *testing.T) {
	defer func(v string) { appVersion = v }(appVersion)
	appVersion = "2.0.0"

	cmd := newVersionCmd("2.0.0", "abc", "today")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--short"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if strings.TrimSpace(out.String()) != "v2.0.0" {
		t.Errorf("output = %q", out.String())
	}
}
