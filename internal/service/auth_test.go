package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/carrierd/carrierd/internal/model"
	"github.com/carrierd/carrierd/internal/store"
)

func newTestAuth(t *testing.T) (*AuthService, *store.Store) {
	t.Helper()
	st, err := store.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	auth := NewAuthService(st, "test-secret-key-for-jwt")
	return auth, st
}

func TestJWTRoundTrip(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	token, err := auth.IssueJWT(ctx, "admin-42", "admin@example.com", 1*time.Hour)
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	principal, err := auth.ValidateJWT(ctx, token)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if principal.AdminID != "admin-42" {
		t.Errorf("AdminID: got %q, want %q", principal.AdminID, "admin-42")
	}
	if principal.Email != "admin@example.com" {
		t.Errorf("Email: got %q, want %q", principal.Email, "admin@example.com")
	}
}

func TestJWTExpired(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	// Negative TTL: already expired.
	token, err := auth.IssueJWT(ctx, "1", "test@test.com", -1*time.Hour)
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}

	_, err = auth.ValidateJWT(ctx, token)
	if err != ErrTokenExpired {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestJWTWrongSecret(t *testing.T) {
	auth, st := newTestAuth(t)
	ctx := context.Background()

	other := NewAuthService(st, "another-secret")
	token, _ := other.IssueJWT(ctx, "1", "x@y.z", time.Hour)

	if _, err := auth.ValidateJWT(ctx, token); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := auth.ValidateJWT(ctx, "garbage.token.here"); err == nil {
		t.Fatal("expected error for invalid token")
	}
}

func TestAPIKeyValidation(t *testing.T) {
	auth, st := newTestAuth(t)
	ctx := context.Background()

	c := &model.Carrier{ID: "c1", Name: "One", Callsign: "ONE-001", CurrentLocation: "Sol",
		DockingAccess: model.DockingAll, Owner: "o", Category: model.CategoryOther}
	if err := st.InTx(ctx, func(tx *store.Tx) error { return tx.CreateCarrier(ctx, c) }); err != nil {
		t.Fatalf("CreateCarrier: %v", err)
	}

	key := &model.APIKey{Label: "bot", ReadCarriers: []string{"c1"}, WriteCarriers: []string{"c1"}}
	rawKey, err := auth.NewAPIKey(ctx, key)
	if err != nil {
		t.Fatalf("NewAPIKey: %v", err)
	}
	if !strings.HasPrefix(rawKey, KeyPrefix) || !strings.HasPrefix(rawKey, key.KeyPrefix) {
		t.Errorf("got raw key %q with prefix %q", rawKey, key.KeyPrefix)
	}

	cred, err := auth.ValidateAPIKey(ctx, rawKey)
	if err != nil {
		t.Fatalf("ValidateAPIKey: %v", err)
	}
	if cred.ID != key.ID || !cred.CanWriteCarrier("c1") || cred.CanReadAll {
		t.Errorf("got credential %+v", cred)
	}

	if _, err := auth.ValidateAPIKey(ctx, "wrong_key"); err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAPIKeyExpired(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	rawKey, err := auth.NewAPIKey(ctx, &model.APIKey{Label: "old", CanReadAll: true, ExpiresAt: &past})
	if err != nil {
		t.Fatalf("NewAPIKey: %v", err)
	}
	if _, err := auth.ValidateAPIKey(ctx, rawKey); err != ErrTokenExpired {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestAPIKeyRevoked(t *testing.T) {
	auth, st := newTestAuth(t)
	ctx := context.Background()

	key := &model.APIKey{Label: "revoke-test", CanReadAll: true}
	rawKey, err := auth.NewAPIKey(ctx, key)
	if err != nil {
		t.Fatalf("NewAPIKey: %v", err)
	}
	if err := st.DeleteAPIKey(ctx, key.ID); err != nil {
		t.Fatalf("DeleteAPIKey: %v", err)
	}
	if _, err := auth.ValidateAPIKey(ctx, rawKey); err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	if _, err := auth.CreateAdmin(ctx, "ops@example.com", "hunter22", "Ops", true); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}

	admin, err := auth.Login(ctx, "ops@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if admin.Name != "Ops" || !admin.IsSuperAdmin {
		t.Errorf("got admin %+v", admin)
	}

	if _, err := auth.Login(ctx, "ops@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
	if _, err := auth.Login(ctx, "nobody@example.com", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: got %v", err)
	}
}

func TestCreateAdminDuplicateEmail(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	if _, err := auth.CreateAdmin(ctx, "ops@example.com", "hunter22", "Ops", false); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	if _, err := auth.CreateAdmin(ctx, "ops@example.com", "another1", "Ops 2", false); !errors.Is(err, ErrAdminExists) {
		t.Errorf("duplicate email: got %v, want ErrAdminExists", err)
	}
}
