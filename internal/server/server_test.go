package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/carrierd/carrierd/internal/apierr"
	"github.com/carrierd/carrierd/internal/cache"
	"github.com/carrierd/carrierd/internal/carrier"
	"github.com/carrierd/carrierd/internal/model"
	"github.com/carrierd/carrierd/internal/service"
	"github.com/carrierd/carrierd/internal/store"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

const (
	testJWTSecret = "test-secret-for-jwt-integration-tests"
	testPassword  = "supersecretpassword"
	testAdminName = "Test Admin"
)

// testEnv holds all the shared state for integration tests.
type testEnv struct {
	server  *Server
	store   *store.Store
	authSvc *service.AuthService
}

// newTestEnv creates a fresh test environment with an in-memory store, a
// seeded service catalogue and a fully wired Server.
func newTestEnv(t *testing.T, configure ...func(*Config)) *testEnv {
	t.Helper()

	st, err := store.NewStore("") // in-memory SQLite
	if err != nil {
		t.Fatalf("store.NewStore: %v", err)
	}
	if _, err := st.SeedServices(context.Background(), model.DefaultServices); err != nil {
		t.Fatalf("SeedServices: %v", err)
	}
	catalog, err := apierr.NewCatalog("https://docs.example.com")
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	authSvc := service.NewAuthService(st, testJWTSecret)
	viewCache := cache.NewMemory(time.Minute)
	t.Cleanup(func() {
		viewCache.Close()
		st.Close()
	})

	cfg := DefaultConfig()
	for _, fn := range configure {
		fn(&cfg)
	}
	srv := New(cfg, st, authSvc, carrier.NewService(st, logger), viewCache, catalog, logger)

	return &testEnv{
		server:  srv,
		store:   st,
		authSvc: authSvc,
	}
}

// seedAdmin creates a default admin account and returns it.
func (e *testEnv) seedAdmin(t *testing.T) *model.Admin {
	t.Helper()
	admin, err := e.authSvc.CreateAdmin(context.Background(), "admin@example.com", testPassword, testAdminName, true)
	if err != nil {
		t.Fatalf("seedAdmin: %v", err)
	}
	return admin
}

// adminToken logs in as the default admin and returns the JWT token string.
func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	body := jsonBody(t, map[string]string{
		"email":    "admin@example.com",
		"password": testPassword,
	})
	rr := e.do(t, "POST", "/api/v1/system/admin/session", body, nil)
	assertStatus(t, rr, http.StatusOK)

	var resp struct {
		Token string `json:"session_token"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Token == "" {
		t.Fatal("adminToken: got empty token from login")
	}
	return resp.Token
}

// newKey stores an API key directly and returns its raw value.
func (e *testEnv) newKey(t *testing.T, key *model.APIKey) string {
	t.Helper()
	raw, err := e.authSvc.NewAPIKey(context.Background(), key)
	if err != nil {
		t.Fatalf("NewAPIKey: %v", err)
	}
	return raw
}

// do executes an HTTP request against the test server and returns the recorder.
// headers is an optional map of header key-value pairs.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)
	return rr
}

// doAuth executes an authenticated HTTP request using the admin JWT.
func (e *testEnv) doAuth(t *testing.T, method, path string, body io.Reader, token string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// doAPIKey executes an HTTP request authenticated with an API key.
func (e *testEnv) doAPIKey(t *testing.T, method, path string, body io.Reader, apiKey string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, method, path, body, map[string]string{
		"X-API-Key": apiKey,
	})
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("jsonBody: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func assertContentType(t *testing.T, rr *httptest.ResponseRecorder, want string) {
	t.Helper()
	got := rr.Header().Get("Content-Type")
	if got != want {
		t.Errorf("Content-Type = %q, want %q", got, want)
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v; body = %s", err, rr.Body.String())
	}
}

func errorSubcode(t *testing.T, rr *httptest.ResponseRecorder) int {
	t.Helper()
	var resp model.ErrorResponse
	decodeJSON(t, rr, &resp)
	return resp.Error.Subcode
}

// ---------------------------------------------------------------------------
// Health check tests
// ---------------------------------------------------------------------------

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/healthz", nil, nil)
	assertStatus(t, rr, http.StatusOK)
	assertContentType(t, rr, "application/json")

	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["status"] != "ok" {
		t.Errorf("status = %q, want %q", resp["status"], "ok")
	}
}

func TestReadyz(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/readyz", nil, nil)
	assertStatus(t, rr, http.StatusOK)

	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Status != "ok" || resp.Checks["store"] != "ok" {
		t.Errorf("readyz = %+v", resp)
	}
}

func TestReadyz_StoreClosed(t *testing.T) {
	env := newTestEnv(t)
	env.store.Close()

	rr := env.do(t, "GET", "/readyz", nil, nil)
	assertStatus(t, rr, http.StatusServiceUnavailable)
}

// ---------------------------------------------------------------------------
// OpenAPI
// ---------------------------------------------------------------------------

func TestOpenAPIDocument(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/openapi.json", nil, nil)
	assertStatus(t, rr, http.StatusOK)

	var doc struct {
		OpenAPI string                     `json:"openapi"`
		Servers []struct{ URL string }     `json:"servers"`
		Paths   map[string]json.RawMessage `json:"paths"`
	}
	decodeJSON(t, rr, &doc)
	if doc.OpenAPI != "3.1.0" {
		t.Errorf("openapi = %q", doc.OpenAPI)
	}
	if len(doc.Servers) != 1 || doc.Servers[0].URL != "http://example.com" {
		t.Errorf("servers = %+v, want the request host", doc.Servers)
	}
	for _, ep := range carrier.Endpoints() {
		if _, ok := doc.Paths["/api/v1"+ep.Path]; !ok {
			t.Errorf("document is missing %s", ep.Path)
		}
	}
}

// ---------------------------------------------------------------------------
// Authentication boundaries
// ---------------------------------------------------------------------------

func TestSystemRoutesRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	key := env.newKey(t, &model.APIKey{Label: "bot", CanReadAll: true, CanWriteAll: true})

	rr := env.do(t, "GET", "/api/v1/system/api_key", nil, nil)
	assertStatus(t, rr, http.StatusForbidden)
	if got := errorSubcode(t, rr); got != apierr.NoCredentials.Number {
		t.Errorf("subcode = %d, want %d", got, apierr.NoCredentials.Number)
	}

	// An API key is not an admin session.
	rr = env.doAuth(t, "GET", "/api/v1/system/api_key", nil, key)
	assertStatus(t, rr, http.StatusForbidden)
	if got := errorSubcode(t, rr); got != apierr.InvalidCredentials.Number {
		t.Errorf("subcode = %d, want %d", got, apierr.InvalidCredentials.Number)
	}
}

func TestCarrierRoutesRequireKey(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	token := env.adminToken(t)

	rr := env.do(t, "GET", "/api/v1/carriers", nil, nil)
	assertStatus(t, rr, http.StatusForbidden)

	// An admin session is not an API key.
	rr = env.doAuth(t, "GET", "/api/v1/carriers", nil, token)
	assertStatus(t, rr, http.StatusForbidden)
}

// ---------------------------------------------------------------------------
// Full workflow
// ---------------------------------------------------------------------------

func TestFullWorkflow(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	token := env.adminToken(t)

	// Admin issues a key that may create carriers.
	rr := env.doAuth(t, "POST", "/api/v1/system/api_key", jsonBody(t, map[string]interface{}{
		"label": "fleet", "can_read_all": true, "can_write_all": true,
	}), token)
	assertStatus(t, rr, http.StatusCreated)
	var keyResp struct {
		Key string `json:"api_key"`
		ID  string `json:"id"`
	}
	decodeJSON(t, rr, &keyResp)

	// The key registers a carrier.
	rr = env.doAPIKey(t, "POST", "/api/v1/carrier", jsonBody(t, map[string]interface{}{
		"name": "Starlight", "callsign": "STR-001", "current_location": "Sol", "owner": "CMDR Vega",
	}), keyResp.Key)
	assertStatus(t, rr, http.StatusCreated)
	var c model.Carrier
	decodeJSON(t, rr, &c)

	// The public view is served and cached.
	rr = env.do(t, "GET", "/public/carrier/"+c.ID, nil, nil)
	assertStatus(t, rr, http.StatusOK)

	// A jump is recorded and the public view follows it.
	rr = env.doAPIKey(t, "PUT", "/api/v1/carrier/jump", jsonBody(t, map[string]string{
		"id": c.ID, "type": "jump", "body": "Beagle Point", "source": "discord", "discord_id": "1234",
	}), keyResp.Key)
	assertStatus(t, rr, http.StatusOK)

	rr = env.do(t, "GET", "/public/carrier/"+c.ID, nil, nil)
	var pub model.PublicCarrier
	decodeJSON(t, rr, &pub)
	if pub.CurrentLocation != "Beagle Point" {
		t.Errorf("public current_location = %q, want Beagle Point", pub.CurrentLocation)
	}

	// The audit trail attributes both changes to the key.
	rr = env.doAuth(t, "GET", "/api/v1/system/audit?key_id="+keyResp.ID, nil, token)
	assertStatus(t, rr, http.StatusOK)
	var audit struct {
		Resource []model.AuditEntry `json:"resource"`
	}
	decodeJSON(t, rr, &audit)
	if len(audit.Resource) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(audit.Resource))
	}
	jump := audit.Resource[0]
	if jump.Type != model.AuditJump || jump.Source != model.SourceDiscord {
		t.Errorf("jump entry = %+v", jump)
	}
	if jump.ExternalActor == nil || *jump.ExternalActor != "1234" {
		t.Errorf("external_actor = %v, want 1234", jump.ExternalActor)
	}

	// Revoking the key locks it out.
	rr = env.doAuth(t, "DELETE", "/api/v1/system/api_key/"+keyResp.ID, nil, token)
	assertStatus(t, rr, http.StatusNoContent)
	rr = env.doAPIKey(t, "GET", "/api/v1/carriers", nil, keyResp.Key)
	assertStatus(t, rr, http.StatusForbidden)
}

// ---------------------------------------------------------------------------
// Middleware wiring
// ---------------------------------------------------------------------------

func TestCORSExposesModifiedHeader(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/healthz", nil, map[string]string{"Origin": "https://fleet.example.com"})
	exposed := rr.Header().Get("Access-Control-Expose-Headers")
	if !strings.Contains(exposed, "X-Carrier-Modified") {
		t.Errorf("Access-Control-Expose-Headers = %q", exposed)
	}
}

func TestRateLimitPerKey(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.RateLimit = 2 })
	a := env.newKey(t, &model.APIKey{Label: "a", CanReadAll: true})
	b := env.newKey(t, &model.APIKey{Label: "b", CanReadAll: true})

	for i := 0; i < 2; i++ {
		assertStatus(t, env.doAPIKey(t, "GET", "/api/v1/services", nil, a), http.StatusOK)
	}
	assertStatus(t, env.doAPIKey(t, "GET", "/api/v1/services", nil, a), http.StatusTooManyRequests)

	// Another key has its own budget.
	assertStatus(t, env.doAPIKey(t, "GET", "/api/v1/services", nil, b), http.StatusOK)
}

func TestPublicDisabled(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.EnablePublic = false })

	rr := env.do(t, "GET", "/public/carriers", nil, nil)
	assertStatus(t, rr, http.StatusNotFound)
}
