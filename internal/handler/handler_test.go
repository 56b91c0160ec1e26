package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carrierd/carrierd/internal/apierr"
	"github.com/carrierd/carrierd/internal/cache"
	"github.com/carrierd/carrierd/internal/carrier"
	"github.com/carrierd/carrierd/internal/model"
	"github.com/carrierd/carrierd/internal/server/middleware"
	"github.com/carrierd/carrierd/internal/service"
	"github.com/carrierd/carrierd/internal/store"
)

const (
	testJWTSecret = "test-secret-for-handler-tests"
	testPassword  = "supersecretpassword"
	testDocsURL   = "https://docs.example.com"
)

// testEnv holds shared state for handler integration tests.
type testEnv struct {
	store    *store.Store
	authSvc  *service.AuthService
	carriers *carrier.Service
	system   *SystemHandler
	public   *PublicHandler
	router   chi.Router

	// adminKey may read and write every carrier.
	adminKey string
}

// newTestEnv creates a fresh test environment with an in-memory store, a
// seeded service catalogue, an all-access API key and a Chi router. The
// carrier API goes through the real key middleware; system routes are
// mounted without admin auth for direct handler testing.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	st, err := store.NewStore("") // in-memory SQLite
	if err != nil {
		t.Fatalf("store.NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if _, err := st.SeedServices(ctx, model.DefaultServices); err != nil {
		t.Fatalf("SeedServices: %v", err)
	}

	catalog, err := apierr.NewCatalog(testDocsURL)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	resp := NewResponder(catalog, nil)
	authSvc := service.NewAuthService(st, testJWTSecret)
	carriers := carrier.NewService(st, nil)

	sysHandler := NewSystemHandler(st, authSvc, resp, 0)
	carrierHandler := NewCarrierHandler(carriers, resp)
	publicHandler := NewPublicHandler(st, cache.NewMemory(time.Minute), resp, nil)
	carriers.OnChange(publicHandler.Invalidate)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthenticateKey(authSvc, resp.Error))
			for _, ep := range carrier.Endpoints() {
				r.Method(ep.Method, ep.Path, carrierHandler.Handler(ep.ID))
			}
		})

		r.Route("/system", func(r chi.Router) {
			r.Post("/admin/session", sysHandler.Login)
			r.Delete("/admin/session", sysHandler.Logout)
			r.Get("/admin", sysHandler.ListAdmins)
			r.Post("/admin", sysHandler.CreateAdmin)

			r.Get("/api_key", sysHandler.ListAPIKeys)
			r.Post("/api_key", sysHandler.CreateAPIKey)
			r.Get("/api_key/{keyId}", sysHandler.GetAPIKey)
			r.Put("/api_key/{keyId}/access", sysHandler.SetAPIKeyAccess)
			r.Delete("/api_key/{keyId}", sysHandler.RevokeAPIKey)

			r.Get("/service", sysHandler.ListServices)
			r.Post("/service", sysHandler.CreateService)
			r.Post("/service/seed", sysHandler.SeedServices)
			r.Delete("/service/{serviceName}", sysHandler.DeleteService)

			r.Get("/audit", sysHandler.ListAudit)
		})
	})
	r.Get("/public/carriers", publicHandler.ListCarriers)
	r.Get("/public/carrier/{id}", publicHandler.GetCarrier)
	r.Get("/embed/carrier/{id}", publicHandler.Embed)

	env := &testEnv{
		store:    st,
		authSvc:  authSvc,
		carriers: carriers,
		system:   sysHandler,
		public:   publicHandler,
		router:   r,
	}
	env.adminKey = env.newKey(t, &model.APIKey{Label: "all", CanReadAll: true, CanWriteAll: true})
	return env
}

// newKey stores key and returns its raw value.
func (e *testEnv) newKey(t *testing.T, key *model.APIKey) string {
	t.Helper()
	raw, err := e.authSvc.NewAPIKey(context.Background(), key)
	if err != nil {
		t.Fatalf("NewAPIKey: %v", err)
	}
	return raw
}

// seedAdmin creates a default admin account and returns it.
func (e *testEnv) seedAdmin(t *testing.T) *model.Admin {
	t.Helper()
	admin, err := e.authSvc.CreateAdmin(context.Background(), "admin@example.com", testPassword, "Test Admin", true)
	if err != nil {
		t.Fatalf("seedAdmin: %v", err)
	}
	return admin
}

// seedCarrier registers a carrier through the service and returns it.
func (e *testEnv) seedCarrier(t *testing.T, callsign string) *model.Carrier {
	t.Helper()
	cred, err := e.authSvc.ValidateAPIKey(context.Background(), e.adminKey)
	if err != nil {
		t.Fatalf("ValidateAPIKey: %v", err)
	}
	c, err := e.carriers.CreateCarrier(context.Background(), cred, carrier.Input{
		"name":             "Carrier " + callsign,
		"callsign":         callsign,
		"current_location": "Sol",
		"owner":            "CMDR Test",
	})
	if err != nil {
		t.Fatalf("CreateCarrier: %v", err)
	}
	return c
}

// do executes an HTTP request against the test router and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	return e.doAs(t, "", method, path, body)
}

// doAs is do with an X-API-Key header.
func (e *testEnv) doAs(t *testing.T, key, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func toJSON(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("toJSON: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v; body = %s", err, rr.Body.String())
	}
}

// assertError checks the status and subcode of an error envelope.
func assertError(t *testing.T, rr *httptest.ResponseRecorder, want apierr.Code) {
	t.Helper()
	assertStatus(t, rr, want.Kind.Status())
	var resp model.ErrorResponse
	decodeJSON(t, rr, &resp)
	if resp.Error.Subcode != want.Number {
		t.Errorf("subcode = %d, want %d (%s); message = %q", resp.Error.Subcode, want.Number, want.MessageID, resp.Error.Message)
	}
}
