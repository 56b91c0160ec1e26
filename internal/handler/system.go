package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carrierd/carrierd/internal/apierr"
	"github.com/carrierd/carrierd/internal/model"
	"github.com/carrierd/carrierd/internal/service"
	"github.com/carrierd/carrierd/internal/store"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
	minPasswordLength = 8
)

// SystemHandler manages carrierd's own configuration: admins, API keys and
// their carrier grants, the service catalogue and the audit trail.
type SystemHandler struct {
	store      *store.Store
	authSvc    *service.AuthService
	resp       *Responder
	sessionTTL time.Duration
}

// NewSystemHandler creates a new SystemHandler. Admin sessions last
// sessionTTL.
func NewSystemHandler(st *store.Store, authSvc *service.AuthService, resp *Responder, sessionTTL time.Duration) *SystemHandler {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &SystemHandler{
		store:      st,
		authSvc:    authSvc,
		resp:       resp,
		sessionTTL: sessionTTL,
	}
}

// ---------------------------------------------------------------------------
// Authentication
// ---------------------------------------------------------------------------

// loginRequest is the expected payload for the Login endpoint.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse is the response payload for a successful login.
type loginResponse struct {
	Token     string `json:"session_token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
	AdminID   string `json:"admin_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
}

// Login authenticates an admin user and returns a JWT session token.
// POST /api/v1/system/admin/session
func (h *SystemHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		h.resp.Error(w, r, apierr.New(apierr.NoCredentials))
		return
	}

	admin, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrAccountDisabled) {
			h.resp.Error(w, r, apierr.Wrap(apierr.InvalidCredentials, err))
			return
		}
		h.resp.Error(w, r, err)
		return
	}

	token, err := h.authSvc.IssueJWT(r.Context(), admin.ID, admin.Email, h.sessionTTL)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "bearer",
		ExpiresIn: int(h.sessionTTL.Seconds()),
		AdminID:   admin.ID,
		Email:     admin.Email,
		Name:      admin.Name,
	})
}

// Logout invalidates the current session. Since JWTs are stateless, this is
// a no-op on the server side. Clients should discard their token.
// DELETE /api/v1/system/admin/session
func (h *SystemHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.SuccessResponse{Success: "Session invalidated"})
}

// ---------------------------------------------------------------------------
// Admin management
// ---------------------------------------------------------------------------

// ListAdmins returns all admin accounts.
// GET /api/v1/system/admin
func (h *SystemHandler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.store.ListAdmins(r.Context())
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	if admins == nil {
		admins = []model.Admin{}
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: admins,
		Meta:     &model.ResponseMeta{Count: len(admins)},
	})
}

// CreateAdmin creates a new admin account.
// POST /api/v1/system/admin
func (h *SystemHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		Name         string `json:"name"`
		IsSuperAdmin bool   `json:"is_super_admin"`
	}
	if err := readJSON(r, &body); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	if body.Email == "" || body.Password == "" {
		h.resp.Error(w, r, apierr.New(apierr.MissingField))
		return
	}
	if len(body.Password) < minPasswordLength {
		h.resp.Error(w, r, apierr.New(apierr.InvalidValue))
		return
	}

	admin, err := h.authSvc.CreateAdmin(r.Context(), body.Email, body.Password, body.Name, body.IsSuperAdmin)
	if err != nil {
		if errors.Is(err, service.ErrAdminExists) {
			h.resp.Error(w, r, apierr.Wrap(apierr.AdminExists, err))
			return
		}
		h.resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, admin)
}

// ---------------------------------------------------------------------------
// API Key management
// ---------------------------------------------------------------------------

// ListAPIKeys returns all API keys with their grants. Raw keys are never
// stored and so never listed.
// GET /api/v1/system/api_key
func (h *SystemHandler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.store.ListAPIKeys(r.Context())
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	if keys == nil {
		keys = []model.APIKey{}
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: keys,
		Meta:     &model.ResponseMeta{Count: len(keys)},
	})
}

// GetAPIKey returns one API key.
// GET /api/v1/system/api_key/{keyId}
func (h *SystemHandler) GetAPIKey(w http.ResponseWriter, r *http.Request) {
	key, err := h.store.GetAPIKey(r.Context(), chi.URLParam(r, "keyId"))
	if err != nil {
		h.resp.Error(w, r, keyError(err))
		return
	}
	writeJSON(w, http.StatusOK, key)
}

// accessRequest sets a key's read and write scope.
type accessRequest struct {
	CanReadAll    bool     `json:"can_read_all"`
	CanWriteAll   bool     `json:"can_write_all"`
	ReadCarriers  []string `json:"read_carriers"`
	WriteCarriers []string `json:"write_carriers"`
}

// createAPIKeyRequest is the expected payload for CreateAPIKey.
type createAPIKeyRequest struct {
	Label     string     `json:"label"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	accessRequest
}

// createAPIKeyResponse includes the plaintext key (shown once only).
type createAPIKeyResponse struct {
	Key string `json:"api_key"` // Plaintext, shown ONCE.
	*model.APIKey
}

// CreateAPIKey generates a new API key, stores its hash and grants, and
// returns the plaintext key exactly once.
// POST /api/v1/system/api_key
func (h *SystemHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req createAPIKeyRequest
	if err := readJSON(r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	if err := h.checkCarriers(r, req.ReadCarriers, req.WriteCarriers); err != nil {
		h.resp.Error(w, r, err)
		return
	}

	key := &model.APIKey{
		Label:         req.Label,
		ExpiresAt:     req.ExpiresAt,
		CanReadAll:    req.CanReadAll,
		CanWriteAll:   req.CanWriteAll,
		ReadCarriers:  req.ReadCarriers,
		WriteCarriers: req.WriteCarriers,
	}
	raw, err := h.authSvc.NewAPIKey(r.Context(), key)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createAPIKeyResponse{Key: raw, APIKey: key})
}

// SetAPIKeyAccess replaces a key's read and write scope.
// PUT /api/v1/system/api_key/{keyId}/access
func (h *SystemHandler) SetAPIKeyAccess(w http.ResponseWriter, r *http.Request) {
	var req accessRequest
	if err := readJSON(r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	key, err := h.store.GetAPIKey(r.Context(), chi.URLParam(r, "keyId"))
	if err != nil {
		h.resp.Error(w, r, keyError(err))
		return
	}
	if err := h.checkCarriers(r, req.ReadCarriers, req.WriteCarriers); err != nil {
		h.resp.Error(w, r, err)
		return
	}

	key.CanReadAll = req.CanReadAll
	key.CanWriteAll = req.CanWriteAll
	key.ReadCarriers = req.ReadCarriers
	key.WriteCarriers = req.WriteCarriers
	if err := h.store.SetAPIKeyAccess(r.Context(), key); err != nil {
		h.resp.Error(w, r, keyError(err))
		return
	}

	updated, err := h.store.GetAPIKey(r.Context(), key.ID)
	if err != nil {
		h.resp.Error(w, r, keyError(err))
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// RevokeAPIKey deletes an API key. Requests using it fail from then on.
// DELETE /api/v1/system/api_key/{keyId}
func (h *SystemHandler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteAPIKey(r.Context(), chi.URLParam(r, "keyId")); err != nil {
		h.resp.Error(w, r, keyError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// checkCarriers rejects grants that name unknown carriers.
func (h *SystemHandler) checkCarriers(r *http.Request, sets ...[]string) error {
	for _, ids := range sets {
		for _, id := range ids {
			ok, err := h.store.Exists(r.Context(), "carriers", "id", id)
			if err != nil {
				return err
			}
			if !ok {
				return apierr.New(apierr.CarrierNotFound)
			}
		}
	}
	return nil
}

func keyError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apierr.Wrap(apierr.KeyNotFound, err)
	}
	return err
}

// ---------------------------------------------------------------------------
// Service catalogue
// ---------------------------------------------------------------------------

// ListServices returns the carrier service catalogue.
// GET /api/v1/system/service
func (h *SystemHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.store.ListServices(r.Context())
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	if services == nil {
		services = []model.CarrierService{}
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: services,
		Meta:     &model.ResponseMeta{Count: len(services)},
	})
}

// CreateService adds a service to the catalogue.
// POST /api/v1/system/service
func (h *SystemHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	var svc model.CarrierService
	if err := readJSON(r, &svc); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	svc.Name = strings.TrimSpace(svc.Name)
	if svc.Name == "" {
		h.resp.Error(w, r, apierr.New(apierr.NoService))
		return
	}
	if svc.Label == "" {
		svc.Label = svc.Name
	}

	if err := h.store.CreateService(r.Context(), &svc); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			h.resp.Error(w, r, apierr.Wrap(apierr.ServiceExists, err))
			return
		}
		h.resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, svc)
}

// SeedServices adds the default catalogue entries that are missing.
// POST /api/v1/system/service/seed
func (h *SystemHandler) SeedServices(w http.ResponseWriter, r *http.Request) {
	added, err := h.store.SeedServices(r.Context(), model.DefaultServices)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"added": added})
}

// DeleteService removes a service from the catalogue.
// DELETE /api/v1/system/service/{serviceName}
func (h *SystemHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteService(r.Context(), chi.URLParam(r, "serviceName")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.resp.Error(w, r, apierr.Wrap(apierr.ServiceNotFound, err))
			return
		}
		h.resp.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Audit trail
// ---------------------------------------------------------------------------

// ListAudit returns audit entries, newest first.
// GET /api/v1/system/audit?carrier_id=...&key_id=...&type=...&limit=...
func (h *SystemHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := clampInt(queryInt(r, "limit", defaultAuditLimit), 1, maxAuditLimit)
	entries, err := h.store.ListAuditEntries(r.Context(), model.AuditFilter{
		CarrierID: q.Get("carrier_id"),
		KeyID:     q.Get("key_id"),
		Type:      q.Get("type"),
		Limit:     limit,
	})
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: entries,
		Meta:     &model.ResponseMeta{Count: len(entries), Limit: limit},
	})
}
