package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carrierd/carrierd/internal/apierr"
	"github.com/carrierd/carrierd/internal/cache"
	"github.com/carrierd/carrierd/internal/model"
	"github.com/carrierd/carrierd/internal/store"
	"github.com/carrierd/carrierd/internal/ui"
)

const publicListKey = "carriers"

// PublicHandler serves the unauthenticated carrier views: the public JSON
// projection and the embeddable HTML card. Rendered bodies are cached until
// the carrier changes.
type PublicHandler struct {
	store  *store.Store
	cache  cache.Cache
	resp   *Responder
	logger *slog.Logger
}

// NewPublicHandler creates a new PublicHandler.
func NewPublicHandler(st *store.Store, c cache.Cache, resp *Responder, logger *slog.Logger) *PublicHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PublicHandler{store: st, cache: c, resp: resp, logger: logger}
}

// Invalidate drops the cached views of a carrier and the public list.
func (h *PublicHandler) Invalidate(carrierID string) {
	err := h.cache.Delete(context.Background(), jsonKey(carrierID), htmlKey(carrierID), publicListKey)
	if err != nil {
		h.logger.Warn("cache invalidation failed", "carrier", carrierID, "error", err)
	}
}

func jsonKey(id string) string { return "carrier:" + id + ":json" }
func htmlKey(id string) string { return "carrier:" + id + ":html" }

// ListCarriers returns the public projection of every carrier.
// GET /public/carriers
func (h *PublicHandler) ListCarriers(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, publicListKey, "application/json", func() ([]byte, error) {
		carriers, err := h.store.ListCarriers(r.Context())
		if err != nil {
			return nil, err
		}
		public := make([]model.PublicCarrier, len(carriers))
		for i := range carriers {
			public[i] = carriers[i].Public()
		}
		return json.Marshal(public)
	})
}

// GetCarrier returns the public projection of one carrier.
// GET /public/carrier/{id}
func (h *PublicHandler) GetCarrier(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.serve(w, r, jsonKey(id), "application/json", func() ([]byte, error) {
		c, err := h.carrier(r.Context(), id)
		if err != nil {
			return nil, err
		}
		return json.Marshal(c.Public())
	})
}

// Embed renders the HTML card for one carrier.
// GET /embed/carrier/{id}
func (h *PublicHandler) Embed(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.serve(w, r, htmlKey(id), "text/html; charset=utf-8", func() ([]byte, error) {
		c, err := h.carrier(r.Context(), id)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := ui.RenderCarrier(&buf, c.Public()); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
}

func (h *PublicHandler) carrier(ctx context.Context, id string) (*model.Carrier, error) {
	c, err := h.store.GetCarrier(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apierr.Wrap(apierr.CarrierNotFound, err)
	}
	return c, err
}

// serve writes the cached body for key, rendering and caching it on a
// miss. Cache failures degrade to rendering every request.
func (h *PublicHandler) serve(w http.ResponseWriter, r *http.Request, key, contentType string, render func() ([]byte, error)) {
	body, hit, err := h.cache.Get(r.Context(), key)
	if err != nil {
		h.logger.Warn("cache read failed", "key", key, "error", err)
	}
	if !hit {
		body, err = render()
		if err != nil {
			h.resp.Error(w, r, err)
			return
		}
		if err := h.cache.Set(r.Context(), key, body); err != nil {
			h.logger.Warn("cache write failed", "key", key, "error", err)
		}
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(body) //nolint:errcheck
}
