package handler

import (
	"net/http"

	"github.com/carrierd/carrierd/internal/openapi"
)

// OpenAPIHandler serves the OpenAPI 3.1 document for the API. The document
// is generated from the carrier endpoint table, so it always matches the
// routes the server mounts.
type OpenAPIHandler struct {
	baseURL string
	version string
}

// NewOpenAPIHandler creates a new OpenAPIHandler. An empty baseURL makes
// the document point at the host the request was sent to.
func NewOpenAPIHandler(baseURL, version string) *OpenAPIHandler {
	return &OpenAPIHandler{baseURL: baseURL, version: version}
}

// ServeSpec returns the OpenAPI document.
// GET /openapi.json
func (h *OpenAPIHandler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	base := h.baseURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	writeJSON(w, http.StatusOK, openapi.Generate(base, h.version))
}
