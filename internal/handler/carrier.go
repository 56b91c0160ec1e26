package handler

import (
	"context"
	"net/http"

	"github.com/carrierd/carrierd/internal/carrier"
	"github.com/carrierd/carrierd/internal/model"
	"github.com/carrierd/carrierd/internal/server/middleware"
)

// ModifiedHeader is set on a freshness check when the carrier changed after
// the supplied timestamp.
const ModifiedHeader = "X-Carrier-Modified"

// CarrierHandler serves the carrier API. Every request acts as the
// credential that the authentication middleware placed in the context.
type CarrierHandler struct {
	svc  *carrier.Service
	resp *Responder
}

// NewCarrierHandler creates a new CarrierHandler.
func NewCarrierHandler(svc *carrier.Service, resp *Responder) *CarrierHandler {
	return &CarrierHandler{svc: svc, resp: resp}
}

// Handler returns the handler for the endpoint with the given operation ID,
// or nil if there is none.
func (h *CarrierHandler) Handler(operationID string) http.HandlerFunc {
	switch operationID {
	case "listCarriers":
		return h.ListCarriers
	case "listServices":
		return h.ListServices
	case "getCarrierInfo":
		return h.CarrierInfo
	case "getCarrier":
		return h.GetCarrier
	case "checkFreshness":
		return h.CheckFreshness
	case "createCarrier":
		return h.CreateCarrier
	case "editCarrier":
		return h.EditCarrier
	case "deleteCarrier":
		return h.DeleteCarrier
	case "jumpOrCancel":
		return h.message(h.svc.JumpOrCancel)
	case "setPermission":
		return h.message(h.svc.SetPermission)
	case "toggleService":
		return h.message(h.svc.ToggleService)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// ListCarriers returns every carrier the credential may read.
// GET /api/v1/carriers
func (h *CarrierHandler) ListCarriers(w http.ResponseWriter, r *http.Request) {
	carriers, err := h.svc.ListCarriers(r.Context(), middleware.GetCredential(r.Context()))
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: carriers,
		Meta:     &model.ResponseMeta{Count: len(carriers)},
	})
}

// ListServices returns the service catalogue.
// GET /api/v1/services
func (h *CarrierHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.svc.ListServices(r.Context(), middleware.GetCredential(r.Context()))
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: services,
		Meta:     &model.ResponseMeta{Count: len(services)},
	})
}

// CarrierInfo returns the choices for docking access or category.
// GET /api/v1/carrierinfo?type=docking
func (h *CarrierHandler) CarrierInfo(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(r)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	info, err := h.svc.CarrierInfo(r.Context(), in)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// GetCarrier returns one carrier by id or callsign.
// GET /api/v1/carrier?id=... or ?callsign=...
func (h *CarrierHandler) GetCarrier(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(r)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	c, err := h.svc.GetCarrier(r.Context(), middleware.GetCredential(r.Context()), in)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CheckFreshness answers 200 with the modified header when the carrier
// changed after the timestamp and 304 otherwise.
// HEAD /api/v1/carrier?id=...&timestamp=...&source=...
func (h *CarrierHandler) CheckFreshness(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(r)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	modified, err := h.svc.CheckFreshness(r.Context(), middleware.GetCredential(r.Context()), in)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	if !modified {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set(ModifiedHeader, "true")
	w.WriteHeader(http.StatusOK)
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

// CreateCarrier registers a new carrier.
// POST /api/v1/carrier
func (h *CarrierHandler) CreateCarrier(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(r)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	c, err := h.svc.CreateCarrier(r.Context(), middleware.GetCredential(r.Context()), in)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// EditCarrier updates the attributes present in the request.
// PUT /api/v1/carrier
func (h *CarrierHandler) EditCarrier(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(r)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	c, err := h.svc.EditCarrier(r.Context(), middleware.GetCredential(r.Context()), in)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteCarrier removes a carrier.
// DELETE /api/v1/carrier?id=...
func (h *CarrierHandler) DeleteCarrier(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(r)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	if _, err := h.svc.DeleteCarrier(r.Context(), middleware.GetCredential(r.Context()), in); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type messageOp func(ctx context.Context, cred *model.Credential, in carrier.Input) (*carrier.Result, error)

// message adapts an operation that answers with a success message.
func (h *CarrierHandler) message(op messageOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := readInput(r)
		if err != nil {
			h.resp.Error(w, r, err)
			return
		}
		res, err := op(r.Context(), middleware.GetCredential(r.Context()), in)
		if err != nil {
			h.resp.Error(w, r, err)
			return
		}
		h.resp.Success(w, r, res.Message)
	}
}
