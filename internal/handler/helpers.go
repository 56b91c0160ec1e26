package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/carrierd/carrierd/internal/apierr"
	"github.com/carrierd/carrierd/internal/model"
	"github.com/carrierd/carrierd/internal/server/middleware"
)

// maxBodyBytes caps request bodies read by readInput.
const maxBodyBytes = 1 << 20

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Responder renders errors and success acknowledgements in the API's
// envelopes, localized to the request's Accept-Language.
type Responder struct {
	catalog *apierr.Catalog
	logger  *slog.Logger
}

// NewResponder creates a Responder. A nil logger uses slog.Default.
func NewResponder(catalog *apierr.Catalog, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{catalog: catalog, logger: logger}
}

// Error writes err as an ErrorResponse. Errors that carry no apierr code
// are reported as internal errors and logged.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	code := apierr.Internal
	if e, ok := apierr.As(err); ok {
		code = e.Code
	}
	if code.Kind == apierr.KindInternal {
		rs.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
	}

	status := code.Kind.Status()
	writeJSON(w, status, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:      status,
			Subcode:   code.Number,
			Message:   rs.catalog.Message(code, r.Header.Get("Accept-Language")),
			Reference: rs.catalog.Reference(code),
			RequestID: middleware.GetRequestID(r.Context()),
		},
	})
}

// Success writes a SuccessResponse for the message id.
func (rs *Responder) Success(w http.ResponseWriter, r *http.Request, msgID string) {
	writeJSON(w, http.StatusOK, model.SuccessResponse{
		Success:   rs.catalog.Text(msgID, r.Header.Get("Accept-Language")),
		Reference: rs.catalog.SuccessReference(msgID),
	})
}

// readInput collects request parameters into one map: query parameters
// first, then the fields of a JSON object body, which win on conflict.
// Repeated query parameters become lists.
func readInput(r *http.Request) (map[string]interface{}, error) {
	in := make(map[string]interface{})
	for key, vals := range r.URL.Query() {
		switch len(vals) {
		case 0:
		case 1:
			in[key] = vals[0]
		default:
			list := make([]interface{}, len(vals))
			for i, v := range vals {
				list[i] = v
			}
			in[key] = list
		}
	}

	if r.Body == nil {
		return in, nil
	}
	defer r.Body.Close()
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, apierr.Wrap(apierr.InvalidBody, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return in, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var body map[string]interface{}
	if err := dec.Decode(&body); err != nil {
		return nil, apierr.Wrap(apierr.InvalidBody, err)
	}
	if body == nil {
		return nil, apierr.Wrap(apierr.InvalidBody, errors.New("body is not a JSON object"))
	}
	for k, v := range body {
		in[k] = v
	}
	return in, nil
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		return apierr.Wrap(apierr.InvalidBody, err)
	}
	return nil
}

// queryInt extracts an integer query parameter, returning defaultVal if the
// parameter is missing or cannot be parsed.
func queryInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// clampInt constrains val to be within [min, max].
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
