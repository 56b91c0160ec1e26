package model

// ListResponse is the standard envelope for list endpoints.
type ListResponse struct {
	Resource interface{}   `json:"resource"`
	Meta     *ResponseMeta `json:"meta,omitempty"`
}

// ResponseMeta carries counts for list responses.
type ResponseMeta struct {
	Count int `json:"count"`
	Limit int `json:"limit,omitempty"`
}

// SuccessResponse acknowledges a mutation that has no natural payload.
type SuccessResponse struct {
	Success   string `json:"success"`
	Reference string `json:"reference,omitempty"`
}

// ErrorResponse is the standard envelope for error responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned by the API.
// Code is the HTTP status; Subcode identifies the condition within it.
type ErrorDetail struct {
	Code      int    `json:"code"`
	Subcode   int    `json:"subcode,omitempty"`
	Message   string `json:"message"`
	Reference string `json:"reference,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
