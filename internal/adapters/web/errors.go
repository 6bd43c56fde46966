package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"backoffice-ledger/internal/core"
	"backoffice-ledger/internal/logging"
)

type errorResponse struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	RequestID string            `json:"request_id,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorResponse(w, status, errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeServiceError maps a domain error onto its HTTP status. Anything that is
// not a client error is logged and reported as a bare 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		logging.LogError(h.logger, "web", op, r.Method+" "+r.URL.Path, requestIDFromContext(r.Context()), err)
		writeError(w, r, "internal server error", code, status)
		return
	}
	resp := errorResponse{
		Error:     err.Error(),
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	var dup *core.DuplicateInvoiceError
	if errors.As(err, &dup) && dup.ExistingInvoiceID != "" {
		resp.Details = map[string]string{"existing_invoice_id": dup.ExistingInvoiceID}
	}
	writeErrorResponse(w, status, resp)
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, core.ErrInsufficientStock):
		return http.StatusBadRequest, "INSUFFICIENT_STOCK"
	case errors.Is(err, core.ErrOverpayment):
		return http.StatusBadRequest, "OVERPAYMENT"
	case errors.Is(err, core.ErrIllegalDelete):
		return http.StatusBadRequest, "ILLEGAL_DELETE"
	case errors.Is(err, core.ErrDuplicateInvoice):
		return http.StatusConflict, "DUPLICATE_INVOICE"
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
