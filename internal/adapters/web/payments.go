package web

import (
	"net/http"

	"backoffice-ledger/internal/app"

	"github.com/go-chi/chi/v5"
)

// apiCreatePayment handles POST /api/payments.
// Body: { order_id, amount, method, reference? }. The payment starts PENDING.
func (h *Handler) apiCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req app.CreatePaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.CreatePayment(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, "apiCreatePayment", err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, p)
}

// apiGetPayment handles GET /api/payments/{id}.
func (h *Handler) apiGetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "apiGetPayment", err)
		return
	}
	writeJSON(w, p)
}

// apiUpdatePayment handles PATCH /api/payments/{id}.
func (h *Handler) apiUpdatePayment(w http.ResponseWriter, r *http.Request) {
	var req app.UpdatePaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.UpdatePayment(r.Context(), chi.URLParam(r, "id"), req, actor(r))
	if err != nil {
		h.writeServiceError(w, r, "apiUpdatePayment", err)
		return
	}
	writeJSON(w, p)
}

// apiUpdatePaymentStatus handles PUT /api/payments/{id}/status.
func (h *Handler) apiUpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if !decodeJSON(w, r, &body) {
		return
	}
	p, err := h.svc.UpdatePaymentStatus(r.Context(), chi.URLParam(r, "id"), body.Status, actor(r))
	if err != nil {
		h.writeServiceError(w, r, "apiUpdatePaymentStatus", err)
		return
	}
	writeJSON(w, p)
}

// apiDeletePayment handles DELETE /api/payments/{id}. Completed payments cannot be deleted.
func (h *Handler) apiDeletePayment(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeletePayment(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, "apiDeletePayment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
