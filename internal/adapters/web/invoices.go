package web

import (
	"net/http"

	"backoffice-ledger/internal/app"

	"github.com/go-chi/chi/v5"
)

// apiListInvoices handles GET /api/invoices?status=&type=&customer_id=&page=&limit=.
func (h *Handler) apiListInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit := pageParams(r)
	result, err := h.svc.ListInvoices(r.Context(), app.InvoiceQuery{
		Status:     q.Get("status"),
		Type:       q.Get("type"),
		CustomerID: q.Get("customer_id"),
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		h.writeServiceError(w, r, "apiListInvoices", err)
		return
	}
	writeJSON(w, result)
}

// apiCreateInvoice handles POST /api/invoices.
func (h *Handler) apiCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req app.CreateInvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inv, err := h.svc.CreateInvoice(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, "apiCreateInvoice", err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, inv)
}

// apiGetInvoice handles GET /api/invoices/{id}.
func (h *Handler) apiGetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "apiGetInvoice", err)
		return
	}
	writeJSON(w, inv)
}

// apiUpdateInvoice handles PATCH /api/invoices/{id}.
func (h *Handler) apiUpdateInvoice(w http.ResponseWriter, r *http.Request) {
	var req app.UpdateInvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inv, err := h.svc.UpdateInvoice(r.Context(), chi.URLParam(r, "id"), req, actor(r))
	if err != nil {
		h.writeServiceError(w, r, "apiUpdateInvoice", err)
		return
	}
	writeJSON(w, inv)
}

func (h *Handler) apiUpdateInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if !decodeJSON(w, r, &body) {
		return
	}
	inv, err := h.svc.UpdateInvoiceStatus(r.Context(), chi.URLParam(r, "id"), body.Status, actor(r))
	if err != nil {
		h.writeServiceError(w, r, "apiUpdateInvoiceStatus", err)
		return
	}
	writeJSON(w, inv)
}

func (h *Handler) apiDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteInvoice(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, "apiDeleteInvoice", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
