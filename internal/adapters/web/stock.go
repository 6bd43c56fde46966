package web

import (
	"net/http"

	"backoffice-ledger/internal/app"

	"github.com/go-chi/chi/v5"
)

// ── Customers ─────────────────────────────────────────────────────────────────

// apiCreateCustomer handles POST /api/customers.
func (h *Handler) apiCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req app.CreateCustomerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.CreateCustomer(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, "apiCreateCustomer", err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, c)
}

// apiGetCustomer handles GET /api/customers/{id}.
func (h *Handler) apiGetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "apiGetCustomer", err)
		return
	}
	writeJSON(w, c)
}

// ── Products ──────────────────────────────────────────────────────────────────

// apiListProducts handles GET /api/products.
func (h *Handler) apiListProducts(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListProducts(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "apiListProducts", err)
		return
	}
	writeJSON(w, result)
}

// apiCreateProduct handles POST /api/products.
// A non-zero initial_stock is booked as an opening IN movement.
func (h *Handler) apiCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req app.CreateProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.CreateProduct(r.Context(), req, actor(r))
	if err != nil {
		h.writeServiceError(w, r, "apiCreateProduct", err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, p)
}

// apiGetProduct handles GET /api/products/{id}.
func (h *Handler) apiGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "apiGetProduct", err)
		return
	}
	writeJSON(w, p)
}

// apiLowStock handles GET /api/products/low-stock.
func (h *Handler) apiLowStock(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.LowStock(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "apiLowStock", err)
		return
	}
	writeJSON(w, result)
}

// apiVerifyStock handles GET /api/products/{id}/verify.
func (h *Handler) apiVerifyStock(w http.ResponseWriter, r *http.Request) {
	audit, err := h.svc.VerifyStock(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "apiVerifyStock", err)
		return
	}
	writeJSON(w, audit)
}

// ── Stock movements ───────────────────────────────────────────────────────────

// apiListMovements handles GET /api/stock-movements?product_id=&page=&limit=.
func (h *Handler) apiListMovements(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	result, err := h.svc.ListMovements(r.Context(), app.MovementQuery{
		ProductID: r.URL.Query().Get("product_id"),
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		h.writeServiceError(w, r, "apiListMovements", err)
		return
	}
	writeJSON(w, result)
}

// apiRecordMovement handles POST /api/stock-movements.
// Body: { product_id, type: IN|OUT|ADJUSTMENT, quantity, reason, reference? }
func (h *Handler) apiRecordMovement(w http.ResponseWriter, r *http.Request) {
	var req app.MovementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mv, err := h.svc.RecordMovement(r.Context(), req, actor(r))
	if err != nil {
		h.writeServiceError(w, r, "apiRecordMovement", err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, mv)
}
