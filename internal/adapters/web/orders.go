package web

import (
	"net/http"

	"backoffice-ledger/internal/app"

	"github.com/go-chi/chi/v5"
)

// statusBody is the body of every PUT .../status endpoint.
type statusBody struct {
	Status string `json:"status"`
}

// ── Orders ────────────────────────────────────────────────────────────────────

// apiListOrders handles GET /api/orders?status=&customer_id=&page=&limit=.
func (h *Handler) apiListOrders(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	result, err := h.svc.ListOrders(r.Context(), app.OrderQuery{
		Status:     r.URL.Query().Get("status"),
		CustomerID: r.URL.Query().Get("customer_id"),
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		h.writeServiceError(w, r, "apiListOrders", err)
		return
	}
	writeJSON(w, result)
}

// apiGetOrder handles GET /api/orders/{id}.
func (h *Handler) apiGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "apiGetOrder", err)
		return
	}
	writeJSON(w, order)
}

// apiCreateOrder handles POST /api/orders.
// Body: { customer_id, items: [{product_id, quantity}], discount?, notes? }
func (h *Handler) apiCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req app.CreateOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := h.svc.CreateOrder(r.Context(), req, actor(r))
	if err != nil {
		h.writeServiceError(w, r, "apiCreateOrder", err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, order)
}

// apiUpdateOrder handles PATCH /api/orders/{id}.
func (h *Handler) apiUpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req app.UpdateOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := h.svc.UpdateOrder(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, "apiUpdateOrder", err)
		return
	}
	writeJSON(w, order)
}

// apiUpdateOrderStatus handles PUT /api/orders/{id}/status.
func (h *Handler) apiUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if !decodeJSON(w, r, &body) {
		return
	}
	order, err := h.svc.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), body.Status)
	if err != nil {
		h.writeServiceError(w, r, "apiUpdateOrderStatus", err)
		return
	}
	writeJSON(w, order)
}

// apiDeleteOrder handles DELETE /api/orders/{id}. Stock for every line is returned.
func (h *Handler) apiDeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteOrder(r.Context(), chi.URLParam(r, "id"), actor(r)); err != nil {
		h.writeServiceError(w, r, "apiDeleteOrder", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apiAddOrderItem handles POST /api/orders/{id}/items.
func (h *Handler) apiAddOrderItem(w http.ResponseWriter, r *http.Request) {
	var req app.OrderItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := h.svc.AddOrderItem(r.Context(), chi.URLParam(r, "id"), req, actor(r))
	if err != nil {
		h.writeServiceError(w, r, "apiAddOrderItem", err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, order)
}

// apiRemoveOrderItem handles DELETE /api/orders/{id}/items/{itemID}.
func (h *Handler) apiRemoveOrderItem(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.RemoveOrderItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemID"), actor(r))
	if err != nil {
		h.writeServiceError(w, r, "apiRemoveOrderItem", err)
		return
	}
	writeJSON(w, order)
}

// apiListOrderPayments handles GET /api/orders/{id}/payments.
func (h *Handler) apiListOrderPayments(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListOrderPayments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "apiListOrderPayments", err)
		return
	}
	writeJSON(w, result)
}

// apiPaymentSummary handles GET /api/orders/{id}/payment-summary.
func (h *Handler) apiPaymentSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.GetPaymentSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "apiPaymentSummary", err)
		return
	}
	writeJSON(w, summary)
}

// apiInvoiceOrder handles POST /api/orders/{id}/invoice.
// Returns 409 with the existing invoice id when the order is already invoiced.
func (h *Handler) apiInvoiceOrder(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.CreateInvoiceFromOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "apiInvoiceOrder", err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, inv)
}
