package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"backoffice-ledger/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Options configures the HTTP handler.
type Options struct {
	AllowedOrigins []string
	JWTSecret      string
	Logger         *logrus.Logger
}

// Handler holds the ApplicationService and the settings its middleware needs.
type Handler struct {
	svc       app.ApplicationService
	jwtSecret string
	logger    *logrus.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}
	h := &Handler{svc: svc, jwtSecret: opts.JWTSecret, logger: logger}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recoverer(logger))
	r.Use(CORS(opts.AllowedOrigins))

	r.Route("/api", func(r chi.Router) {
		// ── Health (public) ───────────────────────────────────────────────────
		r.Get("/health", h.health)

		// ── Protected routes (return 401 JSON if unauthenticated) ────────────
		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)
			r.Use(RequestBodyLimit(1 << 20)) // 1 MB

			r.Route("/customers", func(r chi.Router) {
				r.Post("/", h.apiCreateCustomer)
				r.Get("/{id}", h.apiGetCustomer)
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", h.apiListProducts)
				r.Post("/", h.apiCreateProduct)
				r.Get("/low-stock", h.apiLowStock)
				r.Get("/{id}", h.apiGetProduct)
				r.Get("/{id}/verify", h.apiVerifyStock)
			})

			r.Route("/stock-movements", func(r chi.Router) {
				r.Get("/", h.apiListMovements)
				r.Post("/", h.apiRecordMovement)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", h.apiListOrders)
				r.Post("/", h.apiCreateOrder)
				r.Get("/{id}", h.apiGetOrder)
				r.Patch("/{id}", h.apiUpdateOrder)
				r.Delete("/{id}", h.apiDeleteOrder)
				r.Put("/{id}/status", h.apiUpdateOrderStatus)
				r.Post("/{id}/items", h.apiAddOrderItem)
				r.Delete("/{id}/items/{itemID}", h.apiRemoveOrderItem)
				r.Get("/{id}/payments", h.apiListOrderPayments)
				r.Get("/{id}/payment-summary", h.apiPaymentSummary)
				r.Post("/{id}/invoice", h.apiInvoiceOrder)
			})

			r.Route("/payments", func(r chi.Router) {
				r.Post("/", h.apiCreatePayment)
				r.Get("/{id}", h.apiGetPayment)
				r.Patch("/{id}", h.apiUpdatePayment)
				r.Put("/{id}/status", h.apiUpdatePaymentStatus)
				r.Delete("/{id}", h.apiDeletePayment)
			})

			r.Route("/invoices", func(r chi.Router) {
				r.Get("/", h.apiListInvoices)
				r.Post("/", h.apiCreateInvoice)
				r.Get("/{id}", h.apiGetInvoice)
				r.Patch("/{id}", h.apiUpdateInvoice)
				r.Put("/{id}/status", h.apiUpdateInvoiceStatus)
				r.Delete("/{id}", h.apiDeleteInvoice)
			})

			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", h.apiListTransactions)
				r.Post("/", h.apiRecordTransaction)
				r.Get("/summary", h.apiTransactionSummary)
				r.Get("/summary/export", h.apiExportSummary)
			})
		})
	})

	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// pageParams reads ?page= and ?limit=. Unparseable values fall back to zero,
// which the core treats as the default.
func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	return page, limit
}
