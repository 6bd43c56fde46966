package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"backoffice-ledger/internal/app"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// apiListTransactions handles GET /api/transactions?type=&category=&from=&to=&page=&limit=.
// from and to are inclusive YYYY-MM-DD dates.
func (h *Handler) apiListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit := pageParams(r)
	result, err := h.svc.ListTransactions(r.Context(), app.TransactionQuery{
		Type:     q.Get("type"),
		Category: q.Get("category"),
		From:     q.Get("from"),
		To:       q.Get("to"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		h.writeServiceError(w, r, "apiListTransactions", err)
		return
	}
	writeJSON(w, result)
}

// apiRecordTransaction handles POST /api/transactions.
// Body: { type: INCOME|EXPENSE, category, amount, description?, date?, invoice_id?, order_id? }
func (h *Handler) apiRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req app.TransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	txn, err := h.svc.RecordTransaction(r.Context(), req, actor(r))
	if err != nil {
		h.writeServiceError(w, r, "apiRecordTransaction", err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, txn)
}

// apiTransactionSummary handles GET /api/transactions/summary?from=&to=.
func (h *Handler) apiTransactionSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.TransactionSummary(r.Context(), summaryQuery(r))
	if err != nil {
		h.writeServiceError(w, r, "apiTransactionSummary", err)
		return
	}
	writeJSON(w, summary)
}

// apiExportSummary handles GET /api/transactions/summary/export?from=&to= and
// streams the summary as an .xlsx attachment.
func (h *Handler) apiExportSummary(w http.ResponseWriter, r *http.Request) {
	// The workbook is rendered into memory first so a failure can still be
	// reported as a JSON error instead of a truncated download.
	var buf bytes.Buffer
	if err := h.svc.ExportTransactionSummary(r.Context(), summaryQuery(r), &buf); err != nil {
		h.writeServiceError(w, r, "apiExportSummary", err)
		return
	}

	filename := fmt.Sprintf("transaction-summary-%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func summaryQuery(r *http.Request) app.SummaryQuery {
	return app.SummaryQuery{
		From: r.URL.Query().Get("from"),
		To:   r.URL.Query().Get("to"),
	}
}
