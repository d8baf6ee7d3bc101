package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/receipt"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/sales"
)

func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	rng, err := h.parseRange(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list, err := h.sales.ListForOwner(r.Context(), OwnerID(r.Context()), rng)
	if err != nil {
		h.writeError(w, r, failed("could not load sales", err))
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) SalesHistory(w http.ResponseWriter, r *http.Request) {
	all, err := h.sales.ListForOwner(r.Context(), OwnerID(r.Context()), sales.DateRange{})
	if err != nil {
		h.writeError(w, r, failed("could not load sales history", err))
		return
	}
	writeJSON(w, http.StatusOK, sales.Summarize(all, r.URL.Query().Get("day"), h.now(), h.location))
}

func (h *Handler) ExportSales(w http.ResponseWriter, r *http.Request) {
	rng := sales.DateRange{}
	label := "all"
	if day := r.URL.Query().Get("day"); day != "" {
		start, err := sales.ParseDay(day, h.location)
		if err != nil {
			h.writeError(w, r, errBadRequest)
			return
		}
		rng = sales.DayRange(start)
		label = day
	}

	list, err := h.sales.ListForOwner(r.Context(), OwnerID(r.Context()), rng)
	if err != nil {
		h.writeError(w, r, failed("could not load sales", err))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="sales-%s.xlsx"`, label))
	if err := sales.WriteXLSX(w, list, h.location); err != nil {
		h.logger.Error("export sales failed", zap.Error(err))
	}
}

// ClearSales erases the owner's history. The caller must pass confirm=true.
func (h *Handler) ClearSales(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:         "clearing the sales history requires confirm=true",
			CorrelationID: GetCorrelationID(r.Context()),
		})
		return
	}

	owner := OwnerID(r.Context())
	removed, err := h.sales.ClearForOwner(r.Context(), owner)
	if err != nil {
		h.writeError(w, r, failed("could not clear sales history", err))
		return
	}
	if h.notifier != nil {
		h.notifier.HistoryCleared(r.Context(), GetCorrelationID(r.Context()), owner, removed)
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

func (h *Handler) Receipt(w http.ResponseWriter, r *http.Request) {
	s, err := h.sales.Get(r.Context(), OwnerID(r.Context()), chi.URLParam(r, "saleId"))
	if err != nil {
		h.writeError(w, r, failed("could not load sale", err))
		return
	}
	ticket := receipt.Build(s, receipt.Options{StoreName: h.storeName, Location: h.location})

	switch r.URL.Query().Get("format") {
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		err = receipt.RenderText(w, ticket)
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err = receipt.RenderHTML(w, ticket, receipt.HTMLOptions{AutoPrint: r.URL.Query().Get("print") == "1"})
	default:
		writeJSON(w, http.StatusOK, ticket)
		return
	}
	if err != nil {
		h.logger.Error("render receipt failed", zap.Error(err))
	}
}

// parseRange reads from/to as RFC 3339 timestamps or YYYY-MM-DD days. A day
// given as "to" is inclusive.
func (h *Handler) parseRange(r *http.Request) (sales.DateRange, error) {
	var rng sales.DateRange
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := h.parseBound(v, false)
		if err != nil {
			return rng, err
		}
		rng.From = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := h.parseBound(v, true)
		if err != nil {
			return rng, err
		}
		rng.To = t
	}
	return rng, nil
}

func (h *Handler) parseBound(v string, end bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	day, err := sales.ParseDay(v, h.location)
	if err != nil {
		return time.Time{}, errBadRequest
	}
	if end {
		return sales.DayRange(day).To, nil
	}
	return day, nil
}
