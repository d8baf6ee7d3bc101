package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/money"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/sales"
)

// HistoryNotifier is told when an owner erases their sales history.
type HistoryNotifier interface {
	HistoryCleared(ctx context.Context, correlationID, ownerID string, removed int64)
}

type Handler struct {
	catalog   *catalog.Service
	sessions  *checkout.Registry
	sales     sales.Repository
	notifier  HistoryNotifier
	logger    *zap.Logger
	storeName string
	location  *time.Location
	now       func() time.Time
}

type HandlerDeps struct {
	Catalog   *catalog.Service
	Sessions  *checkout.Registry
	Sales     sales.Repository
	Notifier  HistoryNotifier
	Logger    *zap.Logger
	StoreName string
	Location  *time.Location
}

func NewHandler(deps HandlerDeps) *Handler {
	h := &Handler{
		catalog:   deps.Catalog,
		sessions:  deps.Sessions,
		sales:     deps.Sales,
		notifier:  deps.Notifier,
		logger:    deps.Logger,
		storeName: deps.StoreName,
		location:  deps.Location,
		now:       time.Now,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.location == nil {
		h.location = time.Local
	}
	return h
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type errorResponse struct {
	Error         string `json:"error"`
	Reason        string `json:"reason,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error(), CorrelationID: GetCorrelationID(r.Context())}
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		resp.Reason = string(checkout.BlockEmptyCart)
	case errors.Is(err, checkout.ErrInvalidTotal):
		resp.Reason = string(checkout.BlockInvalidTotal)
	case errors.Is(err, checkout.ErrTooManyUnits):
		resp.Reason = string(checkout.BlockTooManyUnits)
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("correlation_id", resp.CorrelationID),
			zap.Error(err),
		)
		resp.Error = "internal error"
		var f *failure
		if errors.As(err, &f) {
			resp.Error = f.msg
		}
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, sales.ErrNotFound),
		errors.Is(err, checkout.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, checkout.ErrOwnerRequired),
		errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, checkout.ErrPaymentInProgress),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInvalidTotal),
		errors.Is(err, checkout.ErrTooManyUnits),
		errors.Is(err, checkout.ErrSessionClosed),
		errors.Is(err, catalog.ErrCategoryExists),
		errors.Is(err, catalog.ErrReservedCategory):
		return http.StatusConflict
	case errors.Is(err, catalog.ErrInvalidProduct),
		errors.Is(err, catalog.ErrInvalidCategory),
		errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, sales.ErrInvalidSale),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

// failure names the operation that failed. Its message is safe to show to
// the user when the cause is an internal error.
type failure struct {
	msg string
	err error
}

func failed(msg string, err error) error {
	return &failure{msg: msg, err: err}
}

func (f *failure) Error() string { return f.msg + ": " + f.err.Error() }

func (f *failure) Unwrap() error { return f.err }

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadRequest
	}
	return nil
}

// rawInput returns user input sent either as a JSON string or a bare number.
func rawInput(msg json.RawMessage) string {
	msg = bytes.TrimSpace(msg)
	if len(msg) == 0 || bytes.Equal(msg, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return s
	}
	return string(msg)
}
