package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/checkout"
)

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*checkout.Session, bool) {
	s, err := h.sessions.Get(OwnerID(r.Context()), chi.URLParam(r, "sessionId"))
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return s, true
}

// respond writes the session view, or the error when the action failed.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, s *checkout.Session, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (h *Handler) OpenCheckout(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Open(OwnerID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.View())
}

func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.session(w, r); ok {
		writeJSON(w, http.StatusOK, s.View())
	}
}

func (h *Handler) CloseCheckout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(OwnerID(r.Context()), chi.URLParam(r, "sessionId")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addItemRequest struct {
	ProductID string `json:"productId"`
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.catalog.GetProduct(r.Context(), s.OwnerID(), req.ProductID)
	if err != nil {
		h.writeError(w, r, failed("could not load product", err))
		return
	}
	h.respond(w, r, s, s.AddToCart(p))
}

type quantityRequest struct {
	Quantity json.RawMessage `json:"quantity"`
}

func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req quantityRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, s, s.SetQuantityInput(chi.URLParam(r, "productId"), rawInput(req.Quantity)))
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.session(w, r); ok {
		h.respond(w, r, s, s.RemoveLine(chi.URLParam(r, "productId")))
	}
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.session(w, r); ok {
		h.respond(w, r, s, s.ClearCart())
	}
}

type discountRequest struct {
	Discount json.RawMessage `json:"discount"`
}

func (h *Handler) SetDiscount(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req discountRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, s, s.SetDiscount(rawInput(req.Discount)))
}

func (h *Handler) BeginCheckout(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.session(w, r); ok {
		h.respond(w, r, s, s.Begin())
	}
}

type confirmResponse struct {
	Reference string        `json:"reference"`
	View      checkout.View `json:"view"`
}

func (h *Handler) ConfirmCheckout(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	ref, err := s.Confirm(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, confirmResponse{Reference: ref, View: s.View()})
}

func (h *Handler) CancelCheckout(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.session(w, r); ok {
		h.respond(w, r, s, s.Cancel())
	}
}

func (h *Handler) FinishCheckout(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.session(w, r); ok {
		h.respond(w, r, s, s.Finish())
	}
}

// PaymentQR renders the pending payment reference as a PNG QR code.
func (h *Handler) PaymentQR(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	ref := s.View().Reference
	if ref == "" {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no payment reference", CorrelationID: GetCorrelationID(r.Context())})
		return
	}
	png, err := qrcode.Encode(ref, qrcode.Medium, 256)
	if err != nil {
		h.writeError(w, r, failed("could not render payment code", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
