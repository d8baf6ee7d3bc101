package httpapi

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/catalog"
)

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := catalog.Query{
		Category: r.URL.Query().Get("category"),
		Sort:     catalog.SortOrder(r.URL.Query().Get("sort")),
	}
	products, err := h.catalog.ListProducts(r.Context(), OwnerID(r.Context()), q)
	if err != nil {
		h.writeError(w, r, failed("could not load products", err))
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetProduct(r.Context(), OwnerID(r.Context()), chi.URLParam(r, "productId"))
	if err != nil {
		h.writeError(w, r, failed("could not load product", err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type createProductRequest struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Image    string          `json:"image"`
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.catalog.AddProduct(r.Context(), OwnerID(r.Context()), catalog.NewProduct{
		Name:     req.Name,
		Price:    req.Price,
		Category: req.Category,
		Image:    req.Image,
	})
	if err != nil {
		h.writeError(w, r, failed("could not save product", err))
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

type priceRequest struct {
	Price decimal.Decimal `json:"price"`
}

func (h *Handler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.catalog.UpdatePrice(r.Context(), OwnerID(r.Context()), chi.URLParam(r, "productId"), req.Price)
	if err != nil {
		h.writeError(w, r, failed("could not update product price", err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type categoryRequest struct {
	Category string `json:"category"`
}

func (h *Handler) SetProductCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.catalog.SetProductCategory(r.Context(), OwnerID(r.Context()), chi.URLParam(r, "productId"), req.Category)
	if err != nil {
		h.writeError(w, r, failed("could not update product category", err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteProduct(r.Context(), OwnerID(r.Context()), chi.URLParam(r, "productId")); err != nil {
		h.writeError(w, r, failed("could not delete product", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.ListCategories(r.Context(), OwnerID(r.Context()))
	if err != nil {
		h.writeError(w, r, failed("could not load categories", err))
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

type nameRequest struct {
	Name string `json:"name"`
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	name, err := h.catalog.AddCategory(r.Context(), OwnerID(r.Context()), req.Name)
	if err != nil {
		h.writeError(w, r, failed("could not save category", err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": name})
}

func (h *Handler) RenameCategory(w http.ResponseWriter, r *http.Request) {
	from, err := categoryParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req nameRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.catalog.RenameCategory(r.Context(), OwnerID(r.Context()), from, req.Name); err != nil {
		h.writeError(w, r, failed("could not rename category", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": strings.TrimSpace(req.Name)})
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	name, err := categoryParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.catalog.DeleteCategory(r.Context(), OwnerID(r.Context()), name); err != nil {
		h.writeError(w, r, failed("could not delete category", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func categoryParam(r *http.Request) (string, error) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		return "", errBadRequest
	}
	return name, nil
}
