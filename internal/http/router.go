package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/auth"
)

type RouterOptions struct {
	AllowOrigins []string
	// Verifier enables bearer token auth; nil falls back to X-User-Id.
	Verifier *auth.TokenVerifier
	Logger   *zap.Logger
}

func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := opts.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CorrelationID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(logger))
	r.Use(CORS(origins))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireOwner(opts.Verifier))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Get("/{productId}", h.GetProduct)
			r.Delete("/{productId}", h.DeleteProduct)
			r.Put("/{productId}/price", h.UpdatePrice)
			r.Put("/{productId}/category", h.SetProductCategory)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.ListCategories)
			r.Post("/", h.CreateCategory)
			r.Put("/{name}", h.RenameCategory)
			r.Delete("/{name}", h.DeleteCategory)
		})

		r.Route("/checkouts", func(r chi.Router) {
			r.Post("/", h.OpenCheckout)
			r.Route("/{sessionId}", func(r chi.Router) {
				r.Get("/", h.GetCheckout)
				r.Delete("/", h.CloseCheckout)
				r.Post("/items", h.AddItem)
				r.Delete("/items", h.ClearCart)
				r.Put("/items/{productId}", h.SetQuantity)
				r.Delete("/items/{productId}", h.RemoveItem)
				r.Put("/discount", h.SetDiscount)
				r.Post("/begin", h.BeginCheckout)
				r.Post("/confirm", h.ConfirmCheckout)
				r.Post("/cancel", h.CancelCheckout)
				r.Post("/finish", h.FinishCheckout)
				r.Get("/qr", h.PaymentQR)
				r.Get("/events", h.StreamCheckout)
			})
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", h.ListSales)
			r.Delete("/", h.ClearSales)
			r.Get("/history", h.SalesHistory)
			r.Get("/export.xlsx", h.ExportSales)
			r.Get("/{saleId}/receipt", h.Receipt)
		})
	})

	return r
}
