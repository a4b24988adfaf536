package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	Router *chi.Mux
}

type RateLimit struct {
	Enabled bool
	RPS     float64
	Burst   int
}

func NewServer(handler *Handler, rl RateLimit) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(handler.Log))
	r.Use(cors)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Processor and trigger deliveries are retried upstream and never rate limited.
	r.Post("/webhooks/stripe", handler.StripeWebhook)
	r.Post("/payments/{paymentId}/changes", handler.PaymentChanged)
	r.Patch("/orders/{orderId}/status", handler.UpdateOrderStatus)

	r.Group(func(r chi.Router) {
		if rl.Enabled {
			r.Use(newRateLimiter(rl.RPS, rl.Burst).middleware)
		}
		r.Get("/products", handler.ListProducts)
		r.Get("/products/{productId}", handler.GetProduct)
		r.Post("/checkout", handler.CreateCheckout)
		r.Post("/billing-portal", handler.BillingPortal)
		r.Get("/orders", handler.ListOrders)
		r.Get("/orders/live", handler.LiveOrders)
		r.Get("/orders/{orderId}", handler.GetOrder)
	})

	return &Server{Router: r}
}
