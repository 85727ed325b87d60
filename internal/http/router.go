package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Handlers struct {
	Products     *ProductHandler
	Cart         *CartHandler
	Checkout     *CheckoutHandler
	Orders       *OrdersHandler
	Appointments *AppointmentsHandler
	Auth         *AuthHandler
}

type RouterConfig struct {
	RequestTimeout time.Duration
	SessionTTL     time.Duration
	SecureCookies  bool
}

func NewRouter(h Handlers, cfg RouterConfig, log logrus.FieldLogger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionMiddleware(cfg.SessionTTL, cfg.SecureCookies))
		r.Use(TokenMiddleware)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Products.ListProducts)
			r.Get("/{id}", h.Products.GetProduct)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.GetCart)
			r.Delete("/", h.Cart.ClearCart)
			r.Post("/items", h.Cart.AddItem)
			r.Put("/items/{product_id}", h.Cart.UpdateQuantity)
			r.Delete("/items/{product_id}", h.Cart.RemoveItem)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Auth.Login)
			r.Post("/register", h.Auth.Register)
			r.With(RequireToken).Get("/me", h.Auth.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireToken)

			r.Get("/checkout", h.Checkout.Summary)
			r.Post("/checkout", h.Checkout.PlaceOrder)

			r.Get("/orders", h.Orders.ListOrders)
			r.Get("/orders/{id}", h.Orders.GetOrder)

			r.Get("/appointments", h.Appointments.ListAppointments)
			r.Post("/appointments", h.Appointments.BookAppointment)
			r.Put("/appointments/{id}/cancel", h.Appointments.CancelAppointment)
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
