package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type Handlers struct {
	Products  *ProductHandler
	Cart      *CartHandler
	Checkout  *CheckoutHandler
	Orders    *OrdersHandler
	Users     *UserHandler
	Assistant *AssistantHandler
}

// NewRouter mounts the API. Live order streams sit outside the request
// timeout and response compression.
func NewRouter(h Handlers, users IdentityResolver, log zerolog.Logger, requestTimeout time.Duration) chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(log))
	r.Use(AuthMiddleware(users, log))
	r.Use(AccessLogMiddleware(log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/orders/stream", h.Orders.StreamOrders)
		r.Get("/farmer/orders/stream", h.Orders.StreamFarmerOrders)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			r.Use(middleware.Compress(5))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", h.Products.List)
				r.Post("/", h.Products.Create)
				r.Get("/{product_id}", h.Products.Get)
				r.Put("/{product_id}", h.Products.Update)
				r.Delete("/{product_id}", h.Products.Delete)
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.Cart.GetCart)
				r.Delete("/", h.Cart.ClearCart)
				r.Post("/items", h.Cart.AddItem)
				r.Put("/items/{product_id}", h.Cart.UpdateQuantity)
				r.Delete("/items/{product_id}", h.Cart.RemoveItem)
			})

			r.Post("/checkout", h.Checkout.PlaceOrder)

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", h.Orders.ListOrders)
				r.Get("/{order_id}", h.Orders.GetOrder)
				r.Post("/{order_id}/items/{product_id}/rating", h.Orders.RateItem)
			})

			r.Route("/farmer", func(r chi.Router) {
				r.Get("/products", h.Products.ListMine)
				r.Get("/orders", h.Orders.ListFarmerOrders)
				r.Patch("/orders/{order_id}/status", h.Orders.UpdateStatus)
			})

			r.Route("/users", func(r chi.Router) {
				r.Post("/register", h.Users.Register)
				r.Get("/me", h.Users.Me)
				r.Put("/me", h.Users.UpdateMe)
			})

			r.Get("/admin/users", h.Users.ListUsers)

			r.Route("/assistant", func(r chi.Router) {
				r.Post("/chat", h.Assistant.Chat)
				r.Post("/suggest-reply", h.Assistant.SuggestReply)
			})
		})
	})

	return r
}
