package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasiliy-maslov/ecommerce-microservices/checkout-service/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-microservices/checkout-service/internal/handler"
	"github.com/vasiliy-maslov/ecommerce-microservices/checkout-service/internal/order"
	"github.com/vasiliy-maslov/ecommerce-microservices/checkout-service/internal/product"
)

func NewRouter(dbPool *pgxpool.Pool) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})

	sessions := auth.NewStore(dbPool)
	orders := order.NewRepository(dbPool)
	products := product.NewRepository(dbPool)
	svc := order.NewService(orders, products)
	h := handler.NewOrderHandler(svc)

	r.Route("/orders", func(r chi.Router) {
		r.Use(auth.Middleware(sessions))
		h.RegisterRoutes(r)
	})

	return r
}
