package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mmeshcher/smm-panel/internal/metrics"
	custommiddleware "github.com/mmeshcher/smm-panel/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware панели.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(metrics.Instrument)
	r.Use(custommiddleware.Gzip)

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/user", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Post("/orders", h.CreateOrder)
		r.Get("/orders", h.GetOrders)
		r.Post("/orders/{id}/cancel", h.CancelOrder)

		r.Get("/balance", h.GetBalance)
		r.Get("/referrals", h.GetReferrals)

		r.Post("/deposits", h.CreateDeposit)
		r.Post("/withdrawals", h.Withdraw)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Post("/deposits/{hash}/confirm", h.ConfirmDeposit)
		r.Post("/referrals", h.LinkReferral)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
