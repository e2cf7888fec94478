/**
 * @description
 * This file sets up the HTTP router for the ledger-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware for the browser clients.
 */

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// LedgerRoutes creates and returns a new router for the ledger service.
func LedgerRoutes(h *LedgerHandlers, jwtSecret string, allowedOrigins string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   splitOrigins(allowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Route("/api", func(r chi.Router) {
		// Group routes that require authentication.
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(jwtSecret))

			r.Get("/gold/price", h.GetPriceHandler)
			r.Get("/gold/history", h.PriceHistoryHandler)

			r.Post("/buy/create-order", h.CreateBuyOrderHandler)
			r.Post("/buy/verify-payment", h.VerifyPaymentHandler)

			r.Get("/portfolio", h.PortfolioHandler)
			r.Post("/sell/request", h.RequestWithdrawalHandler)
			r.Get("/transactions/my", h.TransactionHistoryHandler)

			r.Get("/profile/me", h.GetProfileHandler)
			r.Put("/profile/update", h.UpdateProfileHandler)

			// Admin endpoints layer an additional role check on top of auth.
			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)

				r.Post("/admin/price", h.SetPriceHandler)
				r.Get("/admin/withdrawals/pending", h.ListWithdrawalsHandler)
				r.Post("/admin/withdrawals/{id}/approve", h.ApproveWithdrawalHandler)
				r.Post("/admin/withdrawals/{id}/complete", h.CompletePayoutHandler)
				r.Post("/admin/withdrawals/{id}/reject", h.RejectWithdrawalHandler)
				r.Get("/admin/transactions", h.ListAllTransactionsHandler)
				r.Get("/admin/transactions/{id}/audit", h.AuditTrailHandler)
				r.Get("/admin/users-portfolio", h.UsersPortfolioHandler)
			})
		})
	})

	return r
}

func splitOrigins(allowedOrigins string) []string {
	trimmed := strings.TrimSpace(allowedOrigins)
	if trimmed == "" || trimmed == "*" {
		return []string{"https://*", "http://*"}
	}
	parts := strings.Split(trimmed, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if origin := strings.TrimSpace(part); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
