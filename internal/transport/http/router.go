// Package http exposes the token hub operations over JSON/HTTP.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const maxRequestBytes = 1 << 20

// Services groups the handlers' dependencies. Nil entries leave their
// routes unregistered.
type Services struct {
	Settlement Settler
	Refunds    RefundRequester
	Lookups    BatchLooker
	Tokens     TokenQuerier
	TOTP       TOTPGenerator
	Sweep      SweepTrigger
	DB         Pinger
}

// NewRouter wires every route behind request id, panic recovery, logging,
// CORS and a body size cap.
func NewRouter(svc Services, corsOrigins []string, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(CORS(corsOrigins))
	r.Use(LimitBody(maxRequestBytes))

	r.NotFound(NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(MethodNotAllowedHandler().ServeHTTP)

	r.Get("/health", HealthHandler(svc.DB))

	if svc.Settlement != nil {
		r.Post("/settle", HandleSettle(svc.Settlement, logger))
	}
	if svc.Refunds != nil {
		r.Post("/refunds", HandleRefund(svc.Refunds, logger))
	}
	if svc.Lookups != nil {
		r.Post("/lookups", HandleLookup(svc.Lookups, logger))
	}
	if svc.Tokens != nil {
		r.Get("/tokens/{token}", HandleBalance(svc.Tokens, logger))
		r.Get("/tokens/{token}/transactions", HandleHistory(svc.Tokens, logger))
		r.Get("/transactions/{id}", HandleTransaction(svc.Tokens, logger))
	}
	if svc.TOTP != nil {
		r.Post("/totp", HandleTOTP(svc.TOTP, logger))
	}
	if svc.Sweep != nil {
		r.Post("/admin/sweep", HandleSweep(svc.Sweep, logger))
	}
	return r
}
