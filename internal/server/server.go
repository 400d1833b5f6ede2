// Package server wires the HTTP transport: routing, auth, logging and
// metrics middleware, and the JSON handlers over the service layer.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/subsplit/subsplit/internal/auth"
	"github.com/subsplit/subsplit/internal/middleware"
	"github.com/subsplit/subsplit/internal/service"
)

// Server holds the handlers' dependencies.
type Server struct {
	subscriptions *service.SubscriptionService
	settlements   *service.SettlementService
	authSvc       *service.AuthService
	jwtManager    *auth.JWTManager
	validate      *validator.Validate
	inviteTTL     int // default invite lifetime in hours
}

// New creates a Server.
func New(subscriptions *service.SubscriptionService, settlements *service.SettlementService, authSvc *service.AuthService, jwtManager *auth.JWTManager, inviteTTLHours int) *Server {
	return &Server{
		subscriptions: subscriptions,
		settlements:   settlements,
		authSvc:       authSvc,
		jwtManager:    jwtManager,
		validate:      validator.New(),
		inviteTTL:     inviteTTLHours,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))
	r.Use(middleware.Metrics)
	r.Use(middleware.Logging)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.jwtManager))

			r.Get("/subscriptions", s.handleListSubscriptions)
			r.Post("/subscriptions", s.handleCreateSubscription)
			r.Get("/subscriptions/{subscriptionID}", s.handleGetSubscription)
			r.Delete("/subscriptions/{subscriptionID}", s.handleDeleteSubscription)

			r.Post("/subscriptions/{subscriptionID}/contributors", s.handleAddContributor)
			r.Delete("/subscriptions/{subscriptionID}/contributors/{contributorID}", s.handleRemoveContributor)

			r.Post("/subscriptions/{subscriptionID}/split/preview", s.handlePreviewSplit)
			r.Put("/subscriptions/{subscriptionID}/split", s.handleSaveSplit)

			r.Post("/subscriptions/{subscriptionID}/invites", s.handleIssueInvite)
			r.Post("/invites/{token}/accept", s.handleAcceptInvite)

			r.Post("/contributors/{contributorID}/submit", s.handleSubmit)
			r.Post("/contributors/{contributorID}/approve", s.handleApprove)
			r.Post("/contributors/{contributorID}/reject", s.handleReject)
			r.Post("/contributors/{contributorID}/self-settle", s.handleSelfSettle)
			r.Post("/contributors/{contributorID}/remind", s.handleRemind)
		})
	})

	return r
}
