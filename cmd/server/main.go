package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/subsplit/subsplit/internal/auth"
	"github.com/subsplit/subsplit/internal/config"
	"github.com/subsplit/subsplit/internal/invite"
	"github.com/subsplit/subsplit/internal/notify"
	"github.com/subsplit/subsplit/internal/server"
	"github.com/subsplit/subsplit/internal/service"
	"github.com/subsplit/subsplit/internal/storage/sqlite"
	"github.com/subsplit/subsplit/pkg/logging"
)

func main() {
	logging.Setup()

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration)
	authenticator := auth.NewPasswordAuthenticator(store)

	subscriptions := service.NewSubscriptionService(store, invite.NewTokenIssuer(store), cfg.Tolerances)
	settlements := service.NewSettlementService(store, notify.LogDispatcher{})
	authSvc := service.NewAuthService(authenticator, jwtManager)

	srv := server.New(subscriptions, settlements, authSvc, jwtManager, int(cfg.InviteTTL.Hours()))

	slog.Info("Server starting", "address", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, srv.Router()); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
