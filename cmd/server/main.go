// Package main is the entry point for the agora API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/clock"

	"agora/internal/config"
	"agora/internal/core/security"
	"agora/internal/domain/lifecycle"
	v1 "agora/internal/infrastructure/http/v1"
	"agora/internal/infrastructure/storage/postgres"
	"agora/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.Env == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting agora server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN)
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Role policy ---
	var roles security.RolePolicy = security.StaffPolicy{}
	if expr := cfg.Auth.RoleExpression; expr != "" {
		policy, err := security.NewExpressionPolicy(expr)
		if err != nil {
			log.Fatalw("invalid role expression", "error", err)
		}
		roles = policy
		log.Infow("using expression role policy", "expression", expr)
	}

	// --- Lifecycle orchestrator ---
	lifecycleCfg, err := cfg.LifecycleSettings()
	if err != nil {
		log.Fatalw("invalid lifecycle configuration", "error", err)
	}

	auditRepo, err := postgres.NewAuditRepo(txManager)
	if err != nil {
		log.Fatalw("failed to create audit repository", "error", err)
	}

	destroyer := lifecycle.NewDestroyer(lifecycleCfg, lifecycle.Deps{
		Posts:         postgres.NewPostRepo(txManager),
		Topics:        postgres.NewTopicRepo(txManager),
		Users:         postgres.NewUserRepo(txManager),
		Actions:       postgres.NewModerationRepo(txManager),
		Notifications: postgres.NewNotificationRepo(txManager),
		Activity:      postgres.NewActivityRepo(txManager),
		Audit:         auditRepo,
		Queue:         postgres.NewOutboxQueue(txManager),
		Tx:            txManager,
		Roles:         roles,
		Clock:         clock.WallClock,
	})

	// --- Router ---
	tokens := security.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	router := v1.NewRouter(v1.RouterConfig{
		Pool:           pool,
		Logger:         log,
		TokenValidator: tokens,
		Destroyer:      destroyer,
		Roles:          roles,
		AuditLog:       auditRepo,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
