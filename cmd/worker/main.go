// Package main is the entry point for the agora background worker.
// It runs the scheduled retention sweeps and relays queued jobs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/juju/clock"
	"github.com/robfig/cron/v3"

	"agora/internal/config"
	"agora/internal/core/security"
	"agora/internal/domain/lifecycle"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting agora worker")

	// --- Database ---
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Database.DSN))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	// --- Lifecycle orchestrator ---
	lifecycleCfg, err := cfg.LifecycleSettings()
	if err != nil {
		log.Fatalw("invalid lifecycle configuration", "error", err)
	}

	auditRepo, err := postgres.NewAuditRepo(txManager)
	if err != nil {
		log.Fatalw("failed to create audit repository", "error", err)
	}

	postRepo := postgres.NewPostRepo(txManager)
	topicRepo := postgres.NewTopicRepo(txManager)

	destroyer := lifecycle.NewDestroyer(lifecycleCfg, lifecycle.Deps{
		Posts:         postRepo,
		Topics:        topicRepo,
		Users:         postgres.NewUserRepo(txManager),
		Actions:       postgres.NewModerationRepo(txManager),
		Notifications: postgres.NewNotificationRepo(txManager),
		Activity:      postgres.NewActivityRepo(txManager),
		Audit:         auditRepo,
		Queue:         postgres.NewOutboxQueue(txManager),
		Tx:            txManager,
		Roles:         security.StaffPolicy{},
		Clock:         clock.WallClock,
	})

	// --- Scheduled sweeps ---
	scheduler := cron.New()

	_, err = scheduler.AddFunc(cfg.Worker.HiddenSweepSpec, func() {
		runSweep(ctx, log, "hidden posts", destroyer.DestroyOldHiddenPosts)
	})
	if err != nil {
		log.Fatalw("invalid hidden sweep spec", "spec", cfg.Worker.HiddenSweepSpec, "error", err)
	}

	_, err = scheduler.AddFunc(cfg.Worker.StubSweepSpec, func() {
		runSweep(ctx, log, "stubs", destroyer.DestroyStubs)
	})
	if err != nil {
		log.Fatalw("invalid stub sweep spec", "spec", cfg.Worker.StubSweepSpec, "error", err)
	}

	scheduler.Start()
	defer scheduler.Stop()
	log.Infow("sweeps scheduled",
		"hidden_spec", cfg.Worker.HiddenSweepSpec,
		"stub_spec", cfg.Worker.StubSweepSpec,
	)

	// --- Job relay ---
	handler := newJobDispatcher(postRepo, topicRepo, txManager)
	relay := postgres.NewJobRelay(pool.Unwrap(), cfg.Worker.RelayBatchSize, handler)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runRelay(ctx, log, relay, cfg.Worker.RelayInterval)
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// runSweep executes one sweep and logs its report.
func runSweep(ctx context.Context, log *logger.Logger, name string, sweep func(context.Context) (lifecycle.SweepReport, error)) {
	report, err := sweep(ctx)
	if err != nil {
		log.Errorw("sweep failed", "sweep", name, "error", err)
		return
	}

	log.Infow("sweep completed",
		"sweep", name,
		"scanned", report.Scanned,
		"destroyed", report.Destroyed,
		"failures", len(report.Failures),
	)
	for _, f := range report.Failures {
		log.Warnw("sweep candidate failed", "sweep", name, "post_id", f.PostID, "error", f.Err)
	}
}

// runRelay polls the job queue until the context is cancelled.
func runRelay(ctx context.Context, log *logger.Logger, relay *postgres.JobRelay, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			processed, err := relay.ProcessBatch(ctx)
			if err != nil {
				log.Errorw("job relay batch failed", "error", err)
				continue
			}
			if processed > 0 {
				log.Debugw("jobs processed", "count", processed)
			}
		}
	}
}
