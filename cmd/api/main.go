package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"setter-platform/internal/audit"
	"setter-platform/internal/auth"
	"setter-platform/internal/calls"
	"setter-platform/internal/config"
	"setter-platform/internal/dialogue"
	"setter-platform/internal/leads"
	"setter-platform/internal/outcome"
	"setter-platform/internal/reporting"
	"setter-platform/internal/telephony"
	"setter-platform/pkg/logger"
	"setter-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Storage
	sessionRepo := calls.NewPostgresRepo(db)
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	dedup := leads.NewRedisDedup(rdb, "")

	// Collaborators
	dialer := telephony.NewTwilioDialer(cfg.Twilio)
	engine := dialogue.NewEngine(dialogue.NewOpenAIGenerator(cfg.OpenAI), cfg.Agent, log)

	var gateway leads.Gateway
	if cfg.Leads.GHLAPIKey != "" {
		gateway = leads.NewGHLGateway(cfg.Leads)
	} else {
		log.Warn("lead gateway credentials missing, using in-memory gateway")
		gateway = leads.NewMemoryGateway()
	}

	manager := calls.NewManager(dialer, engine, outcome.Classify, sessionRepo, auditSvc, log, calls.ManagerOptions{
		AgentName:     cfg.Agent.Name,
		EvictionGrace: cfg.Calls.EvictionGrace,
		LeadStatus:    gateway,
	})
	go manager.RunEviction(rootCtx, time.Minute)

	// Lead polling
	if cfg.Leads.AutoCallEnabled {
		scheduler := leads.NewScheduler(gateway, dedup,
			func(ctx context.Context, lead leads.Lead) error {
				_, err := manager.Open(ctx, lead)
				return err
			},
			log,
			leads.SchedulerOptions{
				Interval: cfg.Leads.PollInterval,
				Window:   cfg.Leads.RecencyWindow,
				Guard: func(ctx context.Context, leadID string) (bool, error) {
					return utils.AcquireDialGuard(ctx, rdb, "dial:"+leadID, cfg.Leads.PollInterval)
				},
			})
		go scheduler.Run(rootCtx)
	} else {
		log.Info("auto-call disabled, scheduler not started")
	}

	reports := reporting.NewService(reporting.NewPostgresRepo(db, sessionRepo), manager)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	deps := routeDeps{
		cfg:      cfg,
		auth:     authManager,
		manager:  manager,
		sessions: sessionRepo,
		gateway:  gateway,
		dedup:    dedup,
		dialer:   dialer,
		audit:    auditSvc,
		reports:  reports,
		db:       db,
		redis:    rdb,
	}
	registerRoutes(r, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
