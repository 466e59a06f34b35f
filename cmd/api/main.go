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

	"admissions-crm/internal/audit"
	"admissions-crm/internal/auth"
	"admissions-crm/internal/calls"
	"admissions-crm/internal/config"
	"admissions-crm/internal/httpapi"
	"admissions-crm/internal/leads"
	"admissions-crm/internal/migrations"
	"admissions-crm/internal/reporting"
	"admissions-crm/internal/telephony"
	"admissions-crm/pkg/logger"
	"admissions-crm/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, cfg.App.LogLevel, cfg.App.LogFile)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PostgresPoolConfig{MaxOpenConns: cfg.DB.MaxOpenConns})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.DB.Migrate {
		if err := migrations.Up(db, log); err != nil {
			log.Error("migrations failed", "err", err)
			os.Exit(1)
		}
	}

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	dialer, err := telephony.NewSmartfloDialer(telephony.SmartfloConfig{
		BaseURL:  cfg.Smartflo.BaseURL,
		APIToken: cfg.Smartflo.APIToken,
		CallerID: cfg.Smartflo.CallerID,
		PollMode: telephony.PollMode(cfg.Smartflo.PollMode),
		Timeout:  cfg.Calls.RequestTimeout,
	}, telephony.WithSessionExpired(func(ctx context.Context, name string) {
		// Rotating the token needs an operator; make it loud.
		log.Error("dialer rejected api token", "dialer", name)
	}))
	if err != nil {
		log.Error("dialer init failed", "err", err)
		os.Exit(1)
	}

	callRepo := calls.NewPostgresRepo(db)
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))

	hostname, _ := os.Hostname()
	owner := hostname + ":" + uuid.NewString()

	registry := calls.NewRegistry(dialer, calls.Options{
		PollInterval:   cfg.Calls.PollInterval,
		PollTimeout:    cfg.Calls.PollTimeout,
		RefreshDelay:   cfg.Calls.RefreshDelay,
		RequestTimeout: cfg.Calls.RequestTimeout,
		Logger:         log,
		Observer: calls.Observers{
			calls.RecordObserver{Repo: callRepo, Logger: log},
			calls.AuditAdapter{Audit: auditSvc, Logger: log},
		},
	}, calls.NewRedisSessionLock(rdb, owner, cfg.Calls.LockTTL))

	handlers := httpapi.Handlers{
		Auth:    authManager,
		Calls:   registry,
		Leads:   leads.NewPostgresRepo(db),
		Reports: reporting.NewService(callRepo),
		Audit:   auditSvc,

		AllowedOrigins: cfg.App.CORSOrigins,
	}

	health := func(ctx context.Context) error {
		if err := utils.HealthCheck(ctx, db, 2*time.Second); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	}

	r := newRouter(log, authManager, handlers, health, cfg.App.CORSOrigins)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No WriteTimeout: the session stream is a long-lived websocket.
		IdleTimeout: 60 * time.Second,
	}

	g, gctx := errgroup.WithContext(rootCtx)
	g.Go(func() error {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "dialer", dialer.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown failed", "err", err)
		}
		// Also runs pending lead refreshes, which must finish before db.Close.
		registry.CleanupAll()
		return nil
	})

	exitCode := 0
	if err := g.Wait(); err != nil {
		log.Error("http server failed", "err", err)
		exitCode = 1
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = logger.ShutdownFlush(flushCtx, 2*time.Second)
	if exitCode != 0 {
		// Deferred closes are skipped by os.Exit.
		rdb.Close()
		db.Close()
		os.Exit(exitCode)
	}
}
