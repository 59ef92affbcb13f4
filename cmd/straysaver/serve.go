package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/wzyjerry/stray-saver/internal/api"
	"github.com/wzyjerry/stray-saver/internal/pkg/config"
	"github.com/wzyjerry/stray-saver/internal/pkg/identity"
	"github.com/wzyjerry/stray-saver/internal/pkg/logger"
	"github.com/wzyjerry/stray-saver/internal/pkg/metrics"
	"github.com/wzyjerry/stray-saver/internal/pkg/redis"
	"github.com/wzyjerry/stray-saver/internal/repository"
	"github.com/wzyjerry/stray-saver/internal/service"
	"github.com/wzyjerry/stray-saver/internal/session"
	"go.uber.org/zap"
)

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Get()

	log.Info("Starting Stray Saver",
		zap.String("version", Version),
		zap.String("addr", cfg.GetWebServiceAddr()),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("sessions", cfg.Session.Store))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize report store
	store, err := repository.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Storage.Backend, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Warn("Failed to close report store", zap.Error(err))
		}
	}()

	// Initialize session store
	var sessions session.Store
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		client, err := redis.Connect(ctx, cfg, log)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer client.Close()
		sessions = session.NewRedisStore(client)
	default:
		log.Warn("Using in-memory sessions; they are lost on restart")
		mem := session.NewMemoryStore()
		go mem.RunSweeper(ctx, time.Minute)
		sessions = mem
	}

	uploads, err := service.NewUploads(cfg.Upload.Dir, cfg.Upload.MaxBytes)
	if err != nil {
		return err
	}

	idp, err := identity.NewClient(ctx, cfg.Identity.BaseURL, cfg.Identity.APIKey, cfg.Identity.Timeout)
	if err != nil {
		return err
	}

	m := metrics.New()
	deps := api.Deps{
		Reports: service.NewReportService(service.ReportServiceOptions{
			Store:   store,
			Uploads: uploads,
			Timeout: cfg.Storage.Timeout,
			Backend: cfg.Storage.Backend,
			Metrics: m,
			Log:     log,
		}),
		Auth:    service.NewAuthService(idp, log),
		Uploads: uploads,
		Sessions: session.NewManager(sessions, session.Options{
			CookieName:   cfg.Session.CookieName,
			SecretKey:    cfg.Session.SecretKey,
			TTL:          cfg.SessionTTL(),
			SecureCookie: cfg.Session.SecureCookie,
		}, log),
		Limiter:        service.NewAttemptLimiter(cfg.RateLimit.Window, cfg.RateLimit.MaxAttempts),
		Metrics:        m,
		Log:            log,
		MaxUploadBytes: cfg.Upload.MaxBytes,
	}

	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	r, err := api.NewEngine(deps)
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	var handler http.Handler = r
	if cfg.Security.CSRFKey != "" {
		handler = api.Protect(r, []byte(cfg.Security.CSRFKey), cfg.Session.SecureCookie)
	} else {
		log.Warn("CSRF protection disabled; set security.csrf_key to enable it")
	}

	srv := &http.Server{
		Addr:              cfg.GetWebServiceAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening", zap.String("url", "http://"+cfg.GetWebServiceAddr()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
