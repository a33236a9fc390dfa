package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/alubilles/membership-api/internal/adapters/httpapi"
	"github.com/alubilles/membership-api/internal/app/cards"
	"github.com/alubilles/membership-api/internal/app/membernumber"
	"github.com/alubilles/membership-api/internal/app/members"
	"github.com/alubilles/membership-api/internal/app/notify"
	platformclock "github.com/alubilles/membership-api/internal/platform/clock"
	"github.com/alubilles/membership-api/internal/platform/config"
	"github.com/alubilles/membership-api/internal/platform/logging"
	"github.com/alubilles/membership-api/internal/platform/metrics"
	"github.com/alubilles/membership-api/internal/platform/telemetry"
)

const serviceName = "membership-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(2)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.TracingEnabled, cfg.TracingEndpoint)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	m := metrics.New()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.close()

	blobs, err := openBlobs(ctx, cfg.Blob)
	if err != nil {
		return err
	}

	renderer, err := newCardRenderer(cfg.Card, blobs, log)
	if err != nil {
		return err
	}

	sender, err := newMailSender(cfg, log)
	if err != nil {
		return err
	}
	dispatcher := notify.NewDispatcher(sender, cfg.Mail.QueueSize, log, m)

	clk := platformclock.NewSystemClock()
	numbers := membernumber.NewAllocator(store.seq, clk, cfg.MemberNumberPrefix)
	numbers.Location = cfg.Location()

	memberSvc := members.NewService(members.Deps{
		Repo:     store.members,
		Numbers:  numbers,
		Blobs:    blobs,
		Cards:    cards.NewIssuer(renderer, blobs, log, m),
		Notifier: dispatcher,
		Clock:    clk,
		Logger:   log,
		Metrics:  m,
	})
	memberSvc.AdminEmail = cfg.Mail.AdminEmail

	// Auth configuration:
	// - Production: AUTH_MODE=basic with ADMIN_USER / ADMIN_PASSWORD_HASH (bcrypt)
	// - Local dev: AUTH_MODE=dev trusts X-Debug-Admin
	var adminMW func(http.Handler) http.Handler
	switch cfg.Auth.Mode {
	case "dev":
		log.Warn("dev auth enabled; admin routes trust X-Debug-Admin")
		adminMW = httpapi.NewDevAuthMiddleware(cfg.Auth.DevAdmin)
	default:
		adminMW = httpapi.NewBasicAuthMiddleware(cfg.Auth.AdminUser, cfg.Auth.AdminPasswordHash)
	}

	api := httpapi.NewServer(memberSvc, store.idem, log)
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{
		AdminMiddleware:     adminMW,
		RegistrationLimiter: httpapi.NewRateLimiter(cfg.RegistrationRate, cfg.RegistrationBurst),
		Metrics:             m,
		Logger:              log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening",
			zap.String("addr", srv.Addr),
			zap.String("storage", cfg.StorageBackend),
			zap.String("blobs", cfg.Blob.Driver),
			zap.String("mail", cfg.Mail.Transport))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	// Graceful shutdown: stop taking requests, then drain queued mail and spans.
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Warn("notification queue not drained", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("telemetry shutdown", zap.Error(err))
	}
	return nil
}
