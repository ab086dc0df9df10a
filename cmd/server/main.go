package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/api"
	"storefront/internal/auth"
	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/logging"
	"storefront/internal/metrics"
	"storefront/internal/notify"
	"storefront/internal/store"
	"storefront/internal/worker"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()

	logger := logging.GetLogger(cfg.LokiURL)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Service stopped", "error", err)
		os.Exit(1)
	}
}

// run owns every connection so deferred closes happen on both clean shutdown
// and startup failure.
func run(cfg *config.Config, logger *slog.Logger) error {
	if cfg.SessionSecret == "" {
		return errors.New("SESSION_SECRET must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Setup(cfg.MetricsPushURL, cfg.MetricsPushInterval, logger)

	// Connect to Database
	db, err := database.ConnectPostgres(cfg, logger)
	if err != nil {
		return fmt.Errorf("could not connect to database: %w", err)
	}

	// Connect to Redis
	rdb, err := database.ConnectRedis(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("could not connect to redis: %w", err)
	}
	defer rdb.Close()

	st := store.New(db)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		hash, err := auth.HashPassword(cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("invalid ADMIN_PASSWORD: %w", err)
		}
		if err := st.UpsertAdmin(ctx, cfg.AdminEmail, hash); err != nil {
			return fmt.Errorf("could not bootstrap admin: %w", err)
		}
	}

	opts, err := checkoutOptions(cfg, logger)
	if err != nil {
		return err
	}
	opts.Store = st
	opts.Cache = store.NewStatusCache(rdb, cfg.StatusCacheTTL)

	if cfg.TelegramBotToken != "" && cfg.TelegramAdminChatID != 0 {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramAdminChatID, logger)
		if err != nil {
			return fmt.Errorf("could not create telegram notifier: %w", err)
		}
		opts.Notifier = tg
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaPurchasesTopic, logger)
		defer publisher.Close()
		opts.Publisher = publisher
	}

	svc := checkout.New(opts)

	router := api.NewRouter(api.Options{
		Checkout:            svc,
		Store:               st,
		Sessions:            auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure),
		WebhookAllowedCIDRs: cfg.WebhookAllowedCIDRs,
		CheckoutRateRPS:     cfg.CheckoutRateRPS,
		CheckoutRateBurst:   cfg.CheckoutRateBurst,
		Logger:              logger,
	})

	if cfg.ReconcileInterval > 0 {
		reconciler := worker.NewReconciler(svc, cfg.ReconcileInterval, cfg.ReconcileMinAge, cfg.PaymentExpiry, logger)
		go reconciler.Start(ctx)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Service started successfully", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	return nil
}
