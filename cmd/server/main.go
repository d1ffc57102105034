// Command server runs the FITFOB onboarding and authentication API.
//
// Configuration comes from the environment, optionally seeded from a .env
// file. With DATABASE_URL unset the local user mirror lives in memory, which
// is only useful for local development.
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

	"github.com/bwmarrin/snowflake"
	fitfob "github.com/gautamxyzstudio/FITFOB-BACKEND"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/httpapi"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/identity"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/internal/config"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/internal/logging"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/jwt"
	otelexport "github.com/gautamxyzstudio/FITFOB-BACKEND/metrics/export/otel"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/metrics/export/prometheus"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/otp"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/store/memory"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/store/postgres"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// localStore is what both store implementations provide.
type localStore interface {
	fitfob.UserStore
	fitfob.ProfileStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engineCfg, err := cfg.Engine()
	if err != nil {
		return fmt.Errorf("engine config: %w", err)
	}

	// -------- INFRASTRUCTURE --------
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// -------- PROVIDERS --------
	cognito, err := identity.NewCognito(ctx, cfg.Cognito())
	if err != nil {
		return fmt.Errorf("cognito: %w", err)
	}
	twilio, err := otp.NewTwilio(cfg.Twilio())
	if err != nil {
		return fmt.Errorf("twilio: %w", err)
	}
	verifier := jwt.NewProviderVerifier(
		jwt.NewKeySet(cognito.JWKSURL(), nil),
		cognito.Issuer(),
		engineCfg.JWT.Leeway,
	)

	// -------- ENGINE --------
	engine, err := fitfob.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithUserStore(store).
		WithProfileStore(store).
		WithOTPGateway(twilio).
		WithIdentityProvider(cognito).
		WithProviderVerifier(verifier).
		WithLogger(logger).
		WithAuditSink(fitfob.NewZapSink(logger)).
		Build()
	if err != nil {
		return fmt.Errorf("engine build: %w", err)
	}
	defer engine.Close()

	opts := httpapi.Options{
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
	}
	if cfg.MetricsEnabled {
		opts.Metrics = prometheus.NewExporter(engine).Handler()

		// Observable counters on the global meter provider. They stay no-op
		// until an SDK provider is installed with otel.SetMeterProvider.
		exp, err := otelexport.NewExporter(otel.Meter("github.com/gautamxyzstudio/FITFOB-BACKEND"), engine)
		if err != nil {
			return fmt.Errorf("otel exporter: %w", err)
		}
		defer func() { _ = exp.Close() }()
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(engine, opts),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (localStore, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set; using in-memory stores")
		return memory.New(), func() {}, nil
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.Migrate(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	node, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("snowflake node: %w", err)
	}

	closeDB := func() {
		if err := db.Close(); err != nil {
			logger.Warn("close database", zap.Error(err))
		}
	}
	return postgres.New(db, node), closeDB, nil
}
