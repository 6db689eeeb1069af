package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tendant/social-idm/idm"
	"github.com/tendant/social-idm/internal/config"
	httpserver "github.com/tendant/social-idm/internal/http"
	"github.com/tendant/social-idm/internal/httputil"
	"github.com/tendant/social-idm/internal/telemetry"
	"github.com/tendant/social-idm/pkg/auth"
	"github.com/tendant/social-idm/pkg/repository"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand() *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and metrics servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), skipMigrations)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "Do not apply pending migrations on startup")

	return cmd
}

func runServe(ctx context.Context, skipMigrations bool) error {
	logger := slog.Default()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "social-idm", cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	db, err := repository.NewDB(cfg.DB())
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("connected to database", "driver", db.DriverName())

	if !skipMigrations {
		migrator, err := repository.NewMigrator(db)
		if err != nil {
			return err
		}
		if err := migrator.Up(); err != nil {
			return err
		}
	}

	var revocations auth.RevocationList
	if cfg.RedisURL != "" {
		client, err := repository.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		revocations = repository.NewRedisRevocationList(client)
		logger.Info("refresh token revocations stored in redis")
	} else {
		revocations = repository.NewSQLRevocationList(db)
		logger.Info("refresh token revocations stored in the database")
	}

	google := cfg.Google()
	if !cfg.HasCodeExchange() {
		// Without both values the code flow stays off.
		google.ClientSecret = ""
		google.RedirectURI = ""
	}
	svc, err := idm.New(ctx, idm.Config{
		DB:              db,
		JWTSecret:       cfg.JWTSecret,
		JWTIssuer:       cfg.JWTIssuer,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		Google:          &google,
		Revocations:     revocations,
		CookieSecure:    cfg.CookieSecure,
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	logger.Info("social providers enabled", "providers", svc.Providers(), "code_flow", cfg.HasCodeExchange())

	routerCfg := svc.RouterConfig()
	routerCfg.RateLimitConfig = cfg.RateLimit
	routerCfg.SecurityHeaders = cfg.SecurityHeaders
	routerCfg.Validation = cfg.Validation
	routerCfg.Cookies = httputil.DefaultCookieConfig(cfg.CookieSecure)

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.ServerAddr, strconv.Itoa(cfg.ServerPort)),
		Handler:      httpserver.NewRouter(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return listen(logger, "api", apiServer) })
	g.Go(func() error { return listen(logger, "metrics", metricsServer) })
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down servers")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(apiServer.Shutdown(sctx), metricsServer.Shutdown(sctx))
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func listen(logger *slog.Logger, name string, srv *http.Server) error {
	logger.Info("starting server", "server", name, "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", name, err)
	}
	return nil
}
