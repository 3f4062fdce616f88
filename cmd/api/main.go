package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/watchlist-backend/api/routes"
	"github.com/angelmondragon/watchlist-backend/internal/access"
	"github.com/angelmondragon/watchlist-backend/internal/admin"
	"github.com/angelmondragon/watchlist-backend/internal/auth"
	"github.com/angelmondragon/watchlist-backend/internal/movies"
	"github.com/angelmondragon/watchlist-backend/internal/public"
	"github.com/angelmondragon/watchlist-backend/internal/users"
	"github.com/angelmondragon/watchlist-backend/pkg/config"
	"github.com/angelmondragon/watchlist-backend/pkg/db"
	"github.com/angelmondragon/watchlist-backend/pkg/logger"
	"github.com/angelmondragon/watchlist-backend/pkg/mailer"
	"github.com/angelmondragon/watchlist-backend/pkg/metrics"
	"github.com/angelmondragon/watchlist-backend/pkg/migrate"
	"github.com/angelmondragon/watchlist-backend/pkg/redis"
)

func main() {
	startedAt := time.Now()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg, startedAt); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, startedAt time.Time) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, redisClient.Close()) }()
	} else {
		logg.Warn(ctx, "redis not configured; auth rate limiting disabled")
	}

	var sender mailer.Sender = mailer.Disabled{}
	if cfg.Mail.Enabled() {
		smtp, err := mailer.NewSMTPSender(cfg.Mail)
		if err != nil {
			return err
		}
		sender = smtp
	} else {
		logg.Warn(ctx, "smtp not configured; one-time codes will not be delivered")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	userRepo := users.NewRepository(dbClient.DB())
	movieRepo := movies.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		DB:             dbClient,
		UserRepo:       userRepo,
		Mailer:         sender,
		Logger:         logg,
		Metrics:        metrics.NewAuthFlowMetrics(reg),
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		DevMode:        cfg.App.IsDev(),
	})
	if err != nil {
		return err
	}
	movieService, err := movies.NewService(movies.ServiceParams{Repo: movieRepo})
	if err != nil {
		return err
	}
	adminService, err := admin.NewService(admin.ServiceParams{
		DB:             dbClient,
		Logger:         logg,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return err
	}
	publicService, err := public.NewService(public.ServiceParams{
		Users:     userRepo,
		Movies:    movieRepo,
		Logger:    logg,
		App:       cfg.App,
		StartedAt: startedAt,
	})
	if err != nil {
		return err
	}

	guard, err := access.NewGuard(access.GuardParams{
		JWTConfig: cfg.JWT,
		Users:     authService,
		Owners: map[access.ResourceType]access.OwnerResolver{
			access.ResourceMovie: movieRepo,
			access.ResourceUser:  userRepo,
		},
	})
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			Guard:    guard,
			Metrics:  metrics.NewHTTPMetrics(reg),
			Registry: reg,
			Auth:     authService,
			Movies:   movieService,
			Admin:    adminService,
			Public:   publicService,
		}),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"version": cfg.App.Version,
	})
	logg.Info(logCtx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
