package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/alessio-signorini/slack-meet-command/internal/adapter/cache"
	"github.com/alessio-signorini/slack-meet-command/internal/adapter/google"
	slackadapter "github.com/alessio-signorini/slack-meet-command/internal/adapter/slack"
	"github.com/alessio-signorini/slack-meet-command/internal/analytics"
	"github.com/alessio-signorini/slack-meet-command/internal/config"
	"github.com/alessio-signorini/slack-meet-command/internal/database"
	httptransport "github.com/alessio-signorini/slack-meet-command/internal/http"
	"github.com/alessio-signorini/slack-meet-command/internal/http/handler"
	"github.com/alessio-signorini/slack-meet-command/internal/repository"
	"github.com/alessio-signorini/slack-meet-command/internal/server"
	"github.com/alessio-signorini/slack-meet-command/internal/service"
	"github.com/alessio-signorini/slack-meet-command/internal/slack"
	"github.com/alessio-signorini/slack-meet-command/internal/task"
	"github.com/alessio-signorini/slack-meet-command/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newPGXPool,
			newRedisClient,
			newTokenRepository,
			newPendingCallbackStore,
			newVerifier,
			newOAuthClient,
			newMeetClient,
			newResponder,
			newAnalyticsClient,
			newTaskRunner,
			newMeetingCreator,
			newOrchestrator,
			service.NewAuthFlow,
			handler.NewCommandHandler,
			handler.NewAuthHandler,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(runMigrations, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newTokenRepository(pool *pgxpool.Pool) repository.TokenRepository {
	return repository.NewPostgresTokenRepo(pool)
}

func newPendingCallbackStore(client redis.UniversalClient, cfg config.Config) repository.PendingCallbackStore {
	return cache.NewRedisPendingStore(client, cfg.PendingCallbackTTL)
}

func newVerifier(cfg config.Config) *slack.Verifier {
	return slack.NewVerifier(cfg.SlackSigningSecret)
}

func newOAuthClient(cfg config.Config) google.OAuthClient {
	return google.NewHTTPOAuthClient(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.RedirectURI(), nil)
}

func newMeetClient() google.MeetClient {
	return google.NewHTTPMeetClient(nil)
}

func newResponder(cfg config.Config, logger *zap.Logger) slackadapter.Responder {
	client := &http.Client{Timeout: cfg.SlackPostTimeout}
	return slackadapter.NewHTTPResponder(client, logger)
}

func newAnalyticsClient(cfg config.Config, logger *zap.Logger) *analytics.Client {
	return analytics.NewClient(cfg.GAMeasurementID, cfg.GAAPISecret, nil, logger)
}

func newTaskRunner(lc fx.Lifecycle, logger *zap.Logger) *task.Runner {
	runner := task.NewRunner(logger)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return runner.Wait(ctx)
		},
	})
	return runner
}

func newMeetingCreator(meet google.MeetClient, cfg config.Config) *service.MeetingCreator {
	return service.NewMeetingCreator(meet, cfg.Meeting)
}

func newOrchestrator(
	tokens repository.TokenRepository,
	pending repository.PendingCallbackStore,
	oauth google.OAuthClient,
	meetings *service.MeetingCreator,
	responder slackadapter.Responder,
	runner *task.Runner,
	tracker *analytics.Client,
	cfg config.Config,
	logger *zap.Logger,
) *service.Orchestrator {
	var usage service.UsageTracker
	if tracker.Enabled() {
		usage = tracker
	}
	return service.NewOrchestrator(tokens, pending, oauth, meetings, responder, runner, usage, cfg.BaseURL, logger)
}

func runMigrations(cfg config.Config, logger *zap.Logger) error {
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return err
	}
	logger.Info("migrations applied")
	return nil
}

func startHTTPServer(lc fx.Lifecycle, sd fx.Shutdowner, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	runCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				logger.Info("http server listening", zap.String("port", cfg.HTTPPort))
				if err := srv.Run(runCtx, ":"+cfg.HTTPPort); err != nil {
					logger.Error("http server stopped", zap.Error(err))
					_ = sd.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return nil
		},
	})
}
