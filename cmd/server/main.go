package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/wishlist/wishlist-service/internal/config"
	"github.com/wishlist/wishlist-service/internal/delivery"
	"github.com/wishlist/wishlist-service/internal/httpapi"
	"github.com/wishlist/wishlist-service/internal/svix"
	"github.com/wishlist/wishlist-service/internal/user"
	sharedauth "github.com/wishlist/wishlist-service/pkg/auth"
	"github.com/wishlist/wishlist-service/pkg/events"
	"github.com/wishlist/wishlist-service/pkg/events/kafka"
	"github.com/wishlist/wishlist-service/pkg/logging"
	"github.com/wishlist/wishlist-service/pkg/metrics"
	sharedserver "github.com/wishlist/wishlist-service/pkg/server"
)

const serviceName = "wishlist-service"

func main() {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config error: %w", err))
	}

	logger := logging.New(os.Stdout, serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	// A missing or undecodable signing secret must stop the process.
	webhookVerifier, err := svix.NewVerifier(cfg.Webhook.SigningSecret, svix.WithTolerance(cfg.Webhook.Tolerance))
	if err != nil {
		panic(fmt.Errorf("config error: %w", err))
	}

	var hooks []sharedserver.ShutdownHook

	userRepo, closeRepo, err := newRepository(ctx, cfg, logger)
	if err != nil {
		panic(err)
	}

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		panic(err)
	}
	if closer, ok := publisher.(interface{ Close() error }); ok {
		hooks = append(hooks, func(context.Context) error { return closer.Close() })
	}
	hooks = append(hooks, func(context.Context) error { closeRepo(); return nil })

	userService, err := user.NewService(userRepo, publisher, nil)
	if err != nil {
		panic(fmt.Errorf("user service: %w", err))
	}

	ledger, err := delivery.New(ctx, delivery.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.Redis.DeliveryTTL,
	})
	if err != nil {
		panic(fmt.Errorf("delivery ledger: %w", err))
	}
	if redisLedger, ok := ledger.(*delivery.RedisLedger); ok {
		hooks = append(hooks, func(context.Context) error { return redisLedger.Close() })
	} else {
		logger.Warn("REDIS_ADDR not set, duplicate delivery detection disabled")
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New("wishlist", reg)
	}

	webhookHandler, err := httpapi.NewWebhookHandler(webhookVerifier, userService, ledger, m, logger)
	if err != nil {
		panic(fmt.Errorf("webhook handler: %w", err))
	}

	authVerifier, err := sharedauth.NewVerifier(sharedauth.Config{
		Mode:     sharedauth.Mode(cfg.Auth.Mode),
		JWKSURL:  cfg.Auth.JWKSURL,
		Audience: cfg.Auth.Audience,
		Issuer:   cfg.Auth.Issuer,
	})
	if err != nil {
		panic(fmt.Errorf("auth verifier error: %w", err))
	}

	router := sharedserver.NewRouter(serviceName, logger, m, func(r chi.Router) {
		httpapi.RegisterWebhookRoutes(r, webhookHandler)
		httpapi.RegisterUserRoutes(r, userService, authVerifier, logger)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if err := sharedserver.Run(ctx, srv, logger, hooks...); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}

func newRepository(ctx context.Context, cfg config.Config, logger *slog.Logger) (user.Repository, func(), error) {
	switch cfg.DataStore {
	case "memory":
		logger.Warn("using in-memory user store, data is lost on restart")
		return user.NewMemoryRepository(), func() {}, nil
	case "firestore":
		if cfg.Firestore.EmulatorHost != "" {
			logger.Info("using firestore emulator", "host", cfg.Firestore.EmulatorHost)
		}
		client, err := firestore.NewClient(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("firestore client: %w", err)
		}
		return user.NewFirestoreRepository(client), func() { _ = client.Close() }, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres ping: %w", err)
		}
		repo, err := user.NewPostgresRepository(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported datastore: %s", cfg.DataStore)
	}
}

func newPublisher(cfg config.Config, logger *slog.Logger) (events.Publisher, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		logger.Warn("KAFKA_BROKERS not set, user events will not be published")
		return events.NoopPublisher{}, nil
	}
	publisher, err := kafka.NewPublisher(kafka.Config{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
	if err != nil {
		return nil, fmt.Errorf("kafka publisher: %w", err)
	}
	return publisher, nil
}
