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

	"github.com/spf13/cobra"

	"github.com/ChandanKumar-Singh/backend-sub000/internal/cache"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/config"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/events"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/httpapi"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/notification"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/notification/adapters"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/preference"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/relay"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/ticket"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/user"
	"github.com/ChandanKumar-Singh/backend-sub000/pkg/bcryptutil"
	"github.com/ChandanKumar-Singh/backend-sub000/pkg/database"
	"github.com/ChandanKumar-Singh/backend-sub000/pkg/messaging"
	"github.com/ChandanKumar-Singh/backend-sub000/pkg/observability"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "helpdesk",
		Short: "Helpdesk backend with cache-coherent reads and notification fan-out",
	}
	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	})
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger("helpdesk", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, logger, observability.TracerConfig{
		ServiceName:    "helpdesk",
		ServiceVersion: "0.1.0",
		Endpoint:       cfg.Tracing.Endpoint,
		Environment:    cfg.Environment,
	})
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer shutdownTracer(context.Background())

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()
	if err := database.Migrate(db, "migrations"); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("database ready")

	redisClient := cache.NewRedisClient(cfg.Redis.Addrs, cfg.Redis.Password, cfg.Redis.Cluster)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx); err != nil {
		// The cache degrades to misses when the backend is down, so this is
		// a warning rather than a startup failure.
		logger.Warn("redis unreachable at startup", "error", err)
	}

	// Process-wide singletons: one bus, one cache, owned here and injected.
	bus := events.NewBus(logger, !cfg.Events.Enabled)
	store := cache.New(redisClient, cfg.Cache.Prefix, cfg.Cache.Enabled, logger)

	prefStore := preference.NewStore(preference.NewPostgresRepository(db), store, logger, cfg.Cache.TTL)
	prefStore.Bind(bus)

	userSvc := user.NewService(user.NewPostgresRepository(db), store, bus, bcryptutil.BcryptHasher{}, logger, cfg.Cache.TTL)
	userSvc.Bind(bus)

	var chAdapters notification.Adapters
	if cfg.Notify.ResendAPIKey != "" {
		chAdapters.Email = adapters.NewResendEmail(cfg.Notify.ResendAPIKey, cfg.Notify.FromEmail, userSvc, logger)
	} else {
		logger.Warn("resend api key not set, email channel disabled")
	}
	chAdapters.SMS = adapters.NewGatewaySMS(userSvc, logger)
	if cfg.RabbitMQ.URL != "" {
		rabbit, err := messaging.NewRabbitClient(messaging.DefaultRabbitConfig(cfg.RabbitMQ.URL), logger)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer rabbit.Close()
		if _, err := rabbit.DeclareQueue(adapters.PushQueue); err != nil {
			return fmt.Errorf("declare push queue: %w", err)
		}
		chAdapters.Push = adapters.NewQueuePush(rabbit, logger)
	} else {
		logger.Warn("rabbitmq url not set, push channel disabled")
	}

	inbox := notification.NewPostgresRepository(db)
	dispatcher := notification.NewDispatcher(prefStore, inbox, bus, chAdapters, logger, cfg.Notify.ChannelTimeout)

	ticketSvc := ticket.NewService(ticket.NewPostgresRepository(db), store, bus, dispatcher, logger, cfg.Cache.TTL)
	ticketSvc.Bind(bus)

	if len(cfg.Kafka.Brokers) > 0 {
		producer := messaging.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		relay.New(producer, logger).Bind(bus)
	}

	api := httpapi.NewServer(userSvc, ticketSvc, prefStore, dispatcher, inbox, func(userID string) {
		bus.Emit(context.Background(), events.PreferenceUpdate, events.UserEvent{UserID: userID})
	}, logger)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
