// The push worker drains the push delivery queue. It is the external
// delivery tier for the PUSH channel: the server enqueues tasks, this
// process resolves device tokens and talks to the push provider.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ChandanKumar-Singh/backend-sub000/internal/config"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/notification/adapters"
	"github.com/ChandanKumar-Singh/backend-sub000/pkg/messaging"
	"github.com/ChandanKumar-Singh/backend-sub000/pkg/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger("pushworker", cfg.LogLevel)

	if cfg.RabbitMQ.URL == "" {
		return fmt.Errorf("rabbitmq url is required for the push worker")
	}
	rabbit, err := messaging.NewRabbitClient(messaging.DefaultRabbitConfig(cfg.RabbitMQ.URL), logger)
	if err != nil {
		return fmt.Errorf("connect rabbitmq: %w", err)
	}
	defer rabbit.Close()
	if _, err := rabbit.DeclareQueue(adapters.PushQueue); err != nil {
		return fmt.Errorf("declare push queue: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addrs[0],
		Password: cfg.Redis.Password,
	})
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("push worker started", "queue", adapters.PushQueue)
	return rabbit.Consume(ctx, adapters.PushQueue, func(body []byte) error {
		var task adapters.PushTask
		if err := json.Unmarshal(body, &task); err != nil {
			return fmt.Errorf("decode push task: %w", err)
		}

		// Idempotency guard: redelivered tasks are skipped for a day.
		key := "push:sent:" + task.NotificationID
		set, err := rdb.SetNX(ctx, key, "1", 24*time.Hour).Result()
		if err != nil {
			logger.Warn("idempotency check failed, delivering anyway", "error", err)
		} else if !set {
			logger.Info("push task already delivered, skipping", "notification_id", task.NotificationID)
			return nil
		}

		// Token resolution and the FCM/APNs call go here once the provider
		// account exists; until then delivery is logged.
		logger.Info("push delivered",
			"notification_id", task.NotificationID,
			"user_id", task.UserID,
			"title", task.Title,
			"priority", task.Priority,
		)
		return nil
	})
}
