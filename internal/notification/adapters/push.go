package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ChandanKumar-Singh/backend-sub000/internal/notification"
)

// PushQueue is the queue the delivery worker tier consumes.
const PushQueue = "push_notifications"

// Publisher is the message-queue publishing capability the push adapter
// hands deliveries to.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

// PushTask is the unit of work handed to the push worker tier. Device token
// resolution happens there; this side only knows the user.
type PushTask struct {
	NotificationID string                `json:"notification_id"`
	UserID         string                `json:"user_id"`
	Title          string                `json:"title"`
	Message        string                `json:"message"`
	URL            string                `json:"url,omitempty"`
	Priority       notification.Priority `json:"priority"`
}

// QueuePush enqueues push deliveries for the worker tier instead of talking
// to FCM/APNs inline.
type QueuePush struct {
	publisher Publisher
	logger    *slog.Logger
}

func NewQueuePush(publisher Publisher, logger *slog.Logger) *QueuePush {
	return &QueuePush{publisher: publisher, logger: logger}
}

func (a *QueuePush) Send(ctx context.Context, userID, title, message, url string, n *notification.Notification) error {
	task := PushTask{
		NotificationID: n.ID,
		UserID:         userID,
		Title:          title,
		Message:        message,
		URL:            url,
		Priority:       n.Priority,
	}
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode push task: %w", err)
	}
	if err := a.publisher.Publish(ctx, PushQueue, body); err != nil {
		return fmt.Errorf("enqueue push task: %w", err)
	}
	a.logger.Info("push delivery enqueued", "user_id", userID, "notification_id", n.ID)
	return nil
}
