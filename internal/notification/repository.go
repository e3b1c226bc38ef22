package notification

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ChandanKumar-Singh/backend-sub000/internal/preference"
)

// Repository persists notification records.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id string) (*Notification, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkSent(ctx context.Context, id string) error
}

// PostgresRepository stores notifications in the notifications table.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, n *Notification) error {
	n.ID = uuid.New().String()
	n.CreatedAt = time.Now()

	actionData, err := json.Marshal(n.ActionData)
	if err != nil {
		return fmt.Errorf("encode action data: %w", err)
	}

	query := `
		INSERT INTO notifications
			(id, user_id, source, category, type, title, message, action_code, action_data,
			 url, read, sent, delivery_channels, priority, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = r.db.ExecContext(ctx, query,
		n.ID, n.UserID, n.Source, n.Category, n.Type, n.Title, n.Message, n.ActionCode, actionData,
		n.URL, n.Read, n.Sent, pq.Array(channelStrings(n.DeliveryChannels)), n.Priority, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Notification, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` FROM notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return n, err
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		selectColumns+` FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *PostgresRepository) MarkRead(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	return err
}

func (r *PostgresRepository) MarkSent(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notifications SET sent = TRUE WHERE id = $1`, id)
	return err
}

const selectColumns = `
	SELECT id, user_id, source, category, type, title, message, action_code, action_data,
	       url, read, sent, delivery_channels, priority, created_at
`

type scanner interface {
	Scan(dest ...any) error
}

func scanNotification(row scanner) (*Notification, error) {
	var n Notification
	var actionData []byte
	var channels pq.StringArray
	err := row.Scan(
		&n.ID, &n.UserID, &n.Source, &n.Category, &n.Type, &n.Title, &n.Message, &n.ActionCode, &actionData,
		&n.URL, &n.Read, &n.Sent, &channels, &n.Priority, &n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(actionData) > 0 {
		if err := json.Unmarshal(actionData, &n.ActionData); err != nil {
			return nil, fmt.Errorf("decode action data: %w", err)
		}
	}
	n.DeliveryChannels = make([]preference.Channel, len(channels))
	for i, c := range channels {
		n.DeliveryChannels[i] = preference.Channel(c)
	}
	return &n, nil
}

func channelStrings(channels []preference.Channel) []string {
	out := make([]string, len(channels))
	for i, c := range channels {
		out[i] = string(c)
	}
	return out
}
