package preference

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Repository is the authoritative store for preference documents. Find
// returns (nil, nil) when no document exists; the Store layer creates the
// default in that case.
type Repository interface {
	Find(ctx context.Context, userID string) (*NotificationPreference, error)
	Create(ctx context.Context, p *NotificationPreference) error
	SaveCategories(ctx context.Context, userID string, categories map[Category]bool) error
	SaveChannels(ctx context.Context, userID string, channels []Channel) error
}

// PostgresRepository persists preferences in the notification_preferences
// table: categories as JSONB, channels as text[].
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Find(ctx context.Context, userID string) (*NotificationPreference, error) {
	query := `
		SELECT user_id, categories, channels, created_at, updated_at
		FROM notification_preferences WHERE user_id = $1
	`
	row := r.db.QueryRowContext(ctx, query, userID)

	var p NotificationPreference
	var rawCategories []byte
	var channels pq.StringArray
	err := row.Scan(&p.UserID, &rawCategories, &channels, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find preference: %w", err)
	}
	if err := json.Unmarshal(rawCategories, &p.Categories); err != nil {
		return nil, fmt.Errorf("decode preference categories: %w", err)
	}
	p.Channels = make([]Channel, len(channels))
	for i, c := range channels {
		p.Channels[i] = Channel(c)
	}
	return &p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p *NotificationPreference) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	rawCategories, err := json.Marshal(p.Categories)
	if err != nil {
		return fmt.Errorf("encode preference categories: %w", err)
	}

	// Concurrent first reads may race on creation; the existing row wins.
	query := `
		INSERT INTO notification_preferences (user_id, categories, channels, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO NOTHING
	`
	_, err = r.db.ExecContext(ctx, query,
		p.UserID, rawCategories, pq.Array(channelStrings(p.Channels)), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create preference: %w", err)
	}
	return nil
}

// SaveCategories merges the given toggles into the stored document. Keys
// not mentioned keep their stored value.
func (r *PostgresRepository) SaveCategories(ctx context.Context, userID string, categories map[Category]bool) error {
	rawCategories, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("encode preference categories: %w", err)
	}
	query := `
		UPDATE notification_preferences
		SET categories = categories || $2::jsonb, updated_at = $3
		WHERE user_id = $1
	`
	_, err = r.db.ExecContext(ctx, query, userID, rawCategories, time.Now())
	if err != nil {
		return fmt.Errorf("save preference categories: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SaveChannels(ctx context.Context, userID string, channels []Channel) error {
	query := `
		UPDATE notification_preferences
		SET channels = $2, updated_at = $3
		WHERE user_id = $1
	`
	_, err := r.db.ExecContext(ctx, query, userID, pq.Array(channelStrings(channels)), time.Now())
	if err != nil {
		return fmt.Errorf("save preference channels: %w", err)
	}
	return nil
}

func channelStrings(channels []Channel) []string {
	out := make([]string, len(channels))
	for i, c := range channels {
		out[i] = string(c)
	}
	return out
}
