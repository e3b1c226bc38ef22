package ticket

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository is the authoritative store for tickets.
type Repository interface {
	Create(ctx context.Context, t *Ticket) error
	GetByID(ctx context.Context, id string) (*Ticket, error)
	Update(ctx context.Context, id string, in UpdateInput) (*Ticket, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*Ticket, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, t *Ticket) error {
	t.ID = uuid.New().String()
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = StatusOpen
	}

	query := `
		INSERT INTO tickets (id, user_id, subject, body, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.UserID, t.Subject, t.Body, t.Status, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Ticket, error) {
	query := `
		SELECT id, user_id, subject, body, status, created_at, updated_at
		FROM tickets WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)

	var t Ticket
	err := row.Scan(&t.ID, &t.UserID, &t.Subject, &t.Body, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find ticket: %w", err)
	}
	return &t, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id string, in UpdateInput) (*Ticket, error) {
	query := `
		UPDATE tickets
		SET subject = COALESCE($2, subject),
		    body = COALESCE($3, body),
		    status = COALESCE($4, status),
		    updated_at = $5
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, in.Subject, in.Body, in.Status, time.Now())
	if err != nil {
		return nil, fmt.Errorf("update ticket: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*Ticket, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, subject, body, status, created_at, updated_at
		FROM tickets WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []*Ticket
	for rows.Next() {
		var t Ticket
		if err := rows.Scan(&t.ID, &t.UserID, &t.Subject, &t.Body, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tickets = append(tickets, &t)
	}
	return tickets, rows.Err()
}
