package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"confessionrelay/internal/domain"
)

type ConfessionRepository struct {
	db *sqlx.DB
}

func NewConfessionRepository(db *sqlx.DB) *ConfessionRepository {
	return &ConfessionRepository{db: db}
}

// CreateWithPublication stores the confession and its pending outbox entry in
// one transaction, so an accepted confession always has a publication row.
func (r *ConfessionRepository) CreateWithPublication(ctx context.Context, c *domain.Confession, p *domain.Publication) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowxContext(ctx, tx.Rebind(`
        INSERT INTO confessions (user_id, confession_text, confession_type, date_sent, time_sent)
        VALUES (?, ?, ?, ?, ?)
        RETURNING id`),
		c.UserID, c.Content, c.Kind, c.DateSent, c.TimeSent,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to save confession: %w", err)
	}

	p.ConfessionID = c.ID
	_, err = tx.ExecContext(ctx, tx.Rebind(`
        INSERT INTO publications (id, confession_id, kind, content, photo_ref, daily_count, daily_max,
                                  status, attempts, last_error, archive_key, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.ConfessionID, p.Kind, p.Content, p.PhotoRef, p.DailyCount, p.DailyMax,
		p.Status, p.Attempts, p.LastError, p.ArchiveKey, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save publication: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit confession: %w", err)
	}
	return nil
}

func (r *ConfessionRepository) GetByID(ctx context.Context, id int64) (*domain.Confession, error) {
	var c domain.Confession
	err := r.db.GetContext(ctx, &c, r.db.Rebind(`
        SELECT id, user_id, confession_text, confession_type, date_sent, time_sent
        FROM confessions
        WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get confession: %w", err)
	}
	return &c, nil
}

func (r *ConfessionRepository) CountAll(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM confessions`); err != nil {
		return 0, fmt.Errorf("failed to count confessions: %w", err)
	}
	return n, nil
}

func (r *ConfessionRepository) CountByDate(ctx context.Context, date string) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM confessions WHERE date_sent = ?`), date); err != nil {
		return 0, fmt.Errorf("failed to count confessions for %s: %w", date, err)
	}
	return n, nil
}
