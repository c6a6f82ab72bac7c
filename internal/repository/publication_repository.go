package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"confessionrelay/internal/domain"
)

const publicationColumns = `id, confession_id, kind, content, photo_ref, daily_count, daily_max,
        status, attempts, last_error, archive_key, created_at, updated_at`

type PublicationRepository struct {
	db *sqlx.DB
}

func NewPublicationRepository(db *sqlx.DB) *PublicationRepository {
	return &PublicationRepository{db: db}
}

func (r *PublicationRepository) GetByConfessionID(ctx context.Context, confessionID int64) (*domain.Publication, error) {
	var p domain.Publication
	err := r.db.GetContext(ctx, &p, r.db.Rebind(`SELECT `+publicationColumns+` FROM publications WHERE confession_id = ?`), confessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get publication: %w", err)
	}
	return &p, nil
}

// Claim takes ownership of one publish attempt. It succeeds only if nobody
// else has attempted the publication since seenAttempts was read.
func (r *PublicationRepository) Claim(ctx context.Context, id string, seenAttempts int, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`
        UPDATE publications
        SET attempts = attempts + 1,
            updated_at = ?
        WHERE id = ? AND attempts = ? AND status <> ?`),
		now, id, seenAttempts, domain.PublicationPublished,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim publication: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows == 1, nil
}

func (r *PublicationRepository) MarkPublished(ctx context.Context, id string, now time.Time) error {
	return r.setStatus(ctx, id, domain.PublicationPublished, "", now)
}

func (r *PublicationRepository) MarkFailed(ctx context.Context, id string, reason string, now time.Time) error {
	return r.setStatus(ctx, id, domain.PublicationFailed, reason, now)
}

func (r *PublicationRepository) setStatus(ctx context.Context, id string, status domain.PublicationStatus, lastError string, now time.Time) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`
        UPDATE publications
        SET status = ?,
            last_error = ?,
            updated_at = ?
        WHERE id = ?`),
		status, lastError, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update publication status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("publication %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *PublicationRepository) SetArchiveKey(ctx context.Context, id string, key string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
        UPDATE publications
        SET archive_key = ?,
            updated_at = ?
        WHERE id = ?`),
		key, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set archive key: %w", err)
	}
	return nil
}

// ListRetryable returns unpublished entries not touched since cutoff that
// still have attempts left, oldest first.
func (r *PublicationRepository) ListRetryable(ctx context.Context, cutoff time.Time, maxAttempts, limit int) ([]domain.Publication, error) {
	var items []domain.Publication
	err := r.db.SelectContext(ctx, &items, r.db.Rebind(`
        SELECT `+publicationColumns+`
        FROM publications
        WHERE status IN (?, ?)
          AND attempts < ?
          AND updated_at < ?
        ORDER BY created_at
        LIMIT ?`),
		domain.PublicationPending, domain.PublicationFailed, maxAttempts, cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list retryable publications: %w", err)
	}
	return items, nil
}

func (r *PublicationRepository) CountByStatus(ctx context.Context, status domain.PublicationStatus) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM publications WHERE status = ?`), status); err != nil {
		return 0, fmt.Errorf("failed to count publications: %w", err)
	}
	return n, nil
}
