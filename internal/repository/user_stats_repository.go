package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"confessionrelay/internal/database"
	"confessionrelay/internal/domain"
)

const userStatsColumns = `user_id, COALESCE(username, '') AS username, count_today, total_confessions, COALESCE(last_reset, '') AS last_reset`

type UserStatsRepository struct {
	db *sqlx.DB
}

func NewUserStatsRepository(db *sqlx.DB) *UserStatsRepository {
	return &UserStatsRepository{db: db}
}

// BeginTx starts the transaction the quota gate runs its read-decide-write in.
func (r *UserStatsRepository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// GetForUpdate reads a user's quota row inside tx, row-locking it where the
// dialect supports it. Returns domain.ErrNotFound for unknown users.
func (r *UserStatsRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, userID int64) (*domain.UserStats, error) {
	query := `SELECT ` + userStatsColumns + ` FROM user_stats WHERE user_id = ?`
	if database.IsPostgres(r.db) {
		query += ` FOR UPDATE`
	}

	var stats domain.UserStats
	err := tx.GetContext(ctx, &stats, tx.Rebind(query), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	return &stats, nil
}

// InsertIfAbsent creates the row and reports whether this call created it.
// A false result means a concurrent writer got there first.
func (r *UserStatsRepository) InsertIfAbsent(ctx context.Context, tx *sqlx.Tx, stats *domain.UserStats) (bool, error) {
	query := `
        INSERT INTO user_stats (user_id, username, count_today, total_confessions, last_reset)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (user_id) DO NOTHING`

	result, err := tx.ExecContext(ctx, tx.Rebind(query),
		stats.UserID,
		stats.Username,
		stats.CountToday,
		stats.TotalConfessions,
		stats.LastReset,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert user stats: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows == 1, nil
}

func (r *UserStatsRepository) Update(ctx context.Context, tx *sqlx.Tx, stats *domain.UserStats) error {
	query := `
        UPDATE user_stats
        SET username = ?,
            count_today = ?,
            total_confessions = ?,
            last_reset = ?
        WHERE user_id = ?`

	result, err := tx.ExecContext(ctx, tx.Rebind(query),
		stats.Username,
		stats.CountToday,
		stats.TotalConfessions,
		stats.LastReset,
		stats.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user stats: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user stats not found for user %d: %w", stats.UserID, domain.ErrNotFound)
	}
	return nil
}

func (r *UserStatsRepository) Get(ctx context.Context, userID int64) (*domain.UserStats, error) {
	var stats domain.UserStats
	err := r.db.GetContext(ctx, &stats, r.db.Rebind(`SELECT `+userStatsColumns+` FROM user_stats WHERE user_id = ?`), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	return &stats, nil
}

func (r *UserStatsRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM user_stats`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
