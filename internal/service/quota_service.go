package service

import (
	"context"
	"errors"
	"fmt"

	"confessionrelay/internal/domain"
	"confessionrelay/internal/repository"
)

// QuotaService is the per-author daily gate. One call to CheckAndConsume
// either spends one unit of today's allowance or leaves the row untouched.
type QuotaService struct {
	repo      *repository.UserStatsRepository
	maxPerDay int
	now       Clock
	locks     *keyedMutex
}

func NewQuotaService(repo *repository.UserStatsRepository, maxPerDay int, now Clock) *QuotaService {
	return &QuotaService{
		repo:      repo,
		maxPerDay: maxPerDay,
		now:       now,
		locks:     newKeyedMutex(),
	}
}

func (s *QuotaService) MaxPerDay() int {
	return s.maxPerDay
}

// CheckAndConsume decides whether userID may submit now and, if so, records
// the submission against today's count. Calls for the same user are
// serialized in-process and, on Postgres, by a row lock.
func (s *QuotaService) CheckAndConsume(ctx context.Context, userID int64, username string) (domain.QuotaDecision, error) {
	if userID == 0 {
		return domain.QuotaDecision{}, fmt.Errorf("user id is required: %w", domain.ErrInvalidArgument)
	}
	if username == "" {
		username = domain.UnknownUsername
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	today := s.now.today()

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return domain.QuotaDecision{}, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	defer tx.Rollback()

	current, err := s.repo.GetForUpdate(ctx, tx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		first := &domain.UserStats{
			UserID:           userID,
			Username:         username,
			CountToday:       1,
			TotalConfessions: 1,
			LastReset:        today,
		}
		var inserted bool
		inserted, err = s.repo.InsertIfAbsent(ctx, tx, first)
		if err != nil {
			return domain.QuotaDecision{}, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
		}
		if inserted {
			if err := tx.Commit(); err != nil {
				return domain.QuotaDecision{}, fmt.Errorf("%w: failed to commit quota: %v", domain.ErrPersistence, err)
			}
			return domain.QuotaDecision{Allowed: true, Count: 1, Max: s.maxPerDay}, nil
		}
		// Another process created the row between our read and insert.
		current, err = s.repo.GetForUpdate(ctx, tx, userID)
	}
	if err != nil {
		return domain.QuotaDecision{}, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	next, decision := applyQuota(*current, username, today, s.maxPerDay)
	if !decision.Allowed {
		return decision, nil
	}

	if err := s.repo.Update(ctx, tx, &next); err != nil {
		return domain.QuotaDecision{}, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.QuotaDecision{}, fmt.Errorf("%w: failed to commit quota: %v", domain.ErrPersistence, err)
	}
	return decision, nil
}

// applyQuota is the decision table for an existing row. A denied decision
// returns cur unchanged.
func applyQuota(cur domain.UserStats, username, today string, maxPerDay int) (domain.UserStats, domain.QuotaDecision) {
	next := cur
	next.Username = username

	if cur.LastReset != today {
		next.CountToday = 1
		next.TotalConfessions = cur.TotalConfessions + 1
		next.LastReset = today
		return next, domain.QuotaDecision{Allowed: true, Count: 1, Max: maxPerDay}
	}

	if cur.CountToday >= maxPerDay {
		return cur, domain.QuotaDecision{Allowed: false, Count: cur.CountToday, Max: maxPerDay}
	}

	next.CountToday = cur.CountToday + 1
	next.TotalConfessions = cur.TotalConfessions + 1
	return next, domain.QuotaDecision{Allowed: true, Count: next.CountToday, Max: maxPerDay}
}

// Status reports today's usage for userID without consuming anything.
func (s *QuotaService) Status(ctx context.Context, userID int64) (domain.QuotaDecision, error) {
	decision := domain.QuotaDecision{Allowed: true, Max: s.maxPerDay}

	stats, err := s.repo.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return decision, nil
	}
	if err != nil {
		return domain.QuotaDecision{}, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	if stats.LastReset == s.now.today() {
		decision.Count = stats.CountToday
		decision.Allowed = stats.CountToday < s.maxPerDay
	}
	return decision, nil
}
