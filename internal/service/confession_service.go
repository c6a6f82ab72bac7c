package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"confessionrelay/internal/domain"
	"confessionrelay/internal/repository"
)

// ConfessionService persists accepted confessions together with their
// pending publication and answers the aggregate counters.
type ConfessionService struct {
	confessions  *repository.ConfessionRepository
	users        *repository.UserStatsRepository
	publications *repository.PublicationRepository
	now          Clock
}

func NewConfessionService(
	confessions *repository.ConfessionRepository,
	users *repository.UserStatsRepository,
	publications *repository.PublicationRepository,
	now Clock,
) *ConfessionService {
	return &ConfessionService{
		confessions:  confessions,
		users:        users,
		publications: publications,
		now:          now,
	}
}

// Record appends one confession stamped with the server-local date and time
// and returns its id.
func (s *ConfessionService) Record(ctx context.Context, nc domain.NewConfession) (int64, error) {
	if nc.UserID == 0 {
		return 0, fmt.Errorf("user id is required: %w", domain.ErrInvalidArgument)
	}
	if !nc.Kind.Valid() {
		return 0, fmt.Errorf("unknown confession kind %q: %w", nc.Kind, domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(nc.Content) == "" {
		return 0, fmt.Errorf("confession content is empty: %w", domain.ErrInvalidArgument)
	}
	if nc.Kind == domain.KindPhoto && nc.PhotoRef == "" {
		return 0, fmt.Errorf("photo confession has no photo reference: %w", domain.ErrInvalidArgument)
	}

	now := s.now()
	c := &domain.Confession{
		UserID:   nc.UserID,
		Content:  nc.Content,
		Kind:     nc.Kind,
		DateSent: now.Format(domain.DateLayout),
		TimeSent: now.Format(domain.TimeLayout),
	}
	p := &domain.Publication{
		ID:         uuid.NewString(),
		Kind:       nc.Kind,
		Content:    nc.Content,
		PhotoRef:   nc.PhotoRef,
		DailyCount: nc.DailyCount,
		DailyMax:   nc.DailyMax,
		Status:     domain.PublicationPending,
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}

	if err := s.confessions.CreateWithPublication(ctx, c, p); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return c.ID, nil
}

func (s *ConfessionService) TotalCount(ctx context.Context) (int, error) {
	n, err := s.confessions.CountAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return n, nil
}

// TodayCount counts confessions whose server-local date is today.
func (s *ConfessionService) TodayCount(ctx context.Context) (int, error) {
	n, err := s.confessions.CountByDate(ctx, s.now.today())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return n, nil
}

func (s *ConfessionService) Stats(ctx context.Context) (*domain.Stats, error) {
	total, err := s.TotalCount(ctx)
	if err != nil {
		return nil, err
	}
	today, err := s.TodayCount(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	pending, err := s.publications.CountByStatus(ctx, domain.PublicationPending)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	failed, err := s.publications.CountByStatus(ctx, domain.PublicationFailed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	return &domain.Stats{
		Total:               total,
		Today:               today,
		Users:               users,
		PendingPublications: pending,
		FailedPublications:  failed,
		GeneratedAt:         s.now().UTC(),
	}, nil
}
