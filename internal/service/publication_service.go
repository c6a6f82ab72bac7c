package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"confessionrelay/internal/domain"
	"confessionrelay/internal/logger"
	"confessionrelay/internal/metrics"
	"confessionrelay/internal/repository"
)

// Publisher posts an anonymized publication to the public channel.
type Publisher interface {
	Publish(ctx context.Context, p *domain.Publication) error
}

// Archiver copies a photo publication to long-term storage and returns the
// object key.
type Archiver interface {
	ArchivePhoto(ctx context.Context, p *domain.Publication) (string, error)
}

type PublicationOptions struct {
	MaxAttempts int
	RetryAfter  time.Duration
	BatchSize   int
}

// PublicationService drives the publication outbox: the immediate publish
// after a confession is recorded and the periodic retry of failures.
// Delivery is at-least-once. A post whose state could not be saved, or a
// split post whose later part failed, is posted again on retry.
type PublicationService struct {
	repo      *repository.PublicationRepository
	publisher Publisher
	archiver  Archiver
	opts      PublicationOptions
	now       Clock
	log       *logger.Logger
}

func NewPublicationService(
	repo *repository.PublicationRepository,
	publisher Publisher,
	archiver Archiver,
	opts PublicationOptions,
	now Clock,
	log *logger.Logger,
) *PublicationService {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	return &PublicationService{
		repo:      repo,
		publisher: publisher,
		archiver:  archiver,
		opts:      opts,
		now:       now,
		log:       log,
	}
}

// PublishConfession makes the first publish attempt for a freshly recorded
// confession. A transport failure leaves the entry failed for the retry loop
// and is returned wrapped in domain.ErrTransport.
func (s *PublicationService) PublishConfession(ctx context.Context, confessionID int64) (bool, error) {
	p, err := s.repo.GetByConfessionID(ctx, confessionID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return s.deliver(ctx, p)
}

// RetryPending re-attempts entries that are still unpublished and idle for at
// least RetryAfter. It returns how many were published.
func (s *PublicationService) RetryPending(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.opts.RetryAfter)
	items, err := s.repo.ListRetryable(ctx, cutoff, s.opts.MaxAttempts, s.opts.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	published := 0
	for i := range items {
		if ctx.Err() != nil {
			return published, ctx.Err()
		}
		ok, err := s.deliver(ctx, &items[i])
		if err != nil {
			s.log.Warn("publication retry failed",
				"publication_id", items[i].ID,
				"attempt", items[i].Attempts+1,
				"max_attempts", s.opts.MaxAttempts,
				"error", err,
			)
			continue
		}
		if ok {
			published++
		}
	}
	return published, nil
}

// Run retries pending publications every interval until ctx is done.
func (s *PublicationService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := s.RetryPending(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				s.log.Error("publication retry pass failed", "error", err)
				continue
			}
			if n > 0 {
				s.log.Info("republished pending confessions", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// deliver claims one attempt and performs it. It returns false without error
// when another worker owns the attempt.
func (s *PublicationService) deliver(ctx context.Context, p *domain.Publication) (bool, error) {
	if p.Status == domain.PublicationPublished {
		return false, nil
	}

	claimed, err := s.repo.Claim(ctx, p.ID, p.Attempts, s.now().UTC())
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if !claimed {
		return false, nil
	}
	p.Attempts++

	if p.Kind == domain.KindPhoto && p.ArchiveKey == "" && s.archiver != nil {
		s.archive(ctx, p)
	}

	if err := s.publisher.Publish(ctx, p); err != nil {
		metrics.ObservePublication("failed")
		if markErr := s.repo.MarkFailed(ctx, p.ID, err.Error(), s.now().UTC()); markErr != nil {
			s.log.Error("failed to mark publication failed", "publication_id", p.ID, "error", markErr)
		}
		return false, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	metrics.ObservePublication("published")

	if err := s.repo.MarkPublished(ctx, p.ID, s.now().UTC()); err != nil {
		s.log.Error("posted but failed to mark publication published, it will be posted again",
			"publication_id", p.ID, "error", err)
		return true, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	p.Status = domain.PublicationPublished
	return true, nil
}

// archive is best effort; a failed upload never blocks the channel post.
func (s *PublicationService) archive(ctx context.Context, p *domain.Publication) {
	key, err := s.archiver.ArchivePhoto(ctx, p)
	if err != nil {
		metrics.ObserveArchive("failed")
		s.log.Warn("failed to archive photo", "publication_id", p.ID, "error", err)
		return
	}
	metrics.ObserveArchive("stored")

	if err := s.repo.SetArchiveKey(ctx, p.ID, key, s.now().UTC()); err != nil {
		s.log.Warn("failed to save archive key", "publication_id", p.ID, "error", err)
		return
	}
	p.ArchiveKey = key
}
