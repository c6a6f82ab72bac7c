package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"confessionrelay/internal/database/testutil"
	"confessionrelay/internal/domain"
	"confessionrelay/internal/logger"
	"confessionrelay/internal/repository"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakePublisher struct {
	mu        sync.Mutex
	published []domain.Publication
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, pub *domain.Publication) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, *pub)
	return nil
}

func (p *fakePublisher) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

type fakeArchiver struct {
	calls int
	err   error
}

func (a *fakeArchiver) ArchivePhoto(_ context.Context, p *domain.Publication) (string, error) {
	a.calls++
	if a.err != nil {
		return "", a.err
	}
	return "confessions/test/" + p.ID + ".jpg", nil
}

var errChannelDown = errors.New("channel unavailable")

// words returns a text of n whitespace-separated words.
func words(n int) string {
	return strings.TrimSpace(strings.Repeat("palabra ", n))
}

// stack is a fully wired service graph over a fresh in-memory store.
type stack struct {
	db           *sqlx.DB
	clock        *fakeClock
	users        *repository.UserStatsRepository
	confessions  *repository.ConfessionRepository
	publications *repository.PublicationRepository
	quota        *QuotaService
	recorder     *ConfessionService
	publisher    *fakePublisher
	outbox       *PublicationService
	pipeline     *SubmissionService
}

func newStack(t *testing.T) *stack {
	t.Helper()
	db := testutil.NewDB(t)
	clock := newFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local))

	s := &stack{
		db:           db,
		clock:        clock,
		users:        repository.NewUserStatsRepository(db),
		confessions:  repository.NewConfessionRepository(db),
		publications: repository.NewPublicationRepository(db),
		publisher:    &fakePublisher{},
	}
	s.quota = NewQuotaService(s.users, 6, clock.Now)
	s.recorder = NewConfessionService(s.confessions, s.users, s.publications, clock.Now)
	s.outbox = NewPublicationService(s.publications, s.publisher, nil,
		PublicationOptions{MaxAttempts: 3, RetryAfter: time.Minute}, clock.Now, logger.NewNop())
	s.pipeline = NewSubmissionService(s.quota, NewValidator(25, 4000), s.recorder, s.outbox, logger.NewNop())
	return s
}
