package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confessionrelay/internal/domain"
	"confessionrelay/internal/logger"
)

func recordText(t *testing.T, s *stack) int64 {
	t.Helper()
	id, err := s.recorder.Record(context.Background(), domain.NewConfession{
		UserID: 1, Content: words(30), Kind: domain.KindText, DailyCount: 1, DailyMax: 6,
	})
	require.NoError(t, err)
	return id
}

func TestPublishConfessionMarksPublished(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	id := recordText(t, s)

	ok, err := s.outbox.PublishConfession(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, s.publisher.count())

	p, err := s.publications.GetByConfessionID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.PublicationPublished, p.Status)
	assert.Equal(t, 1, p.Attempts)

	ok, err = s.outbox.PublishConfession(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, s.publisher.count())
}

func TestPublishConfessionTransportFailure(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	s.publisher.setErr(errChannelDown)
	id := recordText(t, s)

	ok, err := s.outbox.PublishConfession(ctx, id)
	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrTransport)

	p, err := s.publications.GetByConfessionID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.PublicationFailed, p.Status)
	assert.Contains(t, p.LastError, "channel unavailable")
}

func TestRetryPendingRespectsGraceAndAttempts(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	s.publisher.setErr(errChannelDown)
	id := recordText(t, s)

	_, err := s.outbox.PublishConfession(ctx, id)
	require.Error(t, err)

	n, err := s.outbox.RetryPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "entry touched less than a minute ago")

	s.clock.Advance(2 * time.Minute)
	n, err = s.outbox.RetryPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	s.clock.Advance(2 * time.Minute)
	n, err = s.outbox.RetryPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	p, err := s.publications.GetByConfessionID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Attempts)

	s.publisher.setErr(nil)
	s.clock.Advance(2 * time.Minute)
	n, err = s.outbox.RetryPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "attempts exhausted")
	assert.Zero(t, s.publisher.count())
}

func TestRetryPendingPublishesRecoveredEntries(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	s.publisher.setErr(errChannelDown)
	first := recordText(t, s)
	second := recordText(t, s)
	_, _ = s.outbox.PublishConfession(ctx, first)

	s.publisher.setErr(nil)
	s.clock.Advance(5 * time.Minute)

	n, err := s.outbox.RetryPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, id := range []int64{first, second} {
		p, err := s.publications.GetByConfessionID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.PublicationPublished, p.Status)
	}
}

func TestPhotoArchiveIsBestEffort(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	archiver := &fakeArchiver{err: errors.New("bucket gone")}
	outbox := NewPublicationService(s.publications, s.publisher, archiver,
		PublicationOptions{MaxAttempts: 3, RetryAfter: time.Minute}, s.clock.Now, logger.NewNop())

	id, err := s.recorder.Record(ctx, domain.NewConfession{
		UserID: 1, Content: words(30), Kind: domain.KindPhoto, PhotoRef: "file-1", DailyCount: 1, DailyMax: 6,
	})
	require.NoError(t, err)

	ok, err := outbox.PublishConfession(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, archiver.calls)

	p, err := s.publications.GetByConfessionID(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, p.ArchiveKey)

	archiver.err = nil
	id, err = s.recorder.Record(ctx, domain.NewConfession{
		UserID: 1, Content: words(30), Kind: domain.KindPhoto, PhotoRef: "file-2", DailyCount: 2, DailyMax: 6,
	})
	require.NoError(t, err)
	_, err = outbox.PublishConfession(ctx, id)
	require.NoError(t, err)

	p, err = s.publications.GetByConfessionID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "confessions/test/"+p.ID+".jpg", p.ArchiveKey)
}

func TestPublishedButUnrecordedIsPostedAgain(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	id := recordText(t, s)

	_, err := s.db.Exec(`CREATE TRIGGER block_published BEFORE UPDATE ON publications
        WHEN NEW.status = 'published'
        BEGIN SELECT RAISE(ABORT, 'disk I/O error'); END`)
	require.NoError(t, err)

	ok, err := s.outbox.PublishConfession(ctx, id)
	assert.True(t, ok, "the channel post went out")
	assert.ErrorIs(t, err, domain.ErrPersistence)

	p, err := s.publications.GetByConfessionID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.PublicationPending, p.Status)

	_, err = s.db.Exec(`DROP TRIGGER block_published`)
	require.NoError(t, err)

	s.clock.Advance(2 * time.Minute)
	n, err := s.outbox.RetryPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, s.publisher.count(), "delivery is at-least-once")
}
