package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confessionrelay/internal/domain"
)

func TestRecordStampsLocalDateAndCreatesPublication(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	id, err := s.recorder.Record(ctx, domain.NewConfession{
		UserID:     11,
		Content:    words(30),
		Kind:       domain.KindText,
		DailyCount: 2,
		DailyMax:   6,
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	c, err := s.confessions.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", c.DateSent)
	assert.Equal(t, "12:00:00", c.TimeSent)
	assert.Equal(t, domain.KindText, c.Kind)

	p, err := s.publications.GetByConfessionID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.PublicationPending, p.Status)
	assert.Equal(t, 2, p.DailyCount)
	assert.Equal(t, 6, p.DailyMax)
	assert.Zero(t, p.Attempts)
}

func TestRecordRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	cases := []domain.NewConfession{
		{Content: words(30), Kind: domain.KindText},
		{UserID: 1, Content: words(30), Kind: "video"},
		{UserID: 1, Content: "  ", Kind: domain.KindText},
		{UserID: 1, Content: words(30), Kind: domain.KindPhoto},
	}
	for _, nc := range cases {
		_, err := s.recorder.Record(ctx, nc)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	}

	total, err := s.recorder.TotalCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCountsAndStats(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	record := func(userID int64) {
		t.Helper()
		_, err := s.recorder.Record(ctx, domain.NewConfession{UserID: userID, Content: words(30), Kind: domain.KindText, DailyCount: 1, DailyMax: 6})
		require.NoError(t, err)
	}

	record(1)
	record(2)
	s.clock.Advance(24 * time.Hour)
	record(1)
	record(2)
	record(3)

	total, err := s.recorder.TotalCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, total)

	today, err := s.recorder.TodayCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, today)

	_, err = s.quota.CheckAndConsume(ctx, 1, "a")
	require.NoError(t, err)

	stats, err := s.recorder.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 3, stats.Today)
	assert.Equal(t, 1, stats.Users)
	assert.Equal(t, 5, stats.PendingPublications)
	assert.Zero(t, stats.FailedPublications)
}
