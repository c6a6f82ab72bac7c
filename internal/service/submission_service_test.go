package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confessionrelay/internal/domain"
	"confessionrelay/internal/logger"
)

func textFrom(userID int64, text string) domain.Submission {
	return domain.Submission{UserID: userID, Username: "autor", Text: text}
}

func TestProcessAcceptsAndPublishesText(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	out := s.pipeline.Process(ctx, textFrom(1, words(30)))
	require.NoError(t, out.Err)
	assert.Equal(t, domain.OutcomeAccepted, out.Status)
	assert.Equal(t, domain.KindText, out.Kind)
	assert.Equal(t, 30, out.WordCount)
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, 6, out.Max)
	assert.True(t, out.Published)

	require.Equal(t, 1, s.publisher.count())
	pub := s.publisher.published[0]
	assert.Equal(t, words(30), pub.Content)
	assert.Equal(t, 1, pub.DailyCount)

	total, err := s.recorder.TotalCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestProcessSeventhSubmissionRejectedByQuota(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	for i := 0; i < 6; i++ {
		out := s.pipeline.Process(ctx, textFrom(1, words(30)))
		require.Equal(t, domain.OutcomeAccepted, out.Status)
	}

	out := s.pipeline.Process(ctx, textFrom(1, words(30)))
	assert.Equal(t, domain.OutcomeRejectedQuota, out.Status)
	assert.ErrorIs(t, out.Err, domain.ErrQuotaExceeded)
	assert.Equal(t, 6, out.Count)

	total, err := s.recorder.TotalCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	assert.Equal(t, 6, s.publisher.count())
}

func TestProcessShortTextStillConsumesQuota(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	out := s.pipeline.Process(ctx, textFrom(1, words(10)))
	assert.Equal(t, domain.OutcomeRejectedContent, out.Status)
	assert.Equal(t, domain.ReasonTooShort, out.Reason)
	assert.ErrorIs(t, out.Err, domain.ErrContentTooShort)
	assert.Equal(t, 10, out.WordCount)

	stats, err := s.users.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CountToday)

	total, err := s.recorder.TotalCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, s.publisher.count())
}

func TestProcessPhotoWithoutCaption(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	out := s.pipeline.Process(ctx, domain.Submission{UserID: 1, PhotoRef: "file-1"})
	assert.Equal(t, domain.OutcomeRejectedContent, out.Status)
	assert.Equal(t, domain.KindPhoto, out.Kind)
	assert.Equal(t, domain.ReasonMissingCaption, out.Reason)

	out = s.pipeline.Process(ctx, domain.Submission{UserID: 1, PhotoRef: "file-2", Caption: words(25)})
	assert.Equal(t, domain.OutcomeAccepted, out.Status)
	assert.Equal(t, 2, out.Count)

	require.Equal(t, 1, s.publisher.count())
	assert.Equal(t, "file-2", s.publisher.published[0].PhotoRef)
	assert.Equal(t, domain.KindPhoto, s.publisher.published[0].Kind)
}

func TestProcessIgnoresNonConfessions(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	cases := map[string]domain.Submission{
		"bot author":    {UserID: 1, IsBot: true, Text: words(30)},
		"command":       {UserID: 1, IsCommand: true, Text: "/start"},
		"slash text":    {UserID: 1, Text: "/algo " + words(30)},
		"submit label":  {UserID: 1, Text: LabelSubmit},
		"support label": {UserID: 1, Text: LabelSupport},
		"empty message": {UserID: 1},
	}
	for name, sub := range cases {
		t.Run(name, func(t *testing.T) {
			out := s.pipeline.Process(ctx, sub)
			assert.Equal(t, domain.OutcomeIgnored, out.Status)
		})
	}

	_, err := s.users.Get(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProcessPublishFailureIsStillAccepted(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	s.publisher.setErr(errChannelDown)

	out := s.pipeline.Process(ctx, textFrom(1, words(30)))
	assert.Equal(t, domain.OutcomeAccepted, out.Status)
	assert.False(t, out.Published)
	assert.NoError(t, out.Err)

	stats, err := s.recorder.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.FailedPublications)
}

type failingRecorder struct{ calls int }

func (r *failingRecorder) Record(context.Context, domain.NewConfession) (int64, error) {
	r.calls++
	return 0, domain.ErrPersistence
}

type panickingGate struct{}

func (panickingGate) CheckAndConsume(context.Context, int64, string) (domain.QuotaDecision, error) {
	panic("boom")
}

func TestProcessRecorderFailure(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	rec := &failingRecorder{}
	pipeline := NewSubmissionService(s.quota, NewValidator(25, 4000), rec, s.outbox, logger.NewNop())

	out := pipeline.Process(ctx, textFrom(1, words(30)))
	assert.Equal(t, domain.OutcomeFailed, out.Status)
	assert.True(t, errors.Is(out.Err, domain.ErrPersistence))
	assert.Equal(t, 1, rec.calls)
	assert.Zero(t, s.publisher.count())
}

func TestProcessRecoversFromPanic(t *testing.T) {
	s := newStack(t)
	pipeline := NewSubmissionService(panickingGate{}, NewValidator(25, 4000), s.recorder, s.outbox, logger.NewNop())

	var out domain.Outcome
	assert.NotPanics(t, func() {
		out = pipeline.Process(context.Background(), textFrom(1, words(30)))
	})
	assert.Equal(t, domain.OutcomeFailed, out.Status)
	assert.Error(t, out.Err)
}
