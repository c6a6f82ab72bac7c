package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"confessionrelay/internal/domain"
	"confessionrelay/internal/logger"
	"confessionrelay/internal/metrics"
)

// Labels of the reply keyboard shown by /start. Tapping them sends the label
// as plain text, which must never be taken for a confession.
const (
	LabelSubmit  = "📝 Enviar Confesión"
	LabelSupport = "📞 Contacto Soporte"
)

type QuotaGate interface {
	CheckAndConsume(ctx context.Context, userID int64, username string) (domain.QuotaDecision, error)
}

type Recorder interface {
	Record(ctx context.Context, nc domain.NewConfession) (int64, error)
}

type PublicationDispatcher interface {
	PublishConfession(ctx context.Context, confessionID int64) (bool, error)
}

// SubmissionService runs one inbound message through quota, validation,
// recording and publication.
type SubmissionService struct {
	quota     QuotaGate
	validator *Validator
	recorder  Recorder
	publisher PublicationDispatcher
	labels    map[string]struct{}
	log       *logger.Logger
}

func NewSubmissionService(
	quota QuotaGate,
	validator *Validator,
	recorder Recorder,
	publisher PublicationDispatcher,
	log *logger.Logger,
) *SubmissionService {
	return &SubmissionService{
		quota:     quota,
		validator: validator,
		recorder:  recorder,
		publisher: publisher,
		labels: map[string]struct{}{
			LabelSubmit:  {},
			LabelSupport: {},
		},
		log: log,
	}
}

// Process never returns an error: faults are reported as a failed outcome
// with Err set.
func (s *SubmissionService) Process(ctx context.Context, sub domain.Submission) (out domain.Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in submission pipeline", "user_id", sub.UserID, "panic", r)
			out = domain.Outcome{
				Status: domain.OutcomeFailed,
				Kind:   out.Kind,
				Count:  out.Count,
				Max:    out.Max,
				Err:    fmt.Errorf("%w: panic: %v", domain.ErrPersistence, r),
			}
		}
		metrics.ObserveOutcome(out)
		metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	}()

	if s.shouldIgnore(sub) {
		return domain.Outcome{Status: domain.OutcomeIgnored}
	}

	payload := sub.Payload()
	out.Kind = payload.Kind

	decision, err := s.quota.CheckAndConsume(ctx, sub.UserID, sub.Username)
	if err != nil {
		s.log.Error("quota check failed", "user_id", sub.UserID, "error", err)
		out.Status = domain.OutcomeFailed
		out.Err = err
		return out
	}
	out.Count, out.Max = decision.Count, decision.Max

	if !decision.Allowed {
		s.log.Info("submission rejected by daily quota", "user_id", sub.UserID, "count", decision.Count, "max", decision.Max)
		out.Status = domain.OutcomeRejectedQuota
		out.Err = domain.ErrQuotaExceeded
		return out
	}

	// The quota unit is already spent here; a content rejection keeps it.
	result := s.validator.Validate(payload)
	out.WordCount = result.WordCount
	if !result.OK {
		s.log.Info("submission rejected by content policy", "user_id", sub.UserID, "reason", result.Reason, "words", result.WordCount)
		out.Status = domain.OutcomeRejectedContent
		out.Reason = result.Reason
		out.Err = result.Reason.Err()
		return out
	}

	id, err := s.recorder.Record(ctx, domain.NewConfession{
		UserID:     sub.UserID,
		Content:    payload.Body,
		Kind:       payload.Kind,
		PhotoRef:   sub.PhotoRef,
		DailyCount: decision.Count,
		DailyMax:   decision.Max,
	})
	if err != nil {
		s.log.Error("failed to record confession", "user_id", sub.UserID, "error", err)
		out.Status = domain.OutcomeFailed
		out.Err = err
		return out
	}
	out.ConfessionID = id
	out.Status = domain.OutcomeAccepted

	published, err := s.publisher.PublishConfession(ctx, id)
	switch {
	case errors.Is(err, domain.ErrTransport):
		s.log.Warn("failed to publish confession, left for retry", "confession_id", id, "error", err)
	case err != nil:
		s.log.Error("publication bookkeeping failed", "confession_id", id, "error", err)
	}
	out.Published = published

	s.log.Info("confession accepted", "confession_id", id, "kind", payload.Kind, "count", decision.Count, "max", decision.Max, "published", published)
	return out
}

func (s *SubmissionService) shouldIgnore(sub domain.Submission) bool {
	if sub.IsBot || sub.IsCommand {
		return true
	}
	if !sub.HasPhoto() {
		if sub.Text == "" || strings.HasPrefix(sub.Text, "/") {
			return true
		}
		if _, ok := s.labels[sub.Text]; ok {
			return true
		}
	}
	return false
}
