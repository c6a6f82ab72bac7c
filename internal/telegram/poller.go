package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"confessionrelay/internal/logger"
)

// UpdateSource is the long-polling half of the Bot API.
type UpdateSource interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

type UpdateHandler func(ctx context.Context, update tgbotapi.Update)

// Poller pulls updates and hands each one to a bounded pool of workers. A
// failing getUpdates call is retried with exponential backoff instead of
// ending the loop.
type Poller struct {
	source     UpdateSource
	handle     UpdateHandler
	timeout    int
	workers    int
	log        *logger.Logger
	newBackOff func() backoff.BackOff
}

func NewPoller(source UpdateSource, handle UpdateHandler, timeout, workers int, log *logger.Logger) *Poller {
	if workers <= 0 {
		workers = 1
	}
	return &Poller{
		source:     source,
		handle:     handle,
		timeout:    timeout,
		workers:    workers,
		log:        log,
		newBackOff: defaultBackOff,
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = time.Minute
	return b
}

// Run polls until ctx is cancelled, then waits for in-flight updates.
func (p *Poller) Run(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(p.workers)

	// Workers finish the update they hold even after shutdown starts.
	workCtx := context.WithoutCancel(ctx)
	bo := p.newBackOff()
	offset := 0

	p.log.Info("telegram poller started", "workers", p.workers, "timeout", p.timeout)
	for ctx.Err() == nil {
		cfg := tgbotapi.NewUpdate(offset)
		cfg.Timeout = p.timeout
		cfg.AllowedUpdates = []string{"message"}

		updates, err := p.source.GetUpdates(cfg)
		if err != nil {
			wait := bo.NextBackOff()
			if wait == backoff.Stop {
				wait = time.Minute
			}
			if isConflict(err) {
				p.log.Warn("another client is polling this bot, backing off", "retry_in", wait.String(), "error", err)
			} else {
				p.log.Warn("failed to get updates", "retry_in", wait.String(), "error", err)
			}
			if !sleep(ctx, wait) {
				break
			}
			continue
		}
		bo.Reset()

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			g.Go(func() error {
				p.dispatch(workCtx, update)
				return nil
			})
		}
	}

	_ = g.Wait()
	p.log.Info("telegram poller stopped")
	return ctx.Err()
}

func (p *Poller) dispatch(ctx context.Context, update tgbotapi.Update) {
	log := p.log.With("update_id", update.UpdateID, "request_id", uuid.NewString())
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while handling update", "panic", r)
		}
	}()
	p.handle(ctx, update)
}

// isConflict reports a 409 from getUpdates, which means a second process is
// polling with the same token.
func isConflict(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusConflict
	}
	return strings.Contains(err.Error(), "Conflict")
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
