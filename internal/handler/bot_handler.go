package handler

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"confessionrelay/internal/domain"
	"confessionrelay/internal/logger"
	"confessionrelay/internal/service"
	"confessionrelay/internal/telegram"
)

type Sender interface {
	Send(ctx context.Context, chatID int64, text string, replyTo int, markup interface{}) error
}

type SubmissionProcessor interface {
	Process(ctx context.Context, sub domain.Submission) domain.Outcome
}

type StatsProvider interface {
	Stats(ctx context.Context) (*domain.Stats, error)
}

type QuotaReader interface {
	Status(ctx context.Context, userID int64) (domain.QuotaDecision, error)
}

type BotOptions struct {
	SupportUsername string
	BotUsername     string
	AdminID         int64
	MaxPerDay       int
	MinWords        int
	MaxChars        int
}

// BotHandler answers commands and routes every other direct message into the
// submission pipeline.
type BotHandler struct {
	sender   Sender
	pipeline SubmissionProcessor
	stats    StatsProvider
	quota    QuotaReader
	opts     BotOptions
	log      *logger.Logger
}

func NewBotHandler(
	sender Sender,
	pipeline SubmissionProcessor,
	stats StatsProvider,
	quota QuotaReader,
	opts BotOptions,
	log *logger.Logger,
) *BotHandler {
	return &BotHandler{
		sender:   sender,
		pipeline: pipeline,
		stats:    stats,
		quota:    quota,
		opts:     opts,
		log:      log,
	}
}

func (h *BotHandler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil {
		return
	}
	h.HandleMessage(ctx, update.Message)
}

func (h *BotHandler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("panic while handling message", "user_id", msg.From.ID, "panic", r)
			h.reply(ctx, msg, genericErrorText, nil)
		}
	}()

	if msg.IsCommand() {
		h.handleCommand(ctx, msg)
		return
	}
	if msg.Text == service.LabelSupport {
		h.handleSupport(ctx, msg)
		return
	}

	out := h.pipeline.Process(ctx, telegram.Normalize(msg))
	h.replyOutcome(ctx, msg, out)
}

func (h *BotHandler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		h.handleStart(ctx, msg)
	case "help":
		h.send(ctx, msg.Chat.ID, helpText(h.opts), nil)
	case "soporte", "contacto", "admin":
		h.handleSupport(ctx, msg)
	case "stats", "estadisticas":
		h.handleStats(ctx, msg)
	}
}

func (h *BotHandler) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	quota, err := h.quota.Status(ctx, msg.From.ID)
	if err != nil {
		h.log.Warn("failed to read quota status", "user_id", msg.From.ID, "error", err)
		quota = domain.QuotaDecision{Allowed: true, Max: h.opts.MaxPerDay}
	}

	keyboard := tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(service.LabelSubmit),
		tgbotapi.NewKeyboardButton(service.LabelSupport),
	))
	keyboard.ResizeKeyboard = true

	h.send(ctx, msg.Chat.ID, startText(msg.From.FirstName, h.opts, quota), keyboard)
}

func (h *BotHandler) handleSupport(ctx context.Context, msg *tgbotapi.Message) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonURL("📩 Contactar a @"+h.opts.SupportUsername, "https://t.me/"+h.opts.SupportUsername),
	))
	h.send(ctx, msg.Chat.ID, supportText(h.opts), keyboard)
}

func (h *BotHandler) handleStats(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From.ID != h.opts.AdminID {
		h.reply(ctx, msg, adminOnlyText, nil)
		return
	}

	stats, err := h.stats.Stats(ctx)
	if err != nil {
		h.log.Error("failed to load stats", "error", err)
		h.reply(ctx, msg, genericErrorText, nil)
		return
	}
	h.send(ctx, msg.Chat.ID, statsText(stats, msg.From.FirstName, h.opts), nil)
}

func (h *BotHandler) replyOutcome(ctx context.Context, msg *tgbotapi.Message, out domain.Outcome) {
	switch out.Status {
	case domain.OutcomeAccepted:
		h.reply(ctx, msg, acceptedText(out), nil)
	case domain.OutcomeRejectedQuota:
		h.reply(ctx, msg, quotaReachedText(out), nil)
	case domain.OutcomeRejectedContent:
		switch out.Reason {
		case domain.ReasonTooShort:
			h.reply(ctx, msg, tooShortText(out, h.opts.MinWords), nil)
		case domain.ReasonTooLong:
			h.reply(ctx, msg, tooLongText(h.opts.MaxChars), nil)
		case domain.ReasonMissingCaption:
			h.reply(ctx, msg, missingCaptionText(h.opts.MinWords), nil)
		}
	case domain.OutcomeFailed:
		h.reply(ctx, msg, genericErrorText, nil)
	}
}

func (h *BotHandler) reply(ctx context.Context, msg *tgbotapi.Message, text string, markup interface{}) {
	if err := h.sender.Send(ctx, msg.Chat.ID, text, msg.MessageID, markup); err != nil {
		h.log.Warn("failed to reply", "user_id", msg.From.ID, "error", err)
	}
}

func (h *BotHandler) send(ctx context.Context, chatID int64, text string, markup interface{}) {
	if err := h.sender.Send(ctx, chatID, text, 0, markup); err != nil {
		h.log.Warn("failed to send message", "error", err)
	}
}
