package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"confessionrelay/internal/domain"
	"confessionrelay/internal/logger"
)

// maxDownloadBytes caps archived photo downloads. Telegram's own bot download
// limit is 20 MB.
const maxDownloadBytes = 20 << 20

// Client wraps the Bot API for outbound traffic: replies to users, channel
// posts and file downloads.
type Client struct {
	bot         *tgbotapi.BotAPI
	channel     string
	botUsername string
	log         *logger.Logger
}

// NewClient authenticates against the Bot API with token.
func NewClient(token, channel, botUsername string, log *logger.Logger) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	if botUsername == "" {
		botUsername = bot.Self.UserName
	}
	return NewClientWithAPI(bot, channel, botUsername, log), nil
}

func NewClientWithAPI(bot *tgbotapi.BotAPI, channel, botUsername string, log *logger.Logger) *Client {
	return &Client{
		bot:         bot,
		channel:     channel,
		botUsername: botUsername,
		log:         log,
	}
}

// API exposes the underlying bot for the update poller.
func (c *Client) API() *tgbotapi.BotAPI {
	return c.bot
}

// Send delivers a Markdown message to chatID. replyTo is the message id to
// quote, or 0. markup may be nil.
func (c *Client) Send(ctx context.Context, chatID int64, text string, replyTo int, markup interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyToMessageID = replyTo
	if markup != nil {
		msg.ReplyMarkup = markup
	}

	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("%w: failed to send message: %v", domain.ErrTransport, err)
	}
	return nil
}

// Publish posts p to the configured channel. Text confessions become a
// message, photo confessions a photo with the confession as caption. Text
// over the message limit is split into several messages, and a caption over
// the caption limit is posted as follow-up messages.
func (c *Client) Publish(ctx context.Context, p *domain.Publication) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch p.Kind {
	case domain.KindText:
		return c.sendChannelTexts(FormatChannelMessages(p, c.botUsername))
	case domain.KindPhoto:
		caption := FormatChannelCaption(p, c.botUsername)
		if utf16Len(caption) <= maxCaptionUnits {
			return c.sendChannelPhoto(p.PhotoRef, caption)
		}
		c.log.Debug("caption over telegram limit, posting text separately", "publication_id", p.ID)
		if err := c.sendChannelPhoto(p.PhotoRef, FormatChannelFooter(p, c.botUsername)); err != nil {
			return err
		}
		return c.sendChannelTexts(FormatChannelBody(p))
	default:
		return fmt.Errorf("unknown publication kind %q: %w", p.Kind, domain.ErrInvalidArgument)
	}
}

func (c *Client) sendChannelTexts(texts []string) error {
	for _, text := range texts {
		if err := c.sendChannelText(text); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) sendChannelText(text string) error {
	var msg tgbotapi.MessageConfig
	if id, ok := c.channelID(); ok {
		msg = tgbotapi.NewMessage(id, text)
	} else {
		msg = tgbotapi.NewMessageToChannel(c.channelUsername(), text)
	}
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("%w: failed to post to channel: %v", domain.ErrTransport, err)
	}
	return nil
}

func (c *Client) sendChannelPhoto(fileID, caption string) error {
	var photo tgbotapi.PhotoConfig
	if id, ok := c.channelID(); ok {
		photo = tgbotapi.NewPhoto(id, tgbotapi.FileID(fileID))
	} else {
		photo = tgbotapi.NewPhotoToChannel(c.channelUsername(), tgbotapi.FileID(fileID))
	}
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeMarkdown

	if _, err := c.bot.Send(photo); err != nil {
		return fmt.Errorf("%w: failed to post photo to channel: %v", domain.ErrTransport, err)
	}
	return nil
}

// DownloadFile fetches the bytes behind a Telegram file id.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := c.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve file: %v", domain.ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := c.bot.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to download file: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: file download returned %s", domain.ErrTransport, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read file: %v", domain.ErrTransport, err)
	}
	if len(data) > maxDownloadBytes {
		return nil, fmt.Errorf("file %s exceeds %d bytes", fileID, maxDownloadBytes)
	}
	return data, nil
}

// channelID parses a numeric chat id such as "-1001234567890".
func (c *Client) channelID() (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.channel), 10, 64)
	return id, err == nil
}

func (c *Client) channelUsername() string {
	name := strings.TrimSpace(c.channel)
	if !strings.HasPrefix(name, "@") {
		name = "@" + name
	}
	return name
}
