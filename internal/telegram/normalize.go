package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"confessionrelay/internal/domain"
)

// Normalize maps an inbound message to the transport-neutral submission.
// Of the photo sizes Telegram sends, the largest one is kept.
func Normalize(msg *tgbotapi.Message) domain.Submission {
	if msg == nil {
		return domain.Submission{}
	}

	sub := domain.Submission{
		Text:      msg.Text,
		Caption:   msg.Caption,
		IsCommand: msg.IsCommand(),
	}
	if msg.From != nil {
		sub.UserID = msg.From.ID
		sub.Username = msg.From.UserName
		sub.IsBot = msg.From.IsBot
	}
	if len(msg.Photo) > 0 {
		sub.PhotoRef = largestPhoto(msg.Photo).FileID
	}
	return sub
}

func largestPhoto(sizes []tgbotapi.PhotoSize) tgbotapi.PhotoSize {
	best := sizes[len(sizes)-1]
	for _, s := range sizes {
		if s.Width*s.Height > best.Width*best.Height {
			best = s
		}
	}
	return best
}
