package telegram

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"confessionrelay/internal/domain"
)

// Telegram measures both limits in UTF-16 code units after entity parsing.
// Counting the raw Markdown source overestimates, never underestimates.
const (
	maxCaptionUnits = 1024
	maxMessageUnits = 4096
	separator       = "━━━━━━━━━━━━━━━━"
	textHeader      = "📬 *Nueva Confesión Anónima*\n\n"
)

// FormatChannelText renders a text confession for the channel. The body is
// escaped; nothing identifying the author is included.
func FormatChannelText(p *domain.Publication, botUsername string) string {
	return fmt.Sprintf(textHeader+"%s\n\n%s\n💬 ¿Quieres confesar? → @%s\n🔒 100%% Anónimo | 📊 %d/%d hoy",
		Escape(p.Content),
		separator,
		Escape(botUsername),
		p.DailyCount, p.DailyMax,
	)
}

// FormatChannelCaption renders the caption of a photo confession.
func FormatChannelCaption(p *domain.Publication, botUsername string) string {
	return fmt.Sprintf("📬 *Confesión Anónima*\n\n%s\n\n%s", Escape(p.Content), FormatChannelFooter(p, botUsername))
}

// FormatChannelFooter closes a post that had to be split: it is the photo
// caption for long photo confessions and the last message for long text.
func FormatChannelFooter(p *domain.Publication, botUsername string) string {
	return fmt.Sprintf("%s\n💬 Confiesa: @%s\n🔒 Anónimo | 📊 %d/%d hoy",
		separator,
		Escape(botUsername),
		p.DailyCount, p.DailyMax,
	)
}

// Escape neutralizes Markdown control characters in user supplied text.
func Escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

// FormatChannelMessages renders a text confession as one or more channel
// messages, each within Telegram's message limit. A post that does not fit
// is sent as body chunks followed by the footer.
func FormatChannelMessages(p *domain.Publication, botUsername string) []string {
	full := FormatChannelText(p, botUsername)
	if utf16Len(full) <= maxMessageUnits {
		return []string{full}
	}
	return append(FormatChannelBody(p), FormatChannelFooter(p, botUsername))
}

// FormatChannelBody renders only the header and the escaped confession,
// chunked to fit the message limit.
func FormatChannelBody(p *domain.Publication) []string {
	chunks := splitEscaped(p.Content, maxMessageUnits-utf16Len(textHeader))
	out := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if i == 0 {
			chunk = textHeader + chunk
		}
		out = append(out, chunk)
	}
	return out
}

// splitEscaped cuts s into escaped chunks of at most limit UTF-16 units,
// preferring to break on whitespace.
func splitEscaped(s string, limit int) []string {
	var (
		parts []string
		cur   []rune
		units int
	)
	flush := func(n int) {
		if part := strings.TrimSpace(string(cur[:n])); part != "" {
			parts = append(parts, Escape(part))
		}
		cur = append([]rune(nil), cur[n:]...)
		units = 0
		for _, r := range cur {
			units += escapedUnits(r)
		}
	}

	for _, r := range s {
		cost := escapedUnits(r)
		for len(cur) > 0 && units+cost > limit {
			cut := len(cur)
			for i := len(cur) - 1; i > 0; i-- {
				if unicode.IsSpace(cur[i]) {
					cut = i
					break
				}
			}
			flush(cut)
		}
		cur = append(cur, r)
		units += cost
	}
	if len(cur) > 0 {
		flush(len(cur))
	}
	return parts
}

func escapedUnits(r rune) int {
	n := runeUnits(r)
	switch r {
	case '_', '*', '`', '[':
		n++
	}
	return n
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += runeUnits(r)
	}
	return n
}

func runeUnits(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}
