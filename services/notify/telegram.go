// Package notify delivers alert events to people.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"sjsage522/pricewatcher/internal/alert"
	"sjsage522/pricewatcher/internal/model"
	"sjsage522/pricewatcher/logger"
)

// sender is the part of *tgbotapi.BotAPI the notifier uses
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends alert messages to a chat. The target's recipient is used when it is a
// numeric chat id, otherwise the default chat.
type Telegram struct {
	bot         sender
	defaultChat int64
	log         *logger.Logger
}

// NewTelegram authorizes the bot token and returns a notifier
func NewTelegram(token string, defaultChat int64) (*Telegram, error) {
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is not configured")
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	bot.Debug = false

	t := newTelegram(bot, defaultChat)
	t.log.Info().Str("bot", bot.Self.UserName).Msg("telegram bot authorized")
	return t, nil
}

func newTelegram(bot sender, defaultChat int64) *Telegram {
	return &Telegram{
		bot:         bot,
		defaultChat: defaultChat,
		log:         logger.ForDispatcher().WithStr("dispatcher", "telegram"),
	}
}

// Send formats and delivers one alert
func (t *Telegram) Send(ctx context.Context, event alert.Event, target model.Target) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	chatID, err := t.chatFor(target)
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, FormatMessage(event, target))
	msg.DisableWebPagePreview = target.ImageURL == ""
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send to %d: %w", chatID, err)
	}

	t.log.Debug().Str("target_id", target.ID).Int64("chat_id", chatID).Msg("alert sent")
	return nil
}

func (t *Telegram) chatFor(target model.Target) (int64, error) {
	if id, err := strconv.ParseInt(strings.TrimSpace(target.Recipient), 10, 64); err == nil && id != 0 {
		return id, nil
	}
	if t.defaultChat != 0 {
		return t.defaultChat, nil
	}
	return 0, fmt.Errorf("no telegram chat for target %s (recipient %q)", target.ID, target.Recipient)
}

// FormatMessage renders the alert as plain text
func FormatMessage(event alert.Event, target model.Target) string {
	currency := target.Currency
	if currency == "" {
		currency = "₹"
	}
	title := target.Title
	if title == "" {
		title = target.Reference
	}

	var b strings.Builder
	switch event.Kind {
	case alert.PriceDrop:
		b.WriteString("📉 Price drop\n\n")
	case alert.PriceHigh:
		b.WriteString("📈 Price above limit\n\n")
	default:
		b.WriteString("🔔 Price alert\n\n")
	}
	fmt.Fprintf(&b, "Product: %s\n", title)
	fmt.Fprintf(&b, "Platform: %s\n", target.Platform)
	fmt.Fprintf(&b, "Current price: %s%.2f\n", currency, event.Price)
	fmt.Fprintf(&b, "Threshold: %s%.2f\n", currency, event.Threshold)
	if target.URL != "" {
		fmt.Fprintf(&b, "\nLink: %s", target.URL)
	}
	return b.String()
}
