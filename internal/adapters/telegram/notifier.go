package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/regime"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/logger"
)

// Notifier pushes regime flip alerts to a single chat
type Notifier struct {
	api     *tgbotapi.BotAPI
	chatID  int64
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewNotifier creates a new alert notifier
func NewNotifier(token string, chatID int64) (*Notifier, error) {
	if token == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "telegram bot token is required")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create telegram bot")
	}

	return &Notifier{
		api:     api,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Limit(20), 30), // Telegram caps at 30 msg/sec
		log:     logger.Get().With("component", "telegram_notifier"),
	}, nil
}

// NotifyRegimeChange sends a formatted flip alert
func (n *Notifier) NotifyRegimeChange(ctx context.Context, previous regime.Type, c *regime.Classification) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}

	text := fmt.Sprintf(
		"⚡ *%s %s* regime flip\n`%s` to `%s` (%s)\nconfidence %.3f\n_%s_",
		c.Symbol, c.Timeframe, previous, c.Regime, c.Direction, c.Confidence, c.Reason,
	)

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.api.Send(msg); err != nil {
		return errors.Wrap(err, "failed to send regime alert")
	}

	n.log.Debugf("Sent regime flip alert for %s/%s", c.Symbol, c.Timeframe)
	return nil
}
