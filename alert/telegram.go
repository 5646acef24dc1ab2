package alert

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramChannel pushes alerts to a Telegram chat.
type TelegramChannel struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramChannel authenticates the bot eagerly so a bad token fails at
// startup rather than at the first halt.
func NewTelegramChannel(token string, chatID int64) (*TelegramChannel, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("alert: telegram auth: %w", err)
	}
	return &TelegramChannel{bot: bot, chatID: chatID}, nil
}

func (c *TelegramChannel) Send(a Alert) error {
	text := fmt.Sprintf("[%s] %s", a.Level, a.Message)
	_, err := c.bot.Send(tgbotapi.NewMessage(c.chatID, text))
	return err
}

func (c *TelegramChannel) Name() string { return "telegram" }
