package notify

import (
	"context"
	"fmt"
	"log"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"derivbot/internal/modules/config"
)

// Telegram — исходящий нотифайер. Без токена превращается в no-op:
// процесс полноценно торгует, просто молчит.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
}

func NewTelegram(cfg *config.Config) (*Telegram, error) {
	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
		log.Printf("[NOTIFY] telegram выключен: нет токена или chat_id")
		return &Telegram{}, nil
	}

	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("NewTelegram: %w", err)
	}
	return &Telegram{bot: b, chatID: cfg.Telegram.ChatID}, nil
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
		log.Printf("[NOTIFY] send error: %v", err)
	}
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

// SendService — сервисные сообщения (warmup, стример, движок).
func (t *Telegram) SendService(_ context.Context, format string, args ...any) {
	t.Sendf(format, args...)
}
