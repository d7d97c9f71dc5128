package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"derivbot/internal/modules/config"
)

type ServiceNotifier interface {
	SendService(ctx context.Context, format string, args ...any)
}

// HealthProbe — куда стример отмечает состояние соединения и последнюю свечу.
type HealthProbe interface {
	SetWSConnected(v bool)
	TouchTick(t time.Time)
}

// Client — стример закрытых свечей Bybit по публичному WS.
type Client struct {
	cfg    *config.Config
	n      ServiceNotifier
	health HealthProbe

	wsDialer *websocket.Dialer
}

func NewClient(cfg *config.Config, n ServiceNotifier, health HealthProbe) *Client {
	return &Client{
		cfg:      cfg,
		n:        n,
		health:   health,
		wsDialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Start поднимает один стрим на все символы конфигурации.
func (c *Client) Start(ctx context.Context, out chan<- OutTick) {
	symbols := c.cfg.Engine.Symbols
	if len(symbols) == 0 {
		log.Println("[MARKET] пустой список символов — стример не запущен")
		return
	}

	if c.n != nil {
		c.n.SendService(ctx, fmt.Sprintf(
			"🚀 Bybit: WebSocket-стример запущен\n"+
				"• Таймфрейм: %s\n"+
				"• Инструментов: %d (%s)",
			c.cfg.Engine.Timeframe,
			len(symbols),
			strings.Join(symbols, ", "),
		))
	}

	c.streamKlines(ctx, symbols, c.cfg.Engine.Timeframe, out)

	if c.n != nil {
		c.n.SendService(ctx, "⏹ Bybit: WebSocket-стример остановлен")
	}
}
