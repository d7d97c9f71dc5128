package service

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"derivbot/internal/helper"
	"derivbot/internal/models"
)

// OutTick — закрытая свеча наружу (в хаб сигналов).
type OutTick struct {
	Symbol    string
	Timeframe string
	Candle    models.CandleTick
}

// streamKlines — один WebSocket с пачкой kline-топиков.
// Переподключается сам, пока контекст жив.
func (c *Client) streamKlines(ctx context.Context, symbols []string, timeframe string, out chan<- OutTick) {
	interval := helper.NormTF(timeframe)

	topics := make([]string, 0, len(symbols))
	for _, s := range symbols {
		topics = append(topics, "kline."+interval+"."+s)
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		log.Printf("[WS] connect %s, топиков: %d", c.cfg.Bybit.WSURL, len(topics))
		conn, _, err := c.wsDialer.DialContext(ctx, c.cfg.Bybit.WSURL, nil)
		if err != nil {
			log.Printf("[WS] dial error: %v", err)
			time.Sleep(time.Second)
			continue
		}

		sub := map[string]any{
			"op":   "subscribe",
			"args": topics,
		}
		if err := conn.WriteJSON(sub); err != nil {
			log.Printf("[WS] subscribe error: %v", err)
			_ = conn.Close()
			time.Sleep(time.Second)
			continue
		}
		if c.health != nil {
			c.health.SetWSConnected(true)
		}

		// keepalive ping каждые 20s — иначе Bybit рвёт соединение
		stopPing := make(chan struct{})
		go func() {
			t := time.NewTicker(20 * time.Second)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-stopPing:
					return
				case <-t.C:
					_ = conn.WriteJSON(map[string]string{"op": "ping"})
				}
			}
		}()

		// основной read-loop
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				log.Printf("[WS] read error: %v", err)
				_ = conn.Close()
				close(stopPing)
				if c.health != nil {
					c.health.SetWSConnected(false)
				}
				break
			}

			var frame struct {
				Topic string `json:"topic"`
				Data  []struct {
					Start    int64  `json:"start"`
					End      int64  `json:"end"`
					Interval string `json:"interval"`
					Open     string `json:"open"`
					High     string `json:"high"`
					Low      string `json:"low"`
					Close    string `json:"close"`
					Volume   string `json:"volume"`
					Confirm  bool   `json:"confirm"`
				} `json:"data"`
			}
			if err := json.Unmarshal(msg, &frame); err != nil {
				continue
			}
			if !strings.HasPrefix(frame.Topic, "kline.") || len(frame.Data) == 0 {
				continue
			}

			// символ — третий сегмент топика kline.<interval>.<symbol>
			parts := strings.Split(frame.Topic, ".")
			if len(parts) != 3 {
				continue
			}
			symbol := parts[2]

			for _, row := range frame.Data {
				if !row.Confirm {
					continue // ждём закрытую свечу
				}

				closep := helper.ParseFloat(row.Close)
				if closep <= 0 {
					continue
				}

				tick := models.CandleTick{
					Symbol:    symbol,
					Timeframe: timeframe,
					Open:      helper.ParseFloat(row.Open),
					High:      helper.ParseFloat(row.High),
					Low:       helper.ParseFloat(row.Low),
					Close:     closep,
					Volume:    helper.ParseFloat(row.Volume),
					Start:     time.UnixMilli(row.Start).UTC(),
					End:       time.UnixMilli(row.End).UTC(),
				}

				select {
				case out <- OutTick{Symbol: symbol, Timeframe: timeframe, Candle: tick}:
					if c.health != nil {
						c.health.TouchTick(time.Now())
					}
				case <-ctx.Done():
					_ = conn.Close()
					return
				}
			}
		}

		select {
		case <-ctx.Done():
			return
		default:
			time.Sleep(time.Second)
		}
	}
}
