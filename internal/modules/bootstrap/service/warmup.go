package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	bybit "derivbot/internal/modules/bybit/service"
	"derivbot/internal/modules/config"
	marketws "derivbot/internal/modules/market_ws/service"
	signals "derivbot/internal/modules/signals/service"
)

type ServiceNotifier interface {
	SendService(ctx context.Context, format string, args ...any)
}

// Warmuper прогревает индикаторы REST-историей до старта стрима,
// чтобы движок не ждал десятки живых свечей.
type Warmuper struct {
	bb  *bybit.Client
	hub *signals.Hub
	n   ServiceNotifier

	cfg *config.Config

	// ограничитель параллелизма, чтобы не словить rate limit
	sem chan struct{}
}

func NewWarmuper(bb *bybit.Client, hub *signals.Hub, n ServiceNotifier, cfg *config.Config) *Warmuper {
	return &Warmuper{
		bb:  bb,
		hub: hub,
		n:   n,
		cfg: cfg,
		sem: make(chan struct{}, 8), // 8 параллельных символов
	}
}

// ApplyLeverage выставляет плечо по каждому символу. Ошибка не фатальна:
// продолжает действовать плечо, выставленное раньше.
func (w *Warmuper) ApplyLeverage(ctx context.Context, symbols []string) {
	for _, sym := range symbols {
		if err := w.bb.SetLeverage(ctx, sym, w.cfg.Risk.MaxLeverage); err != nil {
			log.Printf("[BOOT] set leverage %s: %v", sym, err)
			continue
		}
		log.Printf("[BOOT] leverage %s -> %.0fx", sym, w.cfg.Risk.MaxLeverage)
	}
}

func (w *Warmuper) Warmup(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}

	need := w.cfg.Engine.WarmupCandles
	tf := w.cfg.Engine.Timeframe

	w.n.SendService(ctx, fmt.Sprintf("🔥 REST warmup start: symbols=%d tf=%s(%d)",
		len(symbols), tf, need,
	))

	var wg sync.WaitGroup
	var firstErr error
	var mu sync.Mutex

	for _, sym := range symbols {
		sym := sym
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.sem <- struct{}{}
			defer func() { <-w.sem }()

			hist, err := w.bb.Candles(ctx, sym, tf, need)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("warmup %s: %w", sym, err)
				}
				mu.Unlock()
				return
			}

			for _, c := range hist {
				w.hub.OnTick(ctx, marketws.OutTick{
					Symbol:    sym,
					Timeframe: tf,
					Candle:    c,
				})
			}
		}()
	}

	wg.Wait()

	if firstErr != nil {
		w.n.SendService(ctx, "⚠️ REST warmup finished with error: "+firstErr.Error())
		return firstErr
	}

	w.n.SendService(ctx, "✅ REST warmup finished. WS can start immediately.")
	return nil
}
