package service

import (
	"context"
	"sync"
	"time"

	"derivbot/internal/models"
	"derivbot/internal/modules/config"
	marketws "derivbot/internal/modules/market_ws/service"
	regimesvc "derivbot/internal/modules/regime/service"
)

type ServiceNotifier interface {
	SendService(ctx context.Context, format string, args ...any)
}

// Hub — единственный потребитель свечей. Порядок жёсткий: сначала свечу видит
// режимный классификатор, потом генератор сигналов. Сигналы уходят в движок
// неблокирующе: отстающий движок теряет сигнал, а не тормозит стрим.
type Hub struct {
	cfg    *config.Config
	n      ServiceNotifier
	regime *regimesvc.Filter
	engine Engine
	out    chan<- models.PrimarySignal

	mu            sync.Mutex
	readyCnt      int
	ready         map[string]bool
	warmupDone    bool
	warmupMsgSent bool
	lastProgress  time.Time
	startedAt     time.Time
}

func NewHub(cfg *config.Config, n ServiceNotifier, regime *regimesvc.Filter, engine Engine, out chan<- models.PrimarySignal) *Hub {
	return &Hub{
		cfg:       cfg,
		n:         n,
		regime:    regime,
		engine:    engine,
		out:       out,
		ready:     make(map[string]bool),
		startedAt: time.Now(),
	}
}

func (h *Hub) OnTick(ctx context.Context, t marketws.OutTick) {
	ct := t.Candle

	h.regime.OnCandle(ct)

	sig, ok, becameReady := h.engine.OnCandle(ct)

	// прогресс прогрева
	if becameReady {
		h.onBecameReady(ctx, ct.Symbol)
	} else {
		h.maybeWarmupProgress(ctx)
	}

	// блокируем сигналы пока прогрев не окончен
	if !ok || !h.isWarmupDone() {
		return
	}

	select {
	case h.out <- sig:
	default:
		if h.n != nil {
			h.n.SendService(ctx, "⚠️ канал сигналов переполнен, дроп %s %s @ %.6f",
				sig.Symbol, sig.Direction, sig.Price)
		}
	}
}

func (h *Hub) onBecameReady(ctx context.Context, sym string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ready[sym] {
		return
	}
	h.ready[sym] = true
	h.readyCnt++

	expected := len(h.cfg.Engine.Symbols)

	// старт (один раз)
	if !h.warmupMsgSent {
		h.warmupMsgSent = true
		h.lastProgress = time.Now()
		if h.n != nil {
			h.n.SendService(ctx,
				"🔥 Warmup started | engine=%s | tf=%s | ожидаем=%d",
				h.engine.Name(), h.cfg.Engine.Timeframe, expected,
			)
		}
	}

	// done
	if !h.warmupDone && h.readyCnt >= expected {
		h.warmupDone = true
		if h.n != nil {
			h.n.SendService(ctx,
				"✅ Warmup finished: %d/%d ready за %s. Теперь ждём сигналы.",
				h.readyCnt, expected, time.Since(h.startedAt).Round(time.Second),
			)
		}
	}
}

func (h *Hub) maybeWarmupProgress(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.warmupMsgSent || h.warmupDone || h.n == nil {
		return
	}
	if h.cfg.Signals.WarmupProgressEvery <= 0 {
		return
	}
	if time.Since(h.lastProgress) < h.cfg.Signals.WarmupProgressEvery {
		return
	}

	h.n.SendService(ctx, "⏳ Warmup progress: %d/%d ready", h.readyCnt, len(h.cfg.Engine.Symbols))
	h.lastProgress = time.Now()
}

func (h *Hub) isWarmupDone() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.warmupDone
}
