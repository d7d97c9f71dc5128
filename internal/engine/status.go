package engine

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"

	"derivbot/internal/models"
	"derivbot/internal/risk"
)

// statusSnapshot — JSON для внешних health-чекеров, смотрящих в файл,
// а не в HTTP.
type statusSnapshot struct {
	Timestamp     time.Time            `json:"timestamp"`
	Equity        float64              `json:"equity"`
	DailyPnL      float64              `json:"daily_pnl"`
	GuardTier     models.GuardTier     `json:"guard_tier"`
	OpenPositions int                  `json:"open_positions"`
	QueueDepth    int                  `json:"queue_depth"`
	KillSwitch    risk.KillSwitchState `json:"kill_switch"`
}

// writeStatus пишет снимок состояния в статус-файл. Ошибка записи
// логируется и не останавливает цикл.
func (e *Engine) writeStatus() {
	path := e.cfg.Engine.StatusFile
	if path == "" {
		return
	}

	ksState := e.ks.Snapshot()
	snap := statusSnapshot{
		Timestamp:     time.Now().UTC(),
		Equity:        e.equity,
		DailyPnL:      ksState.DailyPnL,
		GuardTier:     e.guard.Snapshot().Tier,
		OpenPositions: e.ledger.Open(),
		QueueDepth:    e.queue.Len(),
		KillSwitch:    ksState,
	}

	data, err := sonic.Marshal(snap)
	if err != nil {
		log.Printf("[ENGINE] статус-файл marshal: %v", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("[ENGINE] статус-файл dir: %v", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Printf("[ENGINE] статус-файл: %v", err)
	}
}
