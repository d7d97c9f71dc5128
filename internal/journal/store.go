package journal

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"derivbot/internal/events"
	"derivbot/pkg/db"
)

const (
	insertTradeSQL = `
INSERT INTO trades (symbol, side, action, qty, price, pnl, reason, at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	insertEventSQL = `
INSERT INTO events (id, type, severity, payload, at)
VALUES ($1, $2, $3, $4, $5)`
)

// TradeRow — строка журнала сделок. action: open | close.
type TradeRow struct {
	Symbol string
	Side   string
	Action string
	Qty    float64
	Price  float64
	PnL    float64
	Reason string
	At     time.Time
}

// Store — append-only журнал в Postgres. Торговая логика его никогда
// не читает. Без подключения превращается в no-op.
type Store struct {
	db *db.PgTxManager
}

func NewStore(m *db.PgTxManager) *Store {
	return &Store{db: m}
}

func (s *Store) Enabled() bool { return s != nil && s.db != nil }

func (s *Store) InsertTrade(ctx context.Context, row TradeRow) (err error) {
	defer func() {
		if err != nil {
			err = errors.Wrap(err, "journal.InsertTrade")
		}
	}()

	if !s.Enabled() {
		return nil
	}

	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, insertTradeSQL,
			row.Symbol, row.Side, row.Action, row.Qty, row.Price, row.PnL, row.Reason, row.At)
		return err
	})
}

func (s *Store) InsertEvent(ctx context.Context, e events.Event) (err error) {
	defer func() {
		if err != nil {
			err = errors.Wrap(err, "journal.InsertEvent")
		}
	}()

	if !s.Enabled() {
		return nil
	}

	payload, err := sonic.Marshal(e)
	if err != nil {
		return err
	}

	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, insertEventSQL,
			e.ID, string(e.Type), string(e.Severity), payload, e.At)
		return err
	})
}
