package engine

import (
	"context"

	"derivbot/internal/models"
	bybit "derivbot/internal/modules/bybit/service"
)

// Gateway — всё, что движку нужно от биржи. Реализуется bybit-клиентом,
// в тестах подменяется фейком.
type Gateway interface {
	Equity(ctx context.Context) (float64, error)
	Positions(ctx context.Context) ([]models.ExchangePosition, error)
	OpenOrders(ctx context.Context, symbol string) ([]models.OpenOrder, error)
	InstrumentLimits(ctx context.Context, symbol string) (models.InstrumentLimits, error)
	PlaceMarketOrder(ctx context.Context, r bybit.PlaceOrderRequest) (string, error)
	ClosePositionMarket(ctx context.Context, symbol string, dir models.Direction, qty float64, linkID string) (string, error)
	CancelAllOrders(ctx context.Context) (int, error)
}
