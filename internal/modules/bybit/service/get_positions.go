package service

import (
	"context"
	"encoding/json"
	"fmt"

	"derivbot/internal/helper"
	"derivbot/internal/models"
)

// Positions возвращает открытые позиции по всем USDT-перпам.
// Записи с нулевым размером (режим one-way отдаёт и такие) отбрасываются.
func (c *Client) Positions(ctx context.Context) ([]models.ExchangePosition, error) {
	query := "category=" + c.category + "&settleCoin=USDT&limit=200"
	data, err := c.doGet(ctx, "/v5/position/list", query)
	if err != nil {
		return nil, fmt.Errorf("Positions: %w", err)
	}

	var r struct {
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
		Result  struct {
			List []struct {
				Symbol        string `json:"symbol"`
				Side          string `json:"side"`
				Size          string `json:"size"`
				AvgPrice      string `json:"avgPrice"`
				MarkPrice     string `json:"markPrice"`
				StopLoss      string `json:"stopLoss"`
				TakeProfit    string `json:"takeProfit"`
				UnrealisedPnl string `json:"unrealisedPnl"`
			} `json:"list"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("Positions decode: %w; body=%s", err, string(data))
	}
	if r.RetCode != 0 {
		return nil, fmt.Errorf("Positions error: retCode=%d retMsg=%s", r.RetCode, r.RetMsg)
	}

	res := make([]models.ExchangePosition, 0, len(r.Result.List))
	for _, p := range r.Result.List {
		size := helper.ParseFloat(p.Size)
		if size <= 0 {
			continue
		}
		res = append(res, models.ExchangePosition{
			Symbol:     p.Symbol,
			Direction:  directionFromSide(p.Side),
			Quantity:   size,
			EntryPrice: helper.ParseFloat(p.AvgPrice),
			MarkPrice:  helper.ParseFloat(p.MarkPrice),
			StopLoss:   helper.ParseFloat(p.StopLoss),
			TakeProfit: helper.ParseFloat(p.TakeProfit),
			UnrealPnL:  helper.ParseFloat(p.UnrealisedPnl),
		})
	}
	return res, nil
}
