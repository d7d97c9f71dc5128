package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"derivbot/internal/helper"
	"derivbot/internal/models"
)

// InstrumentLimits возвращает торговые ограничения инструмента:
// шаг количества, минимальный объём и минимальный номинал.
func (c *Client) InstrumentLimits(ctx context.Context, symbol string) (models.InstrumentLimits, error) {
	query := "category=" + c.category + "&symbol=" + url.QueryEscape(symbol)
	data, err := c.doGet(ctx, "/v5/market/instruments-info", query)
	if err != nil {
		return models.InstrumentLimits{}, fmt.Errorf("InstrumentLimits: %w", err)
	}

	var r struct {
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
		Result  struct {
			List []struct {
				Symbol        string `json:"symbol"`
				Status        string `json:"status"`
				LotSizeFilter struct {
					QtyStep          string `json:"qtyStep"`
					MinOrderQty      string `json:"minOrderQty"`
					MaxOrderQty      string `json:"maxOrderQty"`
					MinNotionalValue string `json:"minNotionalValue"`
				} `json:"lotSizeFilter"`
				PriceFilter struct {
					TickSize string `json:"tickSize"`
				} `json:"priceFilter"`
			} `json:"list"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return models.InstrumentLimits{}, fmt.Errorf("InstrumentLimits decode: %w; body=%s", err, string(data))
	}
	if r.RetCode != 0 {
		return models.InstrumentLimits{}, fmt.Errorf("InstrumentLimits error: retCode=%d retMsg=%s", r.RetCode, r.RetMsg)
	}
	if len(r.Result.List) == 0 {
		return models.InstrumentLimits{}, fmt.Errorf("InstrumentLimits: symbol %s not found", symbol)
	}

	inst := r.Result.List[0]
	if inst.Status != "" && inst.Status != "Trading" {
		return models.InstrumentLimits{}, fmt.Errorf("InstrumentLimits: %s not trading: status=%s", symbol, inst.Status)
	}

	qtyStep := helper.ParseFloat(inst.LotSizeFilter.QtyStep)
	minQty := helper.ParseFloat(inst.LotSizeFilter.MinOrderQty)
	if qtyStep <= 0 || minQty <= 0 {
		return models.InstrumentLimits{}, fmt.Errorf(
			"InstrumentLimits: bad lot filter qtyStep=%q minOrderQty=%q",
			inst.LotSizeFilter.QtyStep, inst.LotSizeFilter.MinOrderQty,
		)
	}

	return models.InstrumentLimits{
		Symbol:      inst.Symbol,
		QtyStep:     qtyStep,
		MinOrderQty: minQty,
		MinNotional: helper.ParseFloat(inst.LotSizeFilter.MinNotionalValue),
		TickSize:    helper.ParseFloat(inst.PriceFilter.TickSize),
		MaxOrderQty: helper.ParseFloat(inst.LotSizeFilter.MaxOrderQty),
	}, nil
}
