package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"derivbot/internal/helper"
	"derivbot/internal/models"
)

// OpenOrders возвращает активные ордера по символу, включая условные
// (стопы и тейки). Из них восстанавливаются уровни при переподхвате.
func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]models.OpenOrder, error) {
	query := "category=" + c.category + "&symbol=" + url.QueryEscape(symbol) + "&openOnly=0&limit=50"
	data, err := c.doGet(ctx, "/v5/order/realtime", query)
	if err != nil {
		return nil, fmt.Errorf("OpenOrders: %w", err)
	}

	var r struct {
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
		Result  struct {
			List []struct {
				OrderID      string `json:"orderId"`
				Symbol       string `json:"symbol"`
				Side         string `json:"side"`
				Qty          string `json:"qty"`
				Price        string `json:"price"`
				TriggerPrice string `json:"triggerPrice"`
				StopOrderT   string `json:"stopOrderType"`
				StopLoss     string `json:"stopLoss"`
				TakeProfit   string `json:"takeProfit"`
				ReduceOnly   bool   `json:"reduceOnly"`
			} `json:"list"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("OpenOrders decode: %w; body=%s", err, string(data))
	}
	if r.RetCode != 0 {
		return nil, fmt.Errorf("OpenOrders error: retCode=%d retMsg=%s", r.RetCode, r.RetMsg)
	}

	res := make([]models.OpenOrder, 0, len(r.Result.List))
	for _, o := range r.Result.List {
		ord := models.OpenOrder{
			OrderID:    o.OrderID,
			Symbol:     o.Symbol,
			Side:       o.Side,
			Qty:        helper.ParseFloat(o.Qty),
			Price:      helper.ParseFloat(o.Price),
			StopLoss:   helper.ParseFloat(o.StopLoss),
			TakeProfit: helper.ParseFloat(o.TakeProfit),
			ReduceOnly: o.ReduceOnly,
		}

		// условный ордер несёт уровень в triggerPrice
		trigger := helper.ParseFloat(o.TriggerPrice)
		switch o.StopOrderT {
		case "StopLoss", "Stop":
			if ord.StopLoss == 0 {
				ord.StopLoss = trigger
			}
		case "TakeProfit":
			if ord.TakeProfit == 0 {
				ord.TakeProfit = trigger
			}
		}
		res = append(res, ord)
	}
	return res, nil
}
