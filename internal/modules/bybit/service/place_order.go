package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"

	"derivbot/internal/helper"
	"derivbot/internal/models"
)

// PlaceOrderRequest — рыночный вход с биржевыми SL/TP в одном запросе.
type PlaceOrderRequest struct {
	Symbol      string
	Direction   models.Direction
	Qty         float64
	StopLoss    float64
	TakeProfit  float64
	OrderLinkID string
}

// PlaceMarketOrder выставляет рыночный ордер со стопом и тейком.
// Возвращает orderId биржи.
func (c *Client) PlaceMarketOrder(ctx context.Context, r PlaceOrderRequest) (string, error) {
	side, err := sideFor(r.Direction)
	if err != nil {
		return "", fmt.Errorf("PlaceMarketOrder: %w", err)
	}
	if r.Qty <= 0 {
		return "", fmt.Errorf("PlaceMarketOrder: qty <= 0")
	}

	body := map[string]any{
		"category":    c.category,
		"symbol":      r.Symbol,
		"side":        side,
		"orderType":   "Market",
		"qty":         helper.FormatQty(r.Qty),
		"timeInForce": "IOC",
	}
	if r.OrderLinkID != "" {
		body["orderLinkId"] = r.OrderLinkID
	}
	if r.StopLoss > 0 {
		body["stopLoss"] = helper.FormatPrice(r.StopLoss)
		body["slTriggerBy"] = "MarkPrice"
	}
	if r.TakeProfit > 0 {
		body["takeProfit"] = helper.FormatPrice(r.TakeProfit)
		body["tpTriggerBy"] = "MarkPrice"
	}

	payload, err := sonic.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("PlaceMarketOrder marshal: %w", err)
	}

	data, err := c.doPost(ctx, "/v5/order/create", payload)
	if err != nil {
		return "", fmt.Errorf("PlaceMarketOrder: %w", err)
	}

	var resp struct {
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
		Result  struct {
			OrderID string `json:"orderId"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("PlaceMarketOrder decode: %w; body=%s", err, string(data))
	}
	if resp.RetCode != 0 {
		return "", fmt.Errorf("PlaceMarketOrder rejected: retCode=%d retMsg=%s RAW=%s", resp.RetCode, resp.RetMsg, string(data))
	}
	if resp.Result.OrderID == "" {
		return "", fmt.Errorf("PlaceMarketOrder: empty orderId RAW=%s", string(data))
	}
	return resp.Result.OrderID, nil
}
