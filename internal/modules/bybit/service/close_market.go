package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"

	"derivbot/internal/helper"
	"derivbot/internal/models"
)

// ClosePositionMarket закрывает позицию рыночным reduce-only ордером.
// reduce-only гарантирует, что при гонке с биржевым стопом позиция
// не перевернётся в противоположную.
func (c *Client) ClosePositionMarket(ctx context.Context, symbol string, dir models.Direction, qty float64, linkID string) (string, error) {
	side, err := closeSideFor(dir)
	if err != nil {
		return "", fmt.Errorf("ClosePositionMarket: %w", err)
	}
	if qty <= 0 {
		return "", fmt.Errorf("ClosePositionMarket: qty <= 0")
	}

	body := map[string]any{
		"category":    c.category,
		"symbol":      symbol,
		"side":        side,
		"orderType":   "Market",
		"qty":         helper.FormatQty(qty),
		"timeInForce": "IOC",
		"reduceOnly":  true,
	}
	if linkID != "" {
		body["orderLinkId"] = linkID
	}

	payload, err := sonic.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("ClosePositionMarket marshal: %w", err)
	}

	data, err := c.doPost(ctx, "/v5/order/create", payload)
	if err != nil {
		return "", fmt.Errorf("ClosePositionMarket: %w", err)
	}

	var resp struct {
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
		Result  struct {
			OrderID string `json:"orderId"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("ClosePositionMarket decode: %w; body=%s", err, string(data))
	}
	if resp.RetCode != 0 {
		return "", fmt.Errorf("ClosePositionMarket rejected: retCode=%d retMsg=%s RAW=%s", resp.RetCode, resp.RetMsg, string(data))
	}
	return resp.Result.OrderID, nil
}
