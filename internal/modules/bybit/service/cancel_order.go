package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

// CancelOrder снимает один активный ордер.
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	if orderID == "" {
		return fmt.Errorf("CancelOrder: empty orderID")
	}

	payload, err := sonic.Marshal(map[string]string{
		"category": c.category,
		"symbol":   symbol,
		"orderId":  orderID,
	})
	if err != nil {
		return fmt.Errorf("CancelOrder marshal: %w", err)
	}

	data, err := c.doPost(ctx, "/v5/order/cancel", payload)
	if err != nil {
		return fmt.Errorf("CancelOrder: %w", err)
	}

	var resp struct {
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("CancelOrder decode: %w; body=%s", err, string(data))
	}
	if resp.RetCode != 0 {
		return fmt.Errorf("CancelOrder rejected: retCode=%d retMsg=%s", resp.RetCode, resp.RetMsg)
	}
	return nil
}
