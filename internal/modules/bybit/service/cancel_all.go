package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

// CancelAllOrders снимает все активные ордера по USDT-перпам.
// Вызывается при срабатывании kill switch.
func (c *Client) CancelAllOrders(ctx context.Context) (int, error) {
	payload, err := sonic.Marshal(map[string]string{
		"category":   c.category,
		"settleCoin": "USDT",
	})
	if err != nil {
		return 0, fmt.Errorf("CancelAllOrders marshal: %w", err)
	}

	data, err := c.doPost(ctx, "/v5/order/cancel-all", payload)
	if err != nil {
		return 0, fmt.Errorf("CancelAllOrders: %w", err)
	}

	var resp struct {
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
		Result  struct {
			List []struct {
				OrderID string `json:"orderId"`
			} `json:"list"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, fmt.Errorf("CancelAllOrders decode: %w; body=%s", err, string(data))
	}
	if resp.RetCode != 0 {
		return 0, fmt.Errorf("CancelAllOrders rejected: retCode=%d retMsg=%s", resp.RetCode, resp.RetMsg)
	}
	return len(resp.Result.List), nil
}
