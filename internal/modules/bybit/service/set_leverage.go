package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"

	"derivbot/internal/helper"
)

// кросс-маржа уже с нужным плечом — не ошибка
const retCodeLeverageNotModified = 110043

// SetLeverage выставляет плечо по символу (одинаковое для обеих сторон).
func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage float64) error {
	if leverage <= 0 {
		return fmt.Errorf("SetLeverage: leverage <= 0")
	}

	lev := helper.FormatQty(leverage)
	payload, err := sonic.Marshal(map[string]string{
		"category":     c.category,
		"symbol":       symbol,
		"buyLeverage":  lev,
		"sellLeverage": lev,
	})
	if err != nil {
		return fmt.Errorf("SetLeverage marshal: %w", err)
	}

	data, err := c.doPost(ctx, "/v5/position/set-leverage", payload)
	if err != nil {
		return fmt.Errorf("SetLeverage: %w", err)
	}

	var resp struct {
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("SetLeverage decode: %w; body=%s", err, string(data))
	}
	if resp.RetCode != 0 && resp.RetCode != retCodeLeverageNotModified {
		return fmt.Errorf("SetLeverage rejected: retCode=%d retMsg=%s", resp.RetCode, resp.RetMsg)
	}
	return nil
}
