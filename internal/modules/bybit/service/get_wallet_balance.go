package service

import (
	"context"
	"encoding/json"
	"fmt"

	"derivbot/internal/helper"
)

// Equity возвращает суммарную стоимость единого аккаунта в USD.
func (c *Client) Equity(ctx context.Context) (float64, error) {
	data, err := c.doGet(ctx, "/v5/account/wallet-balance", "accountType=UNIFIED")
	if err != nil {
		return 0, fmt.Errorf("Equity: %w", err)
	}

	var r struct {
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
		Result  struct {
			List []struct {
				TotalEquity string `json:"totalEquity"`
			} `json:"list"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return 0, fmt.Errorf("Equity decode: %w; body=%s", err, string(data))
	}
	if r.RetCode != 0 {
		return 0, fmt.Errorf("Equity error: retCode=%d retMsg=%s", r.RetCode, r.RetMsg)
	}
	if len(r.Result.List) == 0 {
		return 0, fmt.Errorf("Equity: empty account list RAW=%s", string(data))
	}

	eq := helper.ParseFloat(r.Result.List[0].TotalEquity)
	if eq <= 0 {
		return 0, fmt.Errorf("Equity: totalEquity <= 0 (%q)", r.Result.List[0].TotalEquity)
	}
	return eq, nil
}
