package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"derivbot/internal/helper"
	"derivbot/internal/models"
)

// Candles возвращает последние limit закрытых свечей, старые первыми.
// Биржа отдаёт список новыми вперёд и с ещё не закрытой последней свечой,
// поэтому порядок разворачивается, а хвост отрезается.
func (c *Client) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]models.CandleTick, error) {
	interval := helper.NormTF(timeframe)
	query := "category=" + c.category +
		"&symbol=" + url.QueryEscape(symbol) +
		"&interval=" + url.QueryEscape(interval) +
		"&limit=" + strconv.Itoa(limit+1)

	data, err := c.doGet(ctx, "/v5/market/kline", query)
	if err != nil {
		return nil, fmt.Errorf("Candles: %w", err)
	}

	var r struct {
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
		Result  struct {
			List [][]string `json:"list"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("Candles decode: %w; body=%s", err, string(data))
	}
	if r.RetCode != 0 {
		return nil, fmt.Errorf("Candles error: retCode=%d retMsg=%s", r.RetCode, r.RetMsg)
	}
	if len(r.Result.List) == 0 {
		return nil, fmt.Errorf("Candles: empty kline list for %s", symbol)
	}

	dur := intervalDuration(interval)

	// list[0] — текущая незакрытая свеча, её пропускаем
	raw := r.Result.List
	if len(raw) > 0 {
		raw = raw[1:]
	}

	res := make([]models.CandleTick, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		row := raw[i]
		if len(row) < 6 {
			continue
		}
		startMs, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			continue
		}
		start := time.UnixMilli(startMs).UTC()
		res = append(res, models.CandleTick{
			Symbol:    symbol,
			Timeframe: timeframe,
			Open:      helper.ParseFloat(row[1]),
			High:      helper.ParseFloat(row[2]),
			Low:       helper.ParseFloat(row[3]),
			Close:     helper.ParseFloat(row[4]),
			Volume:    helper.ParseFloat(row[5]),
			Start:     start,
			End:       start.Add(dur),
		})
	}
	return res, nil
}

func intervalDuration(interval string) time.Duration {
	switch interval {
	case "D":
		return 24 * time.Hour
	case "W":
		return 7 * 24 * time.Hour
	default:
		if m, err := strconv.Atoi(interval); err == nil && m > 0 {
			return time.Duration(m) * time.Minute
		}
		return time.Minute
	}
}
