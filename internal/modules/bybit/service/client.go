package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"derivbot/internal/models"
	"derivbot/internal/modules/config"
)

// Client — приватный и публичный REST Bybit V5.
// Подпись: hex(HMAC-SHA256(secret, ts + apiKey + recvWindow + payload)),
// payload для GET — query string, для POST — сырое JSON-тело.
type Client struct {
	http *http.Client

	apiKey     string
	apiSecret  string
	baseURL    string
	category   string
	recvWindow string
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		http:       &http.Client{Timeout: 10 * time.Second},
		apiKey:     cfg.Bybit.APIKey,
		apiSecret:  cfg.Bybit.APISecret,
		baseURL:    cfg.Bybit.BaseURL,
		category:   cfg.Bybit.Category,
		recvWindow: strconv.Itoa(cfg.Bybit.RecvWindow),
	}
}

func (c *Client) sign(ts, payload string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(ts + c.apiKey + c.recvWindow + payload))
	return hex.EncodeToString(h.Sum(nil))
}

// doGet — GET с подписью по query string. Возвращает сырое тело,
// парсинг и проверка retCode — на вызывающей стороне.
func (c *Client) doGet(ctx context.Context, path, query string) ([]byte, error) {
	url := c.baseURL + path
	if query != "" {
		url += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.setAuthHeaders(req, query)

	return c.execute(req)
}

// doPost — POST с подписью по JSON-телу.
func (c *Client) doPost(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.setAuthHeaders(req, string(body))
	req.Header.Set("Content-Type", "application/json")

	return c.execute(req)
}

func (c *Client) setAuthHeaders(req *http.Request, payload string) {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	req.Header.Set("X-BAPI-API-KEY", c.apiKey)
	req.Header.Set("X-BAPI-TIMESTAMP", ts)
	req.Header.Set("X-BAPI-RECV-WINDOW", c.recvWindow)
	req.Header.Set("X-BAPI-SIGN", c.sign(ts, payload))
}

func (c *Client) execute(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}

// sideFor — направление позиции в сторону ордера Bybit.
func sideFor(dir models.Direction) (string, error) {
	switch dir {
	case models.DirectionLong:
		return "Buy", nil
	case models.DirectionShort:
		return "Sell", nil
	default:
		return "", fmt.Errorf("unsupported direction %q", dir)
	}
}

// closeSideFor — сторона закрывающего ордера, противоположная позиции.
func closeSideFor(dir models.Direction) (string, error) {
	switch dir {
	case models.DirectionLong:
		return "Sell", nil
	case models.DirectionShort:
		return "Buy", nil
	default:
		return "", fmt.Errorf("unsupported direction %q", dir)
	}
}

func directionFromSide(side string) models.Direction {
	switch side {
	case "Buy":
		return models.DirectionLong
	case "Sell":
		return models.DirectionShort
	default:
		return models.DirectionNone
	}
}
