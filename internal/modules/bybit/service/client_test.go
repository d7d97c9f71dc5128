package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"derivbot/internal/models"
	"derivbot/internal/modules/config"
)

func testClient(baseURL string) *Client {
	cfg := &config.Config{}
	cfg.Bybit.APIKey = "test-key"
	cfg.Bybit.APISecret = "test-secret"
	cfg.Bybit.BaseURL = baseURL
	cfg.Bybit.Category = "linear"
	cfg.Bybit.RecvWindow = 5000
	return NewClient(cfg)
}

func TestEquityParsesWalletBalance(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/account/wallet-balance", r.URL.Path)
		assert.Equal(t, "UNIFIED", r.URL.Query().Get("accountType"))

		// подпись: hex HMAC-SHA256 от ts+key+recvWindow+query
		ts := r.Header.Get("X-BAPI-TIMESTAMP")
		require.NotEmpty(t, ts)
		mac := hmac.New(sha256.New, []byte("test-secret"))
		mac.Write([]byte(ts + "test-key" + "5000" + r.URL.RawQuery))
		assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), r.Header.Get("X-BAPI-SIGN"))

		io.WriteString(w, `{"retCode":0,"retMsg":"OK","result":{"list":[{"totalEquity":"10250.55"}]}}`)
	}))
	defer srv.Close()

	eq, err := testClient(srv.URL).Equity(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 10250.55, eq, 1e-9)
}

func TestEquityRejectsAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"retCode":10003,"retMsg":"API key is invalid."}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Equity(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retCode=10003")
}

func TestInstrumentLimits(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/market/instruments-info", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		io.WriteString(w, `{"retCode":0,"result":{"list":[{
			"symbol":"BTCUSDT","status":"Trading",
			"lotSizeFilter":{"qtyStep":"0.001","minOrderQty":"0.001","maxOrderQty":"500","minNotionalValue":"5"},
			"priceFilter":{"tickSize":"0.1"}}]}}`)
	}))
	defer srv.Close()

	lim, err := testClient(srv.URL).InstrumentLimits(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.InDelta(t, 0.001, lim.QtyStep, 1e-12)
	assert.InDelta(t, 0.001, lim.MinOrderQty, 1e-12)
	assert.InDelta(t, 5, lim.MinNotional, 1e-12)
	assert.InDelta(t, 0.1, lim.TickSize, 1e-12)
}

func TestCandlesReversesAndDropsUnclosed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("interval"))
		// биржа шлёт новые первыми; первая строка — незакрытая свеча
		io.WriteString(w, `{"retCode":0,"result":{"list":[
			["1700000600000","103","104","102","103.5","10","1"],
			["1700000300000","102","103","101","103","20","2"],
			["1700000000000","100","102","99","102","30","3"]]}}`)
	}))
	defer srv.Close()

	candles, err := testClient(srv.URL).Candles(context.Background(), "BTCUSDT", "5m", 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	assert.InDelta(t, 100, candles[0].Open, 1e-12)
	assert.InDelta(t, 102, candles[0].Close, 1e-12)
	assert.InDelta(t, 103, candles[1].Close, 1e-12)
	assert.True(t, candles[0].Start.Before(candles[1].Start))
	assert.Equal(t, candles[1].Start, candles[0].End)
}

func TestPlaceMarketOrderBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/order/create", r.URL.Path)
		body, _ := io.ReadAll(r.Body)

		var got map[string]any
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, "BTCUSDT", got["symbol"])
		assert.Equal(t, "Buy", got["side"])
		assert.Equal(t, "Market", got["orderType"])
		assert.Equal(t, "0.5", got["qty"])
		assert.Equal(t, "49000", got["stopLoss"])
		assert.Equal(t, "51500", got["takeProfit"])
		assert.Equal(t, "link-1", got["orderLinkId"])

		io.WriteString(w, `{"retCode":0,"result":{"orderId":"abc-123"}}`)
	}))
	defer srv.Close()

	orderID, err := testClient(srv.URL).PlaceMarketOrder(context.Background(), PlaceOrderRequest{
		Symbol:      "BTCUSDT",
		Direction:   models.DirectionLong,
		Qty:         0.5,
		StopLoss:    49000,
		TakeProfit:  51500,
		OrderLinkID: "link-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "abc-123", orderID)
}

func TestClosePositionMarketIsReduceOnly(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		var got map[string]any
		require.NoError(t, json.Unmarshal(body, &got))
		// закрытие лонга — это Sell, и только reduce-only
		assert.Equal(t, "Sell", got["side"])
		assert.Equal(t, true, got["reduceOnly"])

		io.WriteString(w, `{"retCode":0,"result":{"orderId":"close-1"}}`)
	}))
	defer srv.Close()

	orderID, err := testClient(srv.URL).ClosePositionMarket(
		context.Background(), "BTCUSDT", models.DirectionLong, 0.5, "link-2")
	require.NoError(t, err)
	assert.Equal(t, "close-1", orderID)
}

func TestDirectionSideMapping(t *testing.T) {
	t.Parallel()

	side, err := sideFor(models.DirectionShort)
	require.NoError(t, err)
	assert.Equal(t, "Sell", side)

	side, err = closeSideFor(models.DirectionShort)
	require.NoError(t, err)
	assert.Equal(t, "Buy", side)

	_, err = sideFor(models.DirectionNone)
	assert.Error(t, err)

	assert.Equal(t, models.DirectionLong, directionFromSide("Buy"))
	assert.Equal(t, models.DirectionShort, directionFromSide("Sell"))
}
