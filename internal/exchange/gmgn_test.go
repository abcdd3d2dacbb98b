package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tradegate/internal/config"
	"tradegate/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newGMGN(t *testing.T, h http.HandlerFunc) *GMGNClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewGMGNClient(discardLogger(), &config.VenueConfig{
		Endpoint:       srv.URL,
		APIKey:         "key-123",
		BalanceTimeout: time.Second,
		OrderTimeout:   time.Second,
	})
}

func testOrder() model.Order {
	return model.Order{
		Pair:          "0xPAIR",
		BaseToken:     "0xBASE",
		QuoteToken:    "0xQUOTE",
		Amount:        decimal.RequireFromString("12.345"),
		Price:         decimal.RequireFromString("0.000123"),
		Side:          model.SideBuy,
		Leverage:      3,
		StopLossPct:   decimal.NewFromInt(10),
		TakeProfitPct: decimal.NewFromInt(30),
	}
}

func TestGMGNClient_Balance(t *testing.T) {
	client := newGMGN(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/account/balance", r.URL.Path)
		assert.Equal(t, "key-123", r.Header.Get("X-API-KEY"))
		_, _ = w.Write([]byte(`{"available":"1500.25"}`))
	})

	balance, err := client.Balance(context.Background())
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("1500.25")))
}

func TestGMGNClient_BalanceErrors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		client := newGMGN(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		})
		_, err := client.Balance(context.Background())
		var venueErr *VenueError
		require.True(t, errors.As(err, &venueErr))
		assert.Equal(t, http.StatusUnauthorized, venueErr.Code)
	})

	t.Run("missing field", func(t *testing.T) {
		client := newGMGN(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"total":"10"}`))
		})
		_, err := client.Balance(context.Background())
		assert.Error(t, err)
	})
}

func TestGMGNClient_SubmitOrder(t *testing.T) {
	var calls atomic.Int32
	client := newGMGN(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "key-123", r.Header.Get("X-API-KEY"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "0xPAIR", body["pair"])
		assert.Equal(t, "0xBASE", body["baseToken"])
		assert.Equal(t, "0xQUOTE", body["quoteToken"])
		assert.Equal(t, "12.345", body["amount"])
		assert.Equal(t, "0.000123", body["price"])
		assert.Equal(t, "BUY", body["side"])
		assert.Equal(t, 3.0, body["leverage"])
		assert.Equal(t, "10", body["stopLoss"])
		assert.Equal(t, "30", body["takeProfit"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"orderId":"o-1"}`))
	})

	resp, err := client.SubmitOrder(context.Background(), testOrder())
	require.NoError(t, err)
	assert.True(t, resp.Created())
	assert.JSONEq(t, `{"orderId":"o-1"}`, string(resp.Body))
	assert.Equal(t, int32(1), calls.Load())
}

func TestGMGNClient_SubmitOrderNoRetry(t *testing.T) {
	var calls atomic.Int32
	client := newGMGN(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"message":"venue busy"}`, http.StatusServiceUnavailable)
	})

	resp, err := client.SubmitOrder(context.Background(), testOrder())
	require.NoError(t, err)
	assert.False(t, resp.Created())
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPaperClient(t *testing.T) {
	paper := NewPaperClient(discardLogger(), decimal.NewFromInt(100))

	order := testOrder()
	order.Amount = decimal.NewFromInt(40)
	resp, err := paper.SubmitOrder(context.Background(), order)
	require.NoError(t, err)
	assert.True(t, resp.Created())

	var conf map[string]any
	require.NoError(t, json.Unmarshal(resp.Body, &conf))
	assert.Equal(t, "created", conf["status"])
	assert.Equal(t, true, conf["paper"])
	assert.NotEmpty(t, conf["orderId"])

	balance, err := paper.Balance(context.Background())
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(60)))

	order.Amount = decimal.NewFromInt(61)
	resp, err = paper.SubmitOrder(context.Background(), order)
	require.NoError(t, err)
	assert.False(t, resp.Created())
}

func TestPaperClient_BalanceHonorsCancellation(t *testing.T) {
	paper := NewPaperClient(discardLogger(), decimal.NewFromInt(100))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	balance, err := paper.Balance(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, balance.IsZero())

	balance, err = paper.Balance(context.Background())
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(100)))
}

func TestNewClient(t *testing.T) {
	cfg := &config.VenueConfig{Endpoint: "http://localhost", APIKey: "k", PaperBalance: decimal.NewFromInt(5)}

	v, err := NewClient("gmgn", discardLogger(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "gmgn", v.GetName())

	v, err = NewClient("paper", discardLogger(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "paper", v.GetName())

	_, err = NewClient("kraken", discardLogger(), cfg)
	assert.Error(t, err)
}
