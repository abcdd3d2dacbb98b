package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"tradegate/internal/config"
	"tradegate/internal/model"
)

const apiKeyHeader = "X-API-KEY"

// GMGNClient implements the Venue interface for the GMGN REST API.
type GMGNClient struct {
	logger         *slog.Logger
	endpoint       string
	apiKey         string
	balanceTimeout time.Duration
	orderTimeout   time.Duration
	client         *http.Client
}

// NewGMGNClient creates a new GMGNClient.
func NewGMGNClient(logger *slog.Logger, cfg *config.VenueConfig) *GMGNClient {
	return &GMGNClient{
		logger:         logger,
		endpoint:       strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:         cfg.APIKey,
		balanceTimeout: cfg.BalanceTimeout,
		orderTimeout:   cfg.OrderTimeout,
		client:         &http.Client{},
	}
}

func (g *GMGNClient) GetName() string {
	return "gmgn"
}

type balanceResponse struct {
	Available *decimal.Decimal `json:"available"`
}

// Balance returns the available trading capital.
func (g *GMGNClient) Balance(ctx context.Context) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, g.balanceTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"/account/balance", nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set(apiKeyHeader, g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return decimal.Zero, fmt.Errorf("read balance body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, &VenueError{Venue: g.GetName(), Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var payload balanceResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return decimal.Zero, fmt.Errorf("decode balance: %w", err)
	}
	if payload.Available == nil {
		return decimal.Zero, errors.New("decode balance: missing available")
	}
	return *payload.Available, nil
}

// SubmitOrder posts the order once. There is no retry.
func (g *GMGNClient) SubmitOrder(ctx context.Context, order model.Order) (SubmitResponse, error) {
	body, err := json.Marshal(newOrderPayload(order))
	if err != nil {
		return SubmitResponse{}, fmt.Errorf("marshal order: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.orderTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/orders", bytes.NewReader(body))
	if err != nil {
		return SubmitResponse{}, err
	}
	req.Header.Set(apiKeyHeader, g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	g.logger.Info("GMGNClient: submitting order", "pair", order.Pair, "amount", order.Amount, "side", order.Side)
	resp, err := g.client.Do(req)
	if err != nil {
		return SubmitResponse{}, fmt.Errorf("order request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		// The venue answered; only the body is lost.
		return SubmitResponse{StatusCode: resp.StatusCode}, fmt.Errorf("read order response: %w", err)
	}
	return SubmitResponse{StatusCode: resp.StatusCode, Body: respBody}, nil
}
