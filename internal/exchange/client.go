package exchange

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"tradegate/internal/model"
)

// StatusCreated is the venue status code of an accepted order.
const StatusCreated = 201

// Venue defines the standard interface for all trading venues.
type Venue interface {
	GetName() string
	Balance(ctx context.Context) (decimal.Decimal, error)
	// SubmitOrder sends the order exactly once. A non-nil error means the
	// transport failed; any venue answer is returned as a SubmitResponse.
	SubmitOrder(ctx context.Context, order model.Order) (SubmitResponse, error)
}

// SubmitResponse is the raw venue answer to an order submission.
type SubmitResponse struct {
	StatusCode int
	Body       json.RawMessage
}

// Created reports whether the venue accepted the order.
func (r SubmitResponse) Created() bool {
	return r.StatusCode == StatusCreated
}

// VenueError is returned for non-success answers to read requests.
type VenueError struct {
	Venue string
	Code  int
	Body  string
}

func (e *VenueError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Venue, e.Code, e.Body)
}

// orderPayload is the wire format of an order.
type orderPayload struct {
	Pair       string          `json:"pair"`
	BaseToken  string          `json:"baseToken"`
	QuoteToken string          `json:"quoteToken"`
	Amount     decimal.Decimal `json:"amount"`
	Price      decimal.Decimal `json:"price"`
	Side       model.Side      `json:"side"`
	Leverage   int             `json:"leverage"`
	StopLoss   decimal.Decimal `json:"stopLoss"`
	TakeProfit decimal.Decimal `json:"takeProfit"`
}

func newOrderPayload(o model.Order) orderPayload {
	return orderPayload{
		Pair:       o.Pair,
		BaseToken:  o.BaseToken,
		QuoteToken: o.QuoteToken,
		Amount:     o.Amount,
		Price:      o.Price,
		Side:       o.Side,
		Leverage:   o.Leverage,
		StopLoss:   o.StopLossPct,
		TakeProfit: o.TakeProfitPct,
	}
}
