package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"tradegate/internal/exchange"
	"tradegate/internal/model"
)

// Executor submits orders to a venue and interprets the answer.
type Executor struct {
	logger *slog.Logger
	venue  exchange.Venue
}

// NewExecutor creates a new Executor.
func NewExecutor(logger *slog.Logger, venue exchange.Venue) *Executor {
	return &Executor{
		logger: logger,
		venue:  venue,
	}
}

// Venue returns the venue orders are submitted to.
func (e *Executor) Venue() exchange.Venue {
	return e.venue
}

// Submit makes exactly one submission attempt for order. Once sent, the
// request is not cancelled by ctx; only the venue timeout bounds it.
func (e *Executor) Submit(ctx context.Context, order model.Order) model.TradeResult {
	resp, err := e.venue.SubmitOrder(context.WithoutCancel(ctx), order)

	if resp.Created() {
		if err != nil {
			e.logger.Warn("Executor: order created but confirmation unreadable", "pair", order.Pair, "error", err)
		}
		e.logger.Info("Executor: order executed", "pair", order.Pair, "amount", order.Amount, "confirmation", string(resp.Body))
		return model.Success(resp.Body)
	}

	if err != nil {
		e.logger.Error("Executor: trading error", "pair", order.Pair, "error", err)
		return model.Failed(err.Error())
	}

	msg := venueMessage(resp)
	e.logger.Error("Executor: order failed", "pair", order.Pair, "status", resp.StatusCode, "message", msg)
	return model.Failed(msg)
}

// venueMessage extracts the venue's error text from a rejected submission.
func venueMessage(resp exchange.SubmitResponse) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Msg     string `json:"msg"`
	}
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		for _, m := range []string{body.Message, body.Error, body.Msg} {
			if m != "" {
				return m
			}
		}
	}
	if text := strings.TrimSpace(string(resp.Body)); text != "" {
		return text
	}
	return fmt.Sprintf("venue returned status %d", resp.StatusCode)
}
