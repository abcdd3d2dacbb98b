package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PairSnapshot represents a single market data fetch for a trading pair.
// It is created per request and never mutated.
type PairSnapshot struct {
	PairAddress string
	BaseToken   string
	QuoteToken  string
	Creator     string
	PriceUSD    decimal.Decimal
	Liquidity   LiquidityMetrics
	Volume      VolumeMetrics
	Txns        TxnMetrics
	Holders     *HolderMetrics
}

// LiquidityMetrics holds pool liquidity figures.
type LiquidityMetrics struct {
	USD decimal.Decimal
}

// VolumeMetrics holds traded volume in USD over rolling windows.
type VolumeMetrics struct {
	M5  decimal.Decimal
	H1  decimal.Decimal
	H6  decimal.Decimal
	H24 decimal.Decimal
}

// TxnMetrics holds buy/sell transaction counts over the last 24h.
type TxnMetrics struct {
	Buys  int64
	Sells int64
}

// HolderMetrics describes token holder distribution.
type HolderMetrics struct {
	Count        int64
	TopHolderPct decimal.Decimal
}

// CheckVerdict is the outcome of a single security check.
type CheckVerdict struct {
	Passed bool
	Reason string
}

// Pass returns a passing verdict.
func Pass() CheckVerdict {
	return CheckVerdict{Passed: true}
}

// Fail returns a failing verdict carrying reason.
func Fail(reason string) CheckVerdict {
	return CheckVerdict{Passed: false, Reason: reason}
}

// ApprovalResult aggregates the verdicts of a security analysis run.
type ApprovalResult struct {
	Approved bool
	Message  string
	// Check is the name of the first failing check, empty when approved.
	Check string
}

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Order is the venue order constructed right before submission.
type Order struct {
	Pair          string
	BaseToken     string
	QuoteToken    string
	Amount        decimal.Decimal
	Price         decimal.Decimal
	Side          Side
	Leverage      int
	StopLossPct   decimal.Decimal
	TakeProfitPct decimal.Decimal
}

// Outcome tags a TradeResult.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeRejected Outcome = "rejected"
	OutcomeError    Outcome = "error"
)

// TradeResult is the single return contract of a workflow run.
// Exactly one of Confirmation, Reason or Message is meaningful, depending on Outcome.
type TradeResult struct {
	Outcome      Outcome         `json:"status"`
	Confirmation json.RawMessage `json:"order,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	Message      string          `json:"message,omitempty"`
}

// Success wraps a venue confirmation payload.
func Success(confirmation json.RawMessage) TradeResult {
	return TradeResult{Outcome: OutcomeSuccess, Confirmation: confirmation}
}

// Rejected reports an expected, non-exceptional refusal to trade.
func Rejected(reason string) TradeResult {
	return TradeResult{Outcome: OutcomeRejected, Reason: reason}
}

// Failed reports an error that prevented the workflow from completing.
func Failed(message string) TradeResult {
	return TradeResult{Outcome: OutcomeError, Message: message}
}

// Detail returns the human readable part of the result.
func (r TradeResult) Detail() string {
	switch r.Outcome {
	case OutcomeSuccess:
		return string(r.Confirmation)
	case OutcomeRejected:
		return r.Reason
	default:
		return r.Message
	}
}

// DecisionRecord represents a completed workflow run to be journaled.
type DecisionRecord struct {
	ID           int64           `db:"id"`
	RunID        string          `db:"run_id"`
	Timestamp    time.Time       `db:"timestamp"`
	PairAddress  string          `db:"pair_address"`
	Outcome      Outcome         `db:"outcome"`
	Detail       string          `db:"detail"`
	FailedCheck  string          `db:"failed_check"`
	Amount       decimal.Decimal `db:"amount"`
	Price        decimal.Decimal `db:"price"`
	Confirmation json.RawMessage `db:"confirmation"`
}
