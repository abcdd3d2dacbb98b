package trader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"tradegate/internal/config"
	"tradegate/internal/database"
	"tradegate/internal/execution"
	"tradegate/internal/marketdata"
	"tradegate/internal/metrics"
	"tradegate/internal/model"
	"tradegate/internal/security"
)

// Workflow stages, in order.
const (
	StageFetching   = "fetching"
	StageAnalyzing  = "analyzing"
	StageSizing     = "sizing"
	StageSubmitting = "submitting"
)

// Options holds the collaborators of a Trader. Repo and Metrics are optional.
type Options struct {
	Provider marketdata.Provider
	Engine   *security.Engine
	Executor *execution.Executor
	Repo     database.Repository
	Metrics  *metrics.Metrics
	Config   *config.Config
}

// Trader runs the evaluate-and-trade workflow for one venue account.
type Trader struct {
	logger   *slog.Logger
	provider marketdata.Provider
	engine   *security.Engine
	executor *execution.Executor
	repo     database.Repository
	metrics  *metrics.Metrics
	risk     execution.RiskParams
	sizePct  decimal.Decimal

	// submitMu serializes Sizing→Submitting across runs sharing the account.
	submitMu sync.Mutex
	now      func() time.Time
}

// New creates a Trader.
func New(logger *slog.Logger, opts Options) (*Trader, error) {
	if opts.Provider == nil || opts.Engine == nil || opts.Executor == nil || opts.Config == nil {
		return nil, errors.New("trader: provider, engine, executor and config are required")
	}
	repo := opts.Repo
	if repo == nil {
		repo = database.NopRepository{}
	}
	return &Trader{
		logger:   logger,
		provider: opts.Provider,
		engine:   opts.Engine,
		executor: opts.Executor,
		repo:     repo,
		metrics:  opts.Metrics,
		risk:     execution.RiskParamsFromConfig(opts.Config),
		sizePct:  opts.Config.Trading.PositionSizePct,
		now:      time.Now,
	}, nil
}

// EvaluateAndTrade fetches pairID, runs the security checks and, if every check
// passes, submits a sized buy order. Every failure is reported through the
// returned TradeResult.
func (t *Trader) EvaluateAndTrade(ctx context.Context, pairID string) (result model.TradeResult) {
	runID := uuid.NewString()
	logger := t.logger.With("run_id", runID, "pair", pairID)
	record := model.DecisionRecord{
		RunID:       runID,
		Timestamp:   t.now().UTC(),
		PairAddress: pairID,
	}

	done := t.metrics.RunStarted()
	defer done()

	// Normalize panics, then journal and count every outcome
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Trader: recovered from panic", "panic", r)
			result = model.Failed(fmt.Sprintf("internal error: %v", r))
		}
		record.Outcome = result.Outcome
		record.Detail = result.Detail()
		record.Confirmation = result.Confirmation
		t.journal(ctx, logger, record)
		t.metrics.ObserveRun(string(result.Outcome))
		logger.Info("Trader: run finished", "outcome", result.Outcome, "detail", record.Detail)
	}()

	logger.Info("Trader: evaluating pair")

	// Fetch the pair snapshot
	snapshot, err := t.fetch(ctx, pairID)
	if err != nil {
		logger.Error("Trader: market data unavailable", "error", err)
		return model.Failed(err.Error())
	}
	record.Price = snapshot.PriceUSD

	// Run the security checks
	approval := t.analyze(ctx, snapshot)
	if !approval.Approved {
		record.FailedCheck = approval.Check
		t.metrics.ObserveRejection(approval.Check)
		logger.Info("Trader: pair rejected", "check", approval.Check, "reason", approval.Message)
		return model.Rejected(approval.Message)
	}

	// Hold the account from balance read until the order is sent
	t.submitMu.Lock()
	defer t.submitMu.Unlock()

	size, err := t.size(ctx, logger)
	if err != nil {
		record.FailedCheck = StageSizing
		t.metrics.ObserveRejection(StageSizing)
		logger.Warn("Trader: position sizing failed", "error", err)
		return model.Rejected(err.Error())
	}
	record.Amount = size

	// Build and submit the order
	order := execution.BuildOrder(snapshot, size, t.risk)
	return t.submit(ctx, order)
}

func (t *Trader) fetch(ctx context.Context, pairID string) (model.PairSnapshot, error) {
	defer t.timeStage(StageFetching)()
	snapshot, err := t.provider.FetchPair(ctx, pairID)
	if err != nil {
		t.metrics.ObserveCallError("market_data")
		return model.PairSnapshot{}, err
	}
	return snapshot, nil
}

func (t *Trader) analyze(ctx context.Context, snapshot model.PairSnapshot) model.ApprovalResult {
	defer t.timeStage(StageAnalyzing)()
	return t.engine.Analyze(ctx, snapshot)
}

func (t *Trader) size(ctx context.Context, logger *slog.Logger) (decimal.Decimal, error) {
	defer t.timeStage(StageSizing)()
	balance := execution.CurrentBalance(ctx, t.executor.Venue(), logger)
	return execution.ComputePositionSize(balance, t.sizePct)
}

func (t *Trader) submit(ctx context.Context, order model.Order) model.TradeResult {
	defer t.timeStage(StageSubmitting)()
	t.metrics.SubmissionAttempted(t.now())
	result := t.executor.Submit(ctx, order)
	if result.Outcome == model.OutcomeError {
		t.metrics.ObserveCallError("venue")
	}
	return result
}

// journal records the run. A failed write never changes the run's result.
func (t *Trader) journal(ctx context.Context, logger *slog.Logger, record model.DecisionRecord) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.MaxCallTimeout)
	defer cancel()
	if err := t.repo.LogDecision(ctx, record); err != nil {
		logger.Error("Trader: failed to journal decision", "error", err)
	}
}

func (t *Trader) timeStage(stage string) func() {
	start := time.Now()
	return func() {
		t.metrics.ObserveStage(stage, time.Since(start))
	}
}
