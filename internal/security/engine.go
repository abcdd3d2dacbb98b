package security

import (
	"context"
	"fmt"
	"log/slog"

	"tradegate/internal/model"
)

// ApprovedMessage is the message of an approval where every check passed.
const ApprovedMessage = "Security checks passed"

// Engine runs the check registry in order and stops at the first failure.
type Engine struct {
	logger *slog.Logger
	checks []Check
}

// NewEngine creates a new Engine. The order of checks is the evaluation order.
func NewEngine(logger *slog.Logger, checks []Check) *Engine {
	return &Engine{
		logger: logger,
		checks: checks,
	}
}

// Analyze evaluates snapshot against every check until one fails.
// The returned message is always the first violated rule's reason.
func (e *Engine) Analyze(ctx context.Context, snapshot model.PairSnapshot) model.ApprovalResult {
	for _, check := range e.checks {
		verdict := e.run(ctx, check, snapshot)
		if verdict.Passed {
			continue
		}

		reason := verdict.Reason
		if reason == "" {
			reason = fmt.Sprintf("%s check failed", check.Name())
		}
		e.logger.Info("SecurityEngine: pair rejected",
			"pair", snapshot.PairAddress,
			"check", check.Name(),
			"reason", reason,
		)
		return model.ApprovalResult{Approved: false, Message: reason, Check: check.Name()}
	}

	e.logger.Info("SecurityEngine: pair approved", "pair", snapshot.PairAddress)
	return model.ApprovalResult{Approved: true, Message: ApprovedMessage}
}

// run evaluates a single check, turning a panic into a failing verdict.
func (e *Engine) run(ctx context.Context, check Check, snapshot model.PairSnapshot) (verdict model.CheckVerdict) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("SecurityEngine: check panicked", "check", check.Name(), "panic", r)
			verdict = model.Fail(fmt.Sprintf("Security check error: %s", check.Name()))
		}
	}()
	return check.Check(ctx, snapshot)
}
