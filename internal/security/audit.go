package security

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"tradegate/internal/audit"
	"tradegate/internal/model"
)

const (
	ReasonFailedAudit      = "Failed security audit"
	ReasonAuditUnavailable = "Audit verification error"
)

// AuditCheck rejects tokens the audit provider does not rate as good.
// Provider failures reject as well.
type AuditCheck struct {
	logger   *slog.Logger
	provider audit.Provider
	minScore decimal.Decimal
}

// NewAuditCheck creates a new AuditCheck.
func NewAuditCheck(logger *slog.Logger, provider audit.Provider, minScore decimal.Decimal) *AuditCheck {
	return &AuditCheck{
		logger:   logger,
		provider: provider,
		minScore: minScore,
	}
}

func (c *AuditCheck) Name() string {
	return "audit"
}

func (c *AuditCheck) Check(ctx context.Context, s model.PairSnapshot) model.CheckVerdict {
	report, err := c.provider.Audit(ctx, s.BaseToken)
	if err != nil {
		c.logger.Error("AuditCheck: audit verification failed", "token", s.BaseToken, "error", err)
		return model.Fail(ReasonAuditUnavailable)
	}
	if !report.Good() {
		return model.Fail(ReasonFailedAudit)
	}
	if report.Score.LessThan(c.minScore) {
		return model.Fail(fmt.Sprintf("Low audit score: %s", report.Score))
	}
	return model.Pass()
}
