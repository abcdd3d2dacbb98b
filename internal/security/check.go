// Package security implements the ordered security gate a pair must pass before trading.
package security

import (
	"context"
	"log/slog"

	"tradegate/internal/audit"
	"tradegate/internal/config"
	"tradegate/internal/model"
)

// Check is a single named security rule evaluated against a pair snapshot.
type Check interface {
	Name() string
	Check(ctx context.Context, snapshot model.PairSnapshot) model.CheckVerdict
}

// DefaultChecks returns the registry in evaluation order. Local checks come
// before the audit lookup so common rejections cost no extra network call.
func DefaultChecks(logger *slog.Logger, cfg *config.Config, provider audit.Provider) []Check {
	return []Check{
		NewBlacklistCheck(cfg.Blacklists),
		NewAuditCheck(logger, provider, cfg.Audit.MinScore),
		NewLiquidityCheck(cfg.Checks.MinLiquidityUSD),
		NewVolumeCheck(cfg.Checks),
		NewHolderCheck(cfg.Checks),
	}
}
