// Package execution sizes, builds and submits orders.
package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"tradegate/internal/exchange"
)

// ErrSizing matches every position sizing failure.
var ErrSizing = errors.New("position sizing failed")

var (
	ErrInvalidPercentage = fmt.Errorf("%w: position size percentage must be in (0, 1]", ErrSizing)
	ErrNoBalance         = fmt.Errorf("%w: no available balance", ErrSizing)
	ErrNonPositiveSize   = fmt.Errorf("%w: computed size is not positive", ErrSizing)
	ErrExceedsBalance    = fmt.Errorf("%w: computed size exceeds available balance", ErrSizing)
)

var one = decimal.NewFromInt(1)

// CurrentBalance returns the venue's available capital. Any failure to read
// it counts as zero capital.
func CurrentBalance(ctx context.Context, venue exchange.Venue, logger *slog.Logger) decimal.Decimal {
	balance, err := venue.Balance(ctx)
	if err != nil {
		logger.Error("Execution: balance check failed, assuming zero", "venue", venue.GetName(), "error", err)
		return decimal.Zero
	}
	if balance.IsNegative() {
		logger.Warn("Execution: venue reported negative balance, assuming zero", "venue", venue.GetName(), "balance", balance)
		return decimal.Zero
	}
	return balance
}

// ComputePositionSize returns balance * pct. It never clamps: any size that
// cannot be traded as computed is an error.
func ComputePositionSize(balance, pct decimal.Decimal) (decimal.Decimal, error) {
	if !pct.IsPositive() || pct.GreaterThan(one) {
		return decimal.Zero, ErrInvalidPercentage
	}
	if !balance.IsPositive() {
		return decimal.Zero, ErrNoBalance
	}

	size := balance.Mul(pct)
	if !size.IsPositive() {
		return decimal.Zero, ErrNonPositiveSize
	}
	if size.GreaterThan(balance) {
		return decimal.Zero, ErrExceedsBalance
	}
	return size, nil
}
