package marketdata

import (
	"context"
	"errors"
	"fmt"

	"tradegate/internal/model"
)

// ErrFetch matches every market data failure.
var ErrFetch = errors.New("market data fetch failed")

// ErrPairNotFound is returned when the provider knows no pair for the identifier.
var ErrPairNotFound = errors.New("pair not found")

// Provider defines the standard interface for market data sources.
type Provider interface {
	FetchPair(ctx context.Context, pairID string) (model.PairSnapshot, error)
}

// FetchError describes why a snapshot could not be produced.
type FetchError struct {
	PairID string
	Cause  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch pair %s: %v", e.PairID, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Is makes every FetchError match ErrFetch.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}
