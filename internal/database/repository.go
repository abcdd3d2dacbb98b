package database

import (
	"context"

	"tradegate/internal/model"
)

// Repository defines the standard interface for database operations.
type Repository interface {
	Migrate(ctx context.Context) error
	LogDecision(ctx context.Context, record model.DecisionRecord) error
	// WasTraded reports whether a successful order was already placed for pair.
	WasTraded(ctx context.Context, pairAddress string) (bool, error)
}

// NopRepository is used when no database is configured.
type NopRepository struct{}

func (NopRepository) Migrate(context.Context) error { return nil }

func (NopRepository) LogDecision(context.Context, model.DecisionRecord) error { return nil }

func (NopRepository) WasTraded(context.Context, string) (bool, error) { return false, nil }
