package exchange

import (
	"fmt"
	"log/slog"

	"tradegate/internal/config"
)

// NewClient creates a new venue client based on the given name and configuration.
func NewClient(name string, logger *slog.Logger, cfg *config.VenueConfig) (Venue, error) {
	switch name {
	case "gmgn":
		return NewGMGNClient(logger, cfg), nil
	case "paper":
		return NewPaperClient(logger, cfg.PaperBalance), nil
	default:
		return nil, fmt.Errorf("unknown venue: %s", name)
	}
}
