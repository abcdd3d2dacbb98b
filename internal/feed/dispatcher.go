package feed

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tradegate/internal/metrics"
	"tradegate/internal/model"
)

// Dispositions of a pair received from the feed.
const (
	DispositionDispatched = "dispatched"
	DispositionDuplicate  = "duplicate"
	DispositionTraded     = "already_traded"
	DispositionJournalErr = "journal_error"
)

// Limits of the recently seen set. Pairs that produced an order are kept for
// the life of the process regardless.
const (
	DefaultSeenTTL = 6 * time.Hour
	DefaultMaxSeen = 10000
)

// Evaluator runs the trade workflow for one pair.
type Evaluator interface {
	EvaluateAndTrade(ctx context.Context, pairID string) model.TradeResult
}

// TradeHistory reports pairs that already produced an order.
type TradeHistory interface {
	WasTraded(ctx context.Context, pairAddress string) (bool, error)
}

// Dispatcher evaluates pairs from the feed with bounded concurrency. A pair is
// evaluated at most once per seen TTL, and never again once it was traded by
// this process or the journal shows it was traded.
type Dispatcher struct {
	logger    *slog.Logger
	evaluator Evaluator
	history   TradeHistory
	metrics   *metrics.Metrics
	sem       chan struct{}

	seenTTL time.Duration
	maxSeen int
	now     func() time.Time

	mu     sync.Mutex
	seen   map[string]time.Time
	traded map[string]struct{}
}

// NewDispatcher creates a Dispatcher running at most maxConcurrent evaluations.
func NewDispatcher(logger *slog.Logger, evaluator Evaluator, history TradeHistory, m *metrics.Metrics, maxConcurrent int) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Dispatcher{
		logger:    logger,
		evaluator: evaluator,
		history:   history,
		metrics:   m,
		sem:       make(chan struct{}, maxConcurrent),
		seenTTL:   DefaultSeenTTL,
		maxSeen:   DefaultMaxSeen,
		now:       time.Now,
		seen:      make(map[string]time.Time),
		traded:    make(map[string]struct{}),
	}
}

// Run consumes pairChan until it is closed or ctx is cancelled, then waits for
// in-flight evaluations.
func (d *Dispatcher) Run(ctx context.Context, pairChan <-chan string) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case pair, ok := <-pairChan:
			if !ok {
				return
			}
			if !d.admit(ctx, pair) {
				continue
			}

			select {
			case d.sem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			wg.Add(1)
			go func(pair string) {
				defer wg.Done()
				defer func() { <-d.sem }()
				result := d.evaluator.EvaluateAndTrade(ctx, pair)
				if result.Outcome == model.OutcomeSuccess {
					d.markTraded(pair)
				}
				d.logger.Info("Dispatcher: pair evaluated", "pair", pair, "outcome", result.Outcome)
			}(pair)
		}
	}
}

// admit reports whether pair should be evaluated and records the decision.
func (d *Dispatcher) admit(ctx context.Context, pair string) bool {
	key := strings.ToLower(pair)

	d.mu.Lock()
	_, traded := d.traded[key]
	dup := d.recentlySeen(key)
	if !traded && !dup {
		d.remember(key)
	}
	d.mu.Unlock()

	if traded {
		d.metrics.ObserveFeedPair(DispositionTraded)
		d.logger.Debug("Dispatcher: pair already traded by this process", "pair", pair)
		return false
	}
	if dup {
		d.metrics.ObserveFeedPair(DispositionDuplicate)
		d.logger.Debug("Dispatcher: skipping duplicate pair", "pair", pair)
		return false
	}

	if d.history != nil {
		traded, err := d.history.WasTraded(ctx, pair)
		if err != nil {
			d.forget(key)
			d.metrics.ObserveFeedPair(DispositionJournalErr)
			d.logger.Error("Dispatcher: trade history unavailable, skipping pair", "pair", pair, "error", err)
			return false
		}
		if traded {
			d.metrics.ObserveFeedPair(DispositionTraded)
			d.logger.Info("Dispatcher: pair already traded", "pair", pair)
			return false
		}
	}

	d.metrics.ObserveFeedPair(DispositionDispatched)
	return true
}

// forget lets pair be admitted again on its next announcement.
func (d *Dispatcher) forget(key string) {
	d.mu.Lock()
	delete(d.seen, key)
	d.mu.Unlock()
}

func (d *Dispatcher) markTraded(pair string) {
	d.mu.Lock()
	d.traded[strings.ToLower(pair)] = struct{}{}
	d.mu.Unlock()
}

// recentlySeen must be called with mu held.
func (d *Dispatcher) recentlySeen(key string) bool {
	at, ok := d.seen[key]
	return ok && d.now().Sub(at) < d.seenTTL
}

// remember must be called with mu held. When the set is full, expired entries
// are dropped first and then the oldest one.
func (d *Dispatcher) remember(key string) {
	now := d.now()
	if len(d.seen) >= d.maxSeen {
		var oldestKey string
		var oldest time.Time
		for k, at := range d.seen {
			if now.Sub(at) >= d.seenTTL {
				delete(d.seen, k)
				continue
			}
			if oldestKey == "" || at.Before(oldest) {
				oldestKey, oldest = k, at
			}
		}
		if len(d.seen) >= d.maxSeen {
			delete(d.seen, oldestKey)
		}
	}
	d.seen[key] = now
}
