package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
	"tradegate/internal/config"
	"tradegate/internal/model"
)

const maxBodyBytes = 1 << 20

// DexScreenerClient implements the Provider interface for DexScreener-compatible APIs.
type DexScreenerClient struct {
	logger   *slog.Logger
	endpoint string
	chain    string
	timeout  time.Duration
	client   *http.Client
	limiter  *rate.Limiter
}

// ClientOption configures DexScreenerClient.
type ClientOption func(*DexScreenerClient)

// WithHTTPClient sets a custom http.Client. Its pooled transport is shared across calls.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *DexScreenerClient) {
		c.client = client
	}
}

// WithLimiter replaces the request rate limiter.
func WithLimiter(l *rate.Limiter) ClientOption {
	return func(c *DexScreenerClient) {
		c.limiter = l
	}
}

// NewDexScreenerClient creates a new DexScreenerClient.
func NewDexScreenerClient(logger *slog.Logger, cfg config.MarketDataConfig, opts ...ClientOption) *DexScreenerClient {
	c := &DexScreenerClient{
		logger:   logger,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		chain:    cfg.Chain,
		timeout:  cfg.Timeout,
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// pairsResponse mirrors the subset of the provider payload that is consumed.
type pairsResponse struct {
	Pairs []pairPayload `json:"pairs"`
	Pair  *pairPayload  `json:"pair"`
}

type pairPayload struct {
	PairAddress string           `json:"pairAddress"`
	BaseToken   tokenPayload     `json:"baseToken"`
	QuoteToken  tokenPayload     `json:"quoteToken"`
	Creator     string           `json:"creator"`
	PriceUSD    *decimal.Decimal `json:"priceUsd"`
	Liquidity   *struct {
		USD *decimal.Decimal `json:"usd"`
	} `json:"liquidity"`
	Volume *struct {
		M5  decimal.Decimal  `json:"m5"`
		H1  decimal.Decimal  `json:"h1"`
		H6  decimal.Decimal  `json:"h6"`
		H24 *decimal.Decimal `json:"h24"`
	} `json:"volume"`
	Txns struct {
		H24 struct {
			Buys  int64 `json:"buys"`
			Sells int64 `json:"sells"`
		} `json:"h24"`
	} `json:"txns"`
	Holders *struct {
		Count        int64            `json:"count"`
		TopHolderPct *decimal.Decimal `json:"topHolderPct"`
	} `json:"holders"`
}

type tokenPayload struct {
	Address string `json:"address"`
}

// FetchPair fetches a snapshot of the pair's current state.
func (d *DexScreenerClient) FetchPair(ctx context.Context, pairID string) (model.PairSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.limiter.Wait(ctx); err != nil {
		return model.PairSnapshot{}, &FetchError{PairID: pairID, Cause: fmt.Errorf("rate limit wait: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.pairURL(pairID), nil)
	if err != nil {
		return model.PairSnapshot{}, &FetchError{PairID: pairID, Cause: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Error("DexScreenerClient: request failed", "pair", pairID, "error", err)
		return model.PairSnapshot{}, &FetchError{PairID: pairID, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return model.PairSnapshot{}, &FetchError{PairID: pairID, Cause: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return model.PairSnapshot{}, &FetchError{PairID: pairID, Cause: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var payload pairsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return model.PairSnapshot{}, &FetchError{PairID: pairID, Cause: fmt.Errorf("decode response: %w", err)}
	}

	p := payload.Pair
	if p == nil {
		if len(payload.Pairs) == 0 {
			return model.PairSnapshot{}, &FetchError{PairID: pairID, Cause: ErrPairNotFound}
		}
		p = &payload.Pairs[0]
	}

	snapshot, err := p.toSnapshot()
	if err != nil {
		return model.PairSnapshot{}, &FetchError{PairID: pairID, Cause: err}
	}
	d.logger.Debug("DexScreenerClient: fetched pair", "pair", snapshot.PairAddress, "price", snapshot.PriceUSD)
	return snapshot, nil
}

func (d *DexScreenerClient) pairURL(pairID string) string {
	if d.chain != "" {
		return fmt.Sprintf("%s/latest/dex/pairs/%s/%s", d.endpoint, url.PathEscape(d.chain), url.PathEscape(pairID))
	}
	return fmt.Sprintf("%s/latest/dex/pairs/%s", d.endpoint, url.PathEscape(pairID))
}

func (p *pairPayload) toSnapshot() (model.PairSnapshot, error) {
	var missing []string
	if p.PairAddress == "" {
		missing = append(missing, "pairAddress")
	}
	if p.BaseToken.Address == "" {
		missing = append(missing, "baseToken.address")
	}
	if p.QuoteToken.Address == "" {
		missing = append(missing, "quoteToken.address")
	}
	if p.PriceUSD == nil {
		missing = append(missing, "priceUsd")
	}
	// Zero liquidity or volume is a real value; an absent one is a schema mismatch.
	if p.Liquidity == nil || p.Liquidity.USD == nil {
		missing = append(missing, "liquidity.usd")
	}
	if p.Volume == nil || p.Volume.H24 == nil {
		missing = append(missing, "volume.h24")
	}
	if len(missing) > 0 {
		return model.PairSnapshot{}, fmt.Errorf("malformed pair: missing %s", strings.Join(missing, ", "))
	}
	if !p.PriceUSD.IsPositive() {
		return model.PairSnapshot{}, errors.New("malformed pair: priceUsd must be positive")
	}

	snapshot := model.PairSnapshot{
		PairAddress: p.PairAddress,
		BaseToken:   p.BaseToken.Address,
		QuoteToken:  p.QuoteToken.Address,
		Creator:     p.Creator,
		PriceUSD:    *p.PriceUSD,
		Liquidity:   model.LiquidityMetrics{USD: *p.Liquidity.USD},
		Volume: model.VolumeMetrics{
			M5:  p.Volume.M5,
			H1:  p.Volume.H1,
			H6:  p.Volume.H6,
			H24: *p.Volume.H24,
		},
		Txns: model.TxnMetrics{Buys: p.Txns.H24.Buys, Sells: p.Txns.H24.Sells},
	}
	if p.Holders != nil && p.Holders.TopHolderPct != nil {
		snapshot.Holders = &model.HolderMetrics{
			Count:        p.Holders.Count,
			TopHolderPct: *p.Holders.TopHolderPct,
		}
	}
	return snapshot, nil
}
