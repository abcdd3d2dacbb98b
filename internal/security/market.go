package security

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"tradegate/internal/config"
	"tradegate/internal/model"
)

const ReasonHolderDataUnavailable = "Holder data unavailable"

var hundred = decimal.NewFromInt(100)

// LiquidityCheck rejects pools below the configured USD liquidity.
type LiquidityCheck struct {
	min decimal.Decimal
}

// NewLiquidityCheck creates a new LiquidityCheck.
func NewLiquidityCheck(minUSD decimal.Decimal) *LiquidityCheck {
	return &LiquidityCheck{min: minUSD}
}

func (c *LiquidityCheck) Name() string {
	return "liquidity"
}

func (c *LiquidityCheck) Check(_ context.Context, s model.PairSnapshot) model.CheckVerdict {
	if s.Liquidity.USD.LessThan(c.min) {
		return model.Fail(fmt.Sprintf("Insufficient liquidity: %s < %s", s.Liquidity.USD.StringFixed(2), c.min.StringFixed(2)))
	}
	return model.Pass()
}

// VolumeCheck rejects pairs with too little or suspiciously shaped volume.
type VolumeCheck struct {
	min            decimal.Decimal
	maxHourlyShare decimal.Decimal
	maxTurnover    decimal.Decimal
}

// NewVolumeCheck creates a new VolumeCheck.
func NewVolumeCheck(cfg config.ChecksConfig) *VolumeCheck {
	return &VolumeCheck{
		min:            cfg.MinVolume24hUSD,
		maxHourlyShare: cfg.MaxHourlyVolumeShare,
		maxTurnover:    cfg.MaxVolumeLiquidityRatio,
	}
}

func (c *VolumeCheck) Name() string {
	return "volume"
}

func (c *VolumeCheck) Check(_ context.Context, s model.PairSnapshot) model.CheckVerdict {
	h24 := s.Volume.H24
	if h24.LessThan(c.min) {
		return model.Fail(fmt.Sprintf("Insufficient volume: %s < %s", h24.StringFixed(2), c.min.StringFixed(2)))
	}

	// Most of the day's volume printed within the last hour.
	if c.maxHourlyShare.IsPositive() && h24.IsPositive() {
		share := s.Volume.H1.Div(h24)
		if share.GreaterThan(c.maxHourlyShare) {
			return model.Fail(fmt.Sprintf("Suspicious volume pattern: %s%% of 24h volume in the last hour", share.Mul(hundred).StringFixed(1)))
		}
	}

	// Volume far above pool depth points at wash trading.
	if c.maxTurnover.IsPositive() && h24.IsPositive() {
		if !s.Liquidity.USD.IsPositive() {
			return model.Fail("Suspicious volume pattern: volume without liquidity")
		}
		ratio := h24.Div(s.Liquidity.USD)
		if ratio.GreaterThan(c.maxTurnover) {
			return model.Fail(fmt.Sprintf("Suspicious volume pattern: volume/liquidity ratio %s", ratio.StringFixed(2)))
		}
	}
	return model.Pass()
}

// HolderCheck rejects tokens whose supply is concentrated in a single holder.
// Missing holder data rejects.
type HolderCheck struct {
	maxTopHolderPct decimal.Decimal
	minHolders      int64
}

// NewHolderCheck creates a new HolderCheck.
func NewHolderCheck(cfg config.ChecksConfig) *HolderCheck {
	return &HolderCheck{
		maxTopHolderPct: cfg.MaxTopHolderPct,
		minHolders:      cfg.MinHolders,
	}
}

func (c *HolderCheck) Name() string {
	return "holders"
}

func (c *HolderCheck) Check(_ context.Context, s model.PairSnapshot) model.CheckVerdict {
	if s.Holders == nil {
		return model.Fail(ReasonHolderDataUnavailable)
	}
	if c.minHolders > 0 && s.Holders.Count < c.minHolders {
		return model.Fail(fmt.Sprintf("Too few holders: %d < %d", s.Holders.Count, c.minHolders))
	}
	if s.Holders.TopHolderPct.GreaterThan(c.maxTopHolderPct) {
		return model.Fail(fmt.Sprintf("Top holder concentration too high: %s%% > %s%%", s.Holders.TopHolderPct, c.maxTopHolderPct))
	}
	return model.Pass()
}
