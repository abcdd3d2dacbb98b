package execution

import (
	"github.com/shopspring/decimal"
	"tradegate/internal/config"
	"tradegate/internal/model"
)

// RiskParams are the per-order risk settings copied from configuration.
type RiskParams struct {
	Leverage      int
	StopLossPct   decimal.Decimal
	TakeProfitPct decimal.Decimal
}

// RiskParamsFromConfig extracts RiskParams from cfg.
func RiskParamsFromConfig(cfg *config.Config) RiskParams {
	return RiskParams{
		Leverage:      cfg.Trading.Leverage,
		StopLossPct:   cfg.Risk.StopLossPct,
		TakeProfitPct: cfg.Risk.TakeProfitPct,
	}
}

// BuildOrder constructs the buy order for snapshot at the given size.
func BuildOrder(snapshot model.PairSnapshot, size decimal.Decimal, params RiskParams) model.Order {
	return model.Order{
		Pair:          snapshot.PairAddress,
		BaseToken:     snapshot.BaseToken,
		QuoteToken:    snapshot.QuoteToken,
		Amount:        size,
		Price:         snapshot.PriceUSD,
		Side:          model.SideBuy,
		Leverage:      params.Leverage,
		StopLossPct:   params.StopLossPct,
		TakeProfitPct: params.TakeProfitPct,
	}
}
