package security

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"tradegate/internal/audit"
	"tradegate/internal/config"
	"tradegate/internal/model"
)

func TestBlacklistCheck(t *testing.T) {
	check := NewBlacklistCheck(config.BlacklistConfig{
		Tokens:     []string{" 0xabc ", "0xTOKEN"},
		Developers: []string{"0xDev"},
	})

	tests := []struct {
		name string
		snap model.PairSnapshot
		want model.CheckVerdict
	}{
		{"pair address case-insensitive", model.PairSnapshot{PairAddress: "0xABC"}, model.Fail(ReasonTokenBlacklisted)},
		{"base token", model.PairSnapshot{PairAddress: "0x1", BaseToken: "0xtoken"}, model.Fail(ReasonTokenBlacklisted)},
		{"developer", model.PairSnapshot{PairAddress: "0x1", Creator: "0xDEV"}, model.Fail(ReasonDeveloperBlacklisted)},
		{"token before developer", model.PairSnapshot{PairAddress: "0xabc", Creator: "0xdev"}, model.Fail(ReasonTokenBlacklisted)},
		{"unknown creator", model.PairSnapshot{PairAddress: "0x1"}, model.Pass()},
		{"clean", model.PairSnapshot{PairAddress: "0x1", BaseToken: "0x2", Creator: "0x3"}, model.Pass()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, check.Check(context.Background(), tt.snap))
		})
	}
}

func TestAuditCheck(t *testing.T) {
	snap := model.PairSnapshot{PairAddress: "0xPAIR", BaseToken: "0xBASE"}
	minScore := decimal.NewFromInt(70)

	tests := []struct {
		name   string
		report audit.Report
		err    error
		want   model.CheckVerdict
	}{
		{"good and above minimum", audit.Report{Status: "GOOD", Score: decimal.NewFromInt(70)}, nil, model.Pass()},
		{"low score", audit.Report{Status: "GOOD", Score: decimal.NewFromInt(50)}, nil, model.Fail("Low audit score: 50")},
		{"bad status", audit.Report{Status: "DANGER", Score: decimal.NewFromInt(99)}, nil, model.Fail(ReasonFailedAudit)},
		{"provider timeout", audit.Report{}, context.DeadlineExceeded, model.Fail(ReasonAuditUnavailable)},
		{"malformed", audit.Report{}, audit.ErrMalformedReport, model.Fail(ReasonAuditUnavailable)},
		{"status error", audit.Report{}, &audit.StatusError{Code: 502}, model.Fail(ReasonAuditUnavailable)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &MockAuditProvider{}
			provider.On("Audit", mock.Anything, "0xBASE").Return(tt.report, tt.err).Once()

			got := NewAuditCheck(discardLogger(), provider, minScore).Check(context.Background(), snap)

			assert.Equal(t, tt.want, got)
			provider.AssertExpectations(t)
		})
	}
}

func TestLiquidityCheck(t *testing.T) {
	check := NewLiquidityCheck(decimal.NewFromInt(10000))

	pass := check.Check(context.Background(), model.PairSnapshot{Liquidity: model.LiquidityMetrics{USD: decimal.NewFromInt(10000)}})
	assert.True(t, pass.Passed)

	fail := check.Check(context.Background(), model.PairSnapshot{Liquidity: model.LiquidityMetrics{USD: decimal.RequireFromString("9999.99")}})
	assert.False(t, fail.Passed)
	assert.Equal(t, "Insufficient liquidity: 9999.99 < 10000.00", fail.Reason)
}

func TestVolumeCheck(t *testing.T) {
	cfg := config.ChecksConfig{
		MinVolume24hUSD:         decimal.NewFromInt(5000),
		MaxHourlyVolumeShare:    decimal.RequireFromString("0.8"),
		MaxVolumeLiquidityRatio: decimal.NewFromInt(10),
	}

	tests := []struct {
		name       string
		h1, h24    int64
		liquidity  int64
		wantPass   bool
		wantReason string
	}{
		{"healthy", 1000, 20000, 50000, true, ""},
		{"below minimum", 100, 4000, 50000, false, "Insufficient volume: 4000.00 < 5000.00"},
		{"concentrated in last hour", 19000, 20000, 50000, false, "Suspicious volume pattern: 95.0% of 24h volume in the last hour"},
		{"wash trading", 1000, 600000, 50000, false, "Suspicious volume pattern: volume/liquidity ratio 12.00"},
		{"volume without liquidity", 1000, 20000, 0, false, "Suspicious volume pattern: volume without liquidity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := model.PairSnapshot{
				Liquidity: model.LiquidityMetrics{USD: decimal.NewFromInt(tt.liquidity)},
				Volume:    model.VolumeMetrics{H1: decimal.NewFromInt(tt.h1), H24: decimal.NewFromInt(tt.h24)},
			}
			got := NewVolumeCheck(cfg).Check(context.Background(), snap)
			assert.Equal(t, tt.wantPass, got.Passed)
			assert.Equal(t, tt.wantReason, got.Reason)
		})
	}

	t.Run("heuristics disabled at zero", func(t *testing.T) {
		check := NewVolumeCheck(config.ChecksConfig{MinVolume24hUSD: decimal.NewFromInt(1)})
		snap := model.PairSnapshot{Volume: model.VolumeMetrics{H1: decimal.NewFromInt(100), H24: decimal.NewFromInt(100)}}
		assert.True(t, check.Check(context.Background(), snap).Passed)
	})
}

func TestHolderCheck(t *testing.T) {
	check := NewHolderCheck(config.ChecksConfig{MaxTopHolderPct: decimal.NewFromInt(20), MinHolders: 50})

	tests := []struct {
		name    string
		holders *model.HolderMetrics
		want    model.CheckVerdict
	}{
		{"missing data", nil, model.Fail(ReasonHolderDataUnavailable)},
		{"too few holders", &model.HolderMetrics{Count: 10, TopHolderPct: decimal.NewFromInt(5)}, model.Fail("Too few holders: 10 < 50")},
		{"concentrated", &model.HolderMetrics{Count: 500, TopHolderPct: decimal.RequireFromString("20.5")}, model.Fail("Top holder concentration too high: 20.5% > 20%")},
		{"at limit", &model.HolderMetrics{Count: 500, TopHolderPct: decimal.NewFromInt(20)}, model.Pass()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, check.Check(context.Background(), model.PairSnapshot{Holders: tt.holders}))
		})
	}
}
