package security

import (
	"context"
	"strings"

	"tradegate/internal/config"
	"tradegate/internal/model"
)

const (
	ReasonTokenBlacklisted     = "Token blacklisted"
	ReasonDeveloperBlacklisted = "Developer blacklisted"
)

// BlacklistCheck rejects pairs whose address, base token or creator is blocked.
// Addresses are compared case-insensitively.
type BlacklistCheck struct {
	tokens     map[string]struct{}
	developers map[string]struct{}
}

// NewBlacklistCheck creates a new BlacklistCheck.
func NewBlacklistCheck(cfg config.BlacklistConfig) *BlacklistCheck {
	return &BlacklistCheck{
		tokens:     addressSet(cfg.Tokens),
		developers: addressSet(cfg.Developers),
	}
}

func (c *BlacklistCheck) Name() string {
	return "blacklist"
}

func (c *BlacklistCheck) Check(_ context.Context, s model.PairSnapshot) model.CheckVerdict {
	if contains(c.tokens, s.PairAddress) || contains(c.tokens, s.BaseToken) {
		return model.Fail(ReasonTokenBlacklisted)
	}
	if s.Creator != "" && contains(c.developers, s.Creator) {
		return model.Fail(ReasonDeveloperBlacklisted)
	}
	return model.Pass()
}

func addressSet(addrs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		if a = normalizeAddress(a); a != "" {
			set[a] = struct{}{}
		}
	}
	return set
}

func contains(set map[string]struct{}, addr string) bool {
	_, ok := set[normalizeAddress(addr)]
	return ok
}

func normalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
