// Package audit queries the third-party token audit provider.
package audit

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
	"tradegate/internal/config"
)

// StatusGood is the only audit status that lets a token through.
const StatusGood = "GOOD"

// ErrMalformedReport is returned when the provider payload misses required fields.
var ErrMalformedReport = errors.New("malformed audit report")

// Report is the audit verdict for a token.
type Report struct {
	Status string
	Score  decimal.Decimal
}

// Good reports whether the status equals StatusGood, ignoring case.
func (r Report) Good() bool {
	return strings.EqualFold(r.Status, StatusGood)
}

// Provider defines the standard interface for audit sources.
type Provider interface {
	Audit(ctx context.Context, token string) (Report, error)
}

// StatusError is returned for non-200 provider responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("audit provider returned status %d: %s", e.Code, e.Body)
}

// RugCheckClient implements Provider over the RugCheck-style REST API.
type RugCheckClient struct {
	logger   *slog.Logger
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

// NewRugCheckClient creates a new RugCheckClient.
func NewRugCheckClient(logger *slog.Logger, cfg config.AuditConfig) *RugCheckClient {
	return &RugCheckClient{
		logger:   logger,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		timeout:  cfg.Timeout,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

type auditResponse struct {
	AuditStatus *string          `json:"auditStatus"`
	AuditScore  *decimal.Decimal `json:"auditScore"`
}

// Audit fetches the audit report for token.
func (c *RugCheckClient) Audit(ctx context.Context, token string) (Report, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/audit/"+url.PathEscape(token), nil)
	if err != nil {
		return Report{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("audit request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return Report{}, fmt.Errorf("read audit body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Report{}, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var payload auditResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrMalformedReport, err)
	}
	if payload.AuditStatus == nil || payload.AuditScore == nil {
		return Report{}, fmt.Errorf("%w: missing auditStatus or auditScore", ErrMalformedReport)
	}

	c.logger.Debug("RugCheckClient: audit received", "token", token, "status", *payload.AuditStatus, "score", payload.AuditScore)
	return Report{Status: *payload.AuditStatus, Score: *payload.AuditScore}, nil
}
