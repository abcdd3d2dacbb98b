package exchange

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"tradegate/internal/model"
)

// PaperClient implements the Venue interface without touching a real venue.
// Orders are logged and debited from an in-memory balance.
type PaperClient struct {
	logger *slog.Logger

	mu      sync.Mutex
	balance decimal.Decimal
}

// NewPaperClient creates a new PaperClient starting with balance.
func NewPaperClient(logger *slog.Logger, balance decimal.Decimal) *PaperClient {
	return &PaperClient{logger: logger, balance: balance}
}

func (p *PaperClient) GetName() string {
	return "paper"
}

// Balance fails once ctx is done, like a network venue would.
func (p *PaperClient) Balance(ctx context.Context) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance, nil
}

type paperConfirmation struct {
	OrderID   string          `json:"orderId"`
	Status    string          `json:"status"`
	Paper     bool            `json:"paper"`
	Pair      string          `json:"pair"`
	Side      model.Side      `json:"side"`
	Amount    decimal.Decimal `json:"amount"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"createdAt"`
}

func (p *PaperClient) SubmitOrder(_ context.Context, order model.Order) (SubmitResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if order.Amount.GreaterThan(p.balance) {
		body, _ := json.Marshal(map[string]string{"message": "insufficient balance"})
		return SubmitResponse{StatusCode: http.StatusBadRequest, Body: body}, nil
	}
	p.balance = p.balance.Sub(order.Amount)

	confirmation := paperConfirmation{
		OrderID:   uuid.NewString(),
		Status:    "created",
		Paper:     true,
		Pair:      order.Pair,
		Side:      order.Side,
		Amount:    order.Amount,
		Price:     order.Price,
		CreatedAt: time.Now().UTC(),
	}
	body, err := json.Marshal(confirmation)
	if err != nil {
		return SubmitResponse{}, err
	}

	p.logger.Info("PaperClient: order filled",
		"orderId", confirmation.OrderID,
		"pair", order.Pair,
		"side", order.Side,
		"amount", order.Amount,
		"price", order.Price,
		"remaining", p.balance,
	)
	return SubmitResponse{StatusCode: StatusCreated, Body: body}, nil
}
