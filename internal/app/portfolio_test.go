package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldvault/ledger-service/internal/domain"
	"github.com/goldvault/ledger-service/internal/store"
)

type portfolioRepoStub struct {
	store.Repository

	price   *domain.PriceSnapshot
	history []domain.Transaction
}

func (s *portfolioRepoStub) LatestPrice(ctx context.Context) (*domain.PriceSnapshot, error) {
	if s.price == nil {
		return nil, store.ErrPriceUnavailable
	}
	return s.price, nil
}

func (s *portfolioRepoStub) CompletedTransactionsInOrder(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	return s.history, nil
}

func completedTx(kind, grams, amount, price string) domain.Transaction {
	now := time.Now().UTC()
	return domain.Transaction{
		ID:           uuid.New(),
		Kind:         kind,
		Status:       domain.StatusCompleted,
		Grams:        decimal.RequireFromString(grams),
		AmountINR:    decimal.RequireFromString(amount),
		PricePerGram: decimal.RequireFromString(price),
		CompletedAt:  &now,
	}
}

func TestValuation_SingleBuyAgainstRisenPrice(t *testing.T) {
	repo := &portfolioRepoStub{
		price: &domain.PriceSnapshot{PricePerGram: decimal.RequireFromString("6500")},
		history: []domain.Transaction{
			completedTx(domain.KindBuy, "0.8333", "5000", "6000"),
		},
	}
	svc := NewService(repo, &purchaseGatewayStub{}, &recordingPublisher{})

	p, err := svc.Valuation(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Valuation returned error: %v", err)
	}
	if got := p.TotalGrams.String(); got != "0.8333" {
		t.Fatalf("expected 0.8333 grams, got %s", got)
	}
	if !p.InvestedAmount.Equal(decimal.RequireFromString("5000")) {
		t.Fatalf("expected 5000 invested, got %s", p.InvestedAmount)
	}
	if !p.CurrentValue.Equal(decimal.RequireFromString("5416.45")) {
		t.Fatalf("expected current value 5416.45, got %s", p.CurrentValue)
	}
	if !p.ProfitLoss.Equal(decimal.RequireFromString("416.45")) {
		t.Fatalf("expected profit 416.45, got %s", p.ProfitLoss)
	}
}

func TestValuation_WithdrawalRetiresCostAtWeightedAverage(t *testing.T) {
	repo := &portfolioRepoStub{
		price: &domain.PriceSnapshot{PricePerGram: decimal.RequireFromString("6500")},
		history: []domain.Transaction{
			completedTx(domain.KindBuy, "0.8333", "5000", "6000"),
			completedTx(domain.KindWithdraw, "0.5", "3250", "6500"),
		},
	}
	svc := NewService(repo, &purchaseGatewayStub{}, &recordingPublisher{})

	p, err := svc.Valuation(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Valuation returned error: %v", err)
	}
	if got := p.TotalGrams.String(); got != "0.3333" {
		t.Fatalf("expected 0.3333 grams remaining, got %s", got)
	}
	// 0.5g retired at the 5000/0.8333 average cost leaves 1999.88 invested.
	if !p.InvestedAmount.Equal(decimal.RequireFromString("1999.88")) {
		t.Fatalf("expected 1999.88 invested after retirement, got %s", p.InvestedAmount)
	}
	if !p.CurrentValue.Equal(decimal.RequireFromString("2166.45")) {
		t.Fatalf("expected current value 2166.45, got %s", p.CurrentValue)
	}
}

func TestValuation_MultipleBuysAverageTheCost(t *testing.T) {
	repo := &portfolioRepoStub{
		price: &domain.PriceSnapshot{PricePerGram: decimal.RequireFromString("7000")},
		history: []domain.Transaction{
			completedTx(domain.KindBuy, "1", "6000", "6000"),
			completedTx(domain.KindBuy, "1", "7000", "7000"),
			completedTx(domain.KindWithdraw, "1", "7000", "7000"),
		},
	}
	svc := NewService(repo, &purchaseGatewayStub{}, &recordingPublisher{})

	p, err := svc.Valuation(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Valuation returned error: %v", err)
	}
	if !p.TotalGrams.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected 1 gram remaining, got %s", p.TotalGrams)
	}
	// The withdrawal retires grams at the 6500 blended average, not the
	// price of either individual buy.
	if !p.InvestedAmount.Equal(decimal.RequireFromString("6500")) {
		t.Fatalf("expected 6500 invested after blended retirement, got %s", p.InvestedAmount)
	}
	if !p.ProfitLoss.Equal(decimal.RequireFromString("500")) {
		t.Fatalf("expected 500 profit, got %s", p.ProfitLoss)
	}
}

func TestValuation_EmptyHistoryIsZeroed(t *testing.T) {
	repo := &portfolioRepoStub{
		price: &domain.PriceSnapshot{PricePerGram: decimal.RequireFromString("6500")},
	}
	svc := NewService(repo, &purchaseGatewayStub{}, &recordingPublisher{})

	p, err := svc.Valuation(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Valuation returned error: %v", err)
	}
	if !p.TotalGrams.IsZero() || !p.InvestedAmount.IsZero() || !p.CurrentValue.IsZero() || !p.ProfitLoss.IsZero() {
		t.Fatalf("expected a zeroed portfolio, got %+v", p)
	}
	if !p.PricePerGram.Equal(decimal.RequireFromString("6500")) {
		t.Fatalf("expected the live price to be echoed, got %s", p.PricePerGram)
	}
}

func TestValuation_FullExitClearsInvestedAmount(t *testing.T) {
	repo := &portfolioRepoStub{
		price: &domain.PriceSnapshot{PricePerGram: decimal.RequireFromString("6500")},
		history: []domain.Transaction{
			completedTx(domain.KindBuy, "0.8333", "5000", "6000"),
			completedTx(domain.KindWithdraw, "0.8333", "5416.45", "6500"),
		},
	}
	svc := NewService(repo, &purchaseGatewayStub{}, &recordingPublisher{})

	p, err := svc.Valuation(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Valuation returned error: %v", err)
	}
	if !p.TotalGrams.IsZero() {
		t.Fatalf("expected zero grams after full exit, got %s", p.TotalGrams)
	}
	if !p.InvestedAmount.IsZero() {
		t.Fatalf("expected zero invested after full exit, got %s", p.InvestedAmount)
	}
}
