package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldvault/ledger-service/internal/domain"
	"github.com/goldvault/ledger-service/internal/store"
	"github.com/goldvault/ledger-service/pkg/cashfree"
	"github.com/goldvault/ledger-service/pkg/rabbitmq"
)

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	transitions []rabbitmq.TransitionEvent
	priceEvents []rabbitmq.PriceUpdateEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	return nil
}

func (p *recordingPublisher) PublishTransitionEvent(ctx context.Context, event rabbitmq.TransitionEvent) error {
	p.transitions = append(p.transitions, event)
	return nil
}

func (p *recordingPublisher) PublishPriceUpdateEvent(ctx context.Context, event rabbitmq.PriceUpdateEvent) error {
	p.priceEvents = append(p.priceEvents, event)
	return nil
}

func (p *recordingPublisher) Close() {}

type purchaseGatewayStub struct {
	createOrderErr   error
	createOrderCalls int

	settlement    cashfree.SettlementStatus
	settlementRef string
	settlementErr error
	getCalls      int
}

func (g *purchaseGatewayStub) CreateOrder(ctx context.Context, orderID, customerID string, amount decimal.Decimal) (*cashfree.CreateOrderResponse, error) {
	g.createOrderCalls++
	if g.createOrderErr != nil {
		return nil, g.createOrderErr
	}
	return &cashfree.CreateOrderResponse{
		OrderID:          orderID,
		PaymentSessionID: "session_" + orderID,
		OrderStatus:      "ACTIVE",
	}, nil
}

func (g *purchaseGatewayStub) GetSettlement(ctx context.Context, orderID string) (cashfree.SettlementStatus, string, error) {
	g.getCalls++
	if g.settlementErr != nil {
		return "", "", g.settlementErr
	}
	return g.settlement, g.settlementRef, nil
}

type purchaseRepoStub struct {
	store.Repository

	price *domain.PriceSnapshot
	tx    *domain.Transaction

	createdBuy *domain.Transaction

	settleCalls int
	settleTx    *domain.Transaction
	settleErr   error

	failCalls  int
	failReason string
}

func (s *purchaseRepoStub) LatestPrice(ctx context.Context) (*domain.PriceSnapshot, error) {
	if s.price == nil {
		return nil, store.ErrPriceUnavailable
	}
	return s.price, nil
}

func (s *purchaseRepoStub) CreateBuyTransaction(ctx context.Context, tx *domain.Transaction) error {
	s.createdBuy = tx
	return nil
}

func (s *purchaseRepoStub) FindTransactionByID(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error) {
	if s.tx == nil || s.tx.ID != transactionID {
		return nil, store.ErrTransactionNotFound
	}
	return s.tx, nil
}

func (s *purchaseRepoStub) SettleBuy(ctx context.Context, transactionID uuid.UUID, referenceID string) (*domain.Transaction, error) {
	s.settleCalls++
	if s.settleErr != nil {
		return s.settleTx, s.settleErr
	}
	now := time.Now().UTC()
	settled := *s.tx
	settled.Status = domain.StatusCompleted
	settled.ReferenceID = &referenceID
	settled.CompletedAt = &now
	return &settled, nil
}

func (s *purchaseRepoStub) FailBuy(ctx context.Context, transactionID uuid.UUID, reason string) (*domain.Transaction, error) {
	s.failCalls++
	s.failReason = reason
	failed := domain.Transaction{ID: transactionID, Kind: domain.KindBuy}
	if s.tx != nil {
		failed = *s.tx
	}
	failed.Status = domain.StatusFailed
	failed.RejectionReason = &reason
	return &failed, nil
}

func (s *purchaseRepoStub) AppendAudit(ctx context.Context, entry *domain.AuditEntry) error {
	return nil
}

func pricedRepo(price string) *purchaseRepoStub {
	return &purchaseRepoStub{
		price: &domain.PriceSnapshot{
			ID:           1,
			PricePerGram: decimal.RequireFromString(price),
			RecordedAt:   time.Now().UTC(),
		},
	}
}

func TestCreateBuyOrder_ComputesGramsFromLivePrice(t *testing.T) {
	repo := pricedRepo("6000")
	gateway := &purchaseGatewayStub{}
	svc := NewService(repo, gateway, &recordingPublisher{})

	order, err := svc.CreateBuyOrder(context.Background(), uuid.New(), decimal.RequireFromString("5000"))
	if err != nil {
		t.Fatalf("CreateBuyOrder returned error: %v", err)
	}
	if repo.createdBuy == nil {
		t.Fatal("expected a pending buy transaction to be created")
	}
	if got := repo.createdBuy.Grams.String(); got != "0.8333" {
		t.Fatalf("expected 0.8333 grams for 5000 at 6000/g, got %s", got)
	}
	if repo.createdBuy.Status != domain.StatusPending {
		t.Fatalf("expected pending status, got %s", repo.createdBuy.Status)
	}
	if !repo.createdBuy.PricePerGram.Equal(decimal.RequireFromString("6000")) {
		t.Fatalf("expected price snapshot 6000, got %s", repo.createdBuy.PricePerGram)
	}
	if order.PaymentSessionID == "" {
		t.Fatal("expected a payment session id")
	}
	if order.OrderID != repo.createdBuy.ID.String() {
		t.Fatalf("expected order id to match transaction id, got %s", order.OrderID)
	}
}

func TestCreateBuyOrder_RejectsNonPositiveAmount(t *testing.T) {
	svc := NewService(pricedRepo("6000"), &purchaseGatewayStub{}, &recordingPublisher{})

	if _, err := svc.CreateBuyOrder(context.Background(), uuid.New(), decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := svc.CreateBuyOrder(context.Background(), uuid.New(), decimal.RequireFromString("-10")); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative amount, got %v", err)
	}
}

func TestCreateBuyOrder_GatewayFailureMarksBuyFailed(t *testing.T) {
	repo := pricedRepo("6000")
	gateway := &purchaseGatewayStub{createOrderErr: errors.New("connect timeout")}
	svc := NewService(repo, gateway, &recordingPublisher{})

	_, err := svc.CreateBuyOrder(context.Background(), uuid.New(), decimal.RequireFromString("1000"))
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
	if repo.createdBuy == nil {
		t.Fatal("expected the pending buy to have been created before the gateway call")
	}
	if repo.failCalls == 0 {
		t.Fatal("expected the orphaned buy to be marked failed")
	}
}

func TestVerifyPayment_AlreadyCompletedIsIdempotent(t *testing.T) {
	orderID := uuid.New()
	ref := "cf_ref_1"
	repo := &purchaseRepoStub{
		tx: &domain.Transaction{
			ID:          orderID,
			UserID:      uuid.New(),
			Kind:        domain.KindBuy,
			Status:      domain.StatusCompleted,
			ReferenceID: &ref,
		},
	}
	gateway := &purchaseGatewayStub{}
	svc := NewService(repo, gateway, &recordingPublisher{})

	tx, err := svc.VerifyPayment(context.Background(), orderID)
	if err != nil {
		t.Fatalf("expected duplicate verification to succeed, got %v", err)
	}
	if tx.Status != domain.StatusCompleted {
		t.Fatalf("expected completed status, got %s", tx.Status)
	}
	if gateway.getCalls != 0 {
		t.Fatal("expected no gateway call for an already-completed order")
	}
	if repo.settleCalls != 0 {
		t.Fatal("expected no second settlement for an already-completed order")
	}
}

func TestVerifyPayment_SettledCreditsOnce(t *testing.T) {
	orderID := uuid.New()
	publisher := &recordingPublisher{}
	repo := &purchaseRepoStub{
		tx: &domain.Transaction{
			ID:     orderID,
			UserID: uuid.New(),
			Kind:   domain.KindBuy,
			Status: domain.StatusPending,
			Grams:  decimal.RequireFromString("0.8333"),
		},
	}
	gateway := &purchaseGatewayStub{settlement: cashfree.SettlementSettled, settlementRef: "cf_ref_2"}
	svc := NewService(repo, gateway, publisher)

	tx, err := svc.VerifyPayment(context.Background(), orderID)
	if err != nil {
		t.Fatalf("VerifyPayment returned error: %v", err)
	}
	if tx.Status != domain.StatusCompleted {
		t.Fatalf("expected completed status, got %s", tx.Status)
	}
	if repo.settleCalls != 1 {
		t.Fatalf("expected exactly one settlement, got %d", repo.settleCalls)
	}
	if len(publisher.transitions) != 1 {
		t.Fatalf("expected one transition event, got %d", len(publisher.transitions))
	}
	if publisher.transitions[0].ToStatus != domain.StatusCompleted {
		t.Fatalf("expected event to_status completed, got %s", publisher.transitions[0].ToStatus)
	}
}

func TestVerifyPayment_LostRaceReportsWinnerOutcome(t *testing.T) {
	orderID := uuid.New()
	ref := "cf_ref_3"
	now := time.Now().UTC()
	winner := &domain.Transaction{
		ID:          orderID,
		UserID:      uuid.New(),
		Kind:        domain.KindBuy,
		Status:      domain.StatusCompleted,
		ReferenceID: &ref,
		CompletedAt: &now,
	}
	repo := &purchaseRepoStub{
		tx: &domain.Transaction{
			ID:     orderID,
			UserID: winner.UserID,
			Kind:   domain.KindBuy,
			Status: domain.StatusPending,
		},
		settleErr: store.ErrInvalidTransition,
		settleTx:  winner,
	}
	gateway := &purchaseGatewayStub{settlement: cashfree.SettlementSettled, settlementRef: ref}
	svc := NewService(repo, gateway, &recordingPublisher{})

	tx, err := svc.VerifyPayment(context.Background(), orderID)
	if err != nil {
		t.Fatalf("expected lost race against a completed winner to succeed, got %v", err)
	}
	if tx.Status != domain.StatusCompleted {
		t.Fatalf("expected the winner's completed row, got %s", tx.Status)
	}
}

func TestVerifyPayment_IndeterminateLeavesPending(t *testing.T) {
	orderID := uuid.New()
	repo := &purchaseRepoStub{
		tx: &domain.Transaction{
			ID:     orderID,
			UserID: uuid.New(),
			Kind:   domain.KindBuy,
			Status: domain.StatusPending,
		},
	}
	gateway := &purchaseGatewayStub{settlement: cashfree.SettlementPending}
	svc := NewService(repo, gateway, &recordingPublisher{})

	tx, err := svc.VerifyPayment(context.Background(), orderID)
	if !errors.Is(err, ErrVerificationPending) {
		t.Fatalf("expected ErrVerificationPending, got %v", err)
	}
	if tx.Status != domain.StatusPending {
		t.Fatalf("expected transaction to stay pending, got %s", tx.Status)
	}
	if repo.settleCalls != 0 || repo.failCalls != 0 {
		t.Fatal("expected no state change for an indeterminate settlement")
	}
}

func TestVerifyPayment_FailedSettlementMarksBuyFailed(t *testing.T) {
	orderID := uuid.New()
	repo := &purchaseRepoStub{
		tx: &domain.Transaction{
			ID:     orderID,
			UserID: uuid.New(),
			Kind:   domain.KindBuy,
			Status: domain.StatusPending,
		},
	}
	gateway := &purchaseGatewayStub{settlement: cashfree.SettlementFailed, settlementRef: "cf_ref_4"}
	svc := NewService(repo, gateway, &recordingPublisher{})

	tx, err := svc.VerifyPayment(context.Background(), orderID)
	if !errors.Is(err, ErrSettlementFailed) {
		t.Fatalf("expected ErrSettlementFailed, got %v", err)
	}
	if tx.Status != domain.StatusFailed {
		t.Fatalf("expected failed status, got %s", tx.Status)
	}
	if repo.failCalls != 1 {
		t.Fatalf("expected exactly one fail transition, got %d", repo.failCalls)
	}
}

func TestVerifyPayment_RejectsNonBuyTransaction(t *testing.T) {
	orderID := uuid.New()
	repo := &purchaseRepoStub{
		tx: &domain.Transaction{
			ID:     orderID,
			UserID: uuid.New(),
			Kind:   domain.KindWithdraw,
			Status: domain.StatusPending,
		},
	}
	svc := NewService(repo, &purchaseGatewayStub{}, &recordingPublisher{})

	if _, err := svc.VerifyPayment(context.Background(), orderID); !errors.Is(err, store.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound for a withdrawal id, got %v", err)
	}
}
