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
)

type priceRepoStub struct {
	store.Repository

	latest *domain.PriceSnapshot

	inserted   []decimal.Decimal
	history    []domain.PriceSnapshot
	pruneCalls int
	pruned     int64
}

func (s *priceRepoStub) LatestPrice(ctx context.Context) (*domain.PriceSnapshot, error) {
	if s.latest == nil {
		return nil, store.ErrPriceUnavailable
	}
	return s.latest, nil
}

func (s *priceRepoStub) InsertPrice(ctx context.Context, pricePerGram decimal.Decimal) (*domain.PriceSnapshot, error) {
	s.inserted = append(s.inserted, pricePerGram)
	snap := &domain.PriceSnapshot{
		ID:           int64(len(s.inserted)),
		PricePerGram: pricePerGram,
		RecordedAt:   time.Now().UTC(),
	}
	s.latest = snap
	return snap, nil
}

func (s *priceRepoStub) PriceHistory(ctx context.Context, since time.Time) ([]domain.PriceSnapshot, error) {
	return s.history, nil
}

func (s *priceRepoStub) PrunePriceHistory(ctx context.Context, before time.Time) (int64, error) {
	s.pruneCalls++
	return s.pruned, nil
}

func TestSetPrice_RejectsNonPositive(t *testing.T) {
	repo := &priceRepoStub{}
	svc := NewService(repo, &purchaseGatewayStub{}, &recordingPublisher{})

	if _, err := svc.SetPrice(context.Background(), uuid.New(), decimal.Zero); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice for zero, got %v", err)
	}
	if _, err := svc.SetPrice(context.Background(), uuid.New(), decimal.RequireFromString("-6000")); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice for negative, got %v", err)
	}
	if len(repo.inserted) != 0 {
		t.Fatal("expected no snapshot for an invalid price")
	}
}

func TestSetPrice_RoundsToPaiseAndPublishes(t *testing.T) {
	repo := &priceRepoStub{}
	publisher := &recordingPublisher{}
	svc := NewService(repo, &purchaseGatewayStub{}, publisher)

	snap, err := svc.SetPrice(context.Background(), uuid.New(), decimal.RequireFromString("6500.129"))
	if err != nil {
		t.Fatalf("SetPrice returned error: %v", err)
	}
	if !snap.PricePerGram.Equal(decimal.RequireFromString("6500.13")) {
		t.Fatalf("expected 6500.13 after rounding, got %s", snap.PricePerGram)
	}
	if len(publisher.priceEvents) != 1 {
		t.Fatalf("expected one price event, got %d", len(publisher.priceEvents))
	}
}

func TestCurrentPrice_SurfacesUnavailability(t *testing.T) {
	svc := NewService(&priceRepoStub{}, &purchaseGatewayStub{}, &recordingPublisher{})

	if _, err := svc.CurrentPrice(context.Background()); !errors.Is(err, store.ErrPriceUnavailable) {
		t.Fatalf("expected ErrPriceUnavailable, got %v", err)
	}
}

func TestPriceHistory_FormatsChartPoints(t *testing.T) {
	recorded := time.Date(2026, time.January, 2, 12, 0, 0, 0, time.UTC)
	repo := &priceRepoStub{
		history: []domain.PriceSnapshot{
			{ID: 1, PricePerGram: decimal.RequireFromString("6400"), RecordedAt: recorded},
			{ID: 2, PricePerGram: decimal.RequireFromString("6500"), RecordedAt: recorded.Add(24 * time.Hour)},
		},
	}
	svc := NewService(repo, &purchaseGatewayStub{}, &recordingPublisher{})

	points, err := svc.PriceHistory(context.Background(), 0)
	if err != nil {
		t.Fatalf("PriceHistory returned error: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].Name != "Jan 02" {
		t.Fatalf("expected chart label Jan 02, got %q", points[0].Name)
	}
	if !points[1].Price.Equal(decimal.RequireFromString("6500")) {
		t.Fatalf("expected second point at 6500, got %s", points[1].Price)
	}
}

func TestSnapshotCurrentPrice_RerecordsAndPrunes(t *testing.T) {
	repo := &priceRepoStub{
		latest: &domain.PriceSnapshot{
			ID:           1,
			PricePerGram: decimal.RequireFromString("6500"),
			RecordedAt:   time.Now().UTC().Add(-24 * time.Hour),
		},
		pruned: 3,
	}
	svc := NewService(repo, &purchaseGatewayStub{}, &recordingPublisher{})

	svc.SnapshotCurrentPrice(context.Background(), 90*24*time.Hour)

	if len(repo.inserted) != 1 {
		t.Fatalf("expected one re-recorded snapshot, got %d", len(repo.inserted))
	}
	if !repo.inserted[0].Equal(decimal.RequireFromString("6500")) {
		t.Fatalf("expected the latest price re-recorded, got %s", repo.inserted[0])
	}
	if repo.pruneCalls != 1 {
		t.Fatalf("expected one prune pass, got %d", repo.pruneCalls)
	}
}

func TestSnapshotCurrentPrice_NoPriceIsANoop(t *testing.T) {
	repo := &priceRepoStub{}
	svc := NewService(repo, &purchaseGatewayStub{}, &recordingPublisher{})

	svc.SnapshotCurrentPrice(context.Background(), time.Hour)

	if len(repo.inserted) != 0 || repo.pruneCalls != 0 {
		t.Fatal("expected no writes when there is no price yet")
	}
}
