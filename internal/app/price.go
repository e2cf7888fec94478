package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldvault/ledger-service/internal/domain"
	"github.com/goldvault/ledger-service/pkg/rabbitmq"
)

// DefaultHistoryWindow bounds the chart series returned to clients.
const DefaultHistoryWindow = 7 * 24 * time.Hour

// CurrentPrice returns the latest recorded price-per-gram.
func (s *Service) CurrentPrice(ctx context.Context) (*domain.PriceSnapshot, error) {
	return s.repo.LatestPrice(ctx)
}

// SetPrice records a new price snapshot. Existing transactions keep the price
// they were created at; only future reads see the new value.
func (s *Service) SetPrice(ctx context.Context, actorID uuid.UUID, newPrice decimal.Decimal) (*domain.PriceSnapshot, error) {
	if !newPrice.IsPositive() {
		return nil, ErrInvalidPrice
	}
	snap, err := s.repo.InsertPrice(ctx, newPrice.Round(domain.RupeePrecision))
	if err != nil {
		return nil, err
	}
	log.Printf("level=info component=ledger_service msg=\"price updated\" actor_id=%s price=%s", actorID, snap.PricePerGram)
	if s.events != nil {
		event := rabbitmq.PriceUpdateEvent{
			PricePerGram: snap.PricePerGram.String(),
			ActorID:      actorID,
			Timestamp:    time.Now().UTC(),
		}
		if err := s.events.PublishPriceUpdateEvent(ctx, event); err != nil {
			log.Printf("level=warn component=ledger_service msg=\"price event publish failed\" err=%v", err)
		}
	}
	return snap, nil
}

// PriceHistory returns the chart series for the given window (defaulting to
// the last 7 days), one point per recorded snapshot, time-ascending.
func (s *Service) PriceHistory(ctx context.Context, window time.Duration) ([]domain.PricePoint, error) {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	snaps, err := s.repo.PriceHistory(ctx, time.Now().UTC().Add(-window))
	if err != nil {
		return nil, err
	}
	points := make([]domain.PricePoint, 0, len(snaps))
	for _, snap := range snaps {
		points = append(points, domain.PricePoint{
			Name:  snap.RecordedAt.Format("Jan 02"),
			Price: snap.PricePerGram,
		})
	}
	return points, nil
}

// SnapshotCurrentPrice re-records the current price so the history series has
// at least one point per day even when no admin touched the price. Run from
// the cron schedule in main.
func (s *Service) SnapshotCurrentPrice(ctx context.Context, retention time.Duration) {
	snap, err := s.repo.LatestPrice(ctx)
	if err != nil {
		log.Printf("level=warn component=price_snapshot msg=\"no price to snapshot\" err=%v", err)
		return
	}
	if _, err := s.repo.InsertPrice(ctx, snap.PricePerGram); err != nil {
		log.Printf("level=error component=price_snapshot msg=\"snapshot insert failed\" err=%v", err)
		return
	}
	if retention > 0 {
		pruned, err := s.repo.PrunePriceHistory(ctx, time.Now().UTC().Add(-retention))
		if err != nil {
			log.Printf("level=warn component=price_snapshot msg=\"history prune failed\" err=%v", err)
			return
		}
		if pruned > 0 {
			log.Printf("level=info component=price_snapshot msg=\"history pruned\" rows=%d", pruned)
		}
	}
}
