/**
 * @description
 * Purchase orchestration: creating a pending buy against the payment gateway
 * and idempotently finalizing it into a ledger credit once the gateway
 * confirms settlement.
 *
 * The gateway call never runs inside a ledger lock: the pending row is
 * committed first, then the gateway is contacted, and verification later
 * applies a compare-and-set on that row.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldvault/ledger-service/internal/domain"
	"github.com/goldvault/ledger-service/internal/store"
	"github.com/goldvault/ledger-service/pkg/cashfree"
)

// CreateBuyOrder validates the amount, snapshots the current price into a new
// pending buy transaction, and asks the gateway for a checkout session keyed
// by the transaction id.
func (s *Service) CreateBuyOrder(ctx context.Context, userID uuid.UUID, amountINR decimal.Decimal) (*domain.CreateBuyOrderResponse, error) {
	if !amountINR.IsPositive() {
		return nil, ErrInvalidAmount
	}

	price, err := s.repo.LatestPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read current price: %w", err)
	}

	amount := amountINR.Round(domain.RupeePrecision)
	grams := amount.DivRound(price.PricePerGram, domain.GramPrecision)

	txRecord := &domain.Transaction{
		ID:           uuid.New(),
		UserID:       userID,
		Kind:         domain.KindBuy,
		Status:       domain.StatusPending,
		Grams:        grams,
		AmountINR:    amount,
		PricePerGram: price.PricePerGram,
	}
	if err := s.repo.CreateBuyTransaction(ctx, txRecord); err != nil {
		return nil, fmt.Errorf("failed to create buy transaction: %w", err)
	}

	// Gateway I/O happens strictly after the ledger insert committed.
	order, err := s.gateway.CreateOrder(ctx, txRecord.ID.String(), userID.String(), amount)
	if err != nil {
		log.Printf("level=warn component=ledger_service endpoint=create_order outcome=gateway_failed transaction_id=%s err=%v", txRecord.ID, err)
		reason := "payment gateway unreachable at order creation"
		if _, failErr := s.repo.FailBuy(ctx, txRecord.ID, reason); failErr != nil {
			log.Printf("level=error component=ledger_service msg=\"failed to mark unreachable-gateway buy as failed\" transaction_id=%s err=%v", txRecord.ID, failErr)
		}
		return nil, ErrGatewayUnavailable
	}

	log.Printf("level=info component=ledger_service endpoint=create_order outcome=accepted transaction_id=%s user_id=%s amount=%s grams=%s",
		txRecord.ID, userID, amount, grams)

	return &domain.CreateBuyOrderResponse{
		OrderID:          txRecord.ID.String(),
		PaymentSessionID: order.PaymentSessionID,
	}, nil
}

// VerifyPayment is the idempotent finalize step. The triggering UI invokes it
// from a redirect page that can re-run on refresh, so repeated calls for an
// already-settled order must succeed without re-crediting.
func (s *Service) VerifyPayment(ctx context.Context, orderID uuid.UUID) (*domain.Transaction, error) {
	if err := s.consumeRateLimit(ctx, "verify_payment", orderID, s.verifyRateLimitPerMinute); err != nil {
		return nil, err
	}

	txRecord, err := s.repo.FindTransactionByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if txRecord.Kind != domain.KindBuy {
		return nil, store.ErrTransactionNotFound
	}

	switch txRecord.Status {
	case domain.StatusCompleted:
		// Duplicate verification: success with the existing confirmation.
		return txRecord, nil
	case domain.StatusFailed:
		return txRecord, ErrSettlementFailed
	case domain.StatusPending:
		// fall through to the gateway
	default:
		return txRecord, store.ErrInvalidTransition
	}

	settlement, gatewayRef, err := s.gateway.GetSettlement(ctx, orderID.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	switch settlement {
	case cashfree.SettlementSettled:
		settled, err := s.repo.SettleBuy(ctx, orderID, gatewayRef)
		if errors.Is(err, store.ErrInvalidTransition) {
			// A concurrent verification won the CAS; report its outcome.
			if settled != nil && settled.Status == domain.StatusCompleted {
				return settled, nil
			}
			return settled, err
		}
		if err != nil {
			return nil, err
		}
		log.Printf("level=info component=ledger_service endpoint=verify_payment outcome=settled transaction_id=%s grams=%s", settled.ID, settled.Grams)
		s.publishTransition(ctx, settled, domain.StatusPending, settled.UserID, gatewayRef)
		return settled, nil

	case cashfree.SettlementFailed:
		failed, err := s.repo.FailBuy(ctx, orderID, "gateway reported settlement failure")
		if errors.Is(err, store.ErrInvalidTransition) {
			if failed != nil && failed.Status == domain.StatusCompleted {
				return failed, nil
			}
			return failed, ErrSettlementFailed
		}
		if err != nil {
			return nil, err
		}
		s.publishTransition(ctx, failed, domain.StatusPending, failed.UserID, gatewayRef)
		return failed, ErrSettlementFailed

	default:
		// Indeterminate: leave pending, never guess success.
		return txRecord, ErrVerificationPending
	}
}
