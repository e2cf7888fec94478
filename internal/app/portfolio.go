/**
 * @description
 * Portfolio valuation on a weighted-average cost basis. Holdings and invested
 * capital are derived by replaying the user's completed transactions in
 * settlement order; pending and rejected rows never move the basis. A
 * withdrawal retires cost proportionally at the running average, so the
 * remaining position keeps its average purchase price regardless of which
 * "lots" went out.
 */

package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldvault/ledger-service/internal/domain"
)

// Valuation computes the user's current position against the latest price.
func (s *Service) Valuation(ctx context.Context, userID uuid.UUID) (*domain.Portfolio, error) {
	price, err := s.repo.LatestPrice(ctx)
	if err != nil {
		return nil, err
	}

	history, err := s.repo.CompletedTransactionsInOrder(ctx, userID)
	if err != nil {
		return nil, err
	}

	totalGrams := decimal.Zero
	invested := decimal.Zero
	for _, tx := range history {
		switch tx.Kind {
		case domain.KindBuy:
			totalGrams = totalGrams.Add(tx.Grams)
			invested = invested.Add(tx.AmountINR)
		case domain.KindWithdraw:
			if totalGrams.IsZero() {
				// A withdrawal against an empty position should not
				// exist; skip rather than divide by zero.
				continue
			}
			averageCost := invested.Div(totalGrams)
			retired := tx.Grams.Mul(averageCost)
			invested = invested.Sub(retired)
			totalGrams = totalGrams.Sub(tx.Grams)
			if totalGrams.IsNegative() {
				totalGrams = decimal.Zero
			}
			if invested.IsNegative() || totalGrams.IsZero() {
				invested = decimal.Zero
			}
		}
	}

	totalGrams = totalGrams.Round(domain.GramPrecision)
	invested = invested.Round(domain.RupeePrecision)
	currentValue := totalGrams.Mul(price.PricePerGram).Round(domain.RupeePrecision)

	return &domain.Portfolio{
		TotalGrams:     totalGrams,
		CurrentValue:   currentValue,
		InvestedAmount: invested,
		ProfitLoss:     currentValue.Sub(invested),
		PricePerGram:   price.PricePerGram,
	}, nil
}
