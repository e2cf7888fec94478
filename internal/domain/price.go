package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSnapshot is one recorded price-per-gram value. Snapshots are append
// only; the newest row is the current price. Updating the price never touches
// the price recorded on existing transactions.
type PriceSnapshot struct {
	ID           int64           `json:"id"`
	PricePerGram decimal.Decimal `json:"price"`
	RecordedAt   time.Time       `json:"recorded_at"`
}

// PricePoint is one chart point of the history series, shaped the way the
// dashboard chart consumes it.
type PricePoint struct {
	Name  string          `json:"name"` // e.g. "Jan 02"
	Price decimal.Decimal `json:"price"`
}

// SetPriceRequest is the admin price-update payload.
type SetPriceRequest struct {
	NewPrice decimal.Decimal `json:"newPrice"`
}

// Portfolio is the on-demand valuation of one user's holdings. investedAmount
// is the weighted-average cost of the grams still held; currentValue and
// profit depend on the live price and are never stored.
type Portfolio struct {
	TotalGrams     decimal.Decimal `json:"totalGrams"`
	CurrentValue   decimal.Decimal `json:"currentValue"`
	InvestedAmount decimal.Decimal `json:"totalInvested"`
	ProfitLoss     decimal.Decimal `json:"profit"`
	PricePerGram   decimal.Decimal `json:"pricePerGram"`
}
