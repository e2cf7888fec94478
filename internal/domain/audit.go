package domain

import (
	"time"

	"github.com/google/uuid"
)

// Audit outcomes. Denied admin actions are recorded with the same detail as
// applied ones so the trail explains every attempt, not just the winners.
const (
	AuditApplied = "applied"
	AuditDenied  = "denied"
)

// AuditEntry records one attempted state transition: who tried it, what the
// transition was, and the durable reference (payment reference, rejection
// reason, or error detail for denied attempts).
type AuditEntry struct {
	ID            uuid.UUID `json:"id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	ActorID       uuid.UUID `json:"actor_id"`
	Action        string    `json:"action"` // e.g. "approve", "reject", "complete_payout", "set_price"
	FromStatus    string    `json:"from_status"`
	ToStatus      string    `json:"to_status"`
	Reference     string    `json:"reference"`
	Outcome       string    `json:"outcome"` // 'applied' or 'denied'
	CreatedAt     time.Time `json:"created_at"`
}
