package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User roles carried in the bearer token's role claim.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the identity/KYC/bank view this service reads. The account subsystem
// owns registration and credentials; the ledger only needs the fields that
// gate withdrawals plus a display identity for admin screens.
type User struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone"`
	Role              string    `json:"role"`
	PANNumber         *string   `json:"pan_card_number"`
	AadhaarNumber     *string   `json:"aadhaar_card_number"`
	BankAccountName   *string   `json:"bank_account_name"`
	BankAccountNumber *string   `json:"bank_account_number"`
	BankIFSCCode      *string   `json:"bank_ifsc_code"`
	CreatedAt         time.Time `json:"created_at"`
}

// KYCComplete reports whether every field required before a payout can be
// requested or approved is present.
func (u *User) KYCComplete() bool {
	for _, f := range []*string{u.PANNumber, u.AadhaarNumber, u.BankAccountName, u.BankAccountNumber, u.BankIFSCCode} {
		if f == nil || strings.TrimSpace(*f) == "" {
			return false
		}
	}
	return true
}

// ProfileUpdate is the settings-screen payload updating KYC and bank fields.
type ProfileUpdate struct {
	AccountName   string `json:"accountName"`
	AccountNumber string `json:"accountNumber"`
	IFSCCode      string `json:"ifscCode"`
	PANNumber     string `json:"panNumber"`
	AadhaarNumber string `json:"aadhaarNumber"`
}

// UserHolding is one row of the admin users-portfolio listing: a user plus
// their ledger-derived net holdings.
type UserHolding struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Phone      string          `json:"phone"`
	TotalGrams decimal.Decimal `json:"totalGrams"`
	CreatedAt  time.Time       `json:"created_at"`
}
