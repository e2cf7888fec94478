package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestHoldingsSummary_AvailableSubtractsReservations(t *testing.T) {
	summary := HoldingsSummary{
		CompletedBuys:      decimal.RequireFromString("2.0000"),
		CompletedWithdraws: decimal.RequireFromString("0.5000"),
		ReservedWithdraws:  decimal.RequireFromString("1.0000"),
	}

	if got := summary.Held().String(); got != "1.5" {
		t.Fatalf("expected held 1.5, got %s", got)
	}
	if got := summary.Available().String(); got != "0.5" {
		t.Fatalf("expected available 0.5, got %s", got)
	}
}

func TestTerminalStatus(t *testing.T) {
	for _, status := range []string{StatusCompleted, StatusRejected, StatusFailed} {
		if !TerminalStatus(status) {
			t.Fatalf("expected %s to be terminal", status)
		}
	}
	for _, status := range []string{StatusPending, StatusPendingPayout} {
		if TerminalStatus(status) {
			t.Fatalf("expected %s to be non-terminal", status)
		}
	}
}

func TestUserKYCComplete(t *testing.T) {
	pan := "ABCDE1234F"
	aadhaar := "123456789012"
	name := "A Sharma"
	number := "0012345678"
	ifsc := "HDFC0000123"
	empty := ""

	user := User{
		PANNumber:         &pan,
		AadhaarNumber:     &aadhaar,
		BankAccountName:   &name,
		BankAccountNumber: &number,
		BankIFSCCode:      &ifsc,
	}
	if !user.KYCComplete() {
		t.Fatal("expected complete KYC")
	}

	user.BankIFSCCode = nil
	if user.KYCComplete() {
		t.Fatal("expected missing IFSC to fail KYC")
	}

	user.BankIFSCCode = &empty
	if user.KYCComplete() {
		t.Fatal("expected empty IFSC to fail KYC")
	}
}
