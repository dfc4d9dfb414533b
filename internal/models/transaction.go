package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types. Deposits and interest increase the balance,
// withdrawals and fees decrease it.
const (
	TransactionTypeDeposit    = "deposit"
	TransactionTypeWithdrawal = "withdrawal"
	TransactionTypeInterest   = "interest"
	TransactionTypeFee        = "fee"
)

// TrustTransaction is one row of the append-only transaction log.
// Rows are immutable once created except for the reconciliation fields.
type TrustTransaction struct {
	ID               int64           `json:"id" db:"id"`
	TrustAccountID   int64           `json:"trust_account_id" db:"trust_account_id"`
	TransactionType  string          `json:"transaction_type" db:"transaction_type"`
	Amount           decimal.Decimal `json:"amount" db:"amount"` // always positive, sign implied by type
	TransactionDate  time.Time       `json:"transaction_date" db:"transaction_date"`
	Description      string          `json:"description,omitempty" db:"description"`
	ReferenceNumber  string          `json:"reference_number,omitempty" db:"reference_number"`
	TenantID         *int64          `json:"tenant_id,omitempty" db:"tenant_id"`
	LeaseID          *int64          `json:"lease_id,omitempty" db:"lease_id"`
	RelatedAccountID *int64          `json:"related_account_id,omitempty" db:"related_account_id"`
	IsReconciled     bool            `json:"is_reconciled" db:"is_reconciled"`
	ReconciledDate   *time.Time      `json:"reconciled_date,omitempty" db:"reconciled_date"`
	ReconciledBy     *int64          `json:"reconciled_by,omitempty" db:"reconciled_by"`
	BalanceAfter     decimal.Decimal `json:"balance_after" db:"balance_after"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// ValidTransactionType reports whether t is a supported ledger transaction type.
func ValidTransactionType(t string) bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeInterest, TransactionTypeFee:
		return true
	}
	return false
}

// IsDebitType reports whether t decreases the account balance.
func IsDebitType(t string) bool {
	return t == TransactionTypeWithdrawal || t == TransactionTypeFee
}

// SignedAmount applies the sign implied by the transaction type.
func SignedAmount(transactionType string, amount decimal.Decimal) decimal.Decimal {
	if IsDebitType(transactionType) {
		return amount.Neg()
	}
	return amount
}

// SignedAmount returns the transaction's contribution to the account balance.
func (t *TrustTransaction) SignedAmount() decimal.Decimal {
	return SignedAmount(t.TransactionType, t.Amount)
}
