package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account types held in trust, separate from operating funds
const (
	AccountTypeSecurityDeposit = "security_deposit"
	AccountTypeEscrow          = "escrow"
	AccountTypeReserve         = "reserve"
)

// TrustAccount represents a per-property trust account. At most one active
// account may exist per (property, account_type). Balance is mutated only by
// the posting engine.
type TrustAccount struct {
	ID                int64           `json:"id" db:"id"`
	PropertyID        int64           `json:"property_id" db:"property_id"`
	Name              string          `json:"name" db:"name"`
	AccountType       string          `json:"account_type" db:"account_type"`
	BankName          string          `json:"bank_name,omitempty" db:"bank_name"`
	AccountNumber     string          `json:"account_number,omitempty" db:"account_number"`
	RoutingNumber     string          `json:"routing_number,omitempty" db:"routing_number"`
	IsInterestBearing bool            `json:"is_interest_bearing" db:"is_interest_bearing"`
	InterestRate      decimal.Decimal `json:"interest_rate" db:"interest_rate"` // annual percentage
	Balance           decimal.Decimal `json:"balance" db:"balance"`
	IsActive          bool            `json:"is_active" db:"is_active"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// ValidAccountType reports whether t is one of the supported trust account types.
func ValidAccountType(t string) bool {
	switch t {
	case AccountTypeSecurityDeposit, AccountTypeEscrow, AccountTypeReserve:
		return true
	}
	return false
}
