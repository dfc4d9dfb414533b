package models

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// StatementLine pairs a transaction with its recomputed running balance.
// BalanceMatches is false when the replayed balance disagrees with the
// stored balance_after; the statement reports it, it never repairs it.
type StatementLine struct {
	Transaction    TrustTransaction `json:"transaction"`
	RunningBalance decimal.Decimal  `json:"running_balance"`
	BalanceMatches bool             `json:"balance_matches"`
}

// StatementSummary totals the period's activity per transaction type.
type StatementSummary struct {
	TotalDeposits    decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals decimal.Decimal `json:"total_withdrawals"`
	TotalInterest    decimal.Decimal `json:"total_interest"`
	TotalFees        decimal.Decimal `json:"total_fees"`
	NetChange        decimal.Decimal `json:"net_change"`
}

// TenantSubLedger groups a security-deposit account's activity for one tenant.
type TenantSubLedger struct {
	TenantID         int64              `json:"tenant_id"`
	TotalDeposits    decimal.Decimal    `json:"total_deposits"`
	TotalWithdrawals decimal.Decimal    `json:"total_withdrawals"`
	Net              decimal.Decimal    `json:"net"`
	Transactions     []TrustTransaction `json:"transactions"`
}

// Statement is a point-in-time view of an account over a date window.
type Statement struct {
	Account        *TrustAccount     `json:"account"`
	PeriodStart    time.Time         `json:"period_start"`
	PeriodEnd      time.Time         `json:"period_end"`
	OpeningBalance decimal.Decimal   `json:"opening_balance"`
	ClosingBalance decimal.Decimal   `json:"closing_balance"`
	Lines          []StatementLine   `json:"lines"`
	Summary        StatementSummary  `json:"summary"`
	TenantLedgers  []TenantSubLedger `json:"tenant_ledgers,omitempty"`
	GeneratedAt    time.Time         `json:"generated_at"`
}

// ComplianceCheck compares a security-deposit account balance against the
// required deposit total of the property's active leases.
type ComplianceCheck struct {
	AccountID       int64           `json:"account_id"`
	AccountName     string          `json:"account_name"`
	Balance         decimal.Decimal `json:"balance"`
	RequiredDeposit decimal.Decimal `json:"required_deposit"`
	Compliant       bool            `json:"compliant"`
}

// AuditReport is the property-level view across all trust accounts.
type AuditReport struct {
	PropertyID        int64             `json:"property_id"`
	PeriodStart       time.Time         `json:"period_start"`
	PeriodEnd         time.Time         `json:"period_end"`
	Statements        []*Statement      `json:"statements"`
	Compliance        []ComplianceCheck `json:"compliance"`
	BalanceMismatches int               `json:"balance_mismatches"`
	GeneratedAt       time.Time         `json:"generated_at"`
}

// WriteCSV renders the statement as CSV for download/export.
func (s *Statement) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := []string{"date", "type", "description", "reference", "amount", "running_balance", "reconciled"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, line := range s.Lines {
		t := line.Transaction
		reconciled := "no"
		if t.IsReconciled {
			reconciled = "yes"
		}
		record := []string{
			t.TransactionDate.Format("2006-01-02"),
			t.TransactionType,
			t.Description,
			t.ReferenceNumber,
			t.SignedAmount().StringFixed(2),
			line.RunningBalance.StringFixed(2),
			reconciled,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
