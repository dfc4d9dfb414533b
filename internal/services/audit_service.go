package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/proptrust/backend/internal/models"
)

// Lease is what the ledger needs to know about a lease: who holds it and how
// much deposit it requires.
type Lease struct {
	LeaseID         int64
	TenantID        int64
	RequiredDeposit decimal.Decimal
}

// LeaseDirectory is the lease/tenant collaborator. Only the audit report
// consumes it.
type LeaseDirectory interface {
	ActiveLeases(ctx context.Context, propertyID int64) ([]Lease, error)
}

// AuditService produces property-level audit reports: one statement per
// trust account plus a deposit-compliance check of each security-deposit
// account against the active leases' required deposits. Read-only.
type AuditService struct {
	accounts   *AccountService
	statements *StatementService
	leases     LeaseDirectory
}

func NewAuditService(accounts *AccountService, statements *StatementService, leases LeaseDirectory) *AuditService {
	return &AuditService{accounts: accounts, statements: statements, leases: leases}
}

// GenerateReport builds the audit report for every trust account of the
// property, inactive accounts included, over [from, to].
func (audit *AuditService) GenerateReport(ctx context.Context, propertyID int64, from, to time.Time) (*models.AuditReport, error) {
	accounts, err := audit.accounts.ListByProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: no trust accounts for property %d", ErrNotFound, propertyID)
	}

	report := &models.AuditReport{
		PropertyID:  propertyID,
		PeriodStart: from,
		PeriodEnd:   to,
		Statements:  []*models.Statement{},
		Compliance:  []models.ComplianceCheck{},
		GeneratedAt: time.Now(),
	}

	var requiredDeposits *decimal.Decimal
	for _, account := range accounts {
		statement, err := audit.statements.Generate(ctx, account.ID, from, to)
		if err != nil {
			return nil, err
		}
		report.Statements = append(report.Statements, statement)

		for _, line := range statement.Lines {
			if !line.BalanceMatches {
				report.BalanceMismatches++
			}
		}

		if account.AccountType != models.AccountTypeSecurityDeposit {
			continue
		}

		// Lazily summed once; every security-deposit account of the
		// property is checked against the same lease total.
		if requiredDeposits == nil {
			leases, err := audit.leases.ActiveLeases(ctx, propertyID)
			if err != nil {
				return nil, fmt.Errorf("lease directory lookup for property %d: %w", propertyID, err)
			}
			total := decimal.Zero
			for _, lease := range leases {
				total = total.Add(lease.RequiredDeposit)
			}
			requiredDeposits = &total
		}

		report.Compliance = append(report.Compliance, models.ComplianceCheck{
			AccountID:       account.ID,
			AccountName:     account.Name,
			Balance:         account.Balance,
			RequiredDeposit: *requiredDeposits,
			Compliant:       !account.Balance.LessThan(*requiredDeposits),
		})
	}

	if report.BalanceMismatches > 0 {
		log.Printf("[AUDIT] Property %d report flagged %d running-balance mismatches",
			propertyID, report.BalanceMismatches)
	}
	return report, nil
}
