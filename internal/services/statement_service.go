package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/proptrust/backend/internal/models"
)

// StatementService derives point-in-time statements by replaying the
// transaction log. It is a pure reader: no locks, no writes. Running
// balances are recomputed from the signed amounts and cross-checked against
// the stored balance_after column.
type StatementService struct {
	db *sql.DB
}

func NewStatementService(db *sql.DB) *StatementService {
	return &StatementService{db: db}
}

// Generate builds a statement for the account over [from, to].
func (ss *StatementService) Generate(ctx context.Context, accountID int64, from, to time.Time) (*models.Statement, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: period end %s precedes start %s",
			ErrValidation, to.Format("2006-01-02"), from.Format("2006-01-02"))
	}

	account, err := scanAccount(ss.db.QueryRowContext(ctx, selectAccount+` WHERE id = $1`, accountID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: account %d", ErrNotFound, accountID)
		}
		return nil, err
	}

	opening, err := ss.openingBalance(ctx, accountID, from)
	if err != nil {
		return nil, err
	}

	rows, err := ss.db.QueryContext(ctx, selectTransaction+`
		WHERE trust_account_id = $1 AND transaction_date >= $2 AND transaction_date <= $3
		ORDER BY transaction_date, created_at, id`,
		accountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statement := &models.Statement{
		Account:        account,
		PeriodStart:    from,
		PeriodEnd:      to,
		OpeningBalance: opening,
		Lines:          []models.StatementLine{},
		GeneratedAt:    time.Now(),
	}
	summary := &statement.Summary
	summary.TotalDeposits = decimal.Zero
	summary.TotalWithdrawals = decimal.Zero
	summary.TotalInterest = decimal.Zero
	summary.TotalFees = decimal.Zero

	running := opening
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}

		running = running.Add(txn.SignedAmount())
		statement.Lines = append(statement.Lines, models.StatementLine{
			Transaction:    *txn,
			RunningBalance: running,
			BalanceMatches: running.Equal(txn.BalanceAfter),
		})

		switch txn.TransactionType {
		case models.TransactionTypeDeposit:
			summary.TotalDeposits = summary.TotalDeposits.Add(txn.Amount)
		case models.TransactionTypeWithdrawal:
			summary.TotalWithdrawals = summary.TotalWithdrawals.Add(txn.Amount)
		case models.TransactionTypeInterest:
			summary.TotalInterest = summary.TotalInterest.Add(txn.Amount)
		case models.TransactionTypeFee:
			summary.TotalFees = summary.TotalFees.Add(txn.Amount)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	statement.ClosingBalance = running
	summary.NetChange = statement.ClosingBalance.Sub(statement.OpeningBalance)

	if account.AccountType == models.AccountTypeSecurityDeposit {
		statement.TenantLedgers = tenantLedgers(statement.Lines)
	}

	return statement, nil
}

// openingBalance is the signed sum of everything dated strictly before the
// period start.
func (ss *StatementService) openingBalance(ctx context.Context, accountID int64, periodStart time.Time) (decimal.Decimal, error) {
	var opening decimal.Decimal
	err := ss.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN transaction_type IN ('withdrawal', 'fee')
		                         THEN -amount ELSE amount END), 0)
		FROM trust_account_transactions
		WHERE trust_account_id = $1 AND transaction_date < $2`,
		accountID, periodStart).Scan(&opening)
	if err != nil {
		return decimal.Zero, err
	}
	return opening, nil
}

// tenantLedgers groups a security-deposit statement's lines by tenant.
func tenantLedgers(lines []models.StatementLine) []models.TenantSubLedger {
	byTenant := map[int64]*models.TenantSubLedger{}
	for _, line := range lines {
		txn := line.Transaction
		if txn.TenantID == nil {
			continue
		}
		ledger, ok := byTenant[*txn.TenantID]
		if !ok {
			ledger = &models.TenantSubLedger{
				TenantID:         *txn.TenantID,
				TotalDeposits:    decimal.Zero,
				TotalWithdrawals: decimal.Zero,
			}
			byTenant[*txn.TenantID] = ledger
		}
		ledger.Transactions = append(ledger.Transactions, txn)
		if models.IsDebitType(txn.TransactionType) {
			ledger.TotalWithdrawals = ledger.TotalWithdrawals.Add(txn.Amount)
		} else {
			ledger.TotalDeposits = ledger.TotalDeposits.Add(txn.Amount)
		}
	}

	ledgers := make([]models.TenantSubLedger, 0, len(byTenant))
	for _, ledger := range byTenant {
		ledger.Net = ledger.TotalDeposits.Sub(ledger.TotalWithdrawals)
		ledgers = append(ledgers, *ledger)
	}
	sort.Slice(ledgers, func(i, j int) bool { return ledgers[i].TenantID < ledgers[j].TenantID })
	return ledgers
}
