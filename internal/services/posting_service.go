package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/proptrust/backend/internal/config"
	"github.com/proptrust/backend/internal/models"
)

// PostingService is the single mutation surface of the ledger. Every balance
// change in the system goes through PostTx: the account row is locked for the
// duration of the posting, the transaction row is appended with the resulting
// balance, and the account balance is updated, all inside one database
// transaction. The transfer coordinator and the interest engine compose onto
// it rather than writing balances themselves.
type PostingService struct {
	db       *sql.DB
	notifier *Notifier
	cfg      *config.LedgerConfig
}

func NewPostingService(db *sql.DB, notifier *Notifier, cfg *config.LedgerConfig) *PostingService {
	return &PostingService{db: db, notifier: notifier, cfg: cfg}
}

type PostingRequest struct {
	AccountID        int64
	TransactionType  string
	Amount           decimal.Decimal
	TransactionDate  time.Time
	Description      string
	ReferenceNumber  string
	TenantID         *int64
	LeaseID          *int64
	RelatedAccountID *int64
}

// Post runs one posting as its own atomic unit and, after commit, emits a
// tenant notification for tenant-linked deposits and withdrawals.
func (ps *PostingService) Post(ctx context.Context, req *PostingRequest) (*models.TrustTransaction, error) {
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	txn, accountType, err := ps.PostTx(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	ps.notifyPosting(txn, accountType)
	return txn, nil
}

// PostTx appends one transaction inside a caller-owned database transaction.
// It returns the created row and the account type, which the caller needs for
// notifications after its own commit.
func (ps *PostingService) PostTx(ctx context.Context, tx *sql.Tx, req *PostingRequest) (*models.TrustTransaction, string, error) {
	if !models.ValidTransactionType(req.TransactionType) {
		return nil, "", fmt.Errorf("%w: unknown transaction type %q", ErrValidation, req.TransactionType)
	}
	if !req.Amount.IsPositive() {
		return nil, "", fmt.Errorf("%w: amount must be positive, got %s", ErrValidation, req.Amount)
	}
	// The schema stores cents; sub-cent amounts would be rounded silently on
	// insert and disagree with the returned balance_after.
	if !req.Amount.Equal(req.Amount.Round(2)) {
		return nil, "", fmt.Errorf("%w: amount %s has sub-cent precision", ErrValidation, req.Amount)
	}
	if req.TransactionDate.IsZero() {
		return nil, "", fmt.Errorf("%w: transaction date is required", ErrValidation)
	}

	// Exclusive row lock serializes concurrent postings against this account.
	var balance decimal.Decimal
	var accountType string
	var active bool
	err := tx.QueryRowContext(ctx, `
		SELECT balance, account_type, is_active FROM trust_accounts
		WHERE id = $1 FOR UPDATE`, req.AccountID).
		Scan(&balance, &accountType, &active)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, "", fmt.Errorf("%w: account %d", ErrNotFound, req.AccountID)
		}
		return nil, "", err
	}
	if !active {
		return nil, "", fmt.Errorf("%w: account %d is inactive", ErrValidation, req.AccountID)
	}

	if models.IsDebitType(req.TransactionType) && req.Amount.GreaterThan(balance) {
		return nil, "", fmt.Errorf("%w: %s exceeds balance %s on account %d",
			ErrInsufficientFunds, req.Amount.StringFixed(2), balance.StringFixed(2), req.AccountID)
	}

	newBalance := balance.Add(models.SignedAmount(req.TransactionType, req.Amount))

	reference := req.ReferenceNumber
	if reference == "" {
		reference = uuid.NewString()
	}

	txn := &models.TrustTransaction{
		TrustAccountID:   req.AccountID,
		TransactionType:  req.TransactionType,
		Amount:           req.Amount,
		TransactionDate:  req.TransactionDate,
		Description:      req.Description,
		ReferenceNumber:  reference,
		TenantID:         req.TenantID,
		LeaseID:          req.LeaseID,
		RelatedAccountID: req.RelatedAccountID,
		BalanceAfter:     newBalance,
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO trust_account_transactions
		(trust_account_id, transaction_type, amount, transaction_date, description,
		 reference_number, tenant_id, lease_id, related_account_id, balance_after,
		 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		req.AccountID, req.TransactionType, req.Amount, req.TransactionDate,
		req.Description, reference, req.TenantID, req.LeaseID, req.RelatedAccountID,
		newBalance).
		Scan(&txn.ID, &txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		return nil, "", err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE trust_accounts SET balance = $1, updated_at = NOW() WHERE id = $2`,
		newBalance, req.AccountID)
	if err != nil {
		return nil, "", err
	}

	log.Printf("[LEDGER] Posted %s of %s to account %d, balance %s",
		req.TransactionType, req.Amount.StringFixed(2), req.AccountID, newBalance.StringFixed(2))
	return txn, accountType, nil
}

// notifyPosting hands tenant-linked deposits/withdrawals to the notification
// queue after the posting has committed. Failures are logged, never surfaced.
func (ps *PostingService) notifyPosting(txn *models.TrustTransaction, accountType string) {
	if txn.TenantID == nil {
		return
	}
	if txn.TransactionType != models.TransactionTypeDeposit &&
		txn.TransactionType != models.TransactionTypeWithdrawal {
		return
	}

	event := &TenantActivityEvent{
		TenantID:        *txn.TenantID,
		AccountID:       txn.TrustAccountID,
		AccountType:     accountType,
		TransactionType: txn.TransactionType,
		Amount:          txn.Amount,
		Date:            txn.TransactionDate,
	}
	go func() {
		if err := ps.notifier.NotifyTenantActivity(context.Background(), event); err != nil {
			log.Printf("[LEDGER] Tenant notification failed for transaction %d: %v", txn.ID, err)
		}
	}()
}

// TransactionFilter narrows ListTransactions. Zero values mean "no filter".
type TransactionFilter struct {
	From            time.Time
	To              time.Time
	TransactionType string
	Reconciled      *bool
	Limit           int
}

// GetTransaction fetches one ledger row by id.
func (ps *PostingService) GetTransaction(ctx context.Context, id int64) (*models.TrustTransaction, error) {
	txn, err := scanTransaction(ps.db.QueryRowContext(ctx, selectTransaction+` WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: transaction %d", ErrNotFound, id)
		}
		return nil, err
	}
	return txn, nil
}

// ListTransactions returns an account's ledger rows in replay order,
// optionally filtered by date range, type and reconciliation status.
func (ps *PostingService) ListTransactions(ctx context.Context, accountID int64, filter *TransactionFilter) ([]*models.TrustTransaction, error) {
	conditions := []string{"trust_account_id = $1"}
	args := []any{accountID}
	argIndex := 2

	if filter == nil {
		filter = &TransactionFilter{}
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("transaction_date >= $%d", argIndex))
		args = append(args, filter.From)
		argIndex++
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("transaction_date <= $%d", argIndex))
		args = append(args, filter.To)
		argIndex++
	}
	if filter.TransactionType != "" {
		conditions = append(conditions, fmt.Sprintf("transaction_type = $%d", argIndex))
		args = append(args, filter.TransactionType)
		argIndex++
	}
	if filter.Reconciled != nil {
		conditions = append(conditions, fmt.Sprintf("is_reconciled = $%d", argIndex))
		args = append(args, *filter.Reconciled)
		argIndex++
	}

	query := selectTransaction + " WHERE " + strings.Join(conditions, " AND ") +
		" ORDER BY transaction_date, created_at, id"

	limit := filter.Limit
	if limit <= 0 {
		limit = ps.cfg.DefaultTxLimit
	}
	if limit > ps.cfg.MaxTxLimit {
		limit = ps.cfg.MaxTxLimit
	}
	query += fmt.Sprintf(" LIMIT $%d", argIndex)
	args = append(args, limit)

	rows, err := ps.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []*models.TrustTransaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, txn)
	}
	return transactions, rows.Err()
}

const selectTransaction = `
	SELECT id, trust_account_id, transaction_type, amount, transaction_date, description,
	       reference_number, tenant_id, lease_id, related_account_id, is_reconciled,
	       reconciled_date, reconciled_by, balance_after, created_at, updated_at
	FROM trust_account_transactions`

func scanTransaction(row rowScanner) (*models.TrustTransaction, error) {
	txn := &models.TrustTransaction{}
	var description, reference sql.NullString
	err := row.Scan(
		&txn.ID, &txn.TrustAccountID, &txn.TransactionType, &txn.Amount,
		&txn.TransactionDate, &description, &reference, &txn.TenantID, &txn.LeaseID,
		&txn.RelatedAccountID, &txn.IsReconciled, &txn.ReconciledDate, &txn.ReconciledBy,
		&txn.BalanceAfter, &txn.CreatedAt, &txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	txn.Description = description.String
	txn.ReferenceNumber = reference.String
	return txn, nil
}
