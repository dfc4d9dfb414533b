package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
)

// ReconciliationService marks ledger rows as verified against an external
// bank statement. It touches reconciliation metadata only, never balances,
// and is idempotent: already-reconciled rows keep their original
// reconciled_date and reconciled_by.
type ReconciliationService struct {
	db *sql.DB
}

func NewReconciliationService(db *sql.DB) *ReconciliationService {
	return &ReconciliationService{db: db}
}

// Reconcile marks the given transactions reconciled and returns how many
// rows actually changed. Ids outside the account or already reconciled are
// skipped silently.
func (rs *ReconciliationService) Reconcile(ctx context.Context, accountID int64, transactionIDs []int64, reconciliationDate time.Time, userID int64) (int64, error) {
	if len(transactionIDs) == 0 {
		return 0, fmt.Errorf("%w: no transaction ids given", ErrValidation)
	}
	if reconciliationDate.IsZero() {
		return 0, fmt.Errorf("%w: reconciliation date is required", ErrValidation)
	}

	var exists bool
	err := rs.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM trust_accounts WHERE id = $1)`, accountID).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("%w: account %d", ErrNotFound, accountID)
	}

	result, err := rs.db.ExecContext(ctx, `
		UPDATE trust_account_transactions
		SET is_reconciled = true, reconciled_date = $1, reconciled_by = $2, updated_at = NOW()
		WHERE trust_account_id = $3 AND id = ANY($4) AND is_reconciled = false`,
		reconciliationDate, userID, accountID, pq.Array(transactionIDs))
	if err != nil {
		return 0, err
	}

	changed, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	log.Printf("[RECONCILE] Marked %d of %d transactions reconciled on account %d",
		changed, len(transactionIDs), accountID)
	return changed, nil
}
