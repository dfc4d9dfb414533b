package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/proptrust/backend/internal/config"
	"github.com/proptrust/backend/internal/models"
)

func TestPostingService_Post(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewPostingService(db, nil, config.LoadLedgerConfig())
	ctx := context.Background()
	date := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	t.Run("successful deposit", func(t *testing.T) {
		tenantID := int64(42)
		req := &PostingRequest{
			AccountID:       1,
			TransactionType: models.TransactionTypeDeposit,
			Amount:          decimal.NewFromInt(500),
			TransactionDate: date,
			Description:     "Security deposit, unit 4B",
			TenantID:        &tenantID,
		}

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT balance, account_type, is_active FROM trust_accounts WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"balance", "account_type", "is_active"}).
				AddRow("1000.00", "security_deposit", true))
		mock.ExpectQuery("INSERT INTO trust_account_transactions").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(int64(77), time.Now(), time.Now()))
		mock.ExpectExec("UPDATE trust_accounts SET balance = \\$1").
			WithArgs(decimal.NewFromInt(1500), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		txn, err := service.Post(ctx, req)
		assert.NoError(t, err)
		assert.Equal(t, int64(77), txn.ID)
		assert.True(t, txn.BalanceAfter.Equal(decimal.NewFromInt(1500)))
		assert.NotEmpty(t, txn.ReferenceNumber)
		assert.Equal(t, int64(42), *txn.TenantID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("withdrawal exceeding balance", func(t *testing.T) {
		req := &PostingRequest{
			AccountID:       1,
			TransactionType: models.TransactionTypeWithdrawal,
			Amount:          decimal.NewFromInt(2000),
			TransactionDate: date,
		}

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT balance, account_type, is_active FROM trust_accounts WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"balance", "account_type", "is_active"}).
				AddRow("1000.00", "security_deposit", true))
		mock.ExpectRollback()

		_, err := service.Post(ctx, req)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("withdrawal of the full balance", func(t *testing.T) {
		req := &PostingRequest{
			AccountID:       1,
			TransactionType: models.TransactionTypeWithdrawal,
			Amount:          decimal.NewFromInt(1000),
			TransactionDate: date,
			ReferenceNumber: "CHK-1042",
		}

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT balance, account_type, is_active FROM trust_accounts WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"balance", "account_type", "is_active"}).
				AddRow("1000.00", "security_deposit", true))
		mock.ExpectQuery("INSERT INTO trust_account_transactions").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(int64(78), time.Now(), time.Now()))
		mock.ExpectExec("UPDATE trust_accounts SET balance = \\$1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		txn, err := service.Post(ctx, req)
		assert.NoError(t, err)
		assert.True(t, txn.BalanceAfter.IsZero())
		assert.Equal(t, "CHK-1042", txn.ReferenceNumber)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inactive account rejects posting", func(t *testing.T) {
		req := &PostingRequest{
			AccountID:       2,
			TransactionType: models.TransactionTypeDeposit,
			Amount:          decimal.NewFromInt(100),
			TransactionDate: date,
		}

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT balance, account_type, is_active FROM trust_accounts WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"balance", "account_type", "is_active"}).
				AddRow("0", "escrow", false))
		mock.ExpectRollback()

		_, err := service.Post(ctx, req)
		assert.ErrorIs(t, err, ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("account not found", func(t *testing.T) {
		req := &PostingRequest{
			AccountID:       99,
			TransactionType: models.TransactionTypeDeposit,
			Amount:          decimal.NewFromInt(100),
			TransactionDate: date,
		}

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT balance, account_type, is_active FROM trust_accounts WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"balance", "account_type", "is_active"}))
		mock.ExpectRollback()

		_, err := service.Post(ctx, req)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-positive amount", func(t *testing.T) {
		req := &PostingRequest{
			AccountID:       1,
			TransactionType: models.TransactionTypeDeposit,
			Amount:          decimal.Zero,
			TransactionDate: date,
		}

		mock.ExpectBegin()
		mock.ExpectRollback()

		_, err := service.Post(ctx, req)
		assert.ErrorIs(t, err, ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("sub-cent amount", func(t *testing.T) {
		req := &PostingRequest{
			AccountID:       1,
			TransactionType: models.TransactionTypeDeposit,
			Amount:          decimal.RequireFromString("0.005"),
			TransactionDate: date,
		}

		mock.ExpectBegin()
		mock.ExpectRollback()

		_, err := service.Post(ctx, req)
		assert.ErrorIs(t, err, ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("trailing zeros beyond cents are fine", func(t *testing.T) {
		req := &PostingRequest{
			AccountID:       1,
			TransactionType: models.TransactionTypeDeposit,
			Amount:          decimal.RequireFromString("10.500"),
			TransactionDate: date,
		}

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT balance, account_type, is_active FROM trust_accounts WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"balance", "account_type", "is_active"}).
				AddRow("0", "escrow", true))
		mock.ExpectQuery("INSERT INTO trust_account_transactions").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(int64(79), time.Now(), time.Now()))
		mock.ExpectExec("UPDATE trust_accounts SET balance = \\$1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		txn, err := service.Post(ctx, req)
		assert.NoError(t, err)
		assert.True(t, txn.BalanceAfter.Equal(decimal.RequireFromString("10.50")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown transaction type", func(t *testing.T) {
		req := &PostingRequest{
			AccountID:       1,
			TransactionType: "chargeback",
			Amount:          decimal.NewFromInt(100),
			TransactionDate: date,
		}

		mock.ExpectBegin()
		mock.ExpectRollback()

		_, err := service.Post(ctx, req)
		assert.ErrorIs(t, err, ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostingService_ListTransactions(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewPostingService(db, nil, config.LoadLedgerConfig())
	ctx := context.Background()

	txColumns := []string{
		"id", "trust_account_id", "transaction_type", "amount", "transaction_date",
		"description", "reference_number", "tenant_id", "lease_id", "related_account_id",
		"is_reconciled", "reconciled_date", "reconciled_by", "balance_after",
		"created_at", "updated_at",
	}

	t.Run("default filter", func(t *testing.T) {
		mock.ExpectQuery("FROM trust_account_transactions WHERE trust_account_id = \\$1 ORDER BY transaction_date, created_at, id LIMIT \\$2").
			WithArgs(int64(1), 100).
			WillReturnRows(sqlmock.NewRows(txColumns).
				AddRow(int64(1), int64(1), "deposit", "1000.00", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
					"Security deposit", "REF-1", int64(42), int64(7), nil,
					false, nil, nil, "1000.00", time.Now(), time.Now()).
				AddRow(int64(2), int64(1), "withdrawal", "200.00", time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC),
					nil, nil, nil, nil, nil,
					true, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), int64(9), "800.00", time.Now(), time.Now()))

		transactions, err := service.ListTransactions(ctx, 1, nil)
		assert.NoError(t, err)
		assert.Len(t, transactions, 2)
		assert.Equal(t, "deposit", transactions[0].TransactionType)
		assert.Equal(t, int64(42), *transactions[0].TenantID)
		assert.Empty(t, transactions[1].Description)
		assert.True(t, transactions[1].IsReconciled)
		assert.Equal(t, int64(9), *transactions[1].ReconciledBy)
		assert.True(t, transactions[1].BalanceAfter.Equal(decimal.NewFromInt(800)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("filter by type and reconciliation status", func(t *testing.T) {
		reconciled := false
		filter := &TransactionFilter{
			From:            time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			To:              time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
			TransactionType: "deposit",
			Reconciled:      &reconciled,
			Limit:           50,
		}

		mock.ExpectQuery("WHERE trust_account_id = \\$1 AND transaction_date >= \\$2 AND transaction_date <= \\$3 AND transaction_type = \\$4 AND is_reconciled = \\$5").
			WithArgs(int64(1), filter.From, filter.To, "deposit", false, 50).
			WillReturnRows(sqlmock.NewRows(txColumns))

		transactions, err := service.ListTransactions(ctx, 1, filter)
		assert.NoError(t, err)
		assert.Empty(t, transactions)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("oversized limit is capped", func(t *testing.T) {
		mock.ExpectQuery("FROM trust_account_transactions WHERE trust_account_id = \\$1").
			WithArgs(int64(1), 500).
			WillReturnRows(sqlmock.NewRows(txColumns))

		_, err := service.ListTransactions(ctx, 1, &TransactionFilter{Limit: 10000})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostingService_GetTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewPostingService(db, nil, config.LoadLedgerConfig())
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("FROM trust_account_transactions WHERE id = \\$1").
			WithArgs(int64(404)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := service.GetTransaction(ctx, 404)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
