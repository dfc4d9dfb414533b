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

func TestTransferService_Transfer(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	posting := NewPostingService(db, nil, config.LoadLedgerConfig())
	service := NewTransferService(db, posting)
	ctx := context.Background()
	date := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)

	t.Run("successful transfer locks accounts in ascending id order", func(t *testing.T) {
		// Source id 2, destination id 1: account 1 must be locked first.
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT balance, is_active FROM trust_accounts WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"balance", "is_active"}).AddRow("200.00", true))
		mock.ExpectQuery("SELECT balance, is_active FROM trust_accounts WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"balance", "is_active"}).AddRow("1000.00", true))

		// Withdrawal leg on account 2
		mock.ExpectQuery("SELECT balance, account_type, is_active FROM trust_accounts WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"balance", "account_type", "is_active"}).
				AddRow("1000.00", "escrow", true))
		mock.ExpectQuery("INSERT INTO trust_account_transactions").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(int64(101), time.Now(), time.Now()))
		mock.ExpectExec("UPDATE trust_accounts SET balance = \\$1").
			WithArgs(decimal.NewFromInt(700), int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		// Deposit leg on account 1
		mock.ExpectQuery("SELECT balance, account_type, is_active FROM trust_accounts WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"balance", "account_type", "is_active"}).
				AddRow("200.00", "reserve", true))
		mock.ExpectQuery("INSERT INTO trust_account_transactions").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(int64(102), time.Now(), time.Now()))
		mock.ExpectExec("UPDATE trust_accounts SET balance = \\$1").
			WithArgs(decimal.NewFromInt(500), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectCommit()

		result, err := service.Transfer(ctx, 2, 1, decimal.NewFromInt(300), date, "Reserve top-up")
		assert.NoError(t, err)
		assert.NotEmpty(t, result.ReferenceNumber)
		assert.Equal(t, result.ReferenceNumber, result.Withdrawal.ReferenceNumber)
		assert.Equal(t, result.ReferenceNumber, result.Deposit.ReferenceNumber)
		assert.Equal(t, models.TransactionTypeWithdrawal, result.Withdrawal.TransactionType)
		assert.Equal(t, models.TransactionTypeDeposit, result.Deposit.TransactionType)
		assert.Equal(t, int64(1), *result.Withdrawal.RelatedAccountID)
		assert.Equal(t, int64(2), *result.Deposit.RelatedAccountID)
		assert.True(t, result.Withdrawal.BalanceAfter.Equal(decimal.NewFromInt(700)))
		assert.True(t, result.Deposit.BalanceAfter.Equal(decimal.NewFromInt(500)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient funds on source", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT balance, is_active FROM trust_accounts WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"balance", "is_active"}).AddRow("100.00", true))
		mock.ExpectQuery("SELECT balance, is_active FROM trust_accounts WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"balance", "is_active"}).AddRow("500.00", true))
		mock.ExpectRollback()

		_, err := service.Transfer(ctx, 1, 2, decimal.NewFromInt(300), date, "")
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("same account transfer", func(t *testing.T) {
		_, err := service.Transfer(ctx, 3, 3, decimal.NewFromInt(50), date, "")
		assert.ErrorIs(t, err, ErrSameAccountTransfer)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		_, err := service.Transfer(ctx, 1, 2, decimal.Zero, date, "")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("sub-cent amount", func(t *testing.T) {
		_, err := service.Transfer(ctx, 1, 2, decimal.RequireFromString("49.999"), date, "")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("inactive destination", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT balance, is_active FROM trust_accounts WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"balance", "is_active"}).AddRow("500.00", true))
		mock.ExpectQuery("SELECT balance, is_active FROM trust_accounts WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"balance", "is_active"}).AddRow("0", false))
		mock.ExpectRollback()

		_, err := service.Transfer(ctx, 1, 2, decimal.NewFromInt(100), date, "")
		assert.ErrorIs(t, err, ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
