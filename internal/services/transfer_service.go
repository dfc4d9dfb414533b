package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/proptrust/backend/internal/models"
)

// TransferService moves funds between two trust accounts as one atomic unit:
// a withdrawal leg on the source and a deposit leg on the destination, each
// carrying related_account_id pointing at the other account. Either both legs
// commit or neither is visible.
type TransferService struct {
	db      *sql.DB
	posting *PostingService
}

func NewTransferService(db *sql.DB, posting *PostingService) *TransferService {
	return &TransferService{db: db, posting: posting}
}

// TransferResult holds the two legs of a completed transfer.
type TransferResult struct {
	ReferenceNumber string                   `json:"reference_number"`
	Withdrawal      *models.TrustTransaction `json:"withdrawal"`
	Deposit         *models.TrustTransaction `json:"deposit"`
}

// Transfer moves amount from one account to another dated date.
func (ts *TransferService) Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal, date time.Time, description string) (*TransferResult, error) {
	if fromID == toID {
		return nil, fmt.Errorf("%w: account %d", ErrSameAccountTransfer, fromID)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", ErrValidation, amount)
	}
	if !amount.Equal(amount.Round(2)) {
		return nil, fmt.Errorf("%w: amount %s has sub-cent precision", ErrValidation, amount)
	}

	tx, err := ts.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Lock both accounts in ascending-id order so a concurrent reverse
	// transfer cannot deadlock against us.
	firstLock, secondLock := fromID, toID
	if fromID > toID {
		firstLock, secondLock = toID, fromID
	}

	firstBalance, err := ts.lockAccount(ctx, tx, firstLock)
	if err != nil {
		return nil, err
	}
	secondBalance, err := ts.lockAccount(ctx, tx, secondLock)
	if err != nil {
		return nil, err
	}

	sourceBalance := firstBalance
	if firstLock != fromID {
		sourceBalance = secondBalance
	}
	if amount.GreaterThan(sourceBalance) {
		return nil, fmt.Errorf("%w: %s exceeds balance %s on account %d",
			ErrInsufficientFunds, amount.StringFixed(2), sourceBalance.StringFixed(2), fromID)
	}

	reference := uuid.NewString()

	withdrawal, _, err := ts.posting.PostTx(ctx, tx, &PostingRequest{
		AccountID:        fromID,
		TransactionType:  models.TransactionTypeWithdrawal,
		Amount:           amount,
		TransactionDate:  date,
		Description:      description,
		ReferenceNumber:  reference,
		RelatedAccountID: &toID,
	})
	if err != nil {
		return nil, err
	}

	deposit, _, err := ts.posting.PostTx(ctx, tx, &PostingRequest{
		AccountID:        toID,
		TransactionType:  models.TransactionTypeDeposit,
		Amount:           amount,
		TransactionDate:  date,
		Description:      description,
		ReferenceNumber:  reference,
		RelatedAccountID: &fromID,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Printf("[TRANSFER] Moved %s from account %d to account %d (ref %s)",
		amount.StringFixed(2), fromID, toID, reference)
	return &TransferResult{
		ReferenceNumber: reference,
		Withdrawal:      withdrawal,
		Deposit:         deposit,
	}, nil
}

func (ts *TransferService) lockAccount(ctx context.Context, tx *sql.Tx, id int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	var active bool
	err := tx.QueryRowContext(ctx, `
		SELECT balance, is_active FROM trust_accounts WHERE id = $1 FOR UPDATE`, id).
		Scan(&balance, &active)
	if err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, fmt.Errorf("%w: account %d", ErrNotFound, id)
		}
		return decimal.Zero, err
	}
	if !active {
		return decimal.Zero, fmt.Errorf("%w: account %d is inactive", ErrValidation, id)
	}
	return balance, nil
}
