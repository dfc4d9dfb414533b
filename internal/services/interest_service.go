package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/proptrust/backend/internal/models"
)

// Accrual outcome states.
const (
	AccrualApplied        = "applied"
	AccrualAlreadyApplied = "already_applied"
	AccrualSkippedZero    = "skipped_zero_interest"
	AccrualFailed         = "failed"
)

// InterestService posts monthly interest to interest-bearing accounts. The
// interest base is the average daily balance: the account's end-of-day
// balance sampled for each calendar day of the month, reconstructed by
// replaying the signed transaction log.
type InterestService struct {
	db      *sql.DB
	posting *PostingService
}

func NewInterestService(db *sql.DB, posting *PostingService) *InterestService {
	return &InterestService{db: db, posting: posting}
}

// AccrualResult reports the outcome for one account. Batch runs collect one
// per account; a failed account never aborts the rest.
type AccrualResult struct {
	AccountID   int64                    `json:"account_id"`
	Month       string                   `json:"month"`
	Status      string                   `json:"status"`
	Interest    decimal.Decimal          `json:"interest"`
	Transaction *models.TrustTransaction `json:"transaction,omitempty"`
	Err         error                    `json:"-"`
}

// AccrueMonth computes and posts interest for the calendar month containing
// asOf, idempotently: at most one interest transaction per account per month.
// The whole operation, idempotence check included, runs under the account's
// row lock so a concurrent accrual cannot double-post.
func (is *InterestService) AccrueMonth(ctx context.Context, accountID int64, asOf time.Time) (*AccrualResult, error) {
	monthStart := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, time.UTC)
	asOfDay := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	result := &AccrualResult{
		AccountID: accountID,
		Month:     monthStart.Format("2006-01"),
		Interest:  decimal.Zero,
	}

	tx, err := is.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var rate decimal.Decimal
	var interestBearing, active bool
	err = tx.QueryRowContext(ctx, `
		SELECT interest_rate, is_interest_bearing, is_active FROM trust_accounts
		WHERE id = $1 FOR UPDATE`, accountID).
		Scan(&rate, &interestBearing, &active)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: account %d", ErrNotFound, accountID)
		}
		return nil, err
	}
	if !interestBearing || !rate.IsPositive() {
		return nil, fmt.Errorf("%w: account %d is not interest-bearing", ErrInvalidInterestConfig, accountID)
	}
	if !active {
		return nil, fmt.Errorf("%w: account %d is inactive", ErrValidation, accountID)
	}

	var applied bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM trust_account_transactions
			WHERE trust_account_id = $1 AND transaction_type = 'interest'
			  AND transaction_date >= $2 AND transaction_date < $3
		)`, accountID, monthStart, monthStart.AddDate(0, 1, 0)).Scan(&applied)
	if err != nil {
		return nil, err
	}
	if applied {
		result.Status = AccrualAlreadyApplied
		return result, nil
	}

	adb, err := is.averageDailyBalance(ctx, tx, accountID, monthStart, asOfDay)
	if err != nil {
		return nil, err
	}

	// interest = ADB * (annual rate / 100 / 12), rounded half-up to cents.
	interest := adb.Mul(rate).Div(decimal.NewFromInt(1200)).Round(2)
	if !interest.IsPositive() {
		result.Status = AccrualSkippedZero
		return result, nil
	}

	txn, _, err := is.posting.PostTx(ctx, tx, &PostingRequest{
		AccountID:       accountID,
		TransactionType: models.TransactionTypeInterest,
		Amount:          interest,
		TransactionDate: asOfDay,
		Description:     fmt.Sprintf("Monthly interest for %s", monthStart.Format("January 2006")),
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	result.Status = AccrualApplied
	result.Interest = interest
	result.Transaction = txn
	log.Printf("[INTEREST] Accrued %s on account %d for %s", interest.StringFixed(2), accountID, result.Month)
	return result, nil
}

// averageDailyBalance replays the transaction log to reconstruct end-of-day
// balances from monthStart through asOfDay and averages them. The opening
// balance is the signed sum of everything dated before the month.
func (is *InterestService) averageDailyBalance(ctx context.Context, tx *sql.Tx, accountID int64, monthStart, asOfDay time.Time) (decimal.Decimal, error) {
	var opening decimal.Decimal
	err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN transaction_type IN ('withdrawal', 'fee')
		                         THEN -amount ELSE amount END), 0)
		FROM trust_account_transactions
		WHERE trust_account_id = $1 AND transaction_date < $2`,
		accountID, monthStart).Scan(&opening)
	if err != nil {
		return decimal.Zero, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT transaction_type, amount, transaction_date
		FROM trust_account_transactions
		WHERE trust_account_id = $1 AND transaction_date >= $2 AND transaction_date <= $3
		ORDER BY transaction_date, created_at, id`,
		accountID, monthStart, asOfDay)
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	type dayDelta struct {
		day    time.Time
		amount decimal.Decimal
	}
	deltas := []dayDelta{}
	for rows.Next() {
		var txType string
		var amount decimal.Decimal
		var date time.Time
		if err := rows.Scan(&txType, &amount, &date); err != nil {
			return decimal.Zero, err
		}
		day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
		deltas = append(deltas, dayDelta{day: day, amount: models.SignedAmount(txType, amount)})
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, err
	}

	balance := opening
	total := decimal.Zero
	days := int64(0)
	i := 0
	for day := monthStart; !day.After(asOfDay); day = day.AddDate(0, 0, 1) {
		for i < len(deltas) && !deltas[i].day.After(day) {
			balance = balance.Add(deltas[i].amount)
			i++
		}
		total = total.Add(balance)
		days++
	}
	if days == 0 {
		return decimal.Zero, nil
	}
	return total.Div(decimal.NewFromInt(days)), nil
}

// RunMonthlyAccrual accrues interest for every active interest-bearing
// account. Per-account failures are recorded in the result slice and logged;
// they never stop the batch.
func (is *InterestService) RunMonthlyAccrual(ctx context.Context, asOf time.Time) ([]*AccrualResult, error) {
	rows, err := is.db.QueryContext(ctx, `
		SELECT id FROM trust_accounts
		WHERE is_active = true AND is_interest_bearing = true
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	results := make([]*AccrualResult, 0, len(ids))
	for _, id := range ids {
		result, err := is.AccrueMonth(ctx, id, asOf)
		if err != nil {
			log.Printf("[INTEREST] Accrual failed for account %d: %v", id, err)
			result = &AccrualResult{
				AccountID: id,
				Month:     asOf.Format("2006-01"),
				Status:    AccrualFailed,
				Err:       err,
			}
		}
		results = append(results, result)
	}
	return results, nil
}
