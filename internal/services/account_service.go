package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/proptrust/backend/internal/models"
)

// AccountService owns the trust account registry: creation, metadata updates
// and soft deactivation. It never touches balances; that is the posting
// engine's job.
type AccountService struct {
	db        *sql.DB
	validator *ValidationHelper
}

func NewAccountService(db *sql.DB) *AccountService {
	return &AccountService{
		db:        db,
		validator: NewValidationHelper(),
	}
}

type CreateAccountRequest struct {
	PropertyID        int64   `json:"property_id" validate:"required,gt=0"`
	Name              string  `json:"name" validate:"required,max=120"`
	AccountType       string  `json:"account_type" validate:"required,oneof=security_deposit escrow reserve"`
	BankName          string  `json:"bank_name" validate:"max=120"`
	AccountNumber     string  `json:"account_number" validate:"max=34"`
	RoutingNumber     string  `json:"routing_number" validate:"max=12"`
	IsInterestBearing bool    `json:"is_interest_bearing"`
	InterestRate      *string `json:"interest_rate"` // annual percentage, decimal string
}

type UpdateAccountRequest struct {
	Name              *string `json:"name" validate:"omitempty,max=120"`
	BankName          *string `json:"bank_name" validate:"omitempty,max=120"`
	AccountNumber     *string `json:"account_number" validate:"omitempty,max=34"`
	RoutingNumber     *string `json:"routing_number" validate:"omitempty,max=12"`
	IsInterestBearing *bool   `json:"is_interest_bearing"`
	InterestRate      *string `json:"interest_rate"`
}

// parseRate validates the interest configuration invariant: a rate is
// required and must be positive iff the account is interest bearing.
func parseRate(interestBearing bool, rate *string) (decimal.Decimal, error) {
	if !interestBearing {
		if rate != nil && *rate != "" {
			return decimal.Zero, fmt.Errorf("%w: rate given for a non-interest-bearing account", ErrInvalidInterestConfig)
		}
		return decimal.Zero, nil
	}
	if rate == nil || *rate == "" {
		return decimal.Zero, ErrInvalidInterestConfig
	}
	d, err := decimal.NewFromString(*rate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a decimal", ErrInvalidInterestConfig, *rate)
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidInterestConfig
	}
	return d, nil
}

// Create opens a new trust account with a zero balance. At most one active
// account per (property, account type) may exist.
func (as *AccountService) Create(ctx context.Context, req *CreateAccountRequest) (*models.TrustAccount, error) {
	if err := as.validator.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	rate, err := parseRate(req.IsInterestBearing, req.InterestRate)
	if err != nil {
		return nil, err
	}

	tx, err := as.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM trust_accounts
			WHERE property_id = $1 AND account_type = $2 AND is_active = true
		)`, req.PropertyID, req.AccountType).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: property %d, type %s", ErrDuplicateActiveAccount, req.PropertyID, req.AccountType)
	}

	account := &models.TrustAccount{
		PropertyID:        req.PropertyID,
		Name:              req.Name,
		AccountType:       req.AccountType,
		BankName:          req.BankName,
		AccountNumber:     req.AccountNumber,
		RoutingNumber:     req.RoutingNumber,
		IsInterestBearing: req.IsInterestBearing,
		InterestRate:      rate,
		Balance:           decimal.Zero,
		IsActive:          true,
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO trust_accounts
		(property_id, name, account_type, bank_name, account_number, routing_number,
		 is_interest_bearing, interest_rate, balance, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, true, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		req.PropertyID, req.Name, req.AccountType, req.BankName, req.AccountNumber,
		req.RoutingNumber, req.IsInterestBearing, rate).
		Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Printf("[ACCOUNT] Created trust account %d (%s) for property %d", account.ID, account.AccountType, account.PropertyID)
	return account, nil
}

// Update mutates account metadata only. The balance is out of reach here.
func (as *AccountService) Update(ctx context.Context, id int64, req *UpdateAccountRequest) (*models.TrustAccount, error) {
	if err := as.validator.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	tx, err := as.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	account, err := scanAccount(tx.QueryRowContext(ctx, selectAccount+` WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: account %d", ErrNotFound, id)
		}
		return nil, err
	}

	if req.Name != nil {
		account.Name = *req.Name
	}
	if req.BankName != nil {
		account.BankName = *req.BankName
	}
	if req.AccountNumber != nil {
		account.AccountNumber = *req.AccountNumber
	}
	if req.RoutingNumber != nil {
		account.RoutingNumber = *req.RoutingNumber
	}
	if req.IsInterestBearing != nil {
		account.IsInterestBearing = *req.IsInterestBearing
	}

	// Re-validate the interest invariant against the merged state. Turning
	// interest off zeroes the rate; keeping it on without a new rate keeps
	// the stored one.
	if req.InterestRate != nil || req.IsInterestBearing != nil {
		rateStr := req.InterestRate
		if account.IsInterestBearing && rateStr == nil && account.InterestRate.IsPositive() {
			s := account.InterestRate.String()
			rateStr = &s
		}
		rate, err := parseRate(account.IsInterestBearing, rateStr)
		if err != nil {
			return nil, err
		}
		account.InterestRate = rate
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE trust_accounts
		SET name = $1, bank_name = $2, account_number = $3, routing_number = $4,
		    is_interest_bearing = $5, interest_rate = $6, updated_at = NOW()
		WHERE id = $7`,
		account.Name, account.BankName, account.AccountNumber, account.RoutingNumber,
		account.IsInterestBearing, account.InterestRate, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Printf("[ACCOUNT] Updated trust account %d", id)
	return account, nil
}

// Deactivate soft-deletes an account for audit retention. It is terminal:
// there is no reactivation path and it requires a zero balance.
func (as *AccountService) Deactivate(ctx context.Context, id int64) error {
	tx, err := as.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var balance decimal.Decimal
	var active bool
	err = tx.QueryRowContext(ctx, `
		SELECT balance, is_active FROM trust_accounts WHERE id = $1 FOR UPDATE`, id).
		Scan(&balance, &active)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: account %d", ErrNotFound, id)
		}
		return err
	}
	if !active {
		return fmt.Errorf("%w: account %d is already inactive", ErrValidation, id)
	}
	if !balance.IsZero() {
		return fmt.Errorf("%w: account %d holds %s", ErrNonZeroBalance, id, balance.StringFixed(2))
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE trust_accounts SET is_active = false, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Printf("[ACCOUNT] Deactivated trust account %d", id)
	return nil
}

// Get fetches one trust account by id.
func (as *AccountService) Get(ctx context.Context, id int64) (*models.TrustAccount, error) {
	account, err := scanAccount(as.db.QueryRowContext(ctx, selectAccount+` WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: account %d", ErrNotFound, id)
		}
		return nil, err
	}
	return account, nil
}

// ListByProperty fetches all trust accounts for a property, inactive ones
// included, newest first.
func (as *AccountService) ListByProperty(ctx context.Context, propertyID int64) ([]*models.TrustAccount, error) {
	rows, err := as.db.QueryContext(ctx, selectAccount+`
		WHERE property_id = $1 ORDER BY created_at DESC`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []*models.TrustAccount{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

const selectAccount = `
	SELECT id, property_id, name, account_type, bank_name, account_number, routing_number,
	       is_interest_bearing, interest_rate, balance, is_active, created_at, updated_at
	FROM trust_accounts`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.TrustAccount, error) {
	account := &models.TrustAccount{}
	err := row.Scan(
		&account.ID, &account.PropertyID, &account.Name, &account.AccountType,
		&account.BankName, &account.AccountNumber, &account.RoutingNumber,
		&account.IsInterestBearing, &account.InterestRate, &account.Balance,
		&account.IsActive, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}
