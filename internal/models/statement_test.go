package models

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestStatement_WriteCSV(t *testing.T) {
	reconciledDate := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	reconciledBy := int64(9)
	statement := &Statement{
		OpeningBalance: decimal.NewFromInt(500),
		ClosingBalance: decimal.NewFromInt(1300),
		Lines: []StatementLine{
			{
				Transaction: TrustTransaction{
					TransactionType: TransactionTypeDeposit,
					Amount:          decimal.NewFromInt(1000),
					TransactionDate: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
					Description:     "Security deposit, unit 4B",
					ReferenceNumber: "REF-1",
					IsReconciled:    true,
					ReconciledDate:  &reconciledDate,
					ReconciledBy:    &reconciledBy,
				},
				RunningBalance: decimal.NewFromInt(1500),
				BalanceMatches: true,
			},
			{
				Transaction: TrustTransaction{
					TransactionType: TransactionTypeWithdrawal,
					Amount:          decimal.NewFromInt(200),
					TransactionDate: time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC),
					ReferenceNumber: "REF-2",
				},
				RunningBalance: decimal.NewFromInt(1300),
				BalanceMatches: true,
			},
		},
	}

	var buf bytes.Buffer
	err := statement.WriteCSV(&buf)
	assert.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	assert.NoError(t, err)
	assert.Len(t, records, 3)

	assert.Equal(t, []string{"date", "type", "description", "reference", "amount", "running_balance", "reconciled"}, records[0])
	assert.Equal(t, []string{"2026-01-05", "deposit", "Security deposit, unit 4B", "REF-1", "1000.00", "1500.00", "yes"}, records[1])
	assert.Equal(t, []string{"2026-01-12", "withdrawal", "", "REF-2", "-200.00", "1300.00", "no"}, records[2])
}

func TestSignedAmount(t *testing.T) {
	amount := decimal.NewFromInt(100)

	assert.True(t, SignedAmount(TransactionTypeDeposit, amount).Equal(amount))
	assert.True(t, SignedAmount(TransactionTypeInterest, amount).Equal(amount))
	assert.True(t, SignedAmount(TransactionTypeWithdrawal, amount).Equal(amount.Neg()))
	assert.True(t, SignedAmount(TransactionTypeFee, amount).Equal(amount.Neg()))
}

func TestValidTransactionType(t *testing.T) {
	assert.True(t, ValidTransactionType("deposit"))
	assert.True(t, ValidTransactionType("withdrawal"))
	assert.True(t, ValidTransactionType("interest"))
	assert.True(t, ValidTransactionType("fee"))
	assert.False(t, ValidTransactionType("chargeback"))
	assert.False(t, ValidTransactionType(""))
}

func TestValidAccountType(t *testing.T) {
	assert.True(t, ValidAccountType(AccountTypeSecurityDeposit))
	assert.True(t, ValidAccountType(AccountTypeEscrow))
	assert.True(t, ValidAccountType(AccountTypeReserve))
	assert.False(t, ValidAccountType("checking"))
}
