package accounting

import (
	"testing"

	"github.com/entererp/finance_core_app/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRoundMoney_HalfUp(t *testing.T) {
	assert.True(t, RoundMoney(d("10.005")).Equal(d("10.01")))
	assert.True(t, RoundMoney(d("10.004")).Equal(d("10.00")))
	assert.True(t, RoundMoney(d("-10.005")).Equal(d("-10.01")))
}

func TestSignedAmount(t *testing.T) {
	tests := []struct {
		name        string
		accountType domain.AccountType
		debit       string
		credit      string
		want        string
	}{
		{"debit increases asset", domain.Asset, "100", "0", "100"},
		{"credit decreases asset", domain.Asset, "0", "100", "-100"},
		{"debit increases expense", domain.Expense, "100", "0", "100"},
		{"credit increases revenue", domain.Revenue, "0", "100", "100"},
		{"debit decreases revenue", domain.Revenue, "100", "0", "-100"},
		{"credit increases liability", domain.Liability, "0", "100", "100"},
		{"credit increases equity", domain.Equity, "0", "100", "100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := domain.JournalLine{Debit: d(tt.debit), Credit: d(tt.credit)}
			got, err := SignedAmount(line, tt.accountType)
			require.NoError(t, err)
			assert.True(t, got.Equal(d(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}

func TestSignedAmount_UnknownType(t *testing.T) {
	line := domain.JournalLine{Debit: d("100")}
	_, err := SignedAmount(line, "CONTRA")
	assert.Error(t, err)
}

func TestValidateEntryBalance(t *testing.T) {
	balanced := []domain.JournalLine{
		{LineNumber: 1, Debit: d("100"), Credit: decimal.Zero},
		{LineNumber: 2, Debit: decimal.Zero, Credit: d("100")},
	}
	totalDebit, totalCredit, err := ValidateEntryBalance(balanced)
	require.NoError(t, err)
	assert.True(t, totalDebit.Equal(d("100")))
	assert.True(t, totalCredit.Equal(d("100")))

	unbalanced := []domain.JournalLine{
		{LineNumber: 1, Debit: d("100"), Credit: decimal.Zero},
		{LineNumber: 2, Debit: decimal.Zero, Credit: d("60")},
	}
	_, _, err = ValidateEntryBalance(unbalanced)
	assert.Error(t, err)

	bothSides := []domain.JournalLine{
		{LineNumber: 1, Debit: d("100"), Credit: d("100")},
		{LineNumber: 2, Debit: decimal.Zero, Credit: d("100")},
	}
	_, _, err = ValidateEntryBalance(bothSides)
	assert.Error(t, err)

	_, _, err = ValidateEntryBalance(balanced[:1])
	assert.Error(t, err)
}

func TestComputeLine(t *testing.T) {
	line := domain.InvoiceLine{
		Quantity:        d("2"),
		UnitPrice:       d("100"),
		DiscountPercent: d("10"),
		TaxRate:         d("5"),
	}
	lineTotal, taxAmount := ComputeLine(line)
	assert.True(t, lineTotal.Equal(d("180.00")), "lineTotal was %s", lineTotal)
	assert.True(t, taxAmount.Equal(d("9.00")), "taxAmount was %s", taxAmount)

	// Recomputation from the same inputs is stable.
	again, againTax := ComputeLine(line)
	assert.True(t, lineTotal.Equal(again))
	assert.True(t, taxAmount.Equal(againTax))
}

func TestComputeLine_RoundsPerLine(t *testing.T) {
	line := domain.InvoiceLine{
		Quantity:        d("3"),
		UnitPrice:       d("0.335"),
		DiscountPercent: decimal.Zero,
		TaxRate:         d("7"),
	}
	lineTotal, taxAmount := ComputeLine(line)
	assert.True(t, lineTotal.Equal(d("1.01")), "lineTotal was %s", lineTotal)
	assert.True(t, taxAmount.Equal(d("0.07")), "taxAmount was %s", taxAmount)
}

func TestComputeInvoiceTotals(t *testing.T) {
	lines := []domain.InvoiceLine{
		{LineTotal: d("180.00"), TaxAmount: d("9.00")},
		{LineTotal: d("20.00"), TaxAmount: d("1.00")},
	}
	totals := ComputeInvoiceTotals(lines, d("10.00"), d("50.00"))

	assert.True(t, totals.Subtotal.Equal(d("200.00")))
	assert.True(t, totals.TaxAmount.Equal(d("10.00")))
	assert.True(t, totals.TotalAmount.Equal(d("200.00")))
	assert.True(t, totals.BalanceDue.Equal(d("150.00")))

	// Idempotent over unchanged lines.
	again := ComputeInvoiceTotals(lines, d("10.00"), d("50.00"))
	assert.True(t, totals.TotalAmount.Equal(again.TotalAmount))
	assert.True(t, totals.BalanceDue.Equal(again.BalanceDue))
}

func TestReverseLines(t *testing.T) {
	lines := []domain.JournalLine{
		{LineNumber: 1, AccountID: "a", Debit: d("100"), Credit: decimal.Zero},
		{LineNumber: 2, AccountID: "b", Debit: decimal.Zero, Credit: d("100")},
	}
	reversed := ReverseLines(lines)

	require.Len(t, reversed, 2)
	assert.True(t, reversed[0].Credit.Equal(d("100")))
	assert.True(t, reversed[0].Debit.IsZero())
	assert.True(t, reversed[1].Debit.Equal(d("100")))
	// Originals are untouched.
	assert.True(t, lines[0].Debit.Equal(d("100")))
}
