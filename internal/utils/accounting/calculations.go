package accounting

import (
	"fmt"

	"github.com/entererp/finance_core_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the scale at which monetary amounts are persisted.
const MoneyPlaces = 2

// RoundMoney rounds an amount to 2 decimal places using half-up rounding.
// Rounding happens at the point each amount is persisted, not at display
// time, so cached totals always match an independent recomputation.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MoneyPlaces)
}

// SignedAmount applies the fixed sign convention to a journal line amount:
// DEBIT increases ASSET/EXPENSE, CREDIT increases LIABILITY/EQUITY/REVENUE.
// This is used by both services and repositories so balance math never
// diverges between validation and persistence.
func SignedAmount(line domain.JournalLine, accountType domain.AccountType) (decimal.Decimal, error) {
	amount := line.Amount()
	isDebit := line.IsDebit()

	switch accountType {
	case domain.Asset, domain.Expense:
		if !isDebit { // Credit to Asset/Expense
			amount = amount.Neg()
		}
	case domain.Liability, domain.Equity, domain.Revenue:
		if isDebit { // Debit to Liability/Equity/Revenue
			amount = amount.Neg()
		}
	default:
		return decimal.Zero, fmt.Errorf("unknown account type '%s' encountered for account ID %s", accountType, line.AccountID)
	}
	return amount, nil
}

// ValidateEntryBalance checks that an entry's lines form a valid double-entry
// set: at least two lines, each with exactly one positive side, and the sum
// of debits equal to the sum of credits. It returns the two sums for callers
// that cache them on the entry.
func ValidateEntryBalance(lines []domain.JournalLine) (totalDebit, totalCredit decimal.Decimal, err error) {
	if len(lines) < 2 {
		return decimal.Zero, decimal.Zero, fmt.Errorf("journal entry must have at least two lines")
	}

	totalDebit = decimal.Zero
	totalCredit = decimal.Zero

	for _, line := range lines {
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return decimal.Zero, decimal.Zero, fmt.Errorf("line %d has a negative amount", line.LineNumber)
		}
		debitSet := line.Debit.IsPositive()
		creditSet := line.Credit.IsPositive()
		if debitSet == creditSet {
			// Either both zero or both nonzero.
			return decimal.Zero, decimal.Zero, fmt.Errorf("line %d must have exactly one of debit or credit set", line.LineNumber)
		}
		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}

	if !totalDebit.Equal(totalCredit) {
		return totalDebit, totalCredit, fmt.Errorf("debits sum to %s but credits sum to %s", totalDebit.String(), totalCredit.String())
	}

	return totalDebit, totalCredit, nil
}

// ComputeLine derives an invoice line's total and tax amount:
//
//	lineTotal = quantity * unitPrice * (1 - discountPercent/100)
//	taxAmount = lineTotal * taxRate/100
//
// Both results are rounded half-up to 2 decimal places. Recomputing from
// unchanged inputs always yields identical results.
func ComputeLine(line domain.InvoiceLine) (lineTotal, taxAmount decimal.Decimal) {
	hundred := decimal.NewFromInt(100)
	discountFactor := decimal.NewFromInt(1).Sub(line.DiscountPercent.Div(hundred))
	lineTotal = RoundMoney(line.Quantity.Mul(line.UnitPrice).Mul(discountFactor))
	taxAmount = RoundMoney(lineTotal.Mul(line.TaxRate.Div(hundred)))
	return lineTotal, taxAmount
}

// InvoiceTotals holds the derived monetary summary of an invoice.
type InvoiceTotals struct {
	Subtotal    decimal.Decimal
	TaxAmount   decimal.Decimal
	TotalAmount decimal.Decimal
	BalanceDue  decimal.Decimal
}

// ComputeInvoiceTotals sums already-computed line amounts into invoice
// totals. It is idempotent: calling it twice on unchanged lines produces
// identical totals. Status derivation is deliberately not done here.
func ComputeInvoiceTotals(lines []domain.InvoiceLine, discountAmount, paidAmount decimal.Decimal) InvoiceTotals {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineTotal)
		tax = tax.Add(line.TaxAmount)
	}
	total := RoundMoney(subtotal.Add(tax).Sub(discountAmount))
	return InvoiceTotals{
		Subtotal:    RoundMoney(subtotal),
		TaxAmount:   RoundMoney(tax),
		TotalAmount: total,
		BalanceDue:  RoundMoney(total.Sub(paidAmount)),
	}
}

// ReverseLines returns a copy of the given lines with debit and credit
// swapped, used to build the reversing entry that cancels a posted one.
func ReverseLines(lines []domain.JournalLine) []domain.JournalLine {
	reversed := make([]domain.JournalLine, len(lines))
	for i, line := range lines {
		reversed[i] = line
		reversed[i].Debit = line.Credit
		reversed[i].Credit = line.Debit
	}
	return reversed
}
