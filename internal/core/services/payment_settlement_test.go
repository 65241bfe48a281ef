package services

import (
	"testing"

	"github.com/entererp/finance_core_app/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSettleAllocation_FullPaymentMarksPaid(t *testing.T) {
	invoice := &domain.Invoice{
		TotalAmount: decimal.NewFromInt(189),
		PaidAmount:  decimal.Zero,
		BalanceDue:  decimal.NewFromInt(189),
		Status:      domain.InvoiceSent,
	}

	settleAllocation(invoice, decimal.NewFromInt(189))

	assert.Equal(t, domain.InvoicePaid, invoice.Status)
	assert.True(t, invoice.BalanceDue.IsZero())
}

func TestSettleAllocation_ReversalRestoresSent(t *testing.T) {
	invoice := &domain.Invoice{
		TotalAmount: decimal.NewFromInt(189),
		PaidAmount:  decimal.NewFromInt(100),
		BalanceDue:  decimal.NewFromInt(89),
		Status:      domain.InvoicePartiallyPaid,
	}

	settleAllocation(invoice, decimal.NewFromInt(-100))

	assert.Equal(t, domain.InvoiceSent, invoice.Status)
	assert.True(t, invoice.PaidAmount.IsZero())
	assert.True(t, invoice.BalanceDue.Equal(decimal.NewFromInt(189)))
}

// A zero-total invoice has a zero balance before any money moves; PAID
// requires an actual paid amount.
func TestSettleAllocation_ZeroTotalNotMarkedPaid(t *testing.T) {
	invoice := &domain.Invoice{
		TotalAmount: decimal.Zero,
		PaidAmount:  decimal.Zero,
		BalanceDue:  decimal.Zero,
		Status:      domain.InvoiceSent,
	}

	settleAllocation(invoice, decimal.Zero)

	assert.Equal(t, domain.InvoiceSent, invoice.Status)
}
