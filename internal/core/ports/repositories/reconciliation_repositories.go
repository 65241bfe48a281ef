package repositories

import (
	"context"

	"github.com/entererp/finance_core_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ReconciliationRepository performs the cross-entity units of work that must
// commit or fail as a whole. Each method runs in a single database
// transaction so partial state is never observable.
type ReconciliationRepository interface {
	// IssueInvoiceInTx writes the invoice's computed totals and SENT status
	// (version-guarded), inserts the POSTED journal entry with its lines, and
	// applies the balance deltas - all atomically.
	IssueInvoiceInTx(ctx context.Context, invoice domain.Invoice, entry domain.JournalEntry, lines []domain.JournalLine, balanceChanges map[string]decimal.Decimal) error

	// RecordPaymentInTx inserts every allocation, writes each invoice's
	// updated settlement fields (version-guarded), inserts the POSTED cash
	// journal entry, applies the balance deltas and marks the payment
	// COMPLETED - all atomically.
	RecordPaymentInTx(ctx context.Context, payment domain.Payment, allocations []domain.PaymentAllocation, invoices []domain.Invoice, entry domain.JournalEntry, lines []domain.JournalLine, balanceChanges map[string]decimal.Decimal) error
}
