package pgsql

import (
	"context"
	"fmt"

	"github.com/entererp/finance_core_app/internal/apperrors"
	"github.com/entererp/finance_core_app/internal/core/domain"
	portsrepo "github.com/entererp/finance_core_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PgxReconciliationRepository performs the cross-entity units of work that
// must commit or fail as a whole: issuing an invoice and recording an
// allocated payment. It reuses the single-statement helpers of the other
// repositories inside one transaction.
type PgxReconciliationRepository struct {
	BaseRepository
}

// newPgxReconciliationRepository creates a new repository for reconciliation
// units of work.
func newPgxReconciliationRepository(pool *pgxpool.Pool) portsrepo.ReconciliationRepository {
	return &PgxReconciliationRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxReconciliationRepository implements portsrepo.ReconciliationRepository
var _ portsrepo.ReconciliationRepository = (*PgxReconciliationRepository)(nil)

// IssueInvoiceInTx writes the invoice's computed totals and SENT status,
// inserts the POSTED journal entry with its lines, and applies the balance
// deltas atomically.
func (r *PgxReconciliationRepository) IssueInvoiceInTx(ctx context.Context, invoice domain.Invoice, entry domain.JournalEntry, lines []domain.JournalLine, balanceChanges map[string]decimal.Decimal) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	accountIDs := make([]string, 0, len(balanceChanges))
	for id := range balanceChanges {
		accountIDs = append(accountIDs, id)
	}
	if _, err := lockAccountsForUpdateTx(ctx, tx, accountIDs); err != nil {
		return err
	}

	query := `
		UPDATE invoices
		SET subtotal = $3, tax_amount = $4, discount_amount = $5, total_amount = $6,
		    balance_due = $7, status = $8, version = version + 1,
		    last_updated_at = $9, last_updated_by = $10
		WHERE invoice_id = $1 AND version = $2 AND status = 'DRAFT';
	`
	cmdTag, err := tx.Exec(ctx, query,
		invoice.InvoiceID,
		invoice.Version,
		invoice.Subtotal,
		invoice.TaxAmount,
		invoice.DiscountAmount,
		invoice.TotalAmount,
		invoice.BalanceDue,
		invoice.Status,
		invoice.LastUpdatedAt,
		invoice.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to issue invoice %s: %w", invoice.InvoiceID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %s is no longer an issuable draft", apperrors.ErrConflict, invoice.InvoiceID)
	}

	if err := insertEntryTx(ctx, tx, entry); err != nil {
		return err
	}
	if err := insertLinesTx(ctx, tx, lines); err != nil {
		return err
	}
	if err := applyBalanceDeltasTx(ctx, tx, balanceChanges, entry.CreatedBy, entry.LastUpdatedAt); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// RecordPaymentInTx inserts the payment and every allocation, writes each
// invoice's updated settlement fields, inserts the POSTED cash journal entry,
// applies the balance deltas and marks the payment COMPLETED atomically.
func (r *PgxReconciliationRepository) RecordPaymentInTx(ctx context.Context, payment domain.Payment, allocations []domain.PaymentAllocation, invoices []domain.Invoice, entry domain.JournalEntry, lines []domain.JournalLine, balanceChanges map[string]decimal.Decimal) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	accountIDs := make([]string, 0, len(balanceChanges))
	for id := range balanceChanges {
		accountIDs = append(accountIDs, id)
	}
	if _, err := lockAccountsForUpdateTx(ctx, tx, accountIDs); err != nil {
		return err
	}

	if err := insertPaymentTx(ctx, tx, payment); err != nil {
		return err
	}
	for _, allocation := range allocations {
		if err := insertAllocationTx(ctx, tx, allocation); err != nil {
			return err
		}
	}
	for _, invoice := range invoices {
		if err := updateInvoiceSettlementTx(ctx, tx, invoice); err != nil {
			return err
		}
	}

	if err := insertEntryTx(ctx, tx, entry); err != nil {
		return err
	}
	if err := insertLinesTx(ctx, tx, lines); err != nil {
		return err
	}
	if err := applyBalanceDeltasTx(ctx, tx, balanceChanges, entry.CreatedBy, entry.LastUpdatedAt); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}
