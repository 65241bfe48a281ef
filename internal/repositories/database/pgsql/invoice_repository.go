package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/entererp/finance_core_app/internal/apperrors"
	"github.com/entererp/finance_core_app/internal/core/domain"
	portsrepo "github.com/entererp/finance_core_app/internal/core/ports/repositories"
	"github.com/entererp/finance_core_app/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxInvoiceRepository struct {
	BaseRepository
}

// newPgxInvoiceRepository creates a new repository for invoice data.
func newPgxInvoiceRepository(pool *pgxpool.Pool) portsrepo.InvoiceRepositoryFacade {
	return &PgxInvoiceRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxInvoiceRepository implements portsrepo.InvoiceRepositoryFacade
var _ portsrepo.InvoiceRepositoryFacade = (*PgxInvoiceRepository)(nil)

const invoiceColumns = `
	invoice_id, company_id, invoice_type, invoice_number, invoice_date, due_date,
	subtotal, tax_amount, discount_amount, total_amount, paid_amount, balance_due,
	currency_code, exchange_rate, status, receivable_account_id, tax_account_id,
	notes, version, created_at, created_by, last_updated_at, last_updated_by`

func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	var inv domain.Invoice
	var taxAccountID, notes sql.NullString
	err := row.Scan(
		&inv.InvoiceID,
		&inv.CompanyID,
		&inv.InvoiceType,
		&inv.InvoiceNumber,
		&inv.InvoiceDate,
		&inv.DueDate,
		&inv.Subtotal,
		&inv.TaxAmount,
		&inv.DiscountAmount,
		&inv.TotalAmount,
		&inv.PaidAmount,
		&inv.BalanceDue,
		&inv.CurrencyCode,
		&inv.ExchangeRate,
		&inv.Status,
		&inv.ReceivableAccountID,
		&taxAccountID,
		&notes,
		&inv.Version,
		&inv.CreatedAt,
		&inv.CreatedBy,
		&inv.LastUpdatedAt,
		&inv.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	inv.TaxAccountID = taxAccountID.String
	inv.Notes = notes.String
	return &inv, nil
}

func insertInvoiceTx(ctx context.Context, tx pgx.Tx, invoice domain.Invoice) error {
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23);
	`
	_, err := tx.Exec(ctx, query,
		invoice.InvoiceID,
		invoice.CompanyID,
		invoice.InvoiceType,
		invoice.InvoiceNumber,
		invoice.InvoiceDate,
		invoice.DueDate,
		invoice.Subtotal,
		invoice.TaxAmount,
		invoice.DiscountAmount,
		invoice.TotalAmount,
		invoice.PaidAmount,
		invoice.BalanceDue,
		invoice.CurrencyCode,
		invoice.ExchangeRate,
		invoice.Status,
		invoice.ReceivableAccountID,
		nullableString(invoice.TaxAccountID),
		nullableString(invoice.Notes),
		invoice.Version,
		invoice.CreatedAt,
		invoice.CreatedBy,
		invoice.LastUpdatedAt,
		invoice.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: invoice number %s already exists", apperrors.ErrDuplicate, invoice.InvoiceNumber)
		}
		return fmt.Errorf("failed to insert invoice %s: %w", invoice.InvoiceID, err)
	}
	return nil
}

func insertInvoiceLinesTx(ctx context.Context, tx pgx.Tx, lines []domain.InvoiceLine) error {
	if len(lines) == 0 {
		return nil
	}
	query := `
		INSERT INTO invoice_lines (line_id, invoice_id, line_number, description, quantity, unit_price, discount_percent, tax_rate, line_total, tax_amount, revenue_account_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	batch := &pgx.Batch{}
	for _, line := range lines {
		batch.Queue(query,
			line.LineID,
			line.InvoiceID,
			line.LineNumber,
			line.Description,
			line.Quantity,
			line.UnitPrice,
			line.DiscountPercent,
			line.TaxRate,
			line.LineTotal,
			line.TaxAmount,
			line.RevenueAccountID,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for range lines {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert invoice line: %w", err)
		}
	}
	return results.Close()
}

// updateInvoiceSettlementTx writes the settlement fields guarded by the
// optimistic version the caller read. The version bumps on success; a zero
// row count means another writer got there first.
func updateInvoiceSettlementTx(ctx context.Context, tx pgx.Tx, invoice domain.Invoice) error {
	query := `
		UPDATE invoices
		SET paid_amount = $3, balance_due = $4, status = $5, version = version + 1,
		    last_updated_at = $6, last_updated_by = $7
		WHERE invoice_id = $1 AND version = $2;
	`
	cmdTag, err := tx.Exec(ctx, query,
		invoice.InvoiceID,
		invoice.Version,
		invoice.PaidAmount,
		invoice.BalanceDue,
		invoice.Status,
		invoice.LastUpdatedAt,
		invoice.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update settlement of invoice %s: %w", invoice.InvoiceID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %s was modified concurrently", apperrors.ErrConflict, invoice.InvoiceID)
	}
	return nil
}

// SaveInvoice persists a new DRAFT invoice and its lines.
func (r *PgxInvoiceRepository) SaveInvoice(ctx context.Context, invoice domain.Invoice, lines []domain.InvoiceLine) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	if err := insertInvoiceTx(ctx, tx, invoice); err != nil {
		return err
	}
	if err := insertInvoiceLinesTx(ctx, tx, lines); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// UpdateDraftInvoice replaces a DRAFT invoice's header fields and lines.
func (r *PgxInvoiceRepository) UpdateDraftInvoice(ctx context.Context, invoice domain.Invoice, lines []domain.InvoiceLine) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	query := `
		UPDATE invoices
		SET invoice_date = $2, due_date = $3, subtotal = $4, tax_amount = $5,
		    discount_amount = $6, total_amount = $7, balance_due = $8,
		    receivable_account_id = $9, tax_account_id = $10, notes = $11,
		    last_updated_at = $12, last_updated_by = $13
		WHERE invoice_id = $1 AND status = 'DRAFT';
	`
	cmdTag, err := tx.Exec(ctx, query,
		invoice.InvoiceID,
		invoice.InvoiceDate,
		invoice.DueDate,
		invoice.Subtotal,
		invoice.TaxAmount,
		invoice.DiscountAmount,
		invoice.TotalAmount,
		invoice.BalanceDue,
		invoice.ReceivableAccountID,
		nullableString(invoice.TaxAccountID),
		nullableString(invoice.Notes),
		invoice.LastUpdatedAt,
		invoice.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update draft invoice %s: %w", invoice.InvoiceID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %s is not an editable draft", apperrors.ErrConflict, invoice.InvoiceID)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM invoice_lines WHERE invoice_id = $1;`, invoice.InvoiceID); err != nil {
		return fmt.Errorf("failed to delete lines of invoice %s: %w", invoice.InvoiceID, err)
	}
	if err := insertInvoiceLinesTx(ctx, tx, lines); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// UpdateInvoiceSettlement writes the settlement fields guarded by the
// optimistic version carried on the invoice.
func (r *PgxInvoiceRepository) UpdateInvoiceSettlement(ctx context.Context, invoice domain.Invoice) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	if err := updateInvoiceSettlementTx(ctx, tx, invoice); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// UpdateInvoiceStatus transitions the stored status without touching
// monetary fields.
func (r *PgxInvoiceRepository) UpdateInvoiceStatus(ctx context.Context, invoiceID string, status domain.InvoiceStatus, userID string) error {
	query := `
		UPDATE invoices
		SET status = $2, version = version + 1, last_updated_at = NOW(), last_updated_by = $3
		WHERE invoice_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, invoiceID, status, userID)
	if err != nil {
		return fmt.Errorf("failed to update status of invoice %s: %w", invoiceID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// CancelInvoiceWithAllocations deletes the released allocations and writes
// the cancelled invoice in one transaction. A mismatch between the expected
// and deleted allocation counts means another writer changed the allocation
// set, so the whole cancellation rolls back with ErrConflict.
func (r *PgxInvoiceRepository) CancelInvoiceWithAllocations(ctx context.Context, invoice domain.Invoice, allocationIDs []string) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	if len(allocationIDs) > 0 {
		cmdTag, err := tx.Exec(ctx, `DELETE FROM payment_allocations WHERE allocation_id = ANY($1);`, allocationIDs)
		if err != nil {
			return fmt.Errorf("failed to delete allocations of invoice %s: %w", invoice.InvoiceID, err)
		}
		if cmdTag.RowsAffected() != int64(len(allocationIDs)) {
			return fmt.Errorf("%w: allocations of invoice %s changed concurrently", apperrors.ErrConflict, invoice.InvoiceID)
		}
	}

	if err := updateInvoiceSettlementTx(ctx, tx, invoice); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// FindInvoiceByID retrieves an invoice header by its ID.
func (r *PgxInvoiceRepository) FindInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE invoice_id = $1;`
	invoice, err := scanInvoice(r.Pool.QueryRow(ctx, query, invoiceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find invoice %s: %w", invoiceID, err)
	}
	return invoice, nil
}

// FindLinesByInvoiceID retrieves all lines of an invoice in line order.
func (r *PgxInvoiceRepository) FindLinesByInvoiceID(ctx context.Context, invoiceID string) ([]domain.InvoiceLine, error) {
	query := `
		SELECT line_id, invoice_id, line_number, description, quantity, unit_price, discount_percent, tax_rate, line_total, tax_amount, revenue_account_id
		FROM invoice_lines
		WHERE invoice_id = $1
		ORDER BY line_number;
	`
	rows, err := r.Pool.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines of invoice %s: %w", invoiceID, err)
	}
	defer rows.Close()

	lines := []domain.InvoiceLine{}
	for rows.Next() {
		var l domain.InvoiceLine
		if err := rows.Scan(
			&l.LineID,
			&l.InvoiceID,
			&l.LineNumber,
			&l.Description,
			&l.Quantity,
			&l.UnitPrice,
			&l.DiscountPercent,
			&l.TaxRate,
			&l.LineTotal,
			&l.TaxAmount,
			&l.RevenueAccountID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invoice line row: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice line rows: %w", err)
	}
	return lines, nil
}

// FindInvoicesByIDs retrieves multiple invoice headers by their IDs.
func (r *PgxInvoiceRepository) FindInvoicesByIDs(ctx context.Context, invoiceIDs []string) (map[string]domain.Invoice, error) {
	invoices := make(map[string]domain.Invoice, len(invoiceIDs))
	if len(invoiceIDs) == 0 {
		return invoices, nil
	}
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE invoice_id = ANY($1);`
	rows, err := r.Pool.Query(ctx, query, invoiceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices by IDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice row: %w", err)
		}
		invoices[invoice.InvoiceID] = *invoice
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice rows: %w", err)
	}
	return invoices, nil
}

// ListInvoicesByCompany retrieves a token-paginated list of invoices ordered
// by invoice date then creation time, newest first.
func (r *PgxInvoiceRepository) ListInvoicesByCompany(ctx context.Context, companyID string, limit int, nextToken *string) ([]domain.Invoice, *string, error) {
	fetchLimit := limit + 1
	args := []any{companyID, fetchLimit}
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE company_id = $1
	`

	if nextToken != nil && *nextToken != "" {
		invoiceDate, createdAt, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
		}
		query += ` AND (invoice_date, created_at) < ($3, $4)`
		args = append(args, invoiceDate, createdAt)
	}
	query += `
		ORDER BY invoice_date DESC, created_at DESC
		LIMIT $2;
	`

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query invoices for company %s: %w", companyID, err)
	}
	defer rows.Close()

	invoices := []domain.Invoice{}
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan invoice row: %w", err)
		}
		invoices = append(invoices, *invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating invoice rows: %w", err)
	}

	var newNextToken *string
	if len(invoices) == fetchLimit {
		invoices = invoices[:limit]
		last := invoices[len(invoices)-1]
		token := pagination.EncodeToken(last.InvoiceDate, last.CreatedAt)
		newNextToken = &token
	}
	return invoices, newNextToken, nil
}

// ListOpenInvoicesByCompany retrieves SENT/PARTIALLY_PAID invoices with a
// positive balance due, ordered by due date.
func (r *PgxInvoiceRepository) ListOpenInvoicesByCompany(ctx context.Context, companyID string) ([]domain.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE company_id = $1
		  AND status IN ('SENT', 'PARTIALLY_PAID')
		  AND balance_due > 0
		ORDER BY due_date;
	`
	rows, err := r.Pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query open invoices for company %s: %w", companyID, err)
	}
	defer rows.Close()

	invoices := []domain.Invoice{}
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan open invoice row: %w", err)
		}
		invoices = append(invoices, *invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating open invoice rows: %w", err)
	}
	return invoices, nil
}
