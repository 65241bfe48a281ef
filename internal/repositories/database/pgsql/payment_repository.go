package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/entererp/finance_core_app/internal/apperrors"
	"github.com/entererp/finance_core_app/internal/core/domain"
	portsrepo "github.com/entererp/finance_core_app/internal/core/ports/repositories"
	"github.com/entererp/finance_core_app/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PgxPaymentRepository struct {
	BaseRepository
}

// newPgxPaymentRepository creates a new repository for payment data.
func newPgxPaymentRepository(pool *pgxpool.Pool) portsrepo.PaymentRepositoryFacade {
	return &PgxPaymentRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxPaymentRepository implements portsrepo.PaymentRepositoryFacade
var _ portsrepo.PaymentRepositoryFacade = (*PgxPaymentRepository)(nil)

const paymentColumns = `
	payment_id, company_id, payment_number, payment_date, method, reference,
	amount, currency_code, exchange_rate, bank_account_id, status, notes,
	created_at, created_by, last_updated_at, last_updated_by`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	var reference, notes sql.NullString
	err := row.Scan(
		&p.PaymentID,
		&p.CompanyID,
		&p.PaymentNumber,
		&p.PaymentDate,
		&p.Method,
		&reference,
		&p.Amount,
		&p.CurrencyCode,
		&p.ExchangeRate,
		&p.BankAccountID,
		&p.Status,
		&notes,
		&p.CreatedAt,
		&p.CreatedBy,
		&p.LastUpdatedAt,
		&p.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	p.Reference = reference.String
	p.Notes = notes.String
	return &p, nil
}

func insertPaymentTx(ctx context.Context, tx pgx.Tx, payment domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16);
	`
	_, err := tx.Exec(ctx, query,
		payment.PaymentID,
		payment.CompanyID,
		payment.PaymentNumber,
		payment.PaymentDate,
		payment.Method,
		nullableString(payment.Reference),
		payment.Amount,
		payment.CurrencyCode,
		payment.ExchangeRate,
		payment.BankAccountID,
		payment.Status,
		nullableString(payment.Notes),
		payment.CreatedAt,
		payment.CreatedBy,
		payment.LastUpdatedAt,
		payment.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: payment number %s already exists", apperrors.ErrDuplicate, payment.PaymentNumber)
		}
		return fmt.Errorf("failed to insert payment %s: %w", payment.PaymentID, err)
	}
	return nil
}

func insertAllocationTx(ctx context.Context, tx pgx.Tx, allocation domain.PaymentAllocation) error {
	query := `
		INSERT INTO payment_allocations (allocation_id, payment_id, invoice_id, allocated_amount, allocated_at, allocated_by)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err := tx.Exec(ctx, query,
		allocation.AllocationID,
		allocation.PaymentID,
		allocation.InvoiceID,
		allocation.AllocatedAmount,
		allocation.AllocatedAt,
		allocation.AllocatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: payment %s is already allocated to invoice %s", apperrors.ErrDuplicate, allocation.PaymentID, allocation.InvoiceID)
		}
		return fmt.Errorf("failed to insert allocation %s: %w", allocation.AllocationID, err)
	}
	return nil
}

func updatePaymentStatusTx(ctx context.Context, tx pgx.Tx, paymentID string, status domain.PaymentStatus, userID string, now time.Time) error {
	query := `
		UPDATE payments
		SET status = $2, last_updated_at = $3, last_updated_by = $4
		WHERE payment_id = $1;
	`
	cmdTag, err := tx.Exec(ctx, query, paymentID, status, now, userID)
	if err != nil {
		return fmt.Errorf("failed to update status of payment %s: %w", paymentID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SavePayment persists a new payment.
func (r *PgxPaymentRepository) SavePayment(ctx context.Context, payment domain.Payment) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	if err := insertPaymentTx(ctx, tx, payment); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// UpdatePaymentStatus transitions the stored payment status.
func (r *PgxPaymentRepository) UpdatePaymentStatus(ctx context.Context, paymentID string, status domain.PaymentStatus, userID string) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	if err := updatePaymentStatusTx(ctx, tx, paymentID, status, userID, time.Now().UTC()); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// SaveAllocation inserts the allocation and writes the invoice's updated
// settlement fields in one database transaction. The payment row is locked
// first and the allocated sum recomputed under that lock, so two concurrent
// allocations from the same payment cannot jointly exceed its amount even
// when they target different invoices.
func (r *PgxPaymentRepository) SaveAllocation(ctx context.Context, allocation domain.PaymentAllocation, invoice domain.Invoice) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	var paymentAmount decimal.Decimal
	err = tx.QueryRow(ctx, `SELECT amount FROM payments WHERE payment_id = $1 FOR UPDATE;`, allocation.PaymentID).Scan(&paymentAmount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to lock payment %s: %w", allocation.PaymentID, err)
	}

	var allocated decimal.Decimal
	query := `SELECT COALESCE(SUM(allocated_amount), 0) FROM payment_allocations WHERE payment_id = $1;`
	if err := tx.QueryRow(ctx, query, allocation.PaymentID).Scan(&allocated); err != nil {
		return fmt.Errorf("failed to sum allocations of payment %s: %w", allocation.PaymentID, err)
	}
	if allocated.Add(allocation.AllocatedAmount).GreaterThan(paymentAmount) {
		return fmt.Errorf("%w: payment %s already has %s allocated of %s", apperrors.ErrConflict, allocation.PaymentID, allocated, paymentAmount)
	}

	if err := insertAllocationTx(ctx, tx, allocation); err != nil {
		return err
	}
	if err := updateInvoiceSettlementTx(ctx, tx, invoice); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// DeleteAllocation removes the allocation and writes the invoice's reversed
// settlement fields in one database transaction.
func (r *PgxPaymentRepository) DeleteAllocation(ctx context.Context, allocationID string, invoice domain.Invoice) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	cmdTag, err := tx.Exec(ctx, `DELETE FROM payment_allocations WHERE allocation_id = $1;`, allocationID)
	if err != nil {
		return fmt.Errorf("failed to delete allocation %s: %w", allocationID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	if err := updateInvoiceSettlementTx(ctx, tx, invoice); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// FindPaymentByID retrieves a payment header by its ID.
func (r *PgxPaymentRepository) FindPaymentByID(ctx context.Context, paymentID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE payment_id = $1;`
	payment, err := scanPayment(r.Pool.QueryRow(ctx, query, paymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find payment %s: %w", paymentID, err)
	}
	return payment, nil
}

const allocationColumns = `allocation_id, payment_id, invoice_id, allocated_amount, allocated_at, allocated_by`

func scanAllocation(row pgx.Row) (*domain.PaymentAllocation, error) {
	var a domain.PaymentAllocation
	err := row.Scan(
		&a.AllocationID,
		&a.PaymentID,
		&a.InvoiceID,
		&a.AllocatedAmount,
		&a.AllocatedAt,
		&a.AllocatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindAllocationByID retrieves a single allocation.
func (r *PgxPaymentRepository) FindAllocationByID(ctx context.Context, allocationID string) (*domain.PaymentAllocation, error) {
	query := `SELECT ` + allocationColumns + ` FROM payment_allocations WHERE allocation_id = $1;`
	allocation, err := scanAllocation(r.Pool.QueryRow(ctx, query, allocationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find allocation %s: %w", allocationID, err)
	}
	return allocation, nil
}

func (r *PgxPaymentRepository) queryAllocations(ctx context.Context, query string, arg any) ([]domain.PaymentAllocation, error) {
	rows, err := r.Pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	allocations := []domain.PaymentAllocation{}
	for rows.Next() {
		allocation, err := scanAllocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allocation row: %w", err)
		}
		allocations = append(allocations, *allocation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocation rows: %w", err)
	}
	return allocations, nil
}

// FindAllocationsByPaymentID retrieves all allocations of a payment.
func (r *PgxPaymentRepository) FindAllocationsByPaymentID(ctx context.Context, paymentID string) ([]domain.PaymentAllocation, error) {
	query := `SELECT ` + allocationColumns + ` FROM payment_allocations WHERE payment_id = $1 ORDER BY allocated_at;`
	return r.queryAllocations(ctx, query, paymentID)
}

// FindAllocationsByInvoiceID retrieves all allocations against an invoice.
func (r *PgxPaymentRepository) FindAllocationsByInvoiceID(ctx context.Context, invoiceID string) ([]domain.PaymentAllocation, error) {
	query := `SELECT ` + allocationColumns + ` FROM payment_allocations WHERE invoice_id = $1 ORDER BY allocated_at;`
	return r.queryAllocations(ctx, query, invoiceID)
}

// SumAllocationsByPaymentID returns the total already allocated from a
// payment, computed in the database.
func (r *PgxPaymentRepository) SumAllocationsByPaymentID(ctx context.Context, paymentID string) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(allocated_amount), 0) FROM payment_allocations WHERE payment_id = $1;`
	var total decimal.Decimal
	if err := r.Pool.QueryRow(ctx, query, paymentID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum allocations of payment %s: %w", paymentID, err)
	}
	return total, nil
}

// ListPaymentsByCompany retrieves a token-paginated list of payments ordered
// by payment date then creation time, newest first.
func (r *PgxPaymentRepository) ListPaymentsByCompany(ctx context.Context, companyID string, limit int, nextToken *string) ([]domain.Payment, *string, error) {
	fetchLimit := limit + 1
	args := []any{companyID, fetchLimit}
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE company_id = $1
	`

	if nextToken != nil && *nextToken != "" {
		paymentDate, createdAt, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
		}
		query += ` AND (payment_date, created_at) < ($3, $4)`
		args = append(args, paymentDate, createdAt)
	}
	query += `
		ORDER BY payment_date DESC, created_at DESC
		LIMIT $2;
	`

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query payments for company %s: %w", companyID, err)
	}
	defer rows.Close()

	payments := []domain.Payment{}
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan payment row: %w", err)
		}
		payments = append(payments, *payment)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating payment rows: %w", err)
	}

	var newNextToken *string
	if len(payments) == fetchLimit {
		payments = payments[:limit]
		last := payments[len(payments)-1]
		token := pagination.EncodeToken(last.PaymentDate, last.CreatedAt)
		newNextToken = &token
	}
	return payments, newNextToken, nil
}
