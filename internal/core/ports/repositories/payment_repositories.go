package repositories

import (
	"context"

	"github.com/entererp/finance_core_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// PaymentReader defines read operations for payment data
type PaymentReader interface {
	// FindPaymentByID retrieves a payment header by its ID.
	FindPaymentByID(ctx context.Context, paymentID string) (*domain.Payment, error)

	// FindAllocationByID retrieves a single allocation.
	FindAllocationByID(ctx context.Context, allocationID string) (*domain.PaymentAllocation, error)

	// FindAllocationsByPaymentID retrieves all allocations of a payment.
	FindAllocationsByPaymentID(ctx context.Context, paymentID string) ([]domain.PaymentAllocation, error)

	// FindAllocationsByInvoiceID retrieves all allocations against an invoice.
	FindAllocationsByInvoiceID(ctx context.Context, invoiceID string) ([]domain.PaymentAllocation, error)

	// SumAllocationsByPaymentID returns the total already allocated from a
	// payment, computed in the database.
	SumAllocationsByPaymentID(ctx context.Context, paymentID string) (decimal.Decimal, error)

	// ListPaymentsByCompany retrieves a token-paginated list of payments.
	ListPaymentsByCompany(ctx context.Context, companyID string, limit int, nextToken *string) ([]domain.Payment, *string, error)
}

// PaymentWriter defines write operations for payment data
type PaymentWriter interface {
	// SavePayment persists a new payment.
	SavePayment(ctx context.Context, payment domain.Payment) error

	// UpdatePaymentStatus transitions the stored payment status.
	UpdatePaymentStatus(ctx context.Context, paymentID string, status domain.PaymentStatus, userID string) error

	// SaveAllocation inserts the allocation and writes the invoice's updated
	// settlement fields (paid_amount, balance_due, status, version bump) in
	// one database transaction. The payment's allocated sum is re-verified
	// under a payment row lock; exceeding the payment amount returns
	// ErrConflict.
	SaveAllocation(ctx context.Context, allocation domain.PaymentAllocation, invoice domain.Invoice) error

	// DeleteAllocation removes the allocation and writes the invoice's
	// reversed settlement fields in one database transaction.
	DeleteAllocation(ctx context.Context, allocationID string, invoice domain.Invoice) error
}

// PaymentRepositoryFacade combines all payment-related repository interfaces.
type PaymentRepositoryFacade interface {
	PaymentReader
	PaymentWriter
}
