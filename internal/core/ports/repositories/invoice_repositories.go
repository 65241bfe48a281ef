package repositories

import (
	"context"

	"github.com/entererp/finance_core_app/internal/core/domain"
)

// InvoiceReader defines read operations for invoice data
type InvoiceReader interface {
	// FindInvoiceByID retrieves an invoice header by its ID.
	FindInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error)

	// FindLinesByInvoiceID retrieves all lines of an invoice in line order.
	FindLinesByInvoiceID(ctx context.Context, invoiceID string) ([]domain.InvoiceLine, error)

	// FindInvoicesByIDs retrieves multiple invoice headers by their IDs.
	FindInvoicesByIDs(ctx context.Context, invoiceIDs []string) (map[string]domain.Invoice, error)

	// ListInvoicesByCompany retrieves a token-paginated list of invoices.
	ListInvoicesByCompany(ctx context.Context, companyID string, limit int, nextToken *string) ([]domain.Invoice, *string, error)

	// ListOpenInvoicesByCompany retrieves SENT/PARTIALLY_PAID invoices with a
	// positive balance due, ordered by due date. Used for aged receivables.
	ListOpenInvoicesByCompany(ctx context.Context, companyID string) ([]domain.Invoice, error)
}

// InvoiceWriter defines write operations for invoice data
type InvoiceWriter interface {
	// SaveInvoice persists a new DRAFT invoice and its lines.
	SaveInvoice(ctx context.Context, invoice domain.Invoice, lines []domain.InvoiceLine) error

	// UpdateDraftInvoice replaces a DRAFT invoice's header fields and lines.
	UpdateDraftInvoice(ctx context.Context, invoice domain.Invoice, lines []domain.InvoiceLine) error

	// UpdateInvoiceSettlement writes the paid_amount, balance_due, status and
	// audit fields guarded by the optimistic version carried on the invoice;
	// returns apperrors.ErrConflict when the stored version differs.
	UpdateInvoiceSettlement(ctx context.Context, invoice domain.Invoice) error

	// UpdateInvoiceStatus transitions the stored status (draft discard,
	// cancellation) without touching monetary fields.
	UpdateInvoiceStatus(ctx context.Context, invoiceID string, status domain.InvoiceStatus, userID string) error

	// CancelInvoiceWithAllocations deletes the listed allocations, releasing
	// their amounts back to their payments, and writes the cancelled invoice
	// with its reset settlement fields in one transaction. Guarded by the
	// invoice version like UpdateInvoiceSettlement.
	CancelInvoiceWithAllocations(ctx context.Context, invoice domain.Invoice, allocationIDs []string) error
}

// InvoiceRepositoryFacade combines all invoice-related repository interfaces.
type InvoiceRepositoryFacade interface {
	InvoiceReader
	InvoiceWriter
}
