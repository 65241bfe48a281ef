package services

import (
	"context"

	"github.com/entererp/finance_core_app/internal/core/domain"
	"github.com/entererp/finance_core_app/internal/dto"
)

// InvoiceReaderSvc defines read operations for invoice data
type InvoiceReaderSvc interface {
	// GetInvoiceByID retrieves an invoice with its lines.
	GetInvoiceByID(ctx context.Context, companyID string, invoiceID string) (*domain.Invoice, error)

	// GetInvoiceStatus returns the settlement view of an invoice, with the
	// overdue flag derived from the due date at call time.
	GetInvoiceStatus(ctx context.Context, companyID string, invoiceID string) (*dto.InvoiceStatusResponse, error)

	// ListInvoices retrieves a token-paginated list of invoices in a company.
	ListInvoices(ctx context.Context, companyID string, limit int, nextToken *string) (*dto.ListInvoicesResponse, error)
}

// InvoiceWriterSvc defines write operations for invoice data
type InvoiceWriterSvc interface {
	// CreateDraftInvoice persists a new DRAFT invoice with computed totals.
	CreateDraftInvoice(ctx context.Context, companyID string, req dto.CreateInvoiceRequest, creatorUserID string) (*domain.Invoice, error)

	// UpdateDraftInvoice replaces a DRAFT invoice's editable fields and
	// lines, recomputing totals.
	UpdateDraftInvoice(ctx context.Context, companyID string, invoiceID string, req dto.UpdateDraftInvoiceRequest, requestingUserID string) (*domain.Invoice, error)

	// CancelInvoice marks a DRAFT or unpaid SENT invoice as CANCELLED.
	CancelInvoice(ctx context.Context, companyID string, invoiceID string, requestingUserID string) error
}

// InvoiceSvcFacade combines all invoice-related service interfaces
type InvoiceSvcFacade interface {
	InvoiceReaderSvc
	InvoiceWriterSvc
}
