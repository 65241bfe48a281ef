package services

import (
	"context"

	"github.com/entererp/finance_core_app/internal/core/domain"
	"github.com/entererp/finance_core_app/internal/dto"
)

// ReconciliationSvc defines the cross-module workflows that tie documents to
// the ledger. Each operation commits fully or leaves no trace.
type ReconciliationSvc interface {
	// IssueInvoice transitions a DRAFT invoice to SENT and posts the matching
	// journal entry (receivable debit, revenue and tax credits) in one
	// transaction.
	IssueInvoice(ctx context.Context, companyID string, invoiceID string, requestingUserID string) (*domain.Invoice, error)

	// RecordPayment creates the payment, allocates it across the given
	// invoices, posts the cash receipt entry and marks the payment COMPLETED
	// in one transaction.
	RecordPayment(ctx context.Context, companyID string, req dto.RecordPaymentRequest, requestingUserID string) (*domain.Payment, error)
}
