package services

import (
	"context"

	"github.com/entererp/finance_core_app/internal/core/domain"
	"github.com/entererp/finance_core_app/internal/dto"
)

// PaymentReaderSvc defines read operations for payment data
type PaymentReaderSvc interface {
	// GetPaymentByID retrieves a payment with its allocations.
	GetPaymentByID(ctx context.Context, companyID string, paymentID string) (*domain.Payment, error)

	// ListPayments retrieves a token-paginated list of payments in a company.
	ListPayments(ctx context.Context, companyID string, limit int, nextToken *string) (*dto.ListPaymentsResponse, error)

	// ListAllocationsByInvoice retrieves all allocations made against an
	// invoice.
	ListAllocationsByInvoice(ctx context.Context, companyID string, invoiceID string) ([]domain.PaymentAllocation, error)
}

// PaymentWriterSvc defines write operations for payment data
type PaymentWriterSvc interface {
	// CreatePayment persists a new PENDING payment.
	CreatePayment(ctx context.Context, companyID string, req dto.CreatePaymentRequest, creatorUserID string) (*domain.Payment, error)

	// UpdatePaymentStatus transitions a payment through its status machine.
	UpdatePaymentStatus(ctx context.Context, companyID string, paymentID string, req dto.UpdatePaymentStatusRequest, requestingUserID string) (*domain.Payment, error)

	// AllocatePayment assigns part of a payment to one invoice's balance due
	// and updates the invoice's settlement fields.
	AllocatePayment(ctx context.Context, companyID string, paymentID string, req dto.AllocationRequest, requestingUserID string) (*domain.PaymentAllocation, error)

	// DeallocatePayment removes an allocation and restores the invoice's
	// balance due.
	DeallocatePayment(ctx context.Context, companyID string, paymentID string, allocationID string, requestingUserID string) error
}

// PaymentSvcFacade combines all payment-related service interfaces
type PaymentSvcFacade interface {
	PaymentReaderSvc
	PaymentWriterSvc
}
