package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/entererp/finance_core_app/internal/apperrors"
	"github.com/entererp/finance_core_app/internal/core/domain"
	portsrepo "github.com/entererp/finance_core_app/internal/core/ports/repositories"
	portssvc "github.com/entererp/finance_core_app/internal/core/ports/services"
	"github.com/entererp/finance_core_app/internal/dto"
	"github.com/entererp/finance_core_app/internal/middleware"
	"github.com/entererp/finance_core_app/internal/utils/accounting"
	"github.com/entererp/finance_core_app/internal/utils/numbering"
	"github.com/shopspring/decimal"
)

var (
	ErrAmountNotPositive    = errors.New("amount must be positive")
	ErrOverAllocation       = errors.New("allocations would exceed the payment amount")
	ErrExceedsBalanceDue    = errors.New("allocation exceeds the invoice balance due")
	ErrPaymentNotAllocable  = errors.New("payment status does not allow allocation")
	ErrInvoiceNotAllocable  = errors.New("invoice status does not allow allocation")
	ErrAllocationCurrency   = errors.New("payment currency does not match invoice currency")
	ErrInvalidTransition    = errors.New("payment status transition not allowed")
	ErrAllocationMismatched = errors.New("allocation does not belong to this payment")
)

// paymentService provides payment and allocation operations.
type paymentService struct {
	paymentRepo portsrepo.PaymentRepositoryFacade
	invoiceRepo portsrepo.InvoiceReader
	accountRepo portsrepo.AccountReader
	rates       portssvc.RateSource
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(paymentRepo portsrepo.PaymentRepositoryFacade, invoiceRepo portsrepo.InvoiceReader, accountRepo portsrepo.AccountReader, rates portssvc.RateSource) portssvc.PaymentSvcFacade {
	return &paymentService{
		paymentRepo: paymentRepo,
		invoiceRepo: invoiceRepo,
		accountRepo: accountRepo,
		rates:       rates,
	}
}

// Ensure paymentService implements the portssvc.PaymentSvcFacade interface
var _ portssvc.PaymentSvcFacade = (*paymentService)(nil)

// assemblePayment builds a PENDING domain payment from a request,
// snapshotting the exchange rate. Shared with the reconciliation flow.
func assemblePayment(ctx context.Context, accountRepo portsrepo.AccountReader, rates portssvc.RateSource, companyID string, req dto.CreatePaymentRequest, creatorUserID string) (*domain.Payment, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrAmountNotPositive)
	}

	bankAccount, err := accountRepo.FindAccountByID(ctx, req.BankAccountID)
	if err != nil || bankAccount.CompanyID != companyID {
		return nil, fmt.Errorf("%w: bank account %s", ErrUnknownAccount, req.BankAccountID)
	}
	if !bankAccount.IsActive {
		return nil, fmt.Errorf("%w: bank account %s is inactive", apperrors.ErrValidation, req.BankAccountID)
	}

	rate, err := rates.Rate(ctx, req.CurrencyCode, req.PaymentDate)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &domain.Payment{
		PaymentID:     uuid.NewString(),
		CompanyID:     companyID,
		PaymentNumber: numbering.Next(numbering.PaymentPrefix, req.PaymentDate),
		PaymentDate:   req.PaymentDate,
		Method:        req.Method,
		Reference:     req.Reference,
		Amount:        accounting.RoundMoney(req.Amount),
		CurrencyCode:  req.CurrencyCode,
		ExchangeRate:  rate,
		BankAccountID: req.BankAccountID,
		Status:        domain.PaymentPending,
		Notes:         req.Notes,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}, nil
}

// CreatePayment persists a new PENDING payment.
func (s *paymentService) CreatePayment(ctx context.Context, companyID string, req dto.CreatePaymentRequest, creatorUserID string) (*domain.Payment, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	payment, err := assemblePayment(ctx, s.accountRepo, s.rates, companyID, req, creatorUserID)
	if err != nil {
		return nil, err
	}

	if err := s.paymentRepo.SavePayment(ctx, *payment); err != nil {
		logger.Error("Failed to save payment", slog.String("company_id", companyID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	logger.Info("Payment created", slog.String("payment_id", payment.PaymentID), slog.String("company_id", companyID))
	return payment, nil
}

// GetPaymentByID retrieves a payment with its allocations.
func (s *paymentService) GetPaymentByID(ctx context.Context, companyID string, paymentID string) (*domain.Payment, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	payment, err := s.paymentRepo.FindPaymentByID(ctx, paymentID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.Error("Failed to find payment by ID", slog.String("payment_id", paymentID), slog.String("error", err.Error()))
		}
		return nil, fmt.Errorf("failed to find payment %s: %w", paymentID, err)
	}
	if payment.CompanyID != companyID {
		return nil, apperrors.ErrNotFound
	}

	allocations, err := s.paymentRepo.FindAllocationsByPaymentID(ctx, paymentID)
	if err != nil {
		logger.Error("Failed to fetch allocations for payment", slog.String("payment_id", paymentID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to retrieve allocations for payment %s: %w", paymentID, apperrors.ErrInternal)
	}
	payment.Allocations = allocations
	return payment, nil
}

// ListPayments retrieves a token-paginated list of payments in a company.
func (s *paymentService) ListPayments(ctx context.Context, companyID string, limit int, nextToken *string) (*dto.ListPaymentsResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if limit <= 0 {
		limit = 20
	}
	payments, token, err := s.paymentRepo.ListPaymentsByCompany(ctx, companyID, limit, nextToken)
	if err != nil {
		logger.Error("Failed to list payments", slog.String("company_id", companyID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to retrieve payments: %w", err)
	}
	return &dto.ListPaymentsResponse{
		Payments:  dto.ToPaymentResponses(payments),
		NextToken: token,
	}, nil
}

// ListAllocationsByInvoice retrieves all allocations made against an invoice.
func (s *paymentService) ListAllocationsByInvoice(ctx context.Context, companyID string, invoiceID string) ([]domain.PaymentAllocation, error) {
	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to find invoice %s: %w", invoiceID, err)
	}
	if invoice.CompanyID != companyID {
		return nil, apperrors.ErrNotFound
	}
	allocations, err := s.paymentRepo.FindAllocationsByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve allocations for invoice %s: %w", invoiceID, err)
	}
	return allocations, nil
}

// UpdatePaymentStatus transitions a payment through its status machine.
func (s *paymentService) UpdatePaymentStatus(ctx context.Context, companyID string, paymentID string, req dto.UpdatePaymentStatusRequest, requestingUserID string) (*domain.Payment, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	payment, err := s.GetPaymentByID(ctx, companyID, paymentID)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransitionPayment(payment.Status, req.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", apperrors.ErrConflict, payment.Status, req.Status)
	}

	if err := s.paymentRepo.UpdatePaymentStatus(ctx, paymentID, req.Status, requestingUserID); err != nil {
		logger.Error("Failed to update payment status", slog.String("payment_id", paymentID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}

	logger.Info("Payment status updated", slog.String("payment_id", paymentID), slog.String("status", string(req.Status)))
	payment.Status = req.Status
	return payment, nil
}

// settleAllocation computes the invoice settlement fields after applying (or
// reversing) an allocated amount. Status derives from the remaining balance.
func settleAllocation(invoice *domain.Invoice, delta decimal.Decimal) {
	invoice.PaidAmount = accounting.RoundMoney(invoice.PaidAmount.Add(delta))
	invoice.BalanceDue = accounting.RoundMoney(invoice.TotalAmount.Sub(invoice.PaidAmount))
	switch {
	case invoice.BalanceDue.IsZero() && invoice.PaidAmount.IsPositive():
		invoice.Status = domain.InvoicePaid
	case invoice.PaidAmount.IsPositive():
		invoice.Status = domain.InvoicePartiallyPaid
	default:
		invoice.Status = domain.InvoiceSent
	}
}

// AllocatePayment assigns part of a payment to one invoice's balance due.
// The allocation insert and the invoice settlement update commit together.
// The over-allocation check here is a fast fail on a possibly stale sum;
// the repository re-verifies it under a payment row lock, and a concurrent
// settlement of the same invoice trips the invoice version guard. Either
// race surfaces as ErrConflict.
func (s *paymentService) AllocatePayment(ctx context.Context, companyID string, paymentID string, req dto.AllocationRequest, requestingUserID string) (*domain.PaymentAllocation, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	amount := accounting.RoundMoney(req.Amount)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrAmountNotPositive)
	}

	payment, err := s.GetPaymentByID(ctx, companyID, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status == domain.PaymentFailed || payment.Status == domain.PaymentRefunded {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrConflict, ErrPaymentNotAllocable)
	}

	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, req.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to find invoice %s: %w", req.InvoiceID, err)
	}
	if invoice.CompanyID != companyID {
		return nil, apperrors.ErrNotFound
	}
	if invoice.CurrencyCode != payment.CurrencyCode {
		return nil, fmt.Errorf("%w: payment %s, invoice %s", ErrAllocationCurrency, payment.CurrencyCode, invoice.CurrencyCode)
	}
	// Checked before the status guard so a settled invoice reports its zero
	// balance rather than a generic status conflict.
	if amount.GreaterThan(invoice.BalanceDue) {
		return nil, fmt.Errorf("%w: balance due %s, requested %s", ErrExceedsBalanceDue, invoice.BalanceDue, amount)
	}
	if invoice.Status != domain.InvoiceSent && invoice.Status != domain.InvoicePartiallyPaid {
		return nil, fmt.Errorf("%w: %s (status %s)", apperrors.ErrConflict, ErrInvoiceNotAllocable, invoice.Status)
	}

	allocated, err := s.paymentRepo.SumAllocationsByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum allocations: %w", err)
	}
	if allocated.Add(amount).GreaterThan(payment.Amount) {
		return nil, fmt.Errorf("%w: %s allocated of %s, requested %s", ErrOverAllocation, allocated, payment.Amount, amount)
	}

	now := time.Now().UTC()
	allocation := domain.PaymentAllocation{
		AllocationID:    uuid.NewString(),
		PaymentID:       paymentID,
		InvoiceID:       invoice.InvoiceID,
		AllocatedAmount: amount,
		AllocatedAt:     now,
		AllocatedBy:     requestingUserID,
	}

	settleAllocation(invoice, amount)
	invoice.LastUpdatedAt = now
	invoice.LastUpdatedBy = requestingUserID

	if err := s.paymentRepo.SaveAllocation(ctx, allocation, *invoice); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			logger.Warn("Allocation lost a concurrent settlement race", slog.String("invoice_id", invoice.InvoiceID))
		} else {
			logger.Error("Failed to save allocation", slog.String("payment_id", paymentID), slog.String("invoice_id", invoice.InvoiceID), slog.String("error", err.Error()))
		}
		return nil, fmt.Errorf("failed to save allocation: %w", err)
	}

	logger.Info("Payment allocated", slog.String("payment_id", paymentID), slog.String("invoice_id", invoice.InvoiceID), slog.String("amount", amount.String()))
	return &allocation, nil
}

// DeallocatePayment removes an allocation and restores the invoice's balance
// due.
func (s *paymentService) DeallocatePayment(ctx context.Context, companyID string, paymentID string, allocationID string, requestingUserID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	payment, err := s.GetPaymentByID(ctx, companyID, paymentID)
	if err != nil {
		return err
	}

	allocation, err := s.paymentRepo.FindAllocationByID(ctx, allocationID)
	if err != nil {
		return fmt.Errorf("failed to find allocation %s: %w", allocationID, err)
	}
	if allocation.PaymentID != payment.PaymentID {
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrAllocationMismatched)
	}

	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, allocation.InvoiceID)
	if err != nil {
		return fmt.Errorf("failed to find invoice %s: %w", allocation.InvoiceID, err)
	}

	now := time.Now().UTC()
	settleAllocation(invoice, allocation.AllocatedAmount.Neg())
	invoice.LastUpdatedAt = now
	invoice.LastUpdatedBy = requestingUserID

	if err := s.paymentRepo.DeleteAllocation(ctx, allocationID, *invoice); err != nil {
		logger.Error("Failed to delete allocation", slog.String("allocation_id", allocationID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete allocation: %w", err)
	}

	logger.Info("Payment deallocated", slog.String("payment_id", paymentID), slog.String("allocation_id", allocationID))
	return nil
}
