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
	ErrInvoiceNotDraft   = errors.New("invoice is not a draft")
	ErrInvoiceHasLines   = errors.New("invoice must have at least one line")
	ErrDueBeforeIssue    = errors.New("due date must not precede the invoice date")
	ErrInvoiceSettled    = errors.New("fully paid invoice cannot be cancelled")
	ErrNegativeQuantity  = errors.New("quantity and unit price must be positive")
	ErrPercentOutOfRange = errors.New("discount percent and tax rate must be between 0 and 100")
)

// invoiceService provides invoice document operations. Issuing (and its
// ledger effect) lives in the reconciliation service.
type invoiceService struct {
	invoiceRepo portsrepo.InvoiceRepositoryFacade
	accountRepo portsrepo.AccountReader
	paymentRepo portsrepo.PaymentReader
	rates       portssvc.RateSource
}

// NewInvoiceService creates a new InvoiceService.
func NewInvoiceService(invoiceRepo portsrepo.InvoiceRepositoryFacade, accountRepo portsrepo.AccountReader, paymentRepo portsrepo.PaymentReader, rates portssvc.RateSource) portssvc.InvoiceSvcFacade {
	return &invoiceService{
		invoiceRepo: invoiceRepo,
		accountRepo: accountRepo,
		paymentRepo: paymentRepo,
		rates:       rates,
	}
}

// Ensure invoiceService implements the portssvc.InvoiceSvcFacade interface
var _ portssvc.InvoiceSvcFacade = (*invoiceService)(nil)

var oneHundred = decimal.NewFromInt(100)

// buildInvoiceLines converts line requests into domain lines with computed
// amounts. Recomputing from unchanged inputs yields identical results.
func buildInvoiceLines(invoiceID string, reqs []dto.CreateInvoiceLineRequest) ([]domain.InvoiceLine, error) {
	lines := make([]domain.InvoiceLine, len(reqs))
	for i, lr := range reqs {
		if !lr.Quantity.IsPositive() || !lr.UnitPrice.IsPositive() {
			return nil, fmt.Errorf("%w: line %d", ErrNegativeQuantity, i+1)
		}
		if lr.DiscountPercent.IsNegative() || lr.DiscountPercent.GreaterThan(oneHundred) ||
			lr.TaxRate.IsNegative() || lr.TaxRate.GreaterThan(oneHundred) {
			return nil, fmt.Errorf("%w: line %d", ErrPercentOutOfRange, i+1)
		}
		line := domain.InvoiceLine{
			LineID:           uuid.NewString(),
			InvoiceID:        invoiceID,
			LineNumber:       i + 1,
			Description:      lr.Description,
			Quantity:         lr.Quantity,
			UnitPrice:        lr.UnitPrice,
			DiscountPercent:  lr.DiscountPercent,
			TaxRate:          lr.TaxRate,
			RevenueAccountID: lr.RevenueAccountID,
		}
		line.LineTotal, line.TaxAmount = accounting.ComputeLine(line)
		lines[i] = line
	}
	return lines, nil
}

// validateLineAccounts checks that every revenue/expense account referenced
// by the lines exists in the company and is active.
func (s *invoiceService) validateLineAccounts(ctx context.Context, companyID string, lines []domain.InvoiceLine) error {
	accountIDs := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.RevenueAccountID]; !ok {
			seen[line.RevenueAccountID] = struct{}{}
			accountIDs = append(accountIDs, line.RevenueAccountID)
		}
	}
	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, accountIDs)
	if err != nil {
		return fmt.Errorf("failed to fetch line accounts: %w", err)
	}
	for _, id := range accountIDs {
		acc, found := accounts[id]
		if !found || acc.CompanyID != companyID {
			return fmt.Errorf("%w: ID %s", ErrUnknownAccount, id)
		}
		if !acc.IsActive {
			return fmt.Errorf("%w: account %s is inactive", apperrors.ErrValidation, id)
		}
	}
	return nil
}

// CreateDraftInvoice persists a new DRAFT invoice with computed totals.
func (s *invoiceService) CreateDraftInvoice(ctx context.Context, companyID string, req dto.CreateInvoiceRequest, creatorUserID string) (*domain.Invoice, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.DueDate.Before(req.InvoiceDate) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrDueBeforeIssue)
	}
	if req.DiscountAmount.IsNegative() {
		return nil, fmt.Errorf("%w: discount amount must not be negative", apperrors.ErrValidation)
	}

	invoiceID := uuid.NewString()
	lines, err := buildInvoiceLines(invoiceID, req.Lines)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
	}
	if err := s.validateLineAccounts(ctx, companyID, lines); err != nil {
		return nil, err
	}

	receivable, err := s.accountRepo.FindAccountByID(ctx, req.ReceivableAccountID)
	if err != nil || receivable.CompanyID != companyID {
		return nil, fmt.Errorf("%w: receivable account %s", ErrUnknownAccount, req.ReceivableAccountID)
	}
	if req.TaxAccountID != "" {
		taxAcc, err := s.accountRepo.FindAccountByID(ctx, req.TaxAccountID)
		if err != nil || taxAcc.CompanyID != companyID {
			return nil, fmt.Errorf("%w: tax account %s", ErrUnknownAccount, req.TaxAccountID)
		}
	}

	rate, err := s.rates.Rate(ctx, req.CurrencyCode, req.InvoiceDate)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	totals := accounting.ComputeInvoiceTotals(lines, accounting.RoundMoney(req.DiscountAmount), decimal.Zero)
	invoice := domain.Invoice{
		InvoiceID:           invoiceID,
		CompanyID:           companyID,
		InvoiceType:         req.InvoiceType,
		InvoiceNumber:       numbering.Next(numbering.InvoicePrefix, req.InvoiceDate),
		InvoiceDate:         req.InvoiceDate,
		DueDate:             req.DueDate,
		Subtotal:            totals.Subtotal,
		TaxAmount:           totals.TaxAmount,
		DiscountAmount:      accounting.RoundMoney(req.DiscountAmount),
		TotalAmount:         totals.TotalAmount,
		PaidAmount:          decimal.Zero,
		BalanceDue:          totals.BalanceDue,
		CurrencyCode:        req.CurrencyCode,
		ExchangeRate:        rate,
		Status:              domain.InvoiceDraft,
		ReceivableAccountID: req.ReceivableAccountID,
		TaxAccountID:        req.TaxAccountID,
		Notes:               req.Notes,
		Version:             1,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.invoiceRepo.SaveInvoice(ctx, invoice, lines); err != nil {
		logger.Error("Failed to save draft invoice", slog.String("company_id", companyID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save draft invoice: %w", err)
	}

	logger.Info("Draft invoice created", slog.String("invoice_id", invoice.InvoiceID), slog.String("company_id", companyID))
	invoice.Lines = lines
	return &invoice, nil
}

// GetInvoiceByID retrieves an invoice with its lines.
func (s *invoiceService) GetInvoiceByID(ctx context.Context, companyID string, invoiceID string) (*domain.Invoice, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.Error("Failed to find invoice by ID", slog.String("invoice_id", invoiceID), slog.String("error", err.Error()))
		}
		return nil, fmt.Errorf("failed to find invoice %s: %w", invoiceID, err)
	}
	if invoice.CompanyID != companyID {
		return nil, apperrors.ErrNotFound
	}

	lines, err := s.invoiceRepo.FindLinesByInvoiceID(ctx, invoiceID)
	if err != nil {
		logger.Error("Failed to fetch invoice lines", slog.String("invoice_id", invoiceID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to retrieve lines for invoice %s: %w", invoiceID, apperrors.ErrInternal)
	}
	invoice.Lines = lines
	return invoice, nil
}

// GetInvoiceStatus returns the settlement view of an invoice with the
// overdue flag derived at call time.
func (s *invoiceService) GetInvoiceStatus(ctx context.Context, companyID string, invoiceID string) (*dto.InvoiceStatusResponse, error) {
	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to find invoice %s: %w", invoiceID, err)
	}
	if invoice.CompanyID != companyID {
		return nil, apperrors.ErrNotFound
	}
	return &dto.InvoiceStatusResponse{
		InvoiceID:  invoice.InvoiceID,
		Status:     invoice.Status,
		PaidAmount: invoice.PaidAmount,
		BalanceDue: invoice.BalanceDue,
		Overdue:    invoice.IsOverdue(time.Now().UTC()),
	}, nil
}

// ListInvoices retrieves a token-paginated list of invoices in a company.
func (s *invoiceService) ListInvoices(ctx context.Context, companyID string, limit int, nextToken *string) (*dto.ListInvoicesResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if limit <= 0 {
		limit = 20
	}
	invoices, token, err := s.invoiceRepo.ListInvoicesByCompany(ctx, companyID, limit, nextToken)
	if err != nil {
		logger.Error("Failed to list invoices", slog.String("company_id", companyID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to retrieve invoices: %w", err)
	}
	return &dto.ListInvoicesResponse{
		Invoices:  dto.ToInvoiceResponses(invoices, time.Now().UTC()),
		NextToken: token,
	}, nil
}

// UpdateDraftInvoice replaces a DRAFT invoice's editable fields and lines,
// recomputing totals.
func (s *invoiceService) UpdateDraftInvoice(ctx context.Context, companyID string, invoiceID string, req dto.UpdateDraftInvoiceRequest, requestingUserID string) (*domain.Invoice, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	invoice, err := s.GetInvoiceByID(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status != domain.InvoiceDraft {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrConflict, ErrInvoiceNotDraft)
	}

	if req.InvoiceDate != nil {
		invoice.InvoiceDate = *req.InvoiceDate
	}
	if req.DueDate != nil {
		invoice.DueDate = *req.DueDate
	}
	if invoice.DueDate.Before(invoice.InvoiceDate) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrDueBeforeIssue)
	}
	if req.DiscountAmount != nil {
		if req.DiscountAmount.IsNegative() {
			return nil, fmt.Errorf("%w: discount amount must not be negative", apperrors.ErrValidation)
		}
		invoice.DiscountAmount = accounting.RoundMoney(*req.DiscountAmount)
	}
	if req.Notes != nil {
		invoice.Notes = *req.Notes
	}

	lines := invoice.Lines
	if req.Lines != nil {
		lines, err = buildInvoiceLines(invoiceID, req.Lines)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
		}
		if err := s.validateLineAccounts(ctx, companyID, lines); err != nil {
			return nil, err
		}
	}

	totals := accounting.ComputeInvoiceTotals(lines, invoice.DiscountAmount, invoice.PaidAmount)
	invoice.Subtotal = totals.Subtotal
	invoice.TaxAmount = totals.TaxAmount
	invoice.TotalAmount = totals.TotalAmount
	invoice.BalanceDue = totals.BalanceDue

	now := time.Now().UTC()
	invoice.LastUpdatedAt = now
	invoice.LastUpdatedBy = requestingUserID

	if err := s.invoiceRepo.UpdateDraftInvoice(ctx, *invoice, lines); err != nil {
		logger.Error("Failed to update draft invoice", slog.String("invoice_id", invoiceID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to update draft invoice: %w", err)
	}

	logger.Info("Draft invoice updated", slog.String("invoice_id", invoiceID))
	invoice.Lines = lines
	return invoice, nil
}

// CancelInvoice marks an invoice as CANCELLED. Fully paid invoices cannot
// be cancelled; partially paid ones have their allocations released back to
// their payments in the same transaction.
func (s *invoiceService) CancelInvoice(ctx context.Context, companyID string, invoiceID string, requestingUserID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("failed to find invoice %s: %w", invoiceID, err)
	}
	if invoice.CompanyID != companyID {
		return apperrors.ErrNotFound
	}

	switch invoice.Status {
	case domain.InvoiceCancelled:
		return fmt.Errorf("%w: invoice is already cancelled", apperrors.ErrConflict)
	case domain.InvoicePaid:
		return fmt.Errorf("%w: %s", apperrors.ErrConflict, ErrInvoiceSettled)
	case domain.InvoicePartiallyPaid:
		return s.cancelPartiallyPaid(ctx, invoice, requestingUserID)
	}
	if invoice.PaidAmount.IsPositive() {
		return fmt.Errorf("%w: %s", apperrors.ErrConflict, ErrInvoiceSettled)
	}

	if err := s.invoiceRepo.UpdateInvoiceStatus(ctx, invoiceID, domain.InvoiceCancelled, requestingUserID); err != nil {
		logger.Error("Failed to cancel invoice", slog.String("invoice_id", invoiceID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to cancel invoice: %w", err)
	}

	logger.Info("Invoice cancelled", slog.String("invoice_id", invoiceID))
	return nil
}

// cancelPartiallyPaid releases every allocation made against the invoice,
// resets its settlement fields and marks it CANCELLED, all in one repository
// transaction. The released amounts become available for reallocation from
// their payments; correcting the ledger is a reversing entry on the journal
// entries linked to the invoice and its payments.
func (s *invoiceService) cancelPartiallyPaid(ctx context.Context, invoice *domain.Invoice, requestingUserID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	allocations, err := s.paymentRepo.FindAllocationsByInvoiceID(ctx, invoice.InvoiceID)
	if err != nil {
		logger.Error("Failed to fetch allocations for cancellation", slog.String("invoice_id", invoice.InvoiceID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to retrieve allocations for invoice %s: %w", invoice.InvoiceID, err)
	}
	allocationIDs := make([]string, len(allocations))
	for i, allocation := range allocations {
		allocationIDs[i] = allocation.AllocationID
	}

	now := time.Now().UTC()
	invoice.PaidAmount = decimal.Zero
	invoice.BalanceDue = invoice.TotalAmount
	invoice.Status = domain.InvoiceCancelled
	invoice.LastUpdatedAt = now
	invoice.LastUpdatedBy = requestingUserID

	if err := s.invoiceRepo.CancelInvoiceWithAllocations(ctx, *invoice, allocationIDs); err != nil {
		logger.Error("Failed to cancel partially paid invoice", slog.String("invoice_id", invoice.InvoiceID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to cancel invoice: %w", err)
	}

	logger.Info("Invoice cancelled, allocations released", slog.String("invoice_id", invoice.InvoiceID), slog.Int("released_allocations", len(allocationIDs)))
	return nil
}
