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
	ErrInvoiceNotIssuable   = errors.New("only draft invoices can be issued")
	ErrTaxAccountMissing    = errors.New("invoices with tax require a tax account")
	ErrUnderAllocatedRecord = errors.New("recorded allocations must equal the payment amount")
)

// reconciliationService ties invoices and payments to the ledger. Every
// operation hands the repository a fully assembled unit of work that commits
// or fails as a whole.
type reconciliationService struct {
	reconRepo   portsrepo.ReconciliationRepository
	invoiceRepo portsrepo.InvoiceReader
	accountRepo portsrepo.AccountReader
	rates       portssvc.RateSource
}

// NewReconciliationService creates a new ReconciliationService.
func NewReconciliationService(reconRepo portsrepo.ReconciliationRepository, invoiceRepo portsrepo.InvoiceReader, accountRepo portsrepo.AccountReader, rates portssvc.RateSource) portssvc.ReconciliationSvc {
	return &reconciliationService{
		reconRepo:   reconRepo,
		invoiceRepo: invoiceRepo,
		accountRepo: accountRepo,
		rates:       rates,
	}
}

// Ensure reconciliationService implements the portssvc.ReconciliationSvc interface
var _ portssvc.ReconciliationSvc = (*reconciliationService)(nil)

// controlDebits reports whether the document type debits its control account.
// Sales invoices and debit notes debit the receivable; purchase invoices and
// credit notes mirror the posting.
func controlDebits(t domain.InvoiceType) bool {
	return t == domain.SalesInvoice || t == domain.DebitNote
}

// makeEntryLine builds one journal line on the given side.
func makeEntryLine(entryID string, lineNumber int, accountID string, amount decimal.Decimal, debit bool, description string, userID string, now time.Time) domain.JournalLine {
	line := domain.JournalLine{
		LineID:      uuid.NewString(),
		EntryID:     entryID,
		LineNumber:  lineNumber,
		AccountID:   accountID,
		Description: description,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}
	if debit {
		line.Debit = amount
	} else {
		line.Credit = amount
	}
	return line
}

// spreadDiscount distributes an invoice-level discount across the per-account
// revenue amounts proportionally, assigning the rounding remainder to the
// last account so the net credits still sum exactly.
func spreadDiscount(amounts map[string]decimal.Decimal, order []string, subtotal, discount decimal.Decimal) {
	if discount.IsZero() || subtotal.IsZero() {
		return
	}
	remaining := discount
	for i, accountID := range order {
		var share decimal.Decimal
		if i == len(order)-1 {
			share = remaining
		} else {
			share = accounting.RoundMoney(amounts[accountID].Mul(discount).Div(subtotal))
			remaining = remaining.Sub(share)
		}
		amounts[accountID] = amounts[accountID].Sub(share)
	}
}

// IssueInvoice transitions a DRAFT invoice to SENT and posts the matching
// journal entry in one transaction.
func (s *reconciliationService) IssueInvoice(ctx context.Context, companyID string, invoiceID string, requestingUserID string) (*domain.Invoice, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to find invoice %s: %w", invoiceID, err)
	}
	if invoice.CompanyID != companyID {
		return nil, apperrors.ErrNotFound
	}
	if invoice.Status != domain.InvoiceDraft {
		return nil, fmt.Errorf("%w: %s (status %s)", apperrors.ErrConflict, ErrInvoiceNotIssuable, invoice.Status)
	}

	invLines, err := s.invoiceRepo.FindLinesByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve lines for invoice %s: %w", invoiceID, err)
	}
	if len(invLines) == 0 {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrInvoiceHasLines)
	}

	// Recompute totals from the stored lines so the posted amounts can never
	// drift from the document.
	totals := accounting.ComputeInvoiceTotals(invLines, invoice.DiscountAmount, decimal.Zero)
	invoice.Subtotal = totals.Subtotal
	invoice.TaxAmount = totals.TaxAmount
	invoice.TotalAmount = totals.TotalAmount
	invoice.BalanceDue = totals.BalanceDue

	if invoice.TaxAmount.IsPositive() && invoice.TaxAccountID == "" {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrValidation, ErrTaxAccountMissing)
	}

	// Aggregate line totals per revenue/expense account, preserving first-use
	// order for deterministic entries.
	perAccount := make(map[string]decimal.Decimal)
	order := make([]string, 0, len(invLines))
	for _, line := range invLines {
		if _, ok := perAccount[line.RevenueAccountID]; !ok {
			order = append(order, line.RevenueAccountID)
		}
		perAccount[line.RevenueAccountID] = perAccount[line.RevenueAccountID].Add(line.LineTotal)
	}
	spreadDiscount(perAccount, order, invoice.Subtotal, invoice.DiscountAmount)

	accountIDs := append([]string{invoice.ReceivableAccountID}, order...)
	if invoice.TaxAccountID != "" {
		accountIDs = append(accountIDs, invoice.TaxAccountID)
	}
	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ledger accounts: %w", err)
	}
	for _, id := range accountIDs {
		acc, found := accounts[id]
		if !found || acc.CompanyID != companyID {
			return nil, fmt.Errorf("%w: ID %s", ErrUnknownAccount, id)
		}
		if !acc.IsActive {
			return nil, fmt.Errorf("%w: account %s is inactive", apperrors.ErrValidation, id)
		}
		if acc.CurrencyCode != invoice.CurrencyCode {
			return nil, fmt.Errorf("%w: account %s holds %s", ErrCurrencyMismatch, id, acc.CurrencyCode)
		}
	}

	now := time.Now().UTC()
	entryID := uuid.NewString()
	debitControl := controlDebits(invoice.InvoiceType)

	entryLines := make([]domain.JournalLine, 0, len(order)+2)
	entryLines = append(entryLines, makeEntryLine(entryID, 1, invoice.ReceivableAccountID, invoice.TotalAmount, debitControl, invoice.InvoiceNumber, requestingUserID, now))
	for _, accountID := range order {
		amount := perAccount[accountID]
		if amount.IsZero() {
			continue
		}
		entryLines = append(entryLines, makeEntryLine(entryID, len(entryLines)+1, accountID, amount, !debitControl, invoice.InvoiceNumber, requestingUserID, now))
	}
	if invoice.TaxAmount.IsPositive() {
		entryLines = append(entryLines, makeEntryLine(entryID, len(entryLines)+1, invoice.TaxAccountID, invoice.TaxAmount, !debitControl, invoice.InvoiceNumber, requestingUserID, now))
	}

	totalDebit, totalCredit, err := accounting.ValidateEntryBalance(entryLines)
	if err != nil {
		logger.Error("Issue entry failed balance validation", slog.String("invoice_id", invoiceID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: issue entry does not balance: %s", apperrors.ErrInternal, err.Error())
	}

	entryType := domain.SalesJournal
	if !debitControl {
		entryType = domain.PurchaseJournal
	}
	entry := domain.JournalEntry{
		EntryID:        entryID,
		CompanyID:      companyID,
		EntryNumber:    numbering.Next(numbering.JournalPrefix, now),
		EntryDate:      invoice.InvoiceDate,
		EntryType:      entryType,
		Description:    fmt.Sprintf("Invoice %s issued", invoice.InvoiceNumber),
		CurrencyCode:   invoice.CurrencyCode,
		Status:         domain.Posted,
		ReferenceModel: "Invoice",
		ReferenceID:    invoice.InvoiceID,
		TotalDebit:     totalDebit,
		TotalCredit:    totalCredit,
		PostedBy:       requestingUserID,
		PostedAt:       &now,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     requestingUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: requestingUserID,
		},
	}

	balanceChanges, err := computeBalanceChanges(entryLines, accounts)
	if err != nil {
		return nil, err
	}

	invoice.Status = domain.InvoiceSent
	invoice.LastUpdatedAt = now
	invoice.LastUpdatedBy = requestingUserID

	if err := s.reconRepo.IssueInvoiceInTx(ctx, *invoice, entry, entryLines, balanceChanges); err != nil {
		logger.Error("Failed to issue invoice", slog.String("invoice_id", invoiceID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to issue invoice: %w", err)
	}

	logger.Info("Invoice issued", slog.String("invoice_id", invoiceID), slog.String("entry_id", entryID), slog.String("company_id", companyID))
	invoice.Lines = invLines
	return invoice, nil
}

// RecordPayment creates the payment, allocates it fully across the given
// invoices, posts the cash entry and marks the payment COMPLETED in one
// transaction.
func (s *reconciliationService) RecordPayment(ctx context.Context, companyID string, req dto.RecordPaymentRequest, requestingUserID string) (*domain.Payment, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	payment, err := assemblePayment(ctx, s.accountRepo, s.rates, companyID, req.Payment, requestingUserID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	allocations := make([]domain.PaymentAllocation, 0, len(req.Allocations))
	invoices := make([]domain.Invoice, 0, len(req.Allocations))
	receivableCredits := make(map[string]decimal.Decimal)
	receivableOrder := make([]string, 0, len(req.Allocations))
	allocatedTotal := decimal.Zero

	for _, ar := range req.Allocations {
		amount := accounting.RoundMoney(ar.Amount)
		if !amount.IsPositive() {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrAmountNotPositive)
		}

		invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, ar.InvoiceID)
		if err != nil {
			return nil, fmt.Errorf("failed to find invoice %s: %w", ar.InvoiceID, err)
		}
		if invoice.CompanyID != companyID {
			return nil, apperrors.ErrNotFound
		}
		if invoice.Status != domain.InvoiceSent && invoice.Status != domain.InvoicePartiallyPaid {
			return nil, fmt.Errorf("%w: %s (status %s)", apperrors.ErrConflict, ErrInvoiceNotAllocable, invoice.Status)
		}
		if invoice.CurrencyCode != payment.CurrencyCode {
			return nil, fmt.Errorf("%w: payment %s, invoice %s", ErrAllocationCurrency, payment.CurrencyCode, invoice.CurrencyCode)
		}
		if amount.GreaterThan(invoice.BalanceDue) {
			return nil, fmt.Errorf("%w: balance due %s, requested %s", ErrExceedsBalanceDue, invoice.BalanceDue, amount)
		}

		allocations = append(allocations, domain.PaymentAllocation{
			AllocationID:    uuid.NewString(),
			PaymentID:       payment.PaymentID,
			InvoiceID:       invoice.InvoiceID,
			AllocatedAmount: amount,
			AllocatedAt:     now,
			AllocatedBy:     requestingUserID,
		})

		settleAllocation(invoice, amount)
		invoice.LastUpdatedAt = now
		invoice.LastUpdatedBy = requestingUserID
		invoices = append(invoices, *invoice)

		if _, ok := receivableCredits[invoice.ReceivableAccountID]; !ok {
			receivableOrder = append(receivableOrder, invoice.ReceivableAccountID)
		}
		receivableCredits[invoice.ReceivableAccountID] = receivableCredits[invoice.ReceivableAccountID].Add(amount)
		allocatedTotal = allocatedTotal.Add(amount)
	}

	if allocatedTotal.GreaterThan(payment.Amount) {
		return nil, fmt.Errorf("%w: %s allocated of %s", ErrOverAllocation, allocatedTotal, payment.Amount)
	}
	if !allocatedTotal.Equal(payment.Amount) {
		return nil, fmt.Errorf("%w: %w (allocated %s of %s)", apperrors.ErrValidation, ErrUnderAllocatedRecord, allocatedTotal, payment.Amount)
	}

	accountIDs := append([]string{payment.BankAccountID}, receivableOrder...)
	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ledger accounts: %w", err)
	}
	for _, id := range accountIDs {
		acc, found := accounts[id]
		if !found || acc.CompanyID != companyID {
			return nil, fmt.Errorf("%w: ID %s", ErrUnknownAccount, id)
		}
		if !acc.IsActive {
			return nil, fmt.Errorf("%w: account %s is inactive", apperrors.ErrValidation, id)
		}
		if acc.CurrencyCode != payment.CurrencyCode {
			return nil, fmt.Errorf("%w: account %s holds %s", ErrCurrencyMismatch, id, acc.CurrencyCode)
		}
	}

	entryID := uuid.NewString()
	entryLines := make([]domain.JournalLine, 0, len(receivableOrder)+1)
	entryLines = append(entryLines, makeEntryLine(entryID, 1, payment.BankAccountID, payment.Amount, true, payment.PaymentNumber, requestingUserID, now))
	for _, accountID := range receivableOrder {
		entryLines = append(entryLines, makeEntryLine(entryID, len(entryLines)+1, accountID, receivableCredits[accountID], false, payment.PaymentNumber, requestingUserID, now))
	}

	totalDebit, totalCredit, err := accounting.ValidateEntryBalance(entryLines)
	if err != nil {
		logger.Error("Cash entry failed balance validation", slog.String("payment_id", payment.PaymentID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: cash entry does not balance: %s", apperrors.ErrInternal, err.Error())
	}

	entry := domain.JournalEntry{
		EntryID:        entryID,
		CompanyID:      companyID,
		EntryNumber:    numbering.Next(numbering.JournalPrefix, now),
		EntryDate:      payment.PaymentDate,
		EntryType:      domain.CashReceipt,
		Description:    fmt.Sprintf("Payment %s received", payment.PaymentNumber),
		CurrencyCode:   payment.CurrencyCode,
		Status:         domain.Posted,
		ReferenceModel: "Payment",
		ReferenceID:    payment.PaymentID,
		TotalDebit:     totalDebit,
		TotalCredit:    totalCredit,
		PostedBy:       requestingUserID,
		PostedAt:       &now,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     requestingUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: requestingUserID,
		},
	}

	balanceChanges, err := computeBalanceChanges(entryLines, accounts)
	if err != nil {
		return nil, err
	}

	payment.Status = domain.PaymentCompleted
	payment.LastUpdatedAt = now
	payment.LastUpdatedBy = requestingUserID

	if err := s.reconRepo.RecordPaymentInTx(ctx, *payment, allocations, invoices, entry, entryLines, balanceChanges); err != nil {
		logger.Error("Failed to record payment", slog.String("payment_id", payment.PaymentID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	logger.Info("Payment recorded", slog.String("payment_id", payment.PaymentID), slog.String("entry_id", entryID), slog.String("company_id", companyID))
	payment.Allocations = allocations
	return payment, nil
}
