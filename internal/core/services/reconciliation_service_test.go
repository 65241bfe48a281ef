package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/entererp/finance_core_app/internal/apperrors"
	"github.com/entererp/finance_core_app/internal/core/domain"
	portsrepo "github.com/entererp/finance_core_app/internal/core/ports/repositories"
	portssvc "github.com/entererp/finance_core_app/internal/core/ports/services"
	"github.com/entererp/finance_core_app/internal/core/services"
	"github.com/entererp/finance_core_app/internal/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock ReconciliationRepository ---
type MockReconciliationRepository struct {
	mock.Mock
}

// Ensure MockReconciliationRepository implements portsrepo.ReconciliationRepository
var _ portsrepo.ReconciliationRepository = (*MockReconciliationRepository)(nil)

func (m *MockReconciliationRepository) IssueInvoiceInTx(ctx context.Context, invoice domain.Invoice, entry domain.JournalEntry, lines []domain.JournalLine, balanceChanges map[string]decimal.Decimal) error {
	args := m.Called(ctx, invoice, entry, lines, balanceChanges)
	return args.Error(0)
}

func (m *MockReconciliationRepository) RecordPaymentInTx(ctx context.Context, payment domain.Payment, allocations []domain.PaymentAllocation, invoices []domain.Invoice, entry domain.JournalEntry, lines []domain.JournalLine, balanceChanges map[string]decimal.Decimal) error {
	args := m.Called(ctx, payment, allocations, invoices, entry, lines, balanceChanges)
	return args.Error(0)
}

// --- Test Suite ---
type ReconciliationServiceTestSuite struct {
	suite.Suite
	mockReconRepo   *MockReconciliationRepository
	mockInvoiceRepo *MockInvoiceRepository
	mockAccountRepo *MockAccountReader
	service         portssvc.ReconciliationSvc
	ctx             context.Context

	companyID    string
	userID       string
	receivableID string
	revenueID    string
	taxID        string
	bankID       string
}

func (s *ReconciliationServiceTestSuite) SetupTest() {
	s.mockReconRepo = new(MockReconciliationRepository)
	s.mockInvoiceRepo = new(MockInvoiceRepository)
	s.mockAccountRepo = new(MockAccountReader)
	s.service = services.NewReconciliationService(s.mockReconRepo, s.mockInvoiceRepo, s.mockAccountRepo, &stubRateSource{rate: decimal.NewFromInt(1)})
	s.ctx = context.Background()

	s.companyID = uuid.NewString()
	s.userID = uuid.NewString()
	s.receivableID = uuid.NewString()
	s.revenueID = uuid.NewString()
	s.taxID = uuid.NewString()
	s.bankID = uuid.NewString()
}

func TestReconciliationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ReconciliationServiceTestSuite))
}

func (s *ReconciliationServiceTestSuite) ledgerAccounts() map[string]domain.Account {
	return map[string]domain.Account{
		s.receivableID: {AccountID: s.receivableID, CompanyID: s.companyID, AccountType: domain.Asset, CurrencyCode: "USD", IsActive: true},
		s.revenueID:    {AccountID: s.revenueID, CompanyID: s.companyID, AccountType: domain.Revenue, CurrencyCode: "USD", IsActive: true},
		s.taxID:        {AccountID: s.taxID, CompanyID: s.companyID, AccountType: domain.Liability, CurrencyCode: "USD", IsActive: true},
		s.bankID:       {AccountID: s.bankID, CompanyID: s.companyID, AccountType: domain.Asset, CurrencyCode: "USD", IsActive: true},
	}
}

// draftInvoice returns a stored DRAFT sales invoice whose single line totals
// 180.00 plus 9.00 tax.
func (s *ReconciliationServiceTestSuite) draftInvoice(invoiceID string) (*domain.Invoice, []domain.InvoiceLine) {
	invoice := &domain.Invoice{
		InvoiceID:           invoiceID,
		CompanyID:           s.companyID,
		InvoiceType:         domain.SalesInvoice,
		InvoiceNumber:       "INV-20260301-0001",
		InvoiceDate:         time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:             time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		DiscountAmount:      decimal.Zero,
		PaidAmount:          decimal.Zero,
		CurrencyCode:        "USD",
		ExchangeRate:        decimal.NewFromInt(1),
		Status:              domain.InvoiceDraft,
		ReceivableAccountID: s.receivableID,
		TaxAccountID:        s.taxID,
		Version:             1,
	}
	lines := []domain.InvoiceLine{
		{
			LineID:           uuid.NewString(),
			InvoiceID:        invoiceID,
			LineNumber:       1,
			Quantity:         decimal.NewFromInt(2),
			UnitPrice:        decimal.NewFromInt(100),
			DiscountPercent:  decimal.NewFromInt(10),
			TaxRate:          decimal.NewFromInt(5),
			LineTotal:        decimal.RequireFromString("180"),
			TaxAmount:        decimal.RequireFromString("9"),
			RevenueAccountID: s.revenueID,
		},
	}
	return invoice, lines
}

func (s *ReconciliationServiceTestSuite) TestIssueInvoice_PostsBalancedEntry() {
	invoiceID := uuid.NewString()
	invoice, lines := s.draftInvoice(invoiceID)

	s.mockInvoiceRepo.On("FindInvoiceByID", s.ctx, invoiceID).Return(invoice, nil).Once()
	s.mockInvoiceRepo.On("FindLinesByInvoiceID", s.ctx, invoiceID).Return(lines, nil).Once()
	s.mockAccountRepo.On("FindAccountsByIDs", s.ctx, mock.Anything).Return(s.ledgerAccounts(), nil).Once()

	total := decimal.RequireFromString("189")
	s.mockReconRepo.On("IssueInvoiceInTx", s.ctx,
		mock.MatchedBy(func(inv domain.Invoice) bool {
			return inv.Status == domain.InvoiceSent &&
				inv.TotalAmount.Equal(total) &&
				inv.BalanceDue.Equal(total)
		}),
		mock.MatchedBy(func(e domain.JournalEntry) bool {
			return e.Status == domain.Posted &&
				e.EntryType == domain.SalesJournal &&
				e.ReferenceModel == "Invoice" &&
				e.ReferenceID == invoiceID &&
				e.TotalDebit.Equal(total) &&
				e.TotalCredit.Equal(total)
		}),
		mock.MatchedBy(func(entryLines []domain.JournalLine) bool {
			// Debit the receivable for the gross total, credit revenue and tax.
			return len(entryLines) == 3 &&
				entryLines[0].AccountID == s.receivableID && entryLines[0].Debit.Equal(total) &&
				entryLines[1].AccountID == s.revenueID && entryLines[1].Credit.Equal(decimal.RequireFromString("180")) &&
				entryLines[2].AccountID == s.taxID && entryLines[2].Credit.Equal(decimal.RequireFromString("9"))
		}),
		mock.MatchedBy(func(changes map[string]decimal.Decimal) bool {
			return changes[s.receivableID].Equal(total) &&
				changes[s.revenueID].Equal(decimal.RequireFromString("180")) &&
				changes[s.taxID].Equal(decimal.RequireFromString("9"))
		}),
	).Return(nil).Once()

	issued, err := s.service.IssueInvoice(s.ctx, s.companyID, invoiceID, s.userID)

	s.Require().NoError(err)
	s.Equal(domain.InvoiceSent, issued.Status)
	s.True(issued.TotalAmount.Equal(total))
	s.mockReconRepo.AssertExpectations(s.T())
}

func (s *ReconciliationServiceTestSuite) TestIssueInvoice_NotDraft() {
	invoiceID := uuid.NewString()
	invoice, _ := s.draftInvoice(invoiceID)
	invoice.Status = domain.InvoiceSent

	s.mockInvoiceRepo.On("FindInvoiceByID", s.ctx, invoiceID).Return(invoice, nil).Once()

	_, err := s.service.IssueInvoice(s.ctx, s.companyID, invoiceID, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrConflict)
	s.mockReconRepo.AssertNotCalled(s.T(), "IssueInvoiceInTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ReconciliationServiceTestSuite) TestIssueInvoice_TaxWithoutTaxAccount() {
	invoiceID := uuid.NewString()
	invoice, lines := s.draftInvoice(invoiceID)
	invoice.TaxAccountID = ""

	s.mockInvoiceRepo.On("FindInvoiceByID", s.ctx, invoiceID).Return(invoice, nil).Once()
	s.mockInvoiceRepo.On("FindLinesByInvoiceID", s.ctx, invoiceID).Return(lines, nil).Once()

	_, err := s.service.IssueInvoice(s.ctx, s.companyID, invoiceID, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, services.ErrTaxAccountMissing)
}

func (s *ReconciliationServiceTestSuite) TestIssueInvoice_NoLines() {
	invoiceID := uuid.NewString()
	invoice, _ := s.draftInvoice(invoiceID)

	s.mockInvoiceRepo.On("FindInvoiceByID", s.ctx, invoiceID).Return(invoice, nil).Once()
	s.mockInvoiceRepo.On("FindLinesByInvoiceID", s.ctx, invoiceID).Return([]domain.InvoiceLine{}, nil).Once()

	_, err := s.service.IssueInvoice(s.ctx, s.companyID, invoiceID, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *ReconciliationServiceTestSuite) recordRequest(amount decimal.Decimal, allocations []dto.AllocationRequest) dto.RecordPaymentRequest {
	return dto.RecordPaymentRequest{
		Payment: dto.CreatePaymentRequest{
			PaymentDate:   time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			Method:        domain.MethodBankTransfer,
			Amount:        amount,
			CurrencyCode:  "USD",
			BankAccountID: s.bankID,
		},
		Allocations: allocations,
	}
}

func (s *ReconciliationServiceTestSuite) sentInvoice(invoiceID string, total decimal.Decimal) *domain.Invoice {
	return &domain.Invoice{
		InvoiceID:           invoiceID,
		CompanyID:           s.companyID,
		CurrencyCode:        "USD",
		TotalAmount:         total,
		PaidAmount:          decimal.Zero,
		BalanceDue:          total,
		Status:              domain.InvoiceSent,
		ReceivableAccountID: s.receivableID,
		Version:             1,
	}
}

func (s *ReconciliationServiceTestSuite) TestRecordPayment_FullyAllocated() {
	invoiceID := uuid.NewString()
	total := decimal.NewFromInt(189)
	bank := s.ledgerAccounts()[s.bankID]
	req := s.recordRequest(total, []dto.AllocationRequest{{InvoiceID: invoiceID, Amount: total}})

	s.mockAccountRepo.On("FindAccountByID", s.ctx, s.bankID).Return(&bank, nil).Once()
	s.mockInvoiceRepo.On("FindInvoiceByID", s.ctx, invoiceID).Return(s.sentInvoice(invoiceID, total), nil).Once()
	s.mockAccountRepo.On("FindAccountsByIDs", s.ctx, mock.Anything).Return(s.ledgerAccounts(), nil).Once()

	s.mockReconRepo.On("RecordPaymentInTx", s.ctx,
		mock.MatchedBy(func(p domain.Payment) bool {
			return p.Status == domain.PaymentCompleted && p.Amount.Equal(total)
		}),
		mock.MatchedBy(func(allocations []domain.PaymentAllocation) bool {
			return len(allocations) == 1 && allocations[0].AllocatedAmount.Equal(total)
		}),
		mock.MatchedBy(func(invoices []domain.Invoice) bool {
			return len(invoices) == 1 &&
				invoices[0].Status == domain.InvoicePaid &&
				invoices[0].BalanceDue.IsZero()
		}),
		mock.MatchedBy(func(e domain.JournalEntry) bool {
			return e.EntryType == domain.CashReceipt &&
				e.ReferenceModel == "Payment" &&
				e.TotalDebit.Equal(total) &&
				e.TotalCredit.Equal(total)
		}),
		mock.MatchedBy(func(entryLines []domain.JournalLine) bool {
			// Debit the bank, credit the receivable control account.
			return len(entryLines) == 2 &&
				entryLines[0].AccountID == s.bankID && entryLines[0].Debit.Equal(total) &&
				entryLines[1].AccountID == s.receivableID && entryLines[1].Credit.Equal(total)
		}),
		mock.MatchedBy(func(changes map[string]decimal.Decimal) bool {
			return changes[s.bankID].Equal(total) &&
				changes[s.receivableID].Equal(total.Neg())
		}),
	).Return(nil).Once()

	payment, err := s.service.RecordPayment(s.ctx, s.companyID, req, s.userID)

	s.Require().NoError(err)
	s.Equal(domain.PaymentCompleted, payment.Status)
	s.Len(payment.Allocations, 1)
	s.mockReconRepo.AssertExpectations(s.T())
}

func (s *ReconciliationServiceTestSuite) TestRecordPayment_UnderAllocated() {
	invoiceID := uuid.NewString()
	bank := s.ledgerAccounts()[s.bankID]
	req := s.recordRequest(decimal.NewFromInt(200), []dto.AllocationRequest{{InvoiceID: invoiceID, Amount: decimal.NewFromInt(150)}})

	s.mockAccountRepo.On("FindAccountByID", s.ctx, s.bankID).Return(&bank, nil).Once()
	s.mockInvoiceRepo.On("FindInvoiceByID", s.ctx, invoiceID).Return(s.sentInvoice(invoiceID, decimal.NewFromInt(189)), nil).Once()

	_, err := s.service.RecordPayment(s.ctx, s.companyID, req, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, services.ErrUnderAllocatedRecord)
	s.mockReconRepo.AssertNotCalled(s.T(), "RecordPaymentInTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ReconciliationServiceTestSuite) TestRecordPayment_ExceedsBalanceDue() {
	invoiceID := uuid.NewString()
	bank := s.ledgerAccounts()[s.bankID]
	req := s.recordRequest(decimal.NewFromInt(250), []dto.AllocationRequest{{InvoiceID: invoiceID, Amount: decimal.NewFromInt(250)}})

	s.mockAccountRepo.On("FindAccountByID", s.ctx, s.bankID).Return(&bank, nil).Once()
	s.mockInvoiceRepo.On("FindInvoiceByID", s.ctx, invoiceID).Return(s.sentInvoice(invoiceID, decimal.NewFromInt(189)), nil).Once()

	_, err := s.service.RecordPayment(s.ctx, s.companyID, req, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, services.ErrExceedsBalanceDue)
}

func (s *ReconciliationServiceTestSuite) TestRecordPayment_InactiveReceivableRejected() {
	invoiceID := uuid.NewString()
	total := decimal.NewFromInt(189)
	bank := s.ledgerAccounts()[s.bankID]
	req := s.recordRequest(total, []dto.AllocationRequest{{InvoiceID: invoiceID, Amount: total}})

	accounts := s.ledgerAccounts()
	receivable := accounts[s.receivableID]
	receivable.IsActive = false
	accounts[s.receivableID] = receivable

	s.mockAccountRepo.On("FindAccountByID", s.ctx, s.bankID).Return(&bank, nil).Once()
	s.mockInvoiceRepo.On("FindInvoiceByID", s.ctx, invoiceID).Return(s.sentInvoice(invoiceID, total), nil).Once()
	s.mockAccountRepo.On("FindAccountsByIDs", s.ctx, mock.Anything).Return(accounts, nil).Once()

	_, err := s.service.RecordPayment(s.ctx, s.companyID, req, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.mockReconRepo.AssertNotCalled(s.T(), "RecordPaymentInTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ReconciliationServiceTestSuite) TestRecordPayment_DraftInvoiceRejected() {
	invoiceID := uuid.NewString()
	bank := s.ledgerAccounts()[s.bankID]
	req := s.recordRequest(decimal.NewFromInt(189), []dto.AllocationRequest{{InvoiceID: invoiceID, Amount: decimal.NewFromInt(189)}})

	draft := s.sentInvoice(invoiceID, decimal.NewFromInt(189))
	draft.Status = domain.InvoiceDraft

	s.mockAccountRepo.On("FindAccountByID", s.ctx, s.bankID).Return(&bank, nil).Once()
	s.mockInvoiceRepo.On("FindInvoiceByID", s.ctx, invoiceID).Return(draft, nil).Once()

	_, err := s.service.RecordPayment(s.ctx, s.companyID, req, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrConflict)
}
