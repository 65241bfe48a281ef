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

// --- Mock InvoiceRepository ---
type MockInvoiceRepository struct {
	mock.Mock
}

// Ensure MockInvoiceRepository implements portsrepo.InvoiceRepositoryFacade
var _ portsrepo.InvoiceRepositoryFacade = (*MockInvoiceRepository)(nil)

func (m *MockInvoiceRepository) FindInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindLinesByInvoiceID(ctx context.Context, invoiceID string) ([]domain.InvoiceLine, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.InvoiceLine), args.Error(1)
}

func (m *MockInvoiceRepository) FindInvoicesByIDs(ctx context.Context, invoiceIDs []string) (map[string]domain.Invoice, error) {
	args := m.Called(ctx, invoiceIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) ListInvoicesByCompany(ctx context.Context, companyID string, limit int, nextToken *string) ([]domain.Invoice, *string, error) {
	args := m.Called(ctx, companyID, limit, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var returnedNextToken *string
	if args.Get(1) != nil {
		tokenVal := args.Get(1).(string)
		returnedNextToken = &tokenVal
	}
	return args.Get(0).([]domain.Invoice), returnedNextToken, args.Error(2)
}

func (m *MockInvoiceRepository) ListOpenInvoicesByCompany(ctx context.Context, companyID string) ([]domain.Invoice, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) SaveInvoice(ctx context.Context, invoice domain.Invoice, lines []domain.InvoiceLine) error {
	args := m.Called(ctx, invoice, lines)
	return args.Error(0)
}

func (m *MockInvoiceRepository) UpdateDraftInvoice(ctx context.Context, invoice domain.Invoice, lines []domain.InvoiceLine) error {
	args := m.Called(ctx, invoice, lines)
	return args.Error(0)
}

func (m *MockInvoiceRepository) UpdateInvoiceSettlement(ctx context.Context, invoice domain.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) UpdateInvoiceStatus(ctx context.Context, invoiceID string, status domain.InvoiceStatus, userID string) error {
	args := m.Called(ctx, invoiceID, status, userID)
	return args.Error(0)
}

func (m *MockInvoiceRepository) CancelInvoiceWithAllocations(ctx context.Context, invoice domain.Invoice, allocationIDs []string) error {
	args := m.Called(ctx, invoice, allocationIDs)
	return args.Error(0)
}

// --- Test Suite ---
type InvoiceServiceTestSuite struct {
	suite.Suite
	mockInvoiceRepo *MockInvoiceRepository
	mockAccountRepo *MockAccountReader
	mockPaymentRepo *MockPaymentRepository
	service         portssvc.InvoiceSvcFacade
	ctx             context.Context

	companyID    string
	userID       string
	receivableID string
	revenueID    string
}

func (s *InvoiceServiceTestSuite) SetupTest() {
	s.mockInvoiceRepo = new(MockInvoiceRepository)
	s.mockAccountRepo = new(MockAccountReader)
	s.mockPaymentRepo = new(MockPaymentRepository)
	s.service = services.NewInvoiceService(s.mockInvoiceRepo, s.mockAccountRepo, s.mockPaymentRepo, &stubRateSource{rate: decimal.NewFromInt(1)})
	s.ctx = context.Background()

	s.companyID = uuid.NewString()
	s.userID = uuid.NewString()
	s.receivableID = uuid.NewString()
	s.revenueID = uuid.NewString()
}

func TestInvoiceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(InvoiceServiceTestSuite))
}

func (s *InvoiceServiceTestSuite) revenueAccounts() map[string]domain.Account {
	return map[string]domain.Account{
		s.revenueID: {
			AccountID:    s.revenueID,
			CompanyID:    s.companyID,
			AccountType:  domain.Revenue,
			CurrencyCode: "USD",
			IsActive:     true,
		},
	}
}

func (s *InvoiceServiceTestSuite) receivableAccount() *domain.Account {
	return &domain.Account{
		AccountID:    s.receivableID,
		CompanyID:    s.companyID,
		AccountType:  domain.Asset,
		CurrencyCode: "USD",
		IsActive:     true,
	}
}

func (s *InvoiceServiceTestSuite) createRequest() dto.CreateInvoiceRequest {
	issueDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return dto.CreateInvoiceRequest{
		InvoiceType:         domain.SalesInvoice,
		InvoiceDate:         issueDate,
		DueDate:             issueDate.AddDate(0, 1, 0),
		CurrencyCode:        "USD",
		ReceivableAccountID: s.receivableID,
		Lines: []dto.CreateInvoiceLineRequest{
			{
				Description:      "Consulting",
				Quantity:         decimal.NewFromInt(2),
				UnitPrice:        decimal.NewFromInt(100),
				DiscountPercent:  decimal.NewFromInt(10),
				TaxRate:          decimal.NewFromInt(5),
				RevenueAccountID: s.revenueID,
			},
		},
	}
}

func (s *InvoiceServiceTestSuite) TestCreateDraftInvoice_ComputesTotals() {
	req := s.createRequest()

	s.mockAccountRepo.On("FindAccountsByIDs", s.ctx, mock.Anything).Return(s.revenueAccounts(), nil).Once()
	s.mockAccountRepo.On("FindAccountByID", s.ctx, s.receivableID).Return(s.receivableAccount(), nil).Once()
	s.mockInvoiceRepo.On("SaveInvoice", s.ctx, mock.Anything, mock.Anything).Return(nil).Once()

	invoice, err := s.service.CreateDraftInvoice(s.ctx, s.companyID, req, s.userID)

	s.Require().NoError(err)
	// 2 * 100 with 10% discount is 180.00; 5% tax on that is 9.00.
	s.True(invoice.Subtotal.Equal(decimal.RequireFromString("180")), "subtotal was %s", invoice.Subtotal)
	s.True(invoice.TaxAmount.Equal(decimal.RequireFromString("9")), "tax was %s", invoice.TaxAmount)
	s.True(invoice.TotalAmount.Equal(decimal.RequireFromString("189")), "total was %s", invoice.TotalAmount)
	s.True(invoice.BalanceDue.Equal(decimal.RequireFromString("189")))
	s.True(invoice.PaidAmount.IsZero())
	s.Equal(domain.InvoiceDraft, invoice.Status)
	s.Equal(int64(1), invoice.Version)
	s.Require().Len(invoice.Lines, 1)
	s.True(invoice.Lines[0].LineTotal.Equal(decimal.RequireFromString("180")))
	s.True(invoice.Lines[0].TaxAmount.Equal(decimal.RequireFromString("9")))
	s.mockInvoiceRepo.AssertExpectations(s.T())
}

func (s *InvoiceServiceTestSuite) TestCreateDraftInvoice_DueBeforeInvoiceDate() {
	req := s.createRequest()
	req.DueDate = req.InvoiceDate.AddDate(0, 0, -1)

	_, err := s.service.CreateDraftInvoice(s.ctx, s.companyID, req, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.mockInvoiceRepo.AssertNotCalled(s.T(), "SaveInvoice", mock.Anything, mock.Anything, mock.Anything)
}

func (s *InvoiceServiceTestSuite) TestCreateDraftInvoice_NonPositiveQuantity() {
	req := s.createRequest()
	req.Lines[0].Quantity = decimal.Zero

	_, err := s.service.CreateDraftInvoice(s.ctx, s.companyID, req, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *InvoiceServiceTestSuite) TestCreateDraftInvoice_PercentOutOfRange() {
	req := s.createRequest()
	req.Lines[0].TaxRate = decimal.NewFromInt(101)

	_, err := s.service.CreateDraftInvoice(s.ctx, s.companyID, req, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *InvoiceServiceTestSuite) TestUpdateDraftInvoice_RecomputesTotals() {
	invoiceID := uuid.NewString()
	stored := &domain.Invoice{
		InvoiceID:      invoiceID,
		CompanyID:      s.companyID,
		InvoiceDate:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:        time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Status:         domain.InvoiceDraft,
		DiscountAmount: decimal.Zero,
		PaidAmount:     decimal.Zero,
		Version:        1,
	}
	storedLines := []domain.InvoiceLine{
		{LineID: uuid.NewString(), InvoiceID: invoiceID, LineNumber: 1, LineTotal: decimal.NewFromInt(50), TaxAmount: decimal.Zero, RevenueAccountID: s.revenueID},
	}

	s.mockInvoiceRepo.On("FindInvoiceByID", s.ctx, invoiceID).Return(stored, nil).Once()
	s.mockInvoiceRepo.On("FindLinesByInvoiceID", s.ctx, invoiceID).Return(storedLines, nil).Once()
	s.mockAccountRepo.On("FindAccountsByIDs", s.ctx, mock.Anything).Return(s.revenueAccounts(), nil).Once()
	s.mockInvoiceRepo.On("UpdateDraftInvoice", s.ctx, mock.MatchedBy(func(inv domain.Invoice) bool {
		return inv.Subtotal.Equal(decimal.RequireFromString("180")) &&
			inv.TotalAmount.Equal(decimal.RequireFromString("189")) &&
			inv.BalanceDue.Equal(decimal.RequireFromString("189"))
	}), mock.Anything).Return(nil).Once()

	req := dto.UpdateDraftInvoiceRequest{
		Lines: []dto.CreateInvoiceLineRequest{
			{
				Description:      "Consulting",
				Quantity:         decimal.NewFromInt(2),
				UnitPrice:        decimal.NewFromInt(100),
				DiscountPercent:  decimal.NewFromInt(10),
				TaxRate:          decimal.NewFromInt(5),
				RevenueAccountID: s.revenueID,
			},
		},
	}
	updated, err := s.service.UpdateDraftInvoice(s.ctx, s.companyID, invoiceID, req, s.userID)

	s.Require().NoError(err)
	s.True(updated.TotalAmount.Equal(decimal.RequireFromString("189")))
	s.mockInvoiceRepo.AssertExpectations(s.T())
}

func (s *InvoiceServiceTestSuite) TestUpdateDraftInvoice_NotDraft() {
	invoiceID := uuid.NewString()
	stored := &domain.Invoice{InvoiceID: invoiceID, CompanyID: s.companyID, Status: domain.InvoiceSent}

	s.mockInvoiceRepo.On("FindInvoiceByID", s.ctx, invoiceID).Return(stored, nil).Once()
	s.mockInvoiceRepo.On("FindLinesByInvoiceID", s.ctx, invoiceID).Return([]domain.InvoiceLine{}, nil).Once()

	_, err := s.service.UpdateDraftInvoice(s.ctx, s.companyID, invoiceID, dto.UpdateDraftInvoiceRequest{}, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrConflict)
}

func (s *InvoiceServiceTestSuite) TestGetInvoiceByID_OtherCompanyHidden() {
	invoiceID := uuid.NewString()
	stored := &domain.Invoice{InvoiceID: invoiceID, CompanyID: uuid.NewString(), Status: domain.InvoiceSent}

	s.mockInvoiceRepo.On("FindInvoiceByID", s.ctx, invoiceID).Return(stored, nil).Once()

	_, err := s.service.GetInvoiceByID(s.ctx, s.companyID, invoiceID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *InvoiceServiceTestSuite) TestCancelInvoice_Draft() {
	invoiceID := uuid.NewString()
	stored := &domain.Invoice{InvoiceID: invoiceID, CompanyID: s.companyID, Status: domain.InvoiceDraft, PaidAmount: decimal.Zero}

	s.mockInvoiceRepo.On("FindInvoiceByID", s.ctx, invoiceID).Return(stored, nil).Once()
	s.mockInvoiceRepo.On("UpdateInvoiceStatus", s.ctx, invoiceID, domain.InvoiceCancelled, s.userID).Return(nil).Once()

	err := s.service.CancelInvoice(s.ctx, s.companyID, invoiceID, s.userID)

	s.Require().NoError(err)
	s.mockInvoiceRepo.AssertExpectations(s.T())
}

func (s *InvoiceServiceTestSuite) TestCancelInvoice_PaidRejected() {
	invoiceID := uuid.NewString()
	stored := &domain.Invoice{InvoiceID: invoiceID, CompanyID: s.companyID, Status: domain.InvoicePaid, PaidAmount: decimal.NewFromInt(189)}

	s.mockInvoiceRepo.On("FindInvoiceByID", s.ctx, invoiceID).Return(stored, nil).Once()

	err := s.service.CancelInvoice(s.ctx, s.companyID, invoiceID, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrConflict)
	s.mockInvoiceRepo.AssertNotCalled(s.T(), "UpdateInvoiceStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	s.mockInvoiceRepo.AssertNotCalled(s.T(), "CancelInvoiceWithAllocations", mock.Anything, mock.Anything, mock.Anything)
}

func (s *InvoiceServiceTestSuite) TestCancelInvoice_PartiallyPaidReleasesAllocations() {
	invoiceID := uuid.NewString()
	allocationID := uuid.NewString()
	stored := &domain.Invoice{
		InvoiceID:   invoiceID,
		CompanyID:   s.companyID,
		Status:      domain.InvoicePartiallyPaid,
		TotalAmount: decimal.NewFromInt(189),
		PaidAmount:  decimal.NewFromInt(100),
		BalanceDue:  decimal.NewFromInt(89),
		Version:     2,
	}
	allocations := []domain.PaymentAllocation{
		{AllocationID: allocationID, PaymentID: uuid.NewString(), InvoiceID: invoiceID, AllocatedAmount: decimal.NewFromInt(100)},
	}

	s.mockInvoiceRepo.On("FindInvoiceByID", s.ctx, invoiceID).Return(stored, nil).Once()
	s.mockPaymentRepo.On("FindAllocationsByInvoiceID", s.ctx, invoiceID).Return(allocations, nil).Once()
	s.mockInvoiceRepo.On("CancelInvoiceWithAllocations", s.ctx, mock.MatchedBy(func(inv domain.Invoice) bool {
		return inv.Status == domain.InvoiceCancelled &&
			inv.PaidAmount.IsZero() &&
			inv.BalanceDue.Equal(decimal.NewFromInt(189)) &&
			inv.Version == int64(2)
	}), []string{allocationID}).Return(nil).Once()

	err := s.service.CancelInvoice(s.ctx, s.companyID, invoiceID, s.userID)

	s.Require().NoError(err)
	s.mockInvoiceRepo.AssertExpectations(s.T())
	s.mockPaymentRepo.AssertExpectations(s.T())
	s.mockInvoiceRepo.AssertNotCalled(s.T(), "UpdateInvoiceStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *InvoiceServiceTestSuite) TestGetInvoiceStatus_DerivesOverdue() {
	invoiceID := uuid.NewString()
	stored := &domain.Invoice{
		InvoiceID:  invoiceID,
		CompanyID:  s.companyID,
		Status:     domain.InvoiceSent,
		DueDate:    time.Now().UTC().AddDate(0, 0, -10),
		PaidAmount: decimal.Zero,
		BalanceDue: decimal.NewFromInt(189),
	}

	s.mockInvoiceRepo.On("FindInvoiceByID", s.ctx, invoiceID).Return(stored, nil).Once()

	status, err := s.service.GetInvoiceStatus(s.ctx, s.companyID, invoiceID)

	s.Require().NoError(err)
	s.True(status.Overdue)
	s.Equal(domain.InvoiceSent, status.Status)
}
