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
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock AccountRepository (full facade, including tx-scoped methods) ---
type MockAccountRepository struct {
	MockAccountReader
}

// Ensure MockAccountRepository implements portsrepo.AccountRepositoryFacade
var _ portsrepo.AccountRepositoryFacade = (*MockAccountRepository)(nil)

func (m *MockAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) DeactivateAccount(ctx context.Context, accountID string, userID string, now time.Time) error {
	args := m.Called(ctx, accountID, userID, now)
	return args.Error(0)
}

func (m *MockAccountRepository) FindAccountsByIDsForUpdate(ctx context.Context, tx pgx.Tx, accountIDs []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, tx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ApplyBalanceDeltasInTx(ctx context.Context, tx pgx.Tx, balanceChanges map[string]decimal.Decimal, userID string, now time.Time) error {
	args := m.Called(ctx, tx, balanceChanges, userID, now)
	return args.Error(0)
}

// --- Mock CurrencyRepository ---
type MockCurrencyRepository struct {
	mock.Mock
}

var _ portsrepo.CurrencyRepository = (*MockCurrencyRepository)(nil)

func (m *MockCurrencyRepository) SaveCurrency(ctx context.Context, currency domain.Currency) error {
	args := m.Called(ctx, currency)
	return args.Error(0)
}

func (m *MockCurrencyRepository) FindCurrencyByCode(ctx context.Context, code string) (*domain.Currency, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Currency), args.Error(1)
}

func (m *MockCurrencyRepository) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Currency), args.Error(1)
}

func (m *MockCurrencyRepository) UpdateCurrency(ctx context.Context, currency domain.Currency) error {
	args := m.Called(ctx, currency)
	return args.Error(0)
}

// --- Test Suite ---
type AccountServiceTestSuite struct {
	suite.Suite
	mockAccountRepo  *MockAccountRepository
	mockJournalRepo  *MockJournalRepository
	mockCurrencyRepo *MockCurrencyRepository
	service          portssvc.AccountSvcFacade
	ctx              context.Context

	companyID string
	userID    string
}

func (s *AccountServiceTestSuite) SetupTest() {
	s.mockAccountRepo = new(MockAccountRepository)
	s.mockJournalRepo = new(MockJournalRepository)
	s.mockCurrencyRepo = new(MockCurrencyRepository)
	s.service = services.NewAccountService(s.mockAccountRepo, s.mockJournalRepo, s.mockCurrencyRepo)
	s.ctx = context.Background()

	s.companyID = uuid.NewString()
	s.userID = uuid.NewString()
}

func TestAccountServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AccountServiceTestSuite))
}

func (s *AccountServiceTestSuite) usd() *domain.Currency {
	return &domain.Currency{CurrencyCode: "USD", Name: "US Dollar", Symbol: "$", ExchangeRate: decimal.NewFromInt(1), IsActive: true}
}

func (s *AccountServiceTestSuite) TestCreateAccount_Success() {
	req := dto.CreateAccountRequest{
		AccountCode:    "1000",
		Name:           "Cash",
		AccountType:    domain.Asset,
		CurrencyCode:   "USD",
		OpeningBalance: decimal.NewFromInt(500),
	}

	s.mockCurrencyRepo.On("FindCurrencyByCode", s.ctx, "USD").Return(s.usd(), nil).Once()
	s.mockAccountRepo.On("SaveAccount", s.ctx, mock.MatchedBy(func(a domain.Account) bool {
		return a.CompanyID == s.companyID &&
			a.IsActive &&
			a.OpeningBalance.Equal(decimal.NewFromInt(500)) &&
			a.CurrentBalance.Equal(decimal.NewFromInt(500))
	})).Return(nil).Once()

	account, err := s.service.CreateAccount(s.ctx, s.companyID, req, s.userID)

	s.Require().NoError(err)
	s.Equal("1000", account.AccountCode)
	s.True(account.IsActive)
	s.mockAccountRepo.AssertExpectations(s.T())
}

func (s *AccountServiceTestSuite) TestCreateAccount_InvalidType() {
	req := dto.CreateAccountRequest{AccountCode: "1000", Name: "Cash", AccountType: "CONTRA", CurrencyCode: "USD"}

	_, err := s.service.CreateAccount(s.ctx, s.companyID, req, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, services.ErrInvalidAccountType)
}

func (s *AccountServiceTestSuite) TestCreateAccount_UnknownCurrency() {
	req := dto.CreateAccountRequest{AccountCode: "1000", Name: "Cash", AccountType: domain.Asset, CurrencyCode: "XXX"}

	s.mockCurrencyRepo.On("FindCurrencyByCode", s.ctx, "XXX").Return(nil, apperrors.ErrNotFound).Once()

	_, err := s.service.CreateAccount(s.ctx, s.companyID, req, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *AccountServiceTestSuite) TestCreateAccount_ParentTypeMismatch() {
	parentID := uuid.NewString()
	req := dto.CreateAccountRequest{
		AccountCode:     "4100",
		Name:            "Product Revenue",
		AccountType:     domain.Revenue,
		CurrencyCode:    "USD",
		ParentAccountID: parentID,
	}
	parent := &domain.Account{AccountID: parentID, CompanyID: s.companyID, AccountType: domain.Asset}

	s.mockCurrencyRepo.On("FindCurrencyByCode", s.ctx, "USD").Return(s.usd(), nil).Once()
	s.mockAccountRepo.On("FindAccountByID", s.ctx, parentID).Return(parent, nil).Once()

	_, err := s.service.CreateAccount(s.ctx, s.companyID, req, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, services.ErrParentTypeMismatch)
}

func (s *AccountServiceTestSuite) TestUpdateAccount_ParentCycleRejected() {
	accountID := uuid.NewString()
	childID := uuid.NewString()
	account := &domain.Account{AccountID: accountID, CompanyID: s.companyID, AccountType: domain.Asset}
	// The proposed parent's own chain leads back to the account being updated.
	child := &domain.Account{AccountID: childID, CompanyID: s.companyID, AccountType: domain.Asset, ParentAccountID: accountID}

	s.mockAccountRepo.On("FindAccountByID", s.ctx, accountID).Return(account, nil).Once()
	s.mockAccountRepo.On("FindAccountByID", s.ctx, childID).Return(child, nil).Once()

	_, err := s.service.UpdateAccount(s.ctx, s.companyID, accountID, dto.UpdateAccountRequest{ParentAccountID: &childID}, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, services.ErrParentCycle)
	s.mockAccountRepo.AssertNotCalled(s.T(), "UpdateAccount", mock.Anything, mock.Anything)
}

func (s *AccountServiceTestSuite) TestUpdateAccount_SystemAccountForbidden() {
	accountID := uuid.NewString()
	account := &domain.Account{AccountID: accountID, CompanyID: s.companyID, IsSystem: true}

	s.mockAccountRepo.On("FindAccountByID", s.ctx, accountID).Return(account, nil).Once()

	name := "renamed"
	_, err := s.service.UpdateAccount(s.ctx, s.companyID, accountID, dto.UpdateAccountRequest{Name: &name}, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func (s *AccountServiceTestSuite) TestDeactivateAccount_NonzeroBalanceRejected() {
	accountID := uuid.NewString()
	account := &domain.Account{AccountID: accountID, CompanyID: s.companyID, CurrentBalance: decimal.NewFromInt(10)}

	s.mockAccountRepo.On("FindAccountByID", s.ctx, accountID).Return(account, nil).Once()

	err := s.service.DeactivateAccount(s.ctx, s.companyID, accountID, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrConflict)
	s.mockAccountRepo.AssertNotCalled(s.T(), "DeactivateAccount", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *AccountServiceTestSuite) TestDeactivateAccount_Success() {
	accountID := uuid.NewString()
	account := &domain.Account{AccountID: accountID, CompanyID: s.companyID, CurrentBalance: decimal.Zero}

	s.mockAccountRepo.On("FindAccountByID", s.ctx, accountID).Return(account, nil).Once()
	s.mockAccountRepo.On("DeactivateAccount", s.ctx, accountID, s.userID, mock.Anything).Return(nil).Once()

	err := s.service.DeactivateAccount(s.ctx, s.companyID, accountID, s.userID)

	s.Require().NoError(err)
	s.mockAccountRepo.AssertExpectations(s.T())
}

func (s *AccountServiceTestSuite) TestRecomputeAccountBalance_MatchesSignConvention() {
	accountID := uuid.NewString()
	account := &domain.Account{
		AccountID:      accountID,
		CompanyID:      s.companyID,
		AccountType:    domain.Asset,
		OpeningBalance: decimal.NewFromInt(500),
	}
	lines := []domain.JournalLine{
		{LineID: uuid.NewString(), AccountID: accountID, Debit: decimal.NewFromInt(100), Credit: decimal.Zero},
		{LineID: uuid.NewString(), AccountID: accountID, Debit: decimal.Zero, Credit: decimal.NewFromInt(30)},
	}

	s.mockAccountRepo.On("FindAccountByID", s.ctx, accountID).Return(account, nil).Once()
	s.mockJournalRepo.On("FindPostedLinesByAccountID", s.ctx, accountID).Return(lines, nil).Once()

	balance, err := s.service.RecomputeAccountBalance(s.ctx, s.companyID, accountID)

	s.Require().NoError(err)
	// 500 opening + 100 debit - 30 credit for an asset account.
	s.True(balance.Equal(decimal.NewFromInt(570)), "balance was %s", balance)
}

func (s *AccountServiceTestSuite) TestGetAccountByID_OtherCompanyHidden() {
	accountID := uuid.NewString()
	account := &domain.Account{AccountID: accountID, CompanyID: uuid.NewString()}

	s.mockAccountRepo.On("FindAccountByID", s.ctx, accountID).Return(account, nil).Once()

	_, err := s.service.GetAccountByID(s.ctx, s.companyID, accountID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrNotFound)
}
