package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/entererp/finance_core_app/internal/apperrors"
	"github.com/entererp/finance_core_app/internal/core/domain"
	portssvc "github.com/entererp/finance_core_app/internal/core/ports/services"
	"github.com/entererp/finance_core_app/internal/core/services"
	"github.com/entererp/finance_core_app/internal/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type CurrencyServiceTestSuite struct {
	suite.Suite
	mockCurrencyRepo *MockCurrencyRepository
	service          portssvc.CurrencySvcFacade
	ctx              context.Context
	userID           string
}

func (s *CurrencyServiceTestSuite) SetupTest() {
	s.mockCurrencyRepo = new(MockCurrencyRepository)
	s.service = services.NewCurrencyService(s.mockCurrencyRepo, "USD")
	s.ctx = context.Background()
	s.userID = uuid.NewString()
}

func TestCurrencyServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CurrencyServiceTestSuite))
}

func (s *CurrencyServiceTestSuite) TestCreateCurrency_Success() {
	req := dto.CreateCurrencyRequest{
		CurrencyCode: "EUR",
		Name:         "Euro",
		Symbol:       "€",
		ExchangeRate: decimal.RequireFromString("1.08"),
	}

	s.mockCurrencyRepo.On("SaveCurrency", s.ctx, mock.MatchedBy(func(c domain.Currency) bool {
		return c.CurrencyCode == "EUR" && c.IsActive && c.ExchangeRate.Equal(decimal.RequireFromString("1.08"))
	})).Return(nil).Once()

	currency, err := s.service.CreateCurrency(s.ctx, req, s.userID)

	s.Require().NoError(err)
	s.Equal("EUR", currency.CurrencyCode)
	s.mockCurrencyRepo.AssertExpectations(s.T())
}

func (s *CurrencyServiceTestSuite) TestCreateCurrency_NonPositiveRate() {
	req := dto.CreateCurrencyRequest{CurrencyCode: "EUR", Name: "Euro", Symbol: "€", ExchangeRate: decimal.Zero}

	_, err := s.service.CreateCurrency(s.ctx, req, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.mockCurrencyRepo.AssertNotCalled(s.T(), "SaveCurrency", mock.Anything, mock.Anything)
}

func (s *CurrencyServiceTestSuite) TestRate_BaseCurrencyIsOne() {
	rate, err := s.service.Rate(s.ctx, "USD", time.Now().UTC())

	s.Require().NoError(err)
	s.True(rate.Equal(decimal.NewFromInt(1)))
	s.mockCurrencyRepo.AssertNotCalled(s.T(), "FindCurrencyByCode", mock.Anything, mock.Anything)
}

func (s *CurrencyServiceTestSuite) TestRate_InactiveCurrencyRejected() {
	s.mockCurrencyRepo.On("FindCurrencyByCode", s.ctx, "EUR").Return(&domain.Currency{
		CurrencyCode: "EUR",
		ExchangeRate: decimal.RequireFromString("1.08"),
		IsActive:     false,
	}, nil).Once()

	_, err := s.service.Rate(s.ctx, "EUR", time.Now().UTC())

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *CurrencyServiceTestSuite) TestConvertToBase() {
	s.mockCurrencyRepo.On("FindCurrencyByCode", s.ctx, "EUR").Return(&domain.Currency{
		CurrencyCode: "EUR",
		ExchangeRate: decimal.RequireFromString("1.08"),
		IsActive:     true,
	}, nil).Once()

	resp, err := s.service.ConvertToBase(s.ctx, "EUR", decimal.NewFromInt(100))

	s.Require().NoError(err)
	s.Equal("USD", resp.BaseCurrency)
	s.True(resp.ConvertedAmount.Equal(decimal.RequireFromString("108")), "converted was %s", resp.ConvertedAmount)
}

func (s *CurrencyServiceTestSuite) TestUpdateCurrency_RateValidation() {
	bad := decimal.NewFromInt(-2)

	s.mockCurrencyRepo.On("FindCurrencyByCode", s.ctx, "EUR").Return(&domain.Currency{
		CurrencyCode: "EUR",
		ExchangeRate: decimal.RequireFromString("1.08"),
		IsActive:     true,
	}, nil).Once()

	_, err := s.service.UpdateCurrency(s.ctx, "EUR", dto.UpdateCurrencyRequest{ExchangeRate: &bad}, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.mockCurrencyRepo.AssertNotCalled(s.T(), "UpdateCurrency", mock.Anything, mock.Anything)
}
