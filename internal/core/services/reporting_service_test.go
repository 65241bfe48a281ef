package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/entererp/finance_core_app/internal/core/domain"
	portssvc "github.com/entererp/finance_core_app/internal/core/ports/services"
	"github.com/entererp/finance_core_app/internal/core/services"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type ReportingServiceTestSuite struct {
	suite.Suite
	mockAccountRepo *MockAccountReader
	mockInvoiceRepo *MockInvoiceRepository
	service         portssvc.ReportingService
	ctx             context.Context
	companyID       string
}

func (s *ReportingServiceTestSuite) SetupTest() {
	s.mockAccountRepo = new(MockAccountReader)
	s.mockInvoiceRepo = new(MockInvoiceRepository)
	s.service = services.NewReportingService(s.mockAccountRepo, s.mockInvoiceRepo)
	s.ctx = context.Background()
	s.companyID = uuid.NewString()
}

func TestReportingServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ReportingServiceTestSuite))
}

func (s *ReportingServiceTestSuite) TestTrialBalance_ColumnsAndTotals() {
	accounts := []domain.Account{
		{AccountID: uuid.NewString(), AccountCode: "1000", Name: "Cash", AccountType: domain.Asset, CurrentBalance: decimal.NewFromInt(289)},
		{AccountID: uuid.NewString(), AccountCode: "4000", Name: "Revenue", AccountType: domain.Revenue, CurrentBalance: decimal.NewFromInt(280)},
		{AccountID: uuid.NewString(), AccountCode: "2100", Name: "Tax Payable", AccountType: domain.Liability, CurrentBalance: decimal.NewFromInt(9)},
	}

	s.mockAccountRepo.On("ListAccounts", s.ctx, s.companyID, 200, 0).Return(accounts, nil).Once()

	asOf := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	report, err := s.service.TrialBalance(s.ctx, s.companyID, asOf)

	s.Require().NoError(err)
	s.Require().Len(report.Rows, 3)
	s.True(report.Rows[0].DebitBalance.Equal(decimal.NewFromInt(289)))
	s.True(report.Rows[0].CreditBalance.IsZero())
	s.True(report.Rows[1].CreditBalance.Equal(decimal.NewFromInt(280)))
	s.True(report.Rows[2].CreditBalance.Equal(decimal.NewFromInt(9)))
	s.True(report.TotalDebit.Equal(decimal.NewFromInt(289)))
	s.True(report.TotalCredit.Equal(decimal.NewFromInt(289)))
	s.True(report.Balanced)
}

func (s *ReportingServiceTestSuite) TestTrialBalance_NegativeAssetLandsInCredit() {
	accounts := []domain.Account{
		{AccountID: uuid.NewString(), AccountCode: "1010", Name: "Overdrawn", AccountType: domain.Asset, CurrentBalance: decimal.NewFromInt(-50)},
	}

	s.mockAccountRepo.On("ListAccounts", s.ctx, s.companyID, 200, 0).Return(accounts, nil).Once()

	report, err := s.service.TrialBalance(s.ctx, s.companyID, time.Now().UTC())

	s.Require().NoError(err)
	s.True(report.Rows[0].DebitBalance.IsZero())
	s.True(report.Rows[0].CreditBalance.Equal(decimal.NewFromInt(50)))
	s.False(report.Balanced)
}

func (s *ReportingServiceTestSuite) TestAgedReceivables_BucketsByDaysPastDue() {
	asOf := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	invoices := []domain.Invoice{
		{InvoiceID: uuid.NewString(), DueDate: asOf.AddDate(0, 0, 10), BalanceDue: decimal.NewFromInt(100), Status: domain.InvoiceSent},
		{InvoiceID: uuid.NewString(), DueDate: asOf.AddDate(0, 0, -5), BalanceDue: decimal.NewFromInt(200), Status: domain.InvoiceSent},
		{InvoiceID: uuid.NewString(), DueDate: asOf.AddDate(0, 0, -45), BalanceDue: decimal.NewFromInt(300), Status: domain.InvoicePartiallyPaid},
		{InvoiceID: uuid.NewString(), DueDate: asOf.AddDate(0, 0, -120), BalanceDue: decimal.NewFromInt(400), Status: domain.InvoiceSent},
	}

	s.mockInvoiceRepo.On("ListOpenInvoicesByCompany", s.ctx, s.companyID).Return(invoices, nil).Once()

	report, err := s.service.AgedReceivables(s.ctx, s.companyID, asOf)

	s.Require().NoError(err)
	s.Require().Len(report.Buckets, 5)
	s.Equal("current", report.Buckets[0].Label)
	s.True(report.Buckets[0].Total.Equal(decimal.NewFromInt(100)))
	s.True(report.Buckets[1].Total.Equal(decimal.NewFromInt(200)), "1-30 was %s", report.Buckets[1].Total)
	s.True(report.Buckets[2].Total.Equal(decimal.NewFromInt(300)), "31-60 was %s", report.Buckets[2].Total)
	s.True(report.Buckets[3].Total.IsZero())
	s.True(report.Buckets[4].Total.Equal(decimal.NewFromInt(400)))
	s.True(report.Total.Equal(decimal.NewFromInt(1000)))
	s.Equal(1, report.Buckets[1].Count)
}
