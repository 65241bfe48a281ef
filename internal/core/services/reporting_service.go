package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/entererp/finance_core_app/internal/core/domain"
	portsrepo "github.com/entererp/finance_core_app/internal/core/ports/repositories"
	portssvc "github.com/entererp/finance_core_app/internal/core/ports/services"
	"github.com/entererp/finance_core_app/internal/dto"
	"github.com/entererp/finance_core_app/internal/middleware"
	"github.com/shopspring/decimal"
)

// agedBuckets are the aging bands, in days past due, for receivables reports.
var agedBuckets = []struct {
	label string
	from  int
	to    int // exclusive; -1 means unbounded
}{
	{"current", -1 << 31, 1},
	{"1-30", 1, 31},
	{"31-60", 31, 61},
	{"61-90", 61, 91},
	{"90+", 91, -1},
}

// reportingService derives financial reports from the chart of accounts and
// open invoices.
type reportingService struct {
	accountRepo portsrepo.AccountReader
	invoiceRepo portsrepo.InvoiceReader
}

// NewReportingService creates a new ReportingService.
func NewReportingService(accountRepo portsrepo.AccountReader, invoiceRepo portsrepo.InvoiceReader) portssvc.ReportingService {
	return &reportingService{
		accountRepo: accountRepo,
		invoiceRepo: invoiceRepo,
	}
}

// Ensure reportingService implements the ReportingService interface
var _ portssvc.ReportingService = (*reportingService)(nil)

// trialBalancePageSize bounds each account page while walking the chart.
const trialBalancePageSize = 200

// TrialBalance generates a trial balance as of now from the cached account
// balances. A positive balance lands in the column that increases the
// account: debit for ASSET/EXPENSE, credit for the rest.
func (s *reportingService) TrialBalance(ctx context.Context, companyID string, asOf time.Time) (*dto.TrialBalanceResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	rows := make([]dto.TrialBalanceRow, 0)
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero

	for offset := 0; ; offset += trialBalancePageSize {
		accounts, err := s.accountRepo.ListAccounts(ctx, companyID, trialBalancePageSize, offset)
		if err != nil {
			logger.Error("Failed to list accounts for trial balance", slog.String("company_id", companyID), slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to list accounts: %w", err)
		}
		for _, acc := range accounts {
			row := dto.TrialBalanceRow{
				AccountID:     acc.AccountID,
				AccountCode:   acc.AccountCode,
				AccountName:   acc.Name,
				AccountType:   string(acc.AccountType),
				DebitBalance:  decimal.Zero,
				CreditBalance: decimal.Zero,
			}
			balance := acc.CurrentBalance
			debitNormal := acc.AccountType == domain.Asset || acc.AccountType == domain.Expense
			if debitNormal == !balance.IsNegative() {
				row.DebitBalance = balance.Abs()
			} else {
				row.CreditBalance = balance.Abs()
			}
			totalDebit = totalDebit.Add(row.DebitBalance)
			totalCredit = totalCredit.Add(row.CreditBalance)
			rows = append(rows, row)
		}
		if len(accounts) < trialBalancePageSize {
			break
		}
	}

	logger.Info("Trial balance generated", slog.String("company_id", companyID), slog.Int("row_count", len(rows)))
	return &dto.TrialBalanceResponse{
		CompanyID:   companyID,
		AsOf:        asOf,
		Rows:        rows,
		TotalDebit:  totalDebit,
		TotalCredit: totalCredit,
		Balanced:    totalDebit.Equal(totalCredit),
	}, nil
}

// AgedReceivables groups open invoice balances into aging buckets by days
// past due.
func (s *reportingService) AgedReceivables(ctx context.Context, companyID string, asOf time.Time) (*dto.AgedReceivablesResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	invoices, err := s.invoiceRepo.ListOpenInvoicesByCompany(ctx, companyID)
	if err != nil {
		logger.Error("Failed to list open invoices for aging report", slog.String("company_id", companyID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list open invoices: %w", err)
	}

	buckets := make([]dto.AgedReceivablesBucket, len(agedBuckets))
	for i, b := range agedBuckets {
		buckets[i] = dto.AgedReceivablesBucket{Label: b.label, Total: decimal.Zero}
	}
	total := decimal.Zero

	day := asOf.Truncate(24 * time.Hour)
	for _, inv := range invoices {
		daysPast := int(day.Sub(inv.DueDate.Truncate(24*time.Hour)).Hours() / 24)
		for i, b := range agedBuckets {
			if daysPast >= b.from && (b.to == -1 || daysPast < b.to) {
				buckets[i].Total = buckets[i].Total.Add(inv.BalanceDue)
				buckets[i].Count++
				break
			}
		}
		total = total.Add(inv.BalanceDue)
	}

	logger.Info("Aged receivables generated", slog.String("company_id", companyID), slog.Int("invoice_count", len(invoices)))
	return &dto.AgedReceivablesResponse{
		CompanyID: companyID,
		AsOf:      asOf,
		Buckets:   buckets,
		Total:     total,
	}, nil
}
