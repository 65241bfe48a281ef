package services

import (
	"context"
	"time"

	"github.com/entererp/finance_core_app/internal/dto"
)

// ReportingService defines operations for generating financial reports
type ReportingService interface {
	// TrialBalance generates a trial balance report as of a specific date
	TrialBalance(ctx context.Context, companyID string, asOf time.Time) (*dto.TrialBalanceResponse, error)

	// AgedReceivables groups open invoice balances into aging buckets by days
	// past due as of a specific date
	AgedReceivables(ctx context.Context, companyID string, asOf time.Time) (*dto.AgedReceivablesResponse, error)
}
