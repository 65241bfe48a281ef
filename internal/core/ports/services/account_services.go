package services

import (
	"context"

	"github.com/entererp/finance_core_app/internal/core/domain"
	"github.com/entererp/finance_core_app/internal/dto"
	"github.com/shopspring/decimal"
)

// AccountReaderSvc defines read operations for chart-of-accounts data
type AccountReaderSvc interface {
	// GetAccountByID retrieves a specific account by its unique identifier.
	GetAccountByID(ctx context.Context, companyID string, accountID string) (*domain.Account, error)

	// GetAccountByCode retrieves an account by its code within a company.
	GetAccountByCode(ctx context.Context, companyID string, accountCode string) (*domain.Account, error)

	// ListAccounts retrieves a paginated list of accounts in a company.
	ListAccounts(ctx context.Context, companyID string, limit int, offset int) (*dto.ListAccountsResponse, error)

	// GetAccountBalance returns the cached current balance of an account.
	GetAccountBalance(ctx context.Context, companyID string, accountID string) (*dto.AccountBalanceResponse, error)

	// RecomputeAccountBalance derives the balance from posted journal lines
	// and the opening balance, bypassing the cached value. Used to verify the
	// cache and by the trial balance report.
	RecomputeAccountBalance(ctx context.Context, companyID string, accountID string) (decimal.Decimal, error)
}

// AccountWriterSvc defines write operations for account data
type AccountWriterSvc interface {
	// CreateAccount persists a new account.
	CreateAccount(ctx context.Context, companyID string, req dto.CreateAccountRequest, creatorUserID string) (*domain.Account, error)

	// UpdateAccount updates an existing account's mutable details.
	UpdateAccount(ctx context.Context, companyID string, accountID string, req dto.UpdateAccountRequest, requestingUserID string) (*domain.Account, error)

	// DeactivateAccount marks an account as inactive. Inactive accounts keep
	// their history but reject new journal lines.
	DeactivateAccount(ctx context.Context, companyID string, accountID string, requestingUserID string) error
}

// AccountSvcFacade combines all account-related service interfaces
type AccountSvcFacade interface {
	AccountReaderSvc
	AccountWriterSvc
}
