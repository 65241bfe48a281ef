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
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrParentCycle        = errors.New("account hierarchy must not contain cycles")
	ErrParentTypeMismatch = errors.New("parent account must have the same account type")
	ErrAccountInUse       = errors.New("account has a nonzero balance")
	ErrSystemAccount      = errors.New("system accounts cannot be modified")
)

// maxHierarchyDepth bounds the parent walk so a corrupted hierarchy cannot
// loop forever.
const maxHierarchyDepth = 32

// accountService provides chart-of-accounts operations.
type accountService struct {
	accountRepo  portsrepo.AccountRepositoryFacade
	journalRepo  portsrepo.JournalReader
	currencyRepo portsrepo.CurrencyRepository
}

// NewAccountService creates a new AccountService.
func NewAccountService(accountRepo portsrepo.AccountRepositoryFacade, journalRepo portsrepo.JournalReader, currencyRepo portsrepo.CurrencyRepository) portssvc.AccountSvcFacade {
	return &accountService{
		accountRepo:  accountRepo,
		journalRepo:  journalRepo,
		currencyRepo: currencyRepo,
	}
}

// Ensure accountService implements the portssvc.AccountSvcFacade interface
var _ portssvc.AccountSvcFacade = (*accountService)(nil)

// validateParent checks that the proposed parent exists, shares company and
// type, and that linking to it would not create a cycle.
func (s *accountService) validateParent(ctx context.Context, companyID string, accountID string, accountType domain.AccountType, parentID string) error {
	seen := map[string]bool{accountID: true}
	currentID := parentID
	for depth := 0; currentID != ""; depth++ {
		if depth >= maxHierarchyDepth {
			return fmt.Errorf("%w: hierarchy deeper than %d levels", apperrors.ErrValidation, maxHierarchyDepth)
		}
		if seen[currentID] {
			return fmt.Errorf("%w: account %s already appears in the chain", ErrParentCycle, currentID)
		}
		seen[currentID] = true

		parent, err := s.accountRepo.FindAccountByID(ctx, currentID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return fmt.Errorf("%w: parent account %s", apperrors.ErrNotFound, currentID)
			}
			return fmt.Errorf("failed to resolve parent account %s: %w", currentID, err)
		}
		if parent.CompanyID != companyID {
			return fmt.Errorf("%w: parent account %s", apperrors.ErrNotFound, currentID)
		}
		if parent.AccountType != accountType {
			return fmt.Errorf("%w: parent %s is %s", ErrParentTypeMismatch, currentID, parent.AccountType)
		}
		currentID = parent.ParentAccountID
	}
	return nil
}

// CreateAccount persists a new account.
func (s *accountService) CreateAccount(ctx context.Context, companyID string, req dto.CreateAccountRequest, creatorUserID string) (*domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if !domain.ValidAccountType(req.AccountType) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAccountType, req.AccountType)
	}

	currency, err := s.currencyRepo.FindCurrencyByCode(ctx, req.CurrencyCode)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: currency %s is not registered", apperrors.ErrValidation, req.CurrencyCode)
		}
		return nil, fmt.Errorf("failed to resolve currency %s: %w", req.CurrencyCode, err)
	}
	if !currency.IsActive {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrCurrencyInactive)
	}

	accountID := uuid.NewString()
	if req.ParentAccountID != "" {
		if err := s.validateParent(ctx, companyID, accountID, req.AccountType, req.ParentAccountID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	account := domain.Account{
		AccountID:       accountID,
		CompanyID:       companyID,
		AccountCode:     req.AccountCode,
		Name:            req.Name,
		AccountType:     req.AccountType,
		AccountSubtype:  req.AccountSubtype,
		CurrencyCode:    req.CurrencyCode,
		ParentAccountID: req.ParentAccountID,
		Description:     req.Description,
		OpeningBalance:  accounting.RoundMoney(req.OpeningBalance),
		CurrentBalance:  accounting.RoundMoney(req.OpeningBalance),
		IsActive:        true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
		logger.Error("Failed to save account", slog.String("account_code", req.AccountCode), slog.String("company_id", companyID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	logger.Info("Account created successfully", slog.String("account_id", account.AccountID), slog.String("company_id", companyID))
	return &account, nil
}

// GetAccountByID retrieves a specific account, obscuring accounts that belong
// to other companies.
func (s *accountService) GetAccountByID(ctx context.Context, companyID string, accountID string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account %s: %w", accountID, err)
	}
	if account.CompanyID != companyID {
		return nil, apperrors.ErrNotFound
	}
	return account, nil
}

// GetAccountByCode retrieves an account by its code within a company.
func (s *accountService) GetAccountByCode(ctx context.Context, companyID string, accountCode string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByCode(ctx, companyID, accountCode)
	if err != nil {
		return nil, fmt.Errorf("failed to find account with code %s: %w", accountCode, err)
	}
	return account, nil
}

// ListAccounts retrieves a paginated list of accounts in a company.
func (s *accountService) ListAccounts(ctx context.Context, companyID string, limit int, offset int) (*dto.ListAccountsResponse, error) {
	if limit <= 0 {
		limit = 50
	}
	accounts, err := s.accountRepo.ListAccounts(ctx, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return &dto.ListAccountsResponse{Accounts: dto.ToAccountResponses(accounts)}, nil
}

// UpdateAccount updates an existing account's mutable details.
func (s *accountService) UpdateAccount(ctx context.Context, companyID string, accountID string, req dto.UpdateAccountRequest, requestingUserID string) (*domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	account, err := s.GetAccountByID(ctx, companyID, accountID)
	if err != nil {
		return nil, err
	}
	if account.IsSystem {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrForbidden, ErrSystemAccount)
	}

	updated := false
	if req.Name != nil {
		account.Name = *req.Name
		updated = true
	}
	if req.Description != nil {
		account.Description = *req.Description
		updated = true
	}
	if req.ParentAccountID != nil {
		if *req.ParentAccountID != "" {
			if err := s.validateParent(ctx, companyID, accountID, account.AccountType, *req.ParentAccountID); err != nil {
				return nil, err
			}
		}
		account.ParentAccountID = *req.ParentAccountID
		updated = true
	}

	if !updated {
		return account, nil
	}

	now := time.Now().UTC()
	account.LastUpdatedAt = now
	account.LastUpdatedBy = requestingUserID

	if err := s.accountRepo.UpdateAccount(ctx, *account); err != nil {
		logger.Error("Failed to update account", slog.String("account_id", accountID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	logger.Info("Account updated successfully", slog.String("account_id", accountID))
	return account, nil
}

// DeactivateAccount marks an account as inactive. Accounts with a nonzero
// balance stay active so the books keep adding up.
func (s *accountService) DeactivateAccount(ctx context.Context, companyID string, accountID string, requestingUserID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	account, err := s.GetAccountByID(ctx, companyID, accountID)
	if err != nil {
		return err
	}
	if account.IsSystem {
		return fmt.Errorf("%w: %s", apperrors.ErrForbidden, ErrSystemAccount)
	}
	if !account.CurrentBalance.IsZero() {
		return fmt.Errorf("%w: %s", apperrors.ErrConflict, ErrAccountInUse)
	}

	if err := s.accountRepo.DeactivateAccount(ctx, accountID, requestingUserID, time.Now().UTC()); err != nil {
		logger.Error("Failed to deactivate account", slog.String("account_id", accountID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to deactivate account: %w", err)
	}

	logger.Info("Account deactivated successfully", slog.String("account_id", accountID))
	return nil
}

// GetAccountBalance returns the cached current balance of an account.
func (s *accountService) GetAccountBalance(ctx context.Context, companyID string, accountID string) (*dto.AccountBalanceResponse, error) {
	account, err := s.GetAccountByID(ctx, companyID, accountID)
	if err != nil {
		return nil, err
	}
	return &dto.AccountBalanceResponse{
		AccountID:      account.AccountID,
		CurrentBalance: account.CurrentBalance,
		CurrencyCode:   account.CurrencyCode,
	}, nil
}

// RecomputeAccountBalance derives the balance from the opening balance plus
// every posted line, independent of the cached current_balance.
func (s *accountService) RecomputeAccountBalance(ctx context.Context, companyID string, accountID string) (decimal.Decimal, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	account, err := s.GetAccountByID(ctx, companyID, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	lines, err := s.journalRepo.FindPostedLinesByAccountID(ctx, accountID)
	if err != nil {
		logger.Error("Failed to fetch posted lines for balance recompute", slog.String("account_id", accountID), slog.String("error", err.Error()))
		return decimal.Zero, fmt.Errorf("failed to fetch posted lines: %w", err)
	}

	balance := account.OpeningBalance
	for _, line := range lines {
		signed, err := accounting.SignedAmount(line, account.AccountType)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to sign line %s: %w", line.LineID, err)
		}
		balance = balance.Add(signed)
	}
	return balance, nil
}
