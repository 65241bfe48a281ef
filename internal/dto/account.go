package dto

import (
	"github.com/entererp/finance_core_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest defines the payload for creating a chart-of-accounts
// node.
type CreateAccountRequest struct {
	AccountCode     string               `json:"accountCode" binding:"required"`
	Name            string               `json:"name" binding:"required"`
	AccountType     domain.AccountType   `json:"accountType" binding:"required"`
	AccountSubtype  domain.AccountSubtype `json:"accountSubtype,omitempty"`
	CurrencyCode    string               `json:"currencyCode" binding:"required,len=3"`
	ParentAccountID string               `json:"parentAccountID,omitempty"`
	Description     string               `json:"description,omitempty"`
	OpeningBalance  decimal.Decimal      `json:"openingBalance"`
}

// UpdateAccountRequest defines the mutable fields of an account.
type UpdateAccountRequest struct {
	Name            *string `json:"name,omitempty"`
	Description     *string `json:"description,omitempty"`
	ParentAccountID *string `json:"parentAccountID,omitempty"`
}

// AccountResponse defines the data returned for an account.
type AccountResponse struct {
	AccountID       string                `json:"accountID"`
	CompanyID       string                `json:"companyID"`
	AccountCode     string                `json:"accountCode"`
	Name            string                `json:"name"`
	AccountType     domain.AccountType    `json:"accountType"`
	AccountSubtype  domain.AccountSubtype `json:"accountSubtype,omitempty"`
	CurrencyCode    string                `json:"currencyCode"`
	ParentAccountID string                `json:"parentAccountID,omitempty"`
	Description     string                `json:"description,omitempty"`
	OpeningBalance  decimal.Decimal       `json:"openingBalance"`
	CurrentBalance  decimal.Decimal       `json:"currentBalance"`
	IsActive        bool                  `json:"isActive"`
	IsSystem        bool                  `json:"isSystem"`
}

// ListAccountsResponse wraps a page of accounts.
type ListAccountsResponse struct {
	Accounts []AccountResponse `json:"accounts"`
}

// AccountBalanceResponse reports the cached balance of an account.
type AccountBalanceResponse struct {
	AccountID      string          `json:"accountID"`
	CurrentBalance decimal.Decimal `json:"currentBalance"`
	CurrencyCode   string          `json:"currencyCode"`
}

// ToAccountResponse converts a domain.Account to its response DTO.
func ToAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:       a.AccountID,
		CompanyID:       a.CompanyID,
		AccountCode:     a.AccountCode,
		Name:            a.Name,
		AccountType:     a.AccountType,
		AccountSubtype:  a.AccountSubtype,
		CurrencyCode:    a.CurrencyCode,
		ParentAccountID: a.ParentAccountID,
		Description:     a.Description,
		OpeningBalance:  a.OpeningBalance,
		CurrentBalance:  a.CurrentBalance,
		IsActive:        a.IsActive,
		IsSystem:        a.IsSystem,
	}
}

// ToAccountResponses converts a slice of accounts.
func ToAccountResponses(accounts []domain.Account) []AccountResponse {
	responses := make([]AccountResponse, len(accounts))
	for i := range accounts {
		responses[i] = ToAccountResponse(&accounts[i])
	}
	return responses
}
