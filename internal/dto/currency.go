package dto

import (
	"github.com/entererp/finance_core_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateCurrencyRequest defines the payload for registering a currency.
type CreateCurrencyRequest struct {
	CurrencyCode string          `json:"currencyCode" binding:"required,len=3,uppercase"`
	Name         string          `json:"name" binding:"required"`
	Symbol       string          `json:"symbol" binding:"required"`
	ExchangeRate decimal.Decimal `json:"exchangeRate" binding:"required"`
}

// UpdateCurrencyRequest defines the mutable fields of a currency.
type UpdateCurrencyRequest struct {
	Name         *string          `json:"name,omitempty"`
	Symbol       *string          `json:"symbol,omitempty"`
	ExchangeRate *decimal.Decimal `json:"exchangeRate,omitempty"`
	IsActive     *bool            `json:"isActive,omitempty"`
}

// CurrencyResponse defines the data returned for a currency.
type CurrencyResponse struct {
	CurrencyCode string          `json:"currencyCode"`
	Name         string          `json:"name"`
	Symbol       string          `json:"symbol"`
	ExchangeRate decimal.Decimal `json:"exchangeRate"`
	IsActive     bool            `json:"isActive"`
}

// ConvertAmountResponse is the result of a base-currency conversion.
type ConvertAmountResponse struct {
	FromCurrency    string          `json:"fromCurrency"`
	Amount          decimal.Decimal `json:"amount"`
	BaseCurrency    string          `json:"baseCurrency"`
	ConvertedAmount decimal.Decimal `json:"convertedAmount"`
	Rate            decimal.Decimal `json:"rate"`
}

// ToCurrencyResponse converts a domain.Currency to its response DTO.
func ToCurrencyResponse(c *domain.Currency) CurrencyResponse {
	return CurrencyResponse{
		CurrencyCode: c.CurrencyCode,
		Name:         c.Name,
		Symbol:       c.Symbol,
		ExchangeRate: c.ExchangeRate,
		IsActive:     c.IsActive,
	}
}
