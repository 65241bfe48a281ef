package domain

import "github.com/shopspring/decimal"

// Currency represents a supported currency.
// ExchangeRate is the current multiplier to the base currency. Historical
// documents (invoices, payments) snapshot the rate at creation time and are
// never affected by later rate changes.
type Currency struct {
	CurrencyCode string          `json:"currencyCode"` // Primary Key (e.g., "USD")
	Name         string          `json:"name"`         // e.g., "US Dollar"
	Symbol       string          `json:"symbol"`       // e.g., "$"
	ExchangeRate decimal.Decimal `json:"exchangeRate"` // Rate to base currency
	IsActive     bool            `json:"isActive"`
	AuditFields
}
