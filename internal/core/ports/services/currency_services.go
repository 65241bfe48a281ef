package services

import (
	"context"
	"time"

	"github.com/entererp/finance_core_app/internal/core/domain"
	"github.com/entererp/finance_core_app/internal/dto"
	"github.com/shopspring/decimal"
)

// RateSource supplies an exchange rate to base currency for a currency code
// at a point in time. The default implementation reads the stored rate; a
// market-data feed can be substituted without touching the services.
type RateSource interface {
	// Rate returns the multiplier that converts one unit of the currency into
	// base currency as of the given time.
	Rate(ctx context.Context, currencyCode string, asOf time.Time) (decimal.Decimal, error)
}

// CurrencyReaderSvc defines read operations for currency data
type CurrencyReaderSvc interface {
	// GetCurrencyByCode retrieves a specific currency by its code.
	GetCurrencyByCode(ctx context.Context, currencyCode string) (*domain.Currency, error)

	// ListCurrencies retrieves all available currencies.
	ListCurrencies(ctx context.Context) ([]domain.Currency, error)

	// ConvertToBase converts an amount from the given currency into the
	// configured base currency using the current stored rate.
	ConvertToBase(ctx context.Context, currencyCode string, amount decimal.Decimal) (*dto.ConvertAmountResponse, error)
}

// CurrencyWriterSvc defines write operations for currency data
type CurrencyWriterSvc interface {
	// CreateCurrency persists a new currency.
	CreateCurrency(ctx context.Context, req dto.CreateCurrencyRequest, creatorUserID string) (*domain.Currency, error)

	// UpdateCurrency updates a currency's rate, name or active flag.
	UpdateCurrency(ctx context.Context, currencyCode string, req dto.UpdateCurrencyRequest, requestingUserID string) (*domain.Currency, error)
}

// CurrencySvcFacade combines all currency-related service interfaces
type CurrencySvcFacade interface {
	CurrencyReaderSvc
	CurrencyWriterSvc
	RateSource
}
