package repositories

import (
	"context"

	"github.com/entererp/finance_core_app/internal/core/domain"
)

// CurrencyRepository defines persistence operations for currencies.
type CurrencyRepository interface {
	// SaveCurrency persists a new currency.
	SaveCurrency(ctx context.Context, currency domain.Currency) error

	// FindCurrencyByCode retrieves a currency by its code.
	FindCurrencyByCode(ctx context.Context, code string) (*domain.Currency, error)

	// ListCurrencies retrieves all currencies.
	ListCurrencies(ctx context.Context) ([]domain.Currency, error)

	// UpdateCurrency updates a currency's rate, name or active flag.
	UpdateCurrency(ctx context.Context, currency domain.Currency) error
}
