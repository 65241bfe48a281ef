package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/entererp/finance_core_app/internal/apperrors"
	"github.com/entererp/finance_core_app/internal/core/domain"
	portsrepo "github.com/entererp/finance_core_app/internal/core/ports/repositories"
	portssvc "github.com/entererp/finance_core_app/internal/core/ports/services"
	"github.com/entererp/finance_core_app/internal/dto"
	"github.com/entererp/finance_core_app/internal/middleware"
	"github.com/shopspring/decimal"
)

var (
	ErrCurrencyInactive = errors.New("currency is inactive")
	ErrRateNotPositive  = errors.New("exchange rate must be positive")
)

// currencyService provides currency registry and base-conversion operations.
// The service itself is the default RateSource: Rate reads the stored rate,
// ignoring asOf until historical rates are kept.
type currencyService struct {
	currencyRepo portsrepo.CurrencyRepository
	baseCurrency string
}

// NewCurrencyService creates a new CurrencyService.
func NewCurrencyService(currencyRepo portsrepo.CurrencyRepository, baseCurrency string) portssvc.CurrencySvcFacade {
	return &currencyService{
		currencyRepo: currencyRepo,
		baseCurrency: baseCurrency,
	}
}

// Ensure currencyService implements the portssvc.CurrencySvcFacade interface
var _ portssvc.CurrencySvcFacade = (*currencyService)(nil)

// CreateCurrency persists a new currency after validating its rate.
func (s *currencyService) CreateCurrency(ctx context.Context, req dto.CreateCurrencyRequest, creatorUserID string) (*domain.Currency, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if !req.ExchangeRate.IsPositive() {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrRateNotPositive)
	}

	now := time.Now().UTC()
	currency := domain.Currency{
		CurrencyCode: req.CurrencyCode,
		Name:         req.Name,
		Symbol:       req.Symbol,
		ExchangeRate: req.ExchangeRate,
		IsActive:     true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.currencyRepo.SaveCurrency(ctx, currency); err != nil {
		logger.Error("Failed to save currency", slog.String("currency_code", req.CurrencyCode), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save currency: %w", err)
	}

	logger.Info("Currency created successfully", slog.String("currency_code", currency.CurrencyCode))
	return &currency, nil
}

// GetCurrencyByCode retrieves a specific currency by its code.
func (s *currencyService) GetCurrencyByCode(ctx context.Context, currencyCode string) (*domain.Currency, error) {
	currency, err := s.currencyRepo.FindCurrencyByCode(ctx, currencyCode)
	if err != nil {
		return nil, fmt.Errorf("failed to find currency %s: %w", currencyCode, err)
	}
	return currency, nil
}

// ListCurrencies retrieves all available currencies.
func (s *currencyService) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	currencies, err := s.currencyRepo.ListCurrencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list currencies: %w", err)
	}
	if currencies == nil {
		return []domain.Currency{}, nil
	}
	return currencies, nil
}

// UpdateCurrency updates a currency's rate, name or active flag.
func (s *currencyService) UpdateCurrency(ctx context.Context, currencyCode string, req dto.UpdateCurrencyRequest, requestingUserID string) (*domain.Currency, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	currency, err := s.currencyRepo.FindCurrencyByCode(ctx, currencyCode)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.Error("Failed to find currency for update", slog.String("currency_code", currencyCode), slog.String("error", err.Error()))
		}
		return nil, err
	}

	updated := false
	if req.Name != nil {
		currency.Name = *req.Name
		updated = true
	}
	if req.Symbol != nil {
		currency.Symbol = *req.Symbol
		updated = true
	}
	if req.ExchangeRate != nil {
		if !req.ExchangeRate.IsPositive() {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrRateNotPositive)
		}
		currency.ExchangeRate = *req.ExchangeRate
		updated = true
	}
	if req.IsActive != nil {
		currency.IsActive = *req.IsActive
		updated = true
	}

	if !updated {
		return currency, nil
	}

	now := time.Now().UTC()
	currency.LastUpdatedAt = now
	currency.LastUpdatedBy = requestingUserID

	if err := s.currencyRepo.UpdateCurrency(ctx, *currency); err != nil {
		logger.Error("Failed to update currency", slog.String("currency_code", currencyCode), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to update currency: %w", err)
	}

	logger.Info("Currency updated successfully", slog.String("currency_code", currencyCode))
	return currency, nil
}

// Rate returns the stored rate to base currency for the given code.
// Implements portssvc.RateSource. asOf is accepted for interface stability;
// only the current stored rate is kept.
func (s *currencyService) Rate(ctx context.Context, currencyCode string, asOf time.Time) (decimal.Decimal, error) {
	if currencyCode == s.baseCurrency {
		return decimal.NewFromInt(1), nil
	}
	currency, err := s.currencyRepo.FindCurrencyByCode(ctx, currencyCode)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to resolve rate for %s: %w", currencyCode, err)
	}
	if !currency.IsActive {
		return decimal.Zero, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrCurrencyInactive)
	}
	return currency.ExchangeRate, nil
}

// ConvertToBase converts an amount into the configured base currency.
func (s *currencyService) ConvertToBase(ctx context.Context, currencyCode string, amount decimal.Decimal) (*dto.ConvertAmountResponse, error) {
	rate, err := s.Rate(ctx, currencyCode, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return &dto.ConvertAmountResponse{
		FromCurrency:    currencyCode,
		Amount:          amount,
		BaseCurrency:    s.baseCurrency,
		ConvertedAmount: amount.Mul(rate).Round(2),
		Rate:            rate,
	}, nil
}
