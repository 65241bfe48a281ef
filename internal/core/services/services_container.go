package services

import (
	portsrepo "github.com/entererp/finance_core_app/internal/core/ports/repositories"
	portssvc "github.com/entererp/finance_core_app/internal/core/ports/services"
	"github.com/entererp/finance_core_app/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// Currency comes first: it doubles as the rate source for documents.
	container.Currency = NewCurrencyService(repos.CurrencyRepo, cfg.BaseCurrency)

	container.Account = NewAccountService(repos.AccountRepo, repos.JournalRepo, repos.CurrencyRepo)
	container.Journal = NewJournalService(repos.JournalRepo, repos.AccountRepo)
	container.Invoice = NewInvoiceService(repos.InvoiceRepo, repos.AccountRepo, repos.PaymentRepo, container.Currency)
	container.Payment = NewPaymentService(repos.PaymentRepo, repos.InvoiceRepo, repos.AccountRepo, container.Currency)
	container.Reconciliation = NewReconciliationService(repos.ReconRepo, repos.InvoiceRepo, repos.AccountRepo, container.Currency)
	container.Reporting = NewReportingService(repos.AccountRepo, repos.InvoiceRepo)

	return container
}
