package repositories

// RepositoryProvider holds all repository interfaces needed by services.
// This makes passing dependencies to the service container constructor cleaner.
type RepositoryProvider struct {
	CurrencyRepo CurrencyRepository
	AccountRepo  AccountRepositoryFacade
	JournalRepo  JournalRepositoryFacade
	InvoiceRepo  InvoiceRepositoryFacade
	PaymentRepo  PaymentRepositoryFacade
	ReconRepo    ReconciliationRepository
}
