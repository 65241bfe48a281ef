package pgsql

import (
	portsrepo "github.com/entererp/finance_core_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider creates all pgsql-backed repositories sharing one
// connection pool.
func NewRepositoryProvider(pool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		CurrencyRepo: newPgxCurrencyRepository(pool),
		AccountRepo:  newPgxAccountRepository(pool),
		JournalRepo:  newPgxJournalRepository(pool),
		InvoiceRepo:  newPgxInvoiceRepository(pool),
		PaymentRepo:  newPgxPaymentRepository(pool),
		ReconRepo:    newPgxReconciliationRepository(pool),
	}
}
