package repositories

import (
	"context"
	"time"

	"github.com/entererp/finance_core_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// JournalReader defines read operations for journal entry data
type JournalReader interface {
	// FindEntryByID retrieves a specific journal entry header by its ID.
	FindEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error)

	// FindLinesByEntryID retrieves all lines of a journal entry in line order.
	FindLinesByEntryID(ctx context.Context, entryID string) ([]domain.JournalLine, error)

	// FindPostedLinesByAccountID retrieves every line of a POSTED entry that
	// references the account. Used to recompute balances independently of the
	// cached current_balance.
	FindPostedLinesByAccountID(ctx context.Context, accountID string) ([]domain.JournalLine, error)

	// ListEntriesByCompany retrieves a token-paginated list of entries.
	ListEntriesByCompany(ctx context.Context, companyID string, limit int, nextToken *string) ([]domain.JournalEntry, *string, error)
}

// JournalWriter defines write operations for journal entry data
type JournalWriter interface {
	// SaveEntry persists an entry and its lines. When balanceChanges is
	// non-nil the entry is stored as POSTED and the deltas are applied to the
	// affected accounts within the same database transaction; a nil map
	// stores a DRAFT with no balance effect.
	SaveEntry(ctx context.Context, entry domain.JournalEntry, lines []domain.JournalLine, balanceChanges map[string]decimal.Decimal) error

	// ReplaceDraftLines replaces the full line set of a DRAFT entry.
	ReplaceDraftLines(ctx context.Context, entry domain.JournalEntry, lines []domain.JournalLine) error

	// MarkPosted transitions a DRAFT entry to POSTED, stamping totals and
	// posted_by/posted_at, and applies the balance deltas atomically.
	MarkPosted(ctx context.Context, entry domain.JournalEntry, balanceChanges map[string]decimal.Decimal) error

	// UpdateEntryStatusAndLinks updates the status and reversal linkage of an
	// entry (used when cancelling).
	UpdateEntryStatusAndLinks(ctx context.Context, entryID string, status domain.JournalStatus, reversingEntryID *string, originalEntryID *string, updatedByUserID string, updatedAt time.Time) error
}

// JournalRepositoryFacade combines all journal-related repository interfaces.
type JournalRepositoryFacade interface {
	JournalReader
	JournalWriter
}

// JournalRepositoryWithTx extends JournalRepositoryFacade with transaction
// capabilities.
type JournalRepositoryWithTx interface {
	JournalRepositoryFacade
	TransactionManager
}
