package services

import (
	"context"

	"github.com/entererp/finance_core_app/internal/core/domain"
	"github.com/entererp/finance_core_app/internal/dto"
)

// JournalReaderSvc defines read operations for journal entry data
type JournalReaderSvc interface {
	// GetEntryByID retrieves a journal entry with its lines.
	GetEntryByID(ctx context.Context, companyID string, entryID string) (*domain.JournalEntry, error)

	// ListEntries retrieves a token-paginated list of entries in a company.
	ListEntries(ctx context.Context, companyID string, params dto.ListEntriesParams) (*dto.ListEntriesResponse, error)
}

// JournalWriterSvc defines write operations for journal entry data
type JournalWriterSvc interface {
	// CreateDraftEntry persists a new DRAFT entry with its lines. Drafts have
	// no balance effect.
	CreateDraftEntry(ctx context.Context, companyID string, req dto.CreateEntryRequest, creatorUserID string) (*domain.JournalEntry, error)

	// UpdateDraftEntry replaces a DRAFT entry's editable fields and lines.
	UpdateDraftEntry(ctx context.Context, companyID string, entryID string, req dto.UpdateDraftEntryRequest, requestingUserID string) (*domain.JournalEntry, error)

	// PostEntry validates balance and account references, transitions the
	// entry to POSTED and applies balance deltas atomically.
	PostEntry(ctx context.Context, companyID string, entryID string, requestingUserID string) (*domain.JournalEntry, error)

	// CancelEntry cancels an entry. Drafts are marked CANCELLED directly;
	// posted entries are cancelled by posting a reversing entry that backs
	// out every line, preserving the audit trail.
	CancelEntry(ctx context.Context, companyID string, entryID string, requestingUserID string) (*domain.JournalEntry, error)
}

// JournalSvcFacade combines all journal-related service interfaces
type JournalSvcFacade interface {
	JournalReaderSvc
	JournalWriterSvc
}
