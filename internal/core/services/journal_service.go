package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/entererp/finance_core_app/internal/apperrors"
	"github.com/entererp/finance_core_app/internal/core/domain"
	portsrepo "github.com/entererp/finance_core_app/internal/core/ports/repositories"
	portssvc "github.com/entererp/finance_core_app/internal/core/ports/services"
	"github.com/entererp/finance_core_app/internal/dto"
	"github.com/entererp/finance_core_app/internal/middleware"
	"github.com/entererp/finance_core_app/internal/utils/accounting"
	"github.com/entererp/finance_core_app/internal/utils/numbering"
	"github.com/shopspring/decimal"
)

var (
	ErrEntryUnbalanced  = errors.New("journal lines do not balance")
	ErrEntryMinLines    = errors.New("journal entry must have at least two lines")
	ErrEntryMinAccounts = errors.New("journal entry must affect at least two different accounts")
	ErrUnknownAccount   = errors.New("account not found")
	ErrCurrencyMismatch = errors.New("account currency does not match entry currency")
	ErrNotDraft         = errors.New("journal entry is not a draft")
	ErrAlreadyPosted    = errors.New("journal entry is already posted")
	ErrAlreadyCancelled = errors.New("journal entry is already cancelled")
)

// journalService provides journal entry lifecycle operations.
type journalService struct {
	journalRepo portsrepo.JournalRepositoryFacade
	accountRepo portsrepo.AccountReader
}

// NewJournalService creates a new JournalService.
func NewJournalService(journalRepo portsrepo.JournalRepositoryFacade, accountRepo portsrepo.AccountReader) portssvc.JournalSvcFacade {
	return &journalService{
		journalRepo: journalRepo,
		accountRepo: accountRepo,
	}
}

// Ensure journalService implements the portssvc.JournalSvcFacade interface
var _ portssvc.JournalSvcFacade = (*journalService)(nil)

// buildLines converts line requests into domain lines, rounding amounts at
// the persistence boundary.
func buildLines(entryID string, reqs []dto.CreateEntryLineRequest, userID string, now time.Time) []domain.JournalLine {
	lines := make([]domain.JournalLine, len(reqs))
	for i, lr := range reqs {
		lines[i] = domain.JournalLine{
			LineID:      uuid.NewString(),
			EntryID:     entryID,
			LineNumber:  i + 1,
			AccountID:   lr.AccountID,
			Debit:       accounting.RoundMoney(lr.Debit),
			Credit:      accounting.RoundMoney(lr.Credit),
			Description: lr.Description,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     userID,
				LastUpdatedAt: now,
				LastUpdatedBy: userID,
			},
		}
	}
	return lines
}

// validateLines runs the double-entry checks and returns the cached totals.
func validateLines(lines []domain.JournalLine) (totalDebit, totalCredit decimal.Decimal, err error) {
	if len(lines) < 2 {
		return decimal.Zero, decimal.Zero, ErrEntryMinLines
	}
	accountSet := make(map[string]bool, len(lines))
	for _, line := range lines {
		accountSet[line.AccountID] = true
	}
	if len(accountSet) < 2 {
		return decimal.Zero, decimal.Zero, ErrEntryMinAccounts
	}
	totalDebit, totalCredit, err = accounting.ValidateEntryBalance(lines)
	if err != nil {
		return totalDebit, totalCredit, fmt.Errorf("%w: %s", ErrEntryUnbalanced, err.Error())
	}
	return totalDebit, totalCredit, nil
}

// fetchAccountsForEntry loads the accounts behind a line set and checks that
// each one belongs to the company, is active, and carries the entry currency.
func (s *journalService) fetchAccountsForEntry(ctx context.Context, companyID string, currencyCode string, lines []domain.JournalLine) (map[string]domain.Account, error) {
	accountIDs := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.AccountID]; !ok {
			seen[line.AccountID] = struct{}{}
			accountIDs = append(accountIDs, line.AccountID)
		}
	}

	accountsMap, err := s.accountRepo.FindAccountsByIDs(ctx, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}

	for _, id := range accountIDs {
		acc, found := accountsMap[id]
		if !found {
			return nil, fmt.Errorf("%w: ID %s", ErrUnknownAccount, id)
		}
		if acc.CompanyID != companyID {
			return nil, fmt.Errorf("%w: ID %s", ErrUnknownAccount, id)
		}
		if !acc.IsActive {
			return nil, fmt.Errorf("%w: account %s is inactive", apperrors.ErrValidation, id)
		}
		if acc.CurrencyCode != currencyCode {
			return nil, fmt.Errorf("%w: account %s holds %s", ErrCurrencyMismatch, id, acc.CurrencyCode)
		}
	}
	return accountsMap, nil
}

// computeBalanceChanges folds the signed line amounts into one net delta per
// account.
func computeBalanceChanges(lines []domain.JournalLine, accounts map[string]domain.Account) (map[string]decimal.Decimal, error) {
	balanceChanges := make(map[string]decimal.Decimal)
	for _, line := range lines {
		acc, ok := accounts[line.AccountID]
		if !ok {
			return nil, fmt.Errorf("%w: ID %s", ErrUnknownAccount, line.AccountID)
		}
		signed, err := accounting.SignedAmount(line, acc.AccountType)
		if err != nil {
			return nil, fmt.Errorf("failed to sign line %s: %w", line.LineID, err)
		}
		balanceChanges[line.AccountID] = balanceChanges[line.AccountID].Add(signed)
	}
	return balanceChanges, nil
}

// CreateDraftEntry persists a new DRAFT entry with its lines. Drafts carry
// cached totals but have no balance effect until posted.
func (s *journalService) CreateDraftEntry(ctx context.Context, companyID string, req dto.CreateEntryRequest, creatorUserID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	now := time.Now().UTC()
	entryID := uuid.NewString()
	lines := buildLines(entryID, req.Lines, creatorUserID, now)

	totalDebit, totalCredit, err := validateLines(lines)
	if err != nil {
		return nil, err
	}

	if _, err := s.fetchAccountsForEntry(ctx, companyID, req.CurrencyCode, lines); err != nil {
		return nil, err
	}

	entryType := req.EntryType
	if entryType == "" {
		entryType = domain.GeneralJournal
	}

	entry := domain.JournalEntry{
		EntryID:        entryID,
		CompanyID:      companyID,
		EntryNumber:    numbering.Next(numbering.JournalPrefix, req.EntryDate),
		EntryDate:      req.EntryDate,
		EntryType:      entryType,
		Description:    req.Description,
		CurrencyCode:   req.CurrencyCode,
		Status:         domain.Draft,
		ReferenceModel: req.ReferenceModel,
		ReferenceID:    req.ReferenceID,
		TotalDebit:     totalDebit,
		TotalCredit:    totalCredit,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.journalRepo.SaveEntry(ctx, entry, lines, nil); err != nil {
		logger.Error("Failed to save draft entry", slog.String("company_id", companyID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save draft entry: %w", err)
	}

	logger.Info("Draft journal entry created", slog.String("entry_id", entry.EntryID), slog.String("company_id", companyID))
	entry.Lines = lines
	return &entry, nil
}

// GetEntryByID retrieves a journal entry with its lines.
func (s *journalService) GetEntryByID(ctx context.Context, companyID string, entryID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	entry, err := s.journalRepo.FindEntryByID(ctx, entryID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.Error("Failed to find entry by ID", slog.String("entry_id", entryID), slog.String("error", err.Error()))
		}
		return nil, fmt.Errorf("failed to find entry %s: %w", entryID, err)
	}
	if entry.CompanyID != companyID {
		// Obscure existence across companies.
		return nil, apperrors.ErrNotFound
	}

	lines, err := s.journalRepo.FindLinesByEntryID(ctx, entryID)
	if err != nil {
		logger.Error("Failed to fetch lines for entry", slog.String("entry_id", entryID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to retrieve lines for entry %s: %w", entryID, apperrors.ErrInternal)
	}
	entry.Lines = lines
	return entry, nil
}

// ListEntries retrieves a token-paginated list of entries in a company.
func (s *journalService) ListEntries(ctx context.Context, companyID string, params dto.ListEntriesParams) (*dto.ListEntriesResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}

	entries, nextToken, err := s.journalRepo.ListEntriesByCompany(ctx, companyID, limit, params.NextToken)
	if err != nil {
		logger.Error("Failed to list entries", slog.String("company_id", companyID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to retrieve entries: %w", err)
	}

	return &dto.ListEntriesResponse{
		Entries:   dto.ToEntryResponses(entries),
		NextToken: nextToken,
	}, nil
}

// UpdateDraftEntry replaces a DRAFT entry's editable fields and lines.
func (s *journalService) UpdateDraftEntry(ctx context.Context, companyID string, entryID string, req dto.UpdateDraftEntryRequest, requestingUserID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	entry, err := s.GetEntryByID(ctx, companyID, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status != domain.Draft {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrConflict, ErrNotDraft)
	}

	now := time.Now().UTC()
	if req.EntryDate != nil {
		entry.EntryDate = *req.EntryDate
	}
	if req.Description != nil {
		entry.Description = *req.Description
	}

	lines := entry.Lines
	if req.Lines != nil {
		lines = buildLines(entryID, req.Lines, requestingUserID, now)
		totalDebit, totalCredit, err := validateLines(lines)
		if err != nil {
			return nil, err
		}
		if _, err := s.fetchAccountsForEntry(ctx, companyID, entry.CurrencyCode, lines); err != nil {
			return nil, err
		}
		entry.TotalDebit = totalDebit
		entry.TotalCredit = totalCredit
	}

	entry.LastUpdatedAt = now
	entry.LastUpdatedBy = requestingUserID

	if err := s.journalRepo.ReplaceDraftLines(ctx, *entry, lines); err != nil {
		logger.Error("Failed to update draft entry", slog.String("entry_id", entryID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to update draft entry: %w", err)
	}

	logger.Info("Draft journal entry updated", slog.String("entry_id", entryID))
	entry.Lines = lines
	return entry, nil
}

// PostEntry validates balance and account references, transitions the entry
// to POSTED and applies balance deltas atomically.
func (s *journalService) PostEntry(ctx context.Context, companyID string, entryID string, requestingUserID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	entry, err := s.GetEntryByID(ctx, companyID, entryID)
	if err != nil {
		return nil, err
	}
	switch entry.Status {
	case domain.Posted:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrConflict, ErrAlreadyPosted)
	case domain.Cancelled:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrConflict, ErrAlreadyCancelled)
	}

	totalDebit, totalCredit, err := validateLines(entry.Lines)
	if err != nil {
		return nil, err
	}

	accounts, err := s.fetchAccountsForEntry(ctx, companyID, entry.CurrencyCode, entry.Lines)
	if err != nil {
		return nil, err
	}

	balanceChanges, err := computeBalanceChanges(entry.Lines, accounts)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry.Status = domain.Posted
	entry.TotalDebit = totalDebit
	entry.TotalCredit = totalCredit
	entry.PostedBy = requestingUserID
	entry.PostedAt = &now
	entry.LastUpdatedAt = now
	entry.LastUpdatedBy = requestingUserID

	if err := s.journalRepo.MarkPosted(ctx, *entry, balanceChanges); err != nil {
		logger.Error("Failed to post entry", slog.String("entry_id", entryID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to post entry: %w", err)
	}

	logger.Info("Journal entry posted", slog.String("entry_id", entryID), slog.String("company_id", companyID))
	return entry, nil
}

// CancelEntry cancels an entry. Drafts are marked CANCELLED directly; posted
// entries are cancelled by posting a reversing entry, keeping the ledger
// append-only. Returns the reversing entry when one was created, otherwise
// the cancelled draft.
func (s *journalService) CancelEntry(ctx context.Context, companyID string, entryID string, requestingUserID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	entry, err := s.GetEntryByID(ctx, companyID, entryID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	switch entry.Status {
	case domain.Cancelled:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrConflict, ErrAlreadyCancelled)

	case domain.Draft:
		if err := s.journalRepo.UpdateEntryStatusAndLinks(ctx, entryID, domain.Cancelled, nil, nil, requestingUserID, now); err != nil {
			logger.Error("Failed to cancel draft entry", slog.String("entry_id", entryID), slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to cancel draft entry: %w", err)
		}
		entry.Status = domain.Cancelled
		entry.LastUpdatedAt = now
		entry.LastUpdatedBy = requestingUserID
		logger.Info("Draft journal entry cancelled", slog.String("entry_id", entryID))
		return entry, nil
	}

	// POSTED: back out every line with a reversing entry.
	if entry.OriginalEntryID != nil {
		return nil, fmt.Errorf("%w: cannot cancel an entry that is itself a reversal", apperrors.ErrConflict)
	}

	accounts, err := s.fetchAccountsForEntry(ctx, companyID, entry.CurrencyCode, entry.Lines)
	if err != nil {
		return nil, err
	}

	reversingID := uuid.NewString()
	reversedLines := accounting.ReverseLines(entry.Lines)
	for i := range reversedLines {
		reversedLines[i].LineID = uuid.NewString()
		reversedLines[i].EntryID = reversingID
		reversedLines[i].AuditFields = domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     requestingUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: requestingUserID,
		}
	}

	balanceChanges, err := computeBalanceChanges(reversedLines, accounts)
	if err != nil {
		return nil, err
	}

	reversing := domain.JournalEntry{
		EntryID:         reversingID,
		CompanyID:       companyID,
		EntryNumber:     numbering.Next(numbering.JournalPrefix, now),
		EntryDate:       now,
		EntryType:       entry.EntryType,
		Description:     fmt.Sprintf("Reversal of entry %s: %s", entry.EntryNumber, entry.Description),
		CurrencyCode:    entry.CurrencyCode,
		Status:          domain.Posted,
		ReferenceModel:  entry.ReferenceModel,
		ReferenceID:     entry.ReferenceID,
		TotalDebit:      entry.TotalCredit,
		TotalCredit:     entry.TotalDebit,
		PostedBy:        requestingUserID,
		PostedAt:        &now,
		OriginalEntryID: &entry.EntryID,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     requestingUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: requestingUserID,
		},
	}

	if err := s.journalRepo.SaveEntry(ctx, reversing, reversedLines, balanceChanges); err != nil {
		logger.Error("Failed to save reversing entry", slog.String("entry_id", entryID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save reversing entry: %w", err)
	}

	if err := s.journalRepo.UpdateEntryStatusAndLinks(ctx, entry.EntryID, domain.Cancelled, &reversingID, nil, requestingUserID, now); err != nil {
		logger.Error("Failed to mark original entry cancelled after reversal", slog.String("entry_id", entryID), slog.String("reversing_entry_id", reversingID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to update original entry status: %w", err)
	}

	logger.Info("Journal entry cancelled via reversal", slog.String("entry_id", entryID), slog.String("reversing_entry_id", reversingID))
	reversing.Lines = reversedLines
	return &reversing, nil
}
