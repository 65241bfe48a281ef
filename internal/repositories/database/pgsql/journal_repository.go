package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/entererp/finance_core_app/internal/apperrors"
	"github.com/entererp/finance_core_app/internal/core/domain"
	portsrepo "github.com/entererp/finance_core_app/internal/core/ports/repositories"
	"github.com/entererp/finance_core_app/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PgxJournalRepository struct {
	BaseRepository
}

// newPgxJournalRepository creates a new repository for journal entry data.
func newPgxJournalRepository(pool *pgxpool.Pool) portsrepo.JournalRepositoryFacade {
	return &PgxJournalRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxJournalRepository implements portsrepo.JournalRepositoryWithTx
var _ portsrepo.JournalRepositoryWithTx = (*PgxJournalRepository)(nil)

const entryColumns = `
	entry_id, company_id, entry_number, entry_date, entry_type, description,
	currency_code, status, reference_model, reference_id, total_debit, total_credit,
	posted_by, posted_at, original_entry_id, reversing_entry_id,
	created_at, created_by, last_updated_at, last_updated_by`

func scanEntry(row pgx.Row) (*domain.JournalEntry, error) {
	var e domain.JournalEntry
	var refModel, refID, postedBy sql.NullString
	err := row.Scan(
		&e.EntryID,
		&e.CompanyID,
		&e.EntryNumber,
		&e.EntryDate,
		&e.EntryType,
		&e.Description,
		&e.CurrencyCode,
		&e.Status,
		&refModel,
		&refID,
		&e.TotalDebit,
		&e.TotalCredit,
		&postedBy,
		&e.PostedAt,
		&e.OriginalEntryID,
		&e.ReversingEntryID,
		&e.CreatedAt,
		&e.CreatedBy,
		&e.LastUpdatedAt,
		&e.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	e.ReferenceModel = refModel.String
	e.ReferenceID = refID.String
	e.PostedBy = postedBy.String
	return &e, nil
}

// insertEntryTx inserts a journal entry header within the transaction.
func insertEntryTx(ctx context.Context, tx pgx.Tx, entry domain.JournalEntry) error {
	query := `
		INSERT INTO journal_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20);
	`
	var postedBy sql.NullString
	if entry.PostedBy != "" {
		postedBy = sql.NullString{String: entry.PostedBy, Valid: true}
	}
	_, err := tx.Exec(ctx, query,
		entry.EntryID,
		entry.CompanyID,
		entry.EntryNumber,
		entry.EntryDate,
		entry.EntryType,
		entry.Description,
		entry.CurrencyCode,
		entry.Status,
		nullableString(entry.ReferenceModel),
		nullableString(entry.ReferenceID),
		entry.TotalDebit,
		entry.TotalCredit,
		postedBy,
		entry.PostedAt,
		entry.OriginalEntryID,
		entry.ReversingEntryID,
		entry.CreatedAt,
		entry.CreatedBy,
		entry.LastUpdatedAt,
		entry.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: entry number %s already exists", apperrors.ErrDuplicate, entry.EntryNumber)
		}
		return fmt.Errorf("failed to insert journal entry %s: %w", entry.EntryID, err)
	}
	return nil
}

// insertLinesTx batch-inserts journal lines within the transaction.
func insertLinesTx(ctx context.Context, tx pgx.Tx, lines []domain.JournalLine) error {
	if len(lines) == 0 {
		return nil
	}
	query := `
		INSERT INTO journal_entry_lines (line_id, entry_id, line_number, account_id, debit, credit, description, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	batch := &pgx.Batch{}
	for _, line := range lines {
		batch.Queue(query,
			line.LineID,
			line.EntryID,
			line.LineNumber,
			line.AccountID,
			line.Debit,
			line.Credit,
			nullableString(line.Description),
			line.CreatedAt,
			line.CreatedBy,
			line.LastUpdatedAt,
			line.LastUpdatedBy,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for range lines {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert journal line: %w", err)
		}
	}
	return results.Close()
}

func deleteLinesTx(ctx context.Context, tx pgx.Tx, entryID string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM journal_entry_lines WHERE entry_id = $1;`, entryID); err != nil {
		return fmt.Errorf("failed to delete lines of entry %s: %w", entryID, err)
	}
	return nil
}

// SaveEntry persists an entry and its lines. A non-nil balanceChanges map
// means the entry arrives POSTED: the affected accounts are locked and their
// balances adjusted within the same transaction, so the ledger and the cached
// balances can never diverge.
func (r *PgxJournalRepository) SaveEntry(ctx context.Context, entry domain.JournalEntry, lines []domain.JournalLine, balanceChanges map[string]decimal.Decimal) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	if balanceChanges != nil {
		accountIDs := make([]string, 0, len(balanceChanges))
		for id := range balanceChanges {
			accountIDs = append(accountIDs, id)
		}
		if _, err := lockAccountsForUpdateTx(ctx, tx, accountIDs); err != nil {
			return err
		}
	}

	if err := insertEntryTx(ctx, tx, entry); err != nil {
		return err
	}
	if err := insertLinesTx(ctx, tx, lines); err != nil {
		return err
	}

	if balanceChanges != nil {
		if err := applyBalanceDeltasTx(ctx, tx, balanceChanges, entry.CreatedBy, entry.LastUpdatedAt); err != nil {
			return err
		}
	}

	return r.Commit(ctx, tx)
}

// ReplaceDraftLines replaces the full line set of a DRAFT entry and rewrites
// the header's mutable fields.
func (r *PgxJournalRepository) ReplaceDraftLines(ctx context.Context, entry domain.JournalEntry, lines []domain.JournalLine) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	query := `
		UPDATE journal_entries
		SET entry_date = $2, entry_type = $3, description = $4, currency_code = $5,
		    total_debit = $6, total_credit = $7, last_updated_at = $8, last_updated_by = $9
		WHERE entry_id = $1 AND status = 'DRAFT';
	`
	cmdTag, err := tx.Exec(ctx, query,
		entry.EntryID,
		entry.EntryDate,
		entry.EntryType,
		entry.Description,
		entry.CurrencyCode,
		entry.TotalDebit,
		entry.TotalCredit,
		entry.LastUpdatedAt,
		entry.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update draft entry %s: %w", entry.EntryID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: entry %s is not an editable draft", apperrors.ErrConflict, entry.EntryID)
	}

	if err := deleteLinesTx(ctx, tx, entry.EntryID); err != nil {
		return err
	}
	if err := insertLinesTx(ctx, tx, lines); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// MarkPosted transitions a DRAFT entry to POSTED and applies the balance
// deltas atomically.
func (r *PgxJournalRepository) MarkPosted(ctx context.Context, entry domain.JournalEntry, balanceChanges map[string]decimal.Decimal) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	accountIDs := make([]string, 0, len(balanceChanges))
	for id := range balanceChanges {
		accountIDs = append(accountIDs, id)
	}
	if _, err := lockAccountsForUpdateTx(ctx, tx, accountIDs); err != nil {
		return err
	}

	query := `
		UPDATE journal_entries
		SET status = 'POSTED', total_debit = $2, total_credit = $3,
		    posted_by = $4, posted_at = $5, last_updated_at = $6, last_updated_by = $7
		WHERE entry_id = $1 AND status = 'DRAFT';
	`
	cmdTag, err := tx.Exec(ctx, query,
		entry.EntryID,
		entry.TotalDebit,
		entry.TotalCredit,
		entry.PostedBy,
		entry.PostedAt,
		entry.LastUpdatedAt,
		entry.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to post entry %s: %w", entry.EntryID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: entry %s is no longer a draft", apperrors.ErrConflict, entry.EntryID)
	}

	if err := applyBalanceDeltasTx(ctx, tx, balanceChanges, entry.LastUpdatedBy, entry.LastUpdatedAt); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// UpdateEntryStatusAndLinks updates the status and reversal linkage of an
// entry.
func (r *PgxJournalRepository) UpdateEntryStatusAndLinks(ctx context.Context, entryID string, status domain.JournalStatus, reversingEntryID *string, originalEntryID *string, updatedByUserID string, updatedAt time.Time) error {
	query := `
		UPDATE journal_entries
		SET status = $2,
		    reversing_entry_id = COALESCE($3, reversing_entry_id),
		    original_entry_id = COALESCE($4, original_entry_id),
		    last_updated_at = $5, last_updated_by = $6
		WHERE entry_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, entryID, status, reversingEntryID, originalEntryID, updatedAt, updatedByUserID)
	if err != nil {
		return fmt.Errorf("failed to update status of entry %s: %w", entryID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// FindEntryByID retrieves a specific journal entry header by its ID.
func (r *PgxJournalRepository) FindEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE entry_id = $1;`
	entry, err := scanEntry(r.Pool.QueryRow(ctx, query, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find entry %s: %w", entryID, err)
	}
	return entry, nil
}

// FindLinesByEntryID retrieves all lines of a journal entry in line order.
func (r *PgxJournalRepository) FindLinesByEntryID(ctx context.Context, entryID string) ([]domain.JournalLine, error) {
	query := `
		SELECT line_id, entry_id, line_number, account_id, debit, credit, description,
		       created_at, created_by, last_updated_at, last_updated_by
		FROM journal_entry_lines
		WHERE entry_id = $1
		ORDER BY line_number;
	`
	rows, err := r.Pool.Query(ctx, query, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines of entry %s: %w", entryID, err)
	}
	defer rows.Close()

	return scanJournalLines(rows)
}

// FindPostedLinesByAccountID retrieves every line of a POSTED entry that
// references the account.
func (r *PgxJournalRepository) FindPostedLinesByAccountID(ctx context.Context, accountID string) ([]domain.JournalLine, error) {
	query := `
		SELECT l.line_id, l.entry_id, l.line_number, l.account_id, l.debit, l.credit, l.description,
		       l.created_at, l.created_by, l.last_updated_at, l.last_updated_by
		FROM journal_entry_lines l
		JOIN journal_entries e ON e.entry_id = l.entry_id
		WHERE l.account_id = $1 AND e.status = 'POSTED'
		ORDER BY e.entry_date, l.created_at;
	`
	rows, err := r.Pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query posted lines of account %s: %w", accountID, err)
	}
	defer rows.Close()

	return scanJournalLines(rows)
}

func scanJournalLines(rows pgx.Rows) ([]domain.JournalLine, error) {
	lines := []domain.JournalLine{}
	for rows.Next() {
		var l domain.JournalLine
		var description sql.NullString
		if err := rows.Scan(
			&l.LineID,
			&l.EntryID,
			&l.LineNumber,
			&l.AccountID,
			&l.Debit,
			&l.Credit,
			&description,
			&l.CreatedAt,
			&l.CreatedBy,
			&l.LastUpdatedAt,
			&l.LastUpdatedBy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan journal line row: %w", err)
		}
		l.Description = description.String
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal line rows: %w", err)
	}
	return lines, nil
}

// ListEntriesByCompany retrieves a token-paginated list of entries ordered by
// entry date then creation time, newest first.
func (r *PgxJournalRepository) ListEntriesByCompany(ctx context.Context, companyID string, limit int, nextToken *string) ([]domain.JournalEntry, *string, error) {
	fetchLimit := limit + 1
	args := []any{companyID, fetchLimit}
	query := `
		SELECT ` + entryColumns + `
		FROM journal_entries
		WHERE company_id = $1
	`

	if nextToken != nil && *nextToken != "" {
		entryDate, createdAt, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
		}
		query += ` AND (entry_date, created_at) < ($3, $4)`
		args = append(args, entryDate, createdAt)
	}
	query += `
		ORDER BY entry_date DESC, created_at DESC
		LIMIT $2;
	`

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query entries for company %s: %w", companyID, err)
	}
	defer rows.Close()

	entries := []domain.JournalEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating entry rows: %w", err)
	}

	var newNextToken *string
	if len(entries) == fetchLimit {
		entries = entries[:limit]
		last := entries[len(entries)-1]
		token := pagination.EncodeToken(last.EntryDate, last.CreatedAt)
		newNextToken = &token
	}
	return entries, newNextToken, nil
}
