package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// JournalStatus indicates the state of a journal entry.
type JournalStatus string

const (
	Draft     JournalStatus = "DRAFT"
	Posted    JournalStatus = "POSTED"
	Cancelled JournalStatus = "CANCELLED"
)

// JournalType categorizes the business event behind a journal entry.
type JournalType string

const (
	GeneralJournal   JournalType = "GENERAL"
	SalesJournal     JournalType = "SALES"
	PurchaseJournal  JournalType = "PURCHASE"
	CashReceipt      JournalType = "CASH_RECEIPT"
	CashDisbursement JournalType = "CASH_DISBURSEMENT"
	AdjustingEntry   JournalType = "ADJUSTING"
	ClosingEntry     JournalType = "CLOSING"
)

// JournalEntry represents a single financial event composed of multiple lines.
// Lines may be edited only while the entry is DRAFT. Once POSTED the entry is
// immutable; cancellation posts a reversing entry rather than mutating history.
// Invariant (POSTED only): TotalDebit equals TotalCredit equals the sum of
// the respective line amounts.
type JournalEntry struct {
	EntryID      string        `json:"entryID"`     // Primary Key (UUID)
	CompanyID    string        `json:"companyID"`   // Opaque company reference (Not Null)
	EntryNumber  string        `json:"entryNumber"` // Unique, human-facing (e.g., "JE-20260301-0001")
	EntryDate    time.Time     `json:"entryDate"`
	EntryType    JournalType   `json:"entryType"`
	Description  string        `json:"description"`
	CurrencyCode string        `json:"currencyCode"`
	Status       JournalStatus `json:"status"`

	// Reference links the entry back to the document that produced it
	// (invoice, payment). Opaque to the ledger itself.
	ReferenceModel string `json:"referenceModel,omitempty"`
	ReferenceID    string `json:"referenceID,omitempty"`

	TotalDebit  decimal.Decimal `json:"totalDebit"`
	TotalCredit decimal.Decimal `json:"totalCredit"`

	PostedBy string     `json:"postedBy,omitempty"`
	PostedAt *time.Time `json:"postedAt,omitempty"`

	// Reversal linkage. OriginalEntryID is set on the reversing entry,
	// ReversingEntryID on the cancelled original.
	OriginalEntryID  *string `json:"originalEntryID,omitempty"`
	ReversingEntryID *string `json:"reversingEntryID,omitempty"`

	Lines []JournalLine `json:"lines,omitempty"`
	AuditFields
}

// IsBalanced reports whether the cached totals match.
func (e *JournalEntry) IsBalanced() bool {
	return e.TotalDebit.Equal(e.TotalCredit)
}

// JournalLine is a single line of a journal entry affecting exactly one
// account. Exactly one of Debit/Credit is nonzero; both are non-negative.
type JournalLine struct {
	LineID      string          `json:"lineID"`  // Primary Key (UUID)
	EntryID     string          `json:"entryID"` // FK -> JournalEntry (Not Null)
	LineNumber  int             `json:"lineNumber"`
	AccountID   string          `json:"accountID"` // FK -> Account (Not Null)
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
	AuditFields
}

// IsDebit reports whether this line carries a debit amount.
func (l *JournalLine) IsDebit() bool {
	return l.Debit.IsPositive()
}

// Amount returns the nonzero side of the line.
func (l *JournalLine) Amount() decimal.Decimal {
	if l.IsDebit() {
		return l.Debit
	}
	return l.Credit
}
