package dto

import (
	"time"

	"github.com/entererp/finance_core_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateEntryLineRequest defines one line of a draft journal entry. Exactly
// one of debit/credit must be positive; the service enforces this beyond the
// binding checks.
type CreateEntryLineRequest struct {
	AccountID   string          `json:"accountID" binding:"required"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
}

// CreateEntryRequest defines the payload for creating a draft journal entry.
type CreateEntryRequest struct {
	EntryDate      time.Time                `json:"entryDate" binding:"required"`
	EntryType      domain.JournalType       `json:"entryType,omitempty"`
	Description    string                   `json:"description" binding:"required"`
	CurrencyCode   string                   `json:"currencyCode" binding:"required,len=3"`
	ReferenceModel string                   `json:"referenceModel,omitempty"`
	ReferenceID    string                   `json:"referenceID,omitempty"`
	Lines          []CreateEntryLineRequest `json:"lines" binding:"required,min=2,dive"`
}

// UpdateDraftEntryRequest replaces a draft entry's editable fields and lines.
type UpdateDraftEntryRequest struct {
	EntryDate   *time.Time               `json:"entryDate,omitempty"`
	Description *string                  `json:"description,omitempty"`
	Lines       []CreateEntryLineRequest `json:"lines,omitempty" binding:"omitempty,min=2,dive"`
}

// EntryLineResponse defines the data returned for a journal line.
type EntryLineResponse struct {
	LineID      string          `json:"lineID"`
	LineNumber  int             `json:"lineNumber"`
	AccountID   string          `json:"accountID"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
}

// EntryResponse defines the data returned for a journal entry.
type EntryResponse struct {
	EntryID          string               `json:"entryID"`
	CompanyID        string               `json:"companyID"`
	EntryNumber      string               `json:"entryNumber"`
	EntryDate        time.Time            `json:"entryDate"`
	EntryType        domain.JournalType   `json:"entryType"`
	Description      string               `json:"description"`
	CurrencyCode     string               `json:"currencyCode"`
	Status           domain.JournalStatus `json:"status"`
	TotalDebit       decimal.Decimal      `json:"totalDebit"`
	TotalCredit      decimal.Decimal      `json:"totalCredit"`
	PostedBy         string               `json:"postedBy,omitempty"`
	PostedAt         *time.Time           `json:"postedAt,omitempty"`
	OriginalEntryID  *string              `json:"originalEntryID,omitempty"`
	ReversingEntryID *string              `json:"reversingEntryID,omitempty"`
	Lines            []EntryLineResponse  `json:"lines,omitempty"`
	CreatedAt        time.Time            `json:"createdAt"`
	CreatedBy        string               `json:"createdBy"`
}

// ListEntriesParams holds query parameters for listing journal entries.
type ListEntriesParams struct {
	Limit     int     `form:"limit"`
	NextToken *string `form:"nextToken"`
}

// ListEntriesResponse wraps a page of journal entries.
type ListEntriesResponse struct {
	Entries   []EntryResponse `json:"entries"`
	NextToken *string         `json:"nextToken,omitempty"`
}

// ToEntryLineResponse converts a domain.JournalLine to its response DTO.
func ToEntryLineResponse(l *domain.JournalLine) EntryLineResponse {
	return EntryLineResponse{
		LineID:      l.LineID,
		LineNumber:  l.LineNumber,
		AccountID:   l.AccountID,
		Debit:       l.Debit,
		Credit:      l.Credit,
		Description: l.Description,
	}
}

// ToEntryResponse converts a domain.JournalEntry to its response DTO.
func ToEntryResponse(e *domain.JournalEntry) EntryResponse {
	resp := EntryResponse{
		EntryID:          e.EntryID,
		CompanyID:        e.CompanyID,
		EntryNumber:      e.EntryNumber,
		EntryDate:        e.EntryDate,
		EntryType:        e.EntryType,
		Description:      e.Description,
		CurrencyCode:     e.CurrencyCode,
		Status:           e.Status,
		TotalDebit:       e.TotalDebit,
		TotalCredit:      e.TotalCredit,
		PostedBy:         e.PostedBy,
		PostedAt:         e.PostedAt,
		OriginalEntryID:  e.OriginalEntryID,
		ReversingEntryID: e.ReversingEntryID,
		CreatedAt:        e.CreatedAt,
		CreatedBy:        e.CreatedBy,
	}
	if len(e.Lines) > 0 {
		resp.Lines = make([]EntryLineResponse, len(e.Lines))
		for i := range e.Lines {
			resp.Lines[i] = ToEntryLineResponse(&e.Lines[i])
		}
	}
	return resp
}

// ToEntryResponses converts a slice of journal entries.
func ToEntryResponses(entries []domain.JournalEntry) []EntryResponse {
	responses := make([]EntryResponse, len(entries))
	for i := range entries {
		responses[i] = ToEntryResponse(&entries[i])
	}
	return responses
}
