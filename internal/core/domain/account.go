package domain

import (
	"github.com/shopspring/decimal"
)

// AccountType defines the fundamental accounting type of an account.
type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Revenue   AccountType = "REVENUE"
	Expense   AccountType = "EXPENSE"
)

// AccountSubtype refines an AccountType for reporting purposes.
type AccountSubtype string

const (
	CurrentAsset        AccountSubtype = "CURRENT_ASSET"
	FixedAsset          AccountSubtype = "FIXED_ASSET"
	CurrentLiability    AccountSubtype = "CURRENT_LIABILITY"
	LongTermLiability   AccountSubtype = "LONG_TERM_LIABILITY"
	OwnerEquity         AccountSubtype = "OWNER_EQUITY"
	OperatingRevenue    AccountSubtype = "OPERATING_REVENUE"
	NonOperatingRevenue AccountSubtype = "NON_OPERATING_REVENUE"
	OperatingExpense    AccountSubtype = "OPERATING_EXPENSE"
	NonOperatingExpense AccountSubtype = "NON_OPERATING_EXPENSE"
)

// Account represents a node of a company's chart of accounts.
// Invariant: CurrentBalance equals OpeningBalance plus the signed sum of all
// posted journal line amounts against this account. The balance is mutated
// exclusively inside the journal posting transaction.
type Account struct {
	AccountID       string          `json:"accountID"`   // Primary Key (UUID)
	CompanyID       string          `json:"companyID"`   // Opaque company reference (Not Null)
	AccountCode     string          `json:"accountCode"` // Unique within company
	Name            string          `json:"name"`
	AccountType     AccountType     `json:"accountType"`
	AccountSubtype  AccountSubtype  `json:"accountSubtype"`
	ParentAccountID string          `json:"parentAccountID"` // Nullable self-reference, acyclic
	CurrencyCode    string          `json:"currencyCode"`
	Description     string          `json:"description"`
	OpeningBalance  decimal.Decimal `json:"openingBalance"`
	CurrentBalance  decimal.Decimal `json:"currentBalance"`
	IsActive        bool            `json:"isActive"`
	IsSystem        bool            `json:"isSystem"` // Seeded accounts that cannot be deactivated
	AuditFields
}

// ValidAccountType reports whether t is one of the five fundamental types.
func ValidAccountType(t AccountType) bool {
	switch t {
	case Asset, Liability, Equity, Revenue, Expense:
		return true
	}
	return false
}
