package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrialBalanceRow is one account's debit/credit column in a trial balance.
type TrialBalanceRow struct {
	AccountID     string          `json:"accountID"`
	AccountCode   string          `json:"accountCode"`
	AccountName   string          `json:"accountName"`
	AccountType   string          `json:"accountType"`
	DebitBalance  decimal.Decimal `json:"debitBalance"`
	CreditBalance decimal.Decimal `json:"creditBalance"`
}

// TrialBalanceResponse is a point-in-time trial balance. Balanced is true
// when total debits equal total credits, which holds whenever every posted
// entry was balanced.
type TrialBalanceResponse struct {
	CompanyID   string            `json:"companyID"`
	AsOf        time.Time         `json:"asOf"`
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"totalDebit"`
	TotalCredit decimal.Decimal   `json:"totalCredit"`
	Balanced    bool              `json:"balanced"`
}

// AgedReceivablesBucket is one aging band of open invoice balances.
type AgedReceivablesBucket struct {
	Label string          `json:"label"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// AgedReceivablesResponse groups open invoice balances by days past due:
// current, 1-30, 31-60, 61-90, 90+.
type AgedReceivablesResponse struct {
	CompanyID string                  `json:"companyID"`
	AsOf      time.Time               `json:"asOf"`
	Buckets   []AgedReceivablesBucket `json:"buckets"`
	Total     decimal.Decimal         `json:"total"`
}
