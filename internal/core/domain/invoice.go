package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceType distinguishes the direction and sign of an invoice document.
type InvoiceType string

const (
	SalesInvoice    InvoiceType = "SALES"
	PurchaseInvoice InvoiceType = "PURCHASE"
	CreditNote      InvoiceType = "CREDIT_NOTE"
	DebitNote       InvoiceType = "DEBIT_NOTE"
)

// InvoiceStatus is the persisted lifecycle state of an invoice.
// OVERDUE is deliberately absent: it is a read-time label derived from the
// due date, never stored (see IsOverdue), so no background process is needed
// to keep it current.
type InvoiceStatus string

const (
	InvoiceDraft         InvoiceStatus = "DRAFT"
	InvoiceSent          InvoiceStatus = "SENT"
	InvoicePartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoicePaid          InvoiceStatus = "PAID"
	InvoiceCancelled     InvoiceStatus = "CANCELLED"
)

// Invoice represents a sales or purchase invoice with cached totals.
// Invariants after any committed operation:
//
//	TotalAmount = Subtotal + TaxAmount - DiscountAmount
//	BalanceDue  = TotalAmount - PaidAmount
//	PaidAmount  = sum of allocated amounts over its payment allocations
type Invoice struct {
	InvoiceID     string      `json:"invoiceID"` // Primary Key (UUID)
	CompanyID     string      `json:"companyID"` // Opaque company reference (Not Null)
	InvoiceType   InvoiceType `json:"invoiceType"`
	InvoiceNumber string      `json:"invoiceNumber"` // Unique, human-facing
	InvoiceDate   time.Time   `json:"invoiceDate"`
	DueDate       time.Time   `json:"dueDate"`

	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	PaidAmount     decimal.Decimal `json:"paidAmount"`
	BalanceDue     decimal.Decimal `json:"balanceDue"`

	CurrencyCode string          `json:"currencyCode"`
	ExchangeRate decimal.Decimal `json:"exchangeRate"` // Snapshot at creation time

	Status InvoiceStatus `json:"status"`

	// Ledger mapping: the receivable (sales) or payable (purchase) control
	// account, and the tax liability account credited on issue.
	ReceivableAccountID string `json:"receivableAccountID"`
	TaxAccountID        string `json:"taxAccountID,omitempty"`

	Notes string `json:"notes,omitempty"`

	// Version supports optimistic concurrency on paid_amount/balance_due
	// updates; repositories bump it on every committed mutation.
	Version int64 `json:"version"`

	Lines []InvoiceLine `json:"lines,omitempty"`
	AuditFields
}

// IsOverdue reports whether the invoice is past due and still collectible.
// Derived on read; never persisted as a status.
func (i *Invoice) IsOverdue(now time.Time) bool {
	if i.Status == InvoicePaid || i.Status == InvoiceCancelled {
		return false
	}
	return i.DueDate.Before(now.Truncate(24 * time.Hour))
}

// InvoiceLine is a single invoice line with derived amounts.
// LineTotal and TaxAmount are computed from quantity/price/discount/tax and
// rounded half-up to 2 decimal places before persistence.
type InvoiceLine struct {
	LineID          string          `json:"lineID"`    // Primary Key (UUID)
	InvoiceID       string          `json:"invoiceID"` // FK -> Invoice (Not Null)
	LineNumber      int             `json:"lineNumber"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	TaxRate         decimal.Decimal `json:"taxRate"`
	LineTotal       decimal.Decimal `json:"lineTotal"`
	TaxAmount       decimal.Decimal `json:"taxAmount"`
	// RevenueAccountID maps the line to its revenue (sales) or expense
	// (purchase) account for ledger posting.
	RevenueAccountID string `json:"revenueAccountID"`
}
