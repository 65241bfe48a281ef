package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod identifies how a payment was made.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodCheck        PaymentMethod = "CHECK"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodCreditCard   PaymentMethod = "CREDIT_CARD"
	MethodDebitCard    PaymentMethod = "DEBIT_CARD"
	MethodOther        PaymentMethod = "OTHER"
)

// PaymentStatus is the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentCompleted  PaymentStatus = "COMPLETED"
	PaymentFailed     PaymentStatus = "FAILED"
	PaymentRefunded   PaymentStatus = "REFUNDED"
)

// paymentTransitions encodes the allowed status machine:
// PENDING -> PROCESSING -> {COMPLETED, FAILED}; COMPLETED -> REFUNDED.
// FAILED and REFUNDED are terminal.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:    {PaymentProcessing},
	PaymentProcessing: {PaymentCompleted, PaymentFailed},
	PaymentCompleted:  {PaymentRefunded},
}

// CanTransitionPayment reports whether moving from one payment status to
// another is permitted.
func CanTransitionPayment(from, to PaymentStatus) bool {
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Payment represents money received or disbursed, allocatable across
// invoices. Invariant: the sum of its allocations never exceeds Amount.
type Payment struct {
	PaymentID     string        `json:"paymentID"` // Primary Key (UUID)
	CompanyID     string        `json:"companyID"` // Opaque company reference (Not Null)
	PaymentNumber string        `json:"paymentNumber"`
	PaymentDate   time.Time     `json:"paymentDate"`
	Method        PaymentMethod `json:"method"`
	Reference     string        `json:"reference,omitempty"`

	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
	ExchangeRate decimal.Decimal `json:"exchangeRate"` // Snapshot at creation time

	// BankAccountID is the ledger account debited (receipts) or credited
	// (disbursements) when the payment is recorded.
	BankAccountID string `json:"bankAccountID"`

	Status PaymentStatus `json:"status"`
	Notes  string        `json:"notes,omitempty"`

	Allocations []PaymentAllocation `json:"allocations,omitempty"`
	AuditFields
}

// AllocatedTotal sums the loaded allocations. Callers that did not load
// allocations should ask the repository instead.
func (p *Payment) AllocatedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p.Allocations {
		total = total.Add(a.AllocatedAmount)
	}
	return total
}

// PaymentAllocation assigns part of a payment to one invoice's balance due.
// Created only by the payment allocation service; one row per payment-invoice
// pair.
type PaymentAllocation struct {
	AllocationID    string          `json:"allocationID"` // Primary Key (UUID)
	PaymentID       string          `json:"paymentID"`    // FK -> Payment (Not Null)
	InvoiceID       string          `json:"invoiceID"`    // FK -> Invoice (Not Null)
	AllocatedAmount decimal.Decimal `json:"allocatedAmount"`
	AllocatedAt     time.Time       `json:"allocatedAt"`
	AllocatedBy     string          `json:"allocatedBy"`
}
