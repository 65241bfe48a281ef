package dto

import (
	"time"

	"github.com/entererp/finance_core_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreatePaymentRequest defines the payload for registering a payment.
type CreatePaymentRequest struct {
	PaymentDate   time.Time            `json:"paymentDate" binding:"required"`
	Method        domain.PaymentMethod `json:"method" binding:"required"`
	Reference     string               `json:"reference,omitempty"`
	Amount        decimal.Decimal      `json:"amount" binding:"required"`
	CurrencyCode  string               `json:"currencyCode" binding:"required,len=3"`
	BankAccountID string               `json:"bankAccountID" binding:"required"`
	Notes         string               `json:"notes,omitempty"`
}

// AllocationRequest assigns part of a payment to one invoice.
type AllocationRequest struct {
	InvoiceID string          `json:"invoiceID" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
}

// RecordPaymentRequest is the all-or-nothing receive-and-allocate payload.
type RecordPaymentRequest struct {
	Payment     CreatePaymentRequest `json:"payment" binding:"required"`
	Allocations []AllocationRequest  `json:"allocations" binding:"required,min=1,dive"`
}

// UpdatePaymentStatusRequest requests a payment status transition.
type UpdatePaymentStatusRequest struct {
	Status domain.PaymentStatus `json:"status" binding:"required"`
}

// AllocationResponse defines the data returned for a payment allocation.
type AllocationResponse struct {
	AllocationID    string          `json:"allocationID"`
	PaymentID       string          `json:"paymentID"`
	InvoiceID       string          `json:"invoiceID"`
	AllocatedAmount decimal.Decimal `json:"allocatedAmount"`
	AllocatedAt     time.Time       `json:"allocatedAt"`
	AllocatedBy     string          `json:"allocatedBy"`
}

// PaymentResponse defines the data returned for a payment.
type PaymentResponse struct {
	PaymentID     string               `json:"paymentID"`
	CompanyID     string               `json:"companyID"`
	PaymentNumber string               `json:"paymentNumber"`
	PaymentDate   time.Time            `json:"paymentDate"`
	Method        domain.PaymentMethod `json:"method"`
	Reference     string               `json:"reference,omitempty"`
	Amount        decimal.Decimal      `json:"amount"`
	CurrencyCode  string               `json:"currencyCode"`
	ExchangeRate  decimal.Decimal      `json:"exchangeRate"`
	BankAccountID string               `json:"bankAccountID"`
	Status        domain.PaymentStatus `json:"status"`
	Notes         string               `json:"notes,omitempty"`
	Allocations   []AllocationResponse `json:"allocations,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
	CreatedBy     string               `json:"createdBy"`
}

// ListPaymentsResponse wraps a page of payments.
type ListPaymentsResponse struct {
	Payments  []PaymentResponse `json:"payments"`
	NextToken *string           `json:"nextToken,omitempty"`
}

// ToAllocationResponse converts a domain.PaymentAllocation to its response DTO.
func ToAllocationResponse(a *domain.PaymentAllocation) AllocationResponse {
	return AllocationResponse{
		AllocationID:    a.AllocationID,
		PaymentID:       a.PaymentID,
		InvoiceID:       a.InvoiceID,
		AllocatedAmount: a.AllocatedAmount,
		AllocatedAt:     a.AllocatedAt,
		AllocatedBy:     a.AllocatedBy,
	}
}

// ToAllocationResponses converts a slice of allocations.
func ToAllocationResponses(allocations []domain.PaymentAllocation) []AllocationResponse {
	responses := make([]AllocationResponse, len(allocations))
	for i := range allocations {
		responses[i] = ToAllocationResponse(&allocations[i])
	}
	return responses
}

// ToPaymentResponse converts a domain.Payment to its response DTO.
func ToPaymentResponse(p *domain.Payment) PaymentResponse {
	resp := PaymentResponse{
		PaymentID:     p.PaymentID,
		CompanyID:     p.CompanyID,
		PaymentNumber: p.PaymentNumber,
		PaymentDate:   p.PaymentDate,
		Method:        p.Method,
		Reference:     p.Reference,
		Amount:        p.Amount,
		CurrencyCode:  p.CurrencyCode,
		ExchangeRate:  p.ExchangeRate,
		BankAccountID: p.BankAccountID,
		Status:        p.Status,
		Notes:         p.Notes,
		CreatedAt:     p.CreatedAt,
		CreatedBy:     p.CreatedBy,
	}
	if len(p.Allocations) > 0 {
		resp.Allocations = ToAllocationResponses(p.Allocations)
	}
	return resp
}

// ToPaymentResponses converts a slice of payments.
func ToPaymentResponses(payments []domain.Payment) []PaymentResponse {
	responses := make([]PaymentResponse, len(payments))
	for i := range payments {
		responses[i] = ToPaymentResponse(&payments[i])
	}
	return responses
}
