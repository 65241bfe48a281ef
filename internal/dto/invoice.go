package dto

import (
	"time"

	"github.com/entererp/finance_core_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateInvoiceLineRequest defines one line of a draft invoice.
type CreateInvoiceLineRequest struct {
	Description      string          `json:"description" binding:"required"`
	Quantity         decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice        decimal.Decimal `json:"unitPrice" binding:"required"`
	DiscountPercent  decimal.Decimal `json:"discountPercent"`
	TaxRate          decimal.Decimal `json:"taxRate"`
	RevenueAccountID string          `json:"revenueAccountID" binding:"required"`
}

// CreateInvoiceRequest defines the payload for creating a draft invoice.
type CreateInvoiceRequest struct {
	InvoiceType         domain.InvoiceType         `json:"invoiceType" binding:"required"`
	InvoiceDate         time.Time                  `json:"invoiceDate" binding:"required"`
	DueDate             time.Time                  `json:"dueDate" binding:"required"`
	CurrencyCode        string                     `json:"currencyCode" binding:"required,len=3"`
	DiscountAmount      decimal.Decimal            `json:"discountAmount"`
	ReceivableAccountID string                     `json:"receivableAccountID" binding:"required"`
	TaxAccountID        string                     `json:"taxAccountID,omitempty"`
	Notes               string                     `json:"notes,omitempty"`
	Lines               []CreateInvoiceLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// UpdateDraftInvoiceRequest replaces a draft invoice's editable fields and
// lines. Totals are recomputed from the lines, never accepted from the caller.
type UpdateDraftInvoiceRequest struct {
	InvoiceDate    *time.Time                 `json:"invoiceDate,omitempty"`
	DueDate        *time.Time                 `json:"dueDate,omitempty"`
	DiscountAmount *decimal.Decimal           `json:"discountAmount,omitempty"`
	Notes          *string                    `json:"notes,omitempty"`
	Lines          []CreateInvoiceLineRequest `json:"lines,omitempty" binding:"omitempty,min=1,dive"`
}

// InvoiceLineResponse defines the data returned for an invoice line.
type InvoiceLineResponse struct {
	LineID           string          `json:"lineID"`
	LineNumber       int             `json:"lineNumber"`
	Description      string          `json:"description"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unitPrice"`
	DiscountPercent  decimal.Decimal `json:"discountPercent"`
	TaxRate          decimal.Decimal `json:"taxRate"`
	LineTotal        decimal.Decimal `json:"lineTotal"`
	TaxAmount        decimal.Decimal `json:"taxAmount"`
	RevenueAccountID string          `json:"revenueAccountID"`
}

// InvoiceResponse defines the data returned for an invoice. Overdue is
// derived from the due date at response time.
type InvoiceResponse struct {
	InvoiceID      string                `json:"invoiceID"`
	CompanyID      string                `json:"companyID"`
	InvoiceType    domain.InvoiceType    `json:"invoiceType"`
	InvoiceNumber  string                `json:"invoiceNumber"`
	InvoiceDate    time.Time             `json:"invoiceDate"`
	DueDate        time.Time             `json:"dueDate"`
	Subtotal       decimal.Decimal       `json:"subtotal"`
	TaxAmount      decimal.Decimal       `json:"taxAmount"`
	DiscountAmount decimal.Decimal       `json:"discountAmount"`
	TotalAmount    decimal.Decimal       `json:"totalAmount"`
	PaidAmount     decimal.Decimal       `json:"paidAmount"`
	BalanceDue     decimal.Decimal       `json:"balanceDue"`
	CurrencyCode   string                `json:"currencyCode"`
	ExchangeRate   decimal.Decimal       `json:"exchangeRate"`
	Status         domain.InvoiceStatus  `json:"status"`
	Overdue        bool                  `json:"overdue"`
	Notes          string                `json:"notes,omitempty"`
	Lines          []InvoiceLineResponse `json:"lines,omitempty"`
	CreatedAt      time.Time             `json:"createdAt"`
	CreatedBy      string                `json:"createdBy"`
}

// InvoiceStatusResponse is the lightweight settlement view of an invoice.
type InvoiceStatusResponse struct {
	InvoiceID  string               `json:"invoiceID"`
	Status     domain.InvoiceStatus `json:"status"`
	PaidAmount decimal.Decimal      `json:"paidAmount"`
	BalanceDue decimal.Decimal      `json:"balanceDue"`
	Overdue    bool                 `json:"overdue"`
}

// ListInvoicesResponse wraps a page of invoices.
type ListInvoicesResponse struct {
	Invoices  []InvoiceResponse `json:"invoices"`
	NextToken *string           `json:"nextToken,omitempty"`
}

// ToInvoiceLineResponse converts a domain.InvoiceLine to its response DTO.
func ToInvoiceLineResponse(l *domain.InvoiceLine) InvoiceLineResponse {
	return InvoiceLineResponse{
		LineID:           l.LineID,
		LineNumber:       l.LineNumber,
		Description:      l.Description,
		Quantity:         l.Quantity,
		UnitPrice:        l.UnitPrice,
		DiscountPercent:  l.DiscountPercent,
		TaxRate:          l.TaxRate,
		LineTotal:        l.LineTotal,
		TaxAmount:        l.TaxAmount,
		RevenueAccountID: l.RevenueAccountID,
	}
}

// ToInvoiceResponse converts a domain.Invoice to its response DTO, deriving
// the overdue flag against now.
func ToInvoiceResponse(inv *domain.Invoice, now time.Time) InvoiceResponse {
	resp := InvoiceResponse{
		InvoiceID:      inv.InvoiceID,
		CompanyID:      inv.CompanyID,
		InvoiceType:    inv.InvoiceType,
		InvoiceNumber:  inv.InvoiceNumber,
		InvoiceDate:    inv.InvoiceDate,
		DueDate:        inv.DueDate,
		Subtotal:       inv.Subtotal,
		TaxAmount:      inv.TaxAmount,
		DiscountAmount: inv.DiscountAmount,
		TotalAmount:    inv.TotalAmount,
		PaidAmount:     inv.PaidAmount,
		BalanceDue:     inv.BalanceDue,
		CurrencyCode:   inv.CurrencyCode,
		ExchangeRate:   inv.ExchangeRate,
		Status:         inv.Status,
		Overdue:        inv.IsOverdue(now),
		Notes:          inv.Notes,
		CreatedAt:      inv.CreatedAt,
		CreatedBy:      inv.CreatedBy,
	}
	if len(inv.Lines) > 0 {
		resp.Lines = make([]InvoiceLineResponse, len(inv.Lines))
		for i := range inv.Lines {
			resp.Lines[i] = ToInvoiceLineResponse(&inv.Lines[i])
		}
	}
	return resp
}

// ToInvoiceResponses converts a slice of invoices.
func ToInvoiceResponses(invoices []domain.Invoice, now time.Time) []InvoiceResponse {
	responses := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		responses[i] = ToInvoiceResponse(&invoices[i], now)
	}
	return responses
}
