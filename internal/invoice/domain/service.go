// Package domain defines the invoice composition contract.
package domain

import (
	"context"

	billingdomain "github.com/smallbiznis/liblend/internal/billing/domain"
)

// FeeDetails are the invoice line items.
type FeeDetails struct {
	UsageFee    int64 `json:"usage_fee"`
	ShippingFee int64 `json:"shipping_fee"`
}

// ResultStatus reports the outcome of one tenant's composition.
type ResultStatus string

const (
	// ResultIssued: record persisted, document rendered, notification sent.
	ResultIssued ResultStatus = "issued"
	// ResultNotifyFailed: record persisted and binding, but the document or
	// notification step failed. The invoice stands and can be re-sent.
	ResultNotifyFailed ResultStatus = "issued_notify_failed"
	// ResultFailed: no record was persisted for this tenant.
	ResultFailed ResultStatus = "failed"
)

// InvoiceResult is one tenant's outcome inside a composition run.
type InvoiceResult struct {
	InvoiceNumber string       `json:"invoiceNumber"`
	TenantID      string       `json:"companyId"`
	BillingMonth  string       `json:"billingMonth"`
	TotalAmount   int64        `json:"totalAmount"`
	Details       FeeDetails   `json:"details"`
	Status        ResultStatus `json:"status"`
	Reason        string       `json:"reason,omitempty"`
}

// GenerateReport is the per-tenant outcome of a composition run. A single
// tenant's failure never aborts the run.
type GenerateReport struct {
	BillingMonth string          `json:"billingMonth"`
	Invoices     []InvoiceResult `json:"invoices"`
}

// Issued returns only the results whose billing record was persisted.
func (r GenerateReport) Issued() []InvoiceResult {
	issued := make([]InvoiceResult, 0, len(r.Invoices))
	for _, result := range r.Invoices {
		if result.Status != ResultFailed {
			issued = append(issued, result)
		}
	}
	return issued
}

type ListRequest struct {
	BillingMonth string
	Status       string
}

type Service interface {
	// GenerateInvoices aggregates usage for the month and issues one numbered
	// invoice per active tenant, persisting before dispatching notifications.
	GenerateInvoices(ctx context.Context, billingMonth string) (GenerateReport, error)
	// List returns billing records for dashboards and invoice views.
	List(ctx context.Context, req ListRequest) ([]billingdomain.BillingRecord, error)
}
