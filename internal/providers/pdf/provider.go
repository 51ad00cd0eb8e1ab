package pdf

import "context"

// InvoiceData is the structured content rendered into the invoice artifact.
type InvoiceData struct {
	InvoiceNumber string
	BillingMonth  string
	TenantName    string

	UsageFee    string
	ShippingFee string
	Total       string
}

type Provider interface {
	GenerateInvoice(ctx context.Context, data InvoiceData) ([]byte, error)
}

type NoOpProvider struct{}

func (p *NoOpProvider) GenerateInvoice(ctx context.Context, data InvoiceData) ([]byte, error) {
	return nil, nil
}
