package pdf

import (
	"context"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateInvoice(ctx context.Context, data InvoiceData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(15,
		text.NewCol(12, "Invoice "+data.InvoiceNumber, props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Center,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Billing month: "+data.BillingMonth, props.Text{Top: 0}),
			text.New("Billed to: "+data.TenantName, props.Text{Top: 5}),
		),
		col.New(6),
	)

	m.AddRow(10,
		text.NewCol(8, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	m.AddRow(10,
		text.NewCol(8, "Usage fee", props.Text{Size: 9}),
		text.NewCol(4, data.UsageFee, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		text.NewCol(8, "Shipping fee", props.Text{Size: 9}),
		text.NewCol(4, data.ShippingFee, props.Text{Size: 9, Align: align.Right}),
	)

	m.AddRow(12,
		text.NewCol(8, "Total due", props.Text{Style: fontstyle.Bold, Size: 11}),
		text.NewCol(4, data.Total, props.Text{Style: fontstyle.Bold, Size: 11, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
