package pdf

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	marotoconfig "github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/smallbiznis/berair/internal/billing"
	billingdomain "github.com/smallbiznis/berair/internal/billing/domain"
	"github.com/smallbiznis/berair/internal/config"
	"go.uber.org/zap"
)

type PDFProvider struct {
	log    *zap.Logger
	issuer string
	loc    *time.Location
}

func New(cfg config.Config, log *zap.Logger) Provider {
	issuer := cfg.AppName
	if issuer == "" {
		issuer = "berair"
	}
	return &PDFProvider{
		log:    log.Named("providers.pdf"),
		issuer: issuer,
		loc:    cfg.Location(),
	}
}

func (p *PDFProvider) GenerateInvoice(ctx context.Context, inv *billingdomain.Invoice) (io.Reader, error) {
	if inv == nil {
		return nil, ErrMissingInvoice
	}

	m := newDocument()
	p.addHeader(m, "Invoice", inv)
	p.addParties(m, inv)
	addUsageTable(m, inv)

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Size: 9}),
		text.NewCol(2, formatAmount(inv.Currency, inv.Bill.Total), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Amount due", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, formatAmount(inv.Currency, amountDue(inv.Bill)), props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		text.NewCol(12, "Status: "+string(inv.Bill.Status), props.Text{Size: 9, Top: 3}),
	)

	return p.render(m, inv.Number)
}

func (p *PDFProvider) GenerateReceipt(ctx context.Context, inv *billingdomain.Invoice) (io.Reader, error) {
	if inv == nil {
		return nil, ErrMissingInvoice
	}
	if inv.Bill.Status != billing.StatusPaid || inv.Bill.PaymentDate == nil {
		return nil, ErrNotPaid
	}

	m := newDocument()
	p.addHeader(m, "Receipt", inv)
	p.addParties(m, inv)

	m.AddRow(15,
		text.NewCol(12, formatAmount(inv.Currency, inv.Bill.Total)+" paid on "+formatDate(*inv.Bill.PaymentDate, p.loc), props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	addUsageTable(m, inv)

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Amount paid", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, formatAmount(inv.Currency, inv.Bill.Total), props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	return p.render(m, inv.Number)
}

func newDocument() core.Maroto {
	cfg := marotoconfig.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	return maroto.New(cfg)
}

func (p *PDFProvider) addHeader(m core.Maroto, title string, inv *billingdomain.Invoice) {
	m.AddRow(12,
		text.NewCol(8, p.issuer, props.Text{Size: 16, Style: fontstyle.Bold}),
		text.NewCol(4, title, props.Text{Size: 20, Style: fontstyle.Bold, Align: align.Right}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Invoice number: "+inv.Number, props.Text{Top: 0}),
			text.New("Date of issue: "+formatDate(inv.IssuedAt, p.loc), props.Text{Top: 4}),
			text.New("Service period: "+inv.Reading.Period, props.Text{Top: 8}),
		),
		col.New(6),
	)
}

func (p *PDFProvider) addParties(m core.Maroto, inv *billingdomain.Invoice) {
	m.AddRow(30,
		col.New(6).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold}),
			text.New(inv.User.Name, props.Text{Top: 5}),
			text.New("NIK "+inv.User.NIK, props.Text{Top: 9}),
			text.New(inv.User.Address, props.Text{Top: 13}),
			text.New(inv.User.Region, props.Text{Top: 17}),
		),
		col.New(6).Add(
			text.New("Meter", props.Text{Style: fontstyle.Bold}),
			text.New("Recorded: "+formatDate(inv.Reading.RecordedAt, p.loc), props.Text{Top: 5}),
			text.New("Previous: "+formatMeter(inv.Reading.MeterBefore), props.Text{Top: 9}),
			text.New("Current: "+formatMeter(&inv.Reading.MeterNow), props.Text{Top: 13}),
		),
	)
}

func addUsageTable(m core.Maroto, inv *billingdomain.Invoice) {
	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Usage", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))
	m.AddRow(15,
		text.NewCol(6, "Water usage "+inv.Reading.Period, props.Text{Size: 9}),
		text.NewCol(2, formatVolume(inv.Bill.Usage), props.Text{Size: 9, Align: align.Right}),
		text.NewCol(2, formatAmount(inv.Currency, inv.Bill.Rate), props.Text{Size: 9, Align: align.Right}),
		text.NewCol(2, formatAmount(inv.Currency, inv.Bill.Total), props.Text{Size: 9, Align: align.Right}),
	)
}

func (p *PDFProvider) render(m core.Maroto, number string) (io.Reader, error) {
	doc, err := m.Generate()
	if err != nil {
		p.log.Error("failed to render pdf", zap.String("invoice_number", number), zap.Error(err))
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}

func amountDue(rec billing.Record) int64 {
	if rec.Status == billing.StatusPaid {
		return 0
	}
	return rec.Total
}
