package statement

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var (
	headerCell = props.Text{Style: fontstyle.Bold, Size: 8}
	bodyCell   = props.Text{Size: 8}
	rightCell  = props.Text{Size: 8, Align: align.Right}
)

// PDF renders the statement as a single document with a segment table and summary.
func PDF(ctx context.Context, s Statement) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, "Milk Statement", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, s.Seller, props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Statement number: "+s.Number, props.Text{Top: 0, Size: 9}),
			text.New("Issued: "+s.IssuedAt.Format("Jan 02, 2006"), props.Text{Top: 4, Size: 9}),
			text.New("Billing period: "+s.periodLabel(), props.Text{Top: 8, Size: 9}),
			text.New("Milk type: "+MilkTypeLabel(s.MilkType), props.Text{Top: 12, Size: 9}),
		),
		col.New(6).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.New(s.Customer.Name, props.Text{Top: 4, Size: 9}),
			text.New(Phone(s.Customer.Phone), props.Text{Top: 8, Size: 9}),
		),
	)

	m.AddRow(8,
		text.NewCol(2, "From", headerCell),
		text.NewCol(2, "To", headerCell),
		text.NewCol(1, "Daily", headerCell),
		text.NewCol(1, "Days", headerCell),
		text.NewCol(2, "Liters", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right}),
		text.NewCol(2, "Price / L", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right}),
	)

	for _, seg := range s.Breakdown.Segments {
		m.AddRow(7,
			text.NewCol(2, Date(seg.EffectiveFrom), bodyCell),
			text.NewCol(2, Date(seg.EffectiveTo), bodyCell),
			text.NewCol(1, Liters(seg.DailyLiters), bodyCell),
			text.NewCol(1, fmt.Sprintf("%d/%d", seg.DaysDelivered, seg.ExpectedDays), bodyCell),
			text.NewCol(2, Liters(seg.TotalLiters), rightCell),
			text.NewCol(2, pricePerLiter(seg), rightCell),
			text.NewCol(2, OptionalCurrency(seg.TotalAmount), rightCell),
		)
	}

	summary := s.Breakdown.Summary
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Days delivered", bodyCell),
		text.NewCol(2, fmt.Sprintf("%d", summary.TotalDeliveredDays), rightCell),
	)
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Total liters", bodyCell),
		text.NewCol(2, Liters(summary.TotalLitersDelivered), rightCell),
	)
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Amount due", headerCell),
		text.NewCol(2, OptionalCurrency(summary.TotalAmount), props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate statement pdf: %w", err)
	}
	return doc.GetBytes(), nil
}
