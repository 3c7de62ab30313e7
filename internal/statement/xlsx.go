package statement

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Statement"

var segmentHeadings = []string{
	"Rate ID",
	"From",
	"To",
	"Daily Liters",
	"Expected Days",
	"Days Delivered",
	"Total Liters",
	"Success Rate (%)",
	"Price / L",
	"Amount",
}

// XLSX renders the statement as a workbook with one "Statement" sheet. Numeric
// columns are written as numbers so the sheet can be summed.
func XLSX(ctx context.Context, s Statement) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	meta := [][2]any{
		{"Statement", s.Number},
		{"Customer", s.Customer.Name},
		{"Phone", Phone(s.Customer.Phone)},
		{"Milk Type", MilkTypeLabel(s.MilkType)},
		{"Period", s.periodLabel()},
	}
	row := 1
	for _, kv := range meta {
		if err := setRow(f, row, kv[0], kv[1]); err != nil {
			return nil, err
		}
		row++
	}

	row++
	headings := make([]any, len(segmentHeadings))
	for i, h := range segmentHeadings {
		headings[i] = h
	}
	if err := setRow(f, row, headings...); err != nil {
		return nil, err
	}
	if err := styleRow(f, row, len(headings), bold); err != nil {
		return nil, err
	}
	row++

	for _, seg := range s.Breakdown.Segments {
		values := []any{
			seg.RateID,
			seg.EffectiveFrom.String(),
			seg.EffectiveTo.String(),
			seg.DailyLiters.InexactFloat64(),
			seg.ExpectedDays,
			seg.DaysDelivered,
			seg.TotalLiters.InexactFloat64(),
			seg.DeliverySuccessRate.InexactFloat64(),
			nil,
			nil,
		}
		if seg.Pricing != nil {
			values[8] = seg.Pricing.PricePerLiter.InexactFloat64()
		}
		if seg.TotalAmount.Valid {
			values[9] = seg.TotalAmount.Decimal.InexactFloat64()
		}
		if err := setRow(f, row, values...); err != nil {
			return nil, err
		}
		row++
	}

	summary := s.Breakdown.Summary
	total := []any{"Total", nil, nil, nil, nil, summary.TotalDeliveredDays, summary.TotalLitersDelivered.InexactFloat64(), nil, nil, nil}
	if summary.TotalAmount.Valid {
		total[9] = summary.TotalAmount.Decimal.InexactFloat64()
	}
	if err := setRow(f, row, total...); err != nil {
		return nil, err
	}
	if err := styleRow(f, row, len(total), bold); err != nil {
		return nil, err
	}

	if err := f.SetColWidth(sheetName, "A", "J", 16); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write statement xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, row int, values ...any) error {
	for i, v := range values {
		if v == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func styleRow(f *excelize.File, row, width, style int) error {
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(width, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheetName, first, last, style)
}
