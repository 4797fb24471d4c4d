package report

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const usageSheet = "Usage Log"

// XLSXRenderer writes the usage log as a spreadsheet. Numbers stay numeric so
// the sheet can be summed.
type XLSXRenderer struct{}

// Render builds the workbook
func (XLSXRenderer) Render(_ context.Context, doc *Document) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetName(sheet, usageSheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}
	sheet = usageSheet

	preamble := [][]interface{}{
		{doc.Title},
		{"Customer", doc.Customer.CustomerName},
		{"Email", doc.Customer.EmailID},
		{"Phone", doc.Phone()},
		{"Total Energy Consumed (All Time, kWh)", doc.TotalKWh},
		{"Total Estimated Cost (All Time)", doc.TotalCost},
		{},
	}

	row := 1
	for _, values := range preamble {
		if err := setRow(f, sheet, row, values); err != nil {
			return nil, err
		}
		row++
	}

	header := make([]interface{}, 0, len(Header()))
	for _, h := range Header() {
		header = append(header, h)
	}
	if err := setRow(f, sheet, row, header); err != nil {
		return nil, err
	}
	row++

	for _, r := range doc.Rows {
		values := []interface{}{
			r.DateTime,
			r.Application,
			r.Qty,
			r.Watts,
			r.HoursDay,
			r.DailyKWh,
			r.DailyCost,
		}
		if err := setRow(f, sheet, row, values); err != nil {
			return nil, err
		}
		row++
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	if len(values) == 0 {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name for row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing row %d: %w", row, err)
	}
	return nil
}
