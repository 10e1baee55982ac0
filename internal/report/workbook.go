package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"salesledger/internal/domain"
)

const sheetName = "Report"

var saleHeaders = []string{"Item", "Quantity", "Price", "Channel", "Discount %", "Total", "Time"}

// BuildWorkbook renders the report as a single-sheet workbook: the
// sale lines under a header row, then the expense block, then the
// summary, with two blank rows between each block.
func BuildWorkbook(rep domain.Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create report sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	for i, header := range saleHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, err
		}
	}

	row := 2
	for _, line := range rep.Lines {
		values := []interface{}{
			line.ItemName,
			line.Quantity,
			line.SalePrice,
			line.Channel,
			line.Discount,
			line.Total,
			line.Timestamp,
		}
		if err := f.SetSheetRow(sheetName, fmt.Sprintf("A%d", row), &values); err != nil {
			return nil, err
		}
		row++
	}

	row += 2
	if err := f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), "Expenses"); err != nil {
		return nil, err
	}
	row++
	for _, expense := range rep.Expenses {
		values := []interface{}{
			expense.Amount,
			time.UnixMilli(expense.TimestampMS).Format(timestampLayout),
		}
		if err := f.SetSheetRow(sheetName, fmt.Sprintf("A%d", row), &values); err != nil {
			return nil, err
		}
		row++
	}

	row += 2
	for _, summary := range []struct {
		label string
		value int64
	}{
		{"Total Sales", rep.Summary.TotalSales},
		{"Total Expenses", rep.Summary.TotalExpenses},
		{"Profit", rep.Summary.Profit},
	} {
		values := []interface{}{summary.label, summary.value}
		if err := f.SetSheetRow(sheetName, fmt.Sprintf("A%d", row), &values); err != nil {
			return nil, err
		}
		row++
	}

	widths := []struct {
		col   string
		width float64
	}{{"A", 24}, {"D", 16}, {"G", 20}}
	for _, w := range widths {
		if err := f.SetColWidth(sheetName, w.col, w.col, w.width); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}
	return buf.Bytes(), nil
}
