package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"paytrack/internal/core"
)

const (
	paymentsSheet = "Payments"
	summarySheet  = "Summary"
)

// XLSXExporter writes an Excel workbook with a payments sheet and a summary.
type XLSXExporter struct {
	now func() time.Time
}

func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{now: time.Now}
}

// Filename returns the default export file name for the current day.
func (x *XLSXExporter) Filename() string {
	return fmt.Sprintf("paytrack_export_%s.xlsx", x.now().Format(core.DateLayout))
}

// Build creates the workbook. The caller closes it.
func (x *XLSXExporter) Build(payments []core.Payment) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := x.createPaymentsSheet(f, payments); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create payments sheet: %w", err)
	}
	if err := x.createSummarySheet(f, Summarize(payments)); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}

	// Delete the default sheet if it exists
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex(paymentsSheet); err == nil {
		f.SetActiveSheet(idx)
	}
	return f, nil
}

// Write streams the workbook to w.
func (x *XLSXExporter) Write(w io.Writer, payments []core.Payment) error {
	f, err := x.Build(payments)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteFile saves the workbook at path.
func (x *XLSXExporter) WriteFile(path string, payments []core.Payment) error {
	f, err := x.Build(payments)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func (x *XLSXExporter) createPaymentsSheet(f *excelize.File, payments []core.Payment) error {
	if _, err := f.NewSheet(paymentsSheet); err != nil {
		return err
	}

	for i, row := range Rows(payments) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(paymentsSheet, cell, &row); err != nil {
			return err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(Header))
	if err := f.SetCellStyle(paymentsSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return err
	}
	if len(payments) > 0 {
		if err := f.SetCellStyle(paymentsSheet, "G2", fmt.Sprintf("G%d", len(payments)+1), amountStyle); err != nil {
			return err
		}
	}

	return f.SetColWidth(paymentsSheet, "A", lastCol, 15)
}

func (x *XLSXExporter) createSummarySheet(f *excelize.File, b core.Balance) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	rows := [][]any{
		{"Metric", "Amount"},
		{"Income", Amount(b.IncomeInCents)},
		{"Expenses", Amount(b.ExpensesInCents)},
		{"Total", Amount(b.TotalInCents)},
	}
	for i, row := range rows {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return err
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "A1", "B1", bold); err != nil {
		return err
	}
	return f.SetColWidth(summarySheet, "A", "B", 15)
}
