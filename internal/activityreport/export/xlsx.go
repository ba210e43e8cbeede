package export

import (
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/odyssey-office/internal/activityreport"
)

// XLSXContentType is the MIME type of WriteXLSX output.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// XLSXSheet names the single worksheet of the workbook.
const XLSXSheet = "Report"

var xlsxColumnWidths = []float64{6, 32, 60, 28, 28, 28}

// WriteXLSX renders the report as a single-sheet workbook: heading in row 1,
// column headers in row 2, one row per activity and the grand total last.
func WriteXLSX(w io.Writer, rep activityreport.Report) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName("Sheet1", XLSXSheet); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return err
	}
	wrap, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return err
	}

	for i, width := range xlsxColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(XLSXSheet, col, col, width); err != nil {
			return err
		}
	}

	last, err := excelize.ColumnNumberToName(len(Columns))
	if err != nil {
		return err
	}
	if err := f.SetCellValue(XLSXSheet, "A1", rep.Heading()); err != nil {
		return err
	}
	if err := f.MergeCell(XLSXSheet, "A1", last+"1"); err != nil {
		return err
	}
	if err := f.SetCellStyle(XLSXSheet, "A1", last+"1", bold); err != nil {
		return err
	}

	if err := writeXLSXRow(f, 2, Columns); err != nil {
		return err
	}
	if err := f.SetCellStyle(XLSXSheet, "A2", last+"2", bold); err != nil {
		return err
	}

	row := 3
	for _, r := range Rows(rep) {
		if err := writeXLSXRow(f, row, []string{
			r.SN,
			r.Activity,
			r.ImplementationText(),
			strings.Join(r.Budget, "\n"),
			strings.Join(r.Expenditure, "\n"),
			strings.Join(r.Balance, "\n"),
		}); err != nil {
			return err
		}
		row++
	}
	if row > 3 {
		first, _ := excelize.CoordinatesToCellName(1, 3)
		end, _ := excelize.CoordinatesToCellName(len(Columns), row-1)
		if err := f.SetCellStyle(XLSXSheet, first, end, wrap); err != nil {
			return err
		}
	}

	if err := writeXLSXRow(f, row, TotalsRow(rep)); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	end, _ := excelize.CoordinatesToCellName(len(Columns), row)
	if err := f.SetCellStyle(XLSXSheet, first, end, bold); err != nil {
		return err
	}

	return f.Write(w)
}

func writeXLSXRow(f *excelize.File, row int, values []string) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(XLSXSheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}
