package export

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/odyssey-erp/odyssey-office/internal/activityreport"
)

// WriteCSV serialises the report table, preceded by its heading line.
func WriteCSV(w io.Writer, rep activityreport.Report) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{rep.Heading()}); err != nil {
		return err
	}
	if err := writer.Write(Columns); err != nil {
		return err
	}
	for _, row := range Rows(rep) {
		if err := writer.Write([]string{
			row.SN,
			row.Activity,
			row.ImplementationText(),
			strings.Join(row.Budget, "\n"),
			strings.Join(row.Expenditure, "\n"),
			strings.Join(row.Balance, "\n"),
		}); err != nil {
			return err
		}
	}
	if err := writer.Write(TotalsRow(rep)); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}
