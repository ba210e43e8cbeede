package export

import (
	"html/template"
	"io"

	"github.com/odyssey-erp/odyssey-office/internal/activityreport"
)

const printLayout = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Heading}}</title>
<style>
body{font-family:sans-serif;margin:24px;font-size:12px;}
h1{font-size:16px;}
table{width:100%;border-collapse:collapse;}
th,td{border:1px solid #999;padding:4px;vertical-align:top;}
th{background:#f0f0f0;text-align:left;}
td.num{text-align:right;white-space:nowrap;}
p{margin:0 0 2px 0;}
.block{font-weight:bold;margin-top:4px;}
tfoot td{font-weight:bold;}
.meta{color:#666;font-size:10px;margin-top:8px;}
</style></head><body>
<h1>{{.Heading}}</h1>
<table>
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>
<td>{{.SN}}</td>
<td>{{.Activity}}</td>
<td>{{if .Implementation}}{{range .Implementation}}<p class="block">{{.Title}}</p>{{range .Lines}}<p>{{.}}</p>{{end}}{{end}}{{else}}{{$.NoRecords}}{{end}}</td>
<td class="num">{{range .Budget}}<p>{{.}}</p>{{end}}</td>
<td class="num">{{range .Expenditure}}<p>{{.}}</p>{{end}}</td>
<td class="num">{{range .Balance}}<p>{{.}}</p>{{end}}</td>
</tr>
{{end}}</tbody>
<tfoot><tr>{{range $i, $v := .Totals}}<td{{if ge $i 3}} class="num"{{end}}>{{$v}}</td>{{end}}</tr></tfoot>
</table>
<p class="meta">Generated {{.GeneratedAt}} &middot; {{.ID}}</p>
</body></html>`

var printTemplate = template.Must(template.New("report").Parse(printLayout))

type printData struct {
	ID          string
	Heading     string
	Columns     []string
	Rows        []Row
	Totals      []string
	NoRecords   string
	GeneratedAt string
}

// WriteHTML renders the report as a standalone print page.
func WriteHTML(w io.Writer, rep activityreport.Report) error {
	return printTemplate.Execute(w, printData{
		ID:          rep.ID,
		Heading:     rep.Heading(),
		Columns:     Columns,
		Rows:        Rows(rep),
		Totals:      TotalsRow(rep),
		NoRecords:   NoRecords,
		GeneratedAt: rep.GeneratedAt.Format("02 Jan 2006 15:04"),
	})
}
