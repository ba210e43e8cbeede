package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/odyssey-office/internal/activityreport"
	"github.com/odyssey-erp/odyssey-office/internal/ledger"
	"github.com/odyssey-erp/odyssey-office/report"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func sampleReport() activityreport.Report {
	return activityreport.Report{
		ID: "rep-1",
		Params: activityreport.Params{
			Request: activityreport.Request{
				Grouping:  activityreport.GroupByUnit,
				UnitID:    5,
				StartDate: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2024, 8, 31, 0, 0, 0, 0, time.UTC),
			},
			Scope:              activityreport.ScopeInfo{ID: 5, Name: "ICT Unit"},
			FinancialYearLabel: "2024/2025",
		},
		GeneratedAt: time.Date(2024, 9, 1, 9, 30, 0, 0, time.UTC),
		Activities: []activityreport.ActivityRow{
			{
				SN:       1,
				Activity: activityreport.ActivityRef{ID: 1, DisplayName: "Helpdesk (Unit: ICT Unit)"},
				Narrative: []activityreport.NarrativeBlock{
					{Title: "Email", Lines: []string{"- Mailbox full (Status: Resolved)", "- <script> & co (Status: Open)"}},
				},
				Types: []activityreport.TypeLine{
					{Type: ledger.OwnSource, Label: "Own Source", Budget: d("1250000.5"), Expenditure: d("1000"), Balance: d("1249000.5")},
				},
				TotalBudget:      d("1250000.5"),
				TotalExpenditure: d("1000"),
				Balance:          d("1249000.5"),
			},
			{
				SN:       2,
				Activity: activityreport.ActivityRef{ID: 2, DisplayName: "Cabling (Unit: ICT Unit)"},
			},
		},
		Totals: activityreport.Totals{Budget: d("1250000.5"), Expenditure: d("1000"), Balance: d("1249000.5")},
	}
}

func TestAmount(t *testing.T) {
	cases := map[string]string{
		"0":             "0.00",
		"999.9":         "999.90",
		"1250000.5":     "1,250,000.50",
		"-4321.129":     "-4,321.13",
		"9999999999999": "9,999,999,999,999.00",
	}
	for in, want := range cases {
		if got := Amount(d(in)); got != want {
			t.Fatalf("Amount(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestFilename(t *testing.T) {
	got := Filename(time.Date(2024, 9, 1, 14, 5, 9, 0, time.UTC), "docx")
	if got != "report_20240901_140509.docx" {
		t.Fatalf("unexpected filename %s", got)
	}
}

func TestWriteCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteCSV(buf, sampleReport()); err != nil {
		t.Fatalf("csv error: %v", err)
	}
	reader := csv.NewReader(bytes.NewReader(buf.Bytes()))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("csv read error: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected heading, columns, two rows and totals, got %d", len(records))
	}
	if records[0][0] != "ICT Unit Activities Implementation Report from 2024-08-01 to 2024-08-31 in Financial Year: 2024/2025" {
		t.Fatalf("unexpected heading %q", records[0][0])
	}
	if strings.Join(records[1], "|") != "SN|Activity|Implementation|Budget|Expenditure|Balance" {
		t.Fatalf("unexpected columns %v", records[1])
	}
	first := records[2]
	if !strings.HasPrefix(first[2], "Email\n- Mailbox full (Status: Resolved)") {
		t.Fatalf("unexpected implementation %q", first[2])
	}
	if first[3] != "Own Source: 1,250,000.50\nTOTAL: 1,250,000.50" {
		t.Fatalf("unexpected budget cell %q", first[3])
	}
	if records[3][2] != NoRecords || records[3][3] != "TOTAL: 0.00" {
		t.Fatalf("unexpected empty activity row %v", records[3])
	}
	if records[4][1] != "Grand Total" || records[4][5] != "1,249,000.50" {
		t.Fatalf("unexpected totals row %v", records[4])
	}
}

func TestWriteDOCX(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteDOCX(buf, sampleReport()); err != nil {
		t.Fatalf("docx error: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("docx is not a zip: %v", err)
	}
	files := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		data, _ := io.ReadAll(rc)
		_ = rc.Close()
		files[f.Name] = string(data)
	}
	for _, name := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"} {
		if _, ok := files[name]; !ok {
			t.Fatalf("missing part %s", name)
		}
	}
	doc := files["word/document.xml"]
	for _, want := range []string{
		"ICT Unit Activities Implementation Report from 2024-08-01",
		"<w:t xml:space=\"preserve\">Implementation</w:t>",
		"- &lt;script&gt; &amp; co (Status: Open)",
		NoRecords,
		"TOTAL: 1,249,000.50",
	} {
		if !strings.Contains(doc, want) {
			t.Fatalf("document.xml missing %q", want)
		}
	}
}

func TestWriteXLSX(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteXLSX(buf, sampleReport()); err != nil {
		t.Fatalf("xlsx error: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close() //nolint:errcheck

	rows, err := f.GetRows(XLSXSheet)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected heading, columns, two rows and totals, got %d", len(rows))
	}
	if !strings.HasPrefix(rows[0][0], "ICT Unit Activities Implementation Report") {
		t.Fatalf("unexpected heading %q", rows[0][0])
	}
	if strings.Join(rows[1], "|") != strings.Join(Columns, "|") {
		t.Fatalf("unexpected columns %v", rows[1])
	}
	if rows[2][3] != "Own Source: 1,250,000.50\nTOTAL: 1,250,000.50" {
		t.Fatalf("unexpected budget cell %q", rows[2][3])
	}
	if rows[3][2] != NoRecords {
		t.Fatalf("unexpected empty activity row %v", rows[3])
	}
	if rows[4][1] != "Grand Total" || rows[4][5] != "1,249,000.50" {
		t.Fatalf("unexpected totals row %v", rows[4])
	}
}

func TestWriteHTMLEscapes(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteHTML(buf, sampleReport()); err != nil {
		t.Fatalf("html error: %v", err)
	}
	html := buf.String()
	if strings.Contains(html, "<script>") {
		t.Fatalf("narrative was not escaped")
	}
	if !strings.Contains(html, "<th>Implementation</th>") || !strings.Contains(html, NoRecords) {
		t.Fatalf("table layout missing: %s", html)
	}
}

func TestRenderPDFThroughGotenberg(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forms/chromium/convert/html" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("unexpected parse error: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("PDF"))
	}))
	defer srv.Close()

	data, err := RenderPDF(context.Background(), report.NewClient(srv.URL), sampleReport())
	if err != nil {
		t.Fatalf("pdf render error: %v", err)
	}
	if string(data) != "PDF" {
		t.Fatalf("unexpected payload %q", string(data))
	}
	if _, err := RenderPDF(context.Background(), nil, sampleReport()); err == nil {
		t.Fatalf("expected error without renderer")
	}
}
