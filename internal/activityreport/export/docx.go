package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/odyssey-erp/odyssey-office/internal/activityreport"
)

// DOCXContentType is the MIME type of WriteDOCX output.
const DOCXContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`
	packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`
	documentOpen = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`
	documentClose = `<w:sectPr><w:pgSz w:w="15840" w:h="12240" w:orient="landscape"/>` +
		`<w:pgMar w:top="1080" w:right="1440" w:bottom="1080" w:left="1440" w:header="720" w:footer="720" w:gutter="0"/>` +
		`</w:sectPr></w:body></w:document>`
	tableBorders = `<w:tblBorders><w:top w:val="single" w:sz="4"/><w:left w:val="single" w:sz="4"/>` +
		`<w:bottom w:val="single" w:sz="4"/><w:right w:val="single" w:sz="4"/>` +
		`<w:insideH w:val="single" w:sz="4"/><w:insideV w:val="single" w:sz="4"/></w:tblBorders>`
)

// Column widths in twentieths of a point over nine inches of table.
var columnWidths = []int{648, 2592, 4536, 1685, 1685, 1814}

// WriteDOCX renders the report as a Word document.
func WriteDOCX(w io.Writer, rep activityreport.Report) error {
	zw := zip.NewWriter(w)
	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", packageRelsXML},
		{"word/document.xml", documentXML(rep)},
	}
	for _, part := range parts {
		f, err := zw.Create(part.name)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(f, part.body); err != nil {
			return err
		}
	}
	return zw.Close()
}

func documentXML(rep activityreport.Report) string {
	var b strings.Builder
	b.WriteString(documentOpen)
	writeParagraph(&b, rep.Heading(), true, 28)

	b.WriteString(`<w:tbl><w:tblPr><w:tblW w:w="12960" w:type="dxa"/>`)
	b.WriteString(tableBorders)
	b.WriteString(`</w:tblPr><w:tblGrid>`)
	for _, width := range columnWidths {
		b.WriteString(`<w:gridCol w:w="` + strconv.Itoa(width) + `"/>`)
	}
	b.WriteString(`</w:tblGrid>`)

	b.WriteString(`<w:tr>`)
	for i, col := range Columns {
		writeCell(&b, i, func(b *strings.Builder) { writeParagraph(b, col, true, 0) })
	}
	b.WriteString(`</w:tr>`)

	for _, row := range Rows(rep) {
		b.WriteString(`<w:tr>`)
		writeCell(&b, 0, lines(row.SN))
		writeCell(&b, 1, lines(row.Activity))
		writeCell(&b, 2, func(b *strings.Builder) {
			if len(row.Implementation) == 0 {
				writeParagraph(b, NoRecords, false, 0)
				return
			}
			for _, block := range row.Implementation {
				writeParagraph(b, block.Title, true, 0)
				for _, line := range block.Lines {
					writeParagraph(b, line, false, 0)
				}
			}
		})
		writeCell(&b, 3, lines(row.Budget...))
		writeCell(&b, 4, lines(row.Expenditure...))
		writeCell(&b, 5, lines(row.Balance...))
		b.WriteString(`</w:tr>`)
	}

	b.WriteString(`<w:tr>`)
	for i, v := range TotalsRow(rep) {
		writeCell(&b, i, func(b *strings.Builder) { writeParagraph(b, v, true, 0) })
	}
	b.WriteString(`</w:tr></w:tbl>`)
	b.WriteString(documentClose)
	return b.String()
}

func lines(values ...string) func(*strings.Builder) {
	return func(b *strings.Builder) {
		for _, v := range values {
			writeParagraph(b, v, false, 0)
		}
	}
}

// writeCell emits a table cell. Word requires at least one paragraph per cell.
func writeCell(b *strings.Builder, col int, content func(*strings.Builder)) {
	b.WriteString(`<w:tc><w:tcPr><w:tcW w:w="` + strconv.Itoa(columnWidths[col]) + `" w:type="dxa"/></w:tcPr>`)
	mark := b.Len()
	content(b)
	if b.Len() == mark {
		b.WriteString(`<w:p/>`)
	}
	b.WriteString(`</w:tc>`)
}

// writeParagraph emits one run of text. size is in half-points; zero keeps the default.
func writeParagraph(b *strings.Builder, text string, bold bool, size int) {
	b.WriteString(`<w:p><w:r>`)
	if bold || size > 0 {
		b.WriteString(`<w:rPr>`)
		if bold {
			b.WriteString(`<w:b/>`)
		}
		if size > 0 {
			b.WriteString(`<w:sz w:val="` + strconv.Itoa(size) + `"/>`)
		}
		b.WriteString(`</w:rPr>`)
	}
	b.WriteString(`<w:t xml:space="preserve">`)
	b.WriteString(escapeXML(text))
	b.WriteString(`</w:t></w:r></w:p>`)
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
