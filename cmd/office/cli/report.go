package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/odyssey-erp/odyssey-office/internal/activityreport"
	"github.com/odyssey-erp/odyssey-office/internal/activityreport/export"
	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

// ReportBuilder builds a report without per-user visibility checks.
type ReportBuilder interface {
	Build(ctx context.Context, req activityreport.Request) (activityreport.Report, error)
}

// ReportExportOptions defines available flags for the report export command.
type ReportExportOptions struct {
	Grouping        string
	UnitID          int64
	SectionID       int64
	FinancialYearID int64
	Start           string
	End             string
	Format          string
	Out             string
	PDF             export.HTMLRenderer
	Now             func() time.Time
	Stdout          io.Writer
	Stderr          io.Writer
}

// ReportExportCommand builds one report and writes it in the requested format.
// An empty Out writes to Stdout; "." writes to the download filename.
func ReportExportCommand(ctx context.Context, builder ReportBuilder, opts ReportExportOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Format == "" {
		opts.Format = "csv"
	}

	values := url.Values{}
	values.Set("grouping", opts.Grouping)
	values.Set("unit", strconv.FormatInt(opts.UnitID, 10))
	values.Set("section", strconv.FormatInt(opts.SectionID, 10))
	values.Set("financial_year", strconv.FormatInt(opts.FinancialYearID, 10))
	values.Set("start_date", opts.Start)
	values.Set("end_date", opts.End)
	req, err := activityreport.ParseRequest(values)
	if err == nil {
		err = req.Validate()
	}
	if err != nil {
		printViolation(opts.Stderr, err)
		return 1
	}

	rep, err := builder.Build(ctx, req)
	if err != nil {
		printViolation(opts.Stderr, err)
		return 1
	}

	var buf bytes.Buffer
	switch opts.Format {
	case "csv":
		err = export.WriteCSV(&buf, rep)
	case "docx":
		err = export.WriteDOCX(&buf, rep)
	case "xlsx":
		err = export.WriteXLSX(&buf, rep)
	case "html":
		err = export.WriteHTML(&buf, rep)
	case "json":
		err = json.NewEncoder(&buf).Encode(rep)
	case "pdf":
		var data []byte
		data, err = export.RenderPDF(ctx, opts.PDF, rep)
		buf.Write(data)
	default:
		_, _ = fmt.Fprintf(opts.Stderr, "report export: unknown format %q (expected csv, docx, xlsx, html, json or pdf)\n", opts.Format)
		return 2
	}
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "report export: render %s: %v\n", opts.Format, err)
		return 1
	}

	switch opts.Out {
	case "", "-":
		_, err = opts.Stdout.Write(buf.Bytes())
	default:
		path := opts.Out
		if path == "." {
			path = export.Filename(opts.Now(), opts.Format)
		}
		err = os.WriteFile(path, buf.Bytes(), 0o644)
		if err == nil {
			_, _ = fmt.Fprintf(opts.Stderr, "wrote %s (%d activities)\n", path, len(rep.Activities))
		}
	}
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "report export: write: %v\n", err)
		return 1
	}
	return 0
}

func printViolation(w io.Writer, err error) {
	var v *shared.Violation
	if errors.As(err, &v) {
		if v.Field != "" {
			_, _ = fmt.Fprintf(w, "report export: %s: %s\n", v.Field, v.Message)
			return
		}
		_, _ = fmt.Fprintf(w, "report export: %s\n", v.Message)
		return
	}
	_, _ = fmt.Fprintf(w, "report export: %v\n", err)
}
