package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/odyssey-erp/odyssey-office/cmd/office/cli"
	"github.com/odyssey-erp/odyssey-office/internal/activityreport"
	"github.com/odyssey-erp/odyssey-office/internal/app"
	"github.com/odyssey-erp/odyssey-office/internal/platform/db"
	"github.com/odyssey-erp/odyssey-office/report"
)

const usage = `usage: officectl <command> [flags]

commands:
  migrate up|down|version [--steps N]
  fiscal check --start YYYY-MM-DD --end YYYY-MM-DD [--json]
  report export --grouping unit|section (--unit ID | --section ID) --fy ID --start YYYY-MM-DD --end YYYY-MM-DD [--format csv|docx|xlsx|html|json|pdf] [--out PATH]
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		_, _ = fmt.Fprint(stderr, usage)
		return 2
	}
	switch args[0] + " " + args[1] {
	case "fiscal check":
		return fiscalCheck(args[2:], stdout, stderr)
	case "report export":
		return reportExport(ctx, args[2:], stdout, stderr)
	}
	if args[0] == "migrate" {
		return migrate(args[1], args[2:], stdout, stderr)
	}
	_, _ = fmt.Fprint(stderr, usage)
	return 2
}

func fiscalCheck(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("fiscal check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts := cli.FiscalCheckOptions{Stdout: stdout, Stderr: stderr}
	fs.StringVar(&opts.Start, "start", "", "financial year start date")
	fs.StringVar(&opts.End, "end", "", "financial year end date")
	fs.BoolVar(&opts.JSONOutput, "json", false, "print the result as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	return cli.FiscalCheckCommand(opts)
}

func migrate(action string, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	steps := fs.Int("steps", 1, "steps to roll back with down")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	m, err := db.NewMigrator(cfg.PGDSN)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "migrate: %v\n", err)
		return 1
	}
	return cli.MigrateCommand(m, cli.MigrateOptions{Action: action, Steps: *steps, Stdout: stdout, Stderr: stderr})
}

func reportExport(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("report export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts := cli.ReportExportOptions{Stdout: stdout, Stderr: stderr}
	fs.StringVar(&opts.Grouping, "grouping", "unit", "unit or section")
	fs.Int64Var(&opts.UnitID, "unit", 0, "unit id when grouping by unit")
	fs.Int64Var(&opts.SectionID, "section", 0, "section id when grouping by section")
	fs.Int64Var(&opts.FinancialYearID, "fy", 0, "financial year id")
	fs.StringVar(&opts.Start, "start", "", "report start date")
	fs.StringVar(&opts.End, "end", "", "report end date")
	fs.StringVar(&opts.Format, "format", "csv", "csv, docx, xlsx, html, json or pdf")
	fs.StringVar(&opts.Out, "out", "", "output path; empty for stdout, . for the default filename")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "connect postgres: %v\n", err)
		return 1
	}
	defer pool.Close()

	opts.PDF = report.NewClient(cfg.GotenbergURL)
	aggregator := activityreport.NewAggregator(activityreport.NewSource(pool), cfg.ReportWorkers)
	return cli.ReportExportCommand(ctx, aggregator, opts)
}
