package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-office/internal/fiscal"
	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

// FiscalCheckOptions defines available flags for the fiscal check command.
type FiscalCheckOptions struct {
	Start      string
	End        string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// FiscalCheckResult is the JSON output of fiscal check.
type FiscalCheckResult struct {
	Valid   bool   `json:"valid"`
	Label   string `json:"label,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
}

// FiscalCheckCommand validates a financial year range. It exits 0 for a valid
// range, 10 for a rule violation and 1 for malformed input.
func FiscalCheckCommand(opts FiscalCheckOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	start, err := parseOptionalDate(opts.Start)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "fiscal check: invalid --start %q (expected YYYY-MM-DD)\n", opts.Start)
		return 1
	}
	end, err := parseOptionalDate(opts.End)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "fiscal check: invalid --end %q (expected YYYY-MM-DD)\n", opts.End)
		return 1
	}

	result := FiscalCheckResult{Valid: true}
	if err := fiscal.ValidateRange(start, end); err != nil {
		var v *shared.Violation
		if !errors.As(err, &v) {
			_, _ = fmt.Fprintf(opts.Stderr, "fiscal check: %v\n", err)
			return 1
		}
		result = FiscalCheckResult{Field: v.Field, Message: v.Message}
	} else {
		result.Label = fiscal.FinancialYear{StartDate: start, EndDate: end}.Label()
	}

	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(result); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "fiscal check: encode json: %v\n", err)
			return 1
		}
	} else if result.Valid {
		_, _ = fmt.Fprintf(opts.Stdout, "valid financial year %s\n", result.Label)
	} else {
		_, _ = fmt.Fprintf(opts.Stdout, "invalid %s: %s\n", result.Field, result.Message)
	}
	if !result.Valid {
		return 10
	}
	return 0
}

func parseOptionalDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return fiscal.ParseDate(raw)
}
