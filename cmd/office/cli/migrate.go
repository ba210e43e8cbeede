package cli

import (
	"fmt"
	"io"
	"os"
)

// Migrator is the subset of db.Migrator used by the migrate command.
type Migrator interface {
	Up() error
	Down(steps int) error
	Version() (uint, bool, error)
	Close() error
}

// MigrateOptions defines available flags for the migrate command.
type MigrateOptions struct {
	Action string
	Steps  int
	Stdout io.Writer
	Stderr io.Writer
}

// MigrateCommand runs one migrate action and returns the process exit code.
func MigrateCommand(m Migrator, opts MigrateOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	defer func() {
		if err := m.Close(); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "migrate: close: %v\n", err)
		}
	}()

	switch opts.Action {
	case "up":
		if err := m.Up(); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "migrate up: %v\n", err)
			return 1
		}
	case "down":
		if err := m.Down(opts.Steps); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "migrate down: %v\n", err)
			return 1
		}
	case "version":
	default:
		_, _ = fmt.Fprintf(opts.Stderr, "migrate: unknown action %q (expected up, down or version)\n", opts.Action)
		return 2
	}

	version, dirty, err := m.Version()
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "migrate version: %v\n", err)
		return 1
	}
	suffix := ""
	if dirty {
		suffix = " (dirty)"
	}
	_, _ = fmt.Fprintf(opts.Stdout, "schema version %d%s\n", version, suffix)
	return 0
}
