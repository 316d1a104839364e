// Package commands implements the panda-registry event log commands.
package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pandablocks/panda-registry/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Category     *log.Category
	ContextID    string
	EntityPrefix string
	ErrorsOnly   bool
}

func (f ViewFilter) filter() log.Filter {
	return log.Filter{
		Category:     f.Category,
		ContextID:    f.ContextID,
		EntityPrefix: f.EntityPrefix,
		ErrorsOnly:   f.ErrorsOnly,
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [ctx:id] CATEGORY entity
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	ctxID := shortenContextID(event.ContextID)
	if ctxID == "" {
		ctxID = "-"
	}
	fmt.Fprintf(w, "%s [ctx:%s] %-6s %s\n", ts, ctxID, event.Category.String(), event.Entity)

	// Type-specific details
	switch {
	case event.Put != nil:
		formatPutDetails(w, event.Put)
	case event.Report != nil:
		formatReportDetails(w, event.Report)
	case event.Config != nil:
		fmt.Fprintf(w, "  Error: %s\n", event.Config.Message)
	case event.State != nil:
		formatStateDetails(w, event.State)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenContextID returns the first 8 characters of the context ID.
func shortenContextID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatPutDetails(w io.Writer, put *log.PutEvent) {
	fmt.Fprintf(w, "  Kind: %s\n", put.Kind.String())
	if put.Kind == log.PutTable {
		fmt.Fprintf(w, "  Words: %d\n", put.Words)
	} else {
		fmt.Fprintf(w, "  Value: %q\n", put.Value)
	}
	if put.Error != "" {
		fmt.Fprintf(w, "  Error: %s\n", put.Error)
	} else {
		fmt.Fprintf(w, "  Stamp: %d\n", put.Stamp)
	}
}

func formatReportDetails(w io.Writer, report *log.ReportEvent) {
	mode := "generate"
	if report.CheckOnly {
		mode = "check"
	}
	fmt.Fprintf(w, "  Changes: %s (%s)\n", report.Categories, mode)
	fmt.Fprintf(w, "  Lines: %d\n", report.Lines)
	if report.FormatErrors > 0 {
		fmt.Fprintf(w, "  Format errors: %d\n", report.FormatErrors)
	}
	if report.Duration > 0 {
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(report.Duration))
	}
}

func formatStateDetails(w io.Writer, state *log.StateEvent) {
	if state.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", state.OldState, state.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", state.NewState)
	}
	if state.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", state.Reason)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "put":
		return log.CategoryPut, nil
	case "report":
		return log.CategoryReport, nil
	case "config":
		return log.CategoryConfig, nil
	case "state":
		return log.CategoryState, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be put, report, config, or state)", s)
	}
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter.filter())
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}

	return nil
}
