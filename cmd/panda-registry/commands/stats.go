package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/pandablocks/panda-registry/pkg/log"
)

// Stats holds aggregate statistics about an event log.
type Stats struct {
	TotalEvents      int
	EventsByCategory map[log.Category]int
	PutsByKind       map[log.PutKind]int
	Contexts         map[string]*ContextStats
	FailedPuts       int
	ConfigErrors     int
	FormatErrors     int
	ReportLines      int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// ContextStats holds statistics for a single change-set context.
type ContextStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Reports   int
	Checks    int
	Lines     int
}

// RunStats analyzes the event log and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByCategory: make(map[log.Category]int),
		PutsByKind:       make(map[log.PutKind]int),
		Contexts:         make(map[string]*ContextStats),
	}

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}

	printStats(w, stats)
	return nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByCategory[event.Category]++

	// Track time range
	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	switch {
	case event.Put != nil:
		s.PutsByKind[event.Put.Kind]++
		if event.Put.Error != "" {
			s.FailedPuts++
		}
	case event.Config != nil:
		s.ConfigErrors++
	case event.Report != nil:
		s.ReportLines += event.Report.Lines
		s.FormatErrors += event.Report.FormatErrors
		if event.ContextID == "" {
			return
		}
		ctx, ok := s.Contexts[event.ContextID]
		if !ok {
			ctx = &ContextStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
			s.Contexts[event.ContextID] = ctx
		}
		if event.Timestamp.After(ctx.LastSeen) {
			ctx.LastSeen = event.Timestamp
		}
		if event.Report.CheckOnly {
			ctx.Checks++
		} else {
			ctx.Reports++
			ctx.Lines += event.Report.Lines
		}
	}
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Registry Event Log Statistics ===")
	fmt.Fprintln(w)

	// Time range
	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryPut, log.CategoryReport, log.CategoryConfig, log.CategoryState} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Puts by Kind:")
	for _, kind := range []log.PutKind{log.PutValue, log.PutAttr, log.PutTable, log.PutMetadata} {
		if count := stats.PutsByKind[kind]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", kind.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Reported Lines: %d\n", stats.ReportLines)

	// Contexts
	fmt.Fprintf(w, "Contexts: %d\n", len(stats.Contexts))
	if len(stats.Contexts) > 0 {
		type contextInfo struct {
			id    string
			stats *ContextStats
		}
		contexts := make([]contextInfo, 0, len(stats.Contexts))
		for id, cs := range stats.Contexts {
			contexts = append(contexts, contextInfo{id, cs})
		}
		sort.Slice(contexts, func(i, j int) bool {
			return contexts[i].stats.FirstSeen.Before(contexts[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, c := range contexts {
			duration := c.stats.LastSeen.Sub(c.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d reports (%d lines), %d checks, duration %s\n",
				shortenContextID(c.id), c.stats.Reports, c.stats.Lines, c.stats.Checks, duration)
		}
	}

	// Errors
	if stats.FailedPuts > 0 || stats.ConfigErrors > 0 || stats.FormatErrors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Failed Puts:    %d\n", stats.FailedPuts)
		fmt.Fprintf(w, "Config Errors:  %d\n", stats.ConfigErrors)
		fmt.Fprintf(w, "Format Errors:  %d\n", stats.FormatErrors)
	}
}
