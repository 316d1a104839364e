package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates an adapter writing to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event as one "registry" record.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("category", event.Category.String()),
	}
	if event.ContextID != "" {
		attrs = append(attrs, slog.String("ctx_id", event.ContextID))
	}
	if event.Entity != "" {
		attrs = append(attrs, slog.String("entity", event.Entity))
	}

	switch {
	case event.Put != nil:
		attrs = append(attrs,
			slog.String("put_kind", event.Put.Kind.String()),
			slog.String("value", event.Put.Value),
		)
		if event.Put.Words > 0 {
			attrs = append(attrs, slog.Int("words", event.Put.Words))
		}
		if event.Put.Error != "" {
			attrs = append(attrs, slog.String("error", event.Put.Error))
		} else {
			attrs = append(attrs, slog.Uint64("stamp", event.Put.Stamp))
		}
	case event.Report != nil:
		attrs = append(attrs,
			slog.String("changes", event.Report.Categories),
			slog.Bool("check_only", event.Report.CheckOnly),
			slog.Int("lines", event.Report.Lines),
			slog.Duration("duration", event.Report.Duration),
		)
		if event.Report.FormatErrors > 0 {
			attrs = append(attrs, slog.Int("format_errors", event.Report.FormatErrors))
		}
	case event.Config != nil:
		attrs = append(attrs, slog.String("error", event.Config.Message))
	case event.State != nil:
		attrs = append(attrs,
			slog.String("old_state", event.State.OldState),
			slog.String("new_state", event.State.NewState),
		)
		if event.State.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.State.Reason))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "registry", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
