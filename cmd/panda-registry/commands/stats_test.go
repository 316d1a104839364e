package commands

import (
	"bytes"
	"strings"
	"testing"
)

func TestStats(t *testing.T) {
	path := createTestLogFile(t, testEvents())

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"Total Events: 6",
		"PUT:", "REPORT:", "CONFIG:", "STATE:",
		"VALUE:", "TABLE:",
		"Reported Lines: 4",
		"Contexts: 2",
		"[abc12345] 1 reports (3 lines), 0 checks",
		"[def67890] 0 reports (0 lines), 1 checks",
		"Failed Puts:    1",
		"Config Errors:  1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q\n%s", want, output)
		}
	}
}

func TestStatsEmpty(t *testing.T) {
	path := createTestLogFile(t, nil)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "Total Events: 0") {
		t.Errorf("expected zero events\n%s", output)
	}
	if strings.Contains(output, "Time Range") {
		t.Error("empty log should not print a time range")
	}
}
