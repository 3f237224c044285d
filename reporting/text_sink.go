package reporting

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// TextSink writes a plain-text summary of the run, suitable for quick
// post-mortem reading in the run directory.
type TextSink struct {
	Path string
}

// NewTextSink creates a sink writing to the given file path.
func NewTextSink(path string) *TextSink {
	return &TextSink{Path: path}
}

// Write renders and writes the summary in one shot.
func (s *TextSink) Write(data *ReportData) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Test run %s\n", data.RunID)
	fmt.Fprintf(&b, "Status: %s\n", data.Status)
	fmt.Fprintf(&b, "Duration: %s\n", data.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "Total: %d  Passed: %d  Failed: %d\n\n", data.Stats.Total, data.Stats.Passed, data.Stats.Failed)

	for _, suite := range data.Suites {
		fmt.Fprintf(&b, "%s: Passed %d out of %d\n", suite.Name, suite.Stats.Passed, suite.Stats.Total)
		for _, test := range suite.Tests {
			if test.Message == "" {
				fmt.Fprintf(&b, "  %s: ok\n", test.Name)
			} else {
				fmt.Fprintf(&b, "  %s: fail (%s)\n", test.Name, test.Message)
			}
		}
		b.WriteString("\n")
	}

	if err := os.WriteFile(s.Path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write summary %s: %w", s.Path, err)
	}
	return nil
}
