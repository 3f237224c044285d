// Package reporting turns runner results into report documents and
// writes them through sinks.
package reporting

import (
	"time"

	"github.com/riscv-tools/sim-acceptor/runner"
	"github.com/riscv-tools/sim-acceptor/types"
)

// ReportStats contains aggregated statistics for a test run or suite.
type ReportStats struct {
	Total    int
	Passed   int
	Failed   int
	PassRate float64
}

// ReportTestItem represents a single test entry in the report.
type ReportTestItem struct {
	Name     string
	Status   types.TestStatus
	Message  string // failure message, empty on pass
	Duration time.Duration
	LogPath  string
}

// ReportSuite represents one (backend, width) suite in the report.
type ReportSuite struct {
	Name      string
	Stats     ReportStats
	Timestamp time.Time
	Duration  time.Duration
	Tests     []ReportTestItem
}

// ReportData contains all the structured data needed for any report
// format.
type ReportData struct {
	RunID    string
	Status   types.TestStatus
	Duration time.Duration
	Stats    ReportStats
	Suites   []ReportSuite
}

// Sink is a consumer of a finished report.
type Sink interface {
	Write(data *ReportData) error
}

// FromRunnerResult builds the report document from the aggregate run
// result.
func FromRunnerResult(result *runner.RunnerResult) *ReportData {
	data := &ReportData{
		RunID:    result.RunID,
		Status:   result.Status,
		Duration: result.Duration,
		Stats:    toStats(result.Stats),
	}

	for _, suite := range result.Suites {
		rs := ReportSuite{
			Name:      suite.Name,
			Stats:     toStats(suite.Stats),
			Timestamp: suite.Timestamp,
			Duration:  suite.Duration,
		}
		for _, rec := range suite.Records {
			rs.Tests = append(rs.Tests, ReportTestItem{
				Name:     rec.Name,
				Status:   rec.Status,
				Message:  rec.Message,
				Duration: rec.Duration,
				LogPath:  rec.LogPath,
			})
		}
		data.Suites = append(data.Suites, rs)
	}

	return data
}

func toStats(s runner.ResultStats) ReportStats {
	stats := ReportStats{
		Total:  s.Total,
		Passed: s.Passed,
		Failed: s.Failed,
	}
	if s.Total > 0 {
		stats.PassRate = float64(s.Passed) / float64(s.Total)
	}
	return stats
}
