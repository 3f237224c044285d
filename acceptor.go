// Package acceptor orchestrates the simulator test run: backend builds,
// suite execution per (backend, width) combination, console rendering,
// and report generation.
package acceptor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/riscv-tools/sim-acceptor/builder"
	"github.com/riscv-tools/sim-acceptor/logging"
	"github.com/riscv-tools/sim-acceptor/metrics"
	"github.com/riscv-tools/sim-acceptor/registry"
	"github.com/riscv-tools/sim-acceptor/reporting"
	"github.com/riscv-tools/sim-acceptor/runner"
	"github.com/riscv-tools/sim-acceptor/types"
)

// Acceptor runs the whole test pipeline once.
type Acceptor struct {
	config     *Config
	version    string
	registry   *registry.Registry
	builder    *builder.Builder
	fileLogger *logging.FileLogger
	result     *runner.RunnerResult
	reporter   MetricsReporter
}

// New creates an Acceptor. All configuration-time errors surface here,
// before any build or test runs.
func New(ctx context.Context, config *Config, version string) (*Acceptor, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating acceptor",
		"rootDir", config.RootDir,
		"testDir", config.TestDir,
		"widths", config.Widths,
		"backends", config.Backends,
		"coverage", config.Coverage,
		"cleanBuild", config.CleanBuild)

	reg, err := registry.NewRegistry(registry.Config{
		Log:          config.Log,
		SwitchesFile: config.SwitchesFile,
		IgnoreFile:   config.IgnoreFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	bld, err := builder.New(builder.Config{
		RootDir:  config.RootDir,
		MakeBin:  config.MakeBinary,
		Coverage: config.Coverage,
		Log:      config.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create builder: %w", err)
	}

	fileLogger, err := logging.NewFileLogger(config.LogDir, uuid.New().String())
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}

	return &Acceptor{
		config:     config,
		version:    version,
		registry:   reg,
		builder:    bld,
		fileLogger: fileLogger,
		reporter:   NewDefaultMetricsReporter(),
	}, nil
}

// Run executes every requested (backend, width) combination in order,
// writes the reports, and returns nil on a clean pass, a
// TestFailureError when any test failed, or a RuntimeError on fatal
// configuration or environment problems.
func (a *Acceptor) Run(ctx context.Context) error {
	defer a.fileLogger.Close()

	start := time.Now()
	result := &runner.RunnerResult{RunID: a.fileLogger.GetRunID()}

	// Width-major order: all backends at 32 bit, then all at 64 bit,
	// with a clean between combinations to avoid cross-arch pollution.
	for _, width := range a.config.Widths {
		for _, backend := range a.config.Backends {
			if err := a.runCombination(ctx, backend, width, result); err != nil {
				return err
			}
		}
	}

	result.Duration = time.Since(start)
	a.result = result

	a.printResultsTable()
	a.fileLogger.Println(result.String())

	if err := a.writeReports(); err != nil {
		metrics.RecordError("report_failed")
		return NewRuntimeError(err)
	}

	a.reporter.ReportResults(result.RunID, result)
	if a.config.MetricsGateway != "" {
		if err := metrics.Push(a.config.MetricsGateway, a.config.MetricsJob); err != nil {
			// Metrics delivery must not change the run's verdict.
			a.config.Log.Warn("Failed to push metrics", "gateway", a.config.MetricsGateway, "error", err)
		}
	}

	a.config.Log.Info("Test run completed", "run_id", result.RunID, "status", result.Status,
		"passed", result.Stats.Passed, "failed", result.Stats.Failed)

	if result.Stats.Failed > 0 {
		return NewTestFailureError(result.String())
	}
	return nil
}

// Result returns the aggregate of the last completed run.
func (a *Acceptor) Result() *runner.RunnerResult {
	return a.result
}

// runCombination cleans, builds, and runs one (backend, width) suite,
// folding the finalized suite into the aggregate. Each combination is
// independent: a build failure here is recorded and later combinations
// still run, unless configured otherwise.
func (a *Acceptor) runCombination(ctx context.Context, backend types.Backend, width types.Width, result *runner.RunnerResult) error {
	if a.config.CleanBuild {
		if err := a.builder.Clean(ctx, width); err != nil {
			metrics.RecordError("clean_failed")
			return NewRuntimeError(fmt.Errorf("clean failed: %w", err))
		}
	}

	coverageFile := ""
	if a.config.Coverage && backend.SupportsCoverage() {
		coverageFile = fmt.Sprintf("sailcov_%s", width.ArchString())
	}

	executor, err := runner.NewSimExecutor(runner.ExecutorConfig{
		Binary:       filepath.Join(a.config.RootDir, backend.BinaryPath(width)),
		Backend:      backend,
		Width:        width,
		Timeout:      a.config.TestTimeout,
		CoverageFile: coverageFile,
		Log:          a.config.Log,
	})
	if err != nil {
		return NewRuntimeError(err)
	}

	suiteRunner, err := runner.NewSuiteRunner(runner.Config{
		Backend:    backend,
		Width:      width,
		TestDir:    a.config.TestDir,
		FlagTable:  a.registry.FlagTable(),
		Ignores:    a.registry.IgnoreSet(),
		Executor:   executor,
		FileLogger: a.fileLogger,
		Log:        a.config.Log,
	})
	if err != nil {
		return NewRuntimeError(err)
	}

	suite := suiteRunner.NewSuiteResult()

	a.fileLogger.Println(fmt.Sprintf("%s...", backend.BuildName(width)))
	if err := a.builder.Build(ctx, backend, width); err != nil {
		metrics.RecordError("build_failed")
		if a.config.StopOnBuildFailure {
			return NewRuntimeError(fmt.Errorf("build failed for %s: %w", backend.BuildName(width), err))
		}
		a.config.Log.Error("Build failed, continuing with suite", "backend", backend, "width", width, "error", err)
		suiteRunner.RecordBuildFailure(suite, err)
	} else {
		a.fileLogger.Println(fmt.Sprintf("%s: %s", backend.BuildName(width), logging.ColorOK()))
	}

	if err := suiteRunner.Run(ctx, suite); err != nil {
		return NewRuntimeError(err)
	}

	result.AddSuite(suite)
	return nil
}

// writeReports renders the XML report at the configured path and a text
// summary into the run directory.
func (a *Acceptor) writeReports() error {
	data := reporting.FromRunnerResult(a.result)

	sinks := []reporting.Sink{
		reporting.NewJUnitSink(a.config.Outfile),
		reporting.NewTextSink(filepath.Join(a.fileLogger.RunDir(), logging.SummaryFilename)),
	}
	for _, sink := range sinks {
		if err := sink.Write(data); err != nil {
			return err
		}
	}

	a.config.Log.Info("Wrote test report", "outfile", a.config.Outfile, "runDir", a.fileLogger.RunDir())
	return nil
}

// printResultsTable prints the per-suite results table to the console.
func (a *Acceptor) printResultsTable() {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("Simulator Test Results (%s)", formatDuration(a.result.Duration)))

	t.AppendHeader(table.Row{"Suite", "Duration", "Tests", "Passed", "Failed", "Status"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Suite", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
	})

	for _, suite := range a.result.Suites {
		t.AppendRow(table.Row{
			suite.Name,
			formatDuration(suite.Duration),
			suite.Stats.Total,
			suite.Stats.Passed,
			suite.Stats.Failed,
			getResultString(suite.Status),
		})
	}

	if a.result.Status == types.TestStatusPass {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		formatDuration(a.result.Duration),
		a.result.Stats.Total,
		a.result.Stats.Passed,
		a.result.Stats.Failed,
		getResultString(a.result.Status),
	})

	t.Render()
}
