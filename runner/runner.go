// Package runner implements the test run pipeline: candidate discovery,
// filtering, bounded simulator execution, and suite/aggregate result
// accounting.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/riscv-tools/sim-acceptor/elfinfo"
	"github.com/riscv-tools/sim-acceptor/logging"
	"github.com/riscv-tools/sim-acceptor/metrics"
	"github.com/riscv-tools/sim-acceptor/registry"
	"github.com/riscv-tools/sim-acceptor/types"
)

// SuiteResult captures the outcomes for one (backend, width) combination.
type SuiteResult struct {
	Name      string
	Backend   types.Backend
	Width     types.Width
	Records   []*types.TestResult // ordered, one per executed candidate
	Stats     ResultStats
	Status    types.TestStatus
	Duration  time.Duration
	Timestamp time.Time // completion time, recorded at finalization
}

// RunnerResult is the aggregate across all finalized suites.
type RunnerResult struct {
	Suites   []*SuiteResult
	Stats    ResultStats
	Status   types.TestStatus
	Duration time.Duration
	RunID    string
}

// ResultStats tracks pass/fail counts.
type ResultStats struct {
	Total  int
	Passed int
	Failed int
}

// String returns a one-line human-readable summary.
func (r *RunnerResult) String() string {
	return fmt.Sprintf("Passed %d out of %d", r.Stats.Passed, r.Stats.Total)
}

// AddSuite folds a finalized suite into the aggregate. Aggregate totals
// are maintained here so they always equal the sum over suites.
func (r *RunnerResult) AddSuite(s *SuiteResult) {
	r.Suites = append(r.Suites, s)
	r.Stats.Total += s.Stats.Total
	r.Stats.Passed += s.Stats.Passed
	r.Stats.Failed += s.Stats.Failed
	if r.Stats.Failed > 0 {
		r.Status = types.TestStatusFail
	} else {
		r.Status = types.TestStatusPass
	}
}

// SuiteRunner runs all eligible candidates for one combination.
type SuiteRunner struct {
	backend    types.Backend
	width      types.Width
	testDir    string
	flagTable  *registry.FlagTable
	ignores    registry.IgnoreSet
	executor   SimExecutor
	fileLogger *logging.FileLogger
	log        log.Logger
	tracer     trace.Tracer
}

// Config holds configuration for creating a SuiteRunner.
type Config struct {
	Backend    types.Backend
	Width      types.Width
	TestDir    string // directory holding candidate test images
	FlagTable  *registry.FlagTable
	Ignores    registry.IgnoreSet
	Executor   SimExecutor
	FileLogger *logging.FileLogger
	Log        log.Logger
}

// NewSuiteRunner creates a suite runner for one combination.
func NewSuiteRunner(cfg Config) (*SuiteRunner, error) {
	if cfg.TestDir == "" {
		return nil, fmt.Errorf("test directory is required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.FileLogger == nil {
		return nil, fmt.Errorf("file logger is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	return &SuiteRunner{
		backend:    cfg.Backend,
		width:      cfg.Width,
		testDir:    cfg.TestDir,
		flagTable:  cfg.FlagTable,
		ignores:    cfg.Ignores,
		executor:   cfg.Executor,
		fileLogger: cfg.FileLogger,
		log:        cfg.Log,
		tracer:     otel.Tracer("suite runner"),
	}, nil
}

// NewSuiteResult returns an empty suite for this combination. The suite
// is created before the backend build so a build failure can be
// recorded into it ahead of test execution.
func (r *SuiteRunner) NewSuiteResult() *SuiteResult {
	return &SuiteResult{
		Name:    r.backend.SuiteName(r.width),
		Backend: r.backend,
		Width:   r.width,
	}
}

// RecordBuildFailure appends a synthetic failing record for a broken
// backend build, so the failure is visible in the report while later
// suites still run.
func (r *SuiteRunner) RecordBuildFailure(suite *SuiteResult, buildErr error) {
	r.record(suite, &types.TestResult{
		Name:    r.backend.BuildName(r.width),
		Status:  types.TestStatusFail,
		Message: fmt.Sprintf("build failed: %v", buildErr),
	})
}

// Run executes every eligible candidate into the given suite and
// finalizes it. Per-test failures are recorded, never raised; only
// broken infrastructure (unreadable test directory, unwritable logs) is
// an error. The suite always reaches finalization on a nil error.
func (r *SuiteRunner) Run(ctx context.Context, suite *SuiteResult) error {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("suite %s", suite.Name))
	defer span.End()

	start := time.Now()

	candidates, err := DiscoverCandidates(r.testDir)
	if err != nil {
		return err
	}
	r.log.Debug("Discovered candidates", "suite", suite.Name, "count", len(candidates))

	for _, candidate := range candidates {
		if !r.eligible(candidate) {
			continue
		}

		switches := r.flagTable.Resolve(candidate.Name)
		result, err := r.runOne(ctx, candidate, switches)
		if err != nil {
			return err
		}
		r.record(suite, result)
	}

	r.finalize(suite, start)
	return nil
}

// DiscoverCandidates enumerates the flat contents of dir in sorted
// order. An empty directory yields no candidates and no error. Plain
// directory reading rather than a glob, so metacharacters in the path
// cannot change what is found.
func DiscoverCandidates(dir string) ([]types.Candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading test directory %s: %w", dir, err)
	}
	candidates := make([]types.Candidate, 0, len(entries))
	for _, e := range entries {
		candidates = append(candidates, types.NewCandidate(filepath.Join(dir, e.Name())))
	}
	return candidates, nil
}

// eligible applies the classification, ignore-list and backend
// exclusion predicates. Classification is recomputed per suite; it is
// cheap next to simulation.
func (r *SuiteRunner) eligible(candidate types.Candidate) bool {
	if !elfinfo.Inspect(candidate.Path).Matches(r.width) {
		return false
	}
	if r.ignores.Contains(candidate.Name) {
		r.log.Debug("Ignoring test", "test", candidate.Name)
		return false
	}
	if r.backend.Excludes(r.width, candidate.Path) {
		r.log.Debug("Excluding test for backend", "test", candidate.Name, "backend", r.backend)
		return false
	}
	return true
}

func (r *SuiteRunner) runOne(ctx context.Context, candidate types.Candidate, switches string) (*types.TestResult, error) {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("test %s", candidate.Name))
	defer span.End()

	return r.executor.Execute(ctx, candidate, switches)
}

// record appends exactly one outcome record, updates counters, and
// writes the colorized console line.
func (r *SuiteRunner) record(suite *SuiteResult, result *types.TestResult) {
	suite.Records = append(suite.Records, result)
	suite.Stats.Total++
	if result.Status == types.TestStatusPass {
		suite.Stats.Passed++
		r.fileLogger.Println(fmt.Sprintf("%s: %s", result.Name, logging.ColorOK()))
	} else {
		suite.Stats.Failed++
		r.fileLogger.Println(fmt.Sprintf("%s: %s", result.Name, logging.ColorFail()))
	}
	metrics.RecordTest(suite.Name, result.Name, string(result.Status))
}

func (r *SuiteRunner) finalize(suite *SuiteResult, start time.Time) {
	suite.Duration = time.Since(start)
	suite.Timestamp = time.Now()
	if suite.Stats.Failed > 0 {
		suite.Status = types.TestStatusFail
	} else {
		suite.Status = types.TestStatusPass
	}

	r.fileLogger.Println(fmt.Sprintf("%s: Passed %d out of %d\n", suite.Name, suite.Stats.Passed, suite.Stats.Total))
	metrics.RecordSuite(suite.Name, suite.Stats.Passed, suite.Stats.Failed, suite.Duration)
}
