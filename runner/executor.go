package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/riscv-tools/sim-acceptor/types"
)

// SuccessSentinel is the marker a passing test must print. Exit status
// zero alone is not enough; simulators exit cleanly on traps too.
const SuccessSentinel = "SUCCESS"

var _ SimExecutor = (*simExecutor)(nil)

// SimExecutor runs a single test image under a simulator binary with a
// bounded wall-clock timeout.
type SimExecutor interface {
	// Execute invokes the simulator on the candidate. The combined
	// stdout/stderr is redirected to a log file next to the image,
	// which is left on disk regardless of the outcome.
	Execute(ctx context.Context, candidate types.Candidate, extraSwitches string) (*types.TestResult, error)
}

// simExecutor implements SimExecutor.
type simExecutor struct {
	binary       string // absolute path of the simulator binary
	backend      types.Backend
	width        types.Width
	timeout      time.Duration
	coverageFile string // non-empty enables the coverage switch
	log          log.Logger
}

// ExecutorConfig holds configuration for creating a SimExecutor.
type ExecutorConfig struct {
	Binary       string
	Backend      types.Backend
	Width        types.Width
	Timeout      time.Duration
	CoverageFile string
	Log          log.Logger
}

// NewSimExecutor creates a new simulator executor.
func NewSimExecutor(cfg ExecutorConfig) (SimExecutor, error) {
	if cfg.Binary == "" {
		return nil, fmt.Errorf("simulator binary path cannot be empty")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive")
	}
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	return &simExecutor{
		binary:       cfg.Binary,
		backend:      cfg.Backend,
		width:        cfg.Width,
		timeout:      cfg.Timeout,
		coverageFile: cfg.CoverageFile,
		log:          cfg.Log,
	}, nil
}

// Execute runs one candidate to completion or timeout.
func (e *simExecutor) Execute(ctx context.Context, candidate types.Candidate, extraSwitches string) (*types.TestResult, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	result := &types.TestResult{
		Name:    fmt.Sprintf("%s %s", e.backend.DisplayPrefix(e.width), candidate.Name),
		LogPath: candidate.Path + e.backend.LogSuffix(),
	}

	args := e.buildArgs(candidate, extraSwitches)
	e.log.Debug("Running test", "binary", e.binary, "args", strings.Join(args, " "), "log", result.LogPath)

	logFile, err := os.Create(result.LogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create test log file: %w", err)
	}
	defer logFile.Close()

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, e.binary, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	start := time.Now()
	runErr := cmd.Run()
	result.Duration = time.Since(start)

	_ = logFile.Sync()

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.Status = types.TestStatusFail
		result.TimedOut = true
		result.Message = fmt.Sprintf("timed out after %v", e.timeout)
		return result, nil
	}

	if runErr != nil {
		result.Status = types.TestStatusFail
		exitErr := &exec.ExitError{}
		if errors.As(runErr, &exitErr) {
			result.Message = fmt.Sprintf("simulator exited with status %d", exitErr.ExitCode())
		} else {
			result.Message = fmt.Sprintf("failed to run simulator: %v", runErr)
		}
		return result, nil
	}

	ok, err := logContainsSentinel(result.LogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read test log: %w", err)
	}
	if !ok {
		result.Status = types.TestStatusFail
		result.Message = fmt.Sprintf("output does not contain %q", SuccessSentinel)
		return result, nil
	}

	result.Status = types.TestStatusPass
	return result, nil
}

// buildArgs assembles the simulator argument vector: the optional
// coverage switch, the resolved per-test switches, then the image path.
func (e *simExecutor) buildArgs(candidate types.Candidate, extraSwitches string) []string {
	var args []string
	if e.coverageFile != "" {
		args = append(args, "--sailcov-file", e.coverageFile)
	}
	args = append(args, strings.Fields(extraSwitches)...)
	args = append(args, candidate.Path)
	return args
}

func logContainsSentinel(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	return strings.Contains(string(data), SuccessSentinel), nil
}
