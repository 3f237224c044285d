package acceptor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/riscv-tools/sim-acceptor/flags"
	"github.com/riscv-tools/sim-acceptor/types"
)

// RootMarkerFile marks the repository root; the root is discovered by
// walking up from the working directory until a directory containing it
// is found.
const RootMarkerFile = "SAIL_RISCV_ROOTDIR"

// Config holds the application configuration. Built once from flag
// defaults plus overrides; never mutated afterwards.
type Config struct {
	RootDir            string          // resolved repository root
	TestDir            string          // resolved test image directory
	Widths             []types.Width   // word-widths to run, in run order
	Backends           []types.Backend // backends to run, in run order
	Outfile            string          // XML report path
	SwitchesFile       string          // per-test switch table YAML, optional
	IgnoreFile         string          // ignore list YAML, optional
	Coverage           bool            // collect Sail model coverage
	CleanBuild         bool            // 'make clean' before each combination
	StopOnBuildFailure bool            // abort the run on a failed backend build
	TestTimeout        time.Duration   // per-test wall-clock timeout
	MakeBinary         string
	LogDir             string
	MetricsGateway     string
	MetricsJob         string
	Log                log.Logger
}

// NewConfig creates a new Config from cli context. All path resolution
// and existence checks happen here, before anything executes.
func NewConfig(ctx *cli.Context, logger log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, err
	}

	rootDir, err := resolveRootDir(ctx.String(flags.RootDir.Name))
	if err != nil {
		return nil, err
	}

	testDir, err := resolveTestDir(ctx.StringSlice(flags.TestDir.Name))
	if err != nil {
		return nil, err
	}

	var widths []types.Width
	if ctx.Bool(flags.Run32Bit.Name) {
		widths = append(widths, types.Width32)
	}
	if ctx.Bool(flags.Run64Bit.Name) {
		widths = append(widths, types.Width64)
	}

	// The alternate simulator runs first within each width, matching
	// the historical suite order.
	var backends []types.Backend
	if ctx.Bool(flags.OCamlSim.Name) {
		backends = append(backends, types.BackendOCaml)
	}
	if ctx.Bool(flags.CSim.Name) {
		backends = append(backends, types.BackendC)
	}

	coverage := ctx.Bool(flags.Sailcov.Name)
	cleanBuild := ctx.Bool(flags.CleanBuild.Name)
	// Coverage counts are per-arch; stale objects would pollute them.
	if coverage {
		cleanBuild = true
	}

	for _, name := range []string{flags.TestSwitches.Name, flags.TestIgnore.Name} {
		if path := ctx.String(name); path != "" {
			if _, err := os.Stat(path); err != nil {
				return nil, fmt.Errorf("--%s file %q does not exist", name, path)
			}
		}
	}

	outfile, err := filepath.Abs(ctx.String(flags.Outfile.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for outfile: %w", err)
	}

	logDir, err := filepath.Abs(ctx.String(flags.LogDir.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory: %w", err)
	}

	return &Config{
		RootDir:            rootDir,
		TestDir:            testDir,
		Widths:             widths,
		Backends:           backends,
		Outfile:            outfile,
		SwitchesFile:       ctx.String(flags.TestSwitches.Name),
		IgnoreFile:         ctx.String(flags.TestIgnore.Name),
		Coverage:           coverage,
		CleanBuild:         cleanBuild,
		StopOnBuildFailure: ctx.Bool(flags.StopOnBuildFailure.Name),
		TestTimeout:        ctx.Duration(flags.TestTimeout.Name),
		MakeBinary:         ctx.String(flags.MakeBinary.Name),
		LogDir:             logDir,
		MetricsGateway:     ctx.String(flags.MetricsGateway.Name),
		MetricsJob:         ctx.String(flags.MetricsJob.Name),
		Log:                logger,
	}, nil
}

// resolveRootDir returns the explicit override when given, otherwise
// walks up from the working directory looking for the root marker file.
func resolveRootDir(override string) (string, error) {
	if override != "" {
		abs, err := filepath.Abs(override)
		if err != nil {
			return "", fmt.Errorf("failed to resolve root directory %q: %w", override, err)
		}
		if st, err := os.Stat(abs); err != nil || !st.IsDir() {
			return "", fmt.Errorf("root directory %q does not exist", override)
		}
		return abs, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return FindRepoRoot(dir)
}

// FindRepoRoot walks up from start until it finds a directory containing
// the root marker file.
func FindRepoRoot(start string) (string, error) {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, RootMarkerFile)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("can't find root directory of repository: no %s above %s", RootMarkerFile, start)
		}
		dir = parent
	}
}

// resolveTestDir returns the first configured directory that exists.
// Directories are not merged; the first hit is the sole source.
func resolveTestDir(dirs []string) (string, error) {
	if len(dirs) == 0 {
		return "", errors.New("no test directories configured")
	}
	for _, d := range dirs {
		abs, err := filepath.Abs(d)
		if err != nil {
			continue
		}
		if st, err := os.Stat(abs); err == nil && st.IsDir() {
			return abs, nil
		}
	}
	return "", fmt.Errorf("none of the configured test directories exist: %v", dirs)
}
