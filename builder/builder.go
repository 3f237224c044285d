// Package builder drives the external build system that produces the
// simulator binaries. Invocations use explicit argument vectors and an
// explicit working directory; only the exit code matters.
package builder

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ethereum/go-ethereum/log"

	"github.com/riscv-tools/sim-acceptor/types"
)

const coverageVar = "SAILCOV=true"

// Builder runs make targets in the repository root.
type Builder struct {
	rootDir  string
	makeBin  string
	coverage bool
	log      log.Logger
}

// Config holds configuration for creating a Builder.
type Config struct {
	RootDir  string // repository root, the make working directory
	MakeBin  string // path to the make binary, defaults to "make"
	Coverage bool   // pass SAILCOV=true to build targets
	Log      log.Logger
}

// New creates a Builder.
func New(cfg Config) (*Builder, error) {
	if cfg.RootDir == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	if cfg.MakeBin == "" {
		cfg.MakeBin = "make"
	}
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	return &Builder{
		rootDir:  cfg.RootDir,
		makeBin:  cfg.MakeBin,
		coverage: cfg.Coverage,
		log:      cfg.Log,
	}, nil
}

// Clean removes build artifacts for one architecture, avoiding
// cross-arch pollution between suites.
func (b *Builder) Clean(ctx context.Context, width types.Width) error {
	return b.run(ctx, fmt.Sprintf("ARCH=%s", width.ArchString()), "clean")
}

// Build produces the simulator binary for one (backend, width)
// combination. The binary is expected at backend.BinaryPath(width)
// under the repository root afterwards.
func (b *Builder) Build(ctx context.Context, backend types.Backend, width types.Width) error {
	args := []string{fmt.Sprintf("ARCH=%s", width.ArchString())}
	if b.coverage && backend.SupportsCoverage() {
		args = append(args, coverageVar)
	}
	args = append(args, backend.BinaryPath(width))
	return b.run(ctx, args...)
}

func (b *Builder) run(ctx context.Context, args ...string) error {
	b.log.Debug("Running build command", "make", b.makeBin, "args", strings.Join(args, " "), "dir", b.rootDir)

	cmd := exec.CommandContext(ctx, b.makeBin, args...)
	cmd.Dir = b.rootDir

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w\n%s", b.makeBin, strings.Join(args, " "), err, tail(output.String(), 20))
	}
	return nil
}

// tail returns the last n lines of s, enough context to diagnose a
// failed build without replaying the whole log.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
