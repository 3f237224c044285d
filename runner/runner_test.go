package runner

import (
	"bytes"
	"context"
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riscv-tools/sim-acceptor/logging"
	"github.com/riscv-tools/sim-acceptor/registry"
	"github.com/riscv-tools/sim-acceptor/types"
)

// writeELF synthesizes a minimal RISC-V ELF header for discovery tests.
func writeELF(t *testing.T, path string, is64 bool) {
	t.Helper()

	var buf bytes.Buffer
	ident := make([]byte, 16)
	copy(ident, elf.ELFMAG)
	if is64 {
		ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	} else {
		ident[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	}
	ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	buf.Write(ident)

	w := func(v any) {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}
	w(uint16(elf.ET_EXEC))
	w(uint16(elf.EM_RISCV))
	w(uint32(elf.EV_CURRENT))
	if is64 {
		w(uint64(0))
		w(uint64(0))
		w(uint64(0))
	} else {
		w(uint32(0))
		w(uint32(0))
		w(uint32(0))
	}
	w(uint32(0))
	if is64 {
		w(uint16(64))
	} else {
		w(uint16(52))
	}
	w(uint16(0))
	w(uint16(0))
	w(uint16(0))
	w(uint16(0))
	w(uint16(0))

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0755))
}

type execCall struct {
	name     string
	switches string
}

// stubExecutor records invocations and returns canned outcomes, so the
// pipeline can be tested without subprocesses.
type stubExecutor struct {
	calls []execCall
	fail  map[string]bool
	err   error
}

func (s *stubExecutor) Execute(_ context.Context, candidate types.Candidate, switches string) (*types.TestResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.calls = append(s.calls, execCall{name: candidate.Name, switches: switches})
	status := types.TestStatusPass
	message := ""
	if s.fail[candidate.Name] {
		status = types.TestStatusFail
		message = "simulator exited with status 1"
	}
	return &types.TestResult{
		Name:    fmt.Sprintf("C-32 %s", candidate.Name),
		Status:  status,
		Message: message,
	}, nil
}

func newFileLogger(t *testing.T) *logging.FileLogger {
	t.Helper()
	fl, err := logging.NewFileLogger(t.TempDir(), "test-run")
	require.NoError(t, err)
	fl.SetConsole(io.Discard)
	t.Cleanup(func() { _ = fl.Close() })
	return fl
}

func newSuiteRunner(t *testing.T, cfg Config) *SuiteRunner {
	t.Helper()
	if cfg.FileLogger == nil {
		cfg.FileLogger = newFileLogger(t)
	}
	r, err := NewSuiteRunner(cfg)
	require.NoError(t, err)
	return r
}

func loadTables(t *testing.T, switchesYAML, ignoreYAML string) (*registry.FlagTable, registry.IgnoreSet) {
	t.Helper()
	dir := t.TempDir()
	cfg := registry.Config{}
	if switchesYAML != "" {
		path := filepath.Join(dir, "switches.yaml")
		require.NoError(t, os.WriteFile(path, []byte(switchesYAML), 0644))
		cfg.SwitchesFile = path
	}
	if ignoreYAML != "" {
		path := filepath.Join(dir, "ignore.yaml")
		require.NoError(t, os.WriteFile(path, []byte(ignoreYAML), 0644))
		cfg.IgnoreFile = path
	}
	reg, err := registry.NewRegistry(cfg)
	require.NoError(t, err)
	return reg.FlagTable(), reg.IgnoreSet()
}

func TestSuiteRunnerFiltersCandidates(t *testing.T) {
	testDir := t.TempDir()
	writeELF(t, filepath.Join(testDir, "add-32"), false)
	writeELF(t, filepath.Join(testDir, "mul-32"), false)
	writeELF(t, filepath.Join(testDir, "add-64"), true)
	require.NoError(t, os.WriteFile(filepath.Join(testDir, "README"), []byte("text\n"), 0644))
	// Stale logs from earlier runs must not be picked up as candidates.
	require.NoError(t, os.WriteFile(filepath.Join(testDir, "old.cout"), []byte("SUCCESS\n"), 0644))

	stub := &stubExecutor{}
	r := newSuiteRunner(t, Config{
		Backend:  types.BackendC,
		Width:    types.Width32,
		TestDir:  testDir,
		Executor: stub,
	})

	suite := r.NewSuiteResult()
	require.NoError(t, r.Run(context.Background(), suite))

	require.Len(t, stub.calls, 2)
	assert.Equal(t, "add-32", stub.calls[0].name)
	assert.Equal(t, "mul-32", stub.calls[1].name)

	assert.Equal(t, 2, suite.Stats.Total)
	assert.Equal(t, 2, suite.Stats.Passed)
	assert.Equal(t, 0, suite.Stats.Failed)
	assert.Equal(t, types.TestStatusPass, suite.Status)
	assert.Len(t, suite.Records, 2)
	assert.False(t, suite.Timestamp.IsZero())
}

func TestSuiteRunnerIgnoreSet(t *testing.T) {
	testDir := t.TempDir()
	writeELF(t, filepath.Join(testDir, "add-32"), false)
	writeELF(t, filepath.Join(testDir, "div-32"), false)

	_, ignores := loadTables(t, "", "ignore:\n  - div-32\n")

	stub := &stubExecutor{}
	r := newSuiteRunner(t, Config{
		Backend:  types.BackendC,
		Width:    types.Width32,
		TestDir:  testDir,
		Ignores:  ignores,
		Executor: stub,
	})

	suite := r.NewSuiteResult()
	require.NoError(t, r.Run(context.Background(), suite))

	// The ignored candidate produces no record and does not affect totals.
	require.Len(t, stub.calls, 1)
	assert.Equal(t, "add-32", stub.calls[0].name)
	assert.Equal(t, 1, suite.Stats.Total)
	require.Len(t, suite.Records, 1)
	assert.Equal(t, "C-32 add-32", suite.Records[0].Name)
}

func TestSuiteRunnerBackendExclusions(t *testing.T) {
	testDir := t.TempDir()
	writeELF(t, filepath.Join(testDir, "rv32ui-p-add"), false)
	writeELF(t, filepath.Join(testDir, "rv32uf-p-fadd"), false)
	writeELF(t, filepath.Join(testDir, "rv32ud-p-fdiv"), false)

	t.Run("ocaml skips float families", func(t *testing.T) {
		stub := &stubExecutor{}
		r := newSuiteRunner(t, Config{
			Backend:  types.BackendOCaml,
			Width:    types.Width32,
			TestDir:  testDir,
			Executor: stub,
		})
		suite := r.NewSuiteResult()
		require.NoError(t, r.Run(context.Background(), suite))

		require.Len(t, stub.calls, 1)
		assert.Equal(t, "rv32ui-p-add", stub.calls[0].name)
	})

	t.Run("c runs float families", func(t *testing.T) {
		stub := &stubExecutor{}
		r := newSuiteRunner(t, Config{
			Backend:  types.BackendC,
			Width:    types.Width32,
			TestDir:  testDir,
			Executor: stub,
		})
		suite := r.NewSuiteResult()
		require.NoError(t, r.Run(context.Background(), suite))
		assert.Len(t, stub.calls, 3)
	})
}

func TestSuiteRunnerFlagResolution(t *testing.T) {
	testDir := t.TempDir()
	writeELF(t, filepath.Join(testDir, "add-32"), false)
	writeELF(t, filepath.Join(testDir, "mul-32"), false)

	table, _ := loadTables(t, "switches:\n  - pattern: \"mul\"\n    flags: \"--extra-flag\"\n", "")

	stub := &stubExecutor{}
	r := newSuiteRunner(t, Config{
		Backend:   types.BackendC,
		Width:     types.Width32,
		TestDir:   testDir,
		FlagTable: table,
		Executor:  stub,
	})

	suite := r.NewSuiteResult()
	require.NoError(t, r.Run(context.Background(), suite))

	require.Len(t, stub.calls, 2)
	assert.Equal(t, "add-32", stub.calls[0].name)
	assert.Equal(t, "", stub.calls[0].switches)
	assert.Equal(t, "mul-32", stub.calls[1].name)
	assert.Equal(t, "--extra-flag", stub.calls[1].switches)
}

func TestSuiteRunnerRecordsFailures(t *testing.T) {
	testDir := t.TempDir()
	writeELF(t, filepath.Join(testDir, "add-32"), false)
	writeELF(t, filepath.Join(testDir, "bad-32"), false)

	stub := &stubExecutor{fail: map[string]bool{"bad-32": true}}
	r := newSuiteRunner(t, Config{
		Backend:  types.BackendC,
		Width:    types.Width32,
		TestDir:  testDir,
		Executor: stub,
	})

	suite := r.NewSuiteResult()
	require.NoError(t, r.Run(context.Background(), suite))

	assert.Equal(t, 2, suite.Stats.Total)
	assert.Equal(t, 1, suite.Stats.Passed)
	assert.Equal(t, 1, suite.Stats.Failed)
	assert.Equal(t, types.TestStatusFail, suite.Status)
}

func TestSuiteRunnerBuildFailureRecord(t *testing.T) {
	testDir := t.TempDir()
	writeELF(t, filepath.Join(testDir, "add-32"), false)

	stub := &stubExecutor{}
	r := newSuiteRunner(t, Config{
		Backend:  types.BackendC,
		Width:    types.Width32,
		TestDir:  testDir,
		Executor: stub,
	})

	suite := r.NewSuiteResult()
	r.RecordBuildFailure(suite, errors.New("make: *** [all] Error 2"))
	require.NoError(t, r.Run(context.Background(), suite))

	// The synthetic record is first, then the executed candidate.
	require.Len(t, suite.Records, 2)
	assert.Equal(t, "Building 32-bit RISCV C emulator", suite.Records[0].Name)
	assert.Equal(t, types.TestStatusFail, suite.Records[0].Status)
	assert.Contains(t, suite.Records[0].Message, "build failed")
	assert.Equal(t, 2, suite.Stats.Total)
	assert.Equal(t, 1, suite.Stats.Failed)
	assert.Equal(t, types.TestStatusFail, suite.Status)
}

func TestSuiteRunnerExecutorError(t *testing.T) {
	testDir := t.TempDir()
	writeELF(t, filepath.Join(testDir, "add-32"), false)

	stub := &stubExecutor{err: errors.New("log file unwritable")}
	r := newSuiteRunner(t, Config{
		Backend:  types.BackendC,
		Width:    types.Width32,
		TestDir:  testDir,
		Executor: stub,
	})

	suite := r.NewSuiteResult()
	assert.Error(t, r.Run(context.Background(), suite))
}

func TestDiscoverCandidates(t *testing.T) {
	t.Run("empty directory", func(t *testing.T) {
		candidates, err := DiscoverCandidates(t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, candidates)
	})

	t.Run("sorted flat listing", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{"zeta", "alpha", "mid"} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
		}
		sub := filepath.Join(dir, "subdir")
		require.NoError(t, os.Mkdir(sub, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(sub, "nested"), []byte("x"), 0644))

		candidates, err := DiscoverCandidates(dir)
		require.NoError(t, err)

		var names []string
		for _, c := range candidates {
			names = append(names, c.Name)
		}
		// Non-recursive: the subdirectory itself shows up, its contents
		// do not, and classification filters it out later.
		assert.Equal(t, []string{"alpha", "mid", "subdir", "zeta"}, names)
	})

	t.Run("metacharacters in directory path", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "isa[rv32]")
		require.NoError(t, os.Mkdir(dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "add-32"), []byte("x"), 0644))

		candidates, err := DiscoverCandidates(dir)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, "add-32", candidates[0].Name)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := DiscoverCandidates(filepath.Join(t.TempDir(), "gone"))
		require.Error(t, err)
	})
}

func TestRunnerResultAddSuite(t *testing.T) {
	result := &RunnerResult{}

	s1 := &SuiteResult{Stats: ResultStats{Total: 3, Passed: 3}}
	s2 := &SuiteResult{Stats: ResultStats{Total: 2, Passed: 1, Failed: 1}}
	result.AddSuite(s1)
	assert.Equal(t, types.TestStatusPass, result.Status)

	result.AddSuite(s2)
	assert.Equal(t, 5, result.Stats.Total)
	assert.Equal(t, 4, result.Stats.Passed)
	assert.Equal(t, 1, result.Stats.Failed)
	assert.Equal(t, types.TestStatusFail, result.Status)
	assert.Equal(t, "Passed 4 out of 5", result.String())

	// Aggregate totals equal the sum over folded suites.
	sumTotal := 0
	for _, s := range result.Suites {
		sumTotal += s.Stats.Total
	}
	assert.Equal(t, result.Stats.Total, sumTotal)
}
