package types

import (
	"fmt"
	"path/filepath"
	"regexp"
	"time"
)

// Width is the addressed architecture size a test image targets.
type Width int

const (
	Width32 Width = 32
	Width64 Width = 64
)

// ArchString returns the make-level architecture name, e.g. "RV32".
func (w Width) ArchString() string {
	return fmt.Sprintf("RV%d", int(w))
}

// Backend identifies a simulator implementation.
type Backend string

const (
	// BackendC is the reference C simulator.
	BackendC Backend = "c"
	// BackendOCaml is the alternate OCaml simulator.
	BackendOCaml Backend = "ocaml"
)

// BinaryPath returns the path of the simulator binary relative to the
// repository root, as produced by the build system.
func (b Backend) BinaryPath(w Width) string {
	switch b {
	case BackendOCaml:
		return filepath.Join("ocaml_emulator", fmt.Sprintf("riscv_ocaml_sim_%s", w.ArchString()))
	default:
		return filepath.Join("c_emulator", fmt.Sprintf("riscv_sim_%s", w.ArchString()))
	}
}

// LogSuffix returns the per-test log file extension for this backend.
// The suffixes differ so both backends can share a test directory.
func (b Backend) LogSuffix() string {
	if b == BackendC {
		return ".cout"
	}
	return ".out"
}

// DisplayPrefix returns the short console prefix, e.g. "C-32".
func (b Backend) DisplayPrefix(w Width) string {
	if b == BackendC {
		return fmt.Sprintf("C-%d", int(w))
	}
	return fmt.Sprintf("OCaml-%d", int(w))
}

// SuiteName returns the human-readable suite name for a combination.
func (b Backend) SuiteName(w Width) string {
	if b == BackendC {
		return fmt.Sprintf("%d-bit RISCV C-simulator tests", int(w))
	}
	return fmt.Sprintf("%d-bit RISCV OCaml-simulator tests", int(w))
}

// BuildName returns the name used for the synthetic build test case.
func (b Backend) BuildName(w Width) string {
	if b == BackendC {
		return fmt.Sprintf("Building %d-bit RISCV C emulator", int(w))
	}
	return fmt.Sprintf("Building %d-bit RISCV OCaml emulator", int(w))
}

// SupportsCoverage reports whether the backend can collect Sail model
// coverage. Only the C simulator is built with instrumentation; the
// OCaml build and binary do not accept coverage switches.
func (b Backend) SupportsCoverage() bool {
	return b == BackendC
}

// The OCaml simulator cannot run the floating-point test families yet,
// so those candidates are excluded from its suites.
var ocamlExclusions = map[Width]*regexp.Regexp{
	Width32: regexp.MustCompile(`rv32u[fd]`),
	Width64: regexp.MustCompile(`rv64u[fd]`),
}

// Excludes reports whether a candidate path is statically excluded from
// this backend's suite for the given width.
func (b Backend) Excludes(w Width, path string) bool {
	if b != BackendOCaml {
		return false
	}
	re, ok := ocamlExclusions[w]
	return ok && re.MatchString(path)
}

// TestStatus represents the possible states of a test execution
type TestStatus string

const (
	TestStatusPass TestStatus = "pass"
	TestStatusFail TestStatus = "fail"
)

// Candidate is a filesystem entry considered for execution.
type Candidate struct {
	Path string
	Name string // base name of Path
}

// NewCandidate builds a Candidate from a filesystem path.
func NewCandidate(path string) Candidate {
	return Candidate{Path: path, Name: filepath.Base(path)}
}

// TestResult captures the outcome of a single simulator invocation.
type TestResult struct {
	Name     string // display name, e.g. "C-32 add-32"
	Status   TestStatus
	Message  string // short failure reason, empty on pass
	Duration time.Duration
	TimedOut bool
	LogPath  string // per-test simulator log, empty for synthetic records
}
