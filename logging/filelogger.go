// Package logging handles per-run artifacts: a run directory and a copy
// of the console output with ANSI color stripped.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/acarl005/stripansi"
	"github.com/jedib0t/go-pretty/v6/text"
)

const (
	// RunDirectoryPrefix is the standardized prefix for run directories.
	RunDirectoryPrefix = "testrun-"

	ConsoleLogFilename = "console.log"
	SummaryFilename    = "summary.log"
)

// FileLogger tees console lines into a per-run log file. Simulator
// output itself lives next to the test images; this captures only the
// orchestrator's own console stream.
type FileLogger struct {
	runDir  string
	runID   string
	console io.Writer // normally os.Stdout
	mu      sync.Mutex
	file    *os.File
}

// NewFileLogger creates the run directory under baseDir and opens the
// console log file inside it.
func NewFileLogger(baseDir, runID string) (*FileLogger, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir cannot be empty")
	}
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}

	runDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory %s: %w", runDir, err)
	}

	file, err := os.Create(filepath.Join(runDir, ConsoleLogFilename))
	if err != nil {
		return nil, fmt.Errorf("failed to create console log: %w", err)
	}

	return &FileLogger{
		runDir:  runDir,
		runID:   runID,
		console: os.Stdout,
		file:    file,
	}, nil
}

// GetRunID returns the run identifier.
func (l *FileLogger) GetRunID() string {
	return l.runID
}

// RunDir returns the per-run artifact directory.
func (l *FileLogger) RunDir() string {
	return l.runDir
}

// SetConsole overrides the console writer. Used by tests to capture
// output.
func (l *FileLogger) SetConsole(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.console = w
}

// Println writes a line to the console as-is and to the run log with
// ANSI escapes stripped.
func (l *FileLogger) Println(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintln(l.console, line)
	if l.file != nil {
		fmt.Fprintln(l.file, stripansi.Strip(line))
	}
}

// Close flushes and closes the run log file.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// ColorOK returns the colorized pass marker for console lines.
func ColorOK() string {
	return text.FgGreen.Sprint("ok")
}

// ColorFail returns the colorized fail marker for console lines.
func ColorFail() string {
	return text.FgRed.Sprint("fail")
}
