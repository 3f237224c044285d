package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileLogger(t *testing.T) {
	base := t.TempDir()
	fl, err := NewFileLogger(base, "abc-123")
	require.NoError(t, err)
	defer fl.Close()

	assert.Equal(t, "abc-123", fl.GetRunID())
	assert.Equal(t, filepath.Join(base, "testrun-abc-123"), fl.RunDir())

	info, err := os.Stat(fl.RunDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = os.Stat(filepath.Join(fl.RunDir(), ConsoleLogFilename))
	require.NoError(t, err)
}

func TestNewFileLoggerValidation(t *testing.T) {
	_, err := NewFileLogger("", "abc")
	assert.Error(t, err)

	_, err = NewFileLogger(t.TempDir(), "")
	assert.Error(t, err)
}

func TestPrintlnTeesWithStrippedColor(t *testing.T) {
	fl, err := NewFileLogger(t.TempDir(), "run")
	require.NoError(t, err)

	var console bytes.Buffer
	fl.SetConsole(&console)

	fl.Println("rv32ui-p-add: " + ColorOK())
	fl.Println("rv32ui-p-mul: " + ColorFail())
	require.NoError(t, fl.Close())

	// Console keeps the escapes, the file copy does not.
	assert.Contains(t, console.String(), "\x1b[")

	raw, err := os.ReadFile(filepath.Join(fl.RunDir(), ConsoleLogFilename))
	require.NoError(t, err)
	assert.Equal(t, "rv32ui-p-add: ok\nrv32ui-p-mul: fail\n", string(raw))
}

func TestPrintlnAfterClose(t *testing.T) {
	fl, err := NewFileLogger(t.TempDir(), "run")
	require.NoError(t, err)

	var console bytes.Buffer
	fl.SetConsole(&console)
	require.NoError(t, fl.Close())
	require.NoError(t, fl.Close())

	// Console output still works once the file is gone.
	fl.Println("late line")
	assert.Equal(t, "late line\n", console.String())
}
