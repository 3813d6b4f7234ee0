package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel(" error "))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
}

func TestWriterLogger_FormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "info")

	l.Debug("engine", "hidden")
	l.Info("engine", "found files", F("count", 3))
	l.Named("cleanup").Error("delete failed", errors.New("boom"), F("path", "/x"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO] [engine] found files | count=3")
	assert.Contains(t, out, "[ERROR] [cleanup] delete failed | error=boom | path=/x")
	assert.Empty(t, l.FilePath())
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error("x", "nothing", errors.New("e"))
	l.Named("y").Warn("still nothing")
}

func TestNew_FileRotation(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "test.log")

	l, err := New(Config{Level: "debug", File: logFile, MaxSizeMB: 1, MaxBackups: 2})
	require.NoError(t, err)
	defer l.Close()
	l.console = &bytes.Buffer{}
	l.writers[0] = l.console
	l.maxSize = 64

	for i := 0; i < 10; i++ {
		l.Info("test", strings.Repeat("x", 40))
	}

	assert.FileExists(t, logFile)
	assert.FileExists(t, filepath.Join(dir, "test.1.log"))
	assert.FileExists(t, filepath.Join(dir, "test.2.log"))
	_, err = os.Stat(filepath.Join(dir, "test.3.log"))
	assert.True(t, os.IsNotExist(err), "backups beyond max should be dropped")
}
