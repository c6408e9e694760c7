package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset() {
	_ = Configure(Options{})
	SetOutput(os.Stderr)
}

func TestSetVerbose(t *testing.T) {
	defer reset()

	SetVerbose(false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestDebug_WhenVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Debug("test message %s", "arg")

	out := buf.String()
	assert.Contains(t, out, "DEBUG")
	assert.Contains(t, out, "test message arg")
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Debug("test message")
	Info("info message")

	assert.Zero(t, buf.Len())
}

func TestWarn_AlwaysShown(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	Warn("warning %d", 1)

	assert.Contains(t, buf.String(), "WARN")
	assert.Contains(t, buf.String(), "warning 1")
}

func TestSection(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Section("Indexing")

	assert.Contains(t, buf.String(), "=== Indexing ===")
}

func TestConfigure_JSONWithFields(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	require.NoError(t, Configure(Options{JSON: true, Level: "info"}))

	With(String("document_id", "doc-1"), Int("chunks", 3)).Info("indexed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "indexed", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "doc-1", entry["document_id"])
	assert.EqualValues(t, 3, entry["chunks"])
}

func TestConfigure_InvalidLevel(t *testing.T) {
	defer reset()

	err := Configure(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestConfigure_RotatedFile(t *testing.T) {
	defer reset()

	path := filepath.Join(t.TempDir(), "dossier.log")
	var buf bytes.Buffer
	SetOutput(&buf)
	require.NoError(t, Configure(Options{Level: "info", File: path, MaxSizeMB: 1}))

	Info("to file")
	require.NoError(t, Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestConcurrentAccess(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			SetVerbose(true)
			Debug("concurrent %d", i)
			IsVerbose()
			SetVerbose(false)
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}
