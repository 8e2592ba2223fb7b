package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAtWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "debug.log")
	rl, err := NewAt(path, log.DebugLevel)
	require.NoError(t, err)
	assert.Equal(t, path, rl.Path())

	rl.Logger.Debug("engine line", "line", "uciok")
	require.NoError(t, rl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, "engine line", entry["msg"])
	assert.Equal(t, "uciok", entry["line"])
	assert.Equal(t, "debug", entry["level"])
}

func TestNewAtRespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	rl, err := NewAt(path, log.InfoLevel)
	require.NoError(t, err)
	rl.Logger.Debug("hidden")
	require.NoError(t, rl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "logger initialized")
}

func TestOrDiscard(t *testing.T) {
	assert.NotNil(t, OrDiscard(nil))
	l := Discard()
	assert.Same(t, l, OrDiscard(l))

	var rl *RuntimeLogger
	assert.Equal(t, "", rl.Path())
	assert.NoError(t, rl.Close())
}
