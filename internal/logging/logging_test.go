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

func TestNew(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := New(&buf, 0).WithName("install")

	log.Info("phase started", "phase", "chart")
	log.V(1).Info("hidden")
	log.Error(errors.New("boom"), "phase failed", "phase", "chart")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "install: "))
	assert.Contains(t, lines[0], `"msg"="phase started"`)
	assert.Contains(t, lines[0], `"phase"="chart"`)
	assert.Contains(t, lines[0], `"ts"=`)
	assert.Contains(t, lines[1], `"error"="boom"`)
}

func TestNew_Verbosity(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	New(&buf, 1).V(1).Info("debug line")
	assert.Contains(t, buf.String(), "debug line")
}

func TestOpen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "hopsworks-install.log")

	f, err := Open(path, 0)
	require.NoError(t, err)
	f.Logger.Info("first")
	require.NoError(t, f.Close())

	f, err = Open(path, 0)
	require.NoError(t, err)
	f.Logger.Info("second")
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "first")
	assert.Contains(t, string(data), "second")

	var nilFile *File
	assert.NoError(t, nilFile.Close())
}

func TestOpen_Error(t *testing.T) {
	t.Parallel()
	_, err := Open(filepath.Join(t.TempDir(), "missing", "x.log"), 0)
	require.Error(t, err)
}
