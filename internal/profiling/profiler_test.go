package profiling

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nonEmpty(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size(), path)
}

func TestOptions_Enabled(t *testing.T) {
	assert.False(t, Options{}.Enabled())
	assert.True(t, Options{Heap: "heap.prof"}.Enabled())
}

func TestSession_WritesAllProfiles(t *testing.T) {
	// Given
	dir := t.TempDir()
	opts := Options{
		CPU:   filepath.Join(dir, "cpu.prof"),
		Heap:  filepath.Join(dir, "heap.prof"),
		Trace: filepath.Join(dir, "trace.out"),
	}

	// When
	s, err := Start(opts)
	require.NoError(t, err)
	sum := 0
	for i := range 100000 {
		sum += i
	}
	require.NoError(t, s.Stop())

	// Then
	assert.Positive(t, sum)
	nonEmpty(t, opts.CPU)
	nonEmpty(t, opts.Heap)
	nonEmpty(t, opts.Trace)

	// Stop is safe to repeat.
	require.NoError(t, s.Stop())
}

func TestStart_FailureLeavesNothingRunning(t *testing.T) {
	// Given: a valid CPU path but an unwritable trace path
	dir := t.TempDir()
	bad := Options{
		CPU:   filepath.Join(dir, "cpu.prof"),
		Trace: filepath.Join(dir, "missing", "trace.out"),
	}

	// When
	_, err := Start(bad)

	// Then: CPU profiling was stopped, so a new session can start
	require.Error(t, err)
	s, err := Start(Options{CPU: filepath.Join(dir, "cpu2.prof")})
	require.NoError(t, err)
	require.NoError(t, s.Stop())
}
