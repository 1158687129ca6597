package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// isolate points global config at a temp dir, selects the offline embedder
// and drops the relevance floor so tiny vaults always return context.
func isolate(t *testing.T) {
	t.Helper()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("ORAG_EMBED_PROVIDER", "static")
	t.Setenv("ORAG_SEARCH_INDEX", "flat")

	dir := filepath.Join(xdg, "orag")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte("search:\n  min_relevance_score: 0\n"), 0o644))
}

// newVaultDir creates notes in a temp dir, runs init there and chdirs into it.
func newVaultDir(t *testing.T, files map[string]string) string {
	t.Helper()
	isolate(t)

	root := t.TempDir()
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	}
	t.Chdir(root)

	_, err := execute(t, "", "init", "--name", "test-vault")
	require.NoError(t, err)
	return root
}

// execute runs the root command with args and returns its stdout. Stderr
// carries logs and is discarded.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := run(context.Background(), cmd)
	return buf.String(), err
}

func decodeJSON(t *testing.T, s string, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(s), v), "output: %s", s)
}

var petNotes = map[string]string{
	"cats.md": "Cats purr. Cats sleep all day. Cats chase mice.",
	"dogs.md": "Dogs bark. Dogs fetch sticks. Dogs love walks.",
}
