package ui

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsRenderer_Render(t *testing.T) {
	// Given: stats for an indexed vault
	buf := &bytes.Buffer{}
	r := NewStatsRenderer(buf, true)

	// When: rendering
	err := r.Render(StatsInfo{
		Status:         "success",
		VaultName:      "notes",
		VaultPath:      "/home/me/notes",
		DocumentCount:  1200,
		ChunkCount:     4800,
		StoreSizeBytes: 2_500_000,
		EmbeddingModel: "all-minilm",
		LastIndexed:    time.Now().Add(-2 * time.Hour),
	})

	// Then: humanized values are shown
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Vault: notes")
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "4,800")
	assert.Contains(t, out, "2.5 MB")
	assert.Contains(t, out, "2 hours ago")
}

func TestStatsRenderer_NotIndexed(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewStatsRenderer(buf, true)

	require.NoError(t, r.Render(StatsInfo{Status: "error", VaultName: "notes"}))

	assert.Contains(t, buf.String(), "not indexed")
	assert.Contains(t, buf.String(), "orag index")
}

func TestStatsRenderer_RenderJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewStatsRenderer(buf, true)

	require.NoError(t, r.RenderJSON(map[string]int{"chunk_count": 3}))

	var got map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 3, got["chunk_count"])
}
