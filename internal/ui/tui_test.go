package ui

import (
	"bytes"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestNewTUIRenderer_FailsForNonTTY(t *testing.T) {
	r, err := NewTUIRenderer(NewConfig(&bytes.Buffer{}))

	assert.Error(t, err)
	assert.Nil(t, r)
}

func TestNewRenderer_PlainForBuffers(t *testing.T) {
	r := NewRenderer(NewConfig(&bytes.Buffer{}))

	_, ok := r.(*PlainRenderer)
	assert.True(t, ok)
}

func TestIndexingModel_StageIndicators(t *testing.T) {
	// Given: a model in the embedding stage
	tracker := NewProgressTracker()
	model := newIndexingModel(tracker, "/notes")
	model.styles = NoColorStyles()
	tracker.SetStage(StageEmbedding, 10)
	tracker.Update(4, "ideas/cats.md")

	// When: rendering
	view := model.View()

	// Then: stages, counts and the current file are shown
	assert.Contains(t, view, "orag index • /notes")
	assert.Contains(t, view, "● Scanning")
	assert.Contains(t, view, "○ Finalizing")
	assert.Contains(t, view, "4 / 10 documents")
	assert.Contains(t, view, "ideas/cats.md")
}

func TestIndexingModel_CtrlCInvokesCancel(t *testing.T) {
	called := false
	model := newIndexingModel(NewProgressTracker(), "")
	model.onCancel = func() { called = true }

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	assert.True(t, called)
	assert.NotNil(t, cmd)
	assert.Equal(t, "Cancelled.\n", model.View())
}

func TestIndexingModel_CompleteView(t *testing.T) {
	model := newIndexingModel(NewProgressTracker(), "")
	model.styles = NoColorStyles()

	_, _ = model.Update(completeMsg(CompletionStats{Documents: 3, Chunks: 9, Duration: 2 * time.Second}))
	view := model.View()

	assert.Contains(t, view, "Indexing complete")
	assert.Contains(t, view, "9")
	assert.Contains(t, view, "2s")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{42 * time.Second, "42s"},
		{2 * time.Minute, "2m"},
		{2*time.Minute + 5*time.Second, "2m 5s"},
		{90 * time.Minute, "1h 30m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.in))
	}
}

func TestTruncateFilePath(t *testing.T) {
	assert.Equal(t, "a/b.md", truncateFilePath("a/b.md", 20))
	assert.Equal(t, ".../b.md", truncateFilePath("aaaaaaaa/b.md", 8))
	got := truncateFilePath("projects/archive/2023/long-note.md", 24)
	assert.LessOrEqual(t, len(got), 24)
	assert.Contains(t, got, "long-note.md")
}
