package ui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPlainRenderer_UpdateProgress_OutputFormat(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: updating progress
	r.UpdateProgress(ProgressEvent{
		Stage:       StageEmbedding,
		Current:     3,
		Total:       10,
		CurrentFile: "daily/2024-01-01.md",
	})

	// Then: output is correctly formatted
	assert.Equal(t, "[EMBED] 3/10 - daily/2024-01-01.md\n", buf.String())
}

func TestPlainRenderer_UpdateProgress_MessageWithoutTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.UpdateProgress(ProgressEvent{Stage: StageScanning, Message: "Scanning vault"})
	r.UpdateProgress(ProgressEvent{Stage: StageScanning})

	assert.Equal(t, "[SCAN] Scanning vault\n", buf.String())
}

func TestPlainRenderer_NoANSICodes(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	for _, stage := range []Stage{StageScanning, StageLoading, StageEmbedding, StageFinalizing, StageComplete} {
		r.UpdateProgress(ProgressEvent{Stage: stage, Current: 1, Total: 2, Message: "x"})
	}
	r.Complete(CompletionStats{Documents: 2, Chunks: 5})

	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestPlainRenderer_AddError(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.AddError(ErrorEvent{File: "bad.md", Err: errors.New("invalid UTF-8"), IsWarn: true})
	r.AddError(ErrorEvent{Err: errors.New("embedding failed")})

	assert.Equal(t, "WARN: bad.md: invalid UTF-8\nERROR: embedding failed\n", buf.String())
}

func TestPlainRenderer_Complete(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.Complete(CompletionStats{
		Documents: 2,
		Chunks:    7,
		Duration:  1500 * time.Millisecond,
		Warnings:  1,
		Embedder:  EmbedderInfo{Provider: "static", Model: "static-256", Dimensions: 256},
	})

	out := buf.String()
	assert.Contains(t, out, "Complete: 2 documents, 7 chunks indexed in 1.5s (0 errors, 1 warnings)")
	assert.Contains(t, out, "Embedder: static (static-256, 256 dims)")
}
