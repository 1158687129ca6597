package errors

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForCLI_IncludesHintAndCode(t *testing.T) {
	// Given: a config-not-found error
	err := ConfigNotFound("no .orag.yaml found")

	// When: formatting for the CLI
	out := FormatForCLI(err)

	// Then: message, hint and code are present
	assert.Contains(t, out, "Error: no .orag.yaml found")
	assert.Contains(t, out, "Hint: run `orag init`")
	assert.Contains(t, out, "Code: ERR_101_CONFIG_NOT_FOUND")
}

func TestFormatForCLI_WrapsPlainErrors(t *testing.T) {
	out := FormatForCLI(errors.New("boom"))

	assert.Contains(t, out, "Error: boom")
	assert.Contains(t, out, ErrCodeInternal)
	assert.Empty(t, FormatForCLI(nil))
}

func TestFormatJSON_RoundTripsFields(t *testing.T) {
	// Given: a backend error with a cause
	err := BackendFailure("embed failed", errors.New("connection refused")).
		WithDetail("provider", "ollama")

	// When: formatting as JSON
	data, jerr := FormatJSON(err)
	require.NoError(t, jerr)

	// Then: the payload carries code, category and cause
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, ErrCodeBackend, got["code"])
	assert.Equal(t, "BACKEND", got["category"])
	assert.Equal(t, "connection refused", got["cause"])
	assert.Equal(t, "ollama", got["details"].(map[string]any)["provider"])
}

func TestFormatForLog_PlainAndStructured(t *testing.T) {
	assert.Len(t, FormatForLog(errors.New("plain")), 1)
	assert.Nil(t, FormatForLog(nil))

	attrs := FormatForLog(CollectionNotFound("notes", errors.New("no rows")))
	// error_code, error, category, cause, detail_collection
	assert.Len(t, attrs, 5)
}
