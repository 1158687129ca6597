package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
)

// FormatForCLI formats an error for terminal output.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	var oe *OragError
	if !stderrors.As(err, &oe) {
		oe = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", oe.Message))
	if oe.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", oe.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", oe.Code))

	return sb.String()
}

// jsonError is the JSON representation of an error.
type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
}

// FormatJSON returns a JSON representation of the error for --json output.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	var oe *OragError
	if !stderrors.As(err, &oe) {
		oe = Wrap(ErrCodeInternal, err)
	}

	je := jsonError{
		Code:       oe.Code,
		Message:    oe.Message,
		Category:   string(oe.Category),
		Severity:   string(oe.Severity),
		Details:    oe.Details,
		Suggestion: oe.Suggestion,
	}
	if oe.Cause != nil {
		je.Cause = oe.Cause.Error()
	}

	return json.Marshal(je)
}

// FormatForLog returns slog attributes describing err.
func FormatForLog(err error) []any {
	if err == nil {
		return nil
	}

	var oe *OragError
	if !stderrors.As(err, &oe) {
		return []any{slog.String("error", err.Error())}
	}

	attrs := []any{
		slog.String("error_code", oe.Code),
		slog.String("error", oe.Message),
		slog.String("category", string(oe.Category)),
	}
	if oe.Cause != nil {
		attrs = append(attrs, slog.String("cause", oe.Cause.Error()))
	}
	for k, v := range oe.Details {
		attrs = append(attrs, slog.String("detail_"+k, v))
	}
	return attrs
}
