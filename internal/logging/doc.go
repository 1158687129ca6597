// Package logging configures structured slog output for orag.
//
// Logs go to a size-rotated JSON file under ~/.orag/logs/ and, at a separate
// threshold, to stderr as text. Command output on stdout is never touched, so
// `orag serve` keeps stdout clean for the MCP protocol stream.
package logging
