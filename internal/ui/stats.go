package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
)

// StatsInfo is the index summary shown by `orag stats`.
type StatsInfo struct {
	Status         string    `json:"status"`
	VaultName      string    `json:"vault_name"`
	VaultPath      string    `json:"vault_path"`
	DocumentCount  int       `json:"document_count"`
	ChunkCount     int       `json:"chunk_count"`
	StoreSizeBytes int64     `json:"-"`
	StoreSizeMB    float64   `json:"vector_store_size_mb"`
	EmbeddingModel string    `json:"embedding_model"`
	LastIndexed    time.Time `json:"-"`
}

// StatsRenderer displays index statistics.
type StatsRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatsRenderer creates a stats renderer.
func NewStatsRenderer(out io.Writer, noColor bool) *StatsRenderer {
	return &StatsRenderer{out: out, styles: GetStyles(noColor || DetectNoColor())}
}

// Render displays stats to the terminal.
func (r *StatsRenderer) Render(info StatsInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Vault: "+info.VaultName))
	_, _ = fmt.Fprintf(r.out, "  Path:         %s\n", info.VaultPath)
	_, _ = fmt.Fprintf(r.out, "  Status:       %s\n", r.renderStatus(info.Status))

	if info.Status != "success" {
		_, _ = fmt.Fprintf(r.out, "\n  %s\n", r.styles.Dim.Render("No index found. Run `orag index` to build one."))
		return nil
	}

	_, _ = fmt.Fprintf(r.out, "  Documents:    %s\n", humanize.Comma(int64(info.DocumentCount)))
	_, _ = fmt.Fprintf(r.out, "  Chunks:       %s\n", humanize.Comma(int64(info.ChunkCount)))
	_, _ = fmt.Fprintf(r.out, "  Store size:   %s\n", humanize.Bytes(uint64(max(info.StoreSizeBytes, 0))))
	_, _ = fmt.Fprintf(r.out, "  Model:        %s\n", info.EmbeddingModel)
	if !info.LastIndexed.IsZero() {
		_, _ = fmt.Fprintf(r.out, "  Last indexed: %s\n", humanize.Time(info.LastIndexed))
	}
	return nil
}

// RenderJSON outputs stats as JSON.
func (r *StatsRenderer) RenderJSON(v any) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (r *StatsRenderer) renderStatus(status string) string {
	switch status {
	case "success":
		return r.styles.Success.Render("indexed")
	case "error":
		return r.styles.Warning.Render("not indexed")
	default:
		return status
	}
}
