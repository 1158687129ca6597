package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	oerrors "github.com/Aman-CERP/orag/internal/errors"
	"github.com/Aman-CERP/orag/internal/index"
	"github.com/Aman-CERP/orag/internal/search"
	"github.com/Aman-CERP/orag/internal/ui"
)

// previewLen is the number of chunk characters shown per search result.
const previewLen = 80

// IndexResult prints the outcome of an index run.
func (w *Writer) IndexResult(res index.Result) {
	if res.Status != index.StatusSuccess {
		w.Error("Indexing failed")
		for _, e := range res.Errors {
			_, _ = fmt.Fprintf(w.out, "  • %s\n", e)
		}
		return
	}

	w.Successf("Indexed %s documents in %.1fs",
		humanize.Comma(int64(res.DocumentsIndexed)), res.TimeElapsedMS/1000)
	_, _ = fmt.Fprintf(w.out, "  %s %s\n", w.styles.Label.Render("Chunks created:"), humanize.Comma(int64(res.ChunksCreated)))
	_, _ = fmt.Fprintf(w.out, "  %s %s\n", w.styles.Label.Render("Vector store:"), res.VectorStorePath)
	if len(res.Errors) > 0 {
		w.Warningf("%d documents skipped", len(res.Errors))
		for _, e := range res.Errors {
			_, _ = fmt.Fprintf(w.out, "  • %s\n", w.styles.Dim.Render(e))
		}
	}
}

// SearchResults prints ranked results as a table.
func (w *Writer) SearchResults(resp search.SearchResponse) {
	if resp.Status != search.StatusSuccess {
		w.Error("Search failed")
		if resp.Error != "" {
			_, _ = fmt.Fprintf(w.out, "  %s\n", resp.Error)
		}
		return
	}
	if len(resp.Results) == 0 {
		w.Warningf("No results found for: %q", resp.Query)
		return
	}

	_, _ = fmt.Fprintf(w.out, "\n%s %s\n\n",
		w.styles.Header.Render(fmt.Sprintf("Search: %q", resp.Query)),
		w.styles.Dim.Render(fmt.Sprintf("(%.1fms)", resp.QueryTimeMS)))

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(w.styles.Border).
		Headers("#", "Document", "Score", "Preview").
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Inherit(w.styles.Header)
			}
			if col == 3 {
				return s.Inherit(w.styles.Dim)
			}
			return s
		})
	for i, r := range resp.Results {
		t.Row(fmt.Sprintf("%d", i+1), r.FilePath, fmt.Sprintf("%.3f", r.Score), preview(r.Chunk, previewLen))
	}
	_, _ = fmt.Fprintln(w.out, t.String())
	w.Hint("use --json for machine-readable output")
}

// RAGContext prints a context summary, and the context itself when
// showContext is set.
func (w *Writer) RAGContext(resp search.RAGResponse, showContext bool) {
	if resp.Status != search.StatusSuccess {
		w.Error("RAG retrieval failed")
		if resp.Error != "" {
			_, _ = fmt.Fprintf(w.out, "  %s\n", resp.Error)
		}
		return
	}

	label := w.styles.Label.Render
	summary := strings.Join([]string{
		fmt.Sprintf("%s %s", label("Query:"), resp.Query),
		fmt.Sprintf("%s %s chars from %d sources", label("Context:"),
			humanize.Comma(int64(resp.ContextLength)), len(resp.Sources)),
		fmt.Sprintf("%s %.1fms", label("Retrieved in:"), resp.QueryTimeMS),
	}, "\n")
	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ui.ColorAccent)).
		Padding(0, 1)
	_, _ = fmt.Fprintln(w.out, panel.Render(summary))

	_, _ = fmt.Fprintf(w.out, "\n%s\n", w.styles.Header.Render("Sources:"))
	for i, s := range resp.Sources {
		_, _ = fmt.Fprintf(w.out, "  %d. %s %s\n", i+1, s.FileName,
			w.styles.Dim.Render(fmt.Sprintf("(score: %.3f, %s chars)", s.RelevanceScore, humanize.Comma(int64(s.CharCount)))))
	}

	if showContext {
		_, _ = fmt.Fprintf(w.out, "\n%s\n\n%s\n", w.styles.Header.Render("Context:"), resp.Context)
		return
	}
	w.Hint("use --show-context to display the full context")
}

// Err prints a coded error with its suggestion.
func (w *Writer) Err(err error) {
	_, _ = fmt.Fprint(w.out, w.styles.Error.Render(oerrors.FormatForCLI(err)))
}

// preview flattens newlines and cuts s to n runes.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
