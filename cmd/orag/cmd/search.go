package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/orag/internal/output"
	"github.com/Aman-CERP/orag/internal/search"
	"github.com/Aman-CERP/orag/internal/vault"
)

type searchOptions struct {
	topK     int
	minScore float64
	jsonOut  bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the vault by meaning",
		Long: `Embed the query and return the most similar note chunks, ranked by
relevance score (1 is identical, 0 is unrelated).`,
		Example: `  orag search "how do I water succulents"
  orag search "quarterly goals" --top-k 10 --min-score 0.5
  orag search "sourdough starter" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var minScore *float64
			if cmd.Flags().Changed("min-score") {
				minScore = &opts.minScore
			}
			return runSearch(cmd, strings.Join(args, " "), vault.SearchOptions{
				TopK:     opts.topK,
				MinScore: minScore,
			}, opts.jsonOut)
		},
	}

	cmd.Flags().IntVarP(&opts.topK, "top-k", "k", 0, "Maximum number of results (default from config)")
	cmd.Flags().Float64Var(&opts.minScore, "min-score", 0, "Minimum relevance score, 0 to 1 (default from config)")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Output results as JSON")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts vault.SearchOptions, jsonOut bool) error {
	client, err := openVault()
	if err != nil {
		return fail(cmd, jsonOut, err)
	}
	defer func() { _ = client.Close() }()

	resp, err := client.Search(cmd.Context(), query, opts)
	if err != nil {
		return fail(cmd, jsonOut, err)
	}

	out := output.New(cmd.OutOrStdout())
	if jsonOut {
		if err := out.JSON(resp); err != nil {
			return err
		}
	} else {
		out.SearchResults(resp)
	}

	if resp.Status != search.StatusSuccess {
		return errReported
	}
	return nil
}

type ragOptions struct {
	maxChars    int
	maxSources  int
	showContext bool
	jsonOut     bool
}

func newRAGCmd() *cobra.Command {
	var opts ragOptions

	cmd := &cobra.Command{
		Use:   "rag <query>",
		Short: "Build a prompt-ready context block from relevant notes",
		Long: `Retrieve the notes most relevant to the query and pack them into one
context string, bounded by --max-chars. Each source is headed by its file
path and sources are separated by '---'.`,
		Example: `  orag rag "what did I decide about the garden layout"
  orag rag "meeting notes with Dana" --max-chars 4000 --sources 3 --show-context
  orag rag "reading list" --json | jq -r .context`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRAG(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVar(&opts.maxChars, "max-chars", 0, "Maximum context characters (default from config)")
	cmd.Flags().IntVar(&opts.maxSources, "sources", vault.DefaultMaxSources, "Maximum number of sources")
	cmd.Flags().BoolVar(&opts.showContext, "show-context", false, "Print the assembled context")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Output the response as JSON")

	return cmd
}

func runRAG(cmd *cobra.Command, query string, opts ragOptions) error {
	client, err := openVault()
	if err != nil {
		return fail(cmd, opts.jsonOut, err)
	}
	defer func() { _ = client.Close() }()

	resp, err := client.GetRagContext(cmd.Context(), query, vault.RAGOptions{
		MaxChars:   opts.maxChars,
		MaxSources: opts.maxSources,
	})
	if err != nil {
		return fail(cmd, opts.jsonOut, err)
	}

	out := output.New(cmd.OutOrStdout())
	if opts.jsonOut {
		if err := out.JSON(resp); err != nil {
			return err
		}
	} else {
		out.RAGContext(resp, opts.showContext)
	}

	if resp.Status != search.StatusSuccess {
		return errReported
	}
	return nil
}
