package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/searcher/snippet"
)

type searchOptions struct {
	limit  int
	format string
}

func newSearchCmd(a *app) *cobra.Command {
	var opts searchOptions
	cmd := &cobra.Command{
		Use:   "search QUERY...",
		Short: "Query the local index",
		Long: `Query the local index. Arguments are joined with spaces.

Examples:
  fulltext search 'rust AND "memory safety"'
  fulltext search 'search* NOT java' --limit 5 --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, err := a.openEngine(ctx, nil)
			if err != nil {
				return err
			}
			defer eng.Close()

			exec := executor.New(eng, a.cfg.Search, nil, nil)
			res, err := exec.Search(ctx, strings.Join(args, " "), opts.limit)
			if err != nil {
				var syntaxErr *parser.QuerySyntaxError
				if errors.As(err, &syntaxErr) {
					return fmt.Errorf("%s (at offset %d near %q)", syntaxErr.Reason, syntaxErr.Offset, syntaxErr.Fragment)
				}
				return err
			}
			if opts.format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			return printResult(cmd, eng, res, a.cfg.Search.SnippetRadius)
		},
	}
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "maximum number of results (0 selects the configured default)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format: text, json")
	return cmd
}

func printResult(cmd *cobra.Command, eng *indexer.Engine, res *executor.SearchResult, radius int) error {
	out := cmd.OutOrStdout()
	if res.TimedOut {
		fmt.Fprintln(out, "query timed out")
		return nil
	}
	if len(res.DroppedTerms) > 0 {
		fmt.Fprintf(out, "ignored: %s\n", strings.Join(res.DroppedTerms, ", "))
	}
	fmt.Fprintf(out, "%d hits for %s\n", res.TotalHits, res.Canonical)
	for i, hit := range res.Results {
		doc, err := eng.Get(cmd.Context(), hit.DocID)
		if err != nil {
			return fmt.Errorf("loading document %d: %w", hit.DocID, err)
		}
		writeHit(out, i+1, hit, doc.Title,
			snippet.Render(doc.Text(), eng.Analyzer(), snippet.Flatten(hit.MatchedPositions), radius))
	}
	return nil
}

func writeHit(w io.Writer, rank int, hit executor.Hit, title, excerpt string) {
	fmt.Fprintf(w, "\n%2d. [%d] %s  (score %.3f)\n", rank, hit.DocID, title, hit.Score)
	if excerpt != "" {
		fmt.Fprintf(w, "    %s\n", excerpt)
	}
}
