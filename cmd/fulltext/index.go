package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/store"
)

func newIndexCmd(a *app) *cobra.Command {
	var (
		jsonl     bool
		batchSize int
	)
	cmd := &cobra.Command{
		Use:   "index FILE...",
		Short: "Add documents to the local index and persist a snapshot",
		Long: `Add documents to the local index. Each FILE becomes one document titled
after its name; with --jsonl each line of FILE is a {"title","body","metadata"}
object. Use "-" to read standard input.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			start := time.Now()
			reqs, err := readDocuments(ctx, args, jsonl, cmd.InOrStdin())
			if err != nil {
				return err
			}
			eng, err := a.openEngine(ctx, nil)
			if err != nil {
				return err
			}
			defer eng.Close()

			if batchSize <= 0 {
				batchSize = 500
			}
			indexed := 0
			for from := 0; from < len(reqs); from += batchSize {
				chunk := reqs[from:min(from+batchSize, len(reqs))]
				docs := make([]store.Document, len(chunk))
				for i := range chunk {
					docs[i] = chunk[i].Document()
				}
				ids, err := eng.AddBatch(ctx, docs)
				if err != nil {
					return fmt.Errorf("indexing documents %d-%d: %w", from, from+len(chunk)-1, err)
				}
				indexed += len(ids)
			}
			path, err := eng.Persist()
			if err != nil {
				return err
			}
			slog.Info("indexing finished", "documents", indexed, "snapshot", path, "latency_ms", time.Since(start).Milliseconds())
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d documents (generation %d)\n", indexed, eng.Snapshot().Generation)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonl, "jsonl", false, "treat input files as JSON lines")
	cmd.Flags().IntVar(&batchSize, "batch-size", 500, "documents applied per index publication")
	return cmd
}
