package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/kafka"
)

func newPublishCmd(a *app) *cobra.Command {
	var (
		jsonl bool
		title string
		body  string
	)
	cmd := &cobra.Command{
		Use:   "publish [FILE...]",
		Short: "Queue documents on Kafka for a running server to index",
		Long: `Queue documents on the document ingest topic. Documents come from FILE
arguments (as for "index") or from --title/--body.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var reqs []ingestion.IngestRequest
			if len(args) > 0 {
				var err error
				if reqs, err = readDocuments(ctx, args, jsonl, cmd.InOrStdin()); err != nil {
					return err
				}
			} else {
				if title == "" && body == "" {
					return fmt.Errorf("nothing to publish: pass FILE arguments or --title/--body")
				}
				reqs = []ingestion.IngestRequest{{Title: title, Body: body}}
			}

			topic := a.cfg.Kafka.Topics.DocumentIngest
			producer := kafka.NewProducer(a.cfg.Kafka, topic)
			defer producer.Close()
			pub := publisher.New(producer)

			for i := range reqs {
				resp, err := pub.Publish(ctx, &reqs[i])
				if err != nil {
					return fmt.Errorf("publishing document %d: %w", i, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", resp.Status, resp.EventID)
			}
			slog.Info("documents published", "count", len(reqs), "topic", topic)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonl, "jsonl", false, "treat input files as JSON lines")
	cmd.Flags().StringVar(&title, "title", "", "document title")
	cmd.Flags().StringVar(&body, "body", "", "document body")
	return cmd
}
