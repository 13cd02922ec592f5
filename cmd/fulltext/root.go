package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/store"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/metrics"
)

type app struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "fulltext",
		Short:         "Single-process full-text search engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to YAML config file (defaults plus FT_* env when empty)")

	cmd.AddCommand(
		newServeCmd(a),
		newIndexCmd(a),
		newSearchCmd(a),
		newPublishCmd(a),
		newStatsCmd(a),
		newLoadTestCmd(),
	)
	return cmd
}

// buildAnalyzer turns the analyzer section of the config into the analyzer
// shared by documents and queries.
func buildAnalyzer(cfg config.AnalyzerConfig) (*tokenizer.Analyzer, error) {
	stemmer, err := tokenizer.NewStemmer(cfg.Stemmer)
	if err != nil {
		return nil, fmt.Errorf("building analyzer: %w", err)
	}
	return tokenizer.New(tokenizer.Options{
		StopWords:      cfg.StopWords,
		MinTokenLength: cfg.MinTokenLength,
		MaxTokenLength: cfg.MaxTokenLength,
		Stemmer:        stemmer,
	}), nil
}

// openEngine opens the configured document store and restores the index
// on top of it. Closing the engine closes the store.
func (a *app) openEngine(ctx context.Context, m *metrics.Metrics) (*indexer.Engine, error) {
	analyzer, err := buildAnalyzer(a.cfg.Analyzer)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	st, err := store.Open(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("opening document store: %w", err)
	}
	eng, err := indexer.NewEngine(ctx, a.cfg.Indexer, analyzer, st, m)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("opening index: %w", err)
	}
	slog.Debug("index opened",
		"data_dir", a.cfg.Indexer.DataDir,
		"store_driver", a.cfg.Store.Driver,
		"documents", eng.Snapshot().Index.DocumentCount(),
	)
	return eng, nil
}
