// Command fulltext runs and operates the full-text index.
//
// Usage:
//
//	fulltext serve   [--config configs/development.yaml]
//	fulltext index   FILE...            index files (or JSON lines with --jsonl)
//	fulltext search  QUERY              query the local index
//	fulltext publish FILE...            queue documents on Kafka
//	fulltext stats                      print index statistics
//	fulltext loadtest --url URL         hammer a running server with queries
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
