package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nobelvoices/laureate-rag/internal/config"
	"github.com/nobelvoices/laureate-rag/internal/infrastructure/search"
	"github.com/nobelvoices/laureate-rag/internal/infrastructure/vector/qdrant"
)

// searchworker serves exactly one vector search read from stdin and writes
// the response to stdout. The parent embeds the query and spawns one worker
// per query in subprocess retrieval mode, so this binary links only the
// search side, never the embedding stack.
func main() {
	// Stdout carries the response payload; all logging goes to stderr.
	log.SetOutput(os.Stderr)

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	if err := search.ServeWorker(ctx, os.Stdin, os.Stdout, vectorDB); err != nil {
		log.Fatalf("search worker error: %v", err)
	}
}
