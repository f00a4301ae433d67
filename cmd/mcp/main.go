package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/nobelvoices/laureate-rag/internal/adapters/mcp"
	"github.com/nobelvoices/laureate-rag/internal/bootstrap"
	"github.com/nobelvoices/laureate-rag/internal/config"
)

// mcp exposes the query pipeline over the Model Context Protocol on stdio.
func main() {
	// Stdio belongs to the MCP transport; logging must stay on stderr.
	log.SetOutput(os.Stderr)

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	server := mcpadapter.NewServer(app.QueryUC, app.Laureates)
	if err := server.Serve(ctx); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
