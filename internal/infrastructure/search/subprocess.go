package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
)

// workerRequest and workerResponse are the stdio wire format between the
// service and the search worker binary. One JSON document each way per
// invocation. The request carries the query embedding, never the query
// text: embedding happens in the parent so the worker only has to load the
// vector-search stack.
type workerRequest struct {
	Vector []float32           `json:"vector"`
	TopK   int                 `json:"top_k"`
	Filter domain.SearchFilter `json:"filter"`
}

type workerResponse struct {
	Results []domain.RawResult `json:"results"`
	Error   string             `json:"error,omitempty"`
}

// SubprocessBackend embeds locally and shells out to a worker binary for
// the nearest-neighbor search. Isolation over latency: a crashing or
// leaking search engine takes down one invocation, not the service.
type SubprocessBackend struct {
	embedder   queryEmbedder
	workerPath string
	timeout    time.Duration
	logger     *slog.Logger
}

func NewSubprocessBackend(embedder queryEmbedder, workerPath string, timeout time.Duration, logger *slog.Logger) *SubprocessBackend {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SubprocessBackend{embedder: embedder, workerPath: workerPath, timeout: timeout, logger: logger}
}

func (b *SubprocessBackend) Search(ctx context.Context, query string, topK int, filter domain.SearchFilter) ([]domain.RawResult, error) {
	if err := validateSearch(query, topK); err != nil {
		return nil, err
	}

	vector, err := b.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, domain.WrapError(domain.ErrEmbeddingFailure, "embed search query", err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	input, err := json.Marshal(workerRequest{Vector: vector, TopK: topK, Filter: filter})
	if err != nil {
		return nil, fmt.Errorf("marshal worker request: %w", err)
	}

	cmd := exec.CommandContext(ctx, b.workerPath)
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if runErr != nil {
		b.logger.Warn("search_worker_failed",
			"worker", b.workerPath,
			"error", runErr,
			"stderr", strings.TrimSpace(stderr.String()),
			"duration_ms", float64(elapsed.Microseconds())/1000.0,
		)
		if ctx.Err() == context.DeadlineExceeded {
			return nil, domain.WrapErrorf(domain.ErrBackendUnavailable, "subprocess search",
				"worker timed out after %s", b.timeout)
		}
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "subprocess search", runErr)
	}

	var resp workerResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, domain.WrapErrorf(domain.ErrBackendUnavailable, "subprocess search",
			"malformed worker output: %v", err)
	}
	if resp.Error != "" {
		return nil, domain.WrapErrorf(domain.ErrBackendUnavailable, "subprocess search", "%s", resp.Error)
	}
	if resp.Results == nil {
		return []domain.RawResult{}, nil
	}
	return resp.Results, nil
}
