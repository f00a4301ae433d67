package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// ServeWorker implements the worker side of the stdio protocol: read one
// request, run the vector search, write one response. The worker receives a
// ready-made embedding and touches no embedding code. Search errors travel
// inside the response body so the parent can distinguish them from protocol
// failures (non-zero exit).
func ServeWorker(ctx context.Context, in io.Reader, out io.Writer, searcher VectorSearcher) error {
	var req workerRequest
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return fmt.Errorf("decode worker request: %w", err)
	}

	var resp workerResponse
	if len(req.Vector) == 0 {
		resp.Error = "request carries no query vector"
	} else if results, err := searcher.SearchVectors(ctx, req.Vector, req.TopK, req.Filter); err != nil {
		resp.Error = err.Error()
	} else {
		resp.Results = results
	}

	if err := json.NewEncoder(out).Encode(resp); err != nil {
		return fmt.Errorf("encode worker response: %w", err)
	}
	return nil
}
