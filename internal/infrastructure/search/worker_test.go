package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
)

func TestServeWorkerRoundTrip(t *testing.T) {
	searcher := &searcherStub{results: []domain.RawResult{
		{Chunk: domain.Chunk{ID: "c1", Laureate: "Toni Morrison", SourceType: domain.SourceLecture}, Score: 0.8},
	}}
	in := strings.NewReader(`{"vector":[0.1,0.2,0.3],"top_k":4,"filter":{"laureate":"Toni Morrison"}}`)
	var out bytes.Buffer

	if err := ServeWorker(context.Background(), in, &out, searcher); err != nil {
		t.Fatalf("ServeWorker() error = %v", err)
	}
	if len(searcher.lastVector) != 3 || searcher.lastLimit != 4 || searcher.lastFilter.Laureate != "Toni Morrison" {
		t.Fatalf("request not forwarded: vector=%v limit=%d filter=%+v",
			searcher.lastVector, searcher.lastLimit, searcher.lastFilter)
	}

	var resp workerResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "" || len(resp.Results) != 1 || resp.Results[0].ID != "c1" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestServeWorkerRejectsMissingVector(t *testing.T) {
	searcher := &searcherStub{}
	in := strings.NewReader(`{"top_k":4,"filter":{}}`)
	var out bytes.Buffer

	if err := ServeWorker(context.Background(), in, &out, searcher); err != nil {
		t.Fatalf("a vectorless request is a search error, not a protocol error: %v", err)
	}
	if searcher.lastLimit != 0 {
		t.Fatal("search must not run without a query vector")
	}
	var resp workerResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == "" {
		t.Fatal("expected an error in the response body")
	}
}

func TestServeWorkerSearchErrorInBody(t *testing.T) {
	searcher := &searcherStub{err: errors.New("index not loaded")}
	in := strings.NewReader(`{"vector":[0.1],"top_k":4,"filter":{}}`)
	var out bytes.Buffer

	if err := ServeWorker(context.Background(), in, &out, searcher); err != nil {
		t.Fatalf("search errors must travel in the body, got %v", err)
	}
	var resp workerResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.Contains(resp.Error, "index not loaded") {
		t.Fatalf("response error = %q", resp.Error)
	}
}

func TestServeWorkerMalformedRequest(t *testing.T) {
	var out bytes.Buffer
	err := ServeWorker(context.Background(), strings.NewReader("not json"), &out, &searcherStub{})
	if err == nil {
		t.Fatal("expected protocol error for malformed request")
	}
}
