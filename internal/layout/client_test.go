package layout

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/docsage/docsage/internal/log"
)

// newTestClient wires a client against a test server with fast polling.
func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(srv.URL, "test-key", log.NewNop())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	c.httpClient = srv.Client()
	c.pollInterval = time.Millisecond
	c.maxPolls = 10
	return c
}

func TestClientAnalyze(t *testing.T) {
	polls := 0
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("POST /formrecognizer/documentModels/prebuilt-layout:analyze", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Operation-Location", srv.URL+"/operations/op-1")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /operations/op-1", func(w http.ResponseWriter, r *http.Request) {
		polls++
		w.Header().Set("Content-Type", "application/json")
		if polls == 1 {
			_, _ = w.Write([]byte(`{"status":"running"}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"status": "succeeded",
			"analyzeResult": {
				"paragraphs": [
					{"content": "Intro text", "boundingRegions": [{"pageNumber": 1}]},
					{"content": "3", "role": "pageNumber", "boundingRegions": [{"pageNumber": 1}]}
				],
				"tables": [
					{
						"cells": [
							{"content": "a", "rowIndex": 0, "columnIndex": 0},
							{"content": "b", "rowIndex": 0, "columnIndex": 1}
						],
						"boundingRegions": [{"pageNumber": 2}]
					}
				]
			}
		}`))
	})

	srv = httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv)
	analysis, err := c.Analyze(context.Background(), "https://docs.example.com/report.pdf")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(analysis.Paragraphs) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(analysis.Paragraphs))
	}
	if analysis.Paragraphs[0].Content != "Intro text" || analysis.Paragraphs[0].Page != 1 {
		t.Errorf("unexpected first paragraph: %+v", analysis.Paragraphs[0])
	}
	if analysis.Paragraphs[1].Role != RolePageNumber {
		t.Errorf("expected pageNumber role, got %q", analysis.Paragraphs[1].Role)
	}
	if len(analysis.Tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(analysis.Tables))
	}
	if analysis.Tables[0].Page != 2 {
		t.Errorf("table page = %d, want 2", analysis.Tables[0].Page)
	}
	if len(analysis.Tables[0].Cells) != 2 {
		t.Errorf("expected 2 cells, got %d", len(analysis.Tables[0].Cells))
	}
	if polls < 2 {
		t.Errorf("expected at least 2 polls, got %d", polls)
	}
}

func TestClientAnalyzeDocumentUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"InvalidRequest","message":"download failed"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Analyze(context.Background(), "https://docs.example.com/missing.pdf")
	if !errors.Is(err, ErrDocumentUnavailable) {
		t.Errorf("got %v, want ErrDocumentUnavailable", err)
	}
}

func TestClientAnalyzeFailedOperation(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("POST /formrecognizer/documentModels/prebuilt-layout:analyze", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Operation-Location", srv.URL+"/operations/op-2")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /operations/op-2", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"failed","error":{"code":"InternalError","message":"corrupt document"}}`))
	})

	srv = httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Analyze(context.Background(), "https://docs.example.com/corrupt.pdf")
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Errorf("got %v, want ErrAnalysisFailed", err)
	}
}

func TestClientAnalyzeContextCancel(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("POST /formrecognizer/documentModels/prebuilt-layout:analyze", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Operation-Location", srv.URL+"/operations/op-3")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /operations/op-3", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"running"}`))
	})

	srv = httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv)
	c.pollInterval = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Analyze(ctx, "https://docs.example.com/slow.pdf")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
