// Package mcp exposes docsage's question answering and document search as
// MCP tools over the official Go SDK, so agent frontends can ground their
// answers on the indexed corpus.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docsage/docsage/internal/index"
	"github.com/docsage/docsage/internal/rag"
)

// Asker answers questions grounded on the content index.
type Asker interface {
	Ask(ctx context.Context, question string, history []rag.Turn) (*rag.Answer, error)
}

// Embedder turns a search query into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher runs similarity search over the content namespace.
type Searcher interface {
	Search(ctx context.Context, vector []float32, opts ...index.SearchOption) ([]index.Result, error)
}

// Config holds MCP server configuration.
type Config struct {
	Name     string
	Version  string
	Asker    Asker
	Embedder Embedder
	Searcher Searcher
}

// Server wraps the MCP SDK server with docsage's tools.
type Server struct {
	mcpServer *mcp.Server
	asker     Asker
	embedder  Embedder
	searcher  Searcher
}

// NewServer creates an MCP server with ask and search_documents registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if cfg.Asker == nil {
		return nil, fmt.Errorf("asker is required")
	}
	if cfg.Embedder == nil || cfg.Searcher == nil {
		return nil, fmt.Errorf("embedder and searcher are required")
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		mcpServer: mcpServer,
		asker:     cfg.Asker,
		embedder:  cfg.Embedder,
		searcher:  cfg.Searcher,
	}

	if err := s.registerAsk(); err != nil {
		return nil, fmt.Errorf("failed to register ask: %w", err)
	}
	if err := s.registerSearchDocuments(); err != nil {
		return nil, fmt.Errorf("failed to register search_documents: %w", err)
	}

	return s, nil
}

// Run starts the MCP server on the given transport. Blocks until the
// context is cancelled or the transport closes.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

// AskInput defines the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"The question to answer using the indexed documents"`
}

// AskOutput is the JSON payload returned by the ask tool.
type AskOutput struct {
	Answer  string `json:"answer"`
	Sources string `json:"sources,omitempty"`
}

func (s *Server) registerAsk() error {
	inputSchema, err := jsonschema.For[AskInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create input schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using the private document corpus. Returns the answer and the source documents it was grounded on.",
		InputSchema: inputSchema,
	}

	mcp.AddTool(s.mcpServer, tool, func(ctx context.Context, req *mcp.CallToolRequest, in AskInput) (*mcp.CallToolResult, any, error) {
		if in.Question == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "Error: question is required"}},
				IsError: true,
			}, nil, nil
		}

		answer, err := s.asker.Ask(ctx, in.Question, nil)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Error: %v", err)}},
				IsError: true,
			}, nil, nil
		}

		payload, err := json.Marshal(AskOutput{Answer: answer.Answer, Sources: answer.Sources})
		if err != nil {
			return nil, nil, fmt.Errorf("marshal ask output: %w", err)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(payload)}},
		}, nil, nil
	})

	return nil
}

// SearchInput defines the input schema for the search_documents tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"The text to search for"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"How many chunks to return (default 4)"`
}

// SearchHit is one entry of the search_documents result payload.
type SearchHit struct {
	Key      string            `json:"key"`
	Content  string            `json:"content"`
	Distance float64           `json:"distance"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (s *Server) registerSearchDocuments() error {
	inputSchema, err := jsonschema.For[SearchInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create input schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:        "search_documents",
		Description: "Search the private document corpus by semantic similarity. Returns the closest chunks with their source metadata and cosine distance.",
		InputSchema: inputSchema,
	}

	mcp.AddTool(s.mcpServer, tool, func(ctx context.Context, req *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, any, error) {
		if in.Query == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "Error: query is required"}},
				IsError: true,
			}, nil, nil
		}

		vector, err := s.embedder.Embed(ctx, in.Query)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Error: %v", err)}},
				IsError: true,
			}, nil, nil
		}

		results, err := s.searcher.Search(ctx, vector, index.WithTopK(in.TopK))
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Error: %v", err)}},
				IsError: true,
			}, nil, nil
		}

		hits := make([]SearchHit, 0, len(results))
		for _, r := range results {
			hits = append(hits, SearchHit{
				Key:      r.Key,
				Content:  r.Content,
				Distance: r.Distance,
				Metadata: r.Metadata,
			})
		}

		payload, err := json.Marshal(hits)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal search output: %w", err)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(payload)}},
		}, nil, nil
	})

	return nil
}
