package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/docsage/docsage/internal/layout"
)

// stubAnalyzer returns a fixed analysis or error.
type stubAnalyzer struct {
	analysis *layout.Analysis
	err      error
}

func (s *stubAnalyzer) Analyze(_ context.Context, _ string) (*layout.Analysis, error) {
	return s.analysis, s.err
}

func TestChunksPageGrouping(t *testing.T) {
	analysis := &layout.Analysis{
		Paragraphs: []layout.Paragraph{
			{Content: "page one", Page: 1},
			{Content: "page two", Page: 2},
			{Content: "page three", Page: 3},
		},
	}

	chunks := Chunks(analysis, 2)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0], "page one") || !strings.Contains(chunks[0], "page two") {
		t.Errorf("chunk 0 missing pages 1-2 content: %q", chunks[0])
	}
	if strings.Contains(chunks[0], "page three") {
		t.Errorf("page 3 leaked into chunk 0: %q", chunks[0])
	}
	if !strings.Contains(chunks[1], "page three") {
		t.Errorf("chunk 1 missing page 3 content: %q", chunks[1])
	}
}

func TestChunksExcludedRoles(t *testing.T) {
	analysis := &layout.Analysis{
		Paragraphs: []layout.Paragraph{
			{Content: "body text", Page: 1},
			{Content: "confidential footer", Role: layout.RolePageFooter, Page: 1},
			{Content: "header text", Role: layout.RolePageHeader, Page: 1},
			{Content: "a footnote", Role: layout.RoleFootnote, Page: 1},
			{Content: "7", Role: layout.RolePageNumber, Page: 1},
		},
	}

	chunks := Chunks(analysis, 2)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	for _, banned := range []string{"confidential footer", "header text", "a footnote"} {
		if strings.Contains(chunks[0], banned) {
			t.Errorf("excluded content %q appears in chunk: %q", banned, chunks[0])
		}
	}
	if !strings.Contains(chunks[0], "body text") {
		t.Errorf("body text missing from chunk: %q", chunks[0])
	}
}

func TestChunksParagraphsNewlineTerminated(t *testing.T) {
	analysis := &layout.Analysis{
		Paragraphs: []layout.Paragraph{
			{Content: "first", Page: 1},
			{Content: "second", Page: 1},
		},
	}

	chunks := Chunks(analysis, 1)
	if chunks[0] != "first\nsecond\n" {
		t.Errorf("got %q, want paragraphs newline-terminated in order", chunks[0])
	}
}

func TestChunksTableLinearization(t *testing.T) {
	analysis := &layout.Analysis{
		Tables: []layout.Table{
			{
				Page: 1,
				Cells: []layout.Cell{
					// Deliberately out of order; output follows row/col indices.
					{Content: "d", Row: 1, Col: 1},
					{Content: "a", Row: 0, Col: 0},
					{Content: "c", Row: 1, Col: 0},
					{Content: "b", Row: 0, Col: 1},
				},
			},
		},
	}

	chunks := Chunks(analysis, 1)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}

	want := "| a | b |\n| c | d |\n|"
	if chunks[0] != want {
		t.Errorf("got %q, want %q", chunks[0], want)
	}

	lines := strings.Split(chunks[0], "\n")
	if len(lines) != 3 || lines[2] != "|" {
		t.Errorf("expected two row lines and a trailing pipe, got %q", lines)
	}
}

func TestChunksTableOnlyPageProducesChunk(t *testing.T) {
	// Pages 1-2 have no content at all; the table sits on page 3.
	analysis := &layout.Analysis{
		Tables: []layout.Table{
			{
				Page: 3,
				Cells: []layout.Cell{
					{Content: "x", Row: 0, Col: 0},
				},
			},
		},
	}

	chunks := Chunks(analysis, 2)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0] != "" {
		t.Errorf("untouched group should be empty, got %q", chunks[0])
	}
	if !strings.HasPrefix(chunks[1], "| x |") {
		t.Errorf("table content missing from chunk 1: %q", chunks[1])
	}
}

func TestChunksEndToEndScenario(t *testing.T) {
	// 4-page document, pages_per_group=2, one footer per page, table on page 3.
	analysis := &layout.Analysis{
		Paragraphs: []layout.Paragraph{
			{Content: "intro", Page: 1},
			{Content: "footer", Role: layout.RolePageFooter, Page: 1},
			{Content: "details", Page: 2},
			{Content: "footer", Role: layout.RolePageFooter, Page: 2},
			{Content: "analysis", Page: 3},
			{Content: "footer", Role: layout.RolePageFooter, Page: 3},
			{Content: "conclusion", Page: 4},
			{Content: "footer", Role: layout.RolePageFooter, Page: 4},
		},
		Tables: []layout.Table{
			{
				Page: 3,
				Cells: []layout.Cell{
					{Content: "metric", Row: 0, Col: 0},
					{Content: "value", Row: 0, Col: 1},
				},
			},
		},
	}

	chunks := Chunks(analysis, 2)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if strings.Contains(chunks[0], "footer") || strings.Contains(chunks[1], "footer") {
		t.Error("footer text leaked into chunks")
	}
	if !strings.Contains(chunks[1], "| metric | value |") {
		t.Errorf("chunk 1 missing linearized table: %q", chunks[1])
	}
	if !strings.Contains(chunks[1], "analysis") || !strings.Contains(chunks[1], "conclusion") {
		t.Errorf("chunk 1 missing pages 3-4 content: %q", chunks[1])
	}
}

func TestExtractorPropagatesAnalyzerErrors(t *testing.T) {
	e, err := New(&stubAnalyzer{err: layout.ErrDocumentUnavailable}, 2)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, err = e.Extract(context.Background(), "https://docs.example.com/gone.pdf")
	if !errors.Is(err, layout.ErrDocumentUnavailable) {
		t.Errorf("got %v, want ErrDocumentUnavailable", err)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, 2); err == nil {
		t.Error("expected error for nil analyzer")
	}
	if _, err := New(&stubAnalyzer{}, 0); err == nil {
		t.Error("expected error for zero pages per group")
	}
}
