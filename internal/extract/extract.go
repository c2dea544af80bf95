// Package extract turns layout analysis results into ordered text chunks,
// one per page group. Boilerplate paragraphs are dropped and tables are
// linearized into pipe-delimited rows appended to the chunk owning their page.
package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/docsage/docsage/internal/layout"
)

// excludedRoles are paragraph roles never included in chunk text.
var excludedRoles = map[string]struct{}{
	layout.RoleFootnote:   {},
	layout.RolePageHeader: {},
	layout.RolePageFooter: {},
	layout.RolePageNumber: {},
}

// Extractor analyzes a document and groups its text into chunks.
type Extractor struct {
	analyzer      layout.Analyzer
	pagesPerGroup int
}

// New creates an extractor. pagesPerGroup controls how many consecutive
// pages merge into one chunk.
func New(analyzer layout.Analyzer, pagesPerGroup int) (*Extractor, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	if pagesPerGroup < 1 {
		return nil, fmt.Errorf("pages per group must be positive, got %d", pagesPerGroup)
	}
	return &Extractor{analyzer: analyzer, pagesPerGroup: pagesPerGroup}, nil
}

// PagesPerGroup reports how many consecutive pages merge into one chunk.
func (e *Extractor) PagesPerGroup() int {
	return e.pagesPerGroup
}

// Extract analyzes the document at locator and returns its chunks in page
// order. Analysis errors propagate unchanged, so callers can distinguish
// layout.ErrDocumentUnavailable from layout.ErrAnalysisFailed.
func (e *Extractor) Extract(ctx context.Context, locator string) ([]string, error) {
	analysis, err := e.analyzer.Analyze(ctx, locator)
	if err != nil {
		return nil, err
	}
	return Chunks(analysis, e.pagesPerGroup), nil
}

// Chunks groups an analysis into chunk texts. Chunk index for a page is
// (page-1)/pagesPerGroup; the result covers indices 0 through the highest
// group touched, with untouched groups left as empty strings.
func Chunks(analysis *layout.Analysis, pagesPerGroup int) []string {
	var chunks []string

	grow := func(group int) {
		for len(chunks) < group+1 {
			chunks = append(chunks, "")
		}
	}

	for _, p := range analysis.Paragraphs {
		if _, excluded := excludedRoles[p.Role]; excluded {
			continue
		}
		group := groupIndex(p.Page, pagesPerGroup)
		grow(group)
		chunks[group] += p.Content + "\n"
	}

	for _, t := range analysis.Tables {
		group := groupIndex(t.Page, pagesPerGroup)
		grow(group)
		chunks[group] += linearizeTable(t)
	}

	return chunks
}

// groupIndex maps a 1-based page number onto its chunk group.
func groupIndex(page, pagesPerGroup int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) / pagesPerGroup
}

// linearizeTable renders a table as pipe-delimited rows in row order,
// terminated by a lone pipe:
//
//	| a | b |
//	| c | d |
//	|
func linearizeTable(t layout.Table) string {
	cells := make([]layout.Cell, len(t.Cells))
	copy(cells, t.Cells)
	sort.SliceStable(cells, func(i, j int) bool {
		if cells[i].Row != cells[j].Row {
			return cells[i].Row < cells[j].Row
		}
		return cells[i].Col < cells[j].Col
	})

	var sb strings.Builder
	currentRow := -1
	for _, cell := range cells {
		if cell.Row != currentRow {
			if currentRow >= 0 {
				sb.WriteString("|\n")
			}
			currentRow = cell.Row
		}
		sb.WriteString("| ")
		sb.WriteString(cell.Content)
		sb.WriteString(" ")
	}
	if currentRow >= 0 {
		sb.WriteString("|\n")
	}
	sb.WriteString("|")
	return sb.String()
}
