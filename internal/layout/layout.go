// Package layout analyzes documents into paragraphs and tables with page
// positions and semantic roles. Two analyzers are provided: a remote layout
// service client (client.go) and a local HTML analyzer (html.go). Both produce
// the same Analysis shape consumed by the chunk extractor.
package layout

import (
	"context"
	"errors"
)

var (
	// ErrDocumentUnavailable indicates the document locator could not be retrieved.
	ErrDocumentUnavailable = errors.New("document unavailable")

	// ErrAnalysisFailed indicates the analyzer could not process the document.
	ErrAnalysisFailed = errors.New("analysis failed")
)

// Semantic roles assigned to paragraphs. Boilerplate roles are excluded
// from extracted chunks.
const (
	RoleFootnote   = "footnote"
	RolePageHeader = "pageHeader"
	RolePageFooter = "pageFooter"
	RolePageNumber = "pageNumber"
	RoleTitle      = "title"
)

// Paragraph is a run of text with a semantic role and a 1-based page number.
type Paragraph struct {
	Content string
	Role    string
	Page    int
}

// Cell is one table cell at a row/column position.
type Cell struct {
	Content string
	Row     int
	Col     int
}

// Table is a grid of cells on a single page.
type Table struct {
	Cells []Cell
	Page  int
}

// Analysis is the structured result of analyzing one document.
type Analysis struct {
	Paragraphs []Paragraph
	Tables     []Table
}

// Analyzer turns a document locator into an Analysis.
type Analyzer interface {
	Analyze(ctx context.Context, locator string) (*Analysis, error)
}
