package layout

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// HTMLAnalyzer analyzes web pages and local HTML files without a remote
// service. Readability strips navigation and boilerplate, then the remaining
// content is split into paragraphs and tables. HTML has no pagination, so
// everything lands on page 1.
type HTMLAnalyzer struct {
	httpClient *http.Client
}

// NewHTMLAnalyzer creates an analyzer for HTML documents.
func NewHTMLAnalyzer() *HTMLAnalyzer {
	return &HTMLAnalyzer{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Analyze fetches the locator (http(s) URL or local file path) and extracts
// paragraphs and tables from its main content.
func (a *HTMLAnalyzer) Analyze(ctx context.Context, locator string) (*Analysis, error) {
	raw, pageURL, err := a.fetch(ctx, locator)
	if err != nil {
		return nil, err
	}

	article, err := readability.FromReader(bytes.NewReader(raw), pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: readability: %v", ErrAnalysisFailed, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: parse content: %v", ErrAnalysisFailed, err)
	}

	analysis := &Analysis{}
	if title := strings.TrimSpace(article.Title); title != "" {
		analysis.Paragraphs = append(analysis.Paragraphs, Paragraph{
			Content: title,
			Role:    RoleTitle,
			Page:    1,
		})
	}

	doc.Find("p, h1, h2, h3, h4, h5, h6, li").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		analysis.Paragraphs = append(analysis.Paragraphs, Paragraph{
			Content: text,
			Page:    1,
		})
	})

	doc.Find("table").Each(func(_ int, tbl *goquery.Selection) {
		table := Table{Page: 1}
		tbl.Find("tr").Each(func(row int, tr *goquery.Selection) {
			tr.Find("th, td").Each(func(col int, cell *goquery.Selection) {
				table.Cells = append(table.Cells, Cell{
					Content: strings.TrimSpace(cell.Text()),
					Row:     row,
					Col:     col,
				})
			})
		})
		if len(table.Cells) > 0 {
			analysis.Tables = append(analysis.Tables, table)
		}
	})

	return analysis, nil
}

// fetch retrieves the raw document bytes for a URL or local path.
func (a *HTMLAnalyzer) fetch(ctx context.Context, locator string) ([]byte, *url.URL, error) {
	if u, err := url.Parse(locator); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrDocumentUnavailable, err)
		}
		resp, err := a.httpClient.Do(req)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrDocumentUnavailable, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, nil, fmt.Errorf("%w: status %d fetching %s", ErrDocumentUnavailable, resp.StatusCode, locator)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: read body: %v", ErrDocumentUnavailable, err)
		}
		return data, u, nil
	}

	data, err := os.ReadFile(locator)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDocumentUnavailable, err)
	}
	// A fake base URL keeps readability's relative link handling happy.
	base := &url.URL{Scheme: "file", Path: locator}
	return data, base, nil
}
