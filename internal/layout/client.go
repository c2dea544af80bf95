package layout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/docsage/docsage/internal/log"
)

const (
	apiVersion = "2023-07-31"

	defaultPollInterval = 2 * time.Second
	defaultMaxPolls     = 60
)

// Client calls a remote layout-analysis service that follows the
// submit-then-poll pattern: the analyze request returns an operation URL,
// which is polled until the analysis succeeds or fails.
type Client struct {
	endpoint     string
	key          string
	httpClient   *http.Client
	pollInterval time.Duration
	maxPolls     int
	logger       log.Logger
}

// NewClient creates a layout service client.
func NewClient(endpoint, key string, logger log.Logger) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("layout endpoint is required")
	}
	if key == "" {
		return nil, fmt.Errorf("layout key is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Client{
		endpoint:     endpoint,
		key:          key,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		pollInterval: defaultPollInterval,
		maxPolls:     defaultMaxPolls,
		logger:       logger,
	}, nil
}

type analyzeRequest struct {
	URLSource string `json:"urlSource"`
}

type operationResult struct {
	Status        string `json:"status"`
	Error         *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	AnalyzeResult *struct {
		Paragraphs []struct {
			Content         string `json:"content"`
			Role            string `json:"role"`
			BoundingRegions []struct {
				PageNumber int `json:"pageNumber"`
			} `json:"boundingRegions"`
		} `json:"paragraphs"`
		Tables []struct {
			Cells []struct {
				Content     string `json:"content"`
				RowIndex    int    `json:"rowIndex"`
				ColumnIndex int    `json:"columnIndex"`
			} `json:"cells"`
			BoundingRegions []struct {
				PageNumber int `json:"pageNumber"`
			} `json:"boundingRegions"`
		} `json:"tables"`
	} `json:"analyzeResult"`
}

// Analyze submits the document at locator for layout analysis and polls
// until the result is available.
func (c *Client) Analyze(ctx context.Context, locator string) (*Analysis, error) {
	opURL, err := c.submit(ctx, locator)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("layout analysis submitted", "locator", locator)

	for i := 0; i < c.maxPolls; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		result, err := c.poll(ctx, opURL)
		if err != nil {
			return nil, err
		}

		switch result.Status {
		case "succeeded":
			return convertResult(result), nil
		case "failed":
			msg := "unknown error"
			if result.Error != nil {
				msg = result.Error.Message
			}
			return nil, fmt.Errorf("%w: %s", ErrAnalysisFailed, msg)
		}
		// "running" or "notStarted": keep polling.
	}

	return nil, fmt.Errorf("%w: polling timed out after %d attempts", ErrAnalysisFailed, c.maxPolls)
}

// submit starts an analysis and returns the operation URL to poll.
func (c *Client) submit(ctx context.Context, locator string) (string, error) {
	body, err := json.Marshal(analyzeRequest{URLSource: locator})
	if err != nil {
		return "", fmt.Errorf("marshal analyze request: %w", err)
	}

	url := fmt.Sprintf("%s/formrecognizer/documentModels/prebuilt-layout:analyze?api-version=%s",
		c.endpoint, apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDocumentUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d: %s", ErrDocumentUnavailable, resp.StatusCode, string(data))
	}
	if resp.StatusCode != http.StatusAccepted {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: unexpected status %d: %s", ErrAnalysisFailed, resp.StatusCode, string(data))
	}

	opURL := resp.Header.Get("Operation-Location")
	if opURL == "" {
		return "", fmt.Errorf("%w: missing Operation-Location header", ErrAnalysisFailed)
	}
	return opURL, nil
}

// poll reads the current state of a running analysis.
func (c *Client) poll(ctx context.Context, opURL string) (*operationResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create poll request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: poll: %v", ErrAnalysisFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read poll response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: poll status %d: %s", ErrAnalysisFailed, resp.StatusCode, string(data))
	}

	var result operationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse poll response: %w", err)
	}
	return &result, nil
}

// convertResult maps the service response onto the Analysis shape.
func convertResult(r *operationResult) *Analysis {
	analysis := &Analysis{}
	if r.AnalyzeResult == nil {
		return analysis
	}

	for _, p := range r.AnalyzeResult.Paragraphs {
		page := 1
		if len(p.BoundingRegions) > 0 {
			page = p.BoundingRegions[0].PageNumber
		}
		analysis.Paragraphs = append(analysis.Paragraphs, Paragraph{
			Content: p.Content,
			Role:    p.Role,
			Page:    page,
		})
	}

	for _, t := range r.AnalyzeResult.Tables {
		page := 1
		if len(t.BoundingRegions) > 0 {
			page = t.BoundingRegions[0].PageNumber
		}
		table := Table{Page: page}
		for _, cell := range t.Cells {
			table.Cells = append(table.Cells, Cell{
				Content: cell.Content,
				Row:     cell.RowIndex,
				Col:     cell.ColumnIndex,
			})
		}
		analysis.Tables = append(analysis.Tables, table)
	}

	return analysis
}
