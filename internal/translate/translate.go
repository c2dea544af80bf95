// Package translate provides a client for an Azure-Translator-shaped
// translation service. It translates answer text into a target language
// and lists the languages the service supports.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/docsage/docsage/internal/log"
)

const apiVersion = "3.0"

// ErrUnavailable indicates the translation service could not be reached
// or returned a non-success status.
var ErrUnavailable = errors.New("translation service unavailable")

// Translator translates text and enumerates supported languages.
type Translator interface {
	Translate(ctx context.Context, text, to string) (string, error)
	Languages(ctx context.Context) (map[string]string, error)
}

// Client talks to the translation REST API.
type Client struct {
	endpoint   string
	key        string
	region     string
	httpClient *http.Client
	logger     log.Logger
}

// New creates a translation client. The endpoint and key are required;
// region may be empty for global resources.
func New(endpoint, key, region string, logger log.Logger) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("translator endpoint is required")
	}
	if key == "" {
		return nil, fmt.Errorf("translator key is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &Client{
		endpoint:   endpoint,
		key:        key,
		region:     region,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}, nil
}

type translateItem struct {
	Text string `json:"Text"`
}

type translateResult struct {
	Translations []struct {
		Text string `json:"text"`
		To   string `json:"to"`
	} `json:"translations"`
}

// Translate translates text into the target language code (e.g. "de").
func (c *Client) Translate(ctx context.Context, text, to string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("text is required")
	}
	if to == "" {
		return "", fmt.Errorf("target language is required")
	}

	body, err := json.Marshal([]translateItem{{Text: text}})
	if err != nil {
		return "", fmt.Errorf("marshal translate request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/translate?api-version=%s&to=%s",
		c.endpoint, apiVersion, url.QueryEscape(to))

	var results []translateResult
	if err := c.doJSON(ctx, http.MethodPost, endpoint, body, &results); err != nil {
		return "", err
	}
	if len(results) == 0 || len(results[0].Translations) == 0 {
		return "", fmt.Errorf("%w: empty translation response", ErrUnavailable)
	}

	return results[0].Translations[0].Text, nil
}

type languagesResponse struct {
	Translation map[string]struct {
		Name       string `json:"name"`
		NativeName string `json:"nativeName"`
	} `json:"translation"`
}

// Languages returns the supported languages as a name-to-code map,
// e.g. "German" -> "de".
func (c *Client) Languages(ctx context.Context) (map[string]string, error) {
	endpoint := fmt.Sprintf("%s/languages?api-version=%s&scope=translation",
		c.endpoint, apiVersion)

	var resp languagesResponse
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	languages := make(map[string]string, len(resp.Translation))
	for code, info := range resp.Translation {
		languages[info.Name] = code
	}

	return languages, nil
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	if c.region != "" {
		req.Header.Set("Ocp-Apim-Subscription-Region", c.region)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, payload)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
