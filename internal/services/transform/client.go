// -----------------------------------------------------------------------
// Transform - HTTP client for the external transform worker
// -----------------------------------------------------------------------

package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"golang.org/x/time/rate"
)

// maxResponseBytes bounds worker responses read into memory
const maxResponseBytes = 16 << 20

// Client calls the external worker's synchronous template transform endpoint.
// Calls are rate limited and bounded by the configured timeout so a hung
// worker cannot pin a webhook goroutine indefinitely.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     arbor.ILogger
}

// NewClient creates a transform client from worker config
func NewClient(config common.WorkerConfig, logger arbor.ILogger) *Client {
	timeout := config.TransformTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	perSecond := config.RatePerSecond
	if perSecond <= 0 {
		perSecond = 2
	}
	return &Client{
		baseURL:    config.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(perSecond), 1),
		logger:     logger,
	}
}

var _ interfaces.TransformClient = (*Client)(nil)

type transformRequest struct {
	Text     string `json:"text"`
	Template string `json:"template"`
	Language string `json:"language"`
}

// RunTemplateTransform sends extracted text and the template body to the
// worker. Transport and HTTP errors propagate; a well-delivered but malformed
// response degrades to (nil, nil) because missing metadata never fails a job.
func (c *Client) RunTemplateTransform(ctx context.Context, text, template, language string) (interfaces.TransformMeta, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("transform rate limit wait aborted: %w", err)
	}

	body, err := json.Marshal(transformRequest{
		Text:     text,
		Template: template,
		Language: language,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode transform request: %w", err)
	}

	url := c.baseURL + "/api/transform/template"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create transform request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transform request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read transform response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transform worker returned status %d", resp.StatusCode)
	}

	c.logger.Debug().
		Str("template", template).
		Str("language", language).
		Int("response_bytes", len(raw)).
		Dur("duration", time.Since(start)).
		Msg("Transform worker responded")

	var parsed map[string]interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		c.logger.Warn().
			Err(err).
			Str("template", template).
			Msg("Transform worker returned malformed metadata, continuing without")
		return nil, nil
	}

	// Workers wrap metadata in structured_data; accept a bare object too
	if wrapped, ok := parsed["structured_data"].(map[string]interface{}); ok {
		return NormalizeMeta(wrapped), nil
	}
	return NormalizeMeta(parsed), nil
}
