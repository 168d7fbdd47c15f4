// -----------------------------------------------------------------------
// Ingest - Vector-store ingestion trigger
// -----------------------------------------------------------------------

package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
)

// Trigger calls the external embedding pipeline to ingest a finished
// artifact. The pipeline itself runs elsewhere; this only kicks it off.
type Trigger struct {
	baseURL    string
	enabled    bool
	httpClient *http.Client
	logger     arbor.ILogger
}

// NewTrigger creates an ingest trigger from config
func NewTrigger(worker common.WorkerConfig, config common.IngestConfig, logger arbor.ILogger) *Trigger {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Trigger{
		baseURL:    worker.BaseURL,
		enabled:    config.Enabled,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

var _ interfaces.IngestTrigger = (*Trigger)(nil)

type ingestRequest struct {
	LibraryID string `json:"libraryId"`
	ItemID    string `json:"itemId"`
}

// TriggerIngest requests ingestion of one artifact. Disabled config makes
// this a logged no-op.
func (t *Trigger) TriggerIngest(ctx context.Context, libraryID, itemID string) error {
	if !t.enabled {
		t.logger.Debug().
			Str("library_id", libraryID).
			Str("item_id", itemID).
			Msg("Ingest disabled, skipping trigger")
		return nil
	}

	body, err := json.Marshal(ingestRequest{LibraryID: libraryID, ItemID: itemID})
	if err != nil {
		return fmt.Errorf("failed to encode ingest request: %w", err)
	}

	url := t.baseURL + "/api/ingest"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create ingest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ingest request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ingest endpoint returned status %d", resp.StatusCode)
	}

	t.logger.Info().
		Str("library_id", libraryID).
		Str("item_id", itemID).
		Msg("Ingestion triggered")

	return nil
}
