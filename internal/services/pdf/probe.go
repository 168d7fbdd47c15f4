// -----------------------------------------------------------------------
// PDF Probe - Inspect PDF sources at enqueue time
// Uses pdfcpu for Go-native PDF processing
// -----------------------------------------------------------------------

package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/ternarybob/arbor"
)

// ProbeResult describes a PDF source before it is handed to the worker
type ProbeResult struct {
	PageCount   int   `json:"page_count"`
	FileSize    int64 `json:"file_size"`
	IsEncrypted bool  `json:"is_encrypted"`
}

// Prober inspects PDF payloads so obviously unprocessable sources are
// rejected at enqueue instead of after a worker round trip.
type Prober struct {
	logger  arbor.ILogger
	tempDir string
}

// NewProber creates a PDF prober
func NewProber(logger arbor.ILogger) *Prober {
	tempDir := filepath.Join(os.TempDir(), "scribe-pdf")
	os.MkdirAll(tempDir, 0755)

	return &Prober{
		logger:  logger,
		tempDir: tempDir,
	}
}

// Probe reads PDF structure from raw bytes. pdfcpu works on files, so the
// payload passes through a temp file.
func (p *Prober) Probe(ctx context.Context, content []byte) (*ProbeResult, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("empty PDF payload")
	}

	tempFile := filepath.Join(p.tempDir, fmt.Sprintf("probe_%s.pdf", uuid.New().String()))
	if err := os.WriteFile(tempFile, content, 0644); err != nil {
		return nil, fmt.Errorf("failed to write temp PDF file: %w", err)
	}
	defer os.Remove(tempFile)

	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF structure: %w", err)
	}

	result := &ProbeResult{
		PageCount:   pdfCtx.PageCount,
		FileSize:    int64(len(content)),
		IsEncrypted: pdfCtx.Encrypt != nil,
	}

	p.logger.Debug().
		Int("page_count", result.PageCount).
		Int64("file_size", result.FileSize).
		Bool("encrypted", result.IsEncrypted).
		Msg("Probed PDF source")

	return result, nil
}

// Check validates that a probed PDF is processable
func (r *ProbeResult) Check() error {
	if r.IsEncrypted {
		return fmt.Errorf("PDF is encrypted")
	}
	if r.PageCount == 0 {
		return fmt.Errorf("PDF has no pages")
	}
	return nil
}
