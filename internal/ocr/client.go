// Package ocr calls the document-understanding service and exposes its
// page/line/table hierarchy with spans resolved against the full-text
// blob.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrUnavailable indicates the OCR service returned a non-200 status.
var ErrUnavailable = errors.New("ocr: service unavailable")

// Config holds the OCR service connection settings.
type Config struct {
	// Endpoint is the full URL of the document-processing route.
	Endpoint string
	// APIKey is sent as a bearer token when non-empty.
	APIKey string
	// Timeout bounds one document's processing call.
	Timeout time.Duration
}

// Client posts documents to the OCR service.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("ocr: endpoint is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}, nil
}

type processRequest struct {
	Content  string `json:"content"`
	MimeType string `json:"mime_type"`
}

// Process submits raw file bytes and returns the parsed document.
func (c *Client) Process(ctx context.Context, fileBytes []byte, mimeType string) (*Document, error) {
	body, err := json.Marshal(processRequest{
		Content:  base64.StdEncoding.EncodeToString(fileBytes),
		MimeType: mimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("ocr: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ocr: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocr: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Error().
			Int("status", resp.StatusCode).
			Str("body", string(snippet)).
			Msg("ocr service error")
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var doc Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("ocr: decode response: %w", err)
	}
	log.Debug().
		Dur("elapsed", time.Since(start)).
		Int("pages", len(doc.Pages)).
		Int("text_len", len(doc.Text)).
		Msg("ocr processing completed")
	return &doc, nil
}
