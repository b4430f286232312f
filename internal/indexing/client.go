// Package indexing triggers the external chunk/embed/index pipeline for
// uploaded documents over a webhook.
package indexing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dobbyjj/codeme/internal/domain"
)

const (
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
)

// Config holds webhook client configuration
type Config struct {
	WebhookURL string
	// CallbackToken is forwarded so the pipeline can authenticate its
	// completion callback against our API.
	CallbackToken string
}

// Client posts document metadata to the indexing pipeline webhook
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a new webhook Client
func NewClient(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type triggerPayload struct {
	DocumentID       string `json:"document_id"`
	UserID           string `json:"user_id"`
	GroupID          string `json:"group_id,omitempty"`
	BlobPath         string `json:"blob_path"`
	OriginalFileName string `json:"original_file_name"`
	MimeType         string `json:"mime_type"`
	CallbackToken    string `json:"callback_token,omitempty"`
}

// TriggerIndexing notifies the pipeline that a document is ready to be
// chunked and indexed. Transient failures are retried with backoff; a 4xx
// response is returned immediately since retrying cannot fix it.
func (c *Client) TriggerIndexing(ctx context.Context, doc *domain.Document) error {
	if c.cfg.WebhookURL == "" {
		return domain.NewConfigurationError("indexing webhook is not configured. Set INDEX_WEBHOOK_URL.")
	}

	body, err := json.Marshal(triggerPayload{
		DocumentID:       doc.ID,
		UserID:           doc.UserID,
		GroupID:          doc.GroupID,
		BlobPath:         doc.BlobPath,
		OriginalFileName: doc.OriginalFileName,
		MimeType:         doc.MimeType,
		CallbackToken:    c.cfg.CallbackToken,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal trigger payload: %w", err)
	}

	backoff := initialBackoff
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = c.post(ctx, body)
		if lastErr == nil {
			return nil
		}
		if derr, ok := lastErr.(*domain.DomainError); ok && derr.Code == domain.ErrCodeValidation {
			return lastErr
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return lastErr
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create trigger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "indexing webhook request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		if resp.StatusCode < 500 {
			return domain.NewDomainError(domain.ErrCodeValidation,
				fmt.Sprintf("indexing webhook rejected request: %d %s", resp.StatusCode, string(respBody)))
		}
		return domain.NewUpstreamError("indexing", resp.StatusCode, string(respBody))
	}

	return nil
}
