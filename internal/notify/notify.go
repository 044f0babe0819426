package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// CaptureEvent is the webhook payload posted when a capture finishes.
type CaptureEvent struct {
	CaptureID       string  `json:"capture_id"`
	Status          string  `json:"status"`
	Mode            string  `json:"mode"`
	Format          string  `json:"format,omitempty"`
	SizeBytes       int64   `json:"size_bytes,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Partial         bool    `json:"partial,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// SendCapture posts a capture lifecycle event to the webhook endpoint.
func SendCapture(ctx context.Context, client *http.Client, endpoint string, evt CaptureEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return Send(ctx, client, endpoint, body)
}

// Send posts a JSON payload to the requested endpoint using HTTP POST.
func Send(ctx context.Context, client *http.Client, endpoint string, payload []byte) error {
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook notification failed: status=%d", resp.StatusCode)
	}
	return nil
}
