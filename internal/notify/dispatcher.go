// Package notify delivers completion events to an external webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CompletionEvent is the payload posted when a note transitions from
// pending to completed. It is built once per transition and discarded
// after the dispatch attempt.
type CompletionEvent struct {
	TaskID      string    `json:"taskId"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	CompletedAt time.Time `json:"completedAt"`
	UserID      string    `json:"userId"`
	UserEmail   string    `json:"userEmail"`
	UserName    string    `json:"userName"`
}

// Dispatcher posts completion events to a fixed endpoint. It holds no
// state between calls and is safe for concurrent use. Delivery is
// one-shot: no retry, no backoff, no queue.
type Dispatcher struct {
	endpoint string
	client   *http.Client
}

// NewDispatcher creates a dispatcher for the given endpoint. An empty
// endpoint disables dispatching.
func NewDispatcher(endpoint string) *Dispatcher {
	return &Dispatcher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// NewDispatcherWithClient creates a dispatcher using an existing client.
func NewDispatcherWithClient(endpoint string, client *http.Client) *Dispatcher {
	return &Dispatcher{endpoint: endpoint, client: client}
}

// IsConfigured returns true if an endpoint is set
func (d *Dispatcher) IsConfigured() bool {
	return d.endpoint != ""
}

// NotifyCompletion performs a single POST of the event. Any received
// response counts as delivered regardless of status code; only transport
// failures are reported. The caller decides how to surface a failure -
// it must never undo the completion itself.
func (d *Dispatcher) NotifyCompletion(ctx context.Context, event CompletionEvent) error {
	if !d.IsConfigured() {
		return fmt.Errorf("webhook not configured")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal completion event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post completion event: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	return nil
}
