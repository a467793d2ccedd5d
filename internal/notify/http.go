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

const (
	// DefaultMaxRequests bounds delivery attempts of one notification.
	DefaultMaxRequests = 5
	requestTimeout     = 5 * time.Second
)

// poster sends JSON bodies with a bounded number of attempts.
type poster struct {
	client      *http.Client
	maxRequests int
}

func newPoster(maxRequests int) poster {
	if maxRequests < 1 {
		maxRequests = DefaultMaxRequests
	}
	return poster{
		client:      &http.Client{Timeout: requestTimeout},
		maxRequests: maxRequests,
	}
}

// postJSON marshals payload and POSTs it to url until a 2xx response or
// maxRequests attempts. The last error is returned.
func (p poster) postJSON(ctx context.Context, url string, headers map[string]string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= p.maxRequests; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = p.send(ctx, url, headers, body)
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", p.maxRequests, lastErr)
}

func (p poster) send(ctx context.Context, url string, headers map[string]string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(msg))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
