package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"vulnreport/internal/audit"
)

// HTTPRenderer calls the external rendering service: the audit aggregate is
// posted as JSON and the rendered document comes back as the response body.
type HTTPRenderer struct {
	client *http.Client
	url    string
}

// NewHTTPRenderer creates a renderer client for the given endpoint.
func NewHTTPRenderer(url string, timeout time.Duration) *HTTPRenderer {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &HTTPRenderer{
		client: &http.Client{Timeout: timeout},
		url:    url,
	}
}

func (r *HTTPRenderer) Render(ctx context.Context, a audit.Audit) ([]byte, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal audit: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call renderer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("renderer returned status %d", resp.StatusCode)
	}
	doc, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rendered document: %w", err)
	}
	return doc, nil
}
