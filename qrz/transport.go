package qrz

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseBytes = 32 << 20

// poster sends form posts with a per-call timeout.
type poster struct {
	endpoint string
	agent    string
	timeout  time.Duration
	client   *http.Client
}

func newPoster(endpoint, agent string, timeout time.Duration, client *http.Client) poster {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return poster{endpoint: endpoint, agent: agent, timeout: timeout, client: client}
}

// post returns the response body; transport and HTTP failures are ErrService.
func (p poster) post(ctx context.Context, form url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrService, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if p.agent != "" {
		req.Header.Set("User-Agent", p.agent)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrService, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrService, err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: rate limited (%s)", ErrService, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: %s returned %s", ErrService, p.endpoint, resp.Status)
	}
	return body, nil
}
