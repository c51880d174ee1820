package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jredh-dev/absence-sms/internal/absence"
)

// client posts callable requests.
type client struct {
	url        string
	httpClient *http.Client
}

func newClient(url string, timeout time.Duration) *client {
	return &client{
		url:        strings.TrimRight(url, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// invoke sends req as callable data. The fields are sent as given, empty
// ones included, so the server's validation can be exercised.
func (c *client) invoke(ctx context.Context, token string, req absence.Request) (int, []byte, error) {
	payload, err := json.Marshal(map[string]absence.Request{"data": req})
	if err != nil {
		return 0, nil, fmt.Errorf("marshal: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("post %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, bytes.TrimSpace(body), nil
}
