// absence-sms - parent notifications for absent students
// Copyright (C) 2026  absence-sms contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultEndpoint is the Fast2SMS bulk send API.
const DefaultEndpoint = "https://www.fast2sms.com/dev/bulkV2"

const (
	// dltRoute selects the pre-registered DLT template route.
	dltRoute = "dlt"
	language = "english"

	// maxResponseBytes bounds how much of a provider response is read.
	maxResponseBytes = 1 << 20
)

// Sender is the interface any SMS backend must implement.
// On success it returns the provider's response body unmodified.
type Sender interface {
	Send(ctx context.Context, msg OutboundMessage) (json.RawMessage, error)
}

// KeySource yields the provider API key. It is consulted on every send.
type KeySource interface {
	Value(ctx context.Context) (string, error)
}

// ProviderError is returned when Fast2SMS answers with a non-2xx status.
type ProviderError struct {
	StatusCode int
	Body       []byte
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("fast2sms returned %d: %s", e.StatusCode, string(e.Body))
}

// Fast2SMSSender sends messages through the Fast2SMS bulkV2 API.
// Each Send is a single attempt; there is no retry.
type Fast2SMSSender struct {
	endpoint   string
	key        KeySource
	httpClient *http.Client
}

// Option configures a Fast2SMSSender.
type Option func(*Fast2SMSSender)

// WithEndpoint overrides the API URL, e.g. to point at a local stub.
func WithEndpoint(url string) Option {
	return func(s *Fast2SMSSender) {
		if url != "" {
			s.endpoint = url
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Fast2SMSSender) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithTimeout sets a client timeout. Zero keeps the default of none.
// A client supplied through WithHTTPClient is copied, not modified.
func WithTimeout(d time.Duration) Option {
	return func(s *Fast2SMSSender) {
		if d > 0 {
			c := *s.httpClient
			c.Timeout = d
			s.httpClient = &c
		}
	}
}

// NewFast2SMSSender creates a sender that authenticates with key.
func NewFast2SMSSender(key KeySource, opts ...Option) *Fast2SMSSender {
	s := &Fast2SMSSender{
		endpoint: DefaultEndpoint,
		key:      key,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// bulkRequest is the JSON body sent to POST /dev/bulkV2.
type bulkRequest struct {
	Route    string `json:"route"`
	Message  string `json:"message"`
	Language string `json:"language"`
	Numbers  string `json:"numbers"`
}

// Send dispatches msg to Fast2SMS. It returns an error if the key cannot be
// resolved, the request fails, or the status is not 2xx.
func (s *Fast2SMSSender) Send(ctx context.Context, msg OutboundMessage) (json.RawMessage, error) {
	apiKey, err := s.key.Value(ctx)
	if err != nil {
		return nil, fmt.Errorf("api key: %w", err)
	}

	body, err := json.Marshal(bulkRequest{
		Route:    dltRoute,
		Message:  msg.Body,
		Language: language,
		Numbers:  msg.To,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authorization", apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Body: respBody}
	}

	// A 2xx body that is not JSON is still a delivery; hand it back as a
	// JSON string.
	if !json.Valid(respBody) {
		quoted, err := json.Marshal(string(respBody))
		if err != nil {
			return nil, fmt.Errorf("encode response: %w", err)
		}
		return json.RawMessage(quoted), nil
	}

	return json.RawMessage(respBody), nil
}
