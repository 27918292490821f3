// Copyright (C) 2025 Argus Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llmapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client is a raw net/http client for the chat-completion endpoint: no
// provider SDK, a bearer-token Authorization header, and a consistent
// "fmt.Errorf(prefix: ...: %w", err)" wrapping style throughout.
//
// Thread Safety: Client is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	endpoint   string
}

// New builds a Client. limiter may be nil, in which case requests are not
// rate-limited.
func New(apiKey, endpoint string, limiter *rate.Limiter) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		limiter:    limiter,
		apiKey:     apiKey,
		endpoint:   endpoint,
	}
}

// ChatCompletion sends one chat-completion request and returns the parsed
// response message plus a top-level error message if the endpoint reported
// one.
func (c *Client) ChatCompletion(ctx context.Context, model string, messages []Message, tools []Tool, temperature float64) (*Message, string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, "", fmt.Errorf("llmapi: rate limiter: %w", err)
		}
	}

	reqBody, err := json.Marshal(request{
		Model:       model,
		Messages:    messages,
		Tools:       tools,
		ToolChoice:  "auto",
		Temperature: temperature,
	})
	if err != nil {
		return nil, "", fmt.Errorf("llmapi: marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, "", fmt.Errorf("llmapi: creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	slog.Debug("sending chat completion request", "model", model, "messages", len(messages), "tools", len(tools))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("llmapi: HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("llmapi: reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("llmapi: endpoint returned status %d: %s", resp.StatusCode, SafeLogString(string(bodyBytes)))
	}

	var parsed response
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return nil, "", fmt.Errorf("llmapi: parsing response JSON: %w", err)
	}

	if parsed.Error != nil {
		return nil, parsed.Error.Message, nil
	}
	if len(parsed.Choices) == 0 {
		return nil, "", fmt.Errorf("llmapi: endpoint returned no choices")
	}

	msg := parsed.Choices[0].Message
	return &msg, "", nil
}
