// Copyright (C) 2025 Argus Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package agent implements the bounded multi-round tool-call orchestration
// loop: one user message in, a final text reply out, possibly after
// several rounds of dispatching model-requested tool calls.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/argus-ai/argus/internal/llmapi"
	"github.com/argus-ai/argus/internal/mcpclient"
	"github.com/argus-ai/argus/internal/telemetry"
	"github.com/argus-ai/argus/internal/tools"
)

// MaxToolRounds bounds how many tool-call rounds a single turn may take
// before the loop gives up and returns a fixed message.
const MaxToolRounds = 10

// MaxToolRoundsMessage is returned when the loop exhausts MaxToolRounds
// without the model producing a final text reply.
const MaxToolRoundsMessage = "I've reached the maximum number of tool calls for this turn. Please try rephrasing your request or breaking it into smaller steps."

const systemPrompt = `You are Argus, a local tool-using assistant. You have access to filesystem, shell, HTTP, web search, and memory tools. Use them when they help answer the user's request, but prefer direct answers when no tool is needed. Shell commands are checked against a local allowlist; a denial is not a crash, just try a different approach. Be concise and accurate.`

// Config holds the per-turn parameters to the completion endpoint.
type Config struct {
	Model       string
	Endpoint    string
	Temperature float64
}

// Event is one of the five event variants the loop emits synchronously
// through the caller's callback, in strict occurrence order.
type Event struct {
	Kind    EventKind
	Name    string // tool name, for ToolCall/ToolResult
	Preview string // argument or result preview, for ToolCall/ToolResult
	Text    string // for Response/Error
}

// EventKind enumerates the event variants.
type EventKind int

const (
	EventThinking EventKind = iota
	EventToolCall
	EventToolResult
	EventResponse
	EventError
)

// EventFunc is the synchronous event callback. It must be cheap — it runs
// on the same goroutine driving the turn.
type EventFunc func(Event)

// Turn runs one bounded agent turn.
//
// Inputs:
//   - client: the chat-completion HTTP client.
//   - cfg: model/endpoint/temperature for this turn.
//   - userMessage: the user's input text.
//   - registry: the built-in tool registry.
//   - mcp: the external tool client (may be nil if no servers are connected).
//   - onEvent: synchronous event callback; may be nil.
//
// Outputs:
//   - string: the final text reply, or the fixed max-rounds message, or the
//     endpoint-reported error message.
func Turn(ctx context.Context, client *llmapi.Client, cfg Config, userMessage string, registry *tools.Registry, mcp *mcpclient.Client, onEvent EventFunc) (string, error) {
	emit := onEvent
	if emit == nil {
		emit = func(Event) {}
	}

	emit(Event{Kind: EventThinking})

	catalog := buildCatalog(registry, mcp)

	transcript := []llmapi.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userMessage},
	}

	for round := 0; round < MaxToolRounds; round++ {
		msg, errMsg, err := client.ChatCompletion(ctx, cfg.Model, transcript, catalog, cfg.Temperature)
		if err != nil {
			emit(Event{Kind: EventError, Text: err.Error()})
			return "", err
		}
		if errMsg != "" {
			emit(Event{Kind: EventError, Text: errMsg})
			return errMsg, nil
		}

		if len(msg.ToolCalls) == 0 {
			emit(Event{Kind: EventResponse, Text: msg.Content})
			return msg.Content, nil
		}

		transcript = append(transcript, *msg)

		for _, call := range msg.ToolCalls {
			args, parseErr := call.Function.ArgumentsObject()
			if parseErr != nil {
				args = map[string]any{}
			}

			preview := argumentPreview(call.Function.Name, args)
			emit(Event{Kind: EventToolCall, Name: call.Function.Name, Preview: preview})

			toolCtx, span := telemetry.StartToolSpan(ctx, call.Function.Name)
			start := time.Now()
			result, dispatchErr := dispatch(toolCtx, registry, mcp, call.Function.Name, args)
			telemetry.RecordToolCall(span, call.Function.Name, start, dispatchErr)

			emit(Event{Kind: EventToolResult, Name: call.Function.Name, Preview: resultPreview(result)})

			transcript = append(transcript, llmapi.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	emit(Event{Kind: EventResponse, Text: MaxToolRoundsMessage})
	return MaxToolRoundsMessage, nil
}

// buildCatalog unions external-discovered tools with built-ins, external
// tools winning on name collision: some completion endpoints reject
// duplicate function names, so external tool names are registered first
// and any built-in sharing a name is omitted from the catalog the model
// sees.
func buildCatalog(registry *tools.Registry, mcp *mcpclient.Client) []llmapi.Tool {
	seen := make(map[string]bool)
	catalog := make([]llmapi.Tool, 0)

	if mcp != nil {
		for _, t := range mcp.AllTools() {
			catalog = append(catalog, llmapi.Tool{
				Type: "function",
				Function: llmapi.ToolFunction{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.InputSchema,
				},
			})
			seen[t.Name] = true
		}
	}

	for _, d := range registry.Schemas() {
		if seen[d.Name] {
			continue
		}
		catalog = append(catalog, llmapi.Tool{
			Type: "function",
			Function: llmapi.ToolFunction{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}

	return catalog
}

// dispatch routes a tool call to the built-in registry first; if the name
// is not a built-in, it falls back to the external-tool client, and if
// neither handles it, reports an unknown tool. Catalog collision
// resolution (buildCatalog) only controls which tool definition the model
// sees, not this runtime precedence. The returned error is non-nil exactly
// when the dispatch itself failed (for telemetry); the returned string is
// always the text that belongs in the transcript.
func dispatch(ctx context.Context, registry *tools.Registry, mcp *mcpclient.Client, name string, args map[string]any) (string, error) {
	result, err := registry.Execute(ctx, name, args)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, tools.ErrNotBuiltIn) {
		return fmt.Sprintf("Error executing tool %s: %v", name, err), err
	}

	if mcp != nil {
		serverName := mcp.ServerForTool(name)
		start := time.Now()
		result, mcpErr := mcp.CallTool(name, args)
		if serverName != "" {
			telemetry.RecordMCPCall(serverName, start)
		}
		if mcpErr == nil {
			return result, nil
		}
		if !errors.Is(mcpErr, mcpclient.ErrToolNotFound) {
			return fmt.Sprintf("Error executing tool %s: %v", name, mcpErr), mcpErr
		}
		return fmt.Sprintf("Unknown tool: %s", name), mcpErr
	}

	unknownErr := fmt.Errorf("unknown tool: %s", name)
	return fmt.Sprintf("Unknown tool: %s", name), unknownErr
}

// argumentPreview computes the human preview string shown alongside a
// ToolCall event.
func argumentPreview(name string, args map[string]any) string {
	switch name {
	case "shell":
		if v, ok := args["command"].(string); ok {
			return v
		}
	case "read_file", "write_file":
		if v, ok := args["path"].(string); ok {
			return v
		}
	case "web_search":
		if v, ok := args["query"].(string); ok {
			return v
		}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return ""
	}
	return string(encoded)
}

// resultPreview truncates result to its first 100 characters for the
// ToolResult event.
func resultPreview(result string) string {
	const maxLen = 100
	runes := []rune(result)
	if len(runes) <= maxLen {
		return result
	}
	return string(runes[:maxLen]) + "..."
}
