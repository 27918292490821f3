// Copyright (C) 2025 Argus Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package tools implements the built-in tool registry: a uniform dispatch
// contract shared by the filesystem, shell, HTTP, web search, and memory
// tools.
//
// Description:
//
//	Each built-in is a named function of (arguments, *Context) returning a
//	result string; errors never propagate out of a tool, they are folded
//	into the result string so the model can react to them. Execute returns
//	ErrNotBuiltIn for any name the registry doesn't recognize, so the agent
//	loop (internal/agent) can fall through to the external-tool client.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/argus-ai/argus/internal/memory"
	"github.com/argus-ai/argus/internal/shellpolicy"
	"github.com/argus-ai/argus/internal/vault"
)

// ErrNotBuiltIn is returned by Execute when name is not a registered
// built-in tool.
var ErrNotBuiltIn = errors.New("tools: not a built-in tool")

const (
	maxReadFileBytes = 8 * 1024
	maxHTTPBodyBytes = 8 * 1024
)

// Descriptor is a tool descriptor: name, description, and a
// JSON-schema-shaped parameter description suitable for direct inclusion in
// a chat-completion request's "tools" array.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Context carries the collaborators built-in tools dispatch into.
type Context struct {
	ShellPolicy *shellpolicy.Policy
	Memory      *memory.Store
	HTTPClient  *http.Client
	// Vault, if set and unlocked, redacts any stored secret value found
	// verbatim in tool result strings that might echo external content
	// (file contents, HTTP responses) before they reach the model.
	Vault *vault.Vault
}

// redact runs text through r.ctx.Vault's known-secret redaction if a vault
// is configured; otherwise it returns text unchanged.
func (r *Registry) redact(text string) string {
	if r.ctx.Vault == nil {
		return text
	}
	return r.ctx.Vault.RedactKnownSecrets(text)
}

// Registry is the built-in tool dispatch table.
type Registry struct {
	ctx *Context
}

// New builds a Registry bound to ctx.
func New(ctx *Context) *Registry {
	if ctx.HTTPClient == nil {
		ctx.HTTPClient = http.DefaultClient
	}
	return &Registry{ctx: ctx}
}

// Schemas publishes the built-in tool catalog.
func (r *Registry) Schemas() []Descriptor {
	return []Descriptor{
		{
			Name:        "read_file",
			Description: "Read the contents of a UTF-8 text file at the given path.",
			Parameters: objectSchema(map[string]any{
				"path": stringProp("Path to the file to read."),
			}, "path"),
		},
		{
			Name:        "list_directory",
			Description: "List the entries of a directory.",
			Parameters: objectSchema(map[string]any{
				"path": stringProp("Path to the directory to list."),
			}, "path"),
		},
		{
			Name:        "write_file",
			Description: "Write text content to a file, overwriting it if it exists.",
			Parameters: objectSchema(map[string]any{
				"path":    stringProp("Path to the file to write."),
				"content": stringProp("Content to write."),
			}, "path", "content"),
		},
		{
			Name:        "shell",
			Description: "Run a shell command against the local allowlist policy.",
			Parameters: objectSchema(map[string]any{
				"command": stringProp("The command line to run."),
			}, "command"),
		},
		{
			Name:        "web_search",
			Description: "Search the web and return up to six result snippets.",
			Parameters: objectSchema(map[string]any{
				"query": stringProp("The search query."),
			}, "query"),
		},
		{
			Name:        "http_request",
			Description: "Issue an HTTP request and return its status and body.",
			Parameters: objectSchema(map[string]any{
				"method":  stringProp("HTTP method: GET, POST, PUT, or DELETE."),
				"url":     stringProp("Target URL."),
				"headers": map[string]any{"type": "object", "description": "Optional request headers."},
				"body":    stringProp("Optional request body for POST/PUT."),
			}, "url"),
		},
		{
			Name:        "remember",
			Description: "Store a durable memory for future turns.",
			Parameters: objectSchema(map[string]any{
				"type":       stringProp("Memory type, e.g. fact, preference, task."),
				"content":    stringProp("The memory content."),
				"reasoning":  stringProp("Optional reasoning for why this matters."),
				"importance": map[string]any{"type": "number", "description": "Importance from 0 to 10."},
			}, "content"),
		},
		{
			Name:        "recall",
			Description: "Recall stored memories, optionally filtered by query and type.",
			Parameters: objectSchema(map[string]any{
				"query": stringProp("Optional substring to search for in memory content."),
				"type":  stringProp("Optional memory type filter."),
				"limit": map[string]any{"type": "integer", "description": "Maximum rows to return."},
			}),
		},
		{
			Name:        "forget",
			Description: "Delete memories whose content contains the given substring.",
			Parameters: objectSchema(map[string]any{
				"match": stringProp("Substring to match for deletion."),
			}, "match"),
		},
	}
}

// Execute dispatches name to its built-in implementation. Returns
// ErrNotBuiltIn if name is unregistered.
func (r *Registry) Execute(ctx context.Context, name string, arguments map[string]any) (string, error) {
	switch name {
	case "read_file":
		return r.readFile(arguments), nil
	case "list_directory":
		return r.listDirectory(arguments), nil
	case "write_file":
		return r.writeFile(arguments), nil
	case "shell":
		return r.shell(ctx, arguments), nil
	case "web_search":
		return r.webSearch(ctx, arguments), nil
	case "http_request":
		return r.httpRequest(ctx, arguments), nil
	case "remember":
		return r.remember(arguments), nil
	case "recall":
		return r.recall(arguments), nil
	case "forget":
		return r.forget(arguments), nil
	default:
		return "", ErrNotBuiltIn
	}
}

func stringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func floatArg(args map[string]any, key string) float64 {
	v, ok := args[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}

func intArg(args map[string]any, key string, def int) int {
	f := floatArg(args, key)
	if f == 0 {
		return def
	}
	return int(f)
}

func (r *Registry) readFile(args map[string]any) string {
	path := stringArg(args, "path")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("Error reading file: %v", err)
	}
	return r.redact(truncateText(string(data), maxReadFileBytes))
}

func (r *Registry) listDirectory(args map[string]any) string {
	path := stringArg(args, "path")
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Sprintf("Error listing directory: %v", err)
	}
	if len(entries) == 0 {
		return "(empty directory)"
	}

	names := make([]string, len(entries))
	isDir := make(map[string]bool, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
		isDir[e.Name()] = e.IsDir()
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		if isDir[name] {
			b.WriteString("📁 ")
		} else {
			b.WriteString("📄 ")
		}
		b.WriteString(name)
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (r *Registry) writeFile(args map[string]any) string {
	path := stringArg(args, "path")
	content := stringArg(args, "content")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Sprintf("Error writing file: %v", err)
	}
	return fmt.Sprintf("✅ Written %d bytes to %s", len(content), path)
}

func (r *Registry) shell(ctx context.Context, args map[string]any) string {
	return r.ctx.ShellPolicy.Execute(ctx, stringArg(args, "command"))
}

func (r *Registry) remember(args map[string]any) string {
	msg, err := r.ctx.Memory.Remember(
		stringArg(args, "type"),
		stringArg(args, "content"),
		stringArg(args, "reasoning"),
		floatArg(args, "importance"),
	)
	if err != nil {
		return fmt.Sprintf("❌ Memory error: %v", err)
	}
	return "✅ " + msg
}

func (r *Registry) recall(args map[string]any) string {
	records, err := r.ctx.Memory.Recall(stringArg(args, "query"), stringArg(args, "type"), intArg(args, "limit", 10))
	if err != nil {
		return fmt.Sprintf("❌ Memory error: %v", err)
	}
	if len(records) == 0 {
		return "No memories found."
	}

	var b strings.Builder
	b.WriteString("🧠 Recalled memories:\n\n")
	for _, rec := range records {
		fmt.Fprintf(&b, "- [%s] %s (importance %.1f)\n", rec.Type, rec.Content, rec.Importance)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (r *Registry) forget(args map[string]any) string {
	n, err := r.ctx.Memory.Forget(stringArg(args, "match"))
	if err != nil {
		return fmt.Sprintf("❌ Memory error: %v", err)
	}
	return fmt.Sprintf("❌ Forgot %d memories", n)
}

func (r *Registry) httpRequest(ctx context.Context, args map[string]any) string {
	url := stringArg(args, "url")
	if url == "" {
		return "No URL provided"
	}
	method := strings.ToUpper(stringArg(args, "method"))
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if bodyStr := stringArg(args, "body"); bodyStr != "" && (method == http.MethodPost || method == http.MethodPut) {
		body = strings.NewReader(bodyStr)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Sprintf("HTTP request failed: %v", err)
	}

	if headers, ok := args["headers"].(map[string]any); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				req.Header.Set(k, s)
			}
		}
	}

	resp, err := r.ctx.HTTPClient.Do(req)
	if err != nil {
		return fmt.Sprintf("HTTP request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Sprintf("HTTP %d %s (body read error: %v)", resp.StatusCode, http.StatusText(resp.StatusCode), err)
	}

	body := r.redact(truncateText(string(respBody), maxHTTPBodyBytes))
	return fmt.Sprintf("HTTP %d %s\n\n%s", resp.StatusCode, http.StatusText(resp.StatusCode), body)
}

func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return fmt.Sprintf("%s\n[truncated, %d bytes total]", s[:max], len(s))
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}
