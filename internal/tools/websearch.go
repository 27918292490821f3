// Copyright (C) 2025 Argus Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

const (
	searchEndpoint = "https://html.duckduckgo.com/html/"
	searchUA       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxResults     = 6
)

var (
	snippetPattern = regexp.MustCompile(`class="result__snippet"[^>]*>(.*?)</a>`)
	linkPattern    = regexp.MustCompile(`class="result__a"[^>]*href="([^"]*)"`)
	tagStripper    = regexp.MustCompile(`<[^>]*>`)
)

// webSearch issues a no-API-key HTML search against DuckDuckGo and returns
// up to maxResults snippets, pairing each with its (redirect-unwrapped) URL
// when one was found.
func (r *Registry) webSearch(ctx context.Context, args map[string]any) string {
	query := stringArg(args, "query")
	if query == "" {
		return "No search query provided"
	}

	reqURL := searchEndpoint + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Sprintf("Web search failed: %v", err)
	}
	req.Header.Set("User-Agent", searchUA)

	resp, err := r.ctx.HTTPClient.Do(req)
	if err != nil {
		return fmt.Sprintf("Web search failed: %v", err)
	}
	defer resp.Body.Close()

	buf := make([]byte, 0, 64*1024)
	chunk := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if readErr != nil {
			break
		}
	}
	bodyText := string(buf)

	snippets := extractSnippets(bodyText)
	links := extractLinks(bodyText)

	if len(snippets) == 0 {
		return "No results found - try rephrasing your search"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔍 Search results for '%s':\n\n", query)
	for i, snippet := range snippets {
		fmt.Fprintf(&b, "%d. %s", i+1, snippet)
		if i < len(links) && links[i] != "" {
			fmt.Fprintf(&b, " (%s)", links[i])
		}
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func extractSnippets(body string) []string {
	matches := snippetPattern.FindAllStringSubmatch(body, -1)
	snippets := make([]string, 0, maxResults)
	for _, m := range matches {
		text := cleanSnippet(m[1])
		if len(text) <= 20 {
			continue
		}
		snippets = append(snippets, "• "+text)
		if len(snippets) >= maxResults {
			break
		}
	}
	return snippets
}

func cleanSnippet(raw string) string {
	text := tagStripper.ReplaceAllString(raw, "")
	text = html.UnescapeString(text)
	text = strings.Map(func(r rune) rune {
		if r < 0x20 {
			return -1
		}
		return r
	}, text)
	return strings.TrimSpace(text)
}

func extractLinks(body string) []string {
	matches := linkPattern.FindAllStringSubmatch(body, -1)
	links := make([]string, 0, maxResults)
	for _, m := range matches {
		links = append(links, unwrapDuckDuckGoRedirect(m[1]))
		if len(links) >= maxResults {
			break
		}
	}
	return links
}

// unwrapDuckDuckGoRedirect extracts the "uddg" query parameter DuckDuckGo's
// HTML results wrap real URLs in, falling back to the raw href if absent.
func unwrapDuckDuckGoRedirect(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	// href may be scheme-relative ("//duckduckgo.com/l/?uddg=...").
	query := parsed.RawQuery
	if query == "" {
		if idx := strings.IndexByte(href, '?'); idx >= 0 {
			query = href[idx+1:]
		}
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return href
	}
	if real := values.Get("uddg"); real != "" {
		if decoded, err := url.QueryUnescape(real); err == nil {
			return decoded
		}
	}
	return href
}
