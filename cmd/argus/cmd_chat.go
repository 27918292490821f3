// Copyright (C) 2025 Argus Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/argus-ai/argus/internal/agent"
	"github.com/argus-ai/argus/internal/config"
	"github.com/argus-ai/argus/internal/llmapi"
	"github.com/argus-ai/argus/internal/mcpclient"
	"github.com/argus-ai/argus/internal/memory"
	"github.com/argus-ai/argus/internal/shellpolicy"
	"github.com/argus-ai/argus/internal/tools"
	"github.com/argus-ai/argus/internal/vault"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session with the agent",
		Run:   runChatCommand,
	}
}

func runChatCommand(_ *cobra.Command, _ []string) {
	cfgPath, err := config.DefaultPath()
	if err != nil {
		log.Fatalf("argus: %v", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("argus: loading config: %v", err)
	}

	v := openVaultForChat()

	apiKey, source := config.ResolveSecret(v, "OPENROUTER_API_KEY", "OPENROUTER_API_KEY")
	if apiKey == "" {
		log.Fatalf("argus: no API key found — store one with 'argus vault store OPENROUTER_API_KEY' or set the environment variable")
	}
	slog.Info("argus: resolved completion API key", "source", sourceLabel(source))

	memStore, err := memory.OpenDefault()
	if err != nil {
		log.Fatalf("argus: opening memory store: %v", err)
	}
	defer memStore.Close()

	registry := tools.New(&tools.Context{
		ShellPolicy: buildShellPolicy(cfg),
		Memory:      memStore,
		HTTPClient:  http.DefaultClient,
		Vault:       v,
	})

	mcp := mcpclient.New()
	mcpPath := cfg.MCP.ConfigPath
	if mcpPath == "" {
		if p, err := mcpclient.DefaultConfigPath(); err == nil {
			mcpPath = p
		}
	}
	if servers, err := mcpclient.LoadConfig(mcpPath); err == nil {
		if failures := mcp.ConnectAll(context.Background(), servers); len(failures) > 0 {
			for _, f := range failures {
				slog.Warn("argus: mcp server connect failed", "err", f)
			}
		}
	}
	defer mcp.Close()

	client := llmapi.New(apiKey, cfg.Agent.Endpoint, nil)
	agentCfg := agent.Config{Model: cfg.Agent.Model, Endpoint: cfg.Agent.Endpoint, Temperature: cfg.Agent.Temperature}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	interactive := isatty.IsTerminal(os.Stdin.Fd())
	scanner := bufio.NewScanner(os.Stdin)

	for {
		if interactive {
			fmt.Print("> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		reply, err := agent.Turn(ctx, client, agentCfg, line, registry, mcp, printEvent)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Printf("\n%s\n\n", reply)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func printEvent(e agent.Event) {
	switch e.Kind {
	case agent.EventToolCall:
		fmt.Printf("  🔧 %s(%s)\n", e.Name, e.Preview)
	case agent.EventToolResult:
		fmt.Printf("  ↳ %s\n", e.Preview)
	}
}

func sourceLabel(s config.SecretSource) string {
	switch s {
	case config.SecretSourceVault:
		return "vault"
	case config.SecretSourceEnv:
		return "environment"
	default:
		return "none"
	}
}

func buildShellPolicy(cfg *config.Config) *shellpolicy.Policy {
	policy := shellpolicy.New()
	for _, prefix := range cfg.ShellPolicy.ExtraAllowedPrefixes {
		policy.Allow(prefix)
	}
	if cfg.ShellPolicy.MaxOutputBytes > 0 {
		policy.MaxOutputBytes = cfg.ShellPolicy.MaxOutputBytes
	}
	if t := cfg.ShellTimeout(); t > 0 {
		policy.Timeout = t
	}
	return policy
}

// openVaultForChat opens the default vault and unlocks it, returning nil if
// no vault has been initialized yet — chat still works with an env-only
// API key in that case.
func openVaultForChat() *vault.Vault {
	path, err := vaultDefaultPath()
	if err != nil {
		return nil
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return nil
	}

	v := vault.Open(path)
	if err := v.Unlock(); err != nil {
		slog.Warn("argus: could not unlock vault, falling back to environment secrets", "err", err)
		return nil
	}
	return v
}
