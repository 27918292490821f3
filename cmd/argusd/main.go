// Copyright (C) 2025 Argus Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command argusd is the daemon-style entry point: it demonstrates the
// vault-first, env-fallback secret resolution path for TELEGRAM_BOT_TOKEN
// and OPENROUTER_API_KEY, serves an ops-only /healthz and /metrics
// surface, and drives the same internal/agent turn loop over a bare stdin
// request loop. The concrete Telegram transport is an external
// collaborator and is not implemented here — this is a standalone
// demonstration of the config/telemetry wiring, not a production bot.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/argus-ai/argus/internal/agent"
	"github.com/argus-ai/argus/internal/config"
	"github.com/argus-ai/argus/internal/llmapi"
	"github.com/argus-ai/argus/internal/mcpclient"
	"github.com/argus-ai/argus/internal/memory"
	"github.com/argus-ai/argus/internal/shellpolicy"
	"github.com/argus-ai/argus/internal/telemetry"
	"github.com/argus-ai/argus/internal/tools"
	"github.com/argus-ai/argus/internal/vault"
)

func main() {
	healthPort := flag.Int("health-port", 9091, "port for the /healthz and /metrics surface")
	vaultPath := flag.String("vault-path", "", "path to the vault file (defaults to ~/.argus/vault.json)")
	flag.Parse()

	shutdownTracing, err := telemetry.InitTracing(context.Background())
	if err != nil {
		slog.Error("argusd: failed to init tracing", "err", err)
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	cfgPath, err := config.DefaultPath()
	if err != nil {
		slog.Error("argusd: resolving config path", "err", err)
		os.Exit(1)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("argusd: loading config", "err", err)
		os.Exit(1)
	}

	v := resolveVault(*vaultPath)

	apiKey, apiKeySource := config.ResolveSecret(v, "OPENROUTER_API_KEY", "OPENROUTER_API_KEY")
	if apiKey == "" {
		slog.Error("argusd: no completion API key available in vault or environment")
		os.Exit(1)
	}
	_, botTokenSource := config.ResolveSecret(v, "TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	slog.Info("argusd: secret resolution",
		"api_key_source", sourceLabelDaemon(apiKeySource),
		"bot_token_source", sourceLabelDaemon(botTokenSource))

	memStore, err := memory.OpenDefault()
	if err != nil {
		slog.Error("argusd: opening memory store", "err", err)
		os.Exit(1)
	}
	defer memStore.Close()

	policy := shellpolicy.New()
	for _, prefix := range cfg.ShellPolicy.ExtraAllowedPrefixes {
		policy.Allow(prefix)
	}

	registry := tools.New(&tools.Context{
		ShellPolicy: policy,
		Memory:      memStore,
		HTTPClient:  http.DefaultClient,
		Vault:       v,
	})

	mcp := mcpclient.New()
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

	go serveHealth(*healthPort)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		turnCtx, span := telemetry.StartTurnSpan(ctx)
		turnStart := time.Now()
		reply, turnErr := agent.Turn(turnCtx, client, agentCfg, line, registry, mcp, nil)
		telemetry.RecordTurn(span, turnStart, turnErr)
		if turnErr != nil {
			slog.Error("argusd: turn failed", "err", turnErr)
			continue
		}
		fmt.Println(reply)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// resolveVault opens and unlocks the vault at path (or the default path if
// empty), returning nil if unavailable so callers fall through to
// environment-only secret resolution.
func resolveVault(path string) *vault.Vault {
	if path == "" {
		p, err := defaultVaultPath()
		if err != nil {
			return nil
		}
		path = p
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	v := vault.Open(path)
	if err := v.Unlock(); err != nil {
		slog.Warn("argusd: could not unlock vault, falling back to environment", "err", err)
		return nil
	}
	return v
}

func defaultVaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return home + "/.argus/vault.json", nil
}

func sourceLabelDaemon(s config.SecretSource) string {
	switch s {
	case config.SecretSourceVault:
		return "vault"
	case config.SecretSourceEnv:
		return "environment"
	default:
		return "none"
	}
}

// serveHealth runs the ops-only HTTP surface: /healthz and /metrics. This is
// not a request-routing API for the agent itself — purely health and
// metrics.
func serveHealth(port int) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("argusd"))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf(":%d", port)
	if err := router.Run(addr); err != nil {
		slog.Error("argusd: health server exited", "err", err)
	}
}
