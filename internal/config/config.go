// Copyright (C) 2025 Argus Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config implements Argus's ambient configuration loading: a YAML
// file at ~/.argus/config.yaml holding agent defaults, shell policy
// overrides, and MCP settings, plus vault-first/env-fallback secret
// resolution.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/argus-ai/argus/internal/vault"
)

// Default agent parameters, used when config.yaml is absent or omits a
// field.
const (
	DefaultModel       = "openrouter/auto"
	DefaultEndpoint    = "https://openrouter.ai/api/v1/chat/completions"
	DefaultTemperature = 0.7
)

// AgentConfig holds the chat-completion defaults.
type AgentConfig struct {
	Model       string  `yaml:"model"`
	Endpoint    string  `yaml:"endpoint"`
	Temperature float64 `yaml:"temperature"`
}

// ShellPolicyConfig overrides the shell built-in's default allowlist and
// limits.
type ShellPolicyConfig struct {
	ExtraAllowedPrefixes []string `yaml:"extra_allowed_prefixes"`
	MaxOutputBytes       int      `yaml:"max_output_bytes"`
	TimeoutSeconds       int      `yaml:"timeout_seconds"`
}

// MCPConfig controls the external-tool client's config path and whether
// config hot-reload is enabled.
type MCPConfig struct {
	ConfigPath string `yaml:"config_path"`
	HotReload  bool   `yaml:"hot_reload"`
}

// Config is the full ~/.argus/config.yaml shape. Secrets are never read
// from this file — see ResolveSecret.
type Config struct {
	Agent       AgentConfig       `yaml:"agent"`
	ShellPolicy ShellPolicyConfig `yaml:"shell_policy"`
	MCP         MCPConfig         `yaml:"mcp"`
}

// onDiskConfig mirrors Config but uses a pointer for HotReload so Load can
// tell "absent from the file" apart from "explicitly set to false".
type onDiskConfig struct {
	Agent       AgentConfig       `yaml:"agent"`
	ShellPolicy ShellPolicyConfig `yaml:"shell_policy"`
	MCP         struct {
		ConfigPath string `yaml:"config_path"`
		HotReload  *bool  `yaml:"hot_reload"`
	} `yaml:"mcp"`
}

// DefaultPath returns ~/.argus/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving home directory: %w", err)
	}
	return filepath.Join(home, ".argus", "config.yaml"), nil
}

// Load reads and parses path, applying defaults for any zero-valued field.
// A missing file is not an error — it yields an all-defaults Config, since
// argus must run usefully out of the box.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Agent: AgentConfig{
			Model:       DefaultModel,
			Endpoint:    DefaultEndpoint,
			Temperature: DefaultTemperature,
		},
		ShellPolicy: ShellPolicyConfig{},
		MCP:         MCPConfig{HotReload: true},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var onDisk onDiskConfig
	if err := yaml.Unmarshal(data, &onDisk); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if onDisk.Agent.Model != "" {
		cfg.Agent.Model = onDisk.Agent.Model
	}
	if onDisk.Agent.Endpoint != "" {
		cfg.Agent.Endpoint = onDisk.Agent.Endpoint
	}
	if onDisk.Agent.Temperature != 0 {
		cfg.Agent.Temperature = onDisk.Agent.Temperature
	}
	cfg.ShellPolicy = onDisk.ShellPolicy
	if onDisk.MCP.ConfigPath != "" {
		cfg.MCP.ConfigPath = onDisk.MCP.ConfigPath
	}
	if onDisk.MCP.HotReload != nil {
		cfg.MCP.HotReload = *onDisk.MCP.HotReload
	}

	return cfg, nil
}

// ShellTimeout returns the configured shell timeout, or zero if unset —
// callers fall back to shellpolicy.DefaultTimeout.
func (c *Config) ShellTimeout() time.Duration {
	if c.ShellPolicy.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.ShellPolicy.TimeoutSeconds) * time.Second
}

// SecretSource names where ResolveSecret found a value, for logging.
type SecretSource int

const (
	SecretSourceNone SecretSource = iota
	SecretSourceVault
	SecretSourceEnv
)

// ResolveSecret looks up name first in v (if unlocked), then falls back to
// the environment variable envVar. This is the vault-first, env-fallback
// resolution path used for secrets like TELEGRAM_BOT_TOKEN and
// OPENROUTER_API_KEY. Vault lookup failures (locked, not found) are not
// reported as errors — they simply fall through to the environment.
func ResolveSecret(v *vault.Vault, name, envVar string) (string, SecretSource) {
	if v != nil {
		if value, err := v.Retrieve(name); err == nil {
			return value, SecretSourceVault
		}
	}
	if value := os.Getenv(envVar); value != "" {
		return value, SecretSourceEnv
	}
	return "", SecretSourceNone
}
