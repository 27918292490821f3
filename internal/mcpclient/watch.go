// Copyright (C) 2025 Argus Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package mcpclient

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig watches configPath for changes and reconnects c's server set
// whenever the file is written, renamed onto, or removed. It blocks until
// ctx is cancelled.
func (c *Client) WatchConfig(ctx context.Context, configPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(configPath); err != nil {
		slog.Warn("mcpclient: could not watch config path, hot-reload disabled", "path", configPath, "err", err)
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			c.reload(ctx, configPath)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("mcpclient: watcher error", "err", err)
		}
	}
}

func (c *Client) reload(ctx context.Context, configPath string) {
	configs, err := LoadConfig(configPath)
	if err != nil {
		slog.Warn("mcpclient: failed to reload config", "err", err)
		return
	}

	slog.Info("mcpclient: config changed, reconnecting servers", "path", configPath, "servers", len(configs))
	c.Close()
	c.servers = nil
	if failures := c.ConnectAll(ctx, configs); len(failures) > 0 {
		for _, f := range failures {
			slog.Warn("mcpclient: reconnect failure", "err", f)
		}
	}
}
