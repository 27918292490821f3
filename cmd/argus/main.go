// Copyright (C) 2025 Argus Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command argus is the local CLI front end: chat, vault, and memory
// subcommands wired over the same internal packages as the daemon-style
// entry point (cmd/argusd).
//
// Usage:
//
//	argus chat
//	argus vault init|store|retrieve|list|delete
//	argus memory remember|recall|forget
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "argus",
		Short: "Argus — a local, security-hardened tool-using agent runtime",
	}

	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newVaultCmd())
	rootCmd.AddCommand(newMemoryCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
