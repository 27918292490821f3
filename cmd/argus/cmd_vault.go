// Copyright (C) 2025 Argus Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/argus-ai/argus/internal/vault"
)

// vaultDefaultPath returns ~/.argus/vault.json.
func vaultDefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".argus", "vault.json"), nil
}

func openUnlockedVault() *vault.Vault {
	path, err := vaultDefaultPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	v := vault.Open(path)
	if err := v.Unlock(); err != nil {
		fmt.Fprintf(os.Stderr, "vault: %v (run 'argus vault init' first)\n", err)
		os.Exit(1)
	}
	return v
}

func newVaultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Manage the encrypted secret vault",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create a new vault, generating and storing a master key",
		Run: func(_ *cobra.Command, _ []string) {
			path, err := vaultDefaultPath()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			if _, err := vault.Init(path); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			fmt.Printf("Vault created at %s\n", path)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "store <name> <value>",
		Short: "Store a secret",
		Args:  cobra.ExactArgs(2),
		Run: func(_ *cobra.Command, args []string) {
			v := openUnlockedVault()
			defer v.Lock()
			if err := v.Store(args[0], args[1]); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			fmt.Printf("Stored %q\n", args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "retrieve <name>",
		Short: "Retrieve a stored secret",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			v := openUnlockedVault()
			defer v.Lock()
			value, err := v.Retrieve(args[0])
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			fmt.Println(value)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored secret names",
		Run: func(_ *cobra.Command, _ []string) {
			v := openUnlockedVault()
			defer v.Lock()
			names, err := v.ListKeys()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			for _, name := range names {
				fmt.Println(name)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored secret",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			v := openUnlockedVault()
			defer v.Lock()
			if err := v.Delete(args[0]); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			fmt.Printf("Deleted %q\n", args[0])
		},
	})

	return cmd
}
