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
	"strconv"

	"github.com/spf13/cobra"

	"github.com/argus-ai/argus/internal/memory"
)

func openDefaultMemory() *memory.Store {
	store, err := memory.OpenDefault()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return store
}

func newMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Manage durable agent memories",
	}

	var memType, reasoning string
	var importance float64
	rememberCmd := &cobra.Command{
		Use:   "remember <content>",
		Short: "Store a memory",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			store := openDefaultMemory()
			defer store.Close()
			msg, err := store.Remember(memType, args[0], reasoning, importance)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			fmt.Println(msg)
		},
	}
	rememberCmd.Flags().StringVar(&memType, "type", "", "memory type, e.g. fact, preference, task")
	rememberCmd.Flags().StringVar(&reasoning, "reasoning", "", "optional reasoning for why this matters")
	rememberCmd.Flags().Float64Var(&importance, "importance", 0, "importance from 0 to 10")
	cmd.AddCommand(rememberCmd)

	var query, recallType string
	var limit int
	recallCmd := &cobra.Command{
		Use:   "recall",
		Short: "Recall stored memories",
		Run: func(_ *cobra.Command, _ []string) {
			store := openDefaultMemory()
			defer store.Close()
			records, err := store.Recall(query, recallType, limit)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			if len(records) == 0 {
				fmt.Println("No memories found.")
				return
			}
			for _, r := range records {
				fmt.Printf("[%s] %s (importance %s)\n", r.Type, r.Content, strconv.FormatFloat(r.Importance, 'f', 1, 64))
			}
		},
	}
	recallCmd.Flags().StringVar(&query, "query", "", "optional substring to search for in memory content")
	recallCmd.Flags().StringVar(&recallType, "type", "", "optional memory type filter")
	recallCmd.Flags().IntVar(&limit, "limit", 10, "maximum rows to return")
	cmd.AddCommand(recallCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "forget <match>",
		Short: "Delete memories whose content contains the given substring",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			store := openDefaultMemory()
			defer store.Close()
			n, err := store.Forget(args[0])
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			fmt.Printf("Forgot %d memories\n", n)
		},
	})

	return cmd
}
