// Copyright (C) 2025 Argus Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package memory implements the durable, importance-ranked memory store on
// top of an embedded SQLite database.
//
// Description:
//
//	Records are keyed by an auto-increment integer id and indexed for
//	retrieval by type and by importance descending. Remember deduplicates
//	strictly by exact content match, raising importance to the max of the
//	old and new value on a repeat. The database is opened in WAL mode with
//	foreign-key enforcement on.
package memory

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultType is the memory type used when the caller does not specify one.
const DefaultType = "fact"

// DefaultImportance is the importance assigned to a new memory when the
// caller does not specify one.
const DefaultImportance = 5.0

// ValidTypes enumerates the recognized memory record types.
var ValidTypes = []string{
	"fact", "preference", "task", "learning",
	"relationship", "context", "procedure", "reflection",
}

const schema = `
CREATE TABLE IF NOT EXISTS memories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	memory_type TEXT NOT NULL DEFAULT 'fact',
	content TEXT NOT NULL,
	reasoning TEXT,
	importance REAL NOT NULL DEFAULT 5.0,
	created_at TEXT NOT NULL DEFAULT (datetime('now')),
	updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(memory_type);
CREATE INDEX IF NOT EXISTS idx_memories_importance ON memories(importance DESC);
`

// Record is a single memory row.
type Record struct {
	ID         int64
	Type       string
	Content    string
	Reasoning  string
	Importance float64
	CreatedAt  string
	UpdatedAt  string
}

// Store is a SQLite-backed memory store. A single mutex serializes writers
// while allowing reads to interleave — a single writer at a time, reads
// allowed during writes. database/sql's own connection pool handles the
// actual interleaving; the mutex here only protects the dedup-then-write
// check/act sequence in Remember from a lost-update race between two
// concurrent callers.
type Store struct {
	db      *sql.DB
	writeMu sync.Mutex
}

// Open creates (if needed) and opens the SQLite database at path, enabling
// WAL journaling and foreign-key enforcement, and ensures the schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("memory: creating directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("memory: opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("memory: enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("memory: enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("memory: creating schema: %w", err)
	}

	// A single physical connection matches the original's Mutex<Connection>
	// and avoids SQLITE_BUSY contention from concurrent writers.
	db.SetMaxOpenConns(1)

	return &Store{db: db}, nil
}

// OpenDefault opens the memory database at the conventional path
// ~/.argus/memory.db.
func OpenDefault() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("memory: resolving home directory: %w", err)
	}
	return Open(filepath.Join(home, ".argus", "memory.db"))
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Remember inserts a new memory, or, if a row with identical content already
// exists, raises its importance to max(old, new) and advances updated_at.
//
// Outputs:
//   - string: a user-facing confirmation message.
func (s *Store) Remember(memType, content, reasoning string, importance float64) (string, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if memType == "" {
		memType = DefaultType
	}
	if importance == 0 {
		importance = DefaultImportance
	}

	var exists bool
	row := s.db.QueryRow("SELECT COUNT(*) > 0 FROM memories WHERE content = ?", content)
	if err := row.Scan(&exists); err != nil {
		return "", fmt.Errorf("memory: checking for duplicate: %w", err)
	}

	if exists {
		_, err := s.db.Exec(
			"UPDATE memories SET importance = MAX(importance, ?), updated_at = datetime('now') WHERE content = ?",
			importance, content,
		)
		if err != nil {
			return "", fmt.Errorf("memory: updating existing memory: %w", err)
		}
		return "Memory updated (already existed)", nil
	}

	var reasoningArg any
	if reasoning != "" {
		reasoningArg = reasoning
	}

	_, err := s.db.Exec(
		"INSERT INTO memories (memory_type, content, reasoning, importance) VALUES (?, ?, ?, ?)",
		memType, content, reasoningArg, importance,
	)
	if err != nil {
		return "", fmt.Errorf("memory: inserting memory: %w", err)
	}
	return fmt.Sprintf("Remembered [%s]: %s", memType, content), nil
}

// Recall returns up to limit memories matching the optional query substring
// and/or type, ordered by importance DESC, created_at DESC.
func (s *Store) Recall(query, memType string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}

	clauses := make([]string, 0, 2)
	args := make([]any, 0, 3)

	if query != "" {
		clauses = append(clauses, "content LIKE ? COLLATE NOCASE")
		args = append(args, "%"+query+"%")
	}
	if memType != "" {
		clauses = append(clauses, "memory_type = ?")
		args = append(args, memType)
	}

	sqlText := "SELECT id, memory_type, content, COALESCE(reasoning, ''), importance, created_at, updated_at FROM memories"
	if len(clauses) > 0 {
		sqlText += " WHERE " + strings.Join(clauses, " AND ")
	}
	sqlText += " ORDER BY importance DESC, created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("memory: recall query: %w", err)
	}
	defer rows.Close()

	var results []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Type, &r.Content, &r.Reasoning, &r.Importance, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("memory: scanning row: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Forget deletes every memory whose content contains match as a substring,
// returning the number of rows deleted.
func (s *Store) Forget(match string) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	result, err := s.db.Exec("DELETE FROM memories WHERE content LIKE ? COLLATE NOCASE", "%"+match+"%")
	if err != nil {
		return 0, fmt.Errorf("memory: forget: %w", err)
	}
	return result.RowsAffected()
}
