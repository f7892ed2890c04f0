// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const defaultMaxMemory = 10000

// Journal is the singleton-per-process append-only audit log. The flat
// file at logPath is the durable record; the badger index backs the
// By* query surface so those reads don't scan the flat file.
type Journal struct {
	mu        sync.Mutex
	logPath   string
	file      *os.File
	db        *badgerdb.DB
	ownsDB    bool
	memory    []Entry
	maxMemory int
}

var (
	singletonMu sync.Mutex
	singleton   *Journal
)

// Open opens (or returns the already-open) process-wide Journal rooted at
// logDir. The NDJSON file lives at <logDir>/forge-audit.log; the badger
// index lives at <logDir>/audit-index.
func Open(logDir string) (*Journal, error) {
	singletonMu.Lock()
	defer singletonMu.Unlock()

	if singleton != nil {
		return singleton, nil
	}

	dir := expandHome(logDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("audit: creating log dir: %w", err)
	}

	logPath := filepath.Join(dir, "forge-audit.log")
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("audit: opening %s: %w", logPath, err)
	}

	indexPath := filepath.Join(dir, "audit-index")
	db, err := badgerdb.Open(badgerdb.DefaultOptions(indexPath).WithLogger(nil))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("audit: opening index: %w", err)
	}

	j := &Journal{logPath: logPath, file: file, db: db, ownsDB: true, maxMemory: defaultMaxMemory}
	singleton = j
	return j, nil
}

// OpenInMemory opens a Journal backed by an in-memory badger instance and
// the flat file <dir>/forge-audit.log, for tests and ephemeral CLI
// invocations. Only the index is in memory; the NDJSON file is written.
func OpenInMemory(dir string) (*Journal, error) {
	logPath := filepath.Join(dir, "forge-audit.log")
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("audit: opening %s: %w", logPath, err)
	}
	db, err := badgerdb.Open(badgerdb.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("audit: opening in-memory index: %w", err)
	}
	return &Journal{logPath: logPath, file: file, db: db, ownsDB: true, maxMemory: defaultMaxMemory}, nil
}

// Close flushes and releases the flat file and badger index. Safe to call
// once; resets the process singleton if this Journal was it.
func (j *Journal) Close() error {
	singletonMu.Lock()
	if singleton == j {
		singleton = nil
	}
	singletonMu.Unlock()

	j.mu.Lock()
	defer j.mu.Unlock()

	var errs []string
	if err := j.file.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if j.ownsDB {
		if err := j.db.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("audit: close: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Append records entry, filling ID and Ts if unset. It writes the flat
// NDJSON line first (the durable record), then the badger index, then
// updates the bounded in-memory ring; a failure at any stage is returned
// without masking work already durable.
func (j *Journal) Append(ctx context.Context, entry Entry) (Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Ts.IsZero() {
		entry.Ts = time.Now()
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return entry, err
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return entry, fmt.Errorf("audit: marshaling entry: %w", err)
	}
	if _, err := j.file.Write(append(line, '\n')); err != nil {
		return entry, fmt.Errorf("audit: writing journal: %w", err)
	}

	if err := j.indexEntry(entry); err != nil {
		return entry, fmt.Errorf("audit: indexing entry: %w", err)
	}

	j.memory = append(j.memory, entry)
	if len(j.memory) > j.maxMemory {
		j.memory = j.memory[len(j.memory)-j.maxMemory:]
	}

	return entry, nil
}

func (j *Journal) indexEntry(entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return j.db.Update(func(txn *badgerdb.Txn) error {
		if err := txn.Set([]byte(mainKey(entry)), payload); err != nil {
			return err
		}
		if err := txn.Set([]byte(resourceKey(entry)), payload); err != nil {
			return err
		}
		return txn.Set([]byte(statusKey(entry)), payload)
	})
}

func mainKey(e Entry) string {
	return fmt.Sprintf("e/%020d/%s", e.Ts.UnixNano(), e.ID)
}

func resourceKey(e Entry) string {
	return fmt.Sprintf("r/%s/%020d/%s", e.Resource, e.Ts.UnixNano(), e.ID)
}

func statusKey(e Entry) string {
	return fmt.Sprintf("s/%s/%020d/%s", e.Status, e.Ts.UnixNano(), e.ID)
}

// Recent returns up to the bounded in-memory retention window's entries,
// newest last, without touching the badger index.
func (j *Journal) Recent() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Entry, len(j.memory))
	copy(out, j.memory)
	return out
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
