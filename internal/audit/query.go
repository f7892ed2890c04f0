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
	"encoding/json"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
)

// ByResource returns entries indexed under resource, oldest first.
func (j *Journal) ByResource(resource string, limit int) ([]Entry, error) {
	return j.scanPrefix(fmt.Sprintf("r/%s/", resource), limit)
}

// ByStatus returns entries indexed under status, oldest first.
func (j *Journal) ByStatus(status Status, limit int) ([]Entry, error) {
	return j.scanPrefix(fmt.Sprintf("s/%s/", status), limit)
}

// ByDateRange returns entries with since <= ts < until, oldest first. A
// zero until means no upper bound.
func (j *Journal) ByDateRange(since, until time.Time, limit int) ([]Entry, error) {
	var out []Entry
	err := j.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte("e/")
		it := txn.NewIterator(opts)
		defer it.Close()

		start := fmt.Sprintf("e/%020d/", since.UnixNano())
		for it.Seek([]byte(start)); it.ValidForPrefix(opts.Prefix); it.Next() {
			var entry Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return err
			}
			if !until.IsZero() && !entry.Ts.Before(until) {
				break
			}
			out = append(out, entry)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})
	return out, err
}

// Query runs a combined filter: resource and status narrow via the
// indexes when set, then Since/Until/Limit trim the result.
func (j *Journal) Query(q Query) ([]Entry, error) {
	var entries []Entry
	var err error

	switch {
	case q.Resource != "":
		entries, err = j.ByResource(q.Resource, 0)
	case q.Status != "":
		entries, err = j.ByStatus(q.Status, 0)
	default:
		entries, err = j.ByDateRange(q.Since, q.Until, 0)
	}
	if err != nil {
		return nil, err
	}

	var filtered []Entry
	for _, e := range entries {
		if q.Resource != "" && e.Resource != q.Resource {
			continue
		}
		if q.Status != "" && e.Status != q.Status {
			continue
		}
		if !q.Since.IsZero() && e.Ts.Before(q.Since) {
			continue
		}
		if !q.Until.IsZero() && !e.Ts.Before(q.Until) {
			continue
		}
		filtered = append(filtered, e)
		if q.Limit > 0 && len(filtered) >= q.Limit {
			break
		}
	}
	return filtered, nil
}

func (j *Journal) scanPrefix(prefix string, limit int) ([]Entry, error) {
	var out []Entry
	err := j.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix(opts.Prefix); it.Next() {
			var entry Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return err
			}
			out = append(out, entry)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})
	return out, err
}

// Purge removes every indexed entry older than cutoff from the badger
// index and the in-memory ring. The flat NDJSON file is never rewritten;
// it remains the full append-only record regardless of retention policy.
func (j *Journal) Purge(cutoff time.Time) (int, error) {
	stale, err := j.ByDateRange(time.Time{}, cutoff, 0)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	err = j.db.Update(func(txn *badgerdb.Txn) error {
		for _, e := range stale {
			if err := txn.Delete([]byte(mainKey(e))); err != nil {
				return err
			}
			if err := txn.Delete([]byte(resourceKey(e))); err != nil {
				return err
			}
			if err := txn.Delete([]byte(statusKey(e))); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("audit: purging index: %w", err)
	}

	j.mu.Lock()
	kept := j.memory[:0:0]
	for _, e := range j.memory {
		if e.Ts.Before(cutoff) {
			continue
		}
		kept = append(kept, e)
	}
	j.memory = kept
	j.mu.Unlock()

	return len(stale), nil
}
