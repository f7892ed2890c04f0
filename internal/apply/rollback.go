// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package apply

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/forgecd/forge-agent/internal/forgeerr"
)

// Rollback reverses applicationID's patches in reverse order: a patch
// that created a file is undone by deleting the target (its before-hash
// is hash("")); every other patch is undone by restoring its backup
// blob verbatim. Rollback is idempotent absent external tampering, since
// backups are never deleted.
func (a *Applicator) Rollback(ctx context.Context, applicationID string) (*RollbackResult, error) {
	holder := LockInfo{PID: os.Getpid(), SessionID: sessionID(), LockedAt: time.Now()}
	if err := globalRootLocks.acquire(a.root, holder); err != nil {
		return nil, fmt.Errorf("%w: %v", forgeerr.ErrConcurrentApplication, err)
	}
	defer globalRootLocks.release(a.root)

	record, err := a.loadRecord(applicationID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &RollbackResult{}

	for i := len(record.Patches) - 1; i >= 0; i-- {
		select {
		case <-ctx.Done():
			result.Errors = append(result.Errors, "rollback cancelled before completion")
			a.finalizeRollback(record, result)
			return result, ctx.Err()
		default:
		}

		ap := record.Patches[i]
		fullPath := a.resolvePath(ap.Filename)

		if ap.BackupPath == "" {
			if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
				result.Errors = append(result.Errors, fmt.Sprintf("removing %s: %v", ap.Filename, err))
				continue
			}
			result.Restored = append(result.Restored, ap.Filename)
			continue
		}

		data, err := os.ReadFile(ap.BackupPath)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("reading backup for %s: %v", ap.Filename, err))
			continue
		}
		if err := os.WriteFile(fullPath, data, 0644); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("restoring %s: %v", ap.Filename, err))
			continue
		}
		result.Restored = append(result.Restored, ap.Filename)
	}

	result.DurationMs = time.Since(start).Milliseconds()
	a.finalizeRollback(record, result)
	return result, nil
}

func (a *Applicator) finalizeRollback(record *ApplicationRecord, result *RollbackResult) {
	if len(result.Errors) == 0 {
		record.Status = StatusRolledBack
	} else {
		record.Status = StatusPartial
		record.Error = fmt.Sprintf("%d file(s) failed to restore", len(result.Errors))
	}
	_ = a.persistRecord(record)
}

func hashBytes(data []byte) string {
	return sha256Hex(data)
}
