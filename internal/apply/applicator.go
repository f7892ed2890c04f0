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
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/forgecd/forge-agent/internal/diffengine"
	"github.com/forgecd/forge-agent/internal/dryrun"
	"github.com/forgecd/forge-agent/internal/forgeerr"
	"github.com/forgecd/forge-agent/internal/gate"
)

// Applicator applies a decided-upon patch set to files under root, the
// only component permitted to write them. Concurrent ApplyPatches or
// Rollback calls against the same root are serialised by an in-process
// advisory lock.
type Applicator struct {
	root     string
	stateDir string
}

// NewApplicator creates an Applicator rooted at root, persisting records
// and backups under stateDir.
func NewApplicator(root, stateDir string) (*Applicator, error) {
	if !filepath.IsAbs(root) {
		return nil, fmt.Errorf("apply: root must be absolute: %s", root)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("apply: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("apply: root is not a directory: %s", root)
	}
	if err := os.MkdirAll(filepath.Join(stateDir, "applications"), 0755); err != nil {
		return nil, fmt.Errorf("apply: creating state dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(stateDir, "backups"), 0755); err != nil {
		return nil, fmt.Errorf("apply: creating backup dir: %w", err)
	}
	return &Applicator{root: root, stateDir: stateDir}, nil
}

// ApplyPatches writes patches to disk and journals the result. It
// requires decision.Action == auto-apply unless options.AutoApply
// overrides. On the first per-file error it restores every snapshot
// taken so far and returns the failure; it never applies a partial set
// of patches without restoring.
func (a *Applicator) ApplyPatches(ctx context.Context, patches []diffengine.UnifiedPatch, decision gate.Decision, opts Options) (*ApplicationRecord, error) {
	if decision.Action != gate.ActionAutoApply && !opts.AutoApply {
		return nil, forgeerr.Wrap(forgeerr.ErrApplyConflict,
			fmt.Sprintf("gate decision is %q, not auto-apply", decision.Action),
			"re-run with options.AutoApply once a human has approved the fix")
	}

	holder := LockInfo{PID: os.Getpid(), SessionID: sessionID(), LockedAt: time.Now()}
	if err := globalRootLocks.acquire(a.root, holder); err != nil {
		return nil, fmt.Errorf("%w: %v", forgeerr.ErrConcurrentApplication, err)
	}
	defer globalRootLocks.release(a.root)

	if opts.PreflightDryRun {
		plan := dryrun.Simulate(ctx, a.root, patches, dryrun.DefaultOptions())
		if !plan.Success {
			return nil, forgeerr.Wrap(forgeerr.ErrApplyConflict, "dry run predicts a conflict or failure",
				"inspect the dry-run plan before retrying")
		}
	}

	id := uuid.NewString()
	record := &ApplicationRecord{ID: id, Ts: time.Now(), Decision: decision}

	applied, err := a.applyAll(id, patches, record)
	if err != nil {
		a.restoreAll(applied)
		record.Status = StatusPartial
		record.Error = err.Error()
		_ = a.persistRecord(record)
		return record, forgeerr.Wrap(forgeerr.ErrApplyFailed, err.Error(), "all snapshots taken so far were restored")
	}

	record.Patches = applied
	record.Status = StatusApplied
	if err := a.persistRecord(record); err != nil {
		return record, fmt.Errorf("apply: persisting record: %w", err)
	}
	return record, nil
}

// applyAll sequentially applies patches; the applied prefix is always
// valid even when it returns early on error, so the caller can restore it.
func (a *Applicator) applyAll(id string, patches []diffengine.UnifiedPatch, record *ApplicationRecord) ([]AppliedPatch, error) {
	var applied []AppliedPatch

	for _, patch := range patches {
		fullPath := a.resolvePath(patch.Filename)
		if !isPathSafe(a.root, fullPath) {
			return applied, fmt.Errorf("security: path escapes root: %s", patch.Filename)
		}

		switch {
		case patch.IsDeleted:
			ap, err := a.applyDelete(id, fullPath, patch)
			if err != nil {
				return applied, err
			}
			applied = append(applied, ap)

		case patch.IsNew:
			ap, err := a.applyNew(fullPath, patch)
			if err != nil {
				return applied, err
			}
			applied = append(applied, ap)

		default:
			ap, err := a.applyModification(id, fullPath, patch)
			if err != nil {
				return applied, err
			}
			applied = append(applied, ap)
		}
	}

	return applied, nil
}

func (a *Applicator) applyDelete(id, fullPath string, patch diffengine.UnifiedPatch) (AppliedPatch, error) {
	original, err := os.ReadFile(fullPath)
	if err != nil {
		return AppliedPatch{}, fmt.Errorf("reading %s before delete: %w", patch.Filename, err)
	}
	backupPath, err := a.snapshot(id, patch.Filename, original)
	if err != nil {
		return AppliedPatch{}, err
	}
	if err := os.Remove(fullPath); err != nil {
		return AppliedPatch{}, fmt.Errorf("removing %s: %w", patch.Filename, err)
	}
	return AppliedPatch{
		Filename:   patch.Filename,
		BeforeHash: hashBytes(original),
		AfterHash:  hashBytes(nil),
		Ts:         time.Now(),
		Patch:      patch,
		BackupPath: backupPath,
	}, nil
}

func (a *Applicator) applyNew(fullPath string, patch diffengine.UnifiedPatch) (AppliedPatch, error) {
	if _, err := os.Stat(fullPath); err == nil {
		return AppliedPatch{}, fmt.Errorf("creating %s: target already exists", patch.Filename)
	}
	content, err := diffengine.ApplyPatch("", patch)
	if err != nil {
		return AppliedPatch{}, fmt.Errorf("building content for %s: %w", patch.Filename, err)
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return AppliedPatch{}, fmt.Errorf("creating parent directories for %s: %w", patch.Filename, err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
		return AppliedPatch{}, fmt.Errorf("writing %s: %w", patch.Filename, err)
	}
	return AppliedPatch{
		Filename:   patch.Filename,
		BeforeHash: hashBytes(nil),
		AfterHash:  hashBytes([]byte(content)),
		Ts:         time.Now(),
		Patch:      patch,
	}, nil
}

func (a *Applicator) applyModification(id, fullPath string, patch diffengine.UnifiedPatch) (AppliedPatch, error) {
	original, err := os.ReadFile(fullPath)
	if err != nil {
		return AppliedPatch{}, fmt.Errorf("reading %s: %w", patch.Filename, err)
	}
	backupPath, err := a.snapshot(id, patch.Filename, original)
	if err != nil {
		return AppliedPatch{}, err
	}

	newContent, err := diffengine.ApplyPatch(string(original), patch)
	if err != nil {
		return AppliedPatch{}, fmt.Errorf("applying patch to %s: %w", patch.Filename, err)
	}
	if err := os.WriteFile(fullPath, []byte(newContent), 0644); err != nil {
		return AppliedPatch{}, fmt.Errorf("writing %s: %w", patch.Filename, err)
	}

	return AppliedPatch{
		Filename:   patch.Filename,
		BeforeHash: hashBytes(original),
		AfterHash:  hashBytes([]byte(newContent)),
		Ts:         time.Now(),
		Patch:      patch,
		BackupPath: backupPath,
	}, nil
}

// restoreAll writes every snapshot's backup content back to its target,
// best-effort, used when ApplyPatches fails partway through.
func (a *Applicator) restoreAll(applied []AppliedPatch) {
	for _, ap := range applied {
		fullPath := a.resolvePath(ap.Filename)
		if ap.BackupPath == "" {
			// The patch created this file; restoring means removing it.
			_ = os.Remove(fullPath)
			continue
		}
		data, err := os.ReadFile(ap.BackupPath)
		if err != nil {
			continue
		}
		_ = os.WriteFile(fullPath, data, 0644)
	}
}

func (a *Applicator) resolvePath(relPath string) string {
	if filepath.IsAbs(relPath) {
		return relPath
	}
	return filepath.Join(a.root, relPath)
}

// isPathSafe rejects any resolved path that escapes root.
func isPathSafe(root, fullPath string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(fullPath))
	if err != nil {
		return false
	}
	return !strings.HasPrefix(rel, "..")
}

func sessionID() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "unknown"
}

func (a *Applicator) recordPath(id string) string {
	return filepath.Join(a.stateDir, "applications", id+".json")
}

func (a *Applicator) persistRecord(record *ApplicationRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(a.recordPath(record.ID), data, 0644)
}

// loadRecord reads back a previously persisted ApplicationRecord by id.
func (a *Applicator) loadRecord(id string) (*ApplicationRecord, error) {
	data, err := os.ReadFile(a.recordPath(id))
	if err != nil {
		return nil, fmt.Errorf("apply: loading record %s: %w", id, err)
	}
	var record ApplicationRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("apply: decoding record %s: %w", id, err)
	}
	return &record, nil
}

func sanitizeBackupName(id, filename string, index int) string {
	return fmt.Sprintf("%s-%d-%s", id, index, strings.ReplaceAll(filename, string(os.PathSeparator), "_"))
}

var backupCounter atomic.Int64

func (a *Applicator) snapshot(id, filename string, content []byte) (string, error) {
	name := sanitizeBackupName(id, filename, int(backupCounter.Add(1)))
	dir := filepath.Join(a.stateDir, "backups", id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("apply: creating backup dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("apply: writing backup for %s: %w", filename, err)
	}
	return path, nil
}
