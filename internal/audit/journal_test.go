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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := OpenInMemory(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestAppendWritesFlatFileAndIndex(t *testing.T) {
	j := newTestJournal(t)
	entry, err := j.Append(context.Background(), Entry{
		Event:    EventFixApplied,
		Actor:    "forge",
		Resource: "main.go",
		Action:   "apply",
		Status:   StatusSuccess,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.Ts.IsZero())

	data, err := os.ReadFile(j.logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "fix_applied")
	assert.Contains(t, string(data), "main.go")

	recent := j.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, entry.ID, recent[0].ID)
}

func TestByResourceReturnsOnlyMatchingEntries(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	_, err := j.Append(ctx, Entry{Event: EventFixApplied, Resource: "a.go", Status: StatusSuccess})
	require.NoError(t, err)
	_, err = j.Append(ctx, Entry{Event: EventFixApplied, Resource: "b.go", Status: StatusSuccess})
	require.NoError(t, err)

	got, err := j.ByResource("a.go", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a.go", got[0].Resource)
}

func TestByStatusReturnsOnlyMatchingEntries(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	_, err := j.Append(ctx, Entry{Event: EventAccessDenied, Resource: "x", Status: StatusFailure})
	require.NoError(t, err)
	_, err = j.Append(ctx, Entry{Event: EventFixApplied, Resource: "y", Status: StatusSuccess})
	require.NoError(t, err)

	got, err := j.ByStatus(StatusFailure, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].Resource)
}

func TestByDateRangeRespectsBounds(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	old := Entry{Event: EventConfigChange, Resource: "cfg", Status: StatusSuccess, Ts: time.Now().Add(-48 * time.Hour)}
	recent := Entry{Event: EventConfigChange, Resource: "cfg", Status: StatusSuccess, Ts: time.Now()}
	_, err := j.Append(ctx, old)
	require.NoError(t, err)
	recent, err = j.Append(ctx, recent)
	require.NoError(t, err)

	got, err := j.ByDateRange(time.Now().Add(-24*time.Hour), time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, recent.ID, got[0].ID)
}

func TestPurgeRemovesStaleEntriesFromIndexOnly(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	old := Entry{Event: EventSecurityAlert, Resource: "x", Status: StatusWarning, Ts: time.Now().Add(-30 * 24 * time.Hour)}
	_, err := j.Append(ctx, old)
	require.NoError(t, err)

	n, err := j.Purge(time.Now().Add(-7 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := j.ByResource("x", 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	data, err := os.ReadFile(j.logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "security_alert")
}

func TestExportCSVWritesHeaderAndRows(t *testing.T) {
	entries := []Entry{
		{ID: "1", Ts: time.Now(), Event: EventFixApplied, Resource: "a.go", Status: StatusSuccess},
	}
	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, entries))
	assert.Contains(t, buf.String(), "id,ts,event")
	assert.Contains(t, buf.String(), "a.go")
}

func TestOpenIsSingletonPerProcess(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	j1, err := Open(dir)
	require.NoError(t, err)
	defer j1.Close()

	j2, err := Open(dir)
	require.NoError(t, err)
	assert.Same(t, j1, j2)
}
