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
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// ExportJSON writes entries as a JSON array.
func ExportJSON(w io.Writer, entries []Entry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// ExportCSV writes entries as tabular records with a header row.
func ExportCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"id", "ts", "event", "actor", "resource", "action", "status", "details"}); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{
			e.ID,
			e.Ts.Format(time.RFC3339),
			string(e.Event),
			e.Actor,
			e.Resource,
			e.Action,
			string(e.Status),
			e.Details,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("audit: writing csv row: %w", err)
		}
	}
	return cw.Error()
}
