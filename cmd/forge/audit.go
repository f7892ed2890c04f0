// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgecd/forge-agent/internal/audit"
	"github.com/forgecd/forge-agent/internal/forgeerr"
)

var (
	auditLogDir   string
	auditResource string
	auditStatus   string
	auditSince    string
	auditFormat   string

	auditCmd = &cobra.Command{
		Use:   "audit",
		Short: "Query the audit journal",
		RunE:  runAudit,
	}
)

func init() {
	auditCmd.Flags().StringVar(&auditLogDir, "log-dir", "", "directory the journal was opened from (defaults to --log-dir / config)")
	auditCmd.Flags().StringVar(&auditResource, "resource", "", "filter by resource")
	auditCmd.Flags().StringVar(&auditStatus, "status", "", "filter by status: success, failure, or warning")
	auditCmd.Flags().StringVar(&auditSince, "since", "", "filter to entries at or after this RFC3339 timestamp")
	auditCmd.Flags().StringVar(&auditFormat, "format", "json", "output format: json or csv")
}

func runAudit(cmd *cobra.Command, args []string) error {
	dir := auditLogDir
	if dir == "" {
		dir = resolveConfig().LogDir
	}

	journal, err := audit.Open(dir)
	if err != nil {
		return forgeerr.Wrap(forgeerr.ErrInputInvalid, err.Error(), "check --log-dir points to a journal directory")
	}
	defer journal.Close()

	query := audit.Query{Resource: auditResource, Status: audit.Status(auditStatus)}
	if auditSince != "" {
		since, err := time.Parse(time.RFC3339, auditSince)
		if err != nil {
			return forgeerr.Wrap(forgeerr.ErrInputInvalid, err.Error(), "pass --since as an RFC3339 timestamp")
		}
		query.Since = since
	}

	entries, err := journal.Query(query)
	if err != nil {
		return forgeerr.Wrap(forgeerr.ErrInputInvalid, err.Error(), "")
	}

	switch auditFormat {
	case "csv":
		return audit.ExportCSV(os.Stdout, entries)
	default:
		return audit.ExportJSON(os.Stdout, entries)
	}
}
