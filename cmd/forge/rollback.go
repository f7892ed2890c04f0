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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forgecd/forge-agent/internal/forgeerr"
)

var (
	rollbackRoot          string
	rollbackApplicationID string

	rollbackCmd = &cobra.Command{
		Use:   "rollback",
		Short: "Reverse a prior application by id",
		RunE:  runRollback,
	}
)

func init() {
	rollbackCmd.Flags().StringVar(&rollbackRoot, "root", "", "working-tree root the application was written into (required)")
	rollbackCmd.Flags().StringVar(&rollbackApplicationID, "application-id", "", "the application id returned by apply (required)")
	_ = rollbackCmd.MarkFlagRequired("root")
	_ = rollbackCmd.MarkFlagRequired("application-id")
}

func runRollback(cmd *cobra.Command, args []string) error {
	cfg := resolveConfig()
	driver, journal, err := newDriver(cfg)
	if err != nil {
		return err
	}
	defer journal.Close()

	result, err := driver.Rollback(cmd.Context(), rollbackRoot, rollbackApplicationID)
	if err != nil {
		return forgeerr.Wrap(forgeerr.ErrApplyFailed, err.Error(), "inspect the application's state directory before retrying")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	if len(result.Errors) > 0 {
		return forgeerr.Wrap(forgeerr.ErrApplyFailed, fmt.Sprintf("%d error(s) during rollback", len(result.Errors)), "some files may need manual restoration")
	}
	return nil
}
