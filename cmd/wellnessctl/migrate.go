// migrate.go
//
// Data access and schema compatibility layer for the wellness check-in service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of wellnessdb.
// wellnessdb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// wellnessdb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with wellnessdb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage PostgreSQL schema extras",
}

var migrateApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply the bundled functions, triggers and views",
	Long: `Apply creates the PostgreSQL functions, triggers and views shipped with the
server. Every object is idempotent, so apply can be rerun at any time. A failed
object does not stop the others; the command exits non-zero if any failed.

On backends without schema extras nothing is applied.

Example:
  wellnessctl migrate apply
  wellnessctl migrate apply --json`,
	RunE: runMigrateApply,
}

var viewsCmd = &cobra.Command{
	Use:   "views",
	Short: "Manage materialized views",
}

var viewsRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the materialized views",
	RunE:  runViewsRefresh,
}

func init() {
	migrateCmd.AddCommand(migrateApplyCmd)
	viewsCmd.AddCommand(viewsRefreshCmd)
}

func runMigrateApply(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	report := wired.ApplySchemaExtras(ctx)
	err := printResult(report, func() {
		for _, name := range report.Applied {
			fmt.Printf("applied  %s\n", name)
		}
		for _, f := range report.Failed {
			fmt.Printf("FAILED   %s: %s\n", f.Name, f.Error)
		}
		if len(report.Applied) == 0 && len(report.Failed) == 0 {
			fmt.Println("nothing to apply")
		}
	})
	if err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d schema object(s) failed", len(report.Failed))
	}
	return nil
}

func runViewsRefresh(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	report := wired.RefreshViews(ctx)
	err := printResult(report, func() {
		for _, name := range report.Refreshed {
			fmt.Printf("refreshed %s\n", name)
		}
		for _, f := range report.Failed {
			fmt.Printf("FAILED    %s: %s\n", f.Name, f.Error)
		}
		fmt.Printf("%dms\n", report.DurationMs)
	})
	if err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d view(s) failed to refresh", len(report.Failed))
	}
	return nil
}
