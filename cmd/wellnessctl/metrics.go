// metrics.go
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
	"context"
	"fmt"
	"time"

	"github.com/localnerve/wellnessdb/internal/aggregation"
	"github.com/localnerve/wellnessdb/internal/types"
	"github.com/spf13/cobra"
)

var (
	metricsUsers []string
	metricsFrom  string
	metricsTo    string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Rebuild derived metrics",
	Long: `Rebuild the daily or weekly metric rows from check-ins.

Rows are published per user only after the whole rebuild for that user has been
written, so readers never see a partial build. A user whose rebuild fails keeps the
previous rows and does not stop the others.

Example:
  wellnessctl metrics daily
  wellnessctl metrics daily --user 3f0c... --from 2026-03-01 --to 2026-03-31
  wellnessctl metrics weekly --json`,
}

var metricsDailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Rebuild daily metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRefresh(cmd, wired.RefreshDaily)
	},
}

var metricsWeeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Rebuild weekly metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRefresh(cmd, wired.RefreshWeekly)
	},
}

func init() {
	pf := metricsCmd.PersistentFlags()
	pf.StringSliceVar(&metricsUsers, "user", nil, "user ID to rebuild (repeatable; default all users)")
	pf.StringVar(&metricsFrom, "from", "", "first day to rebuild (YYYY-MM-DD)")
	pf.StringVar(&metricsTo, "to", "", "last day to rebuild (YYYY-MM-DD)")

	metricsCmd.AddCommand(metricsDailyCmd)
	metricsCmd.AddCommand(metricsWeeklyCmd)
}

// scopeFromFlags builds the refresh scope from --user, --from and --to.
func scopeFromFlags(users []string, from, to string) (aggregation.Scope, error) {
	scope := aggregation.Scope{UserIDs: users}
	var err error
	if from != "" {
		if scope.From, err = types.ParseDate(from); err != nil {
			return scope, fmt.Errorf("--from: %w", err)
		}
	}
	if to != "" {
		if scope.To, err = types.ParseDate(to); err != nil {
			return scope, fmt.Errorf("--to: %w", err)
		}
	}
	if !scope.From.IsZero() && !scope.To.IsZero() && scope.To.Before(scope.From) {
		return scope, fmt.Errorf("--to must not be before --from")
	}
	return scope, nil
}

func runRefresh(cmd *cobra.Command, run func(context.Context, aggregation.Scope) (aggregation.Summary, error)) error {
	scope, err := scopeFromFlags(metricsUsers, metricsFrom, metricsTo)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	summary, err := run(ctx, scope)
	if err != nil {
		return err
	}
	err = printResult(summary, func() {
		fmt.Printf("%s: %d user(s), %d row(s) published in %s\n",
			summary.Kind, len(summary.Refreshed), summary.Rows,
			(time.Duration(summary.DurationMs) * time.Millisecond).String())
		for _, f := range summary.Failed {
			fmt.Printf("FAILED %s: %s\n", f.UserID, f.Error)
		}
	})
	if err != nil {
		return err
	}
	if len(summary.Failed) > 0 {
		return fmt.Errorf("%d user(s) failed to refresh", len(summary.Failed))
	}
	return nil
}
