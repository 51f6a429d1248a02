// insights.go
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
	"time"

	"github.com/localnerve/wellnessdb/internal/types"
	"github.com/spf13/cobra"
)

var (
	insightUser string
	insightDate string
)

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Manage daily insights",
}

var insightsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the insight for one user and day",
	Long: `Generate evaluates the insight rules for a user and day and stores the result,
replacing any insight generated earlier for that day.

Example:
  wellnessctl insights generate --user 3f0c... --date 2026-03-04`,
	RunE: runInsightsGenerate,
}

func init() {
	insightsGenerateCmd.Flags().StringVar(&insightUser, "user", "", "user ID (required)")
	insightsGenerateCmd.Flags().StringVar(&insightDate, "date", "", "day (YYYY-MM-DD, default today)")
	_ = insightsGenerateCmd.MarkFlagRequired("user")

	insightsCmd.AddCommand(insightsGenerateCmd)
}

func runInsightsGenerate(cmd *cobra.Command, args []string) error {
	date := time.Now().UTC()
	if insightDate != "" {
		d, err := types.ParseDate(insightDate)
		if err != nil {
			return fmt.Errorf("--date: %w", err)
		}
		date = d
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	res, err := wired.Insights.Generate(ctx, insightUser, date)
	if err != nil {
		return err
	}
	return printResult(res, func() {
		verb := "updated"
		if res.Created {
			verb = "created"
		}
		fmt.Printf("%s %s insight for %s on %s\n", verb, res.Insight.Type, insightUser, res.Insight.Date.Format(types.DateLayout))
		fmt.Printf("  %s\n  %s\n", res.Insight.Title, res.Insight.Message)
	})
}
