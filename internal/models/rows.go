// rows.go
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

package models

import (
	"time"

	"gorm.io/datatypes"
)

// Row models describe the relational schema for AutoMigrate only. Reads and writes go
// through column maps in the relational adapter, so the column names here must match
// the relational mapping in internal/mapping.

// UserRow is the users table.
type UserRow struct {
	ID                          string  `gorm:"primaryKey;size:36"`
	Email                       string  `gorm:"size:320;not null;uniqueIndex:ux_users_email"`
	Nickname                    *string `gorm:"size:255"`
	ConfidenceManagingSymptoms  *int
	ConfidenceTalkingToProvider *int
	ConfidenceDailyRoutine      *int
	PrimaryNeed                 *string `gorm:"size:32"`
	CycleStage                  *string `gorm:"size:32"`
	OnboardingPath              string  `gorm:"size:16;not null;default:control;index"`
	BaselineCompleted           bool    `gorm:"not null;default:false"`
	MedicationStatus            *string `gorm:"size:32"`
	CreatedAt                   time.Time
	UpdatedAt                   time.Time
}

// DailyCheckinRow is the daily_checkins table. Rows are never updated.
type DailyCheckinRow struct {
	ID                   string         `gorm:"primaryKey;size:36"`
	UserID               string         `gorm:"size:36;not null;index:ix_daily_checkins_user_date,priority:1"`
	Mood                 string         `gorm:"size:64;not null"`
	Confidence           int            `gorm:"not null"`
	MedicationTaken      string         `gorm:"size:16;not null;default:not_tracked"`
	UserNote             *string        `gorm:"type:text"`
	DateSubmitted        datatypes.Date `gorm:"not null;index:ix_daily_checkins_user_date,priority:2"`
	AnxietyLevel         *int
	SideEffects          JSON
	CopingStrategies     JSON
	AppointmentScheduled *bool
	AppointmentAttended  *bool
	Phq4Nervous          *int      `gorm:"column:phq4_nervous"`
	Phq4Worrying         *int      `gorm:"column:phq4_worrying"`
	Phq4LittleInterest   *int      `gorm:"column:phq4_little_interest"`
	Phq4FeelingDown      *int      `gorm:"column:phq4_feeling_down"`
	CreatedAt            time.Time `gorm:"index"`
}

// DailyMetricRow is the daily_metrics table. Several builds may coexist briefly; only
// the published build is visible to readers.
type DailyMetricRow struct {
	ID                string         `gorm:"primaryKey;size:36"`
	UserID            string         `gorm:"size:36;not null;index:ix_daily_metrics_build,priority:1"`
	BuildID           string         `gorm:"size:36;not null;index:ix_daily_metrics_build,priority:2"`
	Date              datatypes.Date `gorm:"not null;index:ix_daily_metrics_build,priority:3"`
	CheckinCount      int            `gorm:"not null;default:0"`
	MoodEntries       int            `gorm:"not null;default:0"`
	MedicationEntries int            `gorm:"not null;default:0"`
	MedicationTaken   int            `gorm:"not null;default:0"`
	MedicationMissed  int            `gorm:"not null;default:0"`
	SymptomEntries    int            `gorm:"not null;default:0"`
	AvgConfidence     *float64
	LastUpdated       *time.Time
}

// WeeklyMetricRow is the weekly_metrics table.
type WeeklyMetricRow struct {
	ID               string         `gorm:"primaryKey;size:36"`
	UserID           string         `gorm:"size:36;not null;index:ix_weekly_metrics_build,priority:1"`
	BuildID          string         `gorm:"size:36;not null;index:ix_weekly_metrics_build,priority:2"`
	WeekStart        datatypes.Date `gorm:"not null;index:ix_weekly_metrics_build,priority:3"`
	IsoWeek          string         `gorm:"column:iso_week;size:8;not null"`
	DaysWithData     int            `gorm:"not null;default:0"`
	MedicationTaken  int            `gorm:"not null;default:0"`
	MedicationMissed int            `gorm:"not null;default:0"`
	AdherenceRate    *float64
	MoodEntries      int `gorm:"not null;default:0"`
	SymptomEntries   int `gorm:"not null;default:0"`
	AvgConfidence    *float64
	LastUpdated      *time.Time
}

// InsightRow is the insights table. One row per (user, type, date).
type InsightRow struct {
	ID           string         `gorm:"primaryKey;size:36"`
	UserID       string         `gorm:"size:36;not null;uniqueIndex:ux_insights_user_type_date,priority:1"`
	Type         string         `gorm:"size:32;not null;uniqueIndex:ux_insights_user_type_date,priority:2"`
	Date         datatypes.Date `gorm:"not null;uniqueIndex:ux_insights_user_type_date,priority:3"`
	Title        string         `gorm:"size:255;not null"`
	Message      string         `gorm:"type:text;not null"`
	Status       string         `gorm:"size:16;not null;default:active"`
	Context      JSON
	Personalized bool `gorm:"not null;default:false"`
	Stale        bool `gorm:"not null;default:false"`
	GeneratedAt  *time.Time
}

// MetricPublicationRow is the metric_publications table: the pointer to the visible
// build per (user, kind).
type MetricPublicationRow struct {
	ID          string `gorm:"primaryKey;size:36"`
	UserID      string `gorm:"size:36;not null;uniqueIndex:ux_metric_publications_user_kind,priority:1"`
	Kind        string `gorm:"size:16;not null;uniqueIndex:ux_metric_publications_user_kind,priority:2"`
	BuildID     string `gorm:"size:36;not null"`
	PublishedAt *time.Time
}

// TableName overrides the table name for UserRow
func (UserRow) TableName() string { return "users" }

// TableName overrides the table name for DailyCheckinRow
func (DailyCheckinRow) TableName() string { return "daily_checkins" }

// TableName overrides the table name for DailyMetricRow
func (DailyMetricRow) TableName() string { return "daily_metrics" }

// TableName overrides the table name for WeeklyMetricRow
func (WeeklyMetricRow) TableName() string { return "weekly_metrics" }

// TableName overrides the table name for InsightRow
func (InsightRow) TableName() string { return "insights" }

// TableName overrides the table name for MetricPublicationRow
func (MetricPublicationRow) TableName() string { return "metric_publications" }

// Rows lists every row model in creation order.
func Rows() []any {
	return []any{
		&UserRow{},
		&DailyCheckinRow{},
		&DailyMetricRow{},
		&WeeklyMetricRow{},
		&InsightRow{},
		&MetricPublicationRow{},
	}
}
