// domain.go
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

	"github.com/localnerve/wellnessdb/internal/adapter"
	"github.com/localnerve/wellnessdb/internal/mapping"
)

// User is a profile.
type User struct {
	ID                          string    `json:"id"`
	Email                       string    `json:"email"`
	Nickname                    *string   `json:"nickname,omitempty"`
	ConfidenceManagingSymptoms  *int      `json:"confidence_managing_symptoms,omitempty"`
	ConfidenceTalkingToProvider *int      `json:"confidence_talking_to_provider,omitempty"`
	ConfidenceDailyRoutine      *int      `json:"confidence_daily_routine,omitempty"`
	PrimaryNeed                 *string   `json:"primary_need,omitempty"`
	CycleStage                  *string   `json:"cycle_stage,omitempty"`
	OnboardingPath              string    `json:"onboarding_path"`
	BaselineCompleted           bool      `json:"baseline_completed"`
	MedicationStatus            *string   `json:"medication_status,omitempty"`
	CreatedAt                   time.Time `json:"created_at"`
	UpdatedAt                   time.Time `json:"updated_at"`
}

// DailyCheckin is one submitted check-in. Check-ins are immutable.
type DailyCheckin struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"user_id"`
	Mood                 string    `json:"mood"`
	Confidence           int       `json:"confidence"`
	MedicationTaken      string    `json:"medication_taken"`
	UserNote             *string   `json:"user_note,omitempty"`
	DateSubmitted        Date      `json:"date_submitted"`
	AnxietyLevel         *int      `json:"anxiety_level,omitempty"`
	SideEffects          []string  `json:"side_effects"`
	CopingStrategies     []string  `json:"coping_strategies"`
	AppointmentScheduled *bool     `json:"appointment_scheduled,omitempty"`
	AppointmentAttended  *bool     `json:"appointment_attended,omitempty"`
	PHQ4Nervous          *int      `json:"phq4_nervous,omitempty"`
	PHQ4Worrying         *int      `json:"phq4_worrying,omitempty"`
	PHQ4LittleInterest   *int      `json:"phq4_little_interest,omitempty"`
	PHQ4FeelingDown      *int      `json:"phq4_feeling_down,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

// HasSymptoms reports whether the check-in records any symptom data.
func (c DailyCheckin) HasSymptoms() bool {
	return c.AnxietyLevel != nil || len(c.SideEffects) > 0 ||
		c.PHQ4Nervous != nil || c.PHQ4Worrying != nil || c.PHQ4LittleInterest != nil || c.PHQ4FeelingDown != nil
}

// DailyMetric is the derived per-day aggregate of one user.
type DailyMetric struct {
	ID                string    `json:"id,omitempty"`
	UserID            string    `json:"user_id"`
	Date              Date      `json:"date"`
	CheckinCount      int       `json:"checkin_count"`
	MoodEntries       int       `json:"mood_entries"`
	MedicationEntries int       `json:"medication_entries"`
	MedicationTaken   int       `json:"medication_taken"`
	MedicationMissed  int       `json:"medication_missed"`
	SymptomEntries    int       `json:"symptom_entries"`
	AvgConfidence     *float64  `json:"avg_confidence,omitempty"`
	LastUpdated       time.Time `json:"last_updated"`
	BuildID           string    `json:"-"`
}

// WeeklyMetric is the derived per-ISO-week aggregate of one user.
type WeeklyMetric struct {
	ID               string    `json:"id,omitempty"`
	UserID           string    `json:"user_id"`
	WeekStart        Date      `json:"week_start"`
	ISOWeek          string    `json:"iso_week"`
	DaysWithData     int       `json:"days_with_data"`
	MedicationTaken  int       `json:"medication_taken"`
	MedicationMissed int       `json:"medication_missed"`
	AdherenceRate    *float64  `json:"adherence_rate,omitempty"`
	MoodEntries      int       `json:"mood_entries"`
	SymptomEntries   int       `json:"symptom_entries"`
	AvgConfidence    *float64  `json:"avg_confidence,omitempty"`
	LastUpdated      time.Time `json:"last_updated"`
	BuildID          string    `json:"-"`
}

// Insight is a generated message for one user and day.
type Insight struct {
	ID           string         `json:"id,omitempty"`
	UserID       string         `json:"user_id"`
	Type         string         `json:"type"`
	Date         Date           `json:"date"`
	Title        string         `json:"title"`
	Message      string         `json:"message"`
	Status       string         `json:"status"`
	Context      map[string]any `json:"context,omitempty"`
	Personalized bool           `json:"personalized"`
	Stale        bool           `json:"stale"`
	GeneratedAt  *time.Time     `json:"generated_at,omitempty"`
}

// MetricPublication points at the published build of a user's derived metrics.
type MetricPublication struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Kind        string     `json:"kind"`
	BuildID     string     `json:"build_id"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Date is a calendar day that marshals as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate wraps t, truncated to its UTC day.
func NewDate(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// MarshalJSON implements the json.Marshaler interface.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

// Conversions from canonical records.

// UserFromRecord converts a users record.
func UserFromRecord(r adapter.Record) User {
	return User{
		ID:                          r.ID,
		Email:                       str(r, "email"),
		Nickname:                    strPtr(r, "nickname"),
		ConfidenceManagingSymptoms:  intPtr(r, "confidence_managing_symptoms"),
		ConfidenceTalkingToProvider: intPtr(r, "confidence_talking_to_provider"),
		ConfidenceDailyRoutine:      intPtr(r, "confidence_daily_routine"),
		PrimaryNeed:                 strPtr(r, "primary_need"),
		CycleStage:                  strPtr(r, "cycle_stage"),
		OnboardingPath:              str(r, "onboarding_path"),
		BaselineCompleted:           boolean(r, "baseline_completed"),
		MedicationStatus:            strPtr(r, "medication_status"),
		CreatedAt:                   timestamp(r, "created_at"),
		UpdatedAt:                   timestamp(r, "updated_at"),
	}
}

// CheckinFromRecord converts a daily_checkins record.
func CheckinFromRecord(r adapter.Record) DailyCheckin {
	return DailyCheckin{
		ID:                   r.ID,
		UserID:               str(r, "user_id"),
		Mood:                 str(r, "mood"),
		Confidence:           integer(r, "confidence"),
		MedicationTaken:      str(r, "medication_taken"),
		UserNote:             strPtr(r, "user_note"),
		DateSubmitted:        NewDate(timestamp(r, "date_submitted")),
		AnxietyLevel:         intPtr(r, "anxiety_level"),
		SideEffects:          list(r, "side_effects"),
		CopingStrategies:     list(r, "coping_strategies"),
		AppointmentScheduled: boolPtr(r, "appointment_scheduled"),
		AppointmentAttended:  boolPtr(r, "appointment_attended"),
		PHQ4Nervous:          intPtr(r, "phq4_nervous"),
		PHQ4Worrying:         intPtr(r, "phq4_worrying"),
		PHQ4LittleInterest:   intPtr(r, "phq4_little_interest"),
		PHQ4FeelingDown:      intPtr(r, "phq4_feeling_down"),
		CreatedAt:            timestamp(r, "created_at"),
	}
}

// DailyMetricFromRecord converts a daily_metrics record.
func DailyMetricFromRecord(r adapter.Record) DailyMetric {
	return DailyMetric{
		ID:                r.ID,
		UserID:            str(r, "user_id"),
		Date:              NewDate(timestamp(r, "date")),
		CheckinCount:      integer(r, "checkin_count"),
		MoodEntries:       integer(r, "mood_entries"),
		MedicationEntries: integer(r, "medication_entries"),
		MedicationTaken:   integer(r, "medication_taken"),
		MedicationMissed:  integer(r, "medication_missed"),
		SymptomEntries:    integer(r, "symptom_entries"),
		AvgConfidence:     floatPtr(r, "avg_confidence"),
		LastUpdated:       timestamp(r, "last_updated"),
		BuildID:           str(r, "build_id"),
	}
}

// Fields converts the metric to canonical fields for a write.
func (m DailyMetric) Fields() mapping.Fields {
	f := mapping.Fields{
		"user_id":            m.UserID,
		"date":               m.Date.Time,
		"checkin_count":      m.CheckinCount,
		"mood_entries":       m.MoodEntries,
		"medication_entries": m.MedicationEntries,
		"medication_taken":   m.MedicationTaken,
		"medication_missed":  m.MedicationMissed,
		"symptom_entries":    m.SymptomEntries,
		"build_id":           m.BuildID,
	}
	if m.AvgConfidence != nil {
		f["avg_confidence"] = *m.AvgConfidence
	}
	return f
}

// WeeklyMetricFromRecord converts a weekly_metrics record.
func WeeklyMetricFromRecord(r adapter.Record) WeeklyMetric {
	return WeeklyMetric{
		ID:               r.ID,
		UserID:           str(r, "user_id"),
		WeekStart:        NewDate(timestamp(r, "week_start")),
		ISOWeek:          str(r, "iso_week"),
		DaysWithData:     integer(r, "days_with_data"),
		MedicationTaken:  integer(r, "medication_taken"),
		MedicationMissed: integer(r, "medication_missed"),
		AdherenceRate:    floatPtr(r, "adherence_rate"),
		MoodEntries:      integer(r, "mood_entries"),
		SymptomEntries:   integer(r, "symptom_entries"),
		AvgConfidence:    floatPtr(r, "avg_confidence"),
		LastUpdated:      timestamp(r, "last_updated"),
		BuildID:          str(r, "build_id"),
	}
}

// Fields converts the metric to canonical fields for a write.
func (m WeeklyMetric) Fields() mapping.Fields {
	f := mapping.Fields{
		"user_id":           m.UserID,
		"week_start":        m.WeekStart.Time,
		"iso_week":          m.ISOWeek,
		"days_with_data":    m.DaysWithData,
		"medication_taken":  m.MedicationTaken,
		"medication_missed": m.MedicationMissed,
		"mood_entries":      m.MoodEntries,
		"symptom_entries":   m.SymptomEntries,
		"build_id":          m.BuildID,
	}
	if m.AdherenceRate != nil {
		f["adherence_rate"] = *m.AdherenceRate
	}
	if m.AvgConfidence != nil {
		f["avg_confidence"] = *m.AvgConfidence
	}
	return f
}

// InsightFromRecord converts an insights record.
func InsightFromRecord(r adapter.Record) Insight {
	in := Insight{
		ID:           r.ID,
		UserID:       str(r, "user_id"),
		Type:         str(r, "type"),
		Date:         NewDate(timestamp(r, "date")),
		Title:        str(r, "title"),
		Message:      str(r, "message"),
		Status:       str(r, "status"),
		Personalized: boolean(r, "personalized"),
		Stale:        boolean(r, "stale"),
	}
	if ctx, ok := r.Get("context").(map[string]any); ok {
		in.Context = ctx
	}
	if t, ok := r.Get("generated_at").(time.Time); ok {
		in.GeneratedAt = &t
	}
	return in
}

// Fields converts the insight to canonical fields for a write.
func (in Insight) Fields() mapping.Fields {
	f := mapping.Fields{
		"user_id":      in.UserID,
		"type":         in.Type,
		"date":         in.Date.Time,
		"title":        in.Title,
		"message":      in.Message,
		"personalized": in.Personalized,
		"stale":        in.Stale,
	}
	if in.Status != "" {
		f["status"] = in.Status
	}
	if in.Context != nil {
		f["context"] = in.Context
	}
	if in.GeneratedAt != nil {
		f["generated_at"] = *in.GeneratedAt
	}
	return f
}

// PublicationFromRecord converts a metric_publications record.
func PublicationFromRecord(r adapter.Record) MetricPublication {
	p := MetricPublication{
		ID:      r.ID,
		UserID:  str(r, "user_id"),
		Kind:    str(r, "kind"),
		BuildID: str(r, "build_id"),
	}
	if t, ok := r.Get("published_at").(time.Time); ok {
		p.PublishedAt = &t
	}
	return p
}

func str(r adapter.Record, field string) string {
	s, _ := r.Get(field).(string)
	return s
}

func strPtr(r adapter.Record, field string) *string {
	if s, ok := r.Get(field).(string); ok {
		return &s
	}
	return nil
}

func integer(r adapter.Record, field string) int {
	n, _ := r.Get(field).(int)
	return n
}

func intPtr(r adapter.Record, field string) *int {
	if n, ok := r.Get(field).(int); ok {
		return &n
	}
	return nil
}

func floatPtr(r adapter.Record, field string) *float64 {
	if f, ok := r.Get(field).(float64); ok {
		return &f
	}
	return nil
}

func boolean(r adapter.Record, field string) bool {
	b, _ := r.Get(field).(bool)
	return b
}

func boolPtr(r adapter.Record, field string) *bool {
	if b, ok := r.Get(field).(bool); ok {
		return &b
	}
	return nil
}

func timestamp(r adapter.Record, field string) time.Time {
	t, _ := r.Get(field).(time.Time)
	return t
}

func list(r adapter.Record, field string) []string {
	if l, ok := r.Get(field).([]string); ok {
		return l
	}
	return []string{}
}
