// defaults.go
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

package mapping

import (
	"regexp"
	"time"

	"github.com/localnerve/wellnessdb/internal/types"
)

// Canonical enum values.
var (
	PrimaryNeeds      = []string{"anxiety", "mood", "sleep", "medication", "energy", "connection"}
	CycleStages       = []string{"menstrual", "follicular", "ovulatory", "luteal", "perimenopause", "menopause", "postmenopause", "not_applicable"}
	OnboardingPaths   = []string{"control", "test"}
	MedicationStatus  = []string{"taking", "not_taking", "starting", "stopping", "prefer_not_to_say"}
	MedicationTaken   = []string{"yes", "no", "not_tracked"}
	InsightTypes      = []string{"medication_adherence", "confidence_support", "positive_reinforcement", "general_wellbeing"}
	InsightStatuses   = []string{"active", "dismissed"}
	PublicationKinds  = []string{"daily", "weekly"}
	YesNo             = []string{"yes", "no"}
	emailPattern      = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	tokenPattern      = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	isoWeekPattern    = regexp.MustCompile(`^\d{4}-W\d{2}$`)
	confidenceRange   = &IntRange{Min: 1, Max: 10}
	phqRange          = &IntRange{Min: 0, Max: 3}
	nonNegativeCounts = &IntRange{Min: 0, Max: 1 << 30}
)

const docTimestamp = time.RFC3339Nano

// field is one row of the declarative table below.
type field struct {
	spec FieldSpec
	rel  FieldMapping
	doc  FieldMapping
}

func scalar(spec FieldSpec, relCol, docCol string) field {
	docEnc := Scalar{}
	switch spec.Type {
	case TypeDate:
		docEnc = Scalar{Layout: types.DateLayout}
	case TypeTime:
		docEnc = Scalar{Layout: docTimestamp}
	}
	return field{spec: spec, rel: FieldMapping{Column: relCol, Encoding: Scalar{}}, doc: FieldMapping{Column: docCol, Encoding: docEnc}}
}

func enum(spec FieldSpec, relCol, docCol string) field {
	spec.Type = TypeString
	return field{
		spec: spec,
		rel:  FieldMapping{Column: relCol, Encoding: Enum{Allowed: spec.Allowed}},
		doc:  FieldMapping{Column: docCol, Encoding: Enum{Allowed: spec.Allowed}},
	}
}

// link is a reference stored as a foreign key column relationally and as a linked
// record on the record store, filtered through a lookup column.
func link(spec FieldSpec, relCol, docCol, docFilter string) field {
	spec.Type = TypeRef
	return field{
		spec: spec,
		rel:  FieldMapping{Column: relCol, Encoding: Scalar{}},
		doc:  FieldMapping{Column: docCol, FilterColumn: docFilter, Encoding: WrappedArray{}},
	}
}

// flag is a bool that may be unset. Record store checkboxes cannot tell false from
// unset, so it is a yes/no single-select there.
func flag(spec FieldSpec, relCol, docCol string) field {
	spec.Type = TypeBool
	return field{
		spec: spec,
		rel:  FieldMapping{Column: relCol, Encoding: Scalar{}},
		doc:  FieldMapping{Column: docCol, Encoding: Enum{Allowed: YesNo}},
	}
}

// list is a string list: a JSON blob relationally, a multi-select on the record store.
func list(spec FieldSpec, relCol, docCol string) field {
	spec.Type = TypeStringList
	return field{
		spec: spec,
		rel:  FieldMapping{Column: relCol, Encoding: JSONBlob{}},
		doc:  FieldMapping{Column: docCol, Encoding: Scalar{}},
	}
}

func blob(spec FieldSpec, relCol, docCol string) field {
	spec.Type = TypeObject
	return field{
		spec: spec,
		rel:  FieldMapping{Column: relCol, Encoding: JSONBlob{}},
		doc:  FieldMapping{Column: docCol, Encoding: JSONBlob{}},
	}
}

func declare(t *Table, e Entity, relTable, docTable string, fields ...field) {
	specs := make([]FieldSpec, len(fields))
	for i, f := range fields {
		specs[i] = f.spec
	}
	t.Declare(e, map[Backend]string{Relational: relTable, Document: docTable}, specs...)
	for _, f := range fields {
		t.Map(e, Relational, f.spec.Name, f.rel)
		t.Map(e, Document, f.spec.Name, f.doc)
	}
}

// Default returns the built-in mapping table. The relational column set is the
// canonical field set; the record store mirrors it column for column.
func Default() *Table {
	t := NewTable()

	declare(t, Users, "users", "Users",
		scalar(FieldSpec{Name: "email", Type: TypeString, Required: true, Lower: true, Pattern: emailPattern, Filterable: true, Unique: true}, "email", "Email"),
		scalar(FieldSpec{Name: "nickname", Type: TypeString}, "nickname", "Nickname"),
		scalar(FieldSpec{Name: "confidence_managing_symptoms", Type: TypeInt, Range: confidenceRange}, "confidence_managing_symptoms", "Confidence Managing Symptoms"),
		scalar(FieldSpec{Name: "confidence_talking_to_provider", Type: TypeInt, Range: confidenceRange}, "confidence_talking_to_provider", "Confidence Talking To Provider"),
		scalar(FieldSpec{Name: "confidence_daily_routine", Type: TypeInt, Range: confidenceRange}, "confidence_daily_routine", "Confidence Daily Routine"),
		enum(FieldSpec{Name: "primary_need", Allowed: PrimaryNeeds, Lower: true}, "primary_need", "Primary Need"),
		enum(FieldSpec{Name: "cycle_stage", Allowed: CycleStages, Lower: true}, "cycle_stage", "Cycle Stage"),
		enum(FieldSpec{Name: "onboarding_path", Allowed: OnboardingPaths, Lower: true, Default: "control", Filterable: true}, "onboarding_path", "Onboarding Path"),
		scalar(FieldSpec{Name: "baseline_completed", Type: TypeBool, Default: false}, "baseline_completed", "Baseline Completed"),
		enum(FieldSpec{Name: "medication_status", Allowed: MedicationStatus, Lower: true}, "medication_status", "Medication Status"),
		scalar(FieldSpec{Name: "created_at", Type: TypeTime, System: true}, "created_at", "Created At"),
		scalar(FieldSpec{Name: "updated_at", Type: TypeTime, System: true}, "updated_at", "Updated At"),
	)

	declare(t, DailyCheckins, "daily_checkins", "Daily Check-ins",
		link(FieldSpec{Name: "user_id", Required: true, Filterable: true, Ref: Users}, "user_id", "User", "User Record ID"),
		scalar(FieldSpec{Name: "mood", Type: TypeString, Required: true, Lower: true, Pattern: tokenPattern}, "mood", "Mood"),
		scalar(FieldSpec{Name: "confidence", Type: TypeInt, Required: true, Range: confidenceRange}, "confidence", "Confidence"),
		enum(FieldSpec{Name: "medication_taken", Allowed: MedicationTaken, Lower: true, Default: "not_tracked"}, "medication_taken", "Medication Taken"),
		scalar(FieldSpec{Name: "user_note", Type: TypeString}, "user_note", "User Note"),
		scalar(FieldSpec{Name: "date_submitted", Type: TypeDate, Required: true, Filterable: true}, "date_submitted", "Date Submitted"),
		scalar(FieldSpec{Name: "anxiety_level", Type: TypeInt, Range: confidenceRange}, "anxiety_level", "Anxiety Level"),
		list(FieldSpec{Name: "side_effects"}, "side_effects", "Side Effects"),
		list(FieldSpec{Name: "coping_strategies"}, "coping_strategies", "Coping Strategies"),
		flag(FieldSpec{Name: "appointment_scheduled"}, "appointment_scheduled", "Appointment Scheduled"),
		flag(FieldSpec{Name: "appointment_attended"}, "appointment_attended", "Appointment Attended"),
		scalar(FieldSpec{Name: "phq4_nervous", Type: TypeInt, Range: phqRange}, "phq4_nervous", "PHQ4 Nervous"),
		scalar(FieldSpec{Name: "phq4_worrying", Type: TypeInt, Range: phqRange}, "phq4_worrying", "PHQ4 Worrying"),
		scalar(FieldSpec{Name: "phq4_little_interest", Type: TypeInt, Range: phqRange}, "phq4_little_interest", "PHQ4 Little Interest"),
		scalar(FieldSpec{Name: "phq4_feeling_down", Type: TypeInt, Range: phqRange}, "phq4_feeling_down", "PHQ4 Feeling Down"),
		scalar(FieldSpec{Name: "created_at", Type: TypeTime, System: true, Filterable: true}, "created_at", "Created At"),
	)

	declare(t, DailyMetrics, "daily_metrics", "Daily Metrics",
		link(FieldSpec{Name: "user_id", Required: true, Filterable: true, Ref: Users}, "user_id", "User", "User Record ID"),
		scalar(FieldSpec{Name: "date", Type: TypeDate, Required: true, Filterable: true}, "date", "Date"),
		scalar(FieldSpec{Name: "checkin_count", Type: TypeInt, Range: nonNegativeCounts, Default: 0}, "checkin_count", "Check-in Count"),
		scalar(FieldSpec{Name: "mood_entries", Type: TypeInt, Range: nonNegativeCounts, Default: 0}, "mood_entries", "Mood Entries"),
		scalar(FieldSpec{Name: "medication_entries", Type: TypeInt, Range: nonNegativeCounts, Default: 0}, "medication_entries", "Medication Entries"),
		scalar(FieldSpec{Name: "medication_taken", Type: TypeInt, Range: nonNegativeCounts, Default: 0}, "medication_taken", "Medication Taken"),
		scalar(FieldSpec{Name: "medication_missed", Type: TypeInt, Range: nonNegativeCounts, Default: 0}, "medication_missed", "Medication Missed"),
		scalar(FieldSpec{Name: "symptom_entries", Type: TypeInt, Range: nonNegativeCounts, Default: 0}, "symptom_entries", "Symptom Entries"),
		scalar(FieldSpec{Name: "avg_confidence", Type: TypeFloat}, "avg_confidence", "Average Confidence"),
		scalar(FieldSpec{Name: "last_updated", Type: TypeTime, System: true}, "last_updated", "Last Updated"),
		scalar(FieldSpec{Name: "build_id", Type: TypeString, Required: true, Filterable: true}, "build_id", "Build ID"),
	)

	declare(t, WeeklyMetrics, "weekly_metrics", "Weekly Metrics",
		link(FieldSpec{Name: "user_id", Required: true, Filterable: true, Ref: Users}, "user_id", "User", "User Record ID"),
		scalar(FieldSpec{Name: "week_start", Type: TypeDate, Required: true, Filterable: true}, "week_start", "Week Start"),
		scalar(FieldSpec{Name: "iso_week", Type: TypeString, Required: true, Pattern: isoWeekPattern}, "iso_week", "ISO Week"),
		scalar(FieldSpec{Name: "days_with_data", Type: TypeInt, Range: &IntRange{Min: 0, Max: 7}, Default: 0}, "days_with_data", "Days With Data"),
		scalar(FieldSpec{Name: "medication_taken", Type: TypeInt, Range: nonNegativeCounts, Default: 0}, "medication_taken", "Medication Taken"),
		scalar(FieldSpec{Name: "medication_missed", Type: TypeInt, Range: nonNegativeCounts, Default: 0}, "medication_missed", "Medication Missed"),
		scalar(FieldSpec{Name: "adherence_rate", Type: TypeFloat}, "adherence_rate", "Adherence Rate"),
		scalar(FieldSpec{Name: "mood_entries", Type: TypeInt, Range: nonNegativeCounts, Default: 0}, "mood_entries", "Mood Entries"),
		scalar(FieldSpec{Name: "symptom_entries", Type: TypeInt, Range: nonNegativeCounts, Default: 0}, "symptom_entries", "Symptom Entries"),
		scalar(FieldSpec{Name: "avg_confidence", Type: TypeFloat}, "avg_confidence", "Average Confidence"),
		scalar(FieldSpec{Name: "last_updated", Type: TypeTime, System: true}, "last_updated", "Last Updated"),
		scalar(FieldSpec{Name: "build_id", Type: TypeString, Required: true, Filterable: true}, "build_id", "Build ID"),
	)

	declare(t, Insights, "insights", "Insights",
		link(FieldSpec{Name: "user_id", Required: true, Filterable: true, Ref: Users}, "user_id", "User", "User Record ID"),
		enum(FieldSpec{Name: "type", Allowed: InsightTypes, Required: true, Filterable: true}, "type", "Type"),
		scalar(FieldSpec{Name: "date", Type: TypeDate, Required: true, Filterable: true}, "date", "Date"),
		scalar(FieldSpec{Name: "title", Type: TypeString, Required: true}, "title", "Title"),
		scalar(FieldSpec{Name: "message", Type: TypeString, Required: true}, "message", "Message"),
		enum(FieldSpec{Name: "status", Allowed: InsightStatuses, Default: "active", Filterable: true}, "status", "Status"),
		blob(FieldSpec{Name: "context"}, "context", "Context"),
		scalar(FieldSpec{Name: "personalized", Type: TypeBool, Default: false}, "personalized", "Personalized"),
		scalar(FieldSpec{Name: "stale", Type: TypeBool, Default: false, Filterable: true}, "stale", "Stale"),
		scalar(FieldSpec{Name: "generated_at", Type: TypeTime}, "generated_at", "Generated At"),
	)

	declare(t, MetricPublications, "metric_publications", "Metric Publications",
		link(FieldSpec{Name: "user_id", Required: true, Filterable: true, Ref: Users}, "user_id", "User", "User Record ID"),
		enum(FieldSpec{Name: "kind", Allowed: PublicationKinds, Required: true, Filterable: true}, "kind", "Kind"),
		scalar(FieldSpec{Name: "build_id", Type: TypeString, Required: true}, "build_id", "Build ID"),
		scalar(FieldSpec{Name: "published_at", Type: TypeTime}, "published_at", "Published At"),
	)

	return t
}
