// generator.go
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

// Package insights generates and caches one personalized insight per user and day.
//
// An insight for (user, date) is in one of three states: no_insight, generated or
// stale. Ingesting a check-in marks that date's insight stale; the next read
// regenerates it. Regeneration overwrites, so a (user, date) never holds more than
// one generated insight.
package insights

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/localnerve/wellnessdb/internal/adapter"
	"github.com/localnerve/wellnessdb/internal/aggregation"
	"github.com/localnerve/wellnessdb/internal/mapping"
	"github.com/localnerve/wellnessdb/internal/metrics"
	"github.com/localnerve/wellnessdb/internal/models"
	"github.com/localnerve/wellnessdb/internal/types"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// State is the lifecycle state of the insight of one (user, date).
type State string

const (
	NoInsight State = "no_insight"
	Generated State = "generated"
	Stale     State = "stale"
)

// StateOf returns the state of a stored insight, or NoInsight for nil.
func StateOf(in *models.Insight) State {
	switch {
	case in == nil:
		return NoInsight
	case in.Stale:
		return Stale
	}
	return Generated
}

// Insight types.
const (
	TypeMedicationAdherence   = "medication_adherence"
	TypeConfidenceSupport     = "confidence_support"
	TypePositiveReinforcement = "positive_reinforcement"
	TypeGeneral               = "general_wellbeing"
)

const (
	adherenceThreshold  = 70.0
	confidenceThreshold = 5.0
)

// Options configure a Generator.
type Options struct {
	// LookbackDays is the check-in window the rules read, ending on the insight date.
	LookbackDays int
}

// Generator evaluates the insight rules and persists the result.
type Generator struct {
	a        adapter.Adapter
	reader   *aggregation.Reader
	lookback int
	now      func() time.Time
	title    cases.Caser
	tracer   trace.Tracer
}

// New returns a generator writing through a and reading published metrics through
// reader.
func New(a adapter.Adapter, reader *aggregation.Reader, opts Options) *Generator {
	if opts.LookbackDays < 1 {
		opts.LookbackDays = 7
	}
	return &Generator{
		a:        a,
		reader:   reader,
		lookback: opts.LookbackDays,
		now:      func() time.Time { return time.Now().UTC() },
		title:    cases.Title(language.English),
		tracer:   otel.Tracer("insights/Generator"),
	}
}

// Result is a generated insight and whether a new row was created for it.
type Result struct {
	Insight models.Insight `json:"insight"`
	Created bool           `json:"created"`
}

// Generate evaluates the rules for userID on date and writes exactly one insight for
// that (user, date), replacing whatever the generator wrote before.
func (g *Generator) Generate(ctx context.Context, userID string, date time.Time) (Result, error) {
	day := models.NewDate(date)

	ctx, span := g.tracer.Start(ctx, "Generate",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("insight.date", day.Format(types.DateLayout)),
		),
	)
	defer span.End()

	in, err := g.evaluate(ctx, userID, day)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	res, err := g.save(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	span.SetAttributes(attribute.String("insight.type", res.Insight.Type))
	metrics.InsightsGenerated.WithLabelValues(res.Insight.Type, strconv.FormatBool(res.Insight.Personalized)).Inc()
	log.Debug().
		Str("user_id", userID).
		Str("date", day.Format(types.DateLayout)).
		Str("type", res.Insight.Type).
		Bool("created", res.Created).
		Msg("insight generated")
	return res, nil
}

// window summarizes the check-ins the rules read.
type window struct {
	Days          int
	Taken, Missed int
	Adherence     *float64
	AvgConfidence *float64
}

func (g *Generator) evaluate(ctx context.Context, userID string, day models.Date) (models.Insight, error) {
	profile, err := g.profile(ctx, userID)
	if err != nil {
		return models.Insight{}, err
	}

	daily, err := g.reader.Daily(ctx, userID, day.Time, day.Time)
	if err != nil {
		return models.Insight{}, err
	}

	w, err := g.window(ctx, userID, day)
	if err != nil {
		return models.Insight{}, err
	}

	now := g.now()
	in := models.Insight{
		UserID:      userID,
		Date:        day,
		Status:      "active",
		GeneratedAt: &now,
		Context: map[string]any{
			"window_days":    g.lookback,
			"checkin_days":   w.Days,
			"medication":     map[string]any{"taken": w.Taken, "missed": w.Missed},
			"adherence_rate": w.Adherence,
			"avg_confidence": w.AvgConfidence,
		},
	}
	if len(daily) > 0 {
		in.Context["daily_checkin_count"] = daily[0].CheckinCount
	}

	if profile == nil || !complete(*profile) {
		in.Type = TypeGeneral
		in.Title, in.Message = generic()
		in.Context["rule"] = "incomplete_profile"
		return in, nil
	}

	need := g.title.String(strings.ReplaceAll(*profile.PrimaryNeed, "_", " "))
	in.Personalized = true
	in.Context["primary_need"] = *profile.PrimaryNeed
	in.Context["cycle_stage"] = *profile.CycleStage

	switch {
	case w.Adherence != nil && *w.Adherence < adherenceThreshold:
		in.Type = TypeMedicationAdherence
		in.Title = fmt.Sprintf("%s: Keeping Your Medication Routine", need)
		in.Message = fmt.Sprintf(
			"You took your medication on %d of the last %d tracked days (%.0f%%). "+
				"Pairing it with something you already do every day, like breakfast, can make it easier to remember.",
			w.Taken, w.Taken+w.Missed, *w.Adherence)
		in.Context["rule"] = "adherence_below_threshold"

	case w.AvgConfidence != nil && *w.AvgConfidence < confidenceThreshold:
		in.Type = TypeConfidenceSupport
		in.Title = fmt.Sprintf("%s: Building Confidence", need)
		in.Message = fmt.Sprintf(
			"Your confidence has averaged %.1f out of 10 this week. "+
				"Writing down one question for your provider before your next visit is a small step that helps.",
			*w.AvgConfidence)
		in.Context["rule"] = "confidence_below_threshold"

	default:
		in.Type = TypePositiveReinforcement
		in.Title = fmt.Sprintf("%s: You Are On Track", need)
		in.Message = "You have checked in consistently and your routine is holding steady. Keep going."
		in.Context["rule"] = "default"
	}
	return in, nil
}

// profile returns nil when the user does not exist.
func (g *Generator) profile(ctx context.Context, userID string) (*models.User, error) {
	rec, err := g.a.FindByID(ctx, mapping.Users, userID)
	if errors.Is(err, types.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u := models.UserFromRecord(rec)
	return &u, nil
}

func complete(u models.User) bool {
	return u.PrimaryNeed != nil && u.CycleStage != nil &&
		u.ConfidenceManagingSymptoms != nil &&
		u.ConfidenceTalkingToProvider != nil &&
		u.ConfidenceDailyRoutine != nil
}

func (g *Generator) window(ctx context.Context, userID string, day models.Date) (window, error) {
	from := day.AddDate(0, 0, -(g.lookback - 1))
	records, err := g.a.FindMany(ctx, mapping.DailyCheckins, adapter.And{
		adapter.Eq{Field: "user_id", Value: userID},
		adapter.Range{Field: "date_submitted", From: from, To: day.Time},
	}, adapter.Asc("date_submitted"), 0)
	if err != nil {
		return window{}, err
	}

	checkins := make([]models.DailyCheckin, len(records))
	for i, r := range records {
		checkins[i] = models.CheckinFromRecord(r)
	}
	latest := aggregation.Latest(checkins)

	w := window{Days: len(latest)}
	var confSum, confN int
	for _, c := range latest {
		switch c.MedicationTaken {
		case "yes":
			w.Taken++
		case "no":
			w.Missed++
		}
		if c.Confidence > 0 {
			confSum += c.Confidence
			confN++
		}
	}
	w.Adherence = aggregation.AdherenceRate(w.Taken, w.Missed)
	if confN > 0 {
		avg := float64(confSum) / float64(confN)
		w.AvgConfidence = &avg
	}
	return w, nil
}

// save updates the row for (user, type, date) or creates it, then removes rows of
// other types for the same (user, date).
func (g *Generator) save(ctx context.Context, in models.Insight) (Result, error) {
	key := adapter.And{
		adapter.Eq{Field: "user_id", Value: in.UserID},
		adapter.Eq{Field: "type", Value: in.Type},
		adapter.Eq{Field: "date", Value: in.Date.Time},
	}

	var res Result
	for attempt := 0; ; attempt++ {
		existing, err := g.a.FindOne(ctx, mapping.Insights, key)
		if err == nil {
			rec, err := g.a.Update(ctx, mapping.Insights, existing.ID, in.Fields())
			if err != nil {
				return Result{}, err
			}
			res = Result{Insight: models.InsightFromRecord(rec)}
			break
		}
		if !errors.Is(err, types.ErrNotFound) {
			return Result{}, err
		}

		rec, err := g.a.Create(ctx, mapping.Insights, in.Fields())
		if err == nil {
			res = Result{Insight: models.InsightFromRecord(rec), Created: true}
			break
		}
		// A concurrent generate created the row first.
		if !errors.Is(err, types.ErrConflict) || attempt > 0 {
			return Result{}, err
		}
	}

	others, err := g.a.FindMany(ctx, mapping.Insights, adapter.And{
		adapter.Eq{Field: "user_id", Value: in.UserID},
		adapter.Eq{Field: "date", Value: in.Date.Time},
	}, nil, 0)
	if err != nil {
		return Result{}, err
	}
	for _, r := range others {
		if r.ID == res.Insight.ID {
			continue
		}
		if err := g.a.Delete(ctx, mapping.Insights, r.ID); err != nil {
			return Result{}, err
		}
	}
	return res, nil
}

// Invalidate marks every insight of (user, date) stale and returns how many it marked.
func (g *Generator) Invalidate(ctx context.Context, userID string, date time.Time) (int, error) {
	records, err := g.a.FindMany(ctx, mapping.Insights, adapter.And{
		adapter.Eq{Field: "user_id", Value: userID},
		adapter.Eq{Field: "date", Value: models.NewDate(date).Time},
		adapter.Eq{Field: "stale", Value: false},
	}, nil, 0)
	if err != nil {
		return 0, err
	}
	for i, r := range records {
		if _, err := g.a.Update(ctx, mapping.Insights, r.ID, mapping.Fields{"stale": true}); err != nil {
			return i, err
		}
	}
	return len(records), nil
}

// Daily returns the insight for (user, date), generating it when there is none or
// it is stale. It never fails: backend errors degrade to an unsaved generic insight.
func (g *Generator) Daily(ctx context.Context, userID string, date time.Time) models.Insight {
	day := models.NewDate(date)
	logger := log.With().Str("user_id", userID).Str("date", day.Format(types.DateLayout)).Logger()

	current, err := g.current(ctx, userID, day)
	if err != nil {
		logger.Warn().Err(err).Msg("insight lookup failed, serving generic insight")
		return g.fallback(userID, day)
	}
	if StateOf(current) == Generated {
		return *current
	}

	res, err := g.Generate(ctx, userID, day.Time)
	if err != nil {
		logger.Warn().Err(err).Msg("insight generation failed, serving generic insight")
		return g.fallback(userID, day)
	}
	return res.Insight
}

func (g *Generator) current(ctx context.Context, userID string, day models.Date) (*models.Insight, error) {
	records, err := g.a.FindMany(ctx, mapping.Insights, adapter.And{
		adapter.Eq{Field: "user_id", Value: userID},
		adapter.Eq{Field: "date", Value: day.Time},
	}, nil, 0)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	// Only one row is expected; prefer a fresh one if a race left more.
	for _, r := range records {
		if in := models.InsightFromRecord(r); !in.Stale {
			return &in, nil
		}
	}
	in := models.InsightFromRecord(records[0])
	return &in, nil
}

func (g *Generator) fallback(userID string, day models.Date) models.Insight {
	title, message := generic()
	return models.Insight{
		UserID:  userID,
		Type:    TypeGeneral,
		Date:    day,
		Title:   title,
		Message: message,
		Status:  "active",
	}
}

func generic() (title, message string) {
	return "Taking Care Of Yourself",
		"Checking in each day helps you notice patterns in how you feel. " +
			"Complete your profile to get insights tailored to you."
}
