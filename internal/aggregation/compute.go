// compute.go
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

package aggregation

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/localnerve/wellnessdb/internal/models"
)

// AdherenceRate returns round(100*taken/(taken+missed), 1), or nil when nothing was
// recorded either way. A zero would claim proven non-adherence.
func AdherenceRate(taken, missed int) *float64 {
	if taken+missed <= 0 {
		return nil
	}
	rate := round(100*float64(taken)/float64(taken+missed), 1)
	return &rate
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Latest keeps the most recently created check-in per user and date. Ties keep the
// later element. The result is ordered by user, then date.
func Latest(checkins []models.DailyCheckin) []models.DailyCheckin {
	type key struct {
		user string
		date time.Time
	}
	keep := make(map[key]int, len(checkins))
	for i, c := range checkins {
		k := key{c.UserID, c.DateSubmitted.Time}
		if j, ok := keep[k]; !ok || !c.CreatedAt.Before(checkins[j].CreatedAt) {
			keep[k] = i
		}
	}

	out := make([]models.DailyCheckin, 0, len(keep))
	for _, i := range keep {
		out = append(out, checkins[i])
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].UserID != out[b].UserID {
			return out[a].UserID < out[b].UserID
		}
		return out[a].DateSubmitted.Before(out[b].DateSubmitted.Time)
	})
	return out
}

// ComputeDaily derives one DailyMetric per user and date from raw check-ins.
// checkin_count counts every raw row; the remaining figures come from the canonical
// check-in of the day. BuildID and LastUpdated are left for the publisher.
func ComputeDaily(raw []models.DailyCheckin) []models.DailyMetric {
	type key struct {
		user string
		date time.Time
	}
	counts := make(map[key]int)
	for _, c := range raw {
		counts[key{c.UserID, c.DateSubmitted.Time}]++
	}

	canonical := Latest(raw)
	out := make([]models.DailyMetric, 0, len(canonical))
	for _, c := range canonical {
		m := models.DailyMetric{
			UserID:       c.UserID,
			Date:         c.DateSubmitted,
			CheckinCount: counts[key{c.UserID, c.DateSubmitted.Time}],
		}
		if c.Mood != "" {
			m.MoodEntries = 1
		}
		switch c.MedicationTaken {
		case "yes":
			m.MedicationEntries, m.MedicationTaken = 1, 1
		case "no":
			m.MedicationEntries, m.MedicationMissed = 1, 1
		}
		if c.HasSymptoms() {
			m.SymptomEntries = 1
		}
		if c.Confidence > 0 {
			avg := float64(c.Confidence)
			m.AvgConfidence = &avg
		}
		out = append(out, m)
	}
	return out
}

// WeekStart returns the ISO week Monday of t.
func WeekStart(t time.Time) time.Time {
	d := models.NewDate(t).Time
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// ISOWeek formats the ISO week of t as YYYY-Www.
func ISOWeek(t time.Time) string {
	y, w := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", y, w)
}

// ComputeWeekly rolls DailyMetric rows up into one WeeklyMetric per user and ISO week.
// It reads nothing but its input, so equal daily rows always give equal weekly rows.
func ComputeWeekly(daily []models.DailyMetric) []models.WeeklyMetric {
	type key struct {
		user string
		week time.Time
	}
	type acc struct {
		models.WeeklyMetric
		confSum float64
		confN   int
	}

	groups := make(map[key]*acc)
	for _, d := range daily {
		start := WeekStart(d.Date.Time)
		k := key{d.UserID, start}
		g, ok := groups[k]
		if !ok {
			g = &acc{WeeklyMetric: models.WeeklyMetric{
				UserID:    d.UserID,
				WeekStart: models.NewDate(start),
				ISOWeek:   ISOWeek(start),
			}}
			groups[k] = g
		}
		if d.CheckinCount > 0 {
			g.DaysWithData++
		}
		g.MedicationTaken += d.MedicationTaken
		g.MedicationMissed += d.MedicationMissed
		g.MoodEntries += d.MoodEntries
		g.SymptomEntries += d.SymptomEntries
		if d.AvgConfidence != nil {
			g.confSum += *d.AvgConfidence
			g.confN++
		}
	}

	out := make([]models.WeeklyMetric, 0, len(groups))
	for _, g := range groups {
		w := g.WeeklyMetric
		w.DaysWithData = min(w.DaysWithData, 7)
		w.AdherenceRate = AdherenceRate(w.MedicationTaken, w.MedicationMissed)
		if g.confN > 0 {
			avg := round(g.confSum/float64(g.confN), 2)
			w.AvgConfidence = &avg
		}
		out = append(out, w)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].UserID != out[b].UserID {
			return out[a].UserID < out[b].UserID
		}
		return out[a].WeekStart.Before(out[b].WeekStart.Time)
	})
	return out
}
