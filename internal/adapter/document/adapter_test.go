package document

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/localnerve/wellnessdb/internal/adapter"
	"github.com/localnerve/wellnessdb/internal/mapping"
	"github.com/localnerve/wellnessdb/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPolicy = adapter.RetryPolicy{MaxRetries: 3, Initial: time.Millisecond, Max: 5 * time.Millisecond}

func newAdapter(t *testing.T) (*Adapter, *fakeStore) {
	t.Helper()
	f := newFakeStore(t)
	return New(f.options(), mapping.Default(), testPolicy), f
}

func day(s string) time.Time {
	d, err := types.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func createUser(t *testing.T, a *Adapter, email string) adapter.Record {
	t.Helper()
	rec, err := a.Create(context.Background(), mapping.Users, mapping.Fields{"email": email})
	require.NoError(t, err)
	return rec
}

func TestCreateAndFindCheckinRoundTrip(t *testing.T) {
	a, _ := newAdapter(t)
	ctx := context.Background()
	user := createUser(t, a, "Round@Example.com")
	assert.Equal(t, "round@example.com", user.Get("email"))
	assert.Equal(t, "control", user.Get("onboarding_path"))
	assert.Equal(t, false, user.Get("baseline_completed"))

	created, err := a.Create(ctx, mapping.DailyCheckins, mapping.Fields{
		"user_id":               user.ID,
		"mood":                  "Calm",
		"confidence":            7,
		"medication_taken":      "yes",
		"date_submitted":        "2026-03-02",
		"side_effects":          []string{"nausea", "headache"},
		"appointment_scheduled": true,
		"phq4_nervous":          2,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := a.FindByID(ctx, mapping.DailyCheckins, created.ID)
	require.NoError(t, err)

	assert.Equal(t, user.ID, got.Get("user_id"))
	assert.Equal(t, "calm", got.Get("mood"))
	assert.Equal(t, 7, got.Get("confidence"))
	assert.Equal(t, "yes", got.Get("medication_taken"))
	assert.Equal(t, day("2026-03-02"), got.Get("date_submitted"))
	assert.Equal(t, []string{"nausea", "headache"}, got.Get("side_effects"))
	assert.Equal(t, true, got.Get("appointment_scheduled"))
	assert.Equal(t, 2, got.Get("phq4_nervous"))
	assert.Nil(t, got.Get("user_note"))
	assert.IsType(t, time.Time{}, got.Get("created_at"))
}

func TestCreateKeepsExplicitFalseAndEmptyLists(t *testing.T) {
	a, f := newAdapter(t)
	ctx := context.Background()
	user := createUser(t, a, "false@example.com")

	created, err := a.Create(ctx, mapping.DailyCheckins, mapping.Fields{
		"user_id":               user.ID,
		"mood":                  "calm",
		"confidence":            5,
		"date_submitted":        "2026-03-02",
		"appointment_scheduled": false,
		"appointment_attended":  false,
		"side_effects":          []string{},
	})
	require.NoError(t, err)

	got, err := a.FindByID(ctx, mapping.DailyCheckins, created.ID)
	require.NoError(t, err)
	assert.Equal(t, false, got.Get("appointment_scheduled"))
	assert.Equal(t, false, got.Get("appointment_attended"))
	assert.Equal(t, []string{}, got.Get("side_effects"))
	assert.Equal(t, []string{}, got.Get("coping_strategies"))

	// An explicit false is a stored value, not a blank cell.
	stored := f.record("Daily Check-ins", created.ID)
	assert.Equal(t, "no", stored["Appointment Attended"])

	// Unset stays unset.
	other, err := a.Create(ctx, mapping.DailyCheckins, mapping.Fields{
		"user_id":        user.ID,
		"mood":           "calm",
		"confidence":     5,
		"date_submitted": "2026-03-03",
	})
	require.NoError(t, err)
	got, err = a.FindByID(ctx, mapping.DailyCheckins, other.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Get("appointment_attended"))
}

func TestInsightContextRoundTrip(t *testing.T) {
	a, _ := newAdapter(t)
	ctx := context.Background()

	blob := map[string]any{"rule": "adherence", "window_days": float64(7)}
	created, err := a.Create(ctx, mapping.Insights, mapping.Fields{
		"user_id": "recUser",
		"type":    "medication_adherence",
		"date":    "2026-03-02",
		"title":   "Keep going",
		"message": "You took your medication 5 of 7 days.",
		"context": blob,
	})
	require.NoError(t, err)

	got, err := a.FindByID(ctx, mapping.Insights, created.ID)
	require.NoError(t, err)
	assert.Equal(t, blob, got.Get("context"))
	assert.Equal(t, "active", got.Get("status"))
	assert.Equal(t, false, got.Get("stale"))
}

func TestCreateRejectsUnknownFieldWithoutRequest(t *testing.T) {
	a, f := newAdapter(t)

	_, err := a.Create(context.Background(), mapping.Users, mapping.Fields{"email": "a@example.com", "foo_bar": 1})
	require.Error(t, err)

	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "foo_bar", verr.Field)
	assert.Equal(t, 0, f.requestCount())
}

func TestCreateDuplicateEmailConflicts(t *testing.T) {
	a, _ := newAdapter(t)
	createUser(t, a, "dup@example.com")

	_, err := a.Create(context.Background(), mapping.Users, mapping.Fields{"email": "DUP@example.com"})
	require.ErrorIs(t, err, types.ErrConflict)

	var cerr *types.ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "email", cerr.Field)
}

func TestFindByIDMissing(t *testing.T) {
	a, _ := newAdapter(t)
	_, err := a.FindByID(context.Background(), mapping.Users, "recMissing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestFindManyLinkedRecordAndDateRange(t *testing.T) {
	a, f := newAdapter(t)
	ctx := context.Background()
	alice := createUser(t, a, "alice@example.com")
	bob := createUser(t, a, "bob@example.com")

	for i, d := range []string{"2026-03-01", "2026-03-02", "2026-03-03", "2026-03-04"} {
		_, err := a.Create(ctx, mapping.DailyCheckins, mapping.Fields{
			"user_id": alice.ID, "mood": "ok", "confidence": i + 1, "date_submitted": d,
		})
		require.NoError(t, err)
	}
	_, err := a.Create(ctx, mapping.DailyCheckins, mapping.Fields{
		"user_id": bob.ID, "mood": "ok", "confidence": 5, "date_submitted": "2026-03-02",
	})
	require.NoError(t, err)

	got, err := a.FindMany(ctx, mapping.DailyCheckins, adapter.Where(
		adapter.Eq{Field: "user_id", Value: alice.ID},
		adapter.Range{Field: "date_submitted", From: "2026-03-02", To: "2026-03-03"},
	), adapter.Desc("date_submitted"), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, day("2026-03-03"), got[0].Get("date_submitted"))
	assert.Equal(t, day("2026-03-02"), got[1].Get("date_submitted"))
	assert.Contains(t, f.lastFormula(), "ARRAYJOIN({User Record ID})")

	got, err = a.FindMany(ctx, mapping.DailyCheckins, adapter.Eq{Field: "date_submitted", Value: day("2026-03-02")}, nil, 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFindManyFalseBooleanMatchesBlank(t *testing.T) {
	a, _ := newAdapter(t)
	ctx := context.Background()

	base := mapping.Fields{"user_id": "recU", "type": "general_wellbeing", "title": "t", "message": "m"}
	fresh := base.Clone()
	fresh["date"] = "2026-03-01"
	stale := base.Clone()
	stale["date"] = "2026-03-02"
	stale["stale"] = true

	_, err := a.Create(ctx, mapping.Insights, fresh)
	require.NoError(t, err)
	_, err = a.Create(ctx, mapping.Insights, stale)
	require.NoError(t, err)

	got, err := a.FindMany(ctx, mapping.Insights, adapter.Eq{Field: "stale", Value: false}, nil, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, day("2026-03-01"), got[0].Get("date"))
}

func TestFindManyFollowsPages(t *testing.T) {
	f := newFakeStore(t)
	opts := f.options()
	opts.PageSize = 2
	a := New(opts, mapping.Default(), testPolicy)
	ctx := context.Background()

	for i := range 5 {
		createUser(t, a, fmt.Sprintf("page%d@example.com", i))
	}

	all, err := a.FindMany(ctx, mapping.Users, nil, adapter.Asc("email"), 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "page0@example.com", all[0].Get("email"))
	assert.Equal(t, "page4@example.com", all[4].Get("email"))

	limited, err := a.FindMany(ctx, mapping.Users, nil, nil, 3)
	require.NoError(t, err)
	assert.Len(t, limited, 3)
}

func TestUpdate(t *testing.T) {
	a, _ := newAdapter(t)
	ctx := context.Background()
	user, err := a.Create(ctx, mapping.Users, mapping.Fields{"email": "upd@example.com", "nickname": "Sam"})
	require.NoError(t, err)

	t.Run("merges fields", func(t *testing.T) {
		got, err := a.Update(ctx, mapping.Users, user.ID, mapping.Fields{"primary_need": "Sleep"})
		require.NoError(t, err)
		assert.Equal(t, "sleep", got.Get("primary_need"))
		assert.Equal(t, "Sam", got.Get("nickname"))
	})

	t.Run("clears with nil", func(t *testing.T) {
		got, err := a.Update(ctx, mapping.Users, user.ID, mapping.Fields{"nickname": nil})
		require.NoError(t, err)
		assert.Nil(t, got.Get("nickname"))
	})

	t.Run("unique value of another record conflicts", func(t *testing.T) {
		createUser(t, a, "taken@example.com")
		_, err := a.Update(ctx, mapping.Users, user.ID, mapping.Fields{"email": "taken@example.com"})
		assert.ErrorIs(t, err, types.ErrConflict)
	})

	t.Run("missing record", func(t *testing.T) {
		_, err := a.Update(ctx, mapping.Users, "recMissing", mapping.Fields{"nickname": "x"})
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestDeleteIsIdempotent(t *testing.T) {
	a, _ := newAdapter(t)
	ctx := context.Background()
	user := createUser(t, a, "gone@example.com")

	require.NoError(t, a.Delete(ctx, mapping.Users, user.ID))
	require.NoError(t, a.Delete(ctx, mapping.Users, user.ID))

	_, err := a.FindByID(ctx, mapping.Users, user.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDeleteMatchingFallsBackToPerRecordDeletes(t *testing.T) {
	a, _ := newAdapter(t)
	ctx := context.Background()

	for _, build := range []string{"b1", "b1", "b2"} {
		_, err := a.Create(ctx, mapping.DailyMetrics, mapping.Fields{"user_id": "recU", "date": "2026-03-01", "build_id": build})
		require.NoError(t, err)
	}

	n, err := adapter.DeleteMatching(ctx, a, mapping.DailyMetrics, adapter.Eq{Field: "build_id", Value: "b1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rest, err := a.FindMany(ctx, mapping.DailyMetrics, nil, nil, 0)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "b2", rest[0].Get("build_id"))
}

func TestTransientStatusesAreRetried(t *testing.T) {
	a, f := newAdapter(t)
	f.failNext(429, 503)

	user, err := a.Create(context.Background(), mapping.Users, mapping.Fields{"email": "retry@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	// Two rejected uniqueness lookups, the lookup that succeeds, then the create.
	assert.Equal(t, 4, f.requestCount())
}

func TestRetriesExhausted(t *testing.T) {
	a, f := newAdapter(t)
	f.failNext(500, 500, 500, 500, 500)

	_, err := a.FindMany(context.Background(), mapping.Users, nil, nil, 0)
	require.ErrorIs(t, err, types.ErrBackendUnavailable)
	assert.Equal(t, testPolicy.MaxRetries+1, f.requestCount())
}

func TestUnauthorizedIsNotRetried(t *testing.T) {
	f := newFakeStore(t)
	opts := f.options()
	opts.APIKey = "wrong"
	a := New(opts, mapping.Default(), testPolicy)

	_, err := a.FindByID(context.Background(), mapping.Users, "recAny")
	require.ErrorIs(t, err, types.ErrUnauthorized)
	assert.Equal(t, 1, f.requestCount())
}

func TestRejectedRequestIsValidation(t *testing.T) {
	a, f := newAdapter(t)
	f.failNext(422)

	_, err := a.FindMany(context.Background(), mapping.Users, nil, nil, 0)
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Equal(t, 1, f.requestCount())
}

func TestDeadlineExpires(t *testing.T) {
	a, f := newAdapter(t)
	f.setDelay(300 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := a.FindByID(ctx, mapping.Users, "recSlow")
	require.ErrorIs(t, err, types.ErrTimeout)
	assert.False(t, errors.Is(err, types.ErrBackendUnavailable))
}

func TestCanceledContext(t *testing.T) {
	a, f := newAdapter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.FindMany(ctx, mapping.Users, nil, nil, 0)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.requestCount())
}

func TestPing(t *testing.T) {
	a, _ := newAdapter(t)
	require.NoError(t, a.Ping(context.Background()))

	down := New(Options{BaseURL: "http://127.0.0.1:1/v0", BaseID: "app", APIKey: "k", RateLimit: 100},
		mapping.Default(), adapter.RetryPolicy{MaxRetries: 0})
	assert.ErrorIs(t, down.Ping(context.Background()), types.ErrBackendUnavailable)
}
