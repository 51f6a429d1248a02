package relational

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/localnerve/wellnessdb/internal/adapter"
	"github.com/localnerve/wellnessdb/internal/mapping"
	"github.com/localnerve/wellnessdb/internal/testutil"
	"github.com/localnerve/wellnessdb/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdapter(t *testing.T) *Adapter {
	t.Helper()
	return New(testutil.NewSQLite(t), mapping.Default(), adapter.RetryPolicy{MaxRetries: 1, Initial: time.Millisecond})
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
	a := newAdapter(t)
	ctx := context.Background()
	user := createUser(t, a, "round@example.com")

	in := mapping.Fields{
		"user_id":               user.ID,
		"mood":                  "Calm",
		"confidence":            "7",
		"medication_taken":      "yes",
		"date_submitted":        "2026-03-02",
		"side_effects":          []any{"nausea", "headache"},
		"coping_strategies":     "breathing",
		"appointment_scheduled": true,
		"phq4_nervous":          float64(2),
	}
	created, err := a.Create(ctx, mapping.DailyCheckins, in)
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
	assert.Equal(t, []string{"breathing"}, got.Get("coping_strategies"))
	assert.Equal(t, true, got.Get("appointment_scheduled"))
	assert.Equal(t, 2, got.Get("phq4_nervous"))
	assert.Nil(t, got.Get("user_note"))
	assert.IsType(t, time.Time{}, got.Get("created_at"))
}

func TestCreateKeepsExplicitFalseAndEmptyLists(t *testing.T) {
	a := newAdapter(t)
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
}

func TestInsightContextRoundTrip(t *testing.T) {
	a := newAdapter(t)
	ctx := context.Background()

	blob := map[string]any{"rule": "adherence", "window_days": float64(7)}
	created, err := a.Create(ctx, mapping.Insights, mapping.Fields{
		"user_id": "u-1",
		"type":    "medication_adherence",
		"date":    day("2026-03-02"),
		"title":   "Medication",
		"message": "Keep going",
		"context": blob,
	})
	require.NoError(t, err)

	got, err := a.FindByID(ctx, mapping.Insights, created.ID)
	require.NoError(t, err)
	assert.Equal(t, blob, got.Get("context"))
	assert.Equal(t, "active", got.Get("status"))
	assert.Equal(t, false, got.Get("stale"))
	assert.Equal(t, false, got.Get("personalized"))
}

func TestCreateRejectsUnknownField(t *testing.T) {
	a := newAdapter(t)

	_, err := a.Create(context.Background(), mapping.Users, mapping.Fields{
		"email":   "x@example.com",
		"foo_bar": 1,
	})
	require.ErrorIs(t, err, types.ErrValidation)

	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "foo_bar", ve.Field)
}

func TestCreateRejectsInvalidValues(t *testing.T) {
	a := newAdapter(t)
	user := createUser(t, a, "invalid@example.com")

	tests := []struct {
		name   string
		fields mapping.Fields
		field  string
	}{
		{"missing required", mapping.Fields{"user_id": user.ID, "mood": "ok", "date_submitted": "2026-03-02"}, "confidence"},
		{"out of range", mapping.Fields{"user_id": user.ID, "mood": "ok", "confidence": 11, "date_submitted": "2026-03-02"}, "confidence"},
		{"enum outside allow-list", mapping.Fields{"user_id": user.ID, "mood": "ok", "confidence": 5, "date_submitted": "2026-03-02", "medication_taken": "maybe"}, "medication_taken"},
		{"bad date", mapping.Fields{"user_id": user.ID, "mood": "ok", "confidence": 5, "date_submitted": "yesterday"}, "date_submitted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Create(context.Background(), mapping.DailyCheckins, tt.fields)
			var ve *types.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestCreateDuplicateEmailConflicts(t *testing.T) {
	a := newAdapter(t)
	createUser(t, a, "dup@example.com")

	_, err := a.Create(context.Background(), mapping.Users, mapping.Fields{"email": "DUP@example.com"})
	require.ErrorIs(t, err, types.ErrConflict)

	var ce *types.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "email", ce.Field)
}

func TestUserDefaults(t *testing.T) {
	a := newAdapter(t)
	user := createUser(t, a, "defaults@example.com")

	got, err := a.FindByID(context.Background(), mapping.Users, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "control", got.Get("onboarding_path"))
	assert.Equal(t, false, got.Get("baseline_completed"))
	assert.Equal(t, "defaults@example.com", got.Get("email"))
}

func TestFindManyPredicates(t *testing.T) {
	a := newAdapter(t)
	ctx := context.Background()
	user := createUser(t, a, "preds@example.com")
	other := createUser(t, a, "other@example.com")

	for _, d := range []string{"2026-03-01", "2026-03-02", "2026-03-03", "2026-03-04"} {
		_, err := a.Create(ctx, mapping.DailyCheckins, mapping.Fields{
			"user_id": user.ID, "mood": "ok", "confidence": 5, "date_submitted": d,
		})
		require.NoError(t, err)
	}
	_, err := a.Create(ctx, mapping.DailyCheckins, mapping.Fields{
		"user_id": other.ID, "mood": "ok", "confidence": 5, "date_submitted": "2026-03-02",
	})
	require.NoError(t, err)

	t.Run("range and order", func(t *testing.T) {
		got, err := a.FindMany(ctx, mapping.DailyCheckins, adapter.Where(
			adapter.Eq{Field: "user_id", Value: user.ID},
			adapter.Range{Field: "date_submitted", From: "2026-03-02", To: "2026-03-03"},
		), adapter.Desc("date_submitted"), 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, day("2026-03-03"), got[0].Get("date_submitted"))
		assert.Equal(t, day("2026-03-02"), got[1].Get("date_submitted"))
	})

	t.Run("open range with limit", func(t *testing.T) {
		got, err := a.FindMany(ctx, mapping.DailyCheckins, adapter.Where(
			adapter.Eq{Field: "user_id", Value: user.ID},
			adapter.Range{Field: "date_submitted", From: "2026-03-02"},
		), adapter.Asc("date_submitted"), 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, day("2026-03-02"), got[0].Get("date_submitted"))
	})

	t.Run("or", func(t *testing.T) {
		got, err := a.FindMany(ctx, mapping.DailyCheckins, adapter.Or{
			adapter.Eq{Field: "date_submitted", Value: "2026-03-01"},
			adapter.Eq{Field: "date_submitted", Value: "2026-03-04"},
		}, nil, 0)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("match all", func(t *testing.T) {
		got, err := a.FindMany(ctx, mapping.DailyCheckins, nil, nil, 0)
		require.NoError(t, err)
		assert.Len(t, got, 5)
	})

	t.Run("unknown field is rejected", func(t *testing.T) {
		_, err := a.FindMany(ctx, mapping.DailyCheckins, adapter.Eq{Field: "foo_bar", Value: 1}, nil, 0)
		var ve *types.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "foo_bar", ve.Field)
	})

	t.Run("non-filterable field is rejected", func(t *testing.T) {
		_, err := a.FindMany(ctx, mapping.DailyCheckins, adapter.Eq{Field: "mood", Value: "ok"}, nil, 0)
		require.ErrorIs(t, err, types.ErrValidation)
	})
}

func TestFindByIDMissing(t *testing.T) {
	a := newAdapter(t)
	_, err := a.FindByID(context.Background(), mapping.Users, "missing")
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	a := newAdapter(t)
	ctx := context.Background()
	user := createUser(t, a, "update@example.com")

	got, err := a.Update(ctx, mapping.Users, user.ID, mapping.Fields{"nickname": "Sam", "primary_need": "Sleep"})
	require.NoError(t, err)
	assert.Equal(t, "Sam", got.Get("nickname"))
	assert.Equal(t, "sleep", got.Get("primary_need"))
	assert.Equal(t, "update@example.com", got.Get("email"))

	got, err = a.Update(ctx, mapping.Users, user.ID, mapping.Fields{"nickname": nil})
	require.NoError(t, err)
	assert.Nil(t, got.Get("nickname"))
	assert.Equal(t, "sleep", got.Get("primary_need"))

	_, err = a.Update(ctx, mapping.Users, user.ID, mapping.Fields{"email": nil})
	require.ErrorIs(t, err, types.ErrValidation)

	_, err = a.Update(ctx, mapping.Users, "missing", mapping.Fields{"nickname": "x"})
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestConcurrentNicknameUpdates(t *testing.T) {
	a := newAdapter(t)
	ctx := context.Background()
	user := createUser(t, a, "race@example.com")

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, nick := range []string{"A", "B"} {
		wg.Add(1)
		go func(nick string) {
			defer wg.Done()
			_, err := a.Update(ctx, mapping.Users, user.ID, mapping.Fields{"nickname": nick})
			errs <- err
		}(nick)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := a.FindByID(ctx, mapping.Users, user.ID)
	require.NoError(t, err)
	assert.Contains(t, []any{"A", "B"}, got.Get("nickname"))
}

func TestDeleteIsIdempotent(t *testing.T) {
	a := newAdapter(t)
	ctx := context.Background()
	user := createUser(t, a, "delete@example.com")

	require.NoError(t, a.Delete(ctx, mapping.Users, user.ID))
	require.NoError(t, a.Delete(ctx, mapping.Users, user.ID))

	_, err := a.FindByID(ctx, mapping.Users, user.ID)
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestDeleteMatching(t *testing.T) {
	a := newAdapter(t)
	ctx := context.Background()

	for _, build := range []string{"b1", "b1", "b2"} {
		_, err := a.Create(ctx, mapping.DailyMetrics, mapping.Fields{
			"user_id": "u-1", "date": "2026-03-02", "build_id": build,
		})
		require.NoError(t, err)
	}

	n, err := adapter.DeleteMatching(ctx, a, mapping.DailyMetrics, adapter.Eq{Field: "build_id", Value: "b1"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	rest, err := a.FindMany(ctx, mapping.DailyMetrics, nil, nil, 0)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "b2", rest[0].Get("build_id"))
	assert.Equal(t, 0, rest[0].Get("checkin_count"))
}

func TestCanceledContext(t *testing.T) {
	a := newAdapter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.FindMany(ctx, mapping.Users, nil, nil, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPing(t *testing.T) {
	a := newAdapter(t)
	require.NoError(t, a.Ping(context.Background()))
	assert.Equal(t, mapping.Relational, a.Backend())
}
