package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/localnerve/wellnessdb/internal/adapter"
	"github.com/localnerve/wellnessdb/internal/adapter/relational"
	"github.com/localnerve/wellnessdb/internal/aggregation"
	"github.com/localnerve/wellnessdb/internal/config"
	"github.com/localnerve/wellnessdb/internal/insights"
	"github.com/localnerve/wellnessdb/internal/mapping"
	"github.com/localnerve/wellnessdb/internal/testutil"
	"github.com/localnerve/wellnessdb/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	a        *relational.Adapter
	users    *UserService
	checkins *CheckinService
	query    *QueryService
	engine   *aggregation.Engine
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	table := mapping.Default()
	a := relational.New(testutil.NewSQLite(t), table, adapter.RetryPolicy{MaxRetries: 1, Initial: time.Millisecond})
	engine := aggregation.New(a, aggregation.Options{})
	gen := insights.New(a, engine.Reader(), insights.Options{LookbackDays: 7})
	return fixture{
		a:        a,
		users:    NewUserService(a, table),
		checkins: NewCheckinService(a, table, gen),
		query:    NewQueryService(a, engine.Reader(), gen),
		engine:   engine,
	}
}

func day(s string) time.Time {
	d, err := types.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCreateGetUpdateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.users.CreateUser(ctx, map[string]any{"email": "Person@Example.com", "nickname": "P"})
	require.NoError(t, err)
	assert.Equal(t, "person@example.com", u.Email)
	assert.Equal(t, "control", u.OnboardingPath)

	got, err := f.users.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	updated, err := f.users.UpdateUser(ctx, u.ID, map[string]any{"primary_need": "Sleep", "nickname": nil})
	require.NoError(t, err)
	require.NotNil(t, updated.PrimaryNeed)
	assert.Equal(t, "sleep", *updated.PrimaryNeed)
	assert.Nil(t, updated.Nickname)

	_, err = f.users.CreateUser(ctx, map[string]any{"email": "person@example.com"})
	assert.True(t, errors.Is(err, types.ErrConflict))

	_, err = f.users.GetUser(ctx, "00000000-0000-0000-0000-000000000000")
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestUserRejectsSystemAndUnknownFields(t *testing.T) {
	f := newFixture(t)

	_, err := f.users.CreateUser(context.Background(), map[string]any{"email": "x@example.com", "created_at": "2026-01-01"})
	var vErr *types.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "created_at", vErr.Field)
}

func TestConcurrentNicknameUpdatesAreLastWriteWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.users.CreateUser(ctx, map[string]any{"email": "race@example.com"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, name := range []string{"A", "B"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.users.UpdateUser(ctx, u.ID, map[string]any{"nickname": name})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := f.users.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Nickname)
	assert.Contains(t, []string{"A", "B"}, *got.Nickname)
}

func TestIngestRejectsUnknownKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.users.CreateUser(ctx, map[string]any{"email": "ingest@example.com"})
	require.NoError(t, err)

	_, err = f.checkins.Ingest(ctx, u.ID, map[string]any{
		"mood":       "calm",
		"confidence": 5,
		"zeta":       1,
		"foo_bar":    true,
	})
	var vErr *types.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "foo_bar", vErr.Field)
	assert.Contains(t, vErr.Reason, "zeta")

	list, err := f.query.ListCheckins(ctx, u.ID, 10, "desc")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestIngestUnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.checkins.Ingest(context.Background(), "00000000-0000-0000-0000-000000000000", map[string]any{
		"mood": "calm", "confidence": 5,
	})
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestIngestAcceptsSingleListValueAndInvalidatesInsight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.users.CreateUser(ctx, map[string]any{"email": "list@example.com"})
	require.NoError(t, err)

	first, err := f.checkins.Ingest(ctx, u.ID, map[string]any{
		"mood": "calm", "confidence": 6, "date_submitted": "2026-03-02",
		"side_effects": "nausea",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"nausea"}, first.SideEffects)

	in, err := f.query.GetDailyInsight(ctx, u.ID, day("2026-03-02"))
	require.NoError(t, err)
	require.NotEmpty(t, in.ID)
	assert.Equal(t, insights.TypeGeneral, in.Type)

	_, err = f.checkins.Ingest(ctx, u.ID, map[string]any{
		"mood": "tired", "confidence": 4, "date_submitted": "2026-03-02",
		"coping_strategies": []any{"walk", "music"},
	})
	require.NoError(t, err)

	records, err := f.a.FindMany(ctx, mapping.Insights, adapter.Eq{Field: "user_id", Value: u.ID}, nil, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, true, records[0].Get("stale"))
}

func TestListCheckinsKeepsDuplicatesAndOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.users.CreateUser(ctx, map[string]any{"email": "order@example.com"})
	require.NoError(t, err)

	for _, d := range []string{"2026-03-01", "2026-03-03", "2026-03-03", "2026-03-02"} {
		_, err := f.checkins.Ingest(ctx, u.ID, map[string]any{"mood": "ok", "confidence": 5, "date_submitted": d})
		require.NoError(t, err)
	}

	desc, err := f.query.ListCheckins(ctx, u.ID, 0, "")
	require.NoError(t, err)
	require.Len(t, desc, 4)
	assert.Equal(t, day("2026-03-03"), desc[0].DateSubmitted.Time)
	assert.Equal(t, day("2026-03-03"), desc[1].DateSubmitted.Time)

	asc, err := f.query.ListCheckins(ctx, u.ID, 2, "asc")
	require.NoError(t, err)
	require.Len(t, asc, 2)
	assert.Equal(t, day("2026-03-01"), asc[0].DateSubmitted.Time)

	_, err = f.query.ListCheckins(ctx, u.ID, 2, "sideways")
	assert.True(t, errors.Is(err, types.ErrValidation))
}

func TestGetMetricsReadsPublishedRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.users.CreateUser(ctx, map[string]any{"email": "metrics@example.com"})
	require.NoError(t, err)

	empty, err := f.query.GetMetrics(ctx, u.ID, DateRange{})
	require.NoError(t, err)
	assert.Empty(t, empty.Daily)
	assert.NotNil(t, empty.Weekly)

	for _, d := range []string{"2026-03-02", "2026-03-04", "2026-03-10"} {
		_, err := f.checkins.Ingest(ctx, u.ID, map[string]any{"mood": "ok", "confidence": 5, "medication_taken": "yes", "date_submitted": d})
		require.NoError(t, err)
	}

	// Reads do not refresh.
	m, err := f.query.GetMetrics(ctx, u.ID, DateRange{})
	require.NoError(t, err)
	assert.Empty(t, m.Daily)

	scope := aggregation.Scope{UserIDs: []string{u.ID}}
	_, err = f.engine.RefreshDaily(ctx, scope)
	require.NoError(t, err)
	_, err = f.engine.RefreshWeekly(ctx, scope)
	require.NoError(t, err)

	m, err = f.query.GetMetrics(ctx, u.ID, DateRange{From: day("2026-03-04"), To: day("2026-03-08")})
	require.NoError(t, err)
	require.Len(t, m.Daily, 1)
	require.Len(t, m.Weekly, 1)
	assert.Equal(t, "2026-W10", m.Weekly[0].ISOWeek)
	assert.Equal(t, 2, m.Weekly[0].DaysWithData)

	_, err = f.query.GetMetrics(ctx, u.ID, DateRange{From: day("2026-03-08"), To: day("2026-03-01")})
	assert.True(t, errors.Is(err, types.ErrValidation))
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)
	cfg := &config.Config{DBType: "sqlite", DBDatabase: "wellness.db"}

	res := HealthCheck(context.Background(), cfg, f.a)
	assert.Equal(t, "healthy", res.Status)
	assert.Equal(t, "relational", res.Backend)
	assert.Equal(t, "ok", res.Database)

	require.NoError(t, f.a.Close())
	res = HealthCheck(context.Background(), cfg, f.a)
	assert.Equal(t, "unhealthy", res.Status)
	assert.NotEmpty(t, res.ErrorMessage)
}
