package main

import (
	"testing"

	"github.com/localnerve/wellnessdb/internal/mapping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeFromFlags(t *testing.T) {
	scope, err := scopeFromFlags([]string{"a", "b"}, "2026-03-01", "2026-03-31")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, scope.UserIDs)
	assert.Equal(t, "2026-03-01", scope.From.Format("2006-01-02"))
	assert.Equal(t, "2026-03-31", scope.To.Format("2006-01-02"))

	scope, err = scopeFromFlags(nil, "", "")
	require.NoError(t, err)
	assert.True(t, scope.From.IsZero())
	assert.True(t, scope.To.IsZero())

	_, err = scopeFromFlags(nil, "2026-03-31", "2026-03-01")
	assert.Error(t, err)

	_, err = scopeFromFlags(nil, "yesterday", "")
	assert.ErrorContains(t, err, "--from")
}

func TestNeedsBackend(t *testing.T) {
	assert.False(t, needsBackend(mappingCheckCmd))
	assert.False(t, needsBackend(metricsCmd))
	assert.True(t, needsBackend(metricsDailyCmd))
	assert.True(t, needsBackend(migrateApplyCmd))
}

func TestMappingRowsCoverEveryField(t *testing.T) {
	table := mapping.Default()
	rows := mappingRows(table)

	total := 0
	for _, e := range table.Entities() {
		total += len(table.Specs(e))
	}
	require.Len(t, rows, total)

	for _, r := range rows {
		assert.NotEmpty(t, r.Relational, "%s.%s", r.Entity, r.Field)
		assert.NotEmpty(t, r.Document, "%s.%s", r.Entity, r.Field)
	}
}
