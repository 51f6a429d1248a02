package gate

import (
	"testing"

	"github.com/localnerve/wellnessdb/internal/mapping"
	"github.com/localnerve/wellnessdb/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRelational(t *testing.T) {
	reset()
	t.Cleanup(reset)

	g, err := Resolve("relational", mapping.Default())
	require.NoError(t, err)
	assert.Equal(t, mapping.Relational, g.Backend)
	assert.False(t, g.Degraded())
	assert.True(t, g.Supports(MaterializedViews))
	assert.Contains(t, g.CanonicalFields[mapping.DailyCheckins], "phq4_feeling_down")

	cur, err := Current()
	require.NoError(t, err)
	assert.Same(t, g, cur)
}

func TestResolveDocumentIsDegraded(t *testing.T) {
	reset()
	t.Cleanup(reset)

	g, err := Resolve("airtable", nil)
	require.NoError(t, err)
	assert.Equal(t, mapping.Document, g.Backend)
	assert.True(t, g.Degraded())
	assert.False(t, g.Supports(Transactions))
	assert.Equal(t, mapping.Default().CanonicalFields(mapping.Users), g.CanonicalFields[mapping.Users])
}

func TestResolveRunsOnce(t *testing.T) {
	reset()
	t.Cleanup(reset)

	first, err := Resolve("relational", nil)
	require.NoError(t, err)

	second, err := Resolve("document", nil)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, mapping.Relational, second.Backend)
}

func TestResolveFailsFastOnIncompleteMapping(t *testing.T) {
	reset()
	t.Cleanup(reset)

	table := mapping.NewTable()
	table.Declare(mapping.Users, nil, mapping.FieldSpec{Name: "email", Type: mapping.TypeString})
	table.Map(mapping.Users, mapping.Relational, "email", mapping.FieldMapping{Column: "email", Encoding: mapping.Scalar{}})

	_, err := Resolve("relational", table)
	require.ErrorIs(t, err, types.ErrConfiguration)

	var cfgErr *types.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"users.email: no mapping on the document backend"}, cfgErr.Problems)

	_, err = Current()
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestResolveRejectsUnknownFlag(t *testing.T) {
	reset()
	t.Cleanup(reset)

	_, err := Resolve("mongo", nil)
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestCurrentBeforeResolve(t *testing.T) {
	reset()
	_, err := Current()
	assert.ErrorIs(t, err, ErrUnresolved)
}
