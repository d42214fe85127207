package dynamo

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUpdateSetAndRemove(t *testing.T) {
	expr, names, values, err := BuildUpdate(
		map[string]any{"label": "Onboarding", "sort_order": 3},
		[]string{"archived_at"},
	)
	require.NoError(t, err)

	// Set keys are sorted, so the expression is stable across runs.
	assert.Equal(t, "SET #s0 = :s0, #s1 = :s1 REMOVE #r0", expr)
	assert.Equal(t, "label", names["#s0"])
	assert.Equal(t, "sort_order", names["#s1"])
	assert.Equal(t, "archived_at", names["#r0"])

	s, ok := values[":s0"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "Onboarding", s.Value)
	n, ok := values[":s1"].(*types.AttributeValueMemberN)
	require.True(t, ok)
	assert.Equal(t, "3", n.Value)
}

func TestBuildUpdateRemoveOnly(t *testing.T) {
	expr, names, values, err := BuildUpdate(nil, []string{"color", "parent_id"})
	require.NoError(t, err)
	assert.Equal(t, "REMOVE #r0, #r1", expr)
	assert.Equal(t, "color", names["#r0"])
	assert.Equal(t, "parent_id", names["#r1"])
	assert.Empty(t, values)
}

func TestBuildUpdateEmpty(t *testing.T) {
	expr, _, _, err := BuildUpdate(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "", expr)
}
