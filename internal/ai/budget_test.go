package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudget_PerConcernLimit(t *testing.T) {
	b := NewBudget(2, 0, 0, 0)

	assert.True(t, b.CanRank())
	require.NoError(t, b.RecordRank())
	require.NoError(t, b.RecordRank())

	assert.False(t, b.CanRank())
	assert.Error(t, b.RecordRank())

	// Other concerns are unaffected.
	assert.True(t, b.CanScript())
	assert.True(t, b.CanSpeech())
}

func TestBudget_TotalCap(t *testing.T) {
	b := NewBudget(0, 0, 0, 2)

	require.NoError(t, b.RecordRank())
	require.NoError(t, b.RecordScript())

	assert.False(t, b.CanSpeech(), "total cap spans all concerns")
	assert.Error(t, b.RecordSpeech())
}

func TestBudget_ZeroMeansUnlimited(t *testing.T) {
	b := NewBudget(0, 0, 0, 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, b.RecordRank())
	}
	assert.True(t, b.CanRank())
}

func TestBudget_Stats(t *testing.T) {
	b := NewBudget(5, 3, 2, 10)
	require.NoError(t, b.RecordScript())

	stats := b.GetStats()
	assert.Equal(t, 1, stats["script_used"])
	assert.Equal(t, 3, stats["script_limit"])
	assert.Equal(t, 1, stats["total_used"])
	assert.Equal(t, 10, stats["total_limit"])
}
