package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateGetWith(t *testing.T) {
	p := referenceProfile(t)

	s := NewState()
	s2 := With(s, KeyProfile, p)
	s3 := With(s2, KeyTieBreak, TieBreakAgent(2))

	_, ok := Get(s, KeyProfile)
	assert.False(t, ok, "original state must not change")

	got, ok := Get(s3, KeyProfile)
	require.True(t, ok)
	assert.Same(t, p, got)

	tb, ok := Get(s3, KeyTieBreak)
	require.True(t, ok)
	assert.Equal(t, TieBreakAgent(2), tb)

	assert.Equal(t, []string{"profile", "tie_break"}, s3.Keys())
}

func TestStateCopiesMutableValues(t *testing.T) {
	table := ValuationTable{1: {1, 2}}
	s := With(NewState(), KeyValuations, table)

	table[1][0] = 50
	got, ok := Get(s, KeyValuations)
	require.True(t, ok)
	assert.Equal(t, float64(1), got[1][0])

	got[1][1] = 70
	again, _ := Get(s, KeyValuations)
	assert.Equal(t, float64(2), again[1][1])

	outcomes := map[string]Outcome{"b": {Rule: RuleBorda, Winner: 2, Scores: ScoreTable{2: 8}}}
	s = With(s, KeyOutcomes, outcomes)
	outcomes["b"].Scores[2] = 0

	stored, ok := Get(s, KeyOutcomes)
	require.True(t, ok)
	assert.Equal(t, float64(8), stored["b"].Scores[2])
}

func TestStateTypeSafety(t *testing.T) {
	s := With(NewState(), NewKey[string]("profile"), "not a profile")

	_, ok := Get(s, KeyProfile)
	assert.False(t, ok)
}

func TestZeroStateWith(t *testing.T) {
	var s State
	s = With(s, KeyElectionID, "e-1")

	id, ok := Get(s, KeyElectionID)
	require.True(t, ok)
	assert.Equal(t, "e-1", id)
}
