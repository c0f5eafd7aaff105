package domain

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Alternatives of the four-agent reference election.
const (
	altA Alternative = iota + 1
	altB
	altC
	altD
)

// referenceProfile is a>b>d>c, b>a>c>d, b>c>a>d, d>c>a>b.
func referenceProfile(t testing.TB) *Profile {
	t.Helper()
	p, err := NewProfile(
		Ranking{altA, altB, altD, altC},
		Ranking{altB, altA, altC, altD},
		Ranking{altB, altC, altA, altD},
		Ranking{altD, altC, altA, altB},
	)
	require.NoError(t, err)
	return p
}

// randomProfile builds a reproducible profile of n agents over m alternatives.
func randomProfile(t testing.TB, rng *rand.Rand, n, m int) *Profile {
	t.Helper()
	rankings := make([]Ranking, n)
	for i := range rankings {
		r := make(Ranking, m)
		for j := range r {
			r[j] = Alternative(j + 1)
		}
		rng.Shuffle(m, func(a, b int) { r[a], r[b] = r[b], r[a] })
		rankings[i] = r
	}
	p, err := NewProfile(rankings...)
	require.NoError(t, err)
	return p
}

func TestNewProfile(t *testing.T) {
	t.Run("assigns agents in order", func(t *testing.T) {
		p := referenceProfile(t)

		assert.Equal(t, []Agent{1, 2, 3, 4}, p.Agents())
		assert.Equal(t, []Alternative{altA, altB, altC, altD}, p.Alternatives())
		assert.Equal(t, 4, p.NumAgents())
		assert.Equal(t, 4, p.NumAlternatives())
	})

	t.Run("accepts explicit agent identifiers", func(t *testing.T) {
		p, err := NewProfileFromMap(map[Agent]Ranking{
			7:  {2, 1},
			12: {1, 2},
		})
		require.NoError(t, err)

		assert.Equal(t, []Agent{7, 12}, p.Agents())
		assert.True(t, p.HasAgent(12))
		assert.False(t, p.HasAgent(1))
	})

	tests := []struct {
		name     string
		rankings map[Agent]Ranking
		wantMsgs []string
	}{
		{
			name:     "no agents",
			rankings: map[Agent]Ranking{},
			wantMsgs: []string{"profile has no agents"},
		},
		{
			name:     "empty ranking",
			rankings: map[Agent]Ranking{1: {}},
			wantMsgs: []string{"agent 1 has an empty ranking"},
		},
		{
			name:     "duplicate alternative",
			rankings: map[Agent]Ranking{1: {1, 2, 3}, 2: {1, 1, 3}},
			wantMsgs: []string{"agent 2 ranks alternative 1 more than once", "agent 2 omits alternative 2"},
		},
		{
			name:     "unknown alternative",
			rankings: map[Agent]Ranking{1: {1, 2}, 2: {1, 5}},
			wantMsgs: []string{"agent 2 ranks unknown alternative 5", "agent 2 omits alternative 2"},
		},
		{
			name:     "omission",
			rankings: map[Agent]Ranking{1: {1, 2, 3}, 2: {3, 1}},
			wantMsgs: []string{"agent 2 omits alternative 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProfileFromMap(tt.rankings)
			require.Error(t, err)
			assert.Nil(t, p)
			assert.ErrorIs(t, err, ErrInvalidProfile)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantMsgs, verr.Errors)
		})
	}
}

func TestProfileAccessors(t *testing.T) {
	p := referenceProfile(t)

	t.Run("top and bottom", func(t *testing.T) {
		top, err := p.Top(4)
		require.NoError(t, err)
		assert.Equal(t, altD, top)

		bottom, err := p.Bottom(1)
		require.NoError(t, err)
		assert.Equal(t, altC, bottom)
	})

	t.Run("position", func(t *testing.T) {
		pos, err := p.Position(3, altA)
		require.NoError(t, err)
		assert.Equal(t, 2, pos)

		_, err = p.Position(3, 42)
		assert.ErrorIs(t, err, ErrInvalidProfile)
	})

	t.Run("unknown agent", func(t *testing.T) {
		_, err := p.Top(9)
		assert.ErrorIs(t, err, ErrUnknownAgent)
		_, err = p.Bottom(9)
		assert.ErrorIs(t, err, ErrUnknownAgent)
		_, err = p.Ranking(9)
		assert.ErrorIs(t, err, ErrUnknownAgent)
		_, err = p.Position(9, altA)
		assert.ErrorIs(t, err, ErrUnknownAgent)
	})

	t.Run("ranking is a copy", func(t *testing.T) {
		r, err := p.Ranking(1)
		require.NoError(t, err)
		r[0] = altD

		top, err := p.Top(1)
		require.NoError(t, err)
		assert.Equal(t, altA, top)
	})
}

func TestProfileRestrict(t *testing.T) {
	p := referenceProfile(t)

	restricted, err := p.Restrict([]Alternative{altC, altD})
	require.NoError(t, err)

	assert.Equal(t, []Alternative{altC, altD}, restricted.Alternatives())
	for agent, want := range map[Agent]Ranking{
		1: {altD, altC},
		2: {altC, altD},
		3: {altC, altD},
		4: {altD, altC},
	} {
		got, err := restricted.Ranking(agent)
		require.NoError(t, err)
		assert.Equal(t, want, got, "agent %d", agent)
	}

	_, err = p.Restrict([]Alternative{altA, 9})
	assert.ErrorIs(t, err, ErrInvalidProfile)
}

func TestProfileFromValuations(t *testing.T) {
	t.Run("ranks by descending valuation", func(t *testing.T) {
		p, err := ProfileFromValuations([][]float64{
			{3, 4, 1},
			{5, 4, 1},
		})
		require.NoError(t, err)

		r1, _ := p.Ranking(1)
		r2, _ := p.Ranking(2)
		assert.Equal(t, Ranking{2, 1, 3}, r1)
		assert.Equal(t, Ranking{1, 2, 3}, r2)
	})

	t.Run("equal valuations favour the higher alternative", func(t *testing.T) {
		p, err := ProfileFromValuations([][]float64{{5, 5, 1, 5}})
		require.NoError(t, err)

		r, _ := p.Ranking(1)
		assert.Equal(t, Ranking{4, 2, 1, 3}, r)
	})

	t.Run("rejects ragged rows", func(t *testing.T) {
		_, err := ProfileFromValuations([][]float64{{1, 2}, {1}})
		assert.ErrorIs(t, err, ErrInvalidProfile)
	})

	t.Run("rejects empty matrix", func(t *testing.T) {
		_, err := ProfileFromValuations(nil)
		assert.ErrorIs(t, err, ErrInvalidProfile)
	})
}

func TestProfileRelabel(t *testing.T) {
	p := referenceProfile(t)
	perm := p.Reversal()
	assert.Equal(t, map[Alternative]Alternative{altA: altD, altB: altC, altC: altB, altD: altA}, perm)

	relabeled, err := p.Relabel(perm)
	require.NoError(t, err)
	r, err := relabeled.Ranking(1)
	require.NoError(t, err)
	assert.Equal(t, Ranking{altD, altC, altA, altB}, r)

	// Borda is neutral: renaming the alternatives renames the winner.
	before, err := Borda(p, TieBreakMax())
	require.NoError(t, err)
	after, err := Borda(relabeled, TieBreakMax())
	require.NoError(t, err)
	assert.Equal(t, perm[before.Winner], after.Winner)

	back, err := relabeled.Relabel(perm)
	require.NoError(t, err)
	original, _ := p.Ranking(3)
	restored, _ := back.Ranking(3)
	assert.Equal(t, original, restored)
}

func TestProfileRelabelRejectsNonPermutation(t *testing.T) {
	p := referenceProfile(t)

	tests := []struct {
		name string
		perm map[Alternative]Alternative
	}{
		{name: "too short", perm: map[Alternative]Alternative{altA: altB}},
		{name: "outside the profile", perm: map[Alternative]Alternative{altA: 9, altB: altB, altC: altC, altD: altD}},
		{name: "not one to one", perm: map[Alternative]Alternative{altA: altB, altB: altB, altC: altC, altD: altD}},
		{name: "wrong domain", perm: map[Alternative]Alternative{9: altA, altB: altB, altC: altC, altD: altD}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Relabel(tt.perm)
			assert.ErrorIs(t, err, ErrInvalidProfile)
		})
	}
}
