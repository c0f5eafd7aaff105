package domain

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreVectors(t *testing.T) {
	assert.Equal(t, ScoreVector{1, 0, 0, 0}, PluralityVector(4))
	assert.Equal(t, ScoreVector{1, 1, 1, 0}, VetoVector(4))
	assert.Equal(t, ScoreVector{3, 2, 1, 0}, BordaVector(4))
	assert.InDeltaSlice(t, []float64{1, 0.5, 1.0 / 3, 0.25}, []float64(HarmonicVector(4)), 1e-12)

	// A single alternative still gets a well-formed vector.
	assert.Equal(t, ScoreVector{1}, PluralityVector(1))
	assert.Equal(t, ScoreVector{0}, VetoVector(1))
}

func TestPositionalRulesOnReferenceProfile(t *testing.T) {
	p := referenceProfile(t)

	tests := []struct {
		name   string
		rule   func(*Profile, TieBreak) (Outcome, error)
		winner Alternative
		scores ScoreTable
	}{
		{
			name:   "plurality",
			rule:   Plurality,
			winner: altB,
			scores: ScoreTable{altA: 1, altB: 2, altC: 0, altD: 1},
		},
		{
			name:   "borda",
			rule:   Borda,
			winner: altB,
			scores: ScoreTable{altA: 7, altB: 8, altC: 5, altD: 4},
		},
		{
			name:   "veto",
			rule:   Veto,
			winner: altA,
			scores: ScoreTable{altA: 4, altB: 3, altC: 3, altD: 2},
		},
		{
			name:   "harmonic",
			rule:   Harmonic,
			winner: altB,
			scores: ScoreTable{
				altA: 1 + 1.0/2 + 1.0/3 + 1.0/3,
				altB: 1.0/2 + 1 + 1 + 1.0/4,
				altC: 1.0/4 + 1.0/3 + 1.0/2 + 1.0/2,
				altD: 1.0/3 + 1.0/4 + 1.0/4 + 1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.rule(p, TieBreakMax())
			require.NoError(t, err)

			assert.Equal(t, tt.winner, out.Winner)
			assert.Equal(t, tt.name, out.Rule)
			assert.False(t, out.TieBroken)
			require.Len(t, out.Scores, len(tt.scores))
			for alt, want := range tt.scores {
				assert.InDelta(t, want, out.Scores[alt], 1e-9, "score of %d", alt)
			}

			// A unique maximum is insensitive to the tie-break mode.
			for _, mode := range []TieBreak{TieBreakMin(), TieBreakAgent(1), TieBreakAgent(4)} {
				again, err := tt.rule(p, mode)
				require.NoError(t, err)
				assert.Equal(t, tt.winner, again.Winner, "mode %s", mode)
			}
		})
	}
}

func TestPluralityTieBreak(t *testing.T) {
	p, err := NewProfile(
		Ranking{1, 2, 3},
		Ranking{2, 1, 3},
	)
	require.NoError(t, err)

	tests := []struct {
		mode TieBreak
		want Alternative
	}{
		{TieBreakMax(), 2},
		{TieBreakMin(), 1},
		{TieBreakAgent(1), 1},
		{TieBreakAgent(2), 2},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			out, err := Plurality(p, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Winner)
			assert.True(t, out.TieBroken)
			assert.Equal(t, []Alternative{1, 2}, out.Tied)
		})
	}
}

// cyclicProfile returns m agents whose rankings are the m rotations of
// 1..m, so every alternative occupies every position exactly once.
func cyclicProfile(t *testing.T, m int) *Profile {
	t.Helper()
	rankings := make([]Ranking, m)
	for i := range rankings {
		r := make(Ranking, m)
		for j := range r {
			r[j] = Alternative((j-i+m)%m + 1)
		}
		rankings[i] = r
	}
	p, err := NewProfile(rankings...)
	require.NoError(t, err)
	return p
}

func TestHarmonicCyclicProfileTiesEveryAlternative(t *testing.T) {
	for _, m := range []int{4, 6, 7} {
		t.Run(fmt.Sprintf("m=%d", m), func(t *testing.T) {
			p := cyclicProfile(t, m)
			wantTied := p.Alternatives()

			for _, tt := range []struct {
				mode   TieBreak
				winner Alternative
			}{
				{TieBreakMin(), 1},
				{TieBreakMax(), Alternative(m)},
				{TieBreakAgent(2), Alternative(m)},
			} {
				out, err := Harmonic(p, tt.mode)
				require.NoError(t, err)
				assert.Equal(t, wantTied, out.Tied, "mode %s", tt.mode)
				assert.True(t, out.TieBroken)
				assert.Equal(t, tt.winner, out.Winner, "mode %s", tt.mode)

				first := out.Scores[1]
				for alt, got := range out.Scores {
					assert.Equal(t, first, got, "score of %d", alt)
				}
			}

			// The same weights supplied as a plain vector tie the same way.
			out, err := ScoringRule(p, HarmonicVector(m), TieBreakMin())
			require.NoError(t, err)
			assert.Equal(t, wantTied, out.Tied)
			assert.Equal(t, Alternative(1), out.Winner)
		})
	}
}

func TestScoringRule(t *testing.T) {
	p := referenceProfile(t)

	t.Run("matches borda for the borda vector", func(t *testing.T) {
		generic, err := ScoringRule(p, ScoreVector{3, 2, 1, 0}, TieBreakMax())
		require.NoError(t, err)
		borda, err := Borda(p, TieBreakMax())
		require.NoError(t, err)

		assert.Equal(t, borda.Winner, generic.Winner)
		assert.Equal(t, borda.Scores, generic.Scores)
		assert.Equal(t, RuleScoring, generic.Rule)
	})

	t.Run("unsorted vector is applied descending", func(t *testing.T) {
		out, err := ScoringRule(p, ScoreVector{0, 1, 3, 2}, TieBreakMax())
		require.NoError(t, err)
		assert.Equal(t, altB, out.Winner)
		assert.Equal(t, float64(8), out.Scores[altB])
	})

	t.Run("does not mutate the caller's vector", func(t *testing.T) {
		v := ScoreVector{0, 1, 3, 2}
		_, err := ScoringRule(p, v, TieBreakMax())
		require.NoError(t, err)
		assert.Equal(t, ScoreVector{0, 1, 3, 2}, v)
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := ScoringRule(p, ScoreVector{1, 0}, TieBreakMax())
		assert.ErrorIs(t, err, ErrScoreVectorLengthMismatch)

		var rerr *RuleError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, RuleScoring, rerr.Rule)
	})

	t.Run("invalid weights", func(t *testing.T) {
		for _, bad := range []float64{-1, math.NaN(), math.Inf(1)} {
			_, err := ScoringRule(p, ScoreVector{bad, 1, 1, 0}, TieBreakMax())
			assert.ErrorIs(t, err, ErrInvalidScoreVector)
		}
	})

	t.Run("invalid tie-break agent fails before scoring", func(t *testing.T) {
		_, err := ScoringRule(p, BordaVector(4), TieBreakAgent(10))
		assert.ErrorIs(t, err, ErrInvalidTieBreakMode)
	})

	t.Run("nil profile", func(t *testing.T) {
		_, err := Borda(nil, TieBreakMax())
		assert.ErrorIs(t, err, ErrInvalidProfile)
	})
}

func TestPositionalWinnerIsAnAlternative(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	rules := []func(*Profile, TieBreak) (Outcome, error){Plurality, Veto, Borda, Harmonic, STV}

	for range 50 {
		p := randomProfile(t, rng, 1+rng.IntN(7), 1+rng.IntN(6))
		for _, rule := range rules {
			for _, mode := range []TieBreak{TieBreakMax(), TieBreakMin(), TieBreakAgent(1)} {
				out, err := rule(p, mode)
				require.NoError(t, err)
				assert.True(t, slices.Contains(p.Alternatives(), out.Winner))
				assert.True(t, slices.Contains(out.Tied, out.Winner))
			}
		}
	}
}

func TestDictatorship(t *testing.T) {
	p := referenceProfile(t)

	for _, agent := range p.Agents() {
		got, err := Dictatorship(p, agent)
		require.NoError(t, err)

		top, err := p.Top(agent)
		require.NoError(t, err)
		assert.Equal(t, top, got)
	}

	out, err := DictatorshipOutcome(p, 4)
	require.NoError(t, err)
	assert.Equal(t, altD, out.Winner)
	assert.Equal(t, ScoreTable{altA: 0, altB: 0, altC: 0, altD: 1}, out.Scores)

	_, err = Dictatorship(p, 0)
	assert.ErrorIs(t, err, ErrUnknownAgent)
}
