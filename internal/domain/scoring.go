package domain

import (
	"cmp"
	"fmt"
	"math"
	"math/big"
	"slices"
)

// Rule names reported in Outcome.Rule and RuleError.Rule.
const (
	RuleDictatorship = "dictatorship"
	RuleScoring      = "scoring"
	RulePlurality    = "plurality"
	RuleVeto         = "veto"
	RuleBorda        = "borda"
	RuleHarmonic     = "harmonic"
	RuleSTV          = "stv"
	RuleRange        = "range"
)

// ScoreVector holds the weight awarded to each rank position, highest
// first.
type ScoreVector []float64

// PluralityVector returns [1, 0, ..., 0] for m alternatives.
func PluralityVector(m int) ScoreVector {
	v := make(ScoreVector, m)
	if m > 0 {
		v[0] = 1
	}
	return v
}

// VetoVector returns [1, ..., 1, 0] for m alternatives.
func VetoVector(m int) ScoreVector {
	v := make(ScoreVector, m)
	for i := 0; i < m-1; i++ {
		v[i] = 1
	}
	return v
}

// BordaVector returns [m-1, m-2, ..., 0].
func BordaVector(m int) ScoreVector {
	v := make(ScoreVector, m)
	for i := range v {
		v[i] = float64(m - 1 - i)
	}
	return v
}

// HarmonicVector returns [1, 1/2, ..., 1/m].
func HarmonicVector(m int) ScoreVector {
	v := make(ScoreVector, m)
	for i := range v {
		v[i] = 1 / float64(i+1)
	}
	return v
}

// ScoringRule applies a positional score vector to every agent's ranking
// and returns the alternative with the highest total. The vector is
// applied sorted in descending order, so the largest weight always goes to
// first place.
func ScoringRule(p *Profile, vector ScoreVector, tb TieBreak) (Outcome, error) {
	return score(RuleScoring, p, vector, tb)
}

// Plurality elects the alternative ranked first by the most agents.
func Plurality(p *Profile, tb TieBreak) (Outcome, error) {
	return scoreWith(RulePlurality, p, PluralityVector, tb)
}

// Veto elects the alternative ranked last by the fewest agents.
func Veto(p *Profile, tb TieBreak) (Outcome, error) {
	return scoreWith(RuleVeto, p, VetoVector, tb)
}

// Borda gives m-1-j points to the alternative at position j.
func Borda(p *Profile, tb TieBreak) (Outcome, error) {
	return scoreWith(RuleBorda, p, BordaVector, tb)
}

// Harmonic gives 1/(j+1) points to the alternative at position j. Totals
// are summed as exact fractions, so alternatives whose harmonic sums are
// equal always tie.
func Harmonic(p *Profile, tb TieBreak) (Outcome, error) {
	if p == nil {
		return Outcome{}, NewRuleError(RuleHarmonic, "validate", fmt.Errorf("%w: nil profile", ErrInvalidProfile))
	}
	weights := make([]*big.Rat, p.NumAlternatives())
	for i := range weights {
		weights[i] = big.NewRat(1, int64(i+1))
	}
	return tally(RuleHarmonic, p, weights, tb)
}

func scoreWith(rule string, p *Profile, build func(int) ScoreVector, tb TieBreak) (Outcome, error) {
	if p == nil {
		return Outcome{}, NewRuleError(rule, "validate", fmt.Errorf("%w: nil profile", ErrInvalidProfile))
	}
	return score(rule, p, build(p.NumAlternatives()), tb)
}

// score is the positional scoring engine shared by every rank-based rule.
func score(rule string, p *Profile, vector ScoreVector, tb TieBreak) (Outcome, error) {
	if p == nil {
		return Outcome{}, NewRuleError(rule, "validate", fmt.Errorf("%w: nil profile", ErrInvalidProfile))
	}
	if len(vector) != p.NumAlternatives() {
		return Outcome{}, NewRuleError(rule, "validate", fmt.Errorf("%w: got %d weights for %d alternatives",
			ErrScoreVectorLengthMismatch, len(vector), p.NumAlternatives()))
	}
	for i, w := range vector {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return Outcome{}, NewRuleError(rule, "validate", fmt.Errorf("%w: weight %d is %v",
				ErrInvalidScoreVector, i, w))
		}
	}

	sorted := slices.Clone(vector)
	slices.SortFunc(sorted, func(a, b float64) int { return cmp.Compare(b, a) })
	weights := make([]*big.Rat, len(sorted))
	for j, w := range sorted {
		weights[j] = new(big.Rat).SetFloat64(w)
	}
	return tally(rule, p, weights, tb)
}

// tally awards weights[j] to the alternative at position j of every
// ranking. Sums are kept exact and only rounded to float64 for the
// reported table, so equal totals never drift apart through the order of
// additions.
func tally(rule string, p *Profile, weights []*big.Rat, tb TieBreak) (Outcome, error) {
	if err := tb.Validate(p); err != nil {
		return Outcome{}, NewRuleError(rule, "validate", err)
	}

	totals := make(map[Alternative]*big.Rat, p.NumAlternatives())
	for _, alt := range p.alternatives {
		totals[alt] = new(big.Rat)
	}
	for _, agent := range p.agents {
		for j, alt := range p.rankings[agent] {
			totals[alt].Add(totals[alt], weights[j])
		}
	}

	var best *big.Rat
	var tied []Alternative
	scores := make(ScoreTable, len(totals))
	for _, alt := range p.alternatives {
		total := totals[alt]
		scores[alt], _ = total.Float64()
		switch {
		case best == nil || total.Cmp(best) > 0:
			best, tied = total, []Alternative{alt}
		case total.Cmp(best) == 0:
			tied = append(tied, alt)
		}
	}
	return decide(rule, scores, tied, tb, p)
}
