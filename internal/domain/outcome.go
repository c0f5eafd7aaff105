package domain

import (
	"maps"
	"math"
	"slices"
)

// ScoreTable maps each alternative to its accumulated score. It is built
// fresh by every rule invocation.
type ScoreTable map[Alternative]float64

// Max returns the highest score and every alternative attaining it, in
// ascending order. An empty table yields -Inf and no alternatives.
func (t ScoreTable) Max() (float64, []Alternative) {
	return t.extreme(func(a, b float64) bool { return a > b }, math.Inf(-1))
}

// Min returns the lowest score and every alternative attaining it, in
// ascending order. An empty table yields +Inf and no alternatives.
func (t ScoreTable) Min() (float64, []Alternative) {
	return t.extreme(func(a, b float64) bool { return a < b }, math.Inf(1))
}

func (t ScoreTable) extreme(better func(a, b float64) bool, start float64) (float64, []Alternative) {
	best := start
	var winners []Alternative
	for _, alt := range slices.Sorted(maps.Keys(t)) {
		score := t[alt]
		switch {
		case better(score, best):
			best = score
			winners = append(winners[:0], alt)
		case score == best:
			winners = append(winners, alt)
		}
	}
	return best, winners
}

// Clone returns an independent copy of the table.
func (t ScoreTable) Clone() ScoreTable { return maps.Clone(t) }

// Round records one STV elimination pass.
type Round struct {
	// Number is the 1-based round counter.
	Number int `json:"number"`

	// Active is the alternative set at the start of the round.
	Active []Alternative `json:"active"`

	// Counts holds the first-place votes of every active alternative.
	Counts ScoreTable `json:"counts"`

	// Eliminated lists the alternatives removed at the end of the round.
	// It is empty for the final round when every active alternative tied.
	Eliminated []Alternative `json:"eliminated,omitempty"`
}

// Outcome is the result of applying a voting rule.
type Outcome struct {
	// Rule names the voting rule that produced this outcome.
	Rule string `json:"rule"`

	// Winner is the single selected alternative.
	Winner Alternative `json:"winner"`

	// Scores is the final score table. For STV it holds the last round's
	// first-place counts.
	Scores ScoreTable `json:"scores"`

	// Tied is the co-winner set that was handed to the tie-breaker.
	Tied []Alternative `json:"tied"`

	// TieBroken reports whether more than one alternative was tied.
	TieBroken bool `json:"tie_broken"`

	// TieBreak is the mode that picked the winner; set only when
	// TieBroken is true.
	TieBreak string `json:"tie_break,omitempty"`

	// Rounds is the STV elimination log; empty for one-shot rules.
	Rounds []Round `json:"rounds,omitempty"`
}

// Clone returns a deep copy of the outcome.
func (o Outcome) Clone() Outcome {
	c := o
	c.Scores = o.Scores.Clone()
	c.Tied = slices.Clone(o.Tied)
	if o.Rounds != nil {
		c.Rounds = make([]Round, len(o.Rounds))
		for i, r := range o.Rounds {
			c.Rounds[i] = Round{
				Number:     r.Number,
				Active:     slices.Clone(r.Active),
				Counts:     r.Counts.Clone(),
				Eliminated: slices.Clone(r.Eliminated),
			}
		}
	}
	return c
}

// decide breaks ties among the co-winners and assembles the outcome.
func decide(rule string, scores ScoreTable, tied []Alternative, tb TieBreak, p *Profile) (Outcome, error) {
	winner, err := BreakTie(tied, tb, p)
	if err != nil {
		return Outcome{}, NewRuleError(rule, "tie-break", err)
	}
	out := Outcome{
		Rule:      rule,
		Winner:    winner,
		Scores:    scores,
		Tied:      tied,
		TieBroken: len(tied) > 1,
	}
	if out.TieBroken {
		out.TieBreak = tb.String()
	}
	return out, nil
}
