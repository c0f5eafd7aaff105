package domain

import (
	"fmt"
	"slices"
)

// STV runs single transferable vote elimination. Each round counts
// first-place votes among the still-active alternatives and removes every
// alternative with the fewest. When a round would remove all remaining
// alternatives, they form the surviving set and are tie-broken; when a
// single alternative remains it wins outright.
func STV(p *Profile, tb TieBreak) (Outcome, error) {
	if p == nil {
		return Outcome{}, NewRuleError(RuleSTV, "validate", fmt.Errorf("%w: nil profile", ErrInvalidProfile))
	}
	if err := tb.Validate(p); err != nil {
		return Outcome{}, NewRuleError(RuleSTV, "validate", err)
	}

	active := p.Alternatives()
	var rounds []Round

	// Each round removes at least one alternative, so at most m rounds run.
	for r := 1; r <= p.NumAlternatives(); r++ {
		counts, err := firstPlaceCounts(p, active)
		if err != nil {
			return Outcome{}, NewRuleError(RuleSTV, fmt.Sprintf("round %d", r), err)
		}
		_, least := counts.Min()

		round := Round{Number: r, Active: slices.Clone(active), Counts: counts}

		if len(least) == len(active) {
			rounds = append(rounds, round)
			out, err := decide(RuleSTV, counts.Clone(), least, tb, p)
			if err != nil {
				return Outcome{}, err
			}
			out.Rounds = rounds
			return out, nil
		}

		round.Eliminated = least
		rounds = append(rounds, round)
		active = slices.DeleteFunc(active, func(alt Alternative) bool {
			return slices.Contains(least, alt)
		})

		if len(active) == 1 {
			survivor := active[0]
			return Outcome{
				Rule:   RuleSTV,
				Winner: survivor,
				Scores: counts.Clone(),
				Tied:   []Alternative{survivor},
				Rounds: rounds,
			}, nil
		}
	}

	// Unreachable for a valid profile: the active set shrinks every round.
	return Outcome{}, NewRuleError(RuleSTV, "eliminate", fmt.Errorf("no winner after %d rounds", p.NumAlternatives()))
}

// firstPlaceCounts tallies each agent's most preferred active alternative.
// Every active alternative appears in the table, possibly with zero votes.
func firstPlaceCounts(p *Profile, active []Alternative) (ScoreTable, error) {
	restricted, err := p.Restrict(active)
	if err != nil {
		return nil, err
	}
	counts := make(ScoreTable, len(active))
	for _, alt := range active {
		counts[alt] = 0
	}
	for _, agent := range restricted.agents {
		counts[restricted.rankings[agent][0]]++
	}
	return counts, nil
}
