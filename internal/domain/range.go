package domain

import (
	"fmt"
	"maps"
	"slices"
)

// ValuationTable maps each alternative to the valuations it received, one
// per agent or evaluator. Entry i belongs to agent i+1.
type ValuationTable map[Alternative][]float64

// Clone returns an independent copy of the table.
func (vt ValuationTable) Clone() ValuationTable {
	c := make(ValuationTable, len(vt))
	for alt, vals := range vt {
		c[alt] = slices.Clone(vals)
	}
	return c
}

// Relabel returns a copy of the table with every alternative renamed
// through perm, which must map the table's alternatives onto themselves
// one to one.
func (vt ValuationTable) Relabel(perm map[Alternative]Alternative) (ValuationTable, error) {
	if err := checkPermutation(slices.Sorted(maps.Keys(vt)), perm); err != nil {
		return nil, err
	}
	c := make(ValuationTable, len(vt))
	for alt, vals := range vt {
		c[perm[alt]] = slices.Clone(vals)
	}
	return c, nil
}

// Totals sums each alternative's valuations.
func (vt ValuationTable) Totals() ScoreTable {
	totals := make(ScoreTable, len(vt))
	for alt, vals := range vt {
		var sum float64
		for _, v := range vals {
			sum += v
		}
		totals[alt] = sum
	}
	return totals
}

// Preferences derives the agents' preference profile from the table. The
// table must be rectangular and its alternatives numbered 1..m.
func (vt ValuationTable) Preferences() (*Profile, error) {
	verr := NewValidationError("ValuationTable", ErrInvalidProfile)
	alts := slices.Sorted(maps.Keys(vt))
	for i, alt := range alts {
		if alt != Alternative(i+1) {
			verr.AddErrorf("alternatives must be numbered 1..%d, found %d", len(alts), alt)
			return nil, verr
		}
	}

	n := len(vt[alts[0]])
	for _, alt := range alts {
		if len(vt[alt]) != n {
			verr.AddErrorf("alternative %d has %d valuations, want %d", alt, len(vt[alt]), n)
		}
	}
	if verr.HasErrors() {
		return nil, verr
	}

	rows := make([][]float64, n)
	for agent := range rows {
		rows[agent] = make([]float64, len(alts))
		for j, alt := range alts {
			rows[agent][j] = vt[alt][agent]
		}
	}
	return ProfileFromValuations(rows)
}

// RangeVoting elects the alternative with the largest sum of valuations.
// The profile is only consulted for agent tie-breaks; when it is nil in
// that mode, the profile implied by the table itself is used.
func RangeVoting(table ValuationTable, tb TieBreak, p *Profile) (Outcome, error) {
	if len(table) == 0 {
		return Outcome{}, NewRuleError(RuleRange, "validate", ErrEmptyValuationTable)
	}

	if tb.Kind == TieAgent && p == nil {
		derived, err := table.Preferences()
		if err != nil {
			return Outcome{}, NewRuleError(RuleRange, "derive preferences", err)
		}
		p = derived
	}
	if err := tb.Validate(p); err != nil {
		return Outcome{}, NewRuleError(RuleRange, "validate", err)
	}

	totals := table.Totals()
	_, tied := totals.Max()
	if len(tied) == 0 {
		return Outcome{}, NewRuleError(RuleRange, "sum", fmt.Errorf("%w: no comparable totals", ErrEmptyCandidateSet))
	}
	return decide(RuleRange, totals, tied, tb, p)
}
