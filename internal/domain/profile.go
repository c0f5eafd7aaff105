// Package domain contains the preference model and the social-choice rules
// that map a preference profile to a single winning alternative.
// Everything here is pure: no I/O, no shared mutable state.
package domain

import (
	"fmt"
	"maps"
	"slices"
)

// Alternative identifies one of the choices being voted on. Identifiers
// are compared numerically by the max and min tie-break modes.
type Alternative int

// Agent identifies a voter contributing one preference ordering.
type Agent int

// Ranking is a total order over the alternatives, most preferred first.
type Ranking []Alternative

// Profile is an immutable collection of agents' rankings over an identical
// set of alternatives. The zero value is not usable; build one with
// NewProfile or NewProfileFromMap.
type Profile struct {
	agents       []Agent
	rankings     map[Agent]Ranking
	positions    map[Agent]map[Alternative]int
	alternatives []Alternative
}

// NewProfile builds a profile from rankings, assigning agents 1..n in the
// order the rankings are given.
func NewProfile(rankings ...Ranking) (*Profile, error) {
	byAgent := make(map[Agent]Ranking, len(rankings))
	for i, r := range rankings {
		byAgent[Agent(i+1)] = r
	}
	return NewProfileFromMap(byAgent)
}

// NewProfileFromMap builds a profile from explicit agent identifiers.
// Every ranking must be a permutation of the same alternative set; all
// defects are reported together in a ValidationError wrapping
// ErrInvalidProfile.
func NewProfileFromMap(rankings map[Agent]Ranking) (*Profile, error) {
	verr := NewValidationError("Profile", ErrInvalidProfile)
	if len(rankings) == 0 {
		verr.AddError("profile has no agents")
		return nil, verr
	}

	agents := slices.Sorted(maps.Keys(rankings))

	// The first agent's ranking defines the reference alternative set.
	reference := make(map[Alternative]struct{})
	for _, alt := range rankings[agents[0]] {
		reference[alt] = struct{}{}
	}
	if len(reference) == 0 {
		verr.AddErrorf("agent %d has an empty ranking", agents[0])
		return nil, verr
	}

	p := &Profile{
		agents:       agents,
		rankings:     make(map[Agent]Ranking, len(rankings)),
		positions:    make(map[Agent]map[Alternative]int, len(rankings)),
		alternatives: slices.Sorted(maps.Keys(reference)),
	}

	for _, agent := range agents {
		ranking := rankings[agent]
		pos := make(map[Alternative]int, len(ranking))
		for i, alt := range ranking {
			if _, dup := pos[alt]; dup {
				verr.AddErrorf("agent %d ranks alternative %d more than once", agent, alt)
				continue
			}
			if _, ok := reference[alt]; !ok {
				verr.AddErrorf("agent %d ranks unknown alternative %d", agent, alt)
				continue
			}
			pos[alt] = i
		}
		for _, alt := range p.alternatives {
			if _, ok := pos[alt]; !ok {
				verr.AddErrorf("agent %d omits alternative %d", agent, alt)
			}
		}
		p.rankings[agent] = slices.Clone(ranking)
		p.positions[agent] = pos
	}

	if verr.HasErrors() {
		return nil, verr
	}
	return p, nil
}

// Agents returns the agent identifiers in ascending order.
func (p *Profile) Agents() []Agent { return slices.Clone(p.agents) }

// Alternatives returns the alternative set in ascending order.
func (p *Profile) Alternatives() []Alternative { return slices.Clone(p.alternatives) }

// NumAgents returns n, the number of agents.
func (p *Profile) NumAgents() int { return len(p.agents) }

// NumAlternatives returns m, the number of alternatives.
func (p *Profile) NumAlternatives() int { return len(p.alternatives) }

// HasAgent reports whether the agent contributed a ranking to the profile.
func (p *Profile) HasAgent(agent Agent) bool {
	_, ok := p.rankings[agent]
	return ok
}

// Ranking returns a copy of the agent's ranking.
func (p *Profile) Ranking(agent Agent) (Ranking, error) {
	r, ok := p.rankings[agent]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAgent, agent)
	}
	return slices.Clone(r), nil
}

// Position returns the 0-based rank of alt in the agent's ranking.
func (p *Profile) Position(agent Agent, alt Alternative) (int, error) {
	pos, ok := p.positions[agent]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownAgent, agent)
	}
	i, ok := pos[alt]
	if !ok {
		return 0, fmt.Errorf("%w: alternative %d is not in the profile", ErrInvalidProfile, alt)
	}
	return i, nil
}

// Top returns the agent's most preferred alternative.
func (p *Profile) Top(agent Agent) (Alternative, error) {
	r, ok := p.rankings[agent]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownAgent, agent)
	}
	return r[0], nil
}

// Bottom returns the agent's least preferred alternative.
func (p *Profile) Bottom(agent Agent) (Alternative, error) {
	r, ok := p.rankings[agent]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownAgent, agent)
	}
	return r[len(r)-1], nil
}

// Restrict returns the profile over the active alternatives only. Each
// agent keeps the relative order of the alternatives that remain, so an
// agent whose favourite was removed now ranks their best surviving
// alternative first.
func (p *Profile) Restrict(active []Alternative) (*Profile, error) {
	keep := make(map[Alternative]struct{}, len(active))
	for _, alt := range active {
		if _, ok := p.positions[p.agents[0]][alt]; !ok {
			return nil, fmt.Errorf("%w: alternative %d is not in the profile", ErrInvalidProfile, alt)
		}
		keep[alt] = struct{}{}
	}

	restricted := make(map[Agent]Ranking, len(p.agents))
	for _, agent := range p.agents {
		r := make(Ranking, 0, len(keep))
		for _, alt := range p.rankings[agent] {
			if _, ok := keep[alt]; ok {
				r = append(r, alt)
			}
		}
		restricted[agent] = r
	}
	return NewProfileFromMap(restricted)
}

// Reversal returns the permutation that swaps the i-th smallest
// alternative with the i-th largest.
func (p *Profile) Reversal() map[Alternative]Alternative {
	perm := make(map[Alternative]Alternative, len(p.alternatives))
	for i, alt := range p.alternatives {
		perm[alt] = p.alternatives[len(p.alternatives)-1-i]
	}
	return perm
}

// Relabel returns the profile with every alternative renamed through perm.
// perm must map the profile's alternatives onto themselves one to one.
func (p *Profile) Relabel(perm map[Alternative]Alternative) (*Profile, error) {
	if err := checkPermutation(p.alternatives, perm); err != nil {
		return nil, err
	}
	relabeled := make(map[Agent]Ranking, len(p.agents))
	for _, agent := range p.agents {
		r := make(Ranking, len(p.rankings[agent]))
		for i, alt := range p.rankings[agent] {
			r[i] = perm[alt]
		}
		relabeled[agent] = r
	}
	return NewProfileFromMap(relabeled)
}

func checkPermutation(alts []Alternative, perm map[Alternative]Alternative) error {
	if len(perm) != len(alts) {
		return fmt.Errorf("%w: permutation covers %d alternatives, want %d", ErrInvalidProfile, len(perm), len(alts))
	}
	seen := make(map[Alternative]struct{}, len(alts))
	for _, alt := range alts {
		image, ok := perm[alt]
		if !ok {
			return fmt.Errorf("%w: permutation omits alternative %d", ErrInvalidProfile, alt)
		}
		if !slices.Contains(alts, image) {
			return fmt.Errorf("%w: alternative %d maps outside the profile", ErrInvalidProfile, alt)
		}
		if _, dup := seen[image]; dup {
			return fmt.Errorf("%w: alternative %d is the image of two alternatives", ErrInvalidProfile, image)
		}
		seen[image] = struct{}{}
	}
	return nil
}

// ProfileFromValuations derives a profile from a valuation matrix whose
// rows are agents 1..n and whose columns are alternatives 1..m. Each agent
// ranks alternatives by descending valuation; equal valuations place the
// higher-numbered alternative first.
func ProfileFromValuations(rows [][]float64) (*Profile, error) {
	verr := NewValidationError("Valuations", ErrInvalidProfile)
	if len(rows) == 0 {
		verr.AddError("valuation matrix has no rows")
		return nil, verr
	}

	rankings := make([]Ranking, len(rows))
	for i, row := range rows {
		if len(row) != len(rows[0]) {
			verr.AddErrorf("row %d has %d valuations, want %d", i+1, len(row), len(rows[0]))
			continue
		}
		r := make(Ranking, len(row))
		for j := range row {
			r[j] = Alternative(j + 1)
		}
		slices.SortStableFunc(r, func(a, b Alternative) int {
			va, vb := row[a-1], row[b-1]
			switch {
			case va > vb:
				return -1
			case va < vb:
				return 1
			default:
				return int(b - a)
			}
		})
		rankings[i] = r
	}
	if verr.HasErrors() {
		return nil, verr
	}
	return NewProfile(rankings...)
}
