package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// TieBreakKind enumerates the deterministic tie-breaking strategies.
type TieBreakKind string

// Supported tie-breaking strategies.
const (
	// TieMax selects the numerically largest co-winner.
	TieMax TieBreakKind = "max"
	// TieMin selects the numerically smallest co-winner.
	TieMin TieBreakKind = "min"
	// TieAgent selects the co-winner ranked highest by a designated agent.
	TieAgent TieBreakKind = "agent"
)

// TieBreak is a tagged tie-break mode. The agent is only meaningful when
// Kind is TieAgent.
type TieBreak struct {
	Kind  TieBreakKind
	Agent Agent
}

// TieBreakMax returns the select-maximum mode.
func TieBreakMax() TieBreak { return TieBreak{Kind: TieMax} }

// TieBreakMin returns the select-minimum mode.
func TieBreakMin() TieBreak { return TieBreak{Kind: TieMin} }

// TieBreakAgent returns the mode that defers to the given agent's ranking.
func TieBreakAgent(agent Agent) TieBreak { return TieBreak{Kind: TieAgent, Agent: agent} }

// String renders the mode in the form accepted by ParseTieBreak.
func (tb TieBreak) String() string {
	if tb.Kind == TieAgent {
		return fmt.Sprintf("agent:%d", tb.Agent)
	}
	return string(tb.Kind)
}

// ParseTieBreak parses "max", "min", "agent:<i>" or a bare agent number.
// Agent numbers start at 1.
func ParseTieBreak(s string) (TieBreak, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case string(TieMax):
		return TieBreakMax(), nil
	case string(TieMin):
		return TieBreakMin(), nil
	}

	raw := strings.TrimPrefix(s, string(TieAgent)+":")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return TieBreak{}, fmt.Errorf("%w: %q", ErrInvalidTieBreakMode, s)
	}
	if n < 1 {
		return TieBreak{}, fmt.Errorf("%w: agent %d must be at least 1", ErrInvalidTieBreakMode, n)
	}
	return TieBreakAgent(Agent(n)), nil
}

// Validate checks the mode against the profile it will be applied to. The
// profile may be nil for the max and min modes.
func (tb TieBreak) Validate(p *Profile) error {
	switch tb.Kind {
	case TieMax, TieMin:
		return nil
	case TieAgent:
		if p == nil {
			return fmt.Errorf("%w: agent %d given but no profile to consult", ErrInvalidTieBreakMode, tb.Agent)
		}
		if !p.HasAgent(tb.Agent) {
			return fmt.Errorf("%w: agent %d is not in the profile", ErrInvalidTieBreakMode, tb.Agent)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidTieBreakMode, tb.Kind)
	}
}

// BreakTie reduces a set of co-winners to a single alternative. The
// profile is only consulted in agent mode.
func BreakTie(candidates []Alternative, tb TieBreak, p *Profile) (Alternative, error) {
	if len(candidates) == 0 {
		return 0, ErrEmptyCandidateSet
	}
	if err := tb.Validate(p); err != nil {
		return 0, err
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	switch tb.Kind {
	case TieMax:
		return slices.Max(candidates), nil
	case TieMin:
		return slices.Min(candidates), nil
	default:
		ranking, err := p.Ranking(tb.Agent)
		if err != nil {
			return 0, err
		}
		// Rankings are total, so the first candidate met is the unique answer.
		for _, alt := range ranking {
			if slices.Contains(candidates, alt) {
				return alt, nil
			}
		}
		return 0, fmt.Errorf("%w: agent %d ranks none of %v", ErrInvalidProfile, tb.Agent, candidates)
	}
}
