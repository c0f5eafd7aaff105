package domain

import "fmt"

// Dictatorship returns the designated agent's most preferred alternative.
func Dictatorship(p *Profile, agent Agent) (Alternative, error) {
	if p == nil {
		return 0, NewRuleError(RuleDictatorship, "validate", fmt.Errorf("%w: nil profile", ErrInvalidProfile))
	}
	top, err := p.Top(agent)
	if err != nil {
		return 0, NewRuleError(RuleDictatorship, "top", err)
	}
	return top, nil
}

// DictatorshipOutcome wraps Dictatorship in an Outcome whose score table
// gives the dictator's choice 1 and every other alternative 0.
func DictatorshipOutcome(p *Profile, agent Agent) (Outcome, error) {
	winner, err := Dictatorship(p, agent)
	if err != nil {
		return Outcome{}, err
	}
	scores := make(ScoreTable, p.NumAlternatives())
	for _, alt := range p.alternatives {
		scores[alt] = 0
	}
	scores[winner] = 1
	return Outcome{
		Rule:   RuleDictatorship,
		Winner: winner,
		Scores: scores,
		Tied:   []Alternative{winner},
	}, nil
}
