// Package testutils holds shared fixtures for election tests.
package testutils

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ballot/internal/domain"
)

// Alternatives of the four-agent reference election, labelled a..d.
const (
	AltA domain.Alternative = iota + 1
	AltB
	AltC
	AltD
)

// ReferenceLabels names AltA..AltD in order.
var ReferenceLabels = []string{"a", "b", "c", "d"}

// ReferenceBallots is the reference election in ranking notation.
var ReferenceBallots = []string{
	"a > b > d > c",
	"b > a > c > d",
	"b > c > a > d",
	"d > c > a > b",
}

// ReferenceProfile returns the reference election:
// a>b>d>c, b>a>c>d, b>c>a>d, d>c>a>b.
//
// Plurality, Borda, Harmonic and STV elect b; Veto elects a.
func ReferenceProfile(t testing.TB) *domain.Profile {
	t.Helper()
	p, err := domain.NewProfile(
		domain.Ranking{AltA, AltB, AltD, AltC},
		domain.Ranking{AltB, AltA, AltC, AltD},
		domain.Ranking{AltB, AltC, AltA, AltD},
		domain.Ranking{AltD, AltC, AltA, AltB},
	)
	require.NoError(t, err)
	return p
}

// TiedValuations returns a table where alternatives 1 and 2 tie on 8.
func TiedValuations() domain.ValuationTable {
	return domain.ValuationTable{
		1: {3, 5},
		2: {4, 4},
		3: {1, 1},
	}
}

// ElectionState returns a state carrying the reference profile, the tied
// valuations and the given default tie-break.
func ElectionState(t testing.TB, tb domain.TieBreak) domain.State {
	t.Helper()
	s := domain.NewState()
	s = domain.With(s, domain.KeyProfile, ReferenceProfile(t))
	s = domain.With(s, domain.KeyValuations, TiedValuations())
	return domain.With(s, domain.KeyTieBreak, tb)
}
