package domain

import (
	"fmt"
	"maps"
	"slices"
)

// Key is a type-safe key for values held in State. The type parameter
// ties each key to the type stored under it.
type Key[T any] struct{ name string }

// NewKey creates a new Key with the specified name and type.
func NewKey[T any](name string) Key[T] { return Key[T]{name: name} }

// Name returns the string the key is stored under.
func (k Key[T]) Name() string { return k.name }

// Predefined keys used when rules run over an election State.
var (
	// KeyElectionID identifies one run of a panel of rules.
	KeyElectionID = Key[string]{"election.id"}

	// KeyProfile stores the agents' preference profile.
	KeyProfile = Key[*Profile]{"profile"}

	// KeyValuations stores the valuation table used by range voting.
	KeyValuations = Key[ValuationTable]{"valuations"}

	// KeyTieBreak stores the default tie-break mode for rules that do
	// not configure their own.
	KeyTieBreak = Key[TieBreak]{"tie_break"}

	// KeyOutcome stores the outcome of the most recent rule.
	KeyOutcome = Key[Outcome]{"outcome"}

	// KeyOutcomes stores outcomes keyed by rule id after a panel run.
	KeyOutcomes = Key[map[string]Outcome]{"outcomes"}
)

// State is an immutable bag of election inputs and results passed between
// rules. Updates return a new State; the receiver is never modified.
type State struct {
	data map[string]any
}

// NewState creates a new empty State.
func NewState() State {
	return State{data: make(map[string]any)}
}

// Get retrieves a value with compile-time type safety. Mutable values are
// copied on the way out.
func Get[T any](s State, key Key[T]) (T, bool) {
	var zero T
	value, exists := s.data[key.name]
	if !exists {
		return zero, false
	}
	val, ok := copyValue(value).(T)
	return val, ok
}

// With returns a new State holding value under key.
func With[T any](s State, key Key[T], value T) State {
	newData := maps.Clone(s.data)
	if newData == nil {
		newData = make(map[string]any, 1)
	}
	newData[key.name] = copyValue(value)
	return State{data: newData}
}

// Keys returns all keys present in the State in sorted order.
func (s State) Keys() []string {
	return slices.Sorted(maps.Keys(s.data))
}

// String returns a string representation of the State for debugging.
func (s State) String() string {
	return fmt.Sprintf("State%v", s.data)
}

// copyValue copies the mutable types stored under the predefined keys.
// *Profile is immutable and shared as is.
func copyValue(value any) any {
	switch v := value.(type) {
	case ValuationTable:
		return v.Clone()
	case Outcome:
		return v.Clone()
	case map[string]Outcome:
		c := make(map[string]Outcome, len(v))
		for k, o := range v {
			c[k] = o.Clone()
		}
		return c
	default:
		return value
	}
}
