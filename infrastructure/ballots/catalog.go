// Package ballots translates between human-readable alternative labels and
// the numeric alternatives used by the voting rules.
//
// A ranking is written with ">" separating labels from most to least
// preferred, for example "a > b > d > c".
package ballots

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/ahrav/go-ballot/internal/domain"
)

// Separator delimits labels in ranking notation.
const Separator = ">"

// maxSuggestDistance bounds how far a label may be from a known label and
// still be offered as a suggestion.
const maxSuggestDistance = 2

var (
	// ErrUnknownLabel is returned when a ranking names a label that is not
	// in the catalog.
	ErrUnknownLabel = errors.New("unknown alternative label")

	// ErrDuplicateLabel is returned when a catalog is built with two labels
	// that fold to the same key.
	ErrDuplicateLabel = errors.New("duplicate alternative label")

	// ErrEmptyLabel is returned for blank labels.
	ErrEmptyLabel = errors.New("alternative label cannot be empty")
)

// LabelError reports an unknown label together with the closest known
// label, if one is near enough.
type LabelError struct {
	Label      string
	Suggestion string
}

// Error implements the error interface.
func (e *LabelError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v: %q (did you mean %q?)", ErrUnknownLabel, e.Label, e.Suggestion)
	}
	return fmt.Sprintf("%v: %q", ErrUnknownLabel, e.Label)
}

// Unwrap returns ErrUnknownLabel.
func (e *LabelError) Unwrap() error { return ErrUnknownLabel }

// Catalog maps labels to alternatives 1..m in declaration order. Lookups
// are case-insensitive. A Catalog is immutable and safe for concurrent use.
type Catalog struct {
	labels []string
	index  map[string]domain.Alternative
}

// NewCatalog builds a catalog over the given labels.
func NewCatalog(labels ...string) (*Catalog, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: catalog needs at least one label", ErrEmptyLabel)
	}
	c := &Catalog{
		labels: make([]string, len(labels)),
		index:  make(map[string]domain.Alternative, len(labels)),
	}
	for i, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			return nil, fmt.Errorf("%w: position %d", ErrEmptyLabel, i+1)
		}
		key := fold(label)
		if _, dup := c.index[key]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLabel, label)
		}
		c.labels[i] = label
		c.index[key] = domain.Alternative(i + 1)
	}
	return c, nil
}

// Len returns the number of alternatives in the catalog.
func (c *Catalog) Len() int { return len(c.labels) }

// Lookup returns the alternative for label.
func (c *Catalog) Lookup(label string) (domain.Alternative, error) {
	label = strings.TrimSpace(label)
	if alt, ok := c.index[fold(label)]; ok {
		return alt, nil
	}
	return 0, &LabelError{Label: label, Suggestion: c.suggest(label)}
}

// Label returns the label of alt, or its number when alt is not catalogued.
func (c *Catalog) Label(alt domain.Alternative) string {
	if alt < 1 || int(alt) > len(c.labels) {
		return fmt.Sprintf("#%d", alt)
	}
	return c.labels[alt-1]
}

// Labels renders a list of alternatives.
func (c *Catalog) Labels(alts []domain.Alternative) []string {
	out := make([]string, len(alts))
	for i, alt := range alts {
		out[i] = c.Label(alt)
	}
	return out
}

// ParseRanking reads one ranking in "a > b > c" notation. Completeness is
// checked when the rankings are assembled into a profile.
func (c *Catalog) ParseRanking(s string) (domain.Ranking, error) {
	parts := strings.Split(s, Separator)
	ranking := make(domain.Ranking, 0, len(parts))
	for _, part := range parts {
		alt, err := c.Lookup(part)
		if err != nil {
			return nil, err
		}
		ranking = append(ranking, alt)
	}
	return ranking, nil
}

// ParseProfile reads one ranking per agent and builds the profile. Agents
// are numbered from 1 in the order given.
func (c *Catalog) ParseProfile(ballots []string) (*domain.Profile, error) {
	rankings := make([]domain.Ranking, len(ballots))
	for i, b := range ballots {
		r, err := c.ParseRanking(b)
		if err != nil {
			return nil, fmt.Errorf("ballot %d: %w", i+1, err)
		}
		rankings[i] = r
	}
	return domain.NewProfile(rankings...)
}

// FormatRanking renders a ranking in the notation ParseRanking reads.
func (c *Catalog) FormatRanking(r domain.Ranking) string {
	return strings.Join(c.Labels(r), " "+Separator+" ")
}

// suggest returns the closest known label within maxSuggestDistance, or
// the empty string. Ties go to the earlier label.
func (c *Catalog) suggest(label string) string {
	key := fold(label)
	best, bestDist := "", maxSuggestDistance+1
	for _, known := range c.labels {
		d := levenshtein.ComputeDistance(key, fold(known))
		if d < bestDist {
			best, bestDist = known, d
		}
	}
	return best
}

// fold normalizes a label for comparison. Casers are stateful, so each
// call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}
