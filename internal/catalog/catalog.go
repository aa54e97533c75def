// Package catalog defines the festival's event catalog: a closed set of event
// identifiers, the participation rules attached to each, and the lookups the
// registration flow and the catalog view need (filters, name matching, fees).
package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// EventID identifies one festival event. The zero value means "no event".
type EventID int

const (
	None EventID = iota
	TechTreasure
	BGMI
	BGMISolo
	TechShow
	StartupBid
	PosterMaking
	TechQuiz
	Tekken7
	CodeRelay
	FreeFire
	FreeFireSolo

	eventIDCount
)

// Valid reports whether id names a known event.
func (id EventID) Valid() bool {
	return id > None && id < eventIDCount
}

// Mode is how an event is entered.
type Mode string

const (
	Individual Mode = "individual"
	Team       Mode = "team"
)

// Category groups events for the catalog filter.
type Category string

const (
	Coding           Category = "coding"
	Quiz             Category = "quiz"
	Gaming           Category = "gaming"
	Design           Category = "design"
	Innovation       Category = "innovation"
	Entrepreneurship Category = "entrepreneurship"
)

// Definition holds the participation rules and display data of one event.
type Definition struct {
	ID            EventID  `json:"-"`
	Name          string   `json:"name"`
	Mode          Mode     `json:"mode"`
	Fee           int      `json:"fee"`
	MinTeamSize   int      `json:"minTeamSize"`
	MaxTeamSize   int      `json:"maxTeamSize,omitempty"` // 0 when unset
	CommunityLink string   `json:"communityLink"`
	Category      Category `json:"category"`
	Description   string   `json:"description"`
	Prize         string   `json:"prize"`
	// Note is shown and must be acknowledged before a squad-based solo
	// event is selected.
	Note string `json:"note,omitempty"`
}

// FixedTeamSize returns the team size of a team event whose minimum and
// maximum sizes are equal.
func (d Definition) FixedTeamSize() (int, bool) {
	if d.Mode == Team && d.MaxTeamSize != 0 && d.MinTeamSize == d.MaxTeamSize {
		return d.MinTeamSize, true
	}
	return 0, false
}

// UpperTeamSize is the largest team the event accepts (1 for individual
// events).
func (d Definition) UpperTeamSize() int {
	if d.MaxTeamSize == 0 {
		return 1
	}
	return d.MaxTeamSize
}

// techShowPairFee is what Tech Show costs for a team of exactly two.
const techShowPairFee = 50

// FeeFor returns the registration fee for a team of the given size. Every
// event charges its flat fee, except Tech Show at size 2. The festival
// catalog prices Tech Show at the pair fee already, so the override only
// shows when a catalog sets a different flat fee.
func (d Definition) FeeFor(teamSize int) int {
	if d.ID == TechShow && teamSize == 2 {
		return techShowPairFee
	}
	return d.Fee
}

// ErrInvalidDefinition is returned by New for inconsistent definitions.
var ErrInvalidDefinition = errors.New("invalid event definition")

// Catalog is an immutable, ordered set of event definitions.
type Catalog struct {
	order []EventID
	defs  map[EventID]Definition
}

// New builds a catalog, keeping the order the definitions are given in.
func New(defs ...Definition) (*Catalog, error) {
	c := &Catalog{defs: make(map[EventID]Definition, len(defs))}
	for _, d := range defs {
		if err := check(d); err != nil {
			return nil, err
		}
		if _, dup := c.defs[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id for %q", ErrInvalidDefinition, d.Name)
		}
		c.defs[d.ID] = d
		c.order = append(c.order, d.ID)
	}
	return c, nil
}

func check(d Definition) error {
	switch {
	case !d.ID.Valid():
		return fmt.Errorf("%w: unknown id %d", ErrInvalidDefinition, d.ID)
	case strings.TrimSpace(d.Name) == "":
		return fmt.Errorf("%w: empty name", ErrInvalidDefinition)
	case d.Fee < 0:
		return fmt.Errorf("%w: %s has a negative fee", ErrInvalidDefinition, d.Name)
	case d.MinTeamSize < 1:
		return fmt.Errorf("%w: %s needs a minimum team size of at least 1", ErrInvalidDefinition, d.Name)
	}
	switch d.Mode {
	case Individual:
		if d.MinTeamSize != 1 || d.MaxTeamSize > 1 {
			return fmt.Errorf("%w: individual event %s cannot take a team", ErrInvalidDefinition, d.Name)
		}
	case Team:
		if d.MaxTeamSize < d.MinTeamSize {
			return fmt.Errorf("%w: %s max team size %d below min %d",
				ErrInvalidDefinition, d.Name, d.MaxTeamSize, d.MinTeamSize)
		}
	default:
		return fmt.Errorf("%w: %s has unknown mode %q", ErrInvalidDefinition, d.Name, d.Mode)
	}
	return nil
}

// Lookup returns the definition for id.
func (c *Catalog) Lookup(id EventID) (Definition, bool) {
	d, ok := c.defs[id]
	return d, ok
}

// All returns every definition in catalog order.
func (c *Catalog) All() []Definition {
	out := make([]Definition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.defs[id])
	}
	return out
}

// ByMode returns the definitions entered in the given mode.
func (c *Catalog) ByMode(m Mode) []Definition {
	var out []Definition
	for _, d := range c.All() {
		if d.Mode == m {
			out = append(out, d)
		}
	}
	return out
}

// FilterAll selects every category.
const FilterAll = "all"

// Filter returns the definitions in the given category. An empty category or
// FilterAll returns the whole catalog.
func (c *Catalog) Filter(category string) []Definition {
	if category == "" || category == FilterAll {
		return c.All()
	}
	var out []Definition
	for _, d := range c.All() {
		if string(d.Category) == category {
			out = append(out, d)
		}
	}
	return out
}

// Name returns the display name of id, or "" when it is not in the catalog.
func (c *Catalog) Name(id EventID) string {
	return c.defs[id].Name
}

var (
	separatorRuns  = regexp.MustCompile(`[-_]+`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

func normalize(s string) string {
	s = strings.TrimSpace(s)
	s = separatorRuns.ReplaceAllString(s, " ")
	s = whitespaceRuns.ReplaceAllString(s, " ")
	// Casers keep state, so each call gets its own.
	return cases.Fold().String(s)
}

// Match resolves a free-form event name (as sent by the catalog view) to an
// event. Exact names win; otherwise names compare after trimming, turning
// dashes and underscores into spaces, collapsing whitespace and case folding.
func (c *Catalog) Match(name string) (EventID, bool) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return None, false
	}
	for _, id := range c.order {
		if c.defs[id].Name == trimmed {
			return id, true
		}
	}
	n := normalize(trimmed)
	for _, id := range c.order {
		if normalize(c.defs[id].Name) == n {
			return id, true
		}
	}
	return None, false
}
