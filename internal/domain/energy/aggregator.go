package energy

import (
	"fmt"
	"slices"
)

// Level distinguishes the two aggregator tiers.
type Level string

const (
	// LevelRegion aggregates entities.
	LevelRegion Level = "region"
	// LevelNation aggregates regions.
	LevelNation Level = "nation"
)

// ChildLevel returns the kind of address an aggregator at this level registers.
func (l Level) ChildLevel() string {
	if l == LevelNation {
		return string(LevelRegion)
	}

	return "entity"
}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	return l == LevelRegion || l == LevelNation
}

// AggregatorState is the durable state shared by regions and nations.
type AggregatorState struct {
	// ID is the aggregator's identity.
	ID string `json:"id" yaml:"id"`
	// Name is a human readable label.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Level is region or nation.
	Level Level `json:"level" yaml:"level"`
	// ParentID is the aggregator receiving this one's totals; empty for nations.
	ParentID string `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	// Children holds unique child identities in ascending order.
	Children []string `json:"children" yaml:"children"`
	// Population is the number of people counted in the latest tick.
	Population int64 `json:"population" yaml:"population"`

	// Climate of a region.
	Climate Climate `json:"climate,omitempty" yaml:"climate,omitempty"`
	// DevelopmentLevel of a region, informational.
	DevelopmentLevel string `json:"development_level,omitempty" yaml:"development_level,omitempty"`
	// CountryCode of a nation.
	CountryCode string `json:"country_code,omitempty" yaml:"country_code,omitempty"`
	// GDPPerCapita of a nation, informational.
	GDPPerCapita float64 `json:"gdp_per_capita,omitempty" yaml:"gdp_per_capita,omitempty"`
}

// NewAggregatorState returns the default state created on first activation.
func NewAggregatorState(id string, level Level) *AggregatorState {
	return &AggregatorState{
		ID:       id,
		Level:    level,
		Children: []string{},
	}
}

// Validate checks identity, level and child set invariants.
func (s *AggregatorState) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: aggregator state is nil", ErrInvalidState)
	}

	if s.ID == "" {
		return fmt.Errorf("%w: aggregator id is empty", ErrInvalidState)
	}

	if !s.Level.Valid() {
		return fmt.Errorf("%w: unknown aggregator level %q", ErrInvalidState, s.Level)
	}

	if s.ParentID == s.ID {
		return fmt.Errorf("%w: aggregator %s cannot be its own parent", ErrInvalidState, s.ID)
	}

	if slices.Contains(s.Children, s.ID) {
		return fmt.Errorf("%w: aggregator %s cannot be its own child", ErrInvalidState, s.ID)
	}

	if s.Population < 0 {
		return fmt.Errorf("%w: negative population %d", ErrInvalidState, s.Population)
	}

	return nil
}

// Normalize sorts children and removes duplicates and empty identities.
func (s *AggregatorState) Normalize() {
	children := slices.DeleteFunc(slices.Clone(s.Children), func(id string) bool { return id == "" })
	slices.Sort(children)

	s.Children = slices.Compact(children)
	if s.Children == nil {
		s.Children = []string{}
	}
}

// HasChild reports whether id is registered.
func (s *AggregatorState) HasChild(id string) bool {
	_, found := slices.BinarySearch(s.Children, id)

	return found
}

// AddChild inserts id keeping the set sorted. It returns false when id is already present.
func (s *AggregatorState) AddChild(id string) bool {
	pos, found := slices.BinarySearch(s.Children, id)
	if found {
		return false
	}

	s.Children = slices.Insert(s.Children, pos, id)

	return true
}

// RemoveChild deletes id. It returns false when id was not registered.
func (s *AggregatorState) RemoveChild(id string) bool {
	pos, found := slices.BinarySearch(s.Children, id)
	if !found {
		return false
	}

	s.Children = slices.Delete(s.Children, pos, pos+1)

	return true
}

// Clone returns a deep copy of the state.
func (s *AggregatorState) Clone() *AggregatorState {
	if s == nil {
		return nil
	}

	cloned := *s
	cloned.Children = slices.Clone(s.Children)

	if cloned.Children == nil {
		cloned.Children = []string{}
	}

	return &cloned
}
