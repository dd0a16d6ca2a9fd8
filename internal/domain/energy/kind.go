package energy

import (
	"fmt"
	"strings"
)

// Kind is the closed set of entity categories.
type Kind string

const (
	// KindPerson consumes biological energy from food.
	KindPerson Kind = "person"
	// KindHouse consumes energy for climate control, appliances, lighting and hot water.
	KindHouse Kind = "house"
	// KindVehicle consumes fuel or electricity for daily travel.
	KindVehicle Kind = "vehicle"
	// KindBusiness consumes energy per employee and operational hour.
	KindBusiness Kind = "business"
	// KindDataCenter consumes energy for servers and cooling.
	KindDataCenter Kind = "datacenter"
	// KindFarm consumes fuel and electricity and produces food energy.
	KindFarm Kind = "farm"
)

// Kinds lists every valid entity kind.
//
//nolint:gochecknoglobals // Read-only lookup table.
var Kinds = []Kind{KindPerson, KindHouse, KindVehicle, KindBusiness, KindDataCenter, KindFarm}

// jitterBounds holds the relative per-tick variation of each kind.
//
//nolint:gochecknoglobals // Read-only lookup table.
var jitterBounds = map[Kind]float64{
	KindPerson:     0.05,
	KindHouse:      0.10,
	KindVehicle:    0.15,
	KindBusiness:   0.10,
	KindDataCenter: 0.05,
	KindFarm:       0.15,
}

// ParseKind converts user input into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown entity kind %q", ErrInvalidState, s)
	}

	return k, nil
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := jitterBounds[k]

	return ok
}

// JitterBound returns the half-width b of the uniform variation U(-b, b) applied to the kind's output.
func (k Kind) JitterBound() float64 {
	return jitterBounds[k]
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	return string(k)
}
