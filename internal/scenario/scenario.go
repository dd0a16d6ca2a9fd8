package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/energy-sim/internal/domain/energy"
)

var (
	// ErrInvalidScenario is returned when a scenario file is malformed.
	ErrInvalidScenario = errors.New("invalid scenario")

	// idNamespace seeds the name-based identities of unnamed nodes.
	idNamespace = uuid.MustParse("6f1c2b8e-4d0a-4f53-9b7e-2a6c8d5e1f30") //nolint:gochecknoglobals // Constant seed.
)

// Scenario is the root of a topology file.
type Scenario struct {
	// Nations are ticked by the clock.
	Nations []*Nation `yaml:"nations"`
}

// Nation describes a top-level aggregator.
type Nation struct {
	ID           string    `yaml:"id"`
	Name         string    `yaml:"name"`
	CountryCode  string    `yaml:"country_code"`
	GDPPerCapita float64   `yaml:"gdp_per_capita"`
	Regions      []*Region `yaml:"regions"`
}

// Region describes a mid-level aggregator.
type Region struct {
	ID               string         `yaml:"id"`
	Name             string         `yaml:"name"`
	Climate          energy.Climate `yaml:"climate"`
	DevelopmentLevel string         `yaml:"development_level"`
	Entities         []*Entity      `yaml:"entities"`
}

// Entity describes one entity, or Count identical copies of it.
type Entity struct {
	// State starts from the kind's defaults; attributes in the file override them.
	State *energy.EntityState
	// Count replicates the entity; zero means one.
	Count int
}

// entityHeader holds the fields needed before the state can be decoded.
type entityHeader struct {
	Kind  energy.Kind `yaml:"kind"`
	Count int         `yaml:"count"`
}

// UnmarshalYAML decodes the entity on top of its kind's default attributes.
func (e *Entity) UnmarshalYAML(node *yaml.Node) error {
	var header entityHeader
	if err := node.Decode(&header); err != nil {
		return err
	}

	st, err := energy.NewEntityState("", header.Kind)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}

	if err = node.Decode(st); err != nil {
		return err
	}

	e.State = st
	e.Count = header.Count

	return nil
}

// Load reads and validates a scenario file, assigning identities to unnamed nodes.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes and validates a scenario document.
func Parse(data []byte) (*Scenario, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))

	var sc Scenario
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}

	if err := sc.normalize(); err != nil {
		return nil, err
	}

	return &sc, nil
}

// stableID derives a repeatable identity from a node's position in the tree.
func stableID(path string) string {
	return uuid.NewSHA1(idNamespace, []byte(path)).String()
}

// normalize fills missing identities, expands replicas and checks uniqueness.
func (sc *Scenario) normalize() error {
	seen := make(map[string]string)

	claim := func(id, what string) error {
		if previous, ok := seen[id]; ok {
			return fmt.Errorf("%w: %s %q already used by %s", ErrInvalidScenario, what, id, previous)
		}

		seen[id] = what

		return nil
	}

	for ni, nation := range sc.Nations {
		if nation.ID == "" {
			nation.ID = stableID("nation/" + strconv.Itoa(ni))
		}

		if err := claim(nation.ID, "nation"); err != nil {
			return err
		}

		for ri, region := range nation.Regions {
			if region.ID == "" {
				region.ID = stableID(nation.ID + "/region/" + strconv.Itoa(ri))
			}

			if err := claim(region.ID, "region"); err != nil {
				return err
			}

			expanded, err := expand(region)
			if err != nil {
				return err
			}

			for _, entity := range expanded {
				if err = claim(entity.State.ID, "entity"); err != nil {
					return err
				}
			}

			region.Entities = expanded
		}
	}

	return nil
}

// expand turns replicated entries into one entry per entity bound to region.
func expand(region *Region) ([]*Entity, error) {
	var out []*Entity

	for ei, entity := range region.Entities {
		if entity == nil || entity.State == nil {
			return nil, fmt.Errorf("%w: region %s entity %d is empty", ErrInvalidScenario, region.ID, ei)
		}

		if entity.Count < 0 {
			return nil, fmt.Errorf("%w: region %s entity %d has negative count", ErrInvalidScenario, region.ID, ei)
		}

		count := max(entity.Count, 1)
		base := entity.State.ID

		for i := range count {
			st := entity.State.Clone()
			st.RegionID = region.ID

			switch {
			case base == "":
				st.ID = stableID(region.ID + "/entity/" + strconv.Itoa(ei) + "/" + strconv.Itoa(i))
			case count > 1:
				st.ID = base + "-" + strconv.Itoa(i+1)
			}

			if st.Name == "" {
				st.Name = st.ID
			}

			if err := st.Validate(); err != nil {
				return nil, fmt.Errorf("%w: region %s entity %s: %w", ErrInvalidScenario, region.ID, st.ID, err)
			}

			out = append(out, &Entity{State: st, Count: 1})
		}
	}

	return out, nil
}

// EntityCount returns the number of entities after expansion.
func (sc *Scenario) EntityCount() int {
	n := 0

	for _, nation := range sc.Nations {
		for _, region := range nation.Regions {
			n += len(region.Entities)
		}
	}

	return n
}
