package energy

import "fmt"

// EntityState is the durable state of one entity: common fields plus exactly
// one attribute block matching Kind.
type EntityState struct {
	// ID is the entity's identity.
	ID string `json:"id" yaml:"id"`
	// Name is a human readable label.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Kind selects which attribute block is populated.
	Kind Kind `json:"kind" yaml:"kind"`
	// RegionID is the aggregator that receives this entity's output.
	RegionID string `json:"region_id,omitempty" yaml:"region_id,omitempty"`

	Person     *PersonAttributes     `json:"person,omitempty" yaml:"person,omitempty"`
	House      *HouseAttributes      `json:"house,omitempty" yaml:"house,omitempty"`
	Vehicle    *VehicleAttributes    `json:"vehicle,omitempty" yaml:"vehicle,omitempty"`
	Business   *BusinessAttributes   `json:"business,omitempty" yaml:"business,omitempty"`
	DataCenter *DataCenterAttributes `json:"datacenter,omitempty" yaml:"datacenter,omitempty"`
	Farm       *FarmAttributes       `json:"farm,omitempty" yaml:"farm,omitempty"`
}

// NewEntityState returns a state of the given kind carrying default attributes.
func NewEntityState(id string, kind Kind) (*EntityState, error) {
	s := &EntityState{ID: id, Kind: kind}

	switch kind {
	case KindPerson:
		s.Person = &PersonAttributes{
			BasalMetabolicRate: DefaultBasalMetabolicRate,
			ActivityFactor:     DefaultActivityFactor,
		}
	case KindHouse:
		s.House = &HouseAttributes{
			SizeSquareMeters: DefaultHouseSize,
			HouseholdCount:   DefaultHouseholdCount,
			Climate:          ClimateContinental,
			InsulationFactor: DefaultInsulationFactor,
		}
	case KindVehicle:
		s.Vehicle = &VehicleAttributes{
			FuelType:           FuelGasoline,
			KilometersPerLiter: DefaultKilometersPerLiter,
			DailyDistanceKm:    DefaultDailyDistanceKm,
		}
	case KindBusiness:
		s.Business = &BusinessAttributes{
			Industry:         DefaultIndustry,
			Workforce:        DefaultWorkforce,
			OperationalHours: DefaultOperationalHours,
		}
	case KindDataCenter:
		s.DataCenter = &DataCenterAttributes{
			ServerCount:             DefaultServerCount,
			PowerUsageEffectiveness: DefaultPowerUsageEffectiveness,
			WattsPerServer:          DefaultWattsPerServer,
		}
	case KindFarm:
		s.Farm = &FarmAttributes{
			DieselLiters:   DefaultFarmDieselLiters,
			ElectricityKWh: DefaultFarmElectricityKWh,
			FoodOutput:     DefaultFarmFoodOutput,
			WasteRate:      DefaultFarmWasteRate,
		}
	default:
		return nil, fmt.Errorf("%w: unknown entity kind %q", ErrInvalidState, kind)
	}

	return s, nil
}

// Validate checks that the kind is known and that exactly the matching attribute block is set.
func (s *EntityState) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: entity state is nil", ErrInvalidState)
	}

	if s.ID == "" {
		return fmt.Errorf("%w: entity id is empty", ErrInvalidState)
	}

	if !s.Kind.Valid() {
		return fmt.Errorf("%w: unknown entity kind %q", ErrInvalidState, s.Kind)
	}

	blocks := map[Kind]bool{
		KindPerson:     s.Person != nil,
		KindHouse:      s.House != nil,
		KindVehicle:    s.Vehicle != nil,
		KindBusiness:   s.Business != nil,
		KindDataCenter: s.DataCenter != nil,
		KindFarm:       s.Farm != nil,
	}

	for kind, present := range blocks {
		if kind == s.Kind && !present {
			return fmt.Errorf("%w: %s entity has no %s attributes", ErrInvalidState, s.Kind, kind)
		}

		if kind != s.Kind && present {
			return fmt.Errorf("%w: %s entity carries %s attributes", ErrInvalidState, s.Kind, kind)
		}
	}

	if s.Farm != nil && (s.Farm.WasteRate < 0 || s.Farm.WasteRate > 1) {
		return fmt.Errorf("%w: farm waste rate %v is outside [0, 1]", ErrInvalidState, s.Farm.WasteRate)
	}

	return nil
}

// Clone returns a deep copy of the state.
func (s *EntityState) Clone() *EntityState {
	if s == nil {
		return nil
	}

	cloned := *s
	cloned.Person = clonePtr(s.Person)
	cloned.House = clonePtr(s.House)
	cloned.Vehicle = clonePtr(s.Vehicle)
	cloned.Business = clonePtr(s.Business)
	cloned.DataCenter = clonePtr(s.DataCenter)
	cloned.Farm = clonePtr(s.Farm)

	return &cloned
}

// Population is the number of people this entity represents in aggregate counts.
func (s *EntityState) Population() int64 {
	if s != nil && s.Kind == KindPerson {
		return 1
	}

	return 0
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}

	v := *p

	return &v
}
