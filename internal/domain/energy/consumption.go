package energy

// ConsumptionFunc computes the deterministic daily energy use of a validated state.
type ConsumptionFunc func(s *EntityState) float64

//nolint:gochecknoglobals // Read-only dispatch table.
var consumptionByKind = map[Kind]ConsumptionFunc{
	KindPerson:     func(s *EntityState) float64 { return s.Person.DailyUse() },
	KindHouse:      func(s *EntityState) float64 { return s.House.DailyUse() },
	KindVehicle:    func(s *EntityState) float64 { return s.Vehicle.DailyUse() },
	KindBusiness:   func(s *EntityState) float64 { return s.Business.DailyUse() },
	KindDataCenter: func(s *EntityState) float64 { return s.DataCenter.DailyUse() },
	KindFarm:       func(s *EntityState) float64 { return s.Farm.DailyUse() },
}

// ConsumptionFor returns the consumption function of a kind. The second result is
// false for unknown kinds.
func ConsumptionFor(kind Kind) (ConsumptionFunc, bool) {
	fn, ok := consumptionByKind[kind]

	return fn, ok
}
