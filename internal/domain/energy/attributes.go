package energy

import "strings"

// Climate is the climate zone a house or region belongs to.
type Climate string

// Climate zones.
const (
	ClimateTropical      Climate = "tropical"
	ClimateArid          Climate = "arid"
	ClimateTemperate     Climate = "temperate"
	ClimateContinental   Climate = "continental"
	ClimatePolar         Climate = "polar"
	ClimateMediterranean Climate = "mediterranean"
)

// FuelType selects the propulsion of a vehicle.
type FuelType string

// Fuel types.
const (
	FuelGasoline    FuelType = "gasoline"
	FuelDiesel      FuelType = "diesel"
	FuelElectricity FuelType = "electricity"
	FuelHybrid      FuelType = "hybrid"
)

// Default attribute values.
const (
	DefaultBasalMetabolicRate = 7_000_000.0
	DefaultActivityFactor     = 1.5
	DefaultWeightKg           = 70.0
	DefaultHeightCm           = 170.0

	DefaultHouseSize        = 100.0
	DefaultHouseholdCount   = 2
	DefaultInsulationFactor = 1.0

	DefaultKilometersPerLiter = 12.0
	DefaultDailyDistanceKm    = 40.0

	DefaultIndustry         = "office"
	DefaultWorkforce        = 50
	DefaultOperationalHours = 8

	DefaultServerCount            = 1000
	DefaultPowerUsageEffectiveness = 1.5
	DefaultWattsPerServer          = 500.0

	DefaultFarmDieselLiters   = 50.0
	DefaultFarmElectricityKWh = 30.0
	DefaultFarmFoodOutput     = 4e8
	DefaultFarmWasteRate      = 0.25
)

// hybridElectricShare is the fraction of a hybrid's distance covered electrically.
const hybridElectricShare = 0.6

// PersonAttributes describes an individual human.
type PersonAttributes struct {
	// Sex is "M" or "F" and selects the Mifflin-St Jeor constant.
	Sex string `json:"sex,omitempty" yaml:"sex,omitempty"`
	// AgeYears is the age in years.
	AgeYears int `json:"age_years,omitempty" yaml:"age_years,omitempty"`
	// WeightKg is the body weight used to derive the basal metabolic rate.
	WeightKg float64 `json:"weight_kg,omitempty" yaml:"weight_kg,omitempty"`
	// HeightCm is the body height used to derive the basal metabolic rate.
	HeightCm float64 `json:"height_cm,omitempty" yaml:"height_cm,omitempty"`
	// BasalMetabolicRate in joules per day. Derived when zero.
	BasalMetabolicRate float64 `json:"bmr_joules,omitempty" yaml:"bmr_joules,omitempty"`
	// ActivityFactor multiplies the basal rate (1.2 sedentary, 2.0 very active).
	ActivityFactor float64 `json:"activity_factor,omitempty" yaml:"activity_factor,omitempty"`
}

// MifflinStJeor returns the basal metabolic rate in joules per day for the given body parameters.
func MifflinStJeor(sex string, weightKg, heightCm float64, ageYears int) float64 {
	kcal := 10*weightKg + 6.25*heightCm - 5*float64(ageYears)

	if strings.EqualFold(strings.TrimSpace(sex), "M") || strings.EqualFold(strings.TrimSpace(sex), "male") {
		kcal += 5
	} else {
		kcal -= 161
	}

	return KilocaloriesToJoules(kcal)
}

// EffectiveBasalRate returns the configured basal rate or derives one.
func (p *PersonAttributes) EffectiveBasalRate() float64 {
	if p.BasalMetabolicRate > 0 {
		return p.BasalMetabolicRate
	}

	if p.WeightKg > 0 {
		height := p.HeightCm
		if height <= 0 {
			height = DefaultHeightCm
		}

		return MifflinStJeor(p.Sex, p.WeightKg, height, p.AgeYears)
	}

	return DefaultBasalMetabolicRate
}

// DailyUse returns the daily food intake in joules.
func (p *PersonAttributes) DailyUse() float64 {
	factor := p.ActivityFactor
	if factor <= 0 {
		factor = DefaultActivityFactor
	}

	return p.EffectiveBasalRate() * factor
}

// HouseAttributes describes a dwelling.
type HouseAttributes struct {
	// SizeSquareMeters is the heated floor area.
	SizeSquareMeters float64 `json:"size_m2" yaml:"size_m2"`
	// HouseholdCount is the number of occupants.
	HouseholdCount int `json:"household_count" yaml:"household_count"`
	// Climate selects the HVAC load per square meter.
	Climate Climate `json:"climate" yaml:"climate"`
	// InsulationFactor scales HVAC load (1.0 is typical, lower is better insulated).
	InsulationFactor float64 `json:"insulation_factor" yaml:"insulation_factor"`
}

// hvacPerSquareMeter returns the daily HVAC load in joules per square meter.
func hvacPerSquareMeter(c Climate) float64 {
	switch c {
	case ClimateTropical:
		return KilowattHoursToJoules(0.15)
	case ClimateArid:
		return KilowattHoursToJoules(0.20)
	case ClimateTemperate:
		return KilowattHoursToJoules(0.12)
	case ClimateContinental:
		return KilowattHoursToJoules(0.25)
	case ClimatePolar:
		return KilowattHoursToJoules(0.35)
	case ClimateMediterranean:
		return KilowattHoursToJoules(0.10)
	default:
		return KilowattHoursToJoules(0.15)
	}
}

// DailyUse returns HVAC, appliance, lighting and water heating energy in joules.
func (h *HouseAttributes) DailyUse() float64 {
	occupants := float64(h.HouseholdCount)

	hvac := hvacPerSquareMeter(h.Climate) * h.SizeSquareMeters * h.InsulationFactor
	appliances := KilowattHoursToJoules(5 * occupants)
	lighting := KilowattHoursToJoules(1 * occupants)
	waterHeating := KilowattHoursToJoules(4 * occupants)

	return hvac + appliances + lighting + waterHeating
}

// VehicleAttributes describes a road vehicle.
type VehicleAttributes struct {
	// FuelType selects the consumption formula.
	FuelType FuelType `json:"fuel_type" yaml:"fuel_type"`
	// KilometersPerLiter is the liquid fuel economy.
	KilometersPerLiter float64 `json:"km_per_liter,omitempty" yaml:"km_per_liter,omitempty"`
	// KWhPerKilometer is the electric consumption.
	KWhPerKilometer float64 `json:"kwh_per_km,omitempty" yaml:"kwh_per_km,omitempty"`
	// DailyDistanceKm is the distance travelled per day.
	DailyDistanceKm float64 `json:"daily_distance_km" yaml:"daily_distance_km"`
}

func (v *VehicleAttributes) liters() float64 {
	if v.KilometersPerLiter <= 0 {
		return 0
	}

	return v.DailyDistanceKm / v.KilometersPerLiter
}

// DailyUse returns the daily travel energy in joules.
func (v *VehicleAttributes) DailyUse() float64 {
	electric := KilowattHoursToJoules(v.KWhPerKilometer * v.DailyDistanceKm)

	switch v.FuelType {
	case FuelGasoline:
		return GasolineLitersToJoules(v.liters())
	case FuelDiesel:
		return DieselLitersToJoules(v.liters())
	case FuelElectricity:
		return electric
	case FuelHybrid:
		return electric*hybridElectricShare + GasolineLitersToJoules(v.liters())*(1-hybridElectricShare)
	default:
		return 0
	}
}

// BusinessAttributes describes a commercial site.
type BusinessAttributes struct {
	// Industry selects the per-employee load: office, retail, manufacturing or warehouse.
	Industry string `json:"industry" yaml:"industry"`
	// Workforce is the number of employees.
	Workforce int `json:"workforce" yaml:"workforce"`
	// OperationalHours per day; 8 hours is the reference.
	OperationalHours int `json:"operational_hours" yaml:"operational_hours"`
}

// perEmployee returns the daily load per employee in joules for an 8 hour day.
func perEmployee(industry string) float64 {
	switch strings.ToLower(strings.TrimSpace(industry)) {
	case "retail":
		return KilowattHoursToJoules(15)
	case "manufacturing":
		return KilowattHoursToJoules(100)
	case "warehouse":
		return KilowattHoursToJoules(25)
	default:
		return KilowattHoursToJoules(20)
	}
}

// DailyUse returns the daily site energy in joules.
func (b *BusinessAttributes) DailyUse() float64 {
	hoursFactor := float64(b.OperationalHours) / DefaultOperationalHours

	return perEmployee(b.Industry) * float64(b.Workforce) * hoursFactor
}

// DataCenterAttributes describes a computing facility.
type DataCenterAttributes struct {
	// SizeCategory is informational: small, large, cloudprovider or llmtraining.
	SizeCategory string `json:"size_category,omitempty" yaml:"size_category,omitempty"`
	// ServerCount is the number of servers.
	ServerCount int `json:"server_count" yaml:"server_count"`
	// PowerUsageEffectiveness is the facility overhead ratio.
	PowerUsageEffectiveness float64 `json:"pue" yaml:"pue"`
	// WattsPerServer is the average IT draw per server.
	WattsPerServer float64 `json:"watts_per_server" yaml:"watts_per_server"`
}

// DataCenterPreset returns attributes for a named size category.
func DataCenterPreset(size string) (DataCenterAttributes, bool) {
	category := strings.ToLower(strings.TrimSpace(size))

	switch category {
	case "small":
		return DataCenterAttributes{SizeCategory: category, ServerCount: 100, PowerUsageEffectiveness: 1.8, WattsPerServer: 400}, true
	case "large":
		return DataCenterAttributes{SizeCategory: category, ServerCount: 5000, PowerUsageEffectiveness: 1.4, WattsPerServer: 500}, true
	case "cloudprovider":
		return DataCenterAttributes{SizeCategory: category, ServerCount: 50000, PowerUsageEffectiveness: 1.2, WattsPerServer: 600}, true
	case "llmtraining":
		return DataCenterAttributes{SizeCategory: category, ServerCount: 10000, PowerUsageEffectiveness: 1.3, WattsPerServer: 1500}, true
	default:
		return DataCenterAttributes{}, false
	}
}

// DailyUse returns facility energy (IT load times PUE) in joules.
func (d *DataCenterAttributes) DailyUse() float64 {
	return float64(d.ServerCount) * d.WattsPerServer * d.PowerUsageEffectiveness * SecondsPerDay
}

// FarmAttributes describes an agricultural operation.
type FarmAttributes struct {
	// DieselLiters burned by machinery per day.
	DieselLiters float64 `json:"diesel_liters" yaml:"diesel_liters"`
	// ElectricityKWh consumed per day.
	ElectricityKWh float64 `json:"electricity_kwh" yaml:"electricity_kwh"`
	// FoodOutput is the gross food energy produced per day in joules.
	FoodOutput float64 `json:"food_output_joules" yaml:"food_output_joules"`
	// WasteRate is the fraction of food output lost, in [0, 1].
	WasteRate float64 `json:"waste_rate" yaml:"waste_rate"`
}

// DailyUse returns the operational energy in joules.
func (f *FarmAttributes) DailyUse() float64 {
	return DieselLitersToJoules(f.DieselLiters) + KilowattHoursToJoules(f.ElectricityKWh)
}

// NetFood returns food energy after waste in joules.
func (f *FarmAttributes) NetFood() float64 {
	return f.FoodOutput * (1 - f.WasteRate)
}

// EnergyReturnOnInvestment is net food energy over operational energy, zero when nothing is consumed.
func (f *FarmAttributes) EnergyReturnOnInvestment() float64 {
	operational := f.DailyUse()
	if operational == 0 {
		return 0
	}

	return f.NetFood() / operational
}
