package energy

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
)

// Conversion factors to joules.
const (
	// JoulesPerKilocalorie converts dietary kilocalories.
	JoulesPerKilocalorie = 4184.0
	// JoulesPerKilowattHour converts electrical energy.
	JoulesPerKilowattHour = 3.6e6
	// JoulesPerLiterGasoline is the lower heating value of gasoline.
	JoulesPerLiterGasoline = 34.2e6
	// JoulesPerLiterDiesel is the lower heating value of diesel.
	JoulesPerLiterDiesel = 38.6e6
	// JoulesPerCubicMeterNaturalGas is the heating value of natural gas.
	JoulesPerCubicMeterNaturalGas = 38e6
	// SecondsPerDay converts watts into joules per day.
	SecondsPerDay = 86_400.0
)

// KilocaloriesToJoules converts kcal to J.
func KilocaloriesToJoules(kcal float64) float64 { return kcal * JoulesPerKilocalorie }

// KilowattHoursToJoules converts kWh to J.
func KilowattHoursToJoules(kwh float64) float64 { return kwh * JoulesPerKilowattHour }

// JoulesToKilowattHours converts J to kWh.
func JoulesToKilowattHours(j float64) float64 { return j / JoulesPerKilowattHour }

// GasolineLitersToJoules converts liters of gasoline to J.
func GasolineLitersToJoules(liters float64) float64 { return liters * JoulesPerLiterGasoline }

// DieselLitersToJoules converts liters of diesel to J.
func DieselLitersToJoules(liters float64) float64 { return liters * JoulesPerLiterDiesel }

// NaturalGasToJoules converts cubic meters of natural gas to J.
func NaturalGasToJoules(cubicMeters float64) float64 { return cubicMeters * JoulesPerCubicMeterNaturalGas }

// FormatJoules renders an energy amount with an SI prefix, e.g. "1.2 GJ".
func FormatJoules(j float64) string {
	value, prefix := humanize.ComputeSI(j)

	return fmt.Sprintf("%s %sJ", strconv.FormatFloat(value, 'f', 2, 64), prefix)
}
