package services

// Utility type codes as seeded in utility_types.
const (
	UtilityElectric = "electric"
	UtilityWater    = "water"
)

// ElectricMeterModulus is the wrap point of the 4-digit odometer-style
// electric meters installed in the rooms.
const ElectricMeterModulus = 10000

// ComputeUsage converts a start/end meter reading pair into consumption
// units. Electric meters wrap around zero at ElectricMeterModulus, so an end
// reading below the start reading means the meter rolled over during the
// cycle. Water meters do not wrap; a negative result is passed through
// unchanged so the operator can spot the entry mistake.
//
// Every consumer of meter consumption (bill creation, batch runs, exports,
// dashboards) must go through this function.
func ComputeUsage(meterStart, meterEnd float64, utilityCode string) float64 {
	if utilityCode == UtilityElectric && meterEnd < meterStart {
		return (ElectricMeterModulus - meterStart) + meterEnd
	}
	return meterEnd - meterStart
}
