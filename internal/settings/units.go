package settings

import "math"

const (
	MinMeterDB = -60.0
	MaxMeterDB = -20.0
)

// DBToPercent maps a level in [-60, -20] dB onto [0, 100] for meters.
func DBToPercent(db float64) float64 {
	if math.IsNaN(db) {
		return 0
	}
	pct := (db - MinMeterDB) / (MaxMeterDB - MinMeterDB) * 100

	return math.Max(0, math.Min(100, pct))
}

// PercentToDB is the inverse of DBToPercent, rounded to whole decibels.
func PercentToDB(pct float64) float64 {
	pct = math.Max(0, math.Min(100, pct))

	return math.Round(MinMeterDB + pct/100*(MaxMeterDB-MinMeterDB))
}

// NormalizeVolume upgrades legacy fractional volumes (0..1) to percent.
func NormalizeVolume(v float64) float64 {
	if v <= 1 {
		return math.Round(v * 100)
	}

	return v
}
