// Package economy implements the weekly campaign economy: settings
// resolution, the demographic model, supply and pricing, and the weekly
// aggregator that ties them together against the collaborator store.
package economy

import "math"

// CalibrationState is the one-way settings migration flag. Once the week-1
// self-calibration has run, it never runs again.
type CalibrationState uint8

const (
	Uncalibrated CalibrationState = iota
	Calibrated
)

func (c CalibrationState) String() string {
	if c == Calibrated {
		return "calibrated"
	}
	return "uncalibrated"
}

// Settings are the resolved, clamped economy tunables for a week.
type Settings struct {
	TaxRate         float64 // Share of gross value collected as tax [0, 1]
	PlayerShare     float64 // Share of tax income paid to the players [0, 1]
	EconomyScale    float64 // Global volume multiplier [0.01, 10]
	RandMin         float64 // Lower bound of the weekly noise band [0.1, 3]
	RandMax         float64 // Upper bound of the weekly noise band [0.1, 3]
	WarSeverity     float64 // 0 = peace, 1 = total war
	PriceElasticity float64 // Demand response exponent [0, 2]
	SpendPerCapita  float64 // Weekly gold spent per head, > 0
	TargetPayout    float64 // Player payout the calibration aims for, > 0
	BasePriceIndex  float64 // Price index frozen at calibration, > 0
	Calibration     CalibrationState
}

// RawSettings is the persisted settings row as the store hands it over.
// Nil fields are missing in storage; the resolver supplies defaults.
type RawSettings struct {
	TaxRate         *float64
	PlayerShare     *float64
	EconomyScale    *float64
	RandMin         *float64
	RandMax         *float64
	WarSeverity     *float64
	PriceElasticity *float64
	SpendPerCapita  *float64
	TargetPayout    *float64
	BasePriceIndex  *float64
	Calibrated      *bool
}

// Canonical defaults. Malformed or missing fields fall back here silently
// so the simulation stays computable on partial configuration.
const (
	DefaultTaxRate         = 0.10
	DefaultPlayerShare     = 0.20
	DefaultEconomyScale    = 1.0
	DefaultRandMin         = 0.90
	DefaultRandMax         = 1.10
	DefaultWarSeverity     = 0.0
	DefaultPriceElasticity = 0.35
	DefaultSpendPerCapita  = 0.0075
	DefaultTargetPayout    = 75.0
	DefaultBasePriceIndex  = 1.0
)

// DefaultPopulation is the week-1 fallback when no population row exists.
const DefaultPopulation int64 = 450_000

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// field resolves one raw value: nil, NaN, or infinite falls back to def.
func field(p *float64, def float64) float64 {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return def
	}
	return *p
}

// positiveField additionally rejects zero and negative values.
func positiveField(p *float64, def float64) float64 {
	v := field(p, def)
	if v <= 0 {
		return def
	}
	return v
}

// ResolveSettings turns a raw settings row into clamped, always-usable
// settings. It never fails: every malformed field independently falls
// back to its default before clamping.
func ResolveSettings(raw RawSettings) Settings {
	s := Settings{
		TaxRate:         clamp(field(raw.TaxRate, DefaultTaxRate), 0, 1),
		PlayerShare:     clamp(field(raw.PlayerShare, DefaultPlayerShare), 0, 1),
		EconomyScale:    clamp(positiveField(raw.EconomyScale, DefaultEconomyScale), 0.01, 10),
		RandMin:         clamp(positiveField(raw.RandMin, DefaultRandMin), 0.1, 3),
		RandMax:         clamp(positiveField(raw.RandMax, DefaultRandMax), 0.1, 3),
		WarSeverity:     clamp(field(raw.WarSeverity, DefaultWarSeverity), 0, 1),
		PriceElasticity: clamp(field(raw.PriceElasticity, DefaultPriceElasticity), 0, 2),
		SpendPerCapita:  positiveField(raw.SpendPerCapita, DefaultSpendPerCapita),
		TargetPayout:    positiveField(raw.TargetPayout, DefaultTargetPayout),
		BasePriceIndex:  positiveField(raw.BasePriceIndex, DefaultBasePriceIndex),
	}
	if s.RandMin > s.RandMax {
		s.RandMin, s.RandMax = s.RandMax, s.RandMin
	}
	if raw.Calibrated != nil && *raw.Calibrated {
		s.Calibration = Calibrated
	}
	return s
}
