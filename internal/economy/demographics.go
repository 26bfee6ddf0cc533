package economy

import (
	"math"

	"github.com/talgya/sun-imperium/internal/entropy"
)

// Canonical per-capita survival needs per week. Game-balance constants,
// not tunables: 2700 grain / 1800 water for the founding 450,000 souls.
const (
	GrainPerCapita = 0.006
	WaterPerCapita = 0.004
)

// Bounds for the survival supply factor: production can exceed need under
// strong recovery but never collapses to nothing.
const (
	survivalFactorMin = 0.10
	survivalFactorMax = 1.15
)

// Needs returns the grain and water a population requires for one week.
func Needs(population int64) (grain, water float64) {
	if population < 0 {
		population = 0
	}
	return float64(population) * GrainPerCapita, float64(population) * WaterPerCapita
}

// SurvivalRatio is the binding constraint across grain and water,
// expressed as produced/needed. A zero need means no scarcity is possible
// and that good contributes a ratio of 1.
func SurvivalRatio(grainProduced, waterProduced, grainNeeded, waterNeeded float64) float64 {
	grainRatio := 1.0
	if grainNeeded > 0 {
		grainRatio = grainProduced / grainNeeded
	}
	waterRatio := 1.0
	if waterNeeded > 0 {
		waterRatio = waterProduced / waterNeeded
	}
	ratio := math.Min(grainRatio, waterRatio)
	if ratio < 0 {
		ratio = 0
	}
	return ratio
}

// survivalSupplyFactor is the fraction of need actually produced for one
// survival good. Recovery pushes production toward (and past) full
// satisfaction; war severity drags it down. The per-good noise draw keeps
// grain and water from moving in lockstep while staying reproducible.
func survivalSupplyFactor(week int64, key string, recovery, war float64) float64 {
	base := 0.55 + 0.5*recovery - 0.45*war
	noise := entropy.Uniform(week, "SURVIVAL:"+key, -0.05, 0.05)
	return clamp(base+noise, survivalFactorMin, survivalFactorMax)
}

// PopulationRecord is the per-week demographic outcome. Created once per
// week by the aggregator; the carry-forward into the next week happens in
// the surrounding application.
type PopulationRecord struct {
	Week             int64
	Population       int64
	GrainNeeded      float64
	WaterNeeded      float64
	GrainProduced    int64
	WaterProduced    int64
	SurvivalRatio    float64
	Growth           int64
	DeathsStarvation int64
	DeathsWar        int64
	Note             string
}

// NextPopulation applies the week's deltas for the carry-forward row.
func (p PopulationRecord) NextPopulation() int64 {
	next := p.Population + p.Growth - p.DeathsStarvation - p.DeathsWar
	if next < 0 {
		next = 0
	}
	return next
}

// populationDeltas derives growth and deaths from the survival ratio.
// A fed population grows up to 0.5% a week; shortfall starves a quarter
// of the unfed fraction; war attrition scales with severity.
func populationDeltas(population int64, ratio, war float64) (growth, starved, warDead int64) {
	pop := float64(population)
	if ratio >= 1 {
		surplus := clamp(ratio-1, 0, 0.15) / 0.15
		growth = int64(math.Round(pop * 0.005 * surplus))
	} else {
		starved = int64(math.Round(pop * 0.25 * (1 - ratio)))
	}
	warDead = int64(math.Round(pop * 0.002 * clamp(war, 0, 1)))
	return growth, starved, warDead
}
