// Week-state generation using layered simplex noise. Scores drift
// smoothly from week to week so a freshly seeded campaign has plausible
// regional texture without the DM entering every value by hand.

package realm

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds week-state generation parameters.
type GenConfig struct {
	Seed      int64   // Noise seed; same seed always yields the same campaign
	Amplitude float64 // Score range is roughly [-Amplitude, +Amplitude]
	Drift     float64 // Week-axis frequency; lower values drift more slowly
}

// DefaultGenConfig returns the standard campaign tuning: scores in about
// [-2, 2] drifting over a few weeks.
func DefaultGenConfig(seed int64) GenConfig {
	return GenConfig{
		Seed:      seed,
		Amplitude: 2.0,
		Drift:     0.23,
	}
}

// GenerateWeek produces region and family states for one week. The DM
// modifier is left at zero; overrides are applied on top of generated
// scores, never baked into them.
func GenerateWeek(cfg GenConfig, week int64, regions, families []string) ([]RegionWeek, []FamilyWeek) {
	prodNoise := opensimplex.NewNormalized(cfg.Seed)
	repNoise := opensimplex.NewNormalized(cfg.Seed + 1)

	regionStates := make([]RegionWeek, 0, len(regions))
	for i, name := range regions {
		v := octaveNoise(prodNoise, float64(i)*1.7, float64(week)*cfg.Drift, 3, 1.0, 0.5)
		regionStates = append(regionStates, RegionWeek{
			Region:          name,
			ProductionScore: scoreFromNoise(v, cfg.Amplitude),
		})
	}

	familyStates := make([]FamilyWeek, 0, len(families))
	for i, name := range families {
		v := octaveNoise(repNoise, float64(i)*1.7, float64(week)*cfg.Drift, 3, 1.0, 0.5)
		familyStates = append(familyStates, FamilyWeek{
			Family:          name,
			ReputationScore: scoreFromNoise(v, cfg.Amplitude),
		})
	}

	return regionStates, familyStates
}

// scoreFromNoise maps normalized noise in [0, 1] to [-amplitude, amplitude].
func scoreFromNoise(v, amplitude float64) float64 {
	return (v - 0.5) * 2.0 * amplitude
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
