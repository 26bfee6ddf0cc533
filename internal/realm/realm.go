// Package realm tracks per-week region and family state: production and
// reputation scores plus the DM's override modifier, and the aggregate
// recovery factor the economy derives from them.
package realm

import "sort"

// RegionWeek is one region's state for one week.
type RegionWeek struct {
	Region          string
	ProductionScore float64
	DMModifier      float64
}

// FamilyWeek is one noble family's state for one week.
type FamilyWeek struct {
	Family          string
	ReputationScore float64
	DMModifier      float64
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// RecoveryFactor aggregates average region production and average family
// reputation into a single signal of how far productive capacity has
// healed from war disruption. 1.0 is the undisturbed baseline.
func RecoveryFactor(regions []RegionWeek, families []FamilyWeek) float64 {
	avgProduction := 0.0
	if len(regions) > 0 {
		for _, r := range regions {
			avgProduction += r.ProductionScore
		}
		avgProduction /= float64(len(regions))
	}

	avgReputation := 0.0
	if len(families) > 0 {
		for _, f := range families {
			avgReputation += f.ReputationScore
		}
		avgReputation /= float64(len(families))
	}

	return clamp(1.0+0.05*avgProduction+0.03*avgReputation, 0.25, 1.75)
}

// SortedRegions returns a map's values ordered by region name, so that
// aggregate sums are independent of map iteration order.
func SortedRegions(m map[string]RegionWeek) []RegionWeek {
	out := make([]RegionWeek, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Region < out[j].Region })
	return out
}

// SortedFamilies returns a map's values ordered by family name.
func SortedFamilies(m map[string]FamilyWeek) []FamilyWeek {
	out := make([]FamilyWeek, 0, len(m))
	for _, f := range m {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Family < out[j].Family })
	return out
}
