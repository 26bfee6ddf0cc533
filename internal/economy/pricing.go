package economy

import (
	"math"

	"github.com/talgya/sun-imperium/internal/catalog"
	"github.com/talgya/sun-imperium/internal/entropy"
	"github.com/talgya/sun-imperium/internal/realm"
)

// Clamp bounds and floors for the pricing model. These were tuned for
// playability across campaign iterations; the invariants that matter are
// that scarcity never drops below 1 and every band is bounded above.
var (
	RegionMultMin    = 0.50
	RegionMultMax    = 1.75
	SupplyFactorMin  = 0.25
	SupplyFactorMax  = 3.0
	ScarcityMax      = 2.8
	AffordabilityMin = 0.15
	AffordabilityMax = 6.0
	VolumeRecoverMin = 0.25
	VolumeRecoverMax = 1.5
	PriceFloor       = 0.01
)

// Inputs carries everything the weekly computation reads. All fields are
// treated as immutable; two computations over equal inputs are identical.
type Inputs struct {
	Week       int64
	Population int64
	Settings   Settings
	Goods      []catalog.Good
	Regions    map[string]realm.RegionWeek
	Families   map[string]realm.FamilyWeek
}

// GoodOutput is one per-good ledger row for a week.
type GoodOutput struct {
	Week           int64
	Name           string
	Quantity       int64
	EffectivePrice float64
	GrossValue     float64
	Rarity         catalog.Rarity
	Region         string
	Family         string
	Survival       bool
}

// regionMultiplier converts a region's production score and DM override
// into a supply adjustment. Each score point is worth +5%.
func regionMultiplier(rw realm.RegionWeek, ok bool) float64 {
	if !ok {
		return 1.0
	}
	return clamp(1.0+0.05*rw.ProductionScore+rw.DMModifier, RegionMultMin, RegionMultMax)
}

// familyMultiplier converts a family's reputation score and DM override
// into a supply adjustment. Each reputation point is worth +3%.
func familyMultiplier(fw realm.FamilyWeek, ok bool) float64 {
	if !ok {
		return 1.0
	}
	return clamp(1.0+0.03*fw.ReputationScore+fw.DMModifier, RegionMultMin, RegionMultMax)
}

// supplyFactor combines the good's region and family multipliers.
func supplyFactor(in Inputs, g catalog.Good) float64 {
	rw, rok := in.Regions[g.Region]
	fw, fok := in.Families[g.Family]
	return clamp(regionMultiplier(rw, rok)*familyMultiplier(fw, fok), SupplyFactorMin, SupplyFactorMax)
}

// scarcityMultiplier inflates prices with war severity, dampened by how
// far recovery has come. Never below 1: peace does not deflate the base
// catalog.
func scarcityMultiplier(war, recovery float64) float64 {
	return clamp(1.0+war*(2.2-1.2*math.Min(recovery, 1.5)), 1.0, ScarcityMax)
}

// effectivePrice floors the computed price at a small epsilon so later
// divisions stay safe.
func effectivePrice(g catalog.Good, supply, scarcity float64) float64 {
	p := g.BasePrice * scarcity / supply
	if p < PriceFloor {
		p = PriceFloor
	}
	return p
}

// priceIndex is the demand-weighted mean of effective-to-base price
// ratios across non-survival goods: a single stable scalar for the
// affordability curve. An empty market reads as a neutral 1.0.
func priceIndex(market []catalog.Good, prices map[string]float64) float64 {
	sum, weightSum := 0.0, 0.0
	for _, g := range market {
		if g.BasePrice <= 0 {
			continue
		}
		w := catalog.DemandWeight(g)
		sum += w * prices[g.Key()] / g.BasePrice
		weightSum += w
	}
	if weightSum <= 0 {
		return 1.0
	}
	return sum / weightSum
}

// affordability is the demand-response curve: cheap prices relative to
// the calibrated baseline expand spending capacity, expensive ones
// shrink it.
func affordability(baseIndex, index, elasticity float64) float64 {
	if index <= 0 || baseIndex <= 0 {
		return 1.0
	}
	return clamp(math.Pow(baseIndex/index, elasticity), AffordabilityMin, AffordabilityMax)
}

// volumeFactor is the global trade-volume multiplier: economy scale,
// war dampening, and recovery.
func volumeFactor(s Settings, recovery float64) float64 {
	return s.EconomyScale * (1 - 0.35*s.WarSeverity) * clamp(0.55+0.45*recovery, VolumeRecoverMin, VolumeRecoverMax)
}

// demandBudget is the population's total weekly spending capacity,
// perturbed by the week's deterministic noise draw.
func demandBudget(in Inputs, recovery, afford float64) float64 {
	s := in.Settings
	noise := entropy.Uniform(in.Week, "TOTAL_DEMAND", s.RandMin, s.RandMax)
	return float64(in.Population) * s.SpendPerCapita * volumeFactor(s, recovery) * afford * noise
}

// survivalShare is the fraction of the demand budget reserved for grain
// and water; war pushes households toward staples.
func survivalShare(war float64) float64 {
	return clamp(0.25+0.30*war, 0.25, 0.55)
}

// stochasticQty converts an expected transaction quantity to an integer:
// floor, then one more with probability equal to the fractional part.
// The draw is keyed so small-expectation goods don't always round to zero
// while the week stays exactly reproducible.
func stochasticQty(week int64, key string, expected float64) int64 {
	if expected <= 0 {
		return 0
	}
	whole, frac := math.Modf(expected)
	qty := int64(whole)
	if entropy.Fraction(week, "QTY:"+key) < frac {
		qty++
	}
	return qty
}
