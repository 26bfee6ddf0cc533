// Package catalog holds the tradable-goods reference data: tiers, rarity
// classes, demand weights, and the survival-good conventions inherited from
// the campaign's item names.
package catalog

import (
	"slices"
	"strings"
)

// Rarity classifies a good's scarcity class.
type Rarity uint8

const (
	RarityCommon Rarity = iota
	RarityUncommon
	RarityRare
	RarityEpic
	RarityLegendary
)

func (r Rarity) String() string {
	switch r {
	case RarityCommon:
		return "common"
	case RarityUncommon:
		return "uncommon"
	case RarityRare:
		return "rare"
	case RarityEpic:
		return "epic"
	case RarityLegendary:
		return "legendary"
	default:
		return "unknown"
	}
}

// ParseRarity maps a stored rarity label to its class. Unknown or empty
// labels fall back to uncommon, the catalog's historical default.
func ParseRarity(s string) Rarity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "common":
		return RarityCommon
	case "uncommon":
		return RarityUncommon
	case "rare":
		return RarityRare
	case "epic":
		return RarityEpic
	case "legendary":
		return RarityLegendary
	default:
		return RarityUncommon
	}
}

// DemandMultiplier returns the rarity component of a good's demand weight.
// Common staples dominate the market; legendary goods barely trade.
func (r Rarity) DemandMultiplier() float64 {
	switch r {
	case RarityCommon:
		return 1.0
	case RarityUncommon:
		return 0.55
	case RarityRare:
		return 0.25
	case RarityEpic:
		return 0.12
	case RarityLegendary:
		return 0.05
	default:
		return 0.55
	}
}

// Good is a catalog entry for one tradable good. Reference data: the
// engines read it but never mutate it, apart from the family backfill.
type Good struct {
	Name      string
	Tier      int
	Rarity    Rarity
	BasePrice float64
	Region    string
	Family    string
}

// Key identifies the good for deterministic noise draws. Region and family
// are included so renaming a source region reshuffles only that region.
func (g Good) Key() string {
	return g.Name + "|" + g.Region + "|" + g.Family
}

// IsGrain reports whether the good is the grain survival staple.
func (g Good) IsGrain() bool {
	n := strings.ToLower(g.Name)
	return n == "grain" || strings.HasPrefix(n, "lunar grain")
}

// IsWater reports whether the good is the water survival staple.
func (g Good) IsWater() bool {
	n := strings.ToLower(g.Name)
	return n == "water" || strings.HasPrefix(n, "moonwell water")
}

// IsSurvival reports whether the good feeds the demographic model rather
// than the open market.
func (g Good) IsSurvival() bool {
	return g.IsGrain() || g.IsWater()
}

// DemandWeight computes the relative demand for a good from its tier and
// rarity. Weight decays as 1/tier²; a tier below 1 counts as tier 1.
func DemandWeight(g Good) float64 {
	tier := g.Tier
	if tier < 1 {
		tier = 1
	}
	return g.Rarity.DemandMultiplier() / float64(tier*tier)
}

// BackfillFamily fills missing family assignments from other goods sourced
// in the same region. Pure and idempotent: goods that already carry a
// family are never touched, and regions with no known family stay empty.
func BackfillFamily(goods []Good) []Good {
	familyByRegion := make(map[string]string)
	for _, g := range goods {
		if g.Region == "" || g.Family == "" {
			continue
		}
		if _, ok := familyByRegion[g.Region]; !ok {
			familyByRegion[g.Region] = g.Family
		}
	}

	out := slices.Clone(goods)
	for i := range out {
		if out[i].Family == "" {
			out[i].Family = familyByRegion[out[i].Region]
		}
	}
	return out
}
