package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRarity(t *testing.T) {
	cases := []struct {
		in   string
		want Rarity
	}{
		{"common", RarityCommon},
		{" Common ", RarityCommon},
		{"RARE", RarityRare},
		{"legendary", RarityLegendary},
		{"", RarityUncommon},
		{"mythic", RarityUncommon},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseRarity(tc.in), "parse %q", tc.in)
	}
}

func TestDemandWeightDecay(t *testing.T) {
	common1 := DemandWeight(Good{Name: "a", Tier: 1, Rarity: RarityCommon})
	common2 := DemandWeight(Good{Name: "b", Tier: 2, Rarity: RarityCommon})
	legendary5 := DemandWeight(Good{Name: "c", Tier: 5, Rarity: RarityLegendary})

	assert.Equal(t, 1.0, common1)
	assert.InDelta(t, 0.25, common2, 1e-12)
	assert.InDelta(t, 0.05/25, legendary5, 1e-12)
	assert.Greater(t, common1, common2)
	assert.Greater(t, common2, legendary5)
}

func TestDemandWeightBadTier(t *testing.T) {
	// A zero or negative tier counts as tier 1 rather than dividing by zero.
	assert.Equal(t, 1.0, DemandWeight(Good{Name: "a", Tier: 0, Rarity: RarityCommon}))
	assert.Equal(t, 1.0, DemandWeight(Good{Name: "a", Tier: -3, Rarity: RarityCommon}))
}

func TestSurvivalDetection(t *testing.T) {
	assert.True(t, Good{Name: "Lunar Grain (T1)"}.IsGrain())
	assert.True(t, Good{Name: "grain"}.IsGrain())
	assert.True(t, Good{Name: "Moonwell Water (T1)"}.IsWater())
	assert.True(t, Good{Name: "Water"}.IsWater())
	assert.False(t, Good{Name: "Moonstone Ore"}.IsSurvival())
	assert.False(t, Good{Name: "Grainy Quartz"}.IsSurvival())
}

func TestBackfillFamily(t *testing.T) {
	goods := []Good{
		{Name: "Ore", Region: "Umbral Reach", Family: "Drennar"},
		{Name: "Ingot", Region: "Umbral Reach"},
		{Name: "Relic", Region: "Lost Coast"},
	}

	filled := BackfillFamily(goods)
	require.Len(t, filled, 3)
	assert.Equal(t, "Drennar", filled[1].Family)
	assert.Empty(t, filled[2].Family, "region with no known family stays empty")
	assert.Empty(t, goods[1].Family, "input slice is not mutated")

	// Idempotent: a second pass changes nothing.
	again := BackfillFamily(filled)
	assert.Equal(t, filled, again)
}
