package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/sun-imperium/internal/catalog"
	"github.com/talgya/sun-imperium/internal/combat"
	"github.com/talgya/sun-imperium/internal/economy"
	"github.com/talgya/sun-imperium/internal/realm"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "campaign.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSettingsMissingRow(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	raw, err := db.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, economy.RawSettings{}, raw, "fresh db resolves entirely from defaults")
}

func TestSettingsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	saved := economy.Settings{
		TaxRate:         0.12,
		PlayerShare:     0.25,
		EconomyScale:    1.5,
		RandMin:         0.85,
		RandMax:         1.15,
		WarSeverity:     0.3,
		PriceElasticity: 0.4,
		SpendPerCapita:  0.009,
		TargetPayout:    80,
		BasePriceIndex:  1.02,
		Calibration:     economy.Calibrated,
	}
	require.NoError(t, db.SaveSettings(ctx, saved))

	raw, err := db.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, economy.ResolveSettings(raw))

	// Upsert: a second save overwrites the singleton.
	saved.WarSeverity = 0.9
	saved.Calibration = economy.Uncalibrated
	require.NoError(t, db.SaveSettings(ctx, saved))
	raw, err = db.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, economy.ResolveSettings(raw))
}

func TestGoodsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	in := []catalog.Good{
		{Name: "Moonstone Ore", Tier: 2, Rarity: catalog.RarityUncommon, BasePrice: 3.0, Region: "Umbral Reach", Family: "Drennar"},
		{Name: "Gloamsilver Ingot", Tier: 3, Rarity: catalog.RarityRare, BasePrice: 5.0, Region: "Umbral Reach"},
		{Name: "Lunar Grain (T1)", Tier: 1, Rarity: catalog.RarityCommon, BasePrice: 0.5, Region: "Duskmere", Family: "Aurelius"},
	}
	require.NoError(t, db.SaveGoods(ctx, in))

	out, err := db.Goods(ctx)
	require.NoError(t, err)
	require.Len(t, out, 3)

	// Name-ordered for deterministic computation walks.
	assert.Equal(t, "Gloamsilver Ingot", out[0].Name)
	assert.Equal(t, "Lunar Grain (T1)", out[1].Name)
	assert.Equal(t, "Moonstone Ore", out[2].Name)

	// The region's known family is backfilled on load.
	assert.Equal(t, "Drennar", out[0].Family)
	assert.Equal(t, catalog.RarityRare, out[0].Rarity)

	// SaveGoods replaces, never appends.
	require.NoError(t, db.SaveGoods(ctx, in[:1]))
	out, err = db.Goods(ctx)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestPopulationFallback(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	pop, err := db.Population(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, economy.DefaultPopulation, pop)

	require.NoError(t, db.SetPopulation(ctx, 1, 200_000))
	pop, err = db.Population(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(200_000), pop)
}

func TestPopulationRecordRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rec := economy.PopulationRecord{
		Week:             3,
		Population:       400_000,
		GrainNeeded:      2400,
		WaterNeeded:      1600,
		GrainProduced:    2500,
		WaterProduced:    1500,
		SurvivalRatio:    0.9375,
		Growth:           0,
		DeathsStarvation: 6250,
		DeathsWar:        0,
	}
	require.NoError(t, db.SavePopulation(ctx, rec))

	got, err := db.PopulationRecord(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	// Upsert by week.
	rec.Population = 390_000
	require.NoError(t, db.SavePopulation(ctx, rec))
	got, err = db.PopulationRecord(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(390_000), got.Population)
}

func TestRealmWeekStates(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	regions := []realm.RegionWeek{
		{Region: "Duskmere", ProductionScore: 1.2, DMModifier: 0.1},
		{Region: "Silverpine", ProductionScore: -0.4},
	}
	families := []realm.FamilyWeek{
		{Family: "Aurelius", ReputationScore: 0.8},
	}
	require.NoError(t, db.SaveRegionWeeks(ctx, 2, regions))
	require.NoError(t, db.SaveFamilyWeeks(ctx, 2, families))

	rmap, err := db.RegionWeeks(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rmap, 2)
	assert.Equal(t, regions[0], rmap["Duskmere"])

	fmap, err := db.FamilyWeeks(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, families[0], fmap["Aurelius"])

	// Other weeks stay empty.
	rmap, err = db.RegionWeeks(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, rmap)
}

func TestSaveWeekReplacesOutput(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	res := economy.Result{
		Week:          1,
		Population:    450_000,
		GrainNeeded:   2700,
		WaterNeeded:   1800,
		GrainProduced: 2800,
		WaterProduced: 1850,
		SurvivalRatio: 1.02,
		GrossValue:    3700,
		TaxRate:       0.10,
		TaxIncome:     370,
		PlayerShare:   0.20,
		PlayerPayout:  74,
		UpkeepTotal:   40,
		PriceIndex:    1.0,
	}
	rows := []economy.GoodOutput{
		{Week: 1, Name: "Lunar Grain (T1)", Quantity: 2800, EffectivePrice: 0.5, GrossValue: 1400, Rarity: catalog.RarityCommon, Region: "Duskmere", Family: "Aurelius", Survival: true},
		{Week: 1, Name: "Moonstone Ore", Quantity: 100, EffectivePrice: 3.1, GrossValue: 310, Rarity: catalog.RarityUncommon, Region: "Umbral Reach", Family: "Drennar"},
	}
	require.NoError(t, db.SaveWeek(ctx, res, rows))

	n, err := db.WeekOutputCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := db.WeekSummary(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, res, got)

	// Saving the week again replaces rather than duplicates.
	res.GrossValue = 3800
	require.NoError(t, db.SaveWeek(ctx, res, rows[:1]))
	n, err = db.WeekOutputCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err = db.WeekSummary(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3800.0, got.GrossValue)
}

func TestWeekPointer(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	week, err := db.CurrentWeek(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), week, "fresh campaign starts at week 1")

	next, err := db.AdvanceWeekPointer(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next)

	week, err = db.CurrentWeek(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), week)
}

func TestLedger(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.AddLedgerEntry(ctx, 1, "in", 75, "resources_tax", "Weekly tax share"))
	require.NoError(t, db.AddLedgerEntry(ctx, 1, "out", 40, "military_upkeep", "Weekly upkeep"))
	require.NoError(t, db.AddLedgerEntry(ctx, 2, "in", 80, "resources_tax", ""))

	totals, err := db.Ledger(ctx, 1)
	require.NoError(t, err)
	assert.InDelta(t, 115.0, totals.Gold, 1e-9, "balance spans all weeks")
	assert.InDelta(t, 75.0, totals.Income, 1e-9)
	assert.InDelta(t, 40.0, totals.Expenses, 1e-9)

	err = db.AddLedgerEntry(ctx, 1, "sideways", 10, "bad", "")
	assert.Error(t, err)
}

func TestRosterForceAndUpkeep(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	units := []Unit{
		{ID: "guardian", Name: "Moonblade Guardian", Class: "guardian", Upkeep: 2.0},
		{ID: "archer", Name: "Moonblade Archer", Class: "archer", Upkeep: 1.5},
		{ID: "militia", Name: "Town Militia", Class: "peasant levy", Upkeep: 0.5},
	}
	for _, u := range units {
		require.NoError(t, db.SaveUnit(ctx, u))
	}
	require.NoError(t, db.SetRoster(ctx, "guardian", 10))
	require.NoError(t, db.SetRoster(ctx, "archer", 5))
	require.NoError(t, db.SetRoster(ctx, "militia", 3))

	force, err := db.RosterForce(ctx)
	require.NoError(t, err)
	assert.Equal(t, combat.Force{Guardians: 10, Archers: 5, Others: 3}, force,
		"unknown classes fight as others")

	upkeep, err := db.TotalUpkeep(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 10*2.0+5*1.5+3*0.5, upkeep, 1e-9)

	// Zeroed roster entries drop out of the force.
	require.NoError(t, db.SetRoster(ctx, "guardian", 0))
	force, err = db.RosterForce(ctx)
	require.NoError(t, err)
	assert.Zero(t, force.Guardians)
}

func TestInfrastructureUpkeepAndBonuses(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	infra := []Infrastructure{
		{ID: "barracks", Name: "Barracks", Upkeep: 3.0, EffectKind: "power_bonus", EffectTarget: "guardian", EffectValue: 1},
		{ID: "mage-tower", Name: "Mage Tower", Upkeep: 4.0, EffectKind: "power_bonus", EffectTarget: "mage", EffectValue: 2},
		{ID: "greenhouse", Name: "Celestial Greenhouse", Upkeep: 5.0, EffectKind: "multiplier", EffectTarget: "production", EffectValue: 1.5},
	}
	for _, inf := range infra {
		require.NoError(t, db.SaveInfrastructure(ctx, inf))
	}
	require.NoError(t, db.SetInfrastructureOwned(ctx, "barracks", true))
	require.NoError(t, db.SetInfrastructureOwned(ctx, "greenhouse", true))

	// Only owned improvements cost upkeep.
	upkeep, err := db.TotalUpkeep(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 8.0, upkeep, 1e-9)

	// Only owned power_bonus effects contribute to combat weights.
	bonuses, err := db.PowerBonuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, combat.Bonuses{Guardian: 1}, bonuses)

	require.NoError(t, db.SetInfrastructureOwned(ctx, "barracks", false))
	bonuses, err = db.PowerBonuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, combat.Bonuses{}, bonuses)
}

func TestSaveBattleLog(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	res := combat.BattleResult{
		Winner:          combat.SideAlly,
		AllyRemaining:   combat.Force{Guardians: 7},
		EnemyRemaining:  combat.Force{Archers: 6},
		AllyCasualties:  combat.Force{Guardians: 3},
		EnemyCasualties: combat.Force{Archers: 4},
		AllyPower:       37.5,
		EnemyPower:      25,
	}
	id, err := db.SaveBattleLog(ctx, res)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	id2, err := db.SaveBattleLog(ctx, res)
	require.NoError(t, err)
	assert.NotEqual(t, id, id2, "each battle gets its own record")
}
