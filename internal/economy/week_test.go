package economy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/sun-imperium/internal/catalog"
	"github.com/talgya/sun-imperium/internal/realm"
)

// fakeStore is an in-memory Store for engine tests.
type fakeStore struct {
	settings   RawSettings
	goods      []catalog.Good
	population int64
	regions    map[string]realm.RegionWeek
	families   map[string]realm.FamilyWeek

	savedSettings   []Settings
	savedResults    []Result
	savedRows       [][]GoodOutput
	savedPopulation []PopulationRecord
}

func (f *fakeStore) Settings(ctx context.Context) (RawSettings, error) { return f.settings, nil }

func (f *fakeStore) SaveSettings(ctx context.Context, s Settings) error {
	f.savedSettings = append(f.savedSettings, s)
	f.settings = rawFromSettings(s)
	return nil
}

func (f *fakeStore) Goods(ctx context.Context) ([]catalog.Good, error) { return f.goods, nil }

func (f *fakeStore) Population(ctx context.Context, week int64) (int64, error) {
	return f.population, nil
}

func (f *fakeStore) RegionWeeks(ctx context.Context, week int64) (map[string]realm.RegionWeek, error) {
	return f.regions, nil
}

func (f *fakeStore) FamilyWeeks(ctx context.Context, week int64) (map[string]realm.FamilyWeek, error) {
	return f.families, nil
}

func (f *fakeStore) SaveWeek(ctx context.Context, res Result, rows []GoodOutput) error {
	f.savedResults = append(f.savedResults, res)
	f.savedRows = append(f.savedRows, rows)
	return nil
}

func (f *fakeStore) SavePopulation(ctx context.Context, rec PopulationRecord) error {
	f.savedPopulation = append(f.savedPopulation, rec)
	return nil
}

func rawFromSettings(s Settings) RawSettings {
	calibrated := s.Calibration == Calibrated
	return RawSettings{
		TaxRate:         &s.TaxRate,
		PlayerShare:     &s.PlayerShare,
		EconomyScale:    &s.EconomyScale,
		RandMin:         &s.RandMin,
		RandMax:         &s.RandMax,
		WarSeverity:     &s.WarSeverity,
		PriceElasticity: &s.PriceElasticity,
		SpendPerCapita:  &s.SpendPerCapita,
		TargetPayout:    &s.TargetPayout,
		BasePriceIndex:  &s.BasePriceIndex,
		Calibrated:      &calibrated,
	}
}

func testCatalog() []catalog.Good {
	return []catalog.Good{
		{Name: "Lunar Grain (T1)", Tier: 1, Rarity: catalog.RarityCommon, BasePrice: 0.5, Region: "Duskmere", Family: "Aurelius"},
		{Name: "Moonwell Water (T1)", Tier: 1, Rarity: catalog.RarityCommon, BasePrice: 0.4, Region: "Starfall Vale", Family: "Caelwyn"},
		{Name: "Silverleaf Herbs", Tier: 1, Rarity: catalog.RarityCommon, BasePrice: 1.2, Region: "Silverpine", Family: "Veyra"},
		{Name: "Duskwood Timber", Tier: 1, Rarity: catalog.RarityCommon, BasePrice: 0.8, Region: "Duskmere", Family: "Aurelius"},
		{Name: "Moonstone Ore", Tier: 2, Rarity: catalog.RarityUncommon, BasePrice: 3.0, Region: "Umbral Reach", Family: "Drennar"},
		{Name: "Starfall Wool", Tier: 2, Rarity: catalog.RarityCommon, BasePrice: 2.0, Region: "Starfall Vale", Family: "Caelwyn"},
		{Name: "Umbral Dye", Tier: 3, Rarity: catalog.RarityUncommon, BasePrice: 4.5, Region: "Umbral Reach", Family: "Drennar"},
		{Name: "Sunblessed Resin", Tier: 4, Rarity: catalog.RarityEpic, BasePrice: 5.5, Region: "Silverpine", Family: "Veyra"},
	}
}

func testRealm() (map[string]realm.RegionWeek, map[string]realm.FamilyWeek) {
	regions := make(map[string]realm.RegionWeek)
	for _, name := range []string{"Duskmere", "Starfall Vale", "Umbral Reach", "Silverpine"} {
		regions[name] = realm.RegionWeek{Region: name}
	}
	families := make(map[string]realm.FamilyWeek)
	for _, name := range []string{"Aurelius", "Caelwyn", "Drennar", "Veyra"} {
		families[name] = realm.FamilyWeek{Family: name}
	}
	return regions, families
}

func testInputs(week int64) Inputs {
	regions, families := testRealm()
	return Inputs{
		Week:       week,
		Population: DefaultPopulation,
		Settings:   ResolveSettings(RawSettings{}),
		Goods:      testCatalog(),
		Regions:    regions,
		Families:   families,
	}
}

func TestComputeWeekDeterministic(t *testing.T) {
	in := testInputs(3)

	res1, rows1 := ComputeWeek(in)
	res2, rows2 := ComputeWeek(in)
	require.Equal(t, res1, res2)
	require.Equal(t, rows1, rows2)

	// A different week draws different noise.
	res3, _ := ComputeWeek(testInputs(4))
	assert.NotEqual(t, res1.GrossValue, res3.GrossValue)
}

func TestComputeWeekEmptyCatalog(t *testing.T) {
	in := testInputs(1)
	in.Goods = nil

	res, rows := ComputeWeek(in)
	assert.Empty(t, rows)
	assert.Zero(t, res.GrossValue)
	assert.Zero(t, res.TaxIncome)
	assert.Zero(t, res.PlayerPayout)
	assert.Zero(t, res.SurvivalRatio, "nothing produced against a real need")
	assert.Equal(t, 1.0, res.PriceIndex)
}

func TestComputeWeekOutputShape(t *testing.T) {
	in := testInputs(2)
	res, rows := ComputeWeek(in)

	require.Len(t, rows, len(in.Goods))

	gross := 0.0
	survivalRows := 0
	for _, row := range rows {
		assert.Equal(t, in.Week, row.Week)
		assert.GreaterOrEqual(t, row.Quantity, int64(0))
		assert.GreaterOrEqual(t, row.EffectivePrice, PriceFloor)
		assert.InDelta(t, float64(row.Quantity)*row.EffectivePrice, row.GrossValue, 1e-9)
		if row.Survival {
			survivalRows++
		}
		gross += row.GrossValue
	}
	assert.Equal(t, 2, survivalRows, "one grain row and one water row")
	assert.InDelta(t, gross, res.GrossValue, 1e-6)
	assert.InDelta(t, gross*res.TaxRate, res.TaxIncome, 1e-6)
	assert.InDelta(t, res.TaxIncome*res.PlayerShare, res.PlayerPayout, 1e-6)
	assert.Greater(t, res.SurvivalRatio, 0.0)
}

func TestEnsureSurvivalGoods(t *testing.T) {
	bare := []catalog.Good{{Name: "Moonstone Ore", Tier: 2, BasePrice: 3.0}}

	out := ensureSurvivalGoods(bare)
	require.Len(t, out, 3)
	assert.True(t, out[1].IsGrain())
	assert.True(t, out[2].IsWater())
	assert.Equal(t, 1.0, out[1].BasePrice)
	assert.Len(t, bare, 1, "input slice untouched")

	// A complete catalog passes through unchanged.
	full := testCatalog()
	assert.Equal(t, full, ensureSurvivalGoods(full))
}

func TestComputeWeekPriceResponse(t *testing.T) {
	in := testInputs(5)
	resLow, _ := ComputeWeek(in)

	// A higher frozen baseline makes current prices look cheap, so spending
	// capacity and gross value never drop.
	in.Settings.BasePriceIndex = 1.5
	resHigh, _ := ComputeWeek(in)
	assert.GreaterOrEqual(t, resHigh.GrossValue, resLow.GrossValue)
}

func TestAdvanceWeekCalibratesOnce(t *testing.T) {
	ctx := context.Background()
	regions, families := testRealm()
	store := &fakeStore{
		goods:      testCatalog(),
		population: DefaultPopulation,
		regions:    regions,
		families:   families,
	}

	engine := NewEngine(store, nil)
	res, rows, err := engine.AdvanceWeek(ctx, 1)
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	// The week-1 self-tuning lands the payout on the configured target.
	target := DefaultTargetPayout
	assert.InDelta(t, target, res.PlayerPayout, target*0.05)

	require.Len(t, store.savedSettings, 1)
	calibrated := store.savedSettings[0]
	assert.Equal(t, Calibrated, calibrated.Calibration)
	assert.Greater(t, calibrated.BasePriceIndex, 0.0)
	assert.NotEqual(t, DefaultSpendPerCapita, calibrated.SpendPerCapita)

	require.Len(t, store.savedResults, 1)
	assert.Equal(t, res, store.savedResults[0])
	require.Len(t, store.savedPopulation, 1)
	assert.Equal(t, res.SurvivalRatio, store.savedPopulation[0].SurvivalRatio)

	// Replaying the closed week is a pure overwrite: no second calibration,
	// identical summary.
	res2, _, err := engine.AdvanceWeek(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, store.savedSettings, 1, "calibration never reruns")
	assert.Equal(t, res, res2)
}

func TestAdvanceWeekFoldsUpkeep(t *testing.T) {
	ctx := context.Background()
	regions, families := testRealm()
	store := &fakeStore{
		settings:   rawFromSettings(ResolveSettings(RawSettings{})),
		goods:      testCatalog(),
		population: DefaultPopulation,
		regions:    regions,
		families:   families,
	}
	yes := true
	store.settings.Calibrated = &yes

	engine := NewEngine(store, nil)
	engine.Upkeep = func(ctx context.Context) (float64, error) { return 42.5, nil }

	res, _, err := engine.AdvanceWeek(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 42.5, res.UpkeepTotal)
	require.Len(t, store.savedResults, 1)
	assert.Equal(t, 42.5, store.savedResults[0].UpkeepTotal)
}
