package economy

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/sun-imperium/internal/catalog"
	"github.com/talgya/sun-imperium/internal/entropy"
	"github.com/talgya/sun-imperium/internal/realm"
)

// Result is the weekly economy summary row. Recomputing a week with
// unchanged inputs overwrites it with identical values.
type Result struct {
	Week          int64
	Population    int64
	GrainNeeded   float64
	WaterNeeded   float64
	GrainProduced int64
	WaterProduced int64
	SurvivalRatio float64
	GrossValue    float64
	TaxRate       float64
	TaxIncome     float64
	PlayerShare   float64
	PlayerPayout  float64
	UpkeepTotal   float64
	PriceIndex    float64
}

// Store is the persistence collaborator the aggregator reads from and
// writes to. Schema tolerance and retries live behind this interface,
// never inside the simulation.
type Store interface {
	Settings(ctx context.Context) (RawSettings, error)
	SaveSettings(ctx context.Context, s Settings) error
	Goods(ctx context.Context) ([]catalog.Good, error)
	Population(ctx context.Context, week int64) (int64, error)
	RegionWeeks(ctx context.Context, week int64) (map[string]realm.RegionWeek, error)
	FamilyWeeks(ctx context.Context, week int64) (map[string]realm.FamilyWeek, error)
	SaveWeek(ctx context.Context, res Result, rows []GoodOutput) error
	SavePopulation(ctx context.Context, rec PopulationRecord) error
}

// UpkeepFunc lets the caller fold externally computed upkeep into the
// summary before it is persisted. The engine itself knows nothing about
// unit rosters or infrastructure.
type UpkeepFunc func(ctx context.Context) (float64, error)

// Engine orchestrates the weekly computation against the store.
type Engine struct {
	store Store
	log   *slog.Logger

	// Upkeep, when set, supplies the externally computed upkeep total.
	Upkeep UpkeepFunc
}

// NewEngine creates a weekly economy engine. A nil logger uses the
// process default.
func NewEngine(store Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, log: logger}
}

// AdvanceWeek computes and persists the economy for one week. Week 1
// additionally runs the one-shot calibration before the authoritative
// computation. The call is idempotent for fixed stored inputs.
func (e *Engine) AdvanceWeek(ctx context.Context, week int64) (Result, []GoodOutput, error) {
	raw, err := e.store.Settings(ctx)
	if err != nil {
		return Result{}, nil, fmt.Errorf("load settings: %w", err)
	}
	settings := ResolveSettings(raw)

	goods, err := e.store.Goods(ctx)
	if err != nil {
		return Result{}, nil, fmt.Errorf("load goods: %w", err)
	}
	population, err := e.store.Population(ctx, week)
	if err != nil {
		return Result{}, nil, fmt.Errorf("load population: %w", err)
	}
	regions, err := e.store.RegionWeeks(ctx, week)
	if err != nil {
		return Result{}, nil, fmt.Errorf("load region states: %w", err)
	}
	families, err := e.store.FamilyWeeks(ctx, week)
	if err != nil {
		return Result{}, nil, fmt.Errorf("load family states: %w", err)
	}

	in := Inputs{
		Week:       week,
		Population: population,
		Settings:   settings,
		Goods:      goods,
		Regions:    regions,
		Families:   families,
	}

	res, rows := ComputeWeek(in)

	if week == 1 && settings.Calibration == Uncalibrated {
		settings = calibrate(settings, res, rows)
		if err := e.store.SaveSettings(ctx, settings); err != nil {
			return Result{}, nil, fmt.Errorf("persist calibrated settings: %w", err)
		}
		e.log.Info("economy calibrated",
			"spend_per_capita", settings.SpendPerCapita,
			"base_price_index", settings.BasePriceIndex,
		)
		in.Settings = settings
		res, rows = ComputeWeek(in)
	}

	if e.Upkeep != nil {
		upkeep, err := e.Upkeep(ctx)
		if err != nil {
			return Result{}, nil, fmt.Errorf("compute upkeep: %w", err)
		}
		res.UpkeepTotal = upkeep
	}

	if err := e.store.SaveWeek(ctx, res, rows); err != nil {
		return Result{}, nil, fmt.Errorf("persist week %d: %w", week, err)
	}

	growth, starved, warDead := populationDeltas(population, res.SurvivalRatio, settings.WarSeverity)
	rec := PopulationRecord{
		Week:             week,
		Population:       population,
		GrainNeeded:      res.GrainNeeded,
		WaterNeeded:      res.WaterNeeded,
		GrainProduced:    res.GrainProduced,
		WaterProduced:    res.WaterProduced,
		SurvivalRatio:    res.SurvivalRatio,
		Growth:           growth,
		DeathsStarvation: starved,
		DeathsWar:        warDead,
	}
	if err := e.store.SavePopulation(ctx, rec); err != nil {
		return Result{}, nil, fmt.Errorf("persist population week %d: %w", week, err)
	}

	e.log.Info("week economy computed",
		"week", week,
		"population", population,
		"gross_value", res.GrossValue,
		"survival_ratio", res.SurvivalRatio,
		"player_payout", res.PlayerPayout,
	)
	return res, rows, nil
}

// ComputeWeek is the pure weekly computation: demographics, pricing, and
// aggregation over fixed inputs. Calling it twice with equal inputs
// yields identical output, draws included.
func ComputeWeek(in Inputs) (Result, []GoodOutput) {
	s := in.Settings
	grainNeed, waterNeed := Needs(in.Population)
	res := Result{
		Week:        in.Week,
		Population:  in.Population,
		GrainNeeded: grainNeed,
		WaterNeeded: waterNeed,
		TaxRate:     s.TaxRate,
		PlayerShare: s.PlayerShare,
		PriceIndex:  1.0,
	}

	// An empty catalog cannot be priced; the week still closes with a
	// well-defined zero-valued result.
	if len(in.Goods) == 0 {
		res.SurvivalRatio = SurvivalRatio(0, 0, grainNeed, waterNeed)
		return res, nil
	}

	recovery := realm.RecoveryFactor(realm.SortedRegions(in.Regions), realm.SortedFamilies(in.Families))
	scarcity := scarcityMultiplier(s.WarSeverity, recovery)

	goods := ensureSurvivalGoods(in.Goods)
	prices := make(map[string]float64, len(goods))
	var grainGoods, waterGoods, market []catalog.Good
	for _, g := range goods {
		prices[g.Key()] = effectivePrice(g, supplyFactor(in, g), scarcity)
		switch {
		case g.IsGrain():
			grainGoods = append(grainGoods, g)
		case g.IsWater():
			waterGoods = append(waterGoods, g)
		default:
			market = append(market, g)
		}
	}

	res.PriceIndex = priceIndex(market, prices)
	afford := affordability(s.BasePriceIndex, res.PriceIndex, s.PriceElasticity)
	budget := demandBudget(in, recovery, afford)
	marketBudget := budget * (1 - survivalShare(s.WarSeverity))

	rows := make([]GoodOutput, 0, len(goods))

	grainQty, grainRows := produceSurvival(in, grainGoods, grainNeed, recovery, prices)
	waterQty, waterRows := produceSurvival(in, waterGoods, waterNeed, recovery, prices)
	rows = append(rows, grainRows...)
	rows = append(rows, waterRows...)
	res.GrainProduced = grainQty
	res.WaterProduced = waterQty
	res.SurvivalRatio = SurvivalRatio(float64(grainQty), float64(waterQty), grainNeed, waterNeed)

	// Distribute the market budget across non-survival goods by perturbed
	// demand weight.
	weights := make([]float64, len(market))
	weightSum := 0.0
	for i, g := range market {
		w := catalog.DemandWeight(g) * entropy.Uniform(in.Week, "ALLOC:"+g.Key(), s.RandMin, s.RandMax)
		weights[i] = w
		weightSum += w
	}
	for i, g := range market {
		price := prices[g.Key()]
		var qty int64
		if weightSum > 0 && marketBudget > 0 {
			alloc := marketBudget * weights[i] / weightSum
			qty = stochasticQty(in.Week, g.Key(), alloc/price)
		}
		rows = append(rows, GoodOutput{
			Week:           in.Week,
			Name:           g.Name,
			Quantity:       qty,
			EffectivePrice: price,
			GrossValue:     float64(qty) * price,
			Rarity:         g.Rarity,
			Region:         g.Region,
			Family:         g.Family,
		})
	}

	gross := 0.0
	for _, row := range rows {
		gross += row.GrossValue
	}
	res.GrossValue = gross
	res.TaxIncome = gross * s.TaxRate
	res.PlayerPayout = res.TaxIncome * s.PlayerShare
	return res, rows
}

// produceSurvival yields the production-driven rows for one survival good
// class, splitting the population's need across however many catalog
// entries provide it.
func produceSurvival(in Inputs, goods []catalog.Good, need, recovery float64, prices map[string]float64) (int64, []GoodOutput) {
	if len(goods) == 0 {
		return 0, nil
	}
	share := need / float64(len(goods))
	var total int64
	rows := make([]GoodOutput, 0, len(goods))
	for _, g := range goods {
		factor := survivalSupplyFactor(in.Week, g.Key(), recovery, in.Settings.WarSeverity)
		qty := int64(math.Round(share * factor))
		if qty < 0 {
			qty = 0
		}
		price := prices[g.Key()]
		rows = append(rows, GoodOutput{
			Week:           in.Week,
			Name:           g.Name,
			Quantity:       qty,
			EffectivePrice: price,
			GrossValue:     float64(qty) * price,
			Rarity:         g.Rarity,
			Region:         g.Region,
			Family:         g.Family,
			Survival:       true,
		})
		total += qty
	}
	return total, rows
}

// ensureSurvivalGoods guarantees grain and water entries exist in a
// non-empty catalog, falling back to a base price of 1.0 when the DM's
// catalog is missing a staple.
func ensureSurvivalGoods(goods []catalog.Good) []catalog.Good {
	hasGrain, hasWater := false, false
	for _, g := range goods {
		if g.IsGrain() {
			hasGrain = true
		}
		if g.IsWater() {
			hasWater = true
		}
	}
	if hasGrain && hasWater {
		return goods
	}
	out := make([]catalog.Good, len(goods), len(goods)+2)
	copy(out, goods)
	if !hasGrain {
		out = append(out, catalog.Good{Name: "Lunar Grain", Tier: 1, Rarity: catalog.RarityCommon, BasePrice: 1.0})
	}
	if !hasWater {
		out = append(out, catalog.Good{Name: "Moonwell Water", Tier: 1, Rarity: catalog.RarityCommon, BasePrice: 1.0})
	}
	return out
}

// calibrate runs the one-shot week-1 self-tuning: scale the per-capita
// spend baseline so the market portion of gross value lands the target
// payout, then freeze the observed price index as the new baseline.
// Survival gross is production-driven and excluded from the linear
// correction.
func calibrate(s Settings, dry Result, dryRows []GoodOutput) Settings {
	survivalGross := 0.0
	for _, row := range dryRows {
		if row.Survival {
			survivalGross += row.GrossValue
		}
	}
	projectedMarket := dry.GrossValue - survivalGross

	taxShare := s.TaxRate * s.PlayerShare
	if taxShare > 0 && projectedMarket > 0 {
		requiredMarket := s.TargetPayout/taxShare - survivalGross
		if requiredMarket > 0 {
			// After the baseline freezes, affordability collapses to 1, so
			// the dry run's affordability folds into the correction.
			affordDry := affordability(s.BasePriceIndex, dry.PriceIndex, s.PriceElasticity)
			correction := clamp(requiredMarket/projectedMarket*affordDry, 0.05, 20)
			s.SpendPerCapita *= correction
		}
	}

	if dry.PriceIndex > 0 {
		s.BasePriceIndex = dry.PriceIndex
	}
	s.Calibration = Calibrated
	return s
}
