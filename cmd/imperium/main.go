// Command imperium is the DM console for the Sun Imperium campaign:
// seed a new campaign, advance the week, resolve battles, inspect state.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/talgya/sun-imperium/internal/catalog"
	"github.com/talgya/sun-imperium/internal/combat"
	"github.com/talgya/sun-imperium/internal/economy"
	"github.com/talgya/sun-imperium/internal/realm"
	"github.com/talgya/sun-imperium/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx := context.Background()
	var err error
	switch os.Args[1] {
	case "seed":
		err = runSeed(ctx, os.Args[2:])
	case "advance-week":
		err = runAdvanceWeek(ctx, os.Args[2:])
	case "battle":
		err = runBattle(ctx, os.Args[2:])
	case "status":
		err = runStatus(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: imperium <command> [flags]

commands:
  seed           create a fresh campaign database
  advance-week   compute the current week's economy and open the next week
  battle         resolve a battle between the roster and an enemy force
  status         show the campaign's current state`)
}

func openStore(path string) (*store.DB, error) {
	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open campaign db %q: %w", path, err)
	}
	return db, nil
}

func runSeed(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	dbPath := fs.String("db", "data/imperium.db", "campaign database path")
	seed := fs.Int64("seed", 42, "world generation seed")
	weeks := fs.Int64("weeks", 12, "number of weeks of region/family state to generate")
	fs.Parse(args)

	if dir := filepath.Dir(*dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create db directory %q: %w", dir, err)
		}
	}
	db, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	settings := economy.ResolveSettings(economy.RawSettings{})
	if err := db.SaveSettings(ctx, settings); err != nil {
		return err
	}

	if err := db.SaveGoods(ctx, starterCatalog()); err != nil {
		return err
	}

	regions := []string{"Duskmere", "Starfall Vale", "Umbral Reach", "Silverpine"}
	families := []string{"Aurelius", "Caelwyn", "Drennar", "Veyra"}
	cfg := realm.DefaultGenConfig(*seed)
	for week := int64(1); week <= *weeks; week++ {
		regionStates, familyStates := realm.GenerateWeek(cfg, week, regions, families)
		if err := db.SaveRegionWeeks(ctx, week, regionStates); err != nil {
			return err
		}
		if err := db.SaveFamilyWeeks(ctx, week, familyStates); err != nil {
			return err
		}
	}

	if err := db.SetPopulation(ctx, 1, economy.DefaultPopulation); err != nil {
		return err
	}

	for _, u := range starterUnits() {
		if err := db.SaveUnit(ctx, u); err != nil {
			return err
		}
	}
	for _, inf := range starterInfrastructure() {
		if err := db.SaveInfrastructure(ctx, inf); err != nil {
			return err
		}
	}

	if _, err := db.CurrentWeek(ctx); err != nil {
		return err
	}

	slog.Info("campaign seeded",
		"db", *dbPath,
		"seed", *seed,
		"weeks", *weeks,
		"population", humanize.Comma(economy.DefaultPopulation),
	)
	return nil
}

func runAdvanceWeek(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("advance-week", flag.ExitOnError)
	dbPath := fs.String("db", "data/imperium.db", "campaign database path")
	fs.Parse(args)

	db, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	week, err := db.CurrentWeek(ctx)
	if err != nil {
		return err
	}

	engine := economy.NewEngine(db, slog.Default())
	engine.Upkeep = db.TotalUpkeep

	res, rows, err := engine.AdvanceWeek(ctx, week)
	if err != nil {
		return err
	}

	// Post weekly income and upkeep to the gold ledger.
	if res.PlayerPayout > 0 {
		if err := db.AddLedgerEntry(ctx, week, "in", res.PlayerPayout, "resources_tax", "Weekly tax share"); err != nil {
			return err
		}
	}
	if res.UpkeepTotal > 0 {
		if err := db.AddLedgerEntry(ctx, week, "out", res.UpkeepTotal, "military_upkeep", "Weekly upkeep"); err != nil {
			return err
		}
	}

	next, err := db.AdvanceWeekPointer(ctx)
	if err != nil {
		return err
	}

	// Carry the surviving population into the next week.
	rec, err := db.PopulationRecord(ctx, week)
	if err != nil {
		return err
	}
	if err := db.SetPopulation(ctx, next, rec.NextPopulation()); err != nil {
		return err
	}

	slog.Info("week advanced",
		"closed_week", week,
		"open_week", next,
		"gross_value", humanize.CommafWithDigits(res.GrossValue, 0),
		"player_payout", humanize.CommafWithDigits(res.PlayerPayout, 1),
		"upkeep", humanize.CommafWithDigits(res.UpkeepTotal, 1),
		"survival_ratio", fmt.Sprintf("%.3f", res.SurvivalRatio),
		"goods", len(rows),
	)
	return nil
}

func runBattle(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("battle", flag.ExitOnError)
	dbPath := fs.String("db", "data/imperium.db", "campaign database path")
	guardians := fs.Int("enemy-guardians", 0, "enemy guardian count")
	archers := fs.Int("enemy-archers", 0, "enemy archer count")
	mages := fs.Int("enemy-mages", 0, "enemy mage count")
	clerics := fs.Int("enemy-clerics", 0, "enemy cleric count")
	others := fs.Int("enemy-others", 0, "enemy other count")
	fs.Parse(args)

	db, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ally, err := db.RosterForce(ctx)
	if err != nil {
		return err
	}
	bonuses, err := db.PowerBonuses(ctx)
	if err != nil {
		return err
	}
	enemy := combat.Force{
		Guardians: *guardians,
		Archers:   *archers,
		Mages:     *mages,
		Clerics:   *clerics,
		Others:    *others,
	}

	res, err := combat.SimulateWithBonuses(ally, enemy, bonuses, combat.Bonuses{})
	if err != nil {
		return err
	}

	id, err := db.SaveBattleLog(ctx, res)
	if err != nil {
		return err
	}

	slog.Info("battle resolved",
		"battle_id", id,
		"winner", res.Winner.String(),
		"ally_power", fmt.Sprintf("%.1f", res.AllyPower),
		"enemy_power", fmt.Sprintf("%.1f", res.EnemyPower),
		"ally_remaining", res.AllyRemaining.Total(),
		"enemy_remaining", res.EnemyRemaining.Total(),
	)
	return nil
}

func runStatus(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	dbPath := fs.String("db", "data/imperium.db", "campaign database path")
	fs.Parse(args)

	db, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	week, err := db.CurrentWeek(ctx)
	if err != nil {
		return err
	}
	totals, err := db.Ledger(ctx, week)
	if err != nil {
		return err
	}
	population, err := db.Population(ctx, week)
	if err != nil {
		return err
	}

	slog.Info("campaign status",
		"week", week,
		"population", humanize.Comma(population),
		"gold", humanize.CommafWithDigits(totals.Gold, 1),
		"week_income", humanize.CommafWithDigits(totals.Income, 1),
		"week_expenses", humanize.CommafWithDigits(totals.Expenses, 1),
	)

	if summary, err := db.WeekSummary(ctx, week-1); err == nil {
		slog.Info("last closed week",
			"week", summary.Week,
			"gross_value", humanize.CommafWithDigits(summary.GrossValue, 0),
			"survival_ratio", fmt.Sprintf("%.3f", summary.SurvivalRatio),
			"player_payout", humanize.CommafWithDigits(summary.PlayerPayout, 1),
		)
	}
	return nil
}

// starterCatalog is the canonical week-1 goods list: the two survival
// staples plus a spread of market goods across tiers and rarities.
func starterCatalog() []catalog.Good {
	return []catalog.Good{
		{Name: "Lunar Grain (T1)", Tier: 1, Rarity: catalog.RarityCommon, BasePrice: 0.5, Region: "Duskmere", Family: "Aurelius"},
		{Name: "Moonwell Water (T1)", Tier: 1, Rarity: catalog.RarityCommon, BasePrice: 0.4, Region: "Starfall Vale", Family: "Caelwyn"},
		{Name: "Silverleaf Herbs", Tier: 1, Rarity: catalog.RarityCommon, BasePrice: 1.2, Region: "Silverpine", Family: "Veyra"},
		{Name: "Duskwood Timber", Tier: 1, Rarity: catalog.RarityCommon, BasePrice: 0.8, Region: "Duskmere", Family: "Aurelius"},
		{Name: "Moonstone Ore", Tier: 2, Rarity: catalog.RarityUncommon, BasePrice: 3.0, Region: "Umbral Reach", Family: "Drennar"},
		{Name: "Starfall Wool", Tier: 2, Rarity: catalog.RarityCommon, BasePrice: 2.0, Region: "Starfall Vale", Family: "Caelwyn"},
		{Name: "Umbral Dye", Tier: 3, Rarity: catalog.RarityUncommon, BasePrice: 4.5, Region: "Umbral Reach", Family: "Drennar"},
		{Name: "Gloamsilver Ingot", Tier: 3, Rarity: catalog.RarityRare, BasePrice: 5.0, Region: "Umbral Reach"},
		{Name: "Sunblessed Resin", Tier: 4, Rarity: catalog.RarityEpic, BasePrice: 5.5, Region: "Silverpine", Family: "Veyra"},
		{Name: "Celestial Essence", Tier: 5, Rarity: catalog.RarityLegendary, BasePrice: 6.0, Region: "Starfall Vale"},
	}
}

func starterUnits() []store.Unit {
	return []store.Unit{
		{ID: "guardian", Name: "Moonblade Guardian", Class: "guardian", Upkeep: 2.0},
		{ID: "archer", Name: "Moonblade Archer", Class: "archer", Upkeep: 1.5},
		{ID: "mage", Name: "Moonblade Mage", Class: "mage", Upkeep: 2.5},
		{ID: "cleric", Name: "Moonblade Cleric", Class: "cleric", Upkeep: 1.0},
		{ID: "militia", Name: "Town Militia", Class: "other", Upkeep: 0.5},
	}
}

func starterInfrastructure() []store.Infrastructure {
	return []store.Infrastructure{
		{ID: "barracks", Name: "Barracks", Upkeep: 3.0, EffectKind: "power_bonus", EffectTarget: "guardian", EffectValue: 1},
		{ID: "archery-range", Name: "Archery Range", Upkeep: 3.0, EffectKind: "power_bonus", EffectTarget: "archer", EffectValue: 1},
		{ID: "mage-tower", Name: "Mage Tower", Upkeep: 4.0, EffectKind: "power_bonus", EffectTarget: "mage", EffectValue: 1},
		{ID: "temple", Name: "Temple", Upkeep: 2.0, EffectKind: "power_bonus", EffectTarget: "cleric", EffectValue: 1},
		{ID: "greenhouse", Name: "Celestial Greenhouse", Upkeep: 5.0, EffectKind: "multiplier", EffectTarget: "production", EffectValue: 1.5},
	}
}
