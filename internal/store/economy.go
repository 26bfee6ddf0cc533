package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/talgya/sun-imperium/internal/catalog"
	"github.com/talgya/sun-imperium/internal/economy"
	"github.com/talgya/sun-imperium/internal/realm"
)

// outputChunkSize bounds per-statement insert size when replacing a
// week's output rows.
const outputChunkSize = 250

type settingsRow struct {
	TaxRate         sql.NullFloat64 `db:"tax_rate"`
	PlayerShare     sql.NullFloat64 `db:"player_share"`
	EconomyScale    sql.NullFloat64 `db:"economy_scale"`
	RandMin         sql.NullFloat64 `db:"rand_min"`
	RandMax         sql.NullFloat64 `db:"rand_max"`
	WarSeverity     sql.NullFloat64 `db:"war_severity"`
	PriceElasticity sql.NullFloat64 `db:"price_elasticity"`
	SpendPerCapita  sql.NullFloat64 `db:"spend_per_capita"`
	TargetPayout    sql.NullFloat64 `db:"target_payout"`
	BasePriceIndex  sql.NullFloat64 `db:"base_price_index"`
	Calibrated      sql.NullBool    `db:"calibrated"`
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// Settings reads the settings singleton. A missing row is not an error:
// the resolver fills every field from defaults.
func (db *DB) Settings(ctx context.Context) (economy.RawSettings, error) {
	var row settingsRow
	err := db.conn.GetContext(ctx, &row, `SELECT tax_rate, player_share, economy_scale,
		rand_min, rand_max, war_severity, price_elasticity, spend_per_capita,
		target_payout, base_price_index, calibrated
		FROM economy_settings WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return economy.RawSettings{}, nil
	}
	if err != nil {
		return economy.RawSettings{}, fmt.Errorf("select settings: %w", err)
	}

	raw := economy.RawSettings{
		TaxRate:         nullableFloat(row.TaxRate),
		PlayerShare:     nullableFloat(row.PlayerShare),
		EconomyScale:    nullableFloat(row.EconomyScale),
		RandMin:         nullableFloat(row.RandMin),
		RandMax:         nullableFloat(row.RandMax),
		WarSeverity:     nullableFloat(row.WarSeverity),
		PriceElasticity: nullableFloat(row.PriceElasticity),
		SpendPerCapita:  nullableFloat(row.SpendPerCapita),
		TargetPayout:    nullableFloat(row.TargetPayout),
		BasePriceIndex:  nullableFloat(row.BasePriceIndex),
	}
	if row.Calibrated.Valid {
		b := row.Calibrated.Bool
		raw.Calibrated = &b
	}
	return raw, nil
}

// SaveSettings upserts the settings singleton.
func (db *DB) SaveSettings(ctx context.Context, s economy.Settings) error {
	_, err := db.conn.ExecContext(ctx, `INSERT INTO economy_settings
		(id, tax_rate, player_share, economy_scale, rand_min, rand_max,
		 war_severity, price_elasticity, spend_per_capita, target_payout,
		 base_price_index, calibrated)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
		 tax_rate = excluded.tax_rate,
		 player_share = excluded.player_share,
		 economy_scale = excluded.economy_scale,
		 rand_min = excluded.rand_min,
		 rand_max = excluded.rand_max,
		 war_severity = excluded.war_severity,
		 price_elasticity = excluded.price_elasticity,
		 spend_per_capita = excluded.spend_per_capita,
		 target_payout = excluded.target_payout,
		 base_price_index = excluded.base_price_index,
		 calibrated = excluded.calibrated`,
		s.TaxRate, s.PlayerShare, s.EconomyScale, s.RandMin, s.RandMax,
		s.WarSeverity, s.PriceElasticity, s.SpendPerCapita, s.TargetPayout,
		s.BasePriceIndex, s.Calibration == economy.Calibrated)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

type goodRow struct {
	Name      string  `db:"name"`
	Tier      int     `db:"tier"`
	Rarity    string  `db:"rarity"`
	BasePrice float64 `db:"base_price_gp"`
	Region    string  `db:"region"`
	Family    string  `db:"family"`
}

// Goods loads the tradable catalog, family backfill applied. Ordered by
// name so every computation walks the catalog in the same order.
func (db *DB) Goods(ctx context.Context) ([]catalog.Good, error) {
	var rows []goodRow
	err := db.conn.SelectContext(ctx, &rows, `SELECT name, tier, rarity, base_price_gp, region, family
		FROM gathering_items ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select goods: %w", err)
	}

	goods := make([]catalog.Good, 0, len(rows))
	for _, r := range rows {
		goods = append(goods, catalog.Good{
			Name:      r.Name,
			Tier:      r.Tier,
			Rarity:    catalog.ParseRarity(r.Rarity),
			BasePrice: r.BasePrice,
			Region:    r.Region,
			Family:    r.Family,
		})
	}
	return catalog.BackfillFamily(goods), nil
}

// SaveGoods replaces the goods catalog.
func (db *DB) SaveGoods(ctx context.Context, goods []catalog.Good) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM gathering_items`); err != nil {
		return err
	}
	stmt, err := tx.PreparexContext(ctx, `INSERT INTO gathering_items
		(name, tier, rarity, base_price_gp, region, family) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, g := range goods {
		if _, err := stmt.ExecContext(ctx, g.Name, g.Tier, g.Rarity.String(), g.BasePrice, g.Region, g.Family); err != nil {
			return fmt.Errorf("insert good %q: %w", g.Name, err)
		}
	}
	return tx.Commit()
}

// Population returns the population count for a week, falling back to
// the founding population when no row exists yet.
func (db *DB) Population(ctx context.Context, week int64) (int64, error) {
	var population int64
	err := db.conn.GetContext(ctx, &population,
		`SELECT population FROM population_state WHERE week = ?`, week)
	if errors.Is(err, sql.ErrNoRows) {
		return economy.DefaultPopulation, nil
	}
	if err != nil {
		return 0, fmt.Errorf("select population week %d: %w", week, err)
	}
	return population, nil
}

// SavePopulation upserts a week's population record.
func (db *DB) SavePopulation(ctx context.Context, rec economy.PopulationRecord) error {
	_, err := db.conn.ExecContext(ctx, `INSERT INTO population_state
		(week, population, grain_needed, water_needed, grain_produced, water_produced,
		 survival_ratio, growth, deaths_starvation, deaths_war, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (week) DO UPDATE SET
		 population = excluded.population,
		 grain_needed = excluded.grain_needed,
		 water_needed = excluded.water_needed,
		 grain_produced = excluded.grain_produced,
		 water_produced = excluded.water_produced,
		 survival_ratio = excluded.survival_ratio,
		 growth = excluded.growth,
		 deaths_starvation = excluded.deaths_starvation,
		 deaths_war = excluded.deaths_war,
		 note = excluded.note`,
		rec.Week, rec.Population, rec.GrainNeeded, rec.WaterNeeded,
		rec.GrainProduced, rec.WaterProduced, rec.SurvivalRatio,
		rec.Growth, rec.DeathsStarvation, rec.DeathsWar, rec.Note)
	if err != nil {
		return fmt.Errorf("save population week %d: %w", rec.Week, err)
	}
	return nil
}

// PopulationRecord reads a week's full demographic record.
func (db *DB) PopulationRecord(ctx context.Context, week int64) (economy.PopulationRecord, error) {
	var row struct {
		Week             int64   `db:"week"`
		Population       int64   `db:"population"`
		GrainNeeded      float64 `db:"grain_needed"`
		WaterNeeded      float64 `db:"water_needed"`
		GrainProduced    int64   `db:"grain_produced"`
		WaterProduced    int64   `db:"water_produced"`
		SurvivalRatio    float64 `db:"survival_ratio"`
		Growth           int64   `db:"growth"`
		DeathsStarvation int64   `db:"deaths_starvation"`
		DeathsWar        int64   `db:"deaths_war"`
		Note             string  `db:"note"`
	}
	err := db.conn.GetContext(ctx, &row, `SELECT week, population, grain_needed, water_needed,
		grain_produced, water_produced, survival_ratio, growth, deaths_starvation, deaths_war, note
		FROM population_state WHERE week = ?`, week)
	if err != nil {
		return economy.PopulationRecord{}, fmt.Errorf("select population record week %d: %w", week, err)
	}
	return economy.PopulationRecord(row), nil
}

// SetPopulation writes just a week's head count, for carry-forward.
func (db *DB) SetPopulation(ctx context.Context, week, population int64) error {
	grain, water := economy.Needs(population)
	_, err := db.conn.ExecContext(ctx, `INSERT INTO population_state
		(week, population, grain_needed, water_needed, grain_produced, water_produced, survival_ratio, note)
		VALUES (?, ?, ?, ?, 0, 0, 0, 'carried')
		ON CONFLICT (week) DO UPDATE SET population = excluded.population`,
		week, population, grain, water)
	if err != nil {
		return fmt.Errorf("set population week %d: %w", week, err)
	}
	return nil
}

// RegionWeeks loads a week's region states keyed by region name.
func (db *DB) RegionWeeks(ctx context.Context, week int64) (map[string]realm.RegionWeek, error) {
	var rows []struct {
		Region          string  `db:"region"`
		ProductionScore float64 `db:"production_score"`
		DMModifier      float64 `db:"dm_modifier"`
	}
	err := db.conn.SelectContext(ctx, &rows, `SELECT region, production_score, dm_modifier
		FROM region_week_state WHERE week = ?`, week)
	if err != nil {
		return nil, fmt.Errorf("select region states week %d: %w", week, err)
	}

	out := make(map[string]realm.RegionWeek, len(rows))
	for _, r := range rows {
		out[r.Region] = realm.RegionWeek{
			Region:          r.Region,
			ProductionScore: r.ProductionScore,
			DMModifier:      r.DMModifier,
		}
	}
	return out, nil
}

// FamilyWeeks loads a week's family states keyed by family name.
func (db *DB) FamilyWeeks(ctx context.Context, week int64) (map[string]realm.FamilyWeek, error) {
	var rows []struct {
		Family          string  `db:"family"`
		ReputationScore float64 `db:"reputation_score"`
		DMModifier      float64 `db:"dm_modifier"`
	}
	err := db.conn.SelectContext(ctx, &rows, `SELECT family, reputation_score, dm_modifier
		FROM family_week_state WHERE week = ?`, week)
	if err != nil {
		return nil, fmt.Errorf("select family states week %d: %w", week, err)
	}

	out := make(map[string]realm.FamilyWeek, len(rows))
	for _, r := range rows {
		out[r.Family] = realm.FamilyWeek{
			Family:          r.Family,
			ReputationScore: r.ReputationScore,
			DMModifier:      r.DMModifier,
		}
	}
	return out, nil
}

// SaveRegionWeeks upserts region states for a week.
func (db *DB) SaveRegionWeeks(ctx context.Context, week int64, states []realm.RegionWeek) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, s := range states {
		_, err := tx.ExecContext(ctx, `INSERT INTO region_week_state
			(week, region, production_score, dm_modifier) VALUES (?, ?, ?, ?)
			ON CONFLICT (week, region) DO UPDATE SET
			 production_score = excluded.production_score,
			 dm_modifier = excluded.dm_modifier`,
			week, s.Region, s.ProductionScore, s.DMModifier)
		if err != nil {
			return fmt.Errorf("save region state %q week %d: %w", s.Region, week, err)
		}
	}
	return tx.Commit()
}

// SaveFamilyWeeks upserts family states for a week.
func (db *DB) SaveFamilyWeeks(ctx context.Context, week int64, states []realm.FamilyWeek) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, s := range states {
		_, err := tx.ExecContext(ctx, `INSERT INTO family_week_state
			(week, family, reputation_score, dm_modifier) VALUES (?, ?, ?, ?)
			ON CONFLICT (week, family) DO UPDATE SET
			 reputation_score = excluded.reputation_score,
			 dm_modifier = excluded.dm_modifier`,
			week, s.Family, s.ReputationScore, s.DMModifier)
		if err != nil {
			return fmt.Errorf("save family state %q week %d: %w", s.Family, week, err)
		}
	}
	return tx.Commit()
}

// SaveWeek persists one week's results: the per-good rows wholly replace
// that week's previous set, and the summary row is upserted by week.
func (db *DB) SaveWeek(ctx context.Context, res economy.Result, rows []economy.GoodOutput) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM economy_week_output WHERE week = ?`, res.Week); err != nil {
		return fmt.Errorf("clear week %d output: %w", res.Week, err)
	}

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO economy_week_output
		(week, item_name, qty, effective_price, gross_value, rarity, region, family)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for start := 0; start < len(rows); start += outputChunkSize {
		end := min(start+outputChunkSize, len(rows))
		for _, row := range rows[start:end] {
			_, err := stmt.ExecContext(ctx, row.Week, row.Name, row.Quantity,
				row.EffectivePrice, row.GrossValue, row.Rarity.String(), row.Region, row.Family)
			if err != nil {
				return fmt.Errorf("insert output row %q: %w", row.Name, err)
			}
		}
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO economy_week_summary
		(week, population, grain_needed, water_needed, grain_produced, water_produced,
		 survival_ratio, gross_value, tax_rate, tax_income, player_share, player_payout,
		 upkeep_total, price_index)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (week) DO UPDATE SET
		 population = excluded.population,
		 grain_needed = excluded.grain_needed,
		 water_needed = excluded.water_needed,
		 grain_produced = excluded.grain_produced,
		 water_produced = excluded.water_produced,
		 survival_ratio = excluded.survival_ratio,
		 gross_value = excluded.gross_value,
		 tax_rate = excluded.tax_rate,
		 tax_income = excluded.tax_income,
		 player_share = excluded.player_share,
		 player_payout = excluded.player_payout,
		 upkeep_total = excluded.upkeep_total,
		 price_index = excluded.price_index`,
		res.Week, res.Population, res.GrainNeeded, res.WaterNeeded,
		res.GrainProduced, res.WaterProduced, res.SurvivalRatio, res.GrossValue,
		res.TaxRate, res.TaxIncome, res.PlayerShare, res.PlayerPayout,
		res.UpkeepTotal, res.PriceIndex)
	if err != nil {
		return fmt.Errorf("upsert week %d summary: %w", res.Week, err)
	}

	return tx.Commit()
}

// WeekSummary reads a persisted week summary.
func (db *DB) WeekSummary(ctx context.Context, week int64) (economy.Result, error) {
	var row struct {
		Week          int64   `db:"week"`
		Population    int64   `db:"population"`
		GrainNeeded   float64 `db:"grain_needed"`
		WaterNeeded   float64 `db:"water_needed"`
		GrainProduced int64   `db:"grain_produced"`
		WaterProduced int64   `db:"water_produced"`
		SurvivalRatio float64 `db:"survival_ratio"`
		GrossValue    float64 `db:"gross_value"`
		TaxRate       float64 `db:"tax_rate"`
		TaxIncome     float64 `db:"tax_income"`
		PlayerShare   float64 `db:"player_share"`
		PlayerPayout  float64 `db:"player_payout"`
		UpkeepTotal   float64 `db:"upkeep_total"`
		PriceIndex    float64 `db:"price_index"`
	}
	err := db.conn.GetContext(ctx, &row, `SELECT week, population, grain_needed, water_needed,
		grain_produced, water_produced, survival_ratio, gross_value, tax_rate, tax_income,
		player_share, player_payout, upkeep_total, price_index
		FROM economy_week_summary WHERE week = ?`, week)
	if err != nil {
		return economy.Result{}, fmt.Errorf("select week %d summary: %w", week, err)
	}
	return economy.Result(row), nil
}

// WeekOutputCount reports how many per-good rows a week holds.
func (db *DB) WeekOutputCount(ctx context.Context, week int64) (int, error) {
	var n int
	err := db.conn.GetContext(ctx, &n, `SELECT COUNT(*) FROM economy_week_output WHERE week = ?`, week)
	return n, err
}
