package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/sun-imperium/internal/combat"
)

// CurrentWeek returns the campaign's week pointer, bootstrapping the
// app state row on first use.
func (db *DB) CurrentWeek(ctx context.Context) (int64, error) {
	var week int64
	err := db.conn.GetContext(ctx, &week, `SELECT current_week FROM app_state WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := db.conn.ExecContext(ctx, `INSERT INTO app_state (id, current_week) VALUES (1, 1)`); err != nil {
			return 0, fmt.Errorf("bootstrap app state: %w", err)
		}
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("select current week: %w", err)
	}
	return week, nil
}

// AdvanceWeekPointer moves the campaign to the next week and returns it.
func (db *DB) AdvanceWeekPointer(ctx context.Context) (int64, error) {
	current, err := db.CurrentWeek(ctx)
	if err != nil {
		return 0, err
	}
	next := current + 1
	if _, err := db.conn.ExecContext(ctx, `UPDATE app_state SET current_week = ? WHERE id = 1`, next); err != nil {
		return 0, fmt.Errorf("advance week pointer: %w", err)
	}
	return next, nil
}

// AddLedgerEntry appends one gold movement to the ledger.
func (db *DB) AddLedgerEntry(ctx context.Context, week int64, direction string, amount float64, category, note string) error {
	if direction != "in" && direction != "out" {
		return fmt.Errorf("ledger direction must be \"in\" or \"out\", got %q", direction)
	}
	_, err := db.conn.ExecContext(ctx, `INSERT INTO ledger_entries (week, direction, amount, category, note)
		VALUES (?, ?, ?, ?, ?)`, week, direction, amount, category, note)
	if err != nil {
		return fmt.Errorf("add ledger entry: %w", err)
	}
	return nil
}

// LedgerTotals holds the treasury balance and one week's flow.
type LedgerTotals struct {
	Gold     float64
	Income   float64
	Expenses float64
}

// Ledger computes current gold across all weeks plus the given week's
// income and expenses.
func (db *DB) Ledger(ctx context.Context, week int64) (LedgerTotals, error) {
	var totals LedgerTotals
	err := db.conn.GetContext(ctx, &totals.Gold, `SELECT COALESCE(SUM(
			CASE direction WHEN 'in' THEN amount ELSE -amount END), 0)
		FROM ledger_entries`)
	if err != nil {
		return LedgerTotals{}, fmt.Errorf("sum ledger: %w", err)
	}
	err = db.conn.GetContext(ctx, &totals.Income, `SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries WHERE week = ? AND direction = 'in'`, week)
	if err != nil {
		return LedgerTotals{}, fmt.Errorf("sum week income: %w", err)
	}
	err = db.conn.GetContext(ctx, &totals.Expenses, `SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries WHERE week = ? AND direction = 'out'`, week)
	if err != nil {
		return LedgerTotals{}, fmt.Errorf("sum week expenses: %w", err)
	}
	return totals, nil
}

// Unit is a recruitable unit type.
type Unit struct {
	ID     string  `db:"id"`
	Name   string  `db:"name"`
	Class  string  `db:"class"`
	Upkeep float64 `db:"upkeep"`
}

// SaveUnit upserts a unit type.
func (db *DB) SaveUnit(ctx context.Context, u Unit) error {
	_, err := db.conn.ExecContext(ctx, `INSERT INTO military_units (id, name, class, upkeep)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
		 name = excluded.name, class = excluded.class, upkeep = excluded.upkeep`,
		u.ID, u.Name, u.Class, u.Upkeep)
	if err != nil {
		return fmt.Errorf("save unit %q: %w", u.ID, err)
	}
	return nil
}

// SetRoster sets the owned quantity of a unit type.
func (db *DB) SetRoster(ctx context.Context, unitID string, quantity int) error {
	_, err := db.conn.ExecContext(ctx, `INSERT INTO military_roster (unit_id, quantity)
		VALUES (?, ?)
		ON CONFLICT (unit_id) DO UPDATE SET quantity = excluded.quantity`,
		unitID, quantity)
	if err != nil {
		return fmt.Errorf("set roster %q: %w", unitID, err)
	}
	return nil
}

// RosterForce builds a combat force from the persisted roster, mapping
// each unit's class to its role.
func (db *DB) RosterForce(ctx context.Context) (combat.Force, error) {
	var rows []struct {
		Class    string `db:"class"`
		Quantity int    `db:"quantity"`
	}
	err := db.conn.SelectContext(ctx, &rows, `SELECT u.class, r.quantity
		FROM military_roster r JOIN military_units u ON u.id = r.unit_id
		WHERE r.quantity > 0`)
	if err != nil {
		return combat.Force{}, fmt.Errorf("select roster: %w", err)
	}

	var force combat.Force
	for _, r := range rows {
		force = force.Add(combat.ParseRole(r.Class), r.Quantity)
	}
	return force, nil
}

// TotalUpkeep sums weekly upkeep across the unit roster and owned
// infrastructure.
func (db *DB) TotalUpkeep(ctx context.Context) (float64, error) {
	var rosterUpkeep float64
	err := db.conn.GetContext(ctx, &rosterUpkeep, `SELECT COALESCE(SUM(r.quantity * u.upkeep), 0)
		FROM military_roster r JOIN military_units u ON u.id = r.unit_id`)
	if err != nil {
		return 0, fmt.Errorf("sum roster upkeep: %w", err)
	}

	var infraUpkeep float64
	err = db.conn.GetContext(ctx, &infraUpkeep, `SELECT COALESCE(SUM(i.upkeep), 0)
		FROM infrastructure_owned o JOIN infrastructure i ON i.id = o.infrastructure_id
		WHERE o.owned = 1`)
	if err != nil {
		return 0, fmt.Errorf("sum infrastructure upkeep: %w", err)
	}

	return rosterUpkeep + infraUpkeep, nil
}

// Infrastructure is a buildable improvement with an optional effect.
type Infrastructure struct {
	ID           string  `db:"id"`
	Name         string  `db:"name"`
	Upkeep       float64 `db:"upkeep"`
	EffectKind   string  `db:"effect_kind"`
	EffectTarget string  `db:"effect_target"`
	EffectValue  float64 `db:"effect_value"`
}

// SaveInfrastructure upserts an infrastructure definition.
func (db *DB) SaveInfrastructure(ctx context.Context, inf Infrastructure) error {
	_, err := db.conn.ExecContext(ctx, `INSERT INTO infrastructure
		(id, name, upkeep, effect_kind, effect_target, effect_value)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
		 name = excluded.name, upkeep = excluded.upkeep,
		 effect_kind = excluded.effect_kind, effect_target = excluded.effect_target,
		 effect_value = excluded.effect_value`,
		inf.ID, inf.Name, inf.Upkeep, inf.EffectKind, inf.EffectTarget, inf.EffectValue)
	if err != nil {
		return fmt.Errorf("save infrastructure %q: %w", inf.ID, err)
	}
	return nil
}

// SetInfrastructureOwned marks an improvement owned or not.
func (db *DB) SetInfrastructureOwned(ctx context.Context, id string, owned bool) error {
	_, err := db.conn.ExecContext(ctx, `INSERT INTO infrastructure_owned (infrastructure_id, owned)
		VALUES (?, ?)
		ON CONFLICT (infrastructure_id) DO UPDATE SET owned = excluded.owned`,
		id, owned)
	if err != nil {
		return fmt.Errorf("set infrastructure owned %q: %w", id, err)
	}
	return nil
}

// PowerBonuses sums owned power_bonus infrastructure effects per role.
func (db *DB) PowerBonuses(ctx context.Context) (combat.Bonuses, error) {
	var rows []struct {
		Target string  `db:"effect_target"`
		Value  float64 `db:"effect_value"`
	}
	err := db.conn.SelectContext(ctx, &rows, `SELECT i.effect_target, i.effect_value
		FROM infrastructure_owned o JOIN infrastructure i ON i.id = o.infrastructure_id
		WHERE o.owned = 1 AND i.effect_kind = 'power_bonus'`)
	if err != nil {
		return combat.Bonuses{}, fmt.Errorf("select power bonuses: %w", err)
	}

	var b combat.Bonuses
	for _, r := range rows {
		switch combat.ParseRole(r.Target) {
		case combat.RoleGuardian:
			b.Guardian += r.Value
		case combat.RoleArcher:
			b.Archer += r.Value
		case combat.RoleMage:
			b.Mage += r.Value
		case combat.RoleCleric:
			b.Cleric += r.Value
		default:
			b.Other += r.Value
		}
	}
	return b, nil
}

// SaveBattleLog appends a resolved battle to the log and returns the
// record id.
func (db *DB) SaveBattleLog(ctx context.Context, res combat.BattleResult) (string, error) {
	id := uuid.NewString()

	allyRemaining, _ := json.Marshal(res.AllyRemaining)
	enemyRemaining, _ := json.Marshal(res.EnemyRemaining)
	allyCasualties, _ := json.Marshal(res.AllyCasualties)
	enemyCasualties, _ := json.Marshal(res.EnemyCasualties)

	_, err := db.conn.ExecContext(ctx, `INSERT INTO battle_log
		(id, fought_at, winner, ally_power, enemy_power,
		 ally_remaining, enemy_remaining, ally_casualties, enemy_casualties)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339), res.Winner.String(),
		res.AllyPower, res.EnemyPower,
		string(allyRemaining), string(enemyRemaining),
		string(allyCasualties), string(enemyCasualties))
	if err != nil {
		return "", fmt.Errorf("save battle log: %w", err)
	}
	return id, nil
}
