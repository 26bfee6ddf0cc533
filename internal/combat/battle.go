package combat

import "math"

// Base power weights per role.
var baseWeight = [roleCount]float64{
	RoleGuardian: 3.0,
	RoleArcher:   2.5,
	RoleMage:     3.0,
	RoleCleric:   1.0,
	RoleOther:    2.0,
}

// advantageMultiplier is the guardian→archer→mage→guardian cycle. All
// other matchups are neutral.
const advantageMultiplier = 1.25

// Cleric support: +5% to non-cleric power per cleric, saturating at +30%.
const (
	clericBuffPerUnit = 0.05
	clericBuffCap     = 0.30
)

// Casualty rates at the two ends of the power-ratio band [1, 5].
const (
	evenFightCasualty  = 0.35
	stompWinnerCasualty = 0.05
	stompLoserCasualty  = 0.95
	maxPowerRatio       = 5.0
	ratioEpsilon        = 1e-6
)

// Side identifies which force won.
type Side uint8

const (
	SideAlly Side = iota
	SideEnemy
)

func (s Side) String() string {
	if s == SideEnemy {
		return "enemy"
	}
	return "ally"
}

// BattleResult is the outcome of one resolution. Remaining plus
// casualties equals the original force, per role, on both sides.
type BattleResult struct {
	Winner          Side
	AllyRemaining   Force
	EnemyRemaining  Force
	AllyCasualties  Force
	EnemyCasualties Force
	AllyPower       float64
	EnemyPower      float64
}

// matchupMultiplier returns the advantage factor for attacker vs defender.
func matchupMultiplier(attacker, defender Role) float64 {
	switch {
	case attacker == RoleGuardian && defender == RoleArcher:
		return advantageMultiplier
	case attacker == RoleArcher && defender == RoleMage:
		return advantageMultiplier
	case attacker == RoleMage && defender == RoleGuardian:
		return advantageMultiplier
	default:
		return 1.0
	}
}

// expectedMultiplier is the advantage multiplier for one role averaged
// over the opposing composition's role shares: the expected value against
// a mixed enemy, not a best or worst case.
func expectedMultiplier(role Role, vs Force) float64 {
	total := vs.Total()
	if total < 1 {
		return 1.0
	}
	m := 0.0
	counts := vs.counts()
	for defender := Role(0); defender < roleCount; defender++ {
		share := float64(counts[defender]) / float64(total)
		m += matchupMultiplier(role, defender) * share
	}
	return m
}

// Power computes a force's effective power against an opposing
// composition. A nil opponent evaluates all matchups as neutral.
func Power(f Force, vs *Force) float64 {
	return powerWith(f, vs, Bonuses{})
}

func powerWith(f Force, vs *Force, bonus Bonuses) float64 {
	buff := math.Min(clericBuffCap, clericBuffPerUnit*float64(max(0, f.Clerics)))

	counts := f.counts()
	core := 0.0
	for role := Role(0); role < roleCount; role++ {
		if role == RoleCleric {
			continue
		}
		mult := 1.0
		if vs != nil {
			mult = expectedMultiplier(role, *vs)
		}
		core += float64(counts[role]) * (baseWeight[role] + bonus.forRole(role)) * mult
	}

	clericPower := float64(counts[RoleCleric]) * (baseWeight[RoleCleric] + bonus.forRole(RoleCleric))
	return core*(1.0+buff) + clericPower
}

// Simulate resolves a battle between two forces. Stateless: one
// transition per call, no randomness.
func Simulate(ally, enemy Force) (BattleResult, error) {
	return SimulateWithBonuses(ally, enemy, Bonuses{}, Bonuses{})
}

// SimulateWithBonuses resolves a battle with per-role power bonuses on
// each side (the caller derives these from owned infrastructure or any
// other modifier source).
func SimulateWithBonuses(ally, enemy Force, allyBonus, enemyBonus Bonuses) (BattleResult, error) {
	if err := ally.Validate(); err != nil {
		return BattleResult{}, err
	}
	if err := enemy.Validate(); err != nil {
		return BattleResult{}, err
	}

	allyPower := powerWith(ally, &enemy, allyBonus)
	enemyPower := powerWith(enemy, &ally, enemyBonus)

	// Epsilon keeps the ratio stable when both powers are near zero.
	ratio := (allyPower + ratioEpsilon) / (enemyPower + ratioEpsilon)

	winner := SideAlly
	winRatio := ratio
	if ratio < 1.0 {
		winner = SideEnemy
		winRatio = 1.0 / ratio
	}
	winRatio = math.Min(maxPowerRatio, winRatio)

	// t=0 is a near-even fight, t=1 a stomp. Close fights cost both sides;
	// lopsided ones are cheap for the winner and devastating for the loser.
	t := (winRatio - 1.0) / (maxPowerRatio - 1.0)
	winnerRate := lerp(evenFightCasualty, stompWinnerCasualty, t)
	loserRate := lerp(evenFightCasualty, stompLoserCasualty, t)

	allyRate, enemyRate := winnerRate, loserRate
	if winner == SideEnemy {
		allyRate, enemyRate = loserRate, winnerRate
	}

	allyRemaining, allyCasualties := applyCasualties(ally, allyRate)
	enemyRemaining, enemyCasualties := applyCasualties(enemy, enemyRate)

	return BattleResult{
		Winner:          winner,
		AllyRemaining:   allyRemaining,
		EnemyRemaining:  enemyRemaining,
		AllyCasualties:  allyCasualties,
		EnemyCasualties: enemyCasualties,
		AllyPower:       allyPower,
		EnemyPower:      enemyPower,
	}, nil
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// applyCasualties distributes a casualty rate uniformly across roles.
// A force with any units never loses them all: if rounding would empty
// it, one unit is restored to its largest original role and the casualty
// figures are recomputed so remaining + casualties == original per role.
func applyCasualties(f Force, rate float64) (remaining, casualties Force) {
	rate = math.Max(0, math.Min(0.95, rate))

	orig := f.counts()
	var rem [roleCount]int
	for role := Role(0); role < roleCount; role++ {
		lost := int(math.Round(float64(orig[role]) * rate))
		if lost > orig[role] {
			lost = orig[role]
		}
		rem[role] = orig[role] - lost
	}

	total := 0
	for _, n := range rem {
		total += n
	}
	if total == 0 && f.Total() > 0 {
		rem[largestRole(orig)] = 1
	}

	var lost [roleCount]int
	for role := Role(0); role < roleCount; role++ {
		lost[role] = orig[role] - rem[role]
	}
	return forceFromCounts(rem), forceFromCounts(lost)
}

// largestRole picks the role holding the most units; ties resolve in
// fixed role order, so an all-"other" force is rescued into "other".
func largestRole(counts [roleCount]int) Role {
	best := Role(0)
	for role := Role(1); role < roleCount; role++ {
		if counts[role] > counts[best] {
			best = role
		}
	}
	return best
}
