// Package combat resolves battles between composed forces: type-advantage
// weighted power, winner determination, and asymmetric casualty rates with
// a no-total-wipeout guarantee.
package combat

import (
	"errors"
	"strings"
)

// ErrNegativeUnits rejects a force with a negative role count at the
// boundary, before any resolution math runs.
var ErrNegativeUnits = errors.New("combat: unit counts must be non-negative")

// Role identifies a combat unit role.
type Role uint8

const (
	RoleGuardian Role = iota
	RoleArcher
	RoleMage
	RoleCleric
	RoleOther
	roleCount
)

func (r Role) String() string {
	switch r {
	case RoleGuardian:
		return "guardian"
	case RoleArcher:
		return "archer"
	case RoleMage:
		return "mage"
	case RoleCleric:
		return "cleric"
	default:
		return "other"
	}
}

// ParseRole maps a unit class label to a role. Anything unrecognized
// fights as a neutral "other".
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "guardian":
		return RoleGuardian
	case "archer":
		return RoleArcher
	case "mage":
		return RoleMage
	case "cleric":
		return RoleCleric
	default:
		return RoleOther
	}
}

// Force is one side's composition. Transient: forces are built for a
// single resolution and never persisted by this package.
type Force struct {
	Guardians int
	Archers   int
	Mages     int
	Clerics   int
	Others    int
}

// Validate rejects negative role counts.
func (f Force) Validate() error {
	for _, n := range f.counts() {
		if n < 0 {
			return ErrNegativeUnits
		}
	}
	return nil
}

// Total is the force's unit count across all roles.
func (f Force) Total() int {
	total := 0
	for _, n := range f.counts() {
		total += n
	}
	return total
}

// Count returns the units in one role.
func (f Force) Count(r Role) int {
	return f.counts()[r]
}

// Add returns the force with n more units in the given role.
func (f Force) Add(r Role, n int) Force {
	c := f.counts()
	c[r] += n
	return forceFromCounts(c)
}

func (f Force) counts() [roleCount]int {
	return [roleCount]int{f.Guardians, f.Archers, f.Mages, f.Clerics, f.Others}
}

func forceFromCounts(c [roleCount]int) Force {
	return Force{
		Guardians: c[RoleGuardian],
		Archers:   c[RoleArcher],
		Mages:     c[RoleMage],
		Clerics:   c[RoleCleric],
		Others:    c[RoleOther],
	}
}

// Bonuses are flat per-role additions to the base power weights, e.g.
// from owned infrastructure. The zero value means no bonuses.
type Bonuses struct {
	Guardian float64
	Archer   float64
	Mage     float64
	Cleric   float64
	Other    float64
}

func (b Bonuses) forRole(r Role) float64 {
	switch r {
	case RoleGuardian:
		return b.Guardian
	case RoleArcher:
		return b.Archer
	case RoleMage:
		return b.Mage
	case RoleCleric:
		return b.Cleric
	default:
		return b.Other
	}
}
