// Package combat implements the pure level and experience calculations.
// Everything here is deterministic: the same inputs always produce the
// same outputs, so derived stats can be recomputed at any time.
package combat

import (
	"math"

	"osrs-game-engine/internal/model"
)

// MaxLevel is the level cap for a single skill.
const MaxLevel = 99

// MaxExperience is the experience cap for a single skill.
const MaxExperience = 200_000_000

// xpTable[l] holds the experience required to reach level l.
// xpTable[1] == 0; indices 0 is unused.
var xpTable = buildXPTable()

func buildXPTable() [MaxLevel + 1]int64 {
	var table [MaxLevel + 1]int64
	var points float64
	for lvl := 1; lvl <= MaxLevel; lvl++ {
		table[lvl] = int64(points / 4)
		points += math.Floor(float64(lvl) + 300*math.Pow(2, float64(lvl)/7))
	}
	return table
}

// XPForLevel returns the experience required to reach the given level.
// Levels below 2 require no experience.
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return xpTable[level]
}

// LevelForXP returns the level held at the given experience. The result
// is non-decreasing in xp and capped at MaxLevel.
func LevelForXP(xp int64) int {
	if xp < 0 {
		return 1
	}
	// Binary search for the highest level whose threshold is <= xp.
	lo, hi := 1, MaxLevel
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if xpTable[mid] <= xp {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// Stats holds the seven combat-relevant skill levels. A zero field means
// the skill row is missing and the baseline level applies.
type Stats struct {
	Attack    int
	Strength  int
	Defence   int
	Hitpoints int
	Prayer    int
	Ranged    int
	Magic     int
}

func orBaseline(level int, skill string) int {
	if level > 0 {
		return level
	}
	return model.BaselineLevel(skill)
}

// CombatLevel computes the combat level from the seven combat skills
// using the standard weighted formula: a base term from defence,
// hitpoints and half of prayer, plus the largest of the melee, ranged
// and magic terms, floored to an integer.
func CombatLevel(s Stats) int {
	attack := orBaseline(s.Attack, model.SkillAttack)
	strength := orBaseline(s.Strength, model.SkillStrength)
	defence := orBaseline(s.Defence, model.SkillDefence)
	hitpoints := orBaseline(s.Hitpoints, model.SkillHitpoints)
	prayer := orBaseline(s.Prayer, model.SkillPrayer)
	ranged := orBaseline(s.Ranged, model.SkillRanged)
	magic := orBaseline(s.Magic, model.SkillMagic)

	base := 0.25 * float64(defence+hitpoints+prayer/2)
	melee := 0.325 * float64(attack+strength)
	ranging := 0.325 * float64(3*ranged/2)
	magical := 0.325 * float64(3*magic/2)

	best := melee
	if ranging > best {
		best = ranging
	}
	if magical > best {
		best = magical
	}
	return int(base + best)
}
