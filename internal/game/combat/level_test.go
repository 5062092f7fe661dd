package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestXPForLevel_KnownThresholds(t *testing.T) {
	tests := []struct {
		level int
		xp    int64
	}{
		{1, 0},
		{2, 83},
		{3, 174},
		{4, 276},
		{10, 1154},
		{20, 4470},
		{50, 101333},
		{92, 6517253}, // halfway point of the table in experience
		{99, 13034431},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.xp, XPForLevel(tt.level), "level %d", tt.level)
	}
}

func TestXPForLevel_Bounds(t *testing.T) {
	assert.Equal(t, int64(0), XPForLevel(0))
	assert.Equal(t, int64(0), XPForLevel(-5))
	assert.Equal(t, XPForLevel(99), XPForLevel(150))
}

func TestLevelForXP_KnownValues(t *testing.T) {
	assert.Equal(t, 1, LevelForXP(0))
	assert.Equal(t, 1, LevelForXP(82))
	assert.Equal(t, 2, LevelForXP(83))
	assert.Equal(t, 9, LevelForXP(1153))
	assert.Equal(t, 10, LevelForXP(1154))
	assert.Equal(t, 99, LevelForXP(13034431))
	assert.Equal(t, 99, LevelForXP(MaxExperience))
	assert.Equal(t, 1, LevelForXP(-1))
}

// LevelForXP is the inverse of XPForLevel: the level held at exactly
// the threshold is the threshold's level, and one experience point
// below it is the level beneath.
func TestLevelForXPInvertsThresholds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		level := rapid.IntRange(2, MaxLevel).Draw(t, "level")
		xp := XPForLevel(level)

		if got := LevelForXP(xp); got != level {
			t.Fatalf("LevelForXP(XPForLevel(%d)) = %d", level, got)
		}
		if got := LevelForXP(xp - 1); got != level-1 {
			t.Fatalf("LevelForXP(%d) = %d, want %d", xp-1, got, level-1)
		}
	})
}

func TestLevelForXPIsMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Int64Range(0, MaxExperience).Draw(t, "a")
		b := rapid.Int64Range(0, MaxExperience).Draw(t, "b")
		if a > b {
			a, b = b, a
		}
		la, lb := LevelForXP(a), LevelForXP(b)
		if la > lb {
			t.Fatalf("LevelForXP not monotonic: xp %d -> %d but xp %d -> %d", a, la, b, lb)
		}
	})
}

func TestCombatLevel(t *testing.T) {
	tests := []struct {
		name  string
		stats Stats
		want  int
	}{
		{
			// Fresh account: all skills at baseline.
			name:  "fresh player",
			stats: Stats{},
			want:  3,
		},
		{
			// 0.25*(50+50+25) + 0.325*(50+50) = 63.75, and the final
			// floor takes it to 63, not 64.
			name: "all fifties melee",
			stats: Stats{
				Attack: 50, Strength: 50, Defence: 50,
				Hitpoints: 50, Prayer: 50, Ranged: 50, Magic: 50,
			},
			want: 63,
		},
		{
			name: "maxed",
			stats: Stats{
				Attack: 99, Strength: 99, Defence: 99,
				Hitpoints: 99, Prayer: 99, Ranged: 99, Magic: 99,
			},
			want: 126,
		},
		{
			name: "pure ranger",
			stats: Stats{
				Attack: 1, Strength: 1, Defence: 1,
				Hitpoints: 10, Prayer: 1, Ranged: 99, Magic: 1,
			},
			want: 50, // 0.25*(1+10+0) + 0.325*floor(3*99/2)
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CombatLevel(tt.stats))
		})
	}
}

func TestCombatLevelNeverDecreasesWithLevels(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lvl := func(name string) int { return rapid.IntRange(1, MaxLevel).Draw(t, name) }
		s := Stats{
			Attack:    lvl("attack"),
			Strength:  lvl("strength"),
			Defence:   lvl("defence"),
			Hitpoints: lvl("hitpoints"),
			Prayer:    lvl("prayer"),
			Ranged:    lvl("ranged"),
			Magic:     lvl("magic"),
		}
		before := CombatLevel(s)

		bumped := s
		bumped.Strength = min(bumped.Strength+1, MaxLevel)
		bumped.Defence = min(bumped.Defence+1, MaxLevel)
		after := CombatLevel(bumped)

		if after < before {
			t.Fatalf("combat level decreased from %d to %d after raising levels", before, after)
		}
	})
}
