package model

// Skill names. The first seven feed the combat level formula.
const (
	SkillAttack    = "attack"
	SkillStrength  = "strength"
	SkillDefence   = "defence"
	SkillHitpoints = "hitpoints"
	SkillPrayer    = "prayer"
	SkillRanged    = "ranged"
	SkillMagic     = "magic"

	SkillCooking      = "cooking"
	SkillWoodcutting  = "woodcutting"
	SkillFletching    = "fletching"
	SkillFishing      = "fishing"
	SkillFiremaking   = "firemaking"
	SkillCrafting     = "crafting"
	SkillSmithing     = "smithing"
	SkillMining       = "mining"
	SkillHerblore     = "herblore"
	SkillAgility      = "agility"
	SkillThieving     = "thieving"
	SkillSlayer       = "slayer"
	SkillFarming      = "farming"
	SkillRunecraft    = "runecraft"
	SkillHunter       = "hunter"
	SkillConstruction = "construction"
)

// AllSkills lists every recognized skill name.
var AllSkills = []string{
	SkillAttack, SkillStrength, SkillDefence, SkillHitpoints, SkillPrayer,
	SkillRanged, SkillMagic, SkillCooking, SkillWoodcutting, SkillFletching,
	SkillFishing, SkillFiremaking, SkillCrafting, SkillSmithing, SkillMining,
	SkillHerblore, SkillAgility, SkillThieving, SkillSlayer, SkillFarming,
	SkillRunecraft, SkillHunter, SkillConstruction,
}

var combatSkills = map[string]bool{
	SkillAttack:    true,
	SkillStrength:  true,
	SkillDefence:   true,
	SkillHitpoints: true,
	SkillPrayer:    true,
	SkillRanged:    true,
	SkillMagic:     true,
}

var knownSkills = func() map[string]bool {
	m := make(map[string]bool, len(AllSkills))
	for _, s := range AllSkills {
		m[s] = true
	}
	return m
}()

// IsSkill reports whether name is a recognized skill.
func IsSkill(name string) bool {
	return knownSkills[name]
}

// IsCombatSkill reports whether a change to this skill requires a
// combat level recomputation.
func IsCombatSkill(name string) bool {
	return combatSkills[name]
}

// BaselineLevel returns the level a fresh account holds in a skill.
func BaselineLevel(name string) int {
	if name == SkillHitpoints {
		return 10
	}
	return 1
}
