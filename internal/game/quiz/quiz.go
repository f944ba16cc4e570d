// Package quiz holds the reward arithmetic of the trivia game.
package quiz

import "chip_games/internal/domain"

// Reward constants. Tunables, not algorithm.
const (
	CorrectBonus  = 2   // Flat bonus for any correct answer
	PerStepBonus  = 2   // Extra per streak step once the streak reaches 3
	AdReward      = 50  // Chips per completed ad view
	ReferralBonus = 100 // One-time credit to the referrer
	XPPerLevel    = 100
)

// baseByDifficulty maps difficulty to the base reward.
var baseByDifficulty = map[string]int{
	domain.DifficultyEasy:   5,
	domain.DifficultyMedium: 10,
	domain.DifficultyHard:   20,
}

// Reward maps (difficulty, correctness, streak before the answer) to chips.
// Wrong answers earn nothing. The streak bonus kicks in at a streak of 3
// and grows by PerStepBonus per step. Unknown difficulties count as easy.
func Reward(difficulty string, correct bool, streak int) int {
	if !correct {
		return 0
	}
	base, ok := baseByDifficulty[difficulty]
	if !ok {
		base = baseByDifficulty[domain.DifficultyEasy]
	}
	streakBonus := 0
	if streak >= 3 {
		streakBonus = (streak - 2) * PerStepBonus
	}
	return base + CorrectBonus + streakBonus
}

// LevelFromXP converts accumulated XP into a level: every 100 XP is a level,
// starting at level 1.
func LevelFromXP(xp int) int {
	level := xp/XPPerLevel + 1
	if level < 1 {
		level = 1
	}
	return level
}
