package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReward(t *testing.T) {
	tests := []struct {
		name       string
		difficulty string
		correct    bool
		streak     int
		want       int
	}{
		{"wrong answer earns nothing", "hard", false, 10, 0},
		{"wrong answer easy", "easy", false, 0, 0},
		{"easy no streak", "easy", true, 0, 7},
		{"medium no streak", "medium", true, 1, 12},
		{"hard below streak threshold", "hard", true, 1, 22},
		{"streak of 2 earns no bonus yet", "easy", true, 2, 7},
		{"streak bonus starts at 3", "easy", true, 3, 9},
		{"easy with streak of 5", "easy", true, 5, 13},
		{"hard with streak of 4", "hard", true, 4, 26},
		{"unknown difficulty falls back to easy", "impossible", true, 0, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reward(tt.difficulty, tt.correct, tt.streak))
		})
	}
}

func TestLevelFromXP(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{199, 2},
		{250, 3},
		{1000, 11},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFromXP(tt.xp), "xp=%d", tt.xp)
	}
}
