package tombola

import (
	"testing"

	"chip_games/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCard(t *testing.T) {
	// Sampling is random, so check the invariants over many cards
	for i := 0; i < 200; i++ {
		card := GenerateCard()
		require.Len(t, card, CardSize)
		seen := make(map[int]bool, CardSize)
		for _, n := range card {
			assert.GreaterOrEqual(t, n, 1)
			assert.LessOrEqual(t, n, MaxNumber)
			assert.False(t, seen[n], "card contains duplicate %d", n)
			seen[n] = true
		}
	}
}

func TestNextNumberDrawsWithoutReplacement(t *testing.T) {
	var drawn []int
	// A full session drains all 90 numbers with no repeats
	for i := 0; i < MaxNumber; i++ {
		n, err := NextNumber(drawn)
		require.NoError(t, err)
		assert.NotContains(t, drawn, n)
		drawn = append(drawn, n)
	}
	require.Len(t, drawn, MaxNumber)
	// Every number in [1,90] was drawn exactly once
	seen := make(map[int]bool, MaxNumber)
	for _, n := range drawn {
		seen[n] = true
	}
	assert.Len(t, seen, MaxNumber)
	// The 91st draw fails
	_, err := NextNumber(drawn)
	assert.ErrorIs(t, err, ErrAllNumbersDrawn)
	// And the history is unchanged by the failed attempt
	assert.Len(t, drawn, MaxNumber)
}

func TestNewRoomCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := NewRoomCode()
		require.Len(t, code, 4)
		assert.GreaterOrEqual(t, code[0], byte('1'))
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{"lobby to running", domain.RoomLobby, domain.RoomRunning, true},
		{"running to finished", domain.RoomRunning, domain.RoomFinished, true},
		{"lobby to finished skips running", domain.RoomLobby, domain.RoomFinished, false},
		{"finished to running regression", domain.RoomFinished, domain.RoomRunning, false},
		{"running to lobby regression", domain.RoomRunning, domain.RoomLobby, false},
		{"finished is terminal", domain.RoomFinished, domain.RoomFinished, false},
		{"lobby to lobby", domain.RoomLobby, domain.RoomLobby, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}
