// Package tombola holds the pure game rules of the tombola draw:
// card generation, draw-without-replacement and room status transitions.
package tombola

import (
	"errors"
	"math/rand"
	"strconv"

	"chip_games/internal/domain"
)

const (
	MaxNumber       = 90   // Numbers are drawn from [1, MaxNumber]
	CardSize        = 15   // Numbers per card
	MaxCardsPerRoom = 4    // Cards one player may own in a single room
	CardCost        = 1000 // Chip cost of an extra card
)

// ErrAllNumbersDrawn is returned when the 90-number universe is exhausted.
var ErrAllNumbersDrawn = errors.New("all numbers drawn")

// GenerateCard returns 15 distinct numbers in [1,90] in generation order.
// Collisions are rejected and resampled; at 15 of 90 that terminates quickly.
func GenerateCard() []int {
	seen := make(map[int]bool, CardSize)
	card := make([]int, 0, CardSize)
	for len(card) < CardSize {
		n := rand.Intn(MaxNumber) + 1
		if seen[n] {
			continue
		}
		seen[n] = true
		card = append(card, n)
	}
	return card
}

// NextNumber picks one not-yet-drawn number uniformly at random.
// Numbers already in drawn are never returned again.
func NextNumber(drawn []int) (int, error) {
	used := make(map[int]bool, len(drawn))
	for _, n := range drawn {
		used[n] = true
	}
	remaining := make([]int, 0, MaxNumber-len(used))
	for n := 1; n <= MaxNumber; n++ {
		if !used[n] {
			remaining = append(remaining, n)
		}
	}
	if len(remaining) == 0 {
		return 0, ErrAllNumbersDrawn
	}
	return remaining[rand.Intn(len(remaining))], nil
}

// NewRoomCode returns a random 4-digit room code (1000-9999).
func NewRoomCode() string {
	return strconv.Itoa(1000 + rand.Intn(9000))
}

// CanTransition reports whether a room status change is allowed.
// Only lobby -> running and running -> finished are valid; no regression.
func CanTransition(from, to string) bool {
	switch {
	case from == domain.RoomLobby && to == domain.RoomRunning:
		return true
	case from == domain.RoomRunning && to == domain.RoomFinished:
		return true
	}
	return false
}
