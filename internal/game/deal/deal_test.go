package deal

import (
	"math"
	"testing"

	"chip_games/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRound builds a round with unshuffled cases so tests know every amount.
func newRound() *domain.DealRound {
	cases := make([]domain.Briefcase, len(Amounts))
	for i, amount := range Amounts {
		cases[i] = domain.Briefcase{ID: i + 1, Amount: amount}
	}
	return &domain.DealRound{Stage: domain.DealPick, Cases: cases}
}

func TestNewCasesIsAPermutation(t *testing.T) {
	var tableSum int64
	for _, a := range Amounts {
		tableSum += a
	}
	for i := 0; i < 50; i++ {
		cases := NewCases()
		require.Len(t, cases, len(Amounts))
		// The shuffle permutes, it never resamples: sums must match
		var sum int64
		counts := make(map[int64]int)
		for _, c := range cases {
			sum += c.Amount
			counts[c.Amount]++
		}
		assert.Equal(t, tableSum, sum)
		// Every table amount appears exactly once
		for _, a := range Amounts {
			assert.Equal(t, 1, counts[a], "amount %d", a)
		}
		// IDs are 1..n in order
		for i, c := range cases {
			assert.Equal(t, i+1, c.ID)
		}
	}
}

func TestPick(t *testing.T) {
	r := newRound()
	// Unknown case rejected
	assert.ErrorIs(t, Pick(r, 99), ErrUnknownCase)
	assert.Equal(t, domain.DealPick, r.Stage)
	// Exactly one pick permitted
	require.NoError(t, Pick(r, 3))
	assert.Equal(t, 3, r.PlayerCaseID)
	assert.Equal(t, domain.DealOpen, r.Stage)
	assert.ErrorIs(t, Pick(r, 4), ErrWrongStage)
	assert.Equal(t, 3, r.PlayerCaseID)
}

func TestOpenRejections(t *testing.T) {
	r := newRound()
	// Opening before picking is rejected
	_, err := Open(r, 1)
	assert.ErrorIs(t, err, ErrWrongStage)

	require.NoError(t, Pick(r, 1))
	// The player's own case stays shut until settlement
	_, err = Open(r, 1)
	assert.ErrorIs(t, err, ErrPlayerCase)
	// Unknown case
	_, err = Open(r, 99)
	assert.ErrorIs(t, err, ErrUnknownCase)

	amount, err := Open(r, 2)
	require.NoError(t, err)
	assert.Equal(t, r.Cases[1].Amount, amount)
	// A case opens once
	_, err = Open(r, 2)
	assert.ErrorIs(t, err, ErrAlreadyOpened)
	assert.Len(t, r.Opened, 1)
}

func TestOfferCadence(t *testing.T) {
	r := newRound()
	require.NoError(t, Pick(r, 1))

	next := 2 // next case to open
	open := func() {
		t.Helper()
		_, err := Open(r, next)
		require.NoError(t, err)
		next++
	}

	// Offers arrive after the 3rd, 6th, 9th and 12th opened case; the 15th
	// open exhausts the non-player cases and finishes the round instead.
	for _, wantOffers := range []int{3, 6, 9, 12} {
		for r.Stage == domain.DealOpen {
			open()
		}
		require.Equal(t, domain.DealOffer, r.Stage)
		assert.Equal(t, wantOffers, len(r.Opened))

		// The offer is 80% of the mean over the player's case plus the
		// unopened non-player cases, rounded
		var sum, count int64
		openedSet := make(map[int]bool)
		for _, id := range r.Opened {
			openedSet[id] = true
		}
		for _, c := range r.Cases {
			if c.ID == r.PlayerCaseID || !openedSet[c.ID] {
				sum += c.Amount
				count++
			}
		}
		want := int64(math.Round(float64(sum) / float64(count) * 0.8))
		assert.Equal(t, want, r.Offer)

		require.NoError(t, NoDeal(r))
		assert.Equal(t, domain.DealOpen, r.Stage)
	}

	// Opening the last three cases finishes on the player's own case
	for r.Stage == domain.DealOpen {
		open()
	}
	require.Equal(t, domain.DealFinished, r.Stage)
	assert.Len(t, r.Opened, 15)
	assert.False(t, r.DealTaken)
	assert.Equal(t, r.Cases[0].Amount, r.Payout)
}

func TestTakeDeal(t *testing.T) {
	r := newRound()
	require.NoError(t, Pick(r, 1))
	// No offer is pending yet
	assert.ErrorIs(t, TakeDeal(r), ErrWrongStage)

	for i := 2; i <= 4; i++ {
		_, err := Open(r, i)
		require.NoError(t, err)
	}
	require.Equal(t, domain.DealOffer, r.Stage)

	offer := r.Offer
	require.NoError(t, TakeDeal(r))
	assert.Equal(t, domain.DealFinished, r.Stage)
	assert.True(t, r.DealTaken)
	// The payout is the accepted offer, not the player's case
	assert.Equal(t, offer, r.Payout)
	// Finished is terminal
	assert.ErrorIs(t, NoDeal(r), ErrWrongStage)
	_, err := Open(r, 5)
	assert.ErrorIs(t, err, ErrWrongStage)
}

func TestNoDealKeepsCaseState(t *testing.T) {
	r := newRound()
	require.NoError(t, Pick(r, 1))
	for i := 2; i <= 4; i++ {
		_, err := Open(r, i)
		require.NoError(t, err)
	}
	require.Equal(t, domain.DealOffer, r.Stage)
	openedBefore := append([]int(nil), r.Opened...)

	require.NoError(t, NoDeal(r))
	assert.Equal(t, domain.DealOpen, r.Stage)
	assert.Equal(t, openedBefore, r.Opened)
	assert.False(t, r.DealTaken)
}
