// Package deal holds the pure state machine of a Deal-or-No-Deal round:
// case setup, sequential reveal, bank offers and settlement amounts.
package deal

import (
	"errors"
	"math"
	"math/rand"

	"chip_games/internal/domain"
)

// Amounts is the fixed chip table shuffled into the briefcases.
var Amounts = []int64{
	10, 50, 100, 200, 300, 400, 500, 750,
	1000, 1500, 2000, 3000, 5000, 7500, 10000, 20000,
}

const (
	EntryFee      = 5000 // Chips charged before a round starts
	OfferInterval = 3    // A bank offer follows every 3rd opened case
)

var (
	ErrWrongStage    = errors.New("action not allowed in this stage")
	ErrUnknownCase   = errors.New("no such case")
	ErrPlayerCase    = errors.New("cannot open your own case")
	ErrAlreadyOpened = errors.New("case already opened")
	ErrNoOffer       = errors.New("no offer pending")
)

// NewCases shuffles the amount table into briefcases with a Fisher-Yates
// permutation. Every amount appears exactly once.
func NewCases() []domain.Briefcase {
	shuffled := make([]int64, len(Amounts))
	copy(shuffled, Amounts)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	cases := make([]domain.Briefcase, len(shuffled))
	for i, amount := range shuffled {
		cases[i] = domain.Briefcase{ID: i + 1, Amount: amount}
	}
	return cases
}

// Pick records the player's own case and moves the round to the open stage.
func Pick(r *domain.DealRound, id int) error {
	if r.Stage != domain.DealPick {
		return ErrWrongStage
	}
	if findCase(r.Cases, id) == nil {
		return ErrUnknownCase
	}
	r.PlayerCaseID = id
	r.Stage = domain.DealOpen
	return nil
}

// Open reveals one non-player case. After every 3rd opened case, while more
// than one unopened non-player case remains, the bank offer is computed and
// the round moves to the offer stage. When nothing is left to open the round
// finishes on the player's own case.
func Open(r *domain.DealRound, id int) (int64, error) {
	if r.Stage != domain.DealOpen {
		return 0, ErrWrongStage
	}
	c := findCase(r.Cases, id)
	if c == nil {
		return 0, ErrUnknownCase
	}
	if id == r.PlayerCaseID {
		return 0, ErrPlayerCase
	}
	if isOpened(r.Opened, id) {
		return 0, ErrAlreadyOpened
	}
	r.Opened = append(r.Opened, id)

	remaining := remainingCount(r)
	if len(r.Opened)%OfferInterval == 0 && remaining > 1 {
		r.Offer = bankOffer(r)
		r.Stage = domain.DealOffer
	} else if remaining == 0 {
		finish(r)
	}
	return c.Amount, nil
}

// TakeDeal accepts the pending bank offer and finishes the round.
func TakeDeal(r *domain.DealRound) error {
	if r.Stage != domain.DealOffer {
		return ErrWrongStage
	}
	if r.Offer == 0 {
		return ErrNoOffer
	}
	r.DealTaken = true
	finish(r)
	return nil
}

// NoDeal declines the offer and resumes opening. Case state is untouched.
func NoDeal(r *domain.DealRound) error {
	if r.Stage != domain.DealOffer {
		return ErrWrongStage
	}
	r.Stage = domain.DealOpen
	return nil
}

// finish moves the round to finished and fixes the payout: the accepted
// offer if the deal was taken, else the amount in the player's own case.
func finish(r *domain.DealRound) {
	r.Stage = domain.DealFinished
	if r.DealTaken {
		r.Payout = r.Offer
	} else if c := findCase(r.Cases, r.PlayerCaseID); c != nil {
		r.Payout = c.Amount
	}
}

// bankOffer is round(0.8 * mean(player's case + unopened non-player cases)).
func bankOffer(r *domain.DealRound) int64 {
	var sum, count int64
	for _, c := range r.Cases {
		if c.ID == r.PlayerCaseID || !isOpened(r.Opened, c.ID) {
			sum += c.Amount
			count++
		}
	}
	if count == 0 {
		return 0
	}
	avg := float64(sum) / float64(count)
	return int64(math.Round(avg * 0.8))
}

func remainingCount(r *domain.DealRound) int {
	count := 0
	for _, c := range r.Cases {
		if c.ID != r.PlayerCaseID && !isOpened(r.Opened, c.ID) {
			count++
		}
	}
	return count
}

func findCase(cases []domain.Briefcase, id int) *domain.Briefcase {
	for i := range cases {
		if cases[i].ID == id {
			return &cases[i]
		}
	}
	return nil
}

func isOpened(opened []int, id int) bool {
	for _, o := range opened {
		if o == id {
			return true
		}
	}
	return false
}
