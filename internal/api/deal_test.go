package api

import (
	"net/http"
	"testing"

	"chip_games/internal/domain"
	"chip_games/internal/game/deal"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettleRoundPaysExactlyOnce(t *testing.T) {
	db := testDB(t)
	wallet := domain.Wallet{UserID: 1, Balance: 0}
	require.NoError(t, db.Create(&wallet).Error)

	// A finished round that has not been settled yet
	round := domain.DealRound{
		UserID:       1,
		Stage:        domain.DealFinished,
		Cases:        []domain.Briefcase{{ID: 1, Amount: 800}, {ID: 2, Amount: 10}},
		PlayerCaseID: 1,
		Opened:       []int{2},
		Payout:       800,
	}
	require.NoError(t, db.Create(&round).Error)

	require.NoError(t, settleRound(db, &round))
	assert.True(t, round.Settled)

	// Settling the same round again is a no-op
	require.NoError(t, settleRound(db, &round))

	// A stale copy that still believes the round is unsettled must not pay
	// either: the settled flag in the database is authoritative
	stale := round
	stale.Settled = false
	require.NoError(t, settleRound(db, &stale))

	var after domain.Wallet
	require.NoError(t, db.First(&after, wallet.ID).Error)
	assert.Equal(t, int64(800), after.Balance)

	// Exactly one winnings transaction across all three settle attempts
	var wins int64
	require.NoError(t, db.Model(&domain.Transaction{}).
		Where("wallet_id = ? AND type = ?", wallet.ID, domain.TxWin).Count(&wins).Error)
	assert.Equal(t, int64(1), wins)
}

func TestSettleRoundSkipsZeroPayout(t *testing.T) {
	db := testDB(t)
	wallet := domain.Wallet{UserID: 1, Balance: 0}
	require.NoError(t, db.Create(&wallet).Error)

	// A fee-rejected round is born finished with nothing to pay
	round := domain.DealRound{UserID: 1, Stage: domain.DealFinished}
	require.NoError(t, db.Create(&round).Error)

	require.NoError(t, settleRound(db, &round))

	var txs int64
	require.NoError(t, db.Model(&domain.Transaction{}).Count(&txs).Error)
	assert.Equal(t, int64(0), txs)
	var after domain.Wallet
	require.NoError(t, db.First(&after, wallet.ID).Error)
	assert.Equal(t, int64(0), after.Balance)
}

func TestStartDealWithoutEntryFee(t *testing.T) {
	db := testDB(t)
	rdb := testRedis()
	wallet := domain.Wallet{UserID: 1, Balance: deal.EntryFee - 1}
	require.NoError(t, db.Create(&wallet).Error)

	r := gin.New()
	r.POST("/deal", authAs(1), StartDealHandler(db, rdb))

	w := performRequest(r, http.MethodPost, "/deal", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The round terminates immediately with no payout path
	var round domain.DealRound
	require.NoError(t, db.Where("user_id = ?", 1).First(&round).Error)
	assert.Equal(t, domain.DealFinished, round.Stage)
	assert.True(t, round.Settled)
	assert.Equal(t, int64(0), round.Payout)

	// The fee was never charged, and no transaction was recorded
	var after domain.Wallet
	require.NoError(t, db.First(&after, wallet.ID).Error)
	assert.Equal(t, int64(deal.EntryFee-1), after.Balance)
	var txs int64
	require.NoError(t, db.Model(&domain.Transaction{}).Count(&txs).Error)
	assert.Equal(t, int64(0), txs)
}
