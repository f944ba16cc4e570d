package ledger

import (
	"database/sql"
	"testing"

	"chip_games/internal/domain"
	"chip_games/internal/game/tombola"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB opens a fresh in-memory database with the ledger tables.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	// An in-memory database lives on a single connection
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.Wallet{}, &domain.Transaction{}, &domain.TombolaCard{}))
	return db
}

// newWallet creates a wallet with the given starting balance.
func newWallet(t *testing.T, db *gorm.DB, balance int64) *domain.Wallet {
	t.Helper()
	wallet := domain.Wallet{UserID: 1, Balance: balance}
	require.NoError(t, db.Create(&wallet).Error)
	return &wallet
}

// ledgerSum returns the sum of all transaction amounts for a wallet. The
// core invariant is that this always equals the wallet balance.
func ledgerSum(t *testing.T, db *gorm.DB, walletID uint) int64 {
	t.Helper()
	var sum sql.NullInt64
	require.NoError(t, db.Model(&domain.Transaction{}).
		Where("wallet_id = ?", walletID).
		Select("SUM(amount)").Scan(&sum).Error)
	return sum.Int64
}

func txCount(t *testing.T, db *gorm.DB, walletID uint) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&domain.Transaction{}).
		Where("wallet_id = ?", walletID).Count(&count).Error)
	return count
}

func TestApplyDeltaCredit(t *testing.T) {
	db := testDB(t)
	wallet := newWallet(t, db, 0)

	updated, err := ApplyDelta(db, wallet.ID, 5000, domain.TxBuy, "Chip purchase")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), updated.Balance)
	// Exactly one transaction paired with the balance change
	assert.Equal(t, int64(1), txCount(t, db, wallet.ID))
	assert.Equal(t, updated.Balance, ledgerSum(t, db, wallet.ID))
}

func TestApplyDeltaDebitAllOrNothing(t *testing.T) {
	db := testDB(t)
	wallet := newWallet(t, db, 0)

	// The end-to-end fee scenario: 5000 in, 5000 out, then a failing debit
	_, err := ApplyDelta(db, wallet.ID, 5000, domain.TxBuy, "Chip purchase")
	require.NoError(t, err)
	updated, err := ApplyDelta(db, wallet.ID, -5000, domain.TxLose, "Deal or No Deal entry fee")
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated.Balance)

	// Exactly one "lose" transaction of -5000 was recorded
	var fees []domain.Transaction
	require.NoError(t, db.Where("wallet_id = ? AND type = ?", wallet.ID, domain.TxLose).Find(&fees).Error)
	require.Len(t, fees, 1)
	assert.Equal(t, int64(-5000), fees[0].Amount)

	// A debit of 1 against a zero balance is rejected with no partial effect
	_, err = ApplyDelta(db, wallet.ID, -1, domain.TxLose, "overdraft attempt")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	var after domain.Wallet
	require.NoError(t, db.First(&after, wallet.ID).Error)
	assert.Equal(t, int64(0), after.Balance)
	assert.Equal(t, int64(2), txCount(t, db, wallet.ID))
	assert.Equal(t, after.Balance, ledgerSum(t, db, wallet.ID))
}

func TestApplyDeltaUnknownWallet(t *testing.T) {
	db := testDB(t)
	_, err := ApplyDelta(db, 42, 100, domain.TxBuy, "no wallet")
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestApplyDeltaZero(t *testing.T) {
	db := testDB(t)
	wallet := newWallet(t, db, 10)
	_, err := ApplyDelta(db, wallet.ID, 0, domain.TxBuy, "no-op")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, int64(0), txCount(t, db, wallet.ID))
}

func TestBalanceMatchesLedgerAcrossSequence(t *testing.T) {
	db := testDB(t)
	wallet := newWallet(t, db, 0)

	// A mixed sequence of credits and debits, some rejected
	ops := []struct {
		delta  int64
		txType string
	}{
		{1000, domain.TxBuy},
		{-300, domain.TxLose},
		{250, domain.TxWin},
		{-2000, domain.TxCashout}, // rejected: would go negative
		{-950, domain.TxCashout},
		{-1, domain.TxLose}, // rejected: balance is 0
	}
	for _, op := range ops {
		_, err := ApplyDelta(db, wallet.ID, op.delta, op.txType, "seq")
		if err != nil {
			assert.ErrorIs(t, err, ErrInsufficientFunds)
		}
		// The invariant holds at every point, not just at the end
		var current domain.Wallet
		require.NoError(t, db.First(&current, wallet.ID).Error)
		assert.GreaterOrEqual(t, current.Balance, int64(0))
		assert.Equal(t, current.Balance, ledgerSum(t, db, wallet.ID))
	}
}

func TestSetBalance(t *testing.T) {
	db := testDB(t)
	wallet := newWallet(t, db, 0)

	// Raising the balance records the positive delta as a buy
	updated, err := SetBalance(db, wallet.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), updated.Balance)
	var txs []domain.Transaction
	require.NoError(t, db.Where("wallet_id = ?", wallet.ID).Order("id asc").Find(&txs).Error)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TxBuy, txs[0].Type)
	assert.Equal(t, int64(100), txs[0].Amount)

	// Lowering it records the negative delta as a lose, magnitude = delta
	updated, err = SetBalance(db, wallet.ID, 40)
	require.NoError(t, err)
	assert.Equal(t, int64(40), updated.Balance)
	require.NoError(t, db.Where("wallet_id = ?", wallet.ID).Order("id asc").Find(&txs).Error)
	require.Len(t, txs, 2)
	assert.Equal(t, domain.TxLose, txs[1].Type)
	assert.Equal(t, int64(-60), txs[1].Amount)

	// Setting the same balance records nothing
	_, err = SetBalance(db, wallet.ID, 40)
	require.NoError(t, err)
	assert.Equal(t, int64(2), txCount(t, db, wallet.ID))

	assert.Equal(t, updated.Balance, ledgerSum(t, db, wallet.ID))
}

func TestPurchaseCard(t *testing.T) {
	db := testDB(t)
	wallet := newWallet(t, db, 2500)

	numbers := tombola.GenerateCard()
	card, updated, err := PurchaseCard(db, wallet.ID, 7, 3, numbers, tombola.CardCost)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), updated.Balance)
	assert.Equal(t, uint(7), card.RoomID)
	assert.Equal(t, uint(3), card.PlayerID)
	assert.Equal(t, numbers, card.Numbers)

	_, updated, err = PurchaseCard(db, wallet.ID, 7, 3, tombola.GenerateCard(), tombola.CardCost)
	require.NoError(t, err)
	assert.Equal(t, int64(500), updated.Balance)

	// 500 chips cannot buy a 1000-chip card: no charge, no card
	_, _, err = PurchaseCard(db, wallet.ID, 7, 3, tombola.GenerateCard(), tombola.CardCost)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	var cards int64
	require.NoError(t, db.Model(&domain.TombolaCard{}).Count(&cards).Error)
	assert.Equal(t, int64(2), cards)

	var after domain.Wallet
	require.NoError(t, db.First(&after, wallet.ID).Error)
	assert.Equal(t, int64(500), after.Balance)
	assert.Equal(t, after.Balance, ledgerSum(t, db, wallet.ID))
}

func TestPurchaseCardLimit(t *testing.T) {
	db := testDB(t)
	wallet := newWallet(t, db, 100000)

	// Fill the per-room cap
	for i := 0; i < tombola.MaxCardsPerRoom; i++ {
		_, _, err := PurchaseCard(db, wallet.ID, 1, 1, tombola.GenerateCard(), tombola.CardCost)
		require.NoError(t, err)
	}
	balanceBefore := int64(100000 - tombola.MaxCardsPerRoom*tombola.CardCost)

	// The 5th card is rejected before any mutation
	_, _, err := PurchaseCard(db, wallet.ID, 1, 1, tombola.GenerateCard(), tombola.CardCost)
	assert.ErrorIs(t, err, ErrCardLimit)

	var after domain.Wallet
	require.NoError(t, db.First(&after, wallet.ID).Error)
	assert.Equal(t, balanceBefore, after.Balance)
	assert.Equal(t, int64(tombola.MaxCardsPerRoom), txCount(t, db, wallet.ID))

	// The same player in a different room starts a fresh count
	_, _, err = PurchaseCard(db, wallet.ID, 2, 1, tombola.GenerateCard(), tombola.CardCost)
	assert.NoError(t, err)
}
