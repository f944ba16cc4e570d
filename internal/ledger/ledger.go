// Package ledger implements the atomic wallet operations every game settles
// through. Each operation runs in one database transaction: the balance
// change and its Transaction record either both commit or neither does.
package ledger

import (
	"errors"

	"chip_games/internal/domain"
	"chip_games/internal/game/tombola"

	"gorm.io/gorm"
)

var (
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInsufficientFunds = errors.New("insufficient chips")
	ErrInvalidAmount     = errors.New("amount must not be zero")
	ErrCardLimit         = errors.New("card limit reached")
)

// debitGuarded applies a delta with a conditional update: the WHERE clause
// re-checks the balance so a concurrent debit cannot drive it negative.
// Zero rows affected means the guard rejected the change.
func debitGuarded(tx *gorm.DB, walletID uint, delta int64) error {
	res := tx.Model(&domain.Wallet{}).
		Where("id = ? AND balance + ? >= 0", walletID, delta).
		Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// ApplyDelta atomically adjusts a wallet's balance by delta and appends one
// transaction record of the given type. A delta that would drive the balance
// negative fails with ErrInsufficientFunds and leaves both tables untouched.
func ApplyDelta(db *gorm.DB, walletID uint, delta int64, txType, description string) (*domain.Wallet, error) {
	if delta == 0 {
		return nil, ErrInvalidAmount
	}
	var wallet domain.Wallet
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&wallet, walletID).Error; err != nil {
			return ErrWalletNotFound
		}
		// Reject, never clamp: an overdraft must fail without partial effect
		if err := debitGuarded(tx, walletID, delta); err != nil {
			return err
		}
		// Re-read the committed balance for the caller
		if err := tx.First(&wallet, walletID).Error; err != nil {
			return err
		}
		// Exactly one ledger record per balance change
		record := domain.Transaction{
			WalletID:    wallet.ID,
			Type:        txType,
			Amount:      delta,
			Description: description,
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// SetBalance is the admin override: it forces the balance to amount and
// records the signed difference (not the new balance) as a buy or lose
// transaction, matching the sign of the delta.
func SetBalance(db *gorm.DB, walletID uint, amount int64) (*domain.Wallet, error) {
	if amount < 0 {
		return nil, ErrInvalidAmount
	}
	var wallet domain.Wallet
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&wallet, walletID).Error; err != nil {
			return ErrWalletNotFound
		}
		diff := amount - wallet.Balance
		if diff == 0 {
			return nil
		}
		txType := domain.TxBuy
		if diff < 0 {
			txType = domain.TxLose
		}
		wallet.Balance = amount
		if err := tx.Model(&wallet).Update("balance", amount).Error; err != nil {
			return err
		}
		record := domain.Transaction{
			WalletID:    wallet.ID,
			Type:        txType,
			Amount:      diff,
			Description: "Admin adjustment",
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// PurchaseCard atomically validates funds and the per-room card cap, debits
// the wallet and creates the card, all in one transaction. On any failure
// nothing is committed: no charge without a card, no card without a charge.
func PurchaseCard(db *gorm.DB, walletID uint, roomID, playerID uint, numbers []int, cost int64) (*domain.TombolaCard, *domain.Wallet, error) {
	var (
		card   domain.TombolaCard
		wallet domain.Wallet
	)
	err := db.Transaction(func(tx *gorm.DB) error {
		var owned int64
		if err := tx.Model(&domain.TombolaCard{}).
			Where("room_id = ? AND player_id = ?", roomID, playerID).
			Count(&owned).Error; err != nil {
			return err
		}
		if owned >= tombola.MaxCardsPerRoom {
			return ErrCardLimit
		}
		if err := tx.First(&wallet, walletID).Error; err != nil {
			return ErrWalletNotFound
		}
		if err := debitGuarded(tx, walletID, -cost); err != nil {
			return err
		}
		if err := tx.First(&wallet, walletID).Error; err != nil {
			return err
		}
		record := domain.Transaction{
			WalletID:    wallet.ID,
			Type:        domain.TxLose,
			Amount:      -cost,
			Description: "Tombola card purchase",
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		card = domain.TombolaCard{RoomID: roomID, PlayerID: playerID, Numbers: numbers}
		return tx.Create(&card).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &card, &wallet, nil
}
