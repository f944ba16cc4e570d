package domain

// Wallet Model. Balance is a whole number of chips and must never go negative;
// debits are rejected, never clamped.
type Wallet struct {
	ID      uint  `gorm:"primaryKey"`         // Primary key
	UserID  uint  `gorm:"uniqueIndex"`        // Foreign key to User (one wallet per user)
	Balance int64 `gorm:"not null;default:0"` // Wallet balance in chips
}
