package domain

// User Model
type User struct {
	ID           uint   `gorm:"primaryKey"`                                     // Primary key
	Username     string `gorm:"unique;not null"`                                // Unique username
	Password     string `gorm:"not null"`                                       // Hashed password
	Role         string `gorm:"default:player"`                                 // Role: player, host or admin
	ReferredBy   *uint  // User ID of the referrer, if any
	ReferralPaid bool   `gorm:"default:false"`                                  // Whether the one-time referrer bonus was already paid
	XP           int    `gorm:"default:0"`                                      // Total quiz experience points
	Streak       int    `gorm:"default:0"`                                      // Current consecutive-correct quiz streak
	Wallet       Wallet `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"` // One-to-one relationship with Wallet
}
