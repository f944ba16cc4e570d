package domain

// Transaction types recorded in the ledger
const (
	TxBuy             = "buy"              // Chips bought or credited
	TxWin             = "win"              // Game winnings credited
	TxLose            = "lose"             // Chips charged (entry fees, bets, card purchases)
	TxCashout         = "cashout"          // Chips redeemed out of the system
	TxAdminAdjustment = "admin_adjustment" // Manual admin correction
)

// Transaction Model. The ledger is append-only: every wallet balance change
// writes exactly one Transaction in the same database transaction.
type Transaction struct {
	ID          uint   `gorm:"primaryKey"`           // Primary key
	WalletID    uint   `gorm:"index;not null"`       // Foreign key to Wallet
	Type        string `gorm:"not null"`             // Transaction type: buy, win, lose, cashout, admin_adjustment
	Amount      int64  `gorm:"not null"`             // Signed amount in chips (negative for debits)
	Description string // Human-readable description
	CreatedAt   int64  `gorm:"autoCreateTime:milli"` // Timestamp of creation in milliseconds
}
