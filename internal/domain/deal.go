package domain

// Deal-or-No-Deal round stages. Transitions: pick -> open -> offer -> finished,
// with offer -> open as the only backward edge ("No Deal").
const (
	DealPick     = "pick"
	DealOpen     = "open"
	DealOffer    = "offer"
	DealFinished = "finished"
)

// Briefcase is one case of a round: a fixed id hiding a shuffled amount.
type Briefcase struct {
	ID     int   `json:"id"`     // Case number shown to the player (1-based)
	Amount int64 `json:"amount"` // Hidden chip amount
}

// DealRound Model: one Deal-or-No-Deal round for one user.
type DealRound struct {
	ID           uint        `gorm:"primaryKey"`           // Primary key
	UserID       uint        `gorm:"index;not null"`       // Foreign key to User
	Stage        string      `gorm:"default:pick"`         // Round stage: pick, open, offer, finished
	Cases        []Briefcase `gorm:"serializer:json"`      // All briefcases with their hidden amounts
	PlayerCaseID int         `gorm:"default:0"`            // The player's own case (0 until picked)
	Opened       []int       `gorm:"serializer:json"`      // IDs of opened cases, in order
	Offer        int64       `gorm:"default:0"`            // Current bank offer (0 when none pending)
	DealTaken    bool        `gorm:"default:false"`        // Whether the player accepted an offer
	Settled      bool        `gorm:"default:false"`        // Whether the payout has been credited (exactly once)
	Payout       int64       `gorm:"default:0"`            // Final payout in chips
	CreatedAt    int64       `gorm:"autoCreateTime:milli"` // Timestamp of creation in milliseconds
}
