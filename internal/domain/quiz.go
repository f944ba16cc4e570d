package domain

// Question difficulties
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Question Model for the trivia game
type Question struct {
	ID           uint     `gorm:"primaryKey"`        // Primary key
	Text         string   `gorm:"not null"`          // Question text
	Options      []string `gorm:"serializer:json"`   // Answer options
	CorrectIndex int      `gorm:"not null"`          // Index into Options of the correct answer
	Difficulty   string   `gorm:"default:easy"`      // Difficulty: easy, medium, hard
	Active       bool     `gorm:"default:true"`      // Whether the question is in rotation
}

// QuizAnswer Model: audit trail of every graded answer
type QuizAnswer struct {
	ID         uint  `gorm:"primaryKey"`           // Primary key
	UserID     uint  `gorm:"index"`                // Foreign key to User
	QuestionID uint  `gorm:"index"`                // Foreign key to Question
	Correct    bool  // Whether the answer was correct
	Reward     int   // Chips awarded for this answer
	CreatedAt  int64 `gorm:"autoCreateTime:milli"` // Timestamp in milliseconds
}

// AdWatch Model: one row per completed ad view
type AdWatch struct {
	ID        uint  `gorm:"primaryKey"`           // Primary key
	UserID    uint  `gorm:"index"`                // Foreign key to User
	Reward    int64 // Chips credited for the view
	CreatedAt int64 `gorm:"autoCreateTime:milli"` // Timestamp in milliseconds
}

// Purchase Model: a recorded coin package purchase
type Purchase struct {
	ID         uint   `gorm:"primaryKey"`           // Primary key
	UserID     uint   `gorm:"index"`                // Foreign key to User
	PackageID  string `gorm:"not null"`             // Catalog package id (starter, basic, ...)
	Coins      int64  // Chips credited (package coins + bonus)
	AmountPaid int64  // Price paid in the local currency
	Currency   string `gorm:"default:LBP"`          // Payment currency
	CreatedAt  int64  `gorm:"autoCreateTime:milli"` // Timestamp in milliseconds
}

// Redemption Model: chips exchanged for an external reward
type Redemption struct {
	ID          uint   `gorm:"primaryKey"`           // Primary key
	UserID      uint   `gorm:"index"`                // Foreign key to User
	ServiceName string `gorm:"not null"`             // Reward name (e.g. "Alfa 5,000 LL")
	ServiceType string `gorm:"not null"`             // Reward service key (alfa, mtc, ...)
	CoinsSpent  int64  // Chips debited
	Status      string `gorm:"default:pending"`      // Fulfilment status: pending, completed
	CreatedAt   int64  `gorm:"autoCreateTime:milli"` // Timestamp in milliseconds
}
