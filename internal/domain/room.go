package domain

// Room status values. Transitions are strictly forward: lobby -> running -> finished.
const (
	RoomLobby    = "lobby"
	RoomRunning  = "running"
	RoomFinished = "finished"
)

// Room Model for a tombola session
type Room struct {
	ID        uint   `gorm:"primaryKey"`           // Primary key
	Code      string `gorm:"uniqueIndex;size:4"`   // 4-digit join code shown on the big screen
	HostID    uint   `gorm:"not null"`             // User ID of the host
	Status    string `gorm:"default:lobby"`        // Room status: lobby, running, finished
	CreatedAt int64  `gorm:"autoCreateTime:milli"` // Timestamp of creation in milliseconds
}

// Player Model: one row per user per room
type Player struct {
	ID        uint   `gorm:"primaryKey"`                        // Primary key
	RoomID    uint   `gorm:"uniqueIndex:idx_room_user"`         // Foreign key to Room
	UserID    uint   `gorm:"uniqueIndex:idx_room_user"`         // Foreign key to User
	Name      string `gorm:"not null"`                          // Display name shown to the host
	CreatedAt int64  `gorm:"autoCreateTime:milli"`              // Timestamp of joining in milliseconds
}

// TombolaCard Model: 15 distinct numbers in [1,90]. Immutable once created;
// extra cards for the same player are separate rows, capped at 4 per room.
type TombolaCard struct {
	ID        uint  `gorm:"primaryKey"`                 // Primary key
	RoomID    uint  `gorm:"index"`                      // Foreign key to Room
	PlayerID  uint  `gorm:"index"`                      // Foreign key to Player
	Numbers   []int `gorm:"serializer:json;not null"`   // The card's 15 numbers, stored as JSON
	CreatedAt int64 `gorm:"autoCreateTime:milli"`       // Timestamp of creation in milliseconds
}

// TombolaDraw Model: one drawn number. The unique (room, number) index is what
// enforces draw-without-replacement even under concurrent draw requests.
type TombolaDraw struct {
	ID        uint  `gorm:"primaryKey"`                  // Primary key
	RoomID    uint  `gorm:"uniqueIndex:idx_room_number"` // Foreign key to Room
	Number    int   `gorm:"uniqueIndex:idx_room_number"` // Drawn number in [1,90]
	CreatedAt int64 `gorm:"autoCreateTime:milli"`        // Timestamp of the draw in milliseconds
}
