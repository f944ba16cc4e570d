package api

import (
	"context"                          // Context for Redis operations
	"errors"                           // Error matching
	"net/http"                         // HTTP status codes
	"time"                             // Time durations
	"chip_games/internal/domain"       // Importing domain models
	"chip_games/internal/game/tombola" // Tombola game rules
	"chip_games/internal/ledger"       // Atomic wallet operations
	"chip_games/internal/utils"        // Utility functions
	"chip_games/internal/ws"           // Websocket room hub

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library

	"github.com/sirupsen/logrus" // Logging library
)

// JoinRoomRequest represents a join request
type JoinRoomRequest struct {
	Code string `json:"code" binding:"required"` // 4-digit room code
	Name string `json:"name" binding:"required"` // Display name shown to the host
}

// roomByCode fetches a room by its join code
func roomByCode(db *gorm.DB, code string) (*domain.Room, error) {
	var room domain.Room
	if err := db.Where("code = ?", code).First(&room).Error; err != nil {
		return nil, err // Room not found
	}
	return &room, nil
}

// drawnNumbers returns the room's draw history in draw order
func drawnNumbers(db *gorm.DB, roomID uint) ([]int, error) {
	var draws []domain.TombolaDraw
	// Fetch draws ordered by insertion
	if err := db.Where("room_id = ?", roomID).Order("id asc").Find(&draws).Error; err != nil {
		return nil, err
	}
	numbers := make([]int, len(draws)) // Collect just the numbers
	for i, d := range draws {
		numbers[i] = d.Number
	}
	return numbers, nil
}

// CreateRoomHandler creates a tombola room; the caller becomes its host
func CreateRoomHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		userID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var room domain.Room // The room to create
		// Retry a few times in case the random 4-digit code collides
		for attempt := 0; attempt < 5; attempt++ {
			room = domain.Room{
				Code:   tombola.NewRoomCode(), // Random 4-digit code
				HostID: userID.(uint),         // Creator hosts the room
				Status: domain.RoomLobby,      // Rooms start in the lobby
			}
			if err := db.Create(&room).Error; err == nil {
				// Log room creation
				logrus.WithFields(logrus.Fields{
					"room_id": room.ID,   // Room ID
					"code":    room.Code, // Join code
					"host_id": userID,    // Host user ID
				}).Info("Room created") // Log creation
				c.JSON(http.StatusCreated, gin.H{"room": room}) // Return the room
				return
			}
		}
		// All attempts collided or failed
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create room"})
	}
}

// JoinRoomHandler joins a room by code. The first card is created lazily on
// first join and is free; re-joining returns the existing player and card.
func JoinRoomHandler(db *gorm.DB, hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		userID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req JoinRoomRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Find the room by code
		room, err := roomByCode(db, req.Code)
		if err != nil {
			// Room not found: recoverable by re-entering the code
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found. Check the code with the host."})
			return
		}
		// Finished rooms cannot be joined
		if room.Status == domain.RoomFinished {
			c.JSON(http.StatusBadRequest, gin.H{"error": "This round is already over"})
			return
		}
		var player domain.Player // The player row for this user in this room
		// Reuse the existing player row if the user already joined
		if err := db.Where("room_id = ? AND user_id = ?", room.ID, userID).First(&player).Error; err != nil {
			player = domain.Player{RoomID: room.ID, UserID: userID.(uint), Name: req.Name}
			// Create the player row
			if err := db.Create(&player).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join room"})
				return
			}
			// Announce the new player to everyone watching the room
			hub.Broadcast(room.Code, ws.Event{Type: "player_joined", Data: gin.H{"name": player.Name}})
		}
		var card domain.TombolaCard // The player's first card
		// Create the free first card lazily; it is immutable afterwards
		if err := db.Where("room_id = ? AND player_id = ?", room.ID, player.ID).First(&card).Error; err != nil {
			card = domain.TombolaCard{
				RoomID:   room.ID,                // Room
				PlayerID: player.ID,              // Player
				Numbers:  tombola.GenerateCard(), // 15 distinct numbers in [1,90]
			}
			if err := db.Create(&card).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create card"})
				return
			}
		}
		// Return room, player and card
		c.JSON(http.StatusOK, gin.H{"room": room, "player": player, "card": card})
	}
}

// GetRoomHandler is the polling read path: room status, roster and draw history
func GetRoomHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")     // Room code from the URL
		ctx := context.Background() // Context for Redis operations
		cacheKey := "room:" + code  // Cache key for the room snapshot
		var cached gin.H            // Cached snapshot
		// Serve the snapshot from cache when fresh; clients poll about every 1.5s
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			cached["cached"] = true
			c.JSON(http.StatusOK, cached)
			return
		}
		// Find the room by code
		room, err := roomByCode(db, code)
		if err != nil {
			// Room not found
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}
		var players []domain.Player // Roster
		// Fetch the roster
		if err := db.Where("room_id = ?", room.ID).Order("id asc").Find(&players).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch players"})
			return
		}
		// Fetch the draw history
		numbers, err := drawnNumbers(db, room.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch draws"})
			return
		}
		resp := gin.H{
			"room":    room,    // Room with status
			"players": players, // Roster
			"drawn":   numbers, // Draw history in order
			"cached":  false,   // Not from cache
		}
		// Short TTL: the snapshot only needs to outlive one poll interval
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 2*time.Second)
		c.JSON(http.StatusOK, resp) // Return the snapshot
	}
}

// hostOnly verifies the caller hosts the room
func hostOnly(c *gin.Context, room *domain.Room) bool {
	userID, exists := c.Get("userID") // Get userID from context
	if !exists || room.HostID != userID.(uint) {
		// Only the host may drive the room
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the host can do that"})
		return false
	}
	return true
}

// transitionRoom applies a forward-only status change and broadcasts it
func transitionRoom(db *gorm.DB, rdb *redis.Client, hub *ws.Hub, c *gin.Context, to string) {
	// Find the room by code
	room, err := roomByCode(db, c.Param("code"))
	if err != nil {
		// Room not found
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	// Verify the caller hosts the room
	if !hostOnly(c, room) {
		return
	}
	// Reject status regression or skipping
	if !tombola.CanTransition(room.Status, to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room is not in the right state"})
		return
	}
	// Persist the new status
	if err := db.Model(room).Update("status", to).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update room"})
		return
	}
	room.Status = to // Reflect the change locally
	// Drop the cached snapshot so pollers see the new status right away
	_ = utils.DeleteCache(context.Background(), rdb, "room:"+room.Code)
	// Log the transition
	logrus.WithFields(logrus.Fields{
		"room_id": room.ID, // Room ID
		"status":  to,      // New status
	}).Info("Room status changed") // Log status change
	// Announce the status change to the room
	hub.Broadcast(room.Code, ws.Event{Type: "status", Data: gin.H{"status": to}})
	c.JSON(http.StatusOK, gin.H{"room": room}) // Return the updated room
}

// StartRoomHandler moves a room from lobby to running (host only)
func StartRoomHandler(db *gorm.DB, rdb *redis.Client, hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		transitionRoom(db, rdb, hub, c, domain.RoomRunning)
	}
}

// FinishRoomHandler moves a room from running to finished (host only).
// No further draws are permitted; the draw history stays readable.
func FinishRoomHandler(db *gorm.DB, rdb *redis.Client, hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		transitionRoom(db, rdb, hub, c, domain.RoomFinished)
	}
}

// DrawHandler draws the next ball (host only, running rooms only). Numbers
// are drawn without replacement; the unique (room, number) index makes a
// concurrent duplicate draw fail instead of committing twice.
func DrawHandler(db *gorm.DB, rdb *redis.Client, hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Find the room by code
		room, err := roomByCode(db, c.Param("code"))
		if err != nil {
			// Room not found
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}
		// Verify the caller hosts the room
		if !hostOnly(c, room) {
			return
		}
		// Draws are only valid while the room is running
		if room.Status != domain.RoomRunning {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Room is not running"})
			return
		}
		// Load the numbers drawn so far
		numbers, err := drawnNumbers(db, room.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch draws"})
			return
		}
		// Pick the next number from the remaining set
		next, err := tombola.NextNumber(numbers)
		if errors.Is(err, tombola.ErrAllNumbersDrawn) {
			// The 90-number universe is exhausted
			c.JSON(http.StatusBadRequest, gin.H{"error": "All numbers have been drawn"})
			return
		}
		draw := domain.TombolaDraw{RoomID: room.ID, Number: next} // The new draw
		// Persist the draw; a concurrent duplicate trips the unique index
		if err := db.Create(&draw).Error; err != nil {
			logrus.WithFields(logrus.Fields{
				"room_id": room.ID,     // Room ID
				"number":  next,        // Attempted number
				"error":   err.Error(), // Error message
			}).Error("Draw conflict") // Log the conflict
			c.JSON(http.StatusConflict, gin.H{"error": "Draw conflict, try again"})
			return
		}
		// Log the draw
		logrus.WithFields(logrus.Fields{
			"room_id": room.ID,          // Room ID
			"number":  next,             // Drawn number
			"drawn":   len(numbers) + 1, // Total drawn so far
		}).Info("Number drawn") // Log draw
		// Drop the cached room snapshot so pollers see the new number
		_ = utils.DeleteCache(context.Background(), rdb, "room:"+room.Code)
		// Push the draw to everyone watching the room
		hub.Broadcast(room.Code, ws.Event{Type: "draw", Data: gin.H{"number": next}})
		c.JSON(http.StatusOK, gin.H{"number": next}) // Return the drawn number
	}
}

// BuyCardHandler purchases an extra card atomically: funds and the per-room
// cap are validated, the wallet debited and the card created in one unit.
func BuyCardHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		userID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		// Find the room by code
		room, err := roomByCode(db, c.Param("code"))
		if err != nil {
			// Room not found
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}
		// Cards can only be bought before the round is over
		if room.Status == domain.RoomFinished {
			c.JSON(http.StatusBadRequest, gin.H{"error": "This round is already over"})
			return
		}
		var player domain.Player // The caller's player row
		// The caller must have joined the room first
		if err := db.Where("room_id = ? AND user_id = ?", room.ID, userID).First(&player).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Join the room first"})
			return
		}
		// Find the caller's wallet
		wallet, err := walletForUser(db, userID)
		if err != nil {
			// Wallet not found
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			return
		}
		// Charge and create the card in one atomic unit
		card, updated, err := ledger.PurchaseCard(db, wallet.ID, room.ID, player.ID, tombola.GenerateCard(), tombola.CardCost)
		if errors.Is(err, ledger.ErrCardLimit) {
			// Card cap reached: rejected before any mutation
			c.JSON(http.StatusBadRequest, gin.H{"error": "You may own up to 4 cards this round"})
			return
		}
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			// Not enough chips: nothing was charged, no card was created
			c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient chips"})
			return
		}
		if err != nil {
			// Log the error with context
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // User ID
				"room_id": room.ID,     // Room ID
				"error":   err.Error(), // Error message
			}).Error("Card purchase failed") // Log failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Card purchase failed"})
			return
		}
		// Log successful purchase
		logrus.WithFields(logrus.Fields{
			"user_id": userID,           // User ID
			"room_id": room.ID,          // Room ID
			"card_id": card.ID,          // New card ID
			"cost":    tombola.CardCost, // Chips charged
		}).Info("Card purchased") // Log purchase
		invalidateWalletCache(rdb, userID.(uint)) // Invalidate wallet caches
		// Return the new card and updated wallet
		c.JSON(http.StatusCreated, gin.H{"card": card, "wallet": updated})
	}
}

// ListCardsHandler returns the caller's cards in a room
func ListCardsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		userID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		// Find the room by code
		room, err := roomByCode(db, c.Param("code"))
		if err != nil {
			// Room not found
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}
		var player domain.Player // The caller's player row
		// The caller must have joined the room
		if err := db.Where("room_id = ? AND user_id = ?", room.ID, userID).First(&player).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Join the room first"})
			return
		}
		var cards []domain.TombolaCard // The caller's cards
		// Fetch the cards in creation order
		if err := db.Where("room_id = ? AND player_id = ?", room.ID, player.ID).Order("id asc").Find(&cards).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cards"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"cards": cards}) // Return the cards
	}
}
