package api

import (
	"errors"                        // Error matching
	"net/http"                      // HTTP status codes
	"sort"                          // Sorting remaining amounts
	"strconv"                       // String conversion
	"chip_games/internal/domain"    // Importing domain models
	"chip_games/internal/game/deal" // Deal-or-No-Deal game rules
	"chip_games/internal/ledger"    // Atomic wallet operations

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library

	"github.com/sirupsen/logrus" // Logging library
)

// PickCaseRequest represents a case pick or open request
type PickCaseRequest struct {
	CaseID int `json:"case_id" binding:"required"` // Briefcase ID
}

// dealRoundView renders a round without leaking unopened amounts. Only
// opened cases and the still-in-play amount board are revealed; the player's
// own case amount stays hidden until the round is finished.
func dealRoundView(r *domain.DealRound) gin.H {
	opened := make([]gin.H, 0, len(r.Opened)) // Opened cases with their revealed amounts
	openedSet := make(map[int]bool, len(r.Opened))
	for _, id := range r.Opened {
		openedSet[id] = true
		for _, c := range r.Cases {
			if c.ID == id {
				opened = append(opened, gin.H{"id": c.ID, "amount": c.Amount})
			}
		}
	}
	// Amounts still in play (player's case included), sorted for the board
	remaining := make([]int64, 0, len(r.Cases))
	for _, c := range r.Cases {
		if !openedSet[c.ID] {
			remaining = append(remaining, c.Amount)
		}
	}
	sort.Slice(remaining, func(i, j int) bool { return remaining[i] < remaining[j] })
	view := gin.H{
		"id":                r.ID,           // Round ID
		"stage":             r.Stage,        // Current stage
		"case_count":        len(r.Cases),   // Number of briefcases
		"player_case_id":    r.PlayerCaseID, // The player's own case (0 until picked)
		"opened":            opened,         // Opened cases with amounts
		"remaining_amounts": remaining,      // Amount board
		"deal_taken":        r.DealTaken,    // Whether an offer was accepted
	}
	// The offer is only meaningful while one is pending
	if r.Stage == domain.DealOffer {
		view["offer"] = r.Offer
	}
	// The payout and the player's case amount are revealed at the end
	if r.Stage == domain.DealFinished {
		view["payout"] = r.Payout
		for _, c := range r.Cases {
			if c.ID == r.PlayerCaseID {
				view["player_case_amount"] = c.Amount
			}
		}
	}
	return view
}

// roundForUser loads a round by path ID and verifies ownership
func roundForUser(db *gorm.DB, c *gin.Context) (*domain.DealRound, bool) {
	userID, exists := c.Get("userID") // Get userID from context
	if !exists {
		// If not, return unauthorized
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	id, err := strconv.Atoi(c.Param("id")) // Round ID from the URL
	if err != nil {
		// Invalid ID
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid round id"})
		return nil, false
	}
	var round domain.DealRound // The round
	// Fetch the round
	if err := db.First(&round, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Round not found"})
		return nil, false
	}
	// Rounds are private to their player
	if round.UserID != userID.(uint) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your round"})
		return nil, false
	}
	return &round, true
}

// settleRound credits the payout exactly once. The settled flag is flipped
// with a guarded update inside the same transaction as the credit, so a
// re-entered finished state can never pay twice.
func settleRound(db *gorm.DB, round *domain.DealRound) error {
	if round.Stage != domain.DealFinished || round.Settled {
		return nil // Nothing to settle
	}
	return db.Transaction(func(tx *gorm.DB) error {
		round.Settled = true // Claim settlement
		// Guarded update: zero rows affected means someone already settled
		res := tx.Model(&domain.DealRound{ID: round.ID}).
			Where("settled = ?", false).
			Select("stage", "opened", "offer", "deal_taken", "payout", "settled").
			Updates(round)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // Already settled: do not pay again
		}
		if round.Payout == 0 {
			return nil // Nothing to credit
		}
		// Find the player's wallet
		var wallet domain.Wallet
		if err := tx.Where("user_id = ?", round.UserID).First(&wallet).Error; err != nil {
			return err
		}
		// Credit the winnings inside the same transaction
		_, err := ledger.ApplyDelta(tx, wallet.ID, round.Payout, domain.TxWin, "Deal or No Deal winnings")
		return err
	})
}

// StartDealHandler starts a round: the entry fee is charged up front. If the
// fee cannot be charged the round is born finished with no payout path.
func StartDealHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		userID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		// Find the caller's wallet
		wallet, err := walletForUser(db, userID)
		if err != nil {
			// Wallet not found
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			return
		}
		// Charge the entry fee before anything else
		_, err = ledger.ApplyDelta(db, wallet.ID, -int64(deal.EntryFee), domain.TxLose, "Deal or No Deal entry fee")
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			// Fee rejected: the round terminates immediately, no payout path
			round := domain.DealRound{
				UserID:  userID.(uint),       // Player
				Stage:   domain.DealFinished, // Born finished
				Settled: true,                // Nothing to settle
			}
			if err := db.Create(&round).Error; err != nil {
				// Log the error with context
				logrus.WithFields(logrus.Fields{
					"user_id": userID,      // User ID
					"error":   err.Error(), // Error message
				}).Error("Failed to record rejected round") // Log failure
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start round"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Not enough chips to play. You need 5,000 chips.",
				"round": dealRoundView(&round),
			})
			return
		}
		if err != nil {
			// Log the error with context
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // User ID
				"error":   err.Error(), // Error message
			}).Error("Entry fee charge failed") // Log failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start round"})
			return
		}
		// Shuffle the amount table into fresh briefcases
		round := domain.DealRound{
			UserID: userID.(uint),   // Player
			Stage:  domain.DealPick, // Rounds start at the pick stage
			Cases:  deal.NewCases(), // Fisher-Yates permutation of the amounts
			Opened: []int{},         // Nothing opened yet
		}
		// Persist the round
		if err := db.Create(&round).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start round"})
			return
		}
		// Log the round start
		logrus.WithFields(logrus.Fields{
			"user_id":  userID,        // User ID
			"round_id": round.ID,      // Round ID
			"fee":      deal.EntryFee, // Chips charged
		}).Info("Deal round started") // Log start
		invalidateWalletCache(rdb, userID.(uint)) // The fee changed the balance
		// Return the round view
		c.JSON(http.StatusCreated, gin.H{"round": dealRoundView(&round)})
	}
}

// GetDealRoundHandler returns the caller's round state
func GetDealRoundHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		round, ok := roundForUser(db, c) // Load and authorize the round
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"round": dealRoundView(round)}) // Return the view
	}
}

// PickCaseHandler records the player's own case (pick stage only)
func PickCaseHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		round, ok := roundForUser(db, c) // Load and authorize the round
		if !ok {
			return
		}
		var req PickCaseRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Apply the pick transition
		if err := deal.Pick(round, req.CaseID); err != nil {
			// Rejected locally before any mutation
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		// Persist the round
		if err := db.Save(round).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save round"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"round": dealRoundView(round)}) // Return the view
	}
}

// OpenCaseHandler reveals one non-player case. Every 3rd reveal triggers a
// bank offer while more than one case remains; running out of cases finishes
// the round on the player's own case.
func OpenCaseHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		round, ok := roundForUser(db, c) // Load and authorize the round
		if !ok {
			return
		}
		var req PickCaseRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Apply the open transition
		amount, err := deal.Open(round, req.CaseID)
		if err != nil {
			// Rejected locally before any mutation
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		// Settlement path: the last open can finish the round
		if round.Stage == domain.DealFinished {
			if err := settleRound(db, round); err != nil {
				logrus.WithFields(logrus.Fields{
					"round_id": round.ID,    // Round ID
					"error":    err.Error(), // Error message
				}).Error("Settlement failed") // Log failure
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Settlement failed"})
				return
			}
			invalidateWalletCache(rdb, round.UserID) // Winnings changed the balance
		} else if err := db.Save(round).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save round"})
			return
		}
		// Return the revealed amount with the round view
		c.JSON(http.StatusOK, gin.H{"revealed": amount, "round": dealRoundView(round)})
	}
}

// TakeDealHandler accepts the pending offer and settles the round
func TakeDealHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		round, ok := roundForUser(db, c) // Load and authorize the round
		if !ok {
			return
		}
		// Apply the accept transition
		if err := deal.TakeDeal(round); err != nil {
			// Rejected locally before any mutation
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		// Credit the accepted offer exactly once
		if err := settleRound(db, round); err != nil {
			logrus.WithFields(logrus.Fields{
				"round_id": round.ID,    // Round ID
				"error":    err.Error(), // Error message
			}).Error("Settlement failed") // Log failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Settlement failed"})
			return
		}
		// Log the accepted deal
		logrus.WithFields(logrus.Fields{
			"round_id": round.ID,     // Round ID
			"payout":   round.Payout, // Accepted offer
		}).Info("Deal taken") // Log the deal
		invalidateWalletCache(rdb, round.UserID) // Winnings changed the balance
		c.JSON(http.StatusOK, gin.H{"round": dealRoundView(round)}) // Return the view
	}
}

// NoDealHandler declines the pending offer and resumes opening
func NoDealHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		round, ok := roundForUser(db, c) // Load and authorize the round
		if !ok {
			return
		}
		// Apply the decline transition; case state is untouched
		if err := deal.NoDeal(round); err != nil {
			// Rejected locally before any mutation
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		// Persist the round
		if err := db.Save(round).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save round"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"round": dealRoundView(round)}) // Return the view
	}
}
