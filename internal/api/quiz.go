package api

import (
	"context"                       // Context for Redis operations
	"errors"                        // Error matching
	"math/rand"                     // Random question selection
	"net/http"                      // HTTP status codes
	"time"                          // Time durations
	"chip_games/internal/domain"    // Importing domain models
	"chip_games/internal/game/quiz" // Quiz reward arithmetic
	"chip_games/internal/ledger"    // Atomic wallet operations
	"chip_games/internal/utils"     // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library

	"github.com/sirupsen/logrus" // Logging library
)

// CoinPackage is one entry of the purchasable package catalog
type CoinPackage struct {
	ID       string `json:"id"`       // Package id
	Name     string `json:"name"`     // Display name
	Coins    int64  `json:"coins"`    // Base chips
	Bonus    int64  `json:"bonus"`    // Bonus chips
	Price    int64  `json:"price"`    // Price in the local currency
	Currency string `json:"currency"` // Payment currency
}

// CoinPackages is the fixed purchase catalog
var CoinPackages = []CoinPackage{
	{ID: "starter", Name: "Starter Pack", Coins: 100, Bonus: 0, Price: 5000, Currency: "LBP"},
	{ID: "basic", Name: "Basic Pack", Coins: 500, Bonus: 50, Price: 20000, Currency: "LBP"},
	{ID: "popular", Name: "Popular Pack", Coins: 1200, Bonus: 200, Price: 45000, Currency: "LBP"},
	{ID: "mega", Name: "Mega Pack", Coins: 2500, Bonus: 500, Price: 85000, Currency: "LBP"},
	{ID: "ultimate", Name: "Ultimate Pack", Coins: 5000, Bonus: 1500, Price: 150000, Currency: "LBP"},
}

// RewardItem is one entry of the redemption catalog
type RewardItem struct {
	Name    string `json:"name"`    // Display name
	Service string `json:"service"` // Service key
	Coins   int64  `json:"coins"`   // Chip cost
}

// RewardCatalog is the fixed redemption catalog
var RewardCatalog = []RewardItem{
	{Name: "Alfa 5,000 LL", Service: "alfa", Coins: 100},
	{Name: "MTC 5,000 LL", Service: "mtc", Coins: 100},
	{Name: "Toters 10,000 LL", Service: "toters", Coins: 200},
	{Name: "Shein 20,000 LL", Service: "shein", Coins: 400},
	{Name: "Zomato 15,000 LL", Service: "zomato", Coins: 300},
	{Name: "Careem 10,000 LL", Service: "careem", Coins: 200},
}

// AnswerRequest represents a quiz answer submission
type AnswerRequest struct {
	QuestionID  uint `json:"question_id" binding:"required"`  // Question being answered
	AnswerIndex *int `json:"answer_index" binding:"required"` // Chosen option index
}

// RedeemRequest represents a reward redemption
type RedeemRequest struct {
	Service string `json:"service" binding:"required"` // Catalog service key
}

// BuyPackageRequest represents a coin package purchase
type BuyPackageRequest struct {
	PackageID string `json:"package_id" binding:"required"` // Catalog package id
}

// GetQuestionHandler returns one random active question (answer withheld)
func GetQuestionHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var count int64 // Number of active questions
		// Count active questions
		if err := db.Model(&domain.Question{}).Where("active = ?", true).Count(&count).Error; err != nil || count == 0 {
			// No questions in rotation
			c.JSON(http.StatusNotFound, gin.H{"error": "No questions available"})
			return
		}
		var question domain.Question // The selected question
		// Pick a random offset; portable across databases
		if err := db.Where("active = ?", true).Offset(rand.Intn(int(count))).First(&question).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch question"})
			return
		}
		// Never send the correct index to the client
		c.JSON(http.StatusOK, gin.H{"question": gin.H{
			"id":         question.ID,         // Question ID
			"text":       question.Text,       // Question text
			"options":    question.Options,    // Answer options
			"difficulty": question.Difficulty, // Difficulty
		}})
	}
}

// AnswerHandler grades an answer, updates the streak and XP, credits the
// reward and pays the one-time referrer bonus on a referred user's first
// correct answer. Streak counts consecutive correct answers and resets on
// a wrong one; the reward uses the streak as it was before this answer.
func AnswerHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		userID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req AnswerRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil || req.AnswerIndex == nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var user domain.User // The answering user
		// Fetch the user (streak and referral state live here)
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		var question domain.Question // The question being answered
		// Fetch the question; inactive questions cannot be answered
		if err := db.Where("active = ?", true).First(&question, req.QuestionID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
			return
		}
		correct := *req.AnswerIndex == question.CorrectIndex             // Grade the answer
		reward := quiz.Reward(question.Difficulty, correct, user.Streak) // Streak before this answer
		newStreak := 0                                                   // Wrong answers reset the streak
		if correct {
			newStreak = user.Streak + 1
		}
		referralPaid := false // Whether this answer triggered the referrer bonus
		// Apply everything in one transaction: streak, XP, audit row, credit, referral
		err := db.Transaction(func(tx *gorm.DB) error {
			// Update streak and XP
			if err := tx.Model(&user).Updates(map[string]any{
				"streak": newStreak,        // New streak
				"xp":     user.XP + reward, // Reward doubles as XP
			}).Error; err != nil {
				return err
			}
			// Record the graded answer
			answer := domain.QuizAnswer{
				UserID:     user.ID,     // User
				QuestionID: question.ID, // Question
				Correct:    correct,     // Grade
				Reward:     reward,      // Chips awarded
			}
			if err := tx.Create(&answer).Error; err != nil {
				return err
			}
			// Credit the reward, if any
			if reward > 0 {
				wallet, err := walletForUser(tx, user.ID)
				if err != nil {
					return err
				}
				if _, err := ledger.ApplyDelta(tx, wallet.ID, int64(reward), domain.TxWin, "Quiz reward"); err != nil {
					return err
				}
			}
			// One-time referrer bonus on the first correct answer
			if correct && user.ReferredBy != nil && !user.ReferralPaid {
				referrerWallet, err := walletForUser(tx, *user.ReferredBy)
				if err == nil {
					if _, err := ledger.ApplyDelta(tx, referrerWallet.ID, quiz.ReferralBonus, domain.TxWin, "Referral bonus"); err != nil {
						return err
					}
					referralPaid = true
				}
				// Mark paid either way so a referrer without a wallet is not retried forever
				if err := tx.Model(&user).Update("referral_paid", true).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			// Log the error with context
			logrus.WithFields(logrus.Fields{
				"user_id":     userID,      // User ID
				"question_id": question.ID, // Question ID
				"error":       err.Error(), // Error message
			}).Error("Answer processing failed") // Log failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process answer"})
			return
		}
		// Log the graded answer
		logrus.WithFields(logrus.Fields{
			"user_id":     userID,      // User ID
			"question_id": question.ID, // Question ID
			"correct":     correct,     // Grade
			"reward":      reward,      // Chips awarded
			"streak":      newStreak,   // New streak
		}).Info("Answer graded") // Log grading
		invalidateWalletCache(rdb, user.ID) // The reward changed the balance
		if referralPaid {
			invalidateWalletCache(rdb, *user.ReferredBy) // So did the referrer bonus
		}
		// Return the grade and progress
		c.JSON(http.StatusOK, gin.H{
			"correct": correct,                            // Grade
			"reward":  reward,                             // Chips awarded
			"streak":  newStreak,                          // New streak
			"xp":      user.XP + reward,                   // New XP total
			"level":   quiz.LevelFromXP(user.XP + reward), // New level
		})
	}
}

// WatchAdHandler credits the fixed ad reward and records the view
func WatchAdHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
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
		// Credit the reward and record the view together
		err = db.Transaction(func(tx *gorm.DB) error {
			if _, err := ledger.ApplyDelta(tx, wallet.ID, quiz.AdReward, domain.TxWin, "Watched ad"); err != nil {
				return err
			}
			view := domain.AdWatch{UserID: userID.(uint), Reward: quiz.AdReward}
			return tx.Create(&view).Error
		})
		if err != nil {
			// Log the error with context
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // User ID
				"error":   err.Error(), // Error message
			}).Error("Ad reward failed") // Log failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to credit ad reward"})
			return
		}
		invalidateWalletCache(rdb, userID.(uint)) // The reward changed the balance
		// Return the credited amount
		c.JSON(http.StatusOK, gin.H{"reward": quiz.AdReward})
	}
}

// ListRewardsHandler returns the redemption catalog
func ListRewardsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rewards": RewardCatalog}) // Static catalog
	}
}

// RedeemHandler exchanges chips for a catalog reward. The debit and the
// redemption record commit together or not at all.
func RedeemHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		userID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req RedeemRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Look up the catalog entry
		var item *RewardItem
		for i := range RewardCatalog {
			if RewardCatalog[i].Service == req.Service {
				item = &RewardCatalog[i]
			}
		}
		if item == nil {
			// Unknown service key
			c.JSON(http.StatusNotFound, gin.H{"error": "Reward not found"})
			return
		}
		// Find the caller's wallet
		wallet, err := walletForUser(db, userID)
		if err != nil {
			// Wallet not found
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			return
		}
		var redemption domain.Redemption // The redemption record
		// Debit and record in one transaction
		err = db.Transaction(func(tx *gorm.DB) error {
			if _, err := ledger.ApplyDelta(tx, wallet.ID, -item.Coins, domain.TxCashout, "Redeemed: "+item.Name); err != nil {
				return err
			}
			redemption = domain.Redemption{
				UserID:      userID.(uint), // User
				ServiceName: item.Name,     // Reward name
				ServiceType: item.Service,  // Service key
				CoinsSpent:  item.Coins,    // Chips debited
			}
			return tx.Create(&redemption).Error
		})
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			// Not enough chips: nothing was debited, nothing recorded
			c.JSON(http.StatusBadRequest, gin.H{"error": "Not enough coins"})
			return
		}
		if err != nil {
			// Log the error with context
			logrus.WithFields(logrus.Fields{
				"user_id": userID,       // User ID
				"service": item.Service, // Service key
				"error":   err.Error(),  // Error message
			}).Error("Redemption failed") // Log failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Redemption failed"})
			return
		}
		// Log the redemption
		logrus.WithFields(logrus.Fields{
			"user_id": userID,     // User ID
			"reward":  item.Name,  // Reward name
			"coins":   item.Coins, // Chips debited
		}).Info("Reward redeemed") // Log redemption
		invalidateWalletCache(rdb, userID.(uint)) // The debit changed the balance
		// Return the redemption record
		c.JSON(http.StatusCreated, gin.H{"redemption": redemption})
	}
}

// ListPackagesHandler returns the coin package catalog
func ListPackagesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"packages": CoinPackages}) // Static catalog
	}
}

// BuyPackageHandler records a package purchase and credits coins plus bonus
func BuyPackageHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		userID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req BuyPackageRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Look up the catalog entry
		var pkg *CoinPackage
		for i := range CoinPackages {
			if CoinPackages[i].ID == req.PackageID {
				pkg = &CoinPackages[i]
			}
		}
		if pkg == nil {
			// Unknown package id
			c.JSON(http.StatusNotFound, gin.H{"error": "Package not found"})
			return
		}
		// Find the caller's wallet
		wallet, err := walletForUser(db, userID)
		if err != nil {
			// Wallet not found
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			return
		}
		total := pkg.Coins + pkg.Bonus // Chips credited: package plus bonus
		var purchase domain.Purchase   // The purchase record
		// Record the purchase and credit the chips together
		err = db.Transaction(func(tx *gorm.DB) error {
			purchase = domain.Purchase{
				UserID:     userID.(uint), // User
				PackageID:  pkg.ID,        // Package id
				Coins:      total,         // Chips credited
				AmountPaid: pkg.Price,     // Price paid
				Currency:   pkg.Currency,  // Currency
			}
			if err := tx.Create(&purchase).Error; err != nil {
				return err
			}
			_, err := ledger.ApplyDelta(tx, wallet.ID, total, domain.TxBuy, "Coin package: "+pkg.Name)
			return err
		})
		if err != nil {
			// Log the error with context
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // User ID
				"package": pkg.ID,      // Package id
				"error":   err.Error(), // Error message
			}).Error("Package purchase failed") // Log failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Purchase failed"})
			return
		}
		// Log the purchase
		logrus.WithFields(logrus.Fields{
			"user_id": userID, // User ID
			"package": pkg.ID, // Package id
			"coins":   total,  // Chips credited
		}).Info("Package purchased") // Log purchase
		invalidateWalletCache(rdb, userID.(uint)) // The credit changed the balance
		// Return the purchase record
		c.JSON(http.StatusCreated, gin.H{"purchase": purchase})
	}
}

// LeaderboardHandler returns the top players by XP (cached)
func LeaderboardHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background() // Context for Redis operations
		cacheKey := "leaderboard"   // Single cache key for the top list
		type entry struct {
			Username string `json:"username"` // Player name
			XP       int    `json:"xp"`       // Total XP
			Level    int    `json:"level"`    // Derived level
		}
		var cached []entry // Cached leaderboard
		// Try the cache first
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"leaderboard": cached, "cached": true})
			return
		}
		var users []domain.User // Top users
		// Fetch the top 10 by XP
		if err := db.Order("xp desc").Limit(10).Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch leaderboard"})
			return
		}
		// Build the response entries
		entries := make([]entry, len(users))
		for i, u := range users {
			entries[i] = entry{
				Username: u.Username,             // Player name
				XP:       u.XP,                   // Total XP
				Level:    quiz.LevelFromXP(u.XP), // Derived level
			}
		}
		// Cache the leaderboard for 60 seconds
		_ = utils.SetCache(ctx, rdb, cacheKey, entries, 60*time.Second)
		c.JSON(http.StatusOK, gin.H{"leaderboard": entries, "cached": false})
	}
}
