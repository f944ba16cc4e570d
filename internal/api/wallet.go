package api

import (
	"context"                    // Context for Redis operations
	"errors"                     // Error matching
	"net/http"                   // HTTP status codes
	"strconv"                    // String conversion
	"time"                       // Time durations
	"chip_games/internal/domain" // Importing domain models
	"chip_games/internal/ledger" // Atomic wallet operations
	"chip_games/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library

	"github.com/sirupsen/logrus" // Logging library
)

// BuyChipsRequest represents a chip purchase request
type BuyChipsRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"` // Chips to credit
	Description string `json:"description"`                    // Optional description
}

// CashoutRequest represents a cashout request
type CashoutRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"` // Chips to redeem
	Description string `json:"description"`                    // Optional description
}

// invalidateWalletCache drops the cached wallet and transaction history pages for a user
func invalidateWalletCache(rdb *redis.Client, userID uint) {
	ctx := context.Background()                         // Context for Redis operations
	id := strconv.Itoa(int(userID))                     // User ID as string
	_ = utils.DeleteCache(ctx, rdb, "wallet:user:"+id)            // Invalidate wallet cache
	_ = utils.DeleteCacheByPrefix(ctx, rdb, "txhistory:user:"+id) // Invalidate all history pages
}

// walletForUser fetches the wallet owned by the authenticated user
func walletForUser(db *gorm.DB, userID any) (*domain.Wallet, error) {
	var wallet domain.Wallet
	if err := db.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		return nil, err // Wallet not found
	}
	return &wallet, nil
}

// CreateWalletHandler creates a wallet for a user (one wallet per user)
func CreateWalletHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		userID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		// Check if wallet already exists
		if _, err := walletForUser(db, userID); err == nil {
			// If wallet exists, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Wallet already exists"})
			return
		}
		// Create new wallet with zero balance
		wallet := domain.Wallet{UserID: userID.(uint), Balance: 0}
		// Save the new wallet
		if err := db.Create(&wallet).Error; err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // User ID
				"error":   err.Error(), // Error message
			}).Error("Failed to create wallet") // Log failure
			// Return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create wallet"})
			return
		}
		// Log successful wallet creation
		logrus.WithFields(logrus.Fields{
			"user_id":   userID,    // User ID
			"wallet_id": wallet.ID, // Wallet ID
		}).Info("Wallet created") // Log wallet creation
		// Return success response
		c.JSON(http.StatusCreated, gin.H{"message": "Wallet created", "wallet": wallet})
	}
}

// GetWalletHandler returns wallet info for the authenticated user
func GetWalletHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		userID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		ctx := context.Background()                                   // Context for Redis operations
		cacheKey := "wallet:user:" + strconv.Itoa(int(userID.(uint))) // Cache key for wallet
		var wallet domain.Wallet                                      // Wallet struct to hold data
		found, err := utils.GetCache(ctx, rdb, cacheKey, &wallet)     // Try to get from cache
		// If found in cache, return it
		if err == nil && found {
			// Return cached wallet
			c.JSON(http.StatusOK, gin.H{"wallet": wallet, "cached": true})
			return
		}
		// If not in cache, fetch from DB
		if err := db.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
			// Return not found if wallet doesn't exist
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, wallet, 60*time.Second)  // Cache the wallet for 60 seconds
		c.JSON(http.StatusOK, gin.H{"wallet": wallet, "cached": false}) // Return wallet info
	}
}

// BuyChipsHandler credits chips to the authenticated user's wallet
func BuyChipsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		userID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req BuyChipsRequest // Bind JSON request to struct
		// Validate request
		if err := c.ShouldBindJSON(&req); err != nil || req.Amount <= 0 {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		}
		// Find the user's wallet
		wallet, err := walletForUser(db, userID)
		if err != nil {
			// If wallet not found, return not found
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			return
		}
		description := req.Description // Use the provided description
		if description == "" {
			description = "Chip purchase" // Default description
		}
		// Apply the credit atomically (balance + transaction record together)
		updated, err := ledger.ApplyDelta(db, wallet.ID, req.Amount, domain.TxBuy, description)
		if err != nil {
			// Log the error with context
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // User ID
				"amount":  req.Amount,  // Credit amount
				"error":   err.Error(), // Error message
			}).Error("Chip purchase failed") // Log failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Chip purchase failed"})
			return
		}
		// Log successful purchase
		logrus.WithFields(logrus.Fields{
			"user_id": userID,          // User ID
			"amount":  req.Amount,      // Credit amount
			"type":    domain.TxBuy,    // Transaction type
			"balance": updated.Balance, // New balance
		}).Info("Chips credited") // Log credit
		invalidateWalletCache(rdb, userID.(uint)) // Invalidate caches
		// Return the updated wallet
		c.JSON(http.StatusOK, gin.H{"wallet": updated})
	}
}

// CashoutHandler debits chips from the authenticated user's wallet.
// The debit either fully succeeds or fails with the balance untouched.
func CashoutHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		userID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req CashoutRequest // Bind JSON request to struct
		// Validate request
		if err := c.ShouldBindJSON(&req); err != nil || req.Amount <= 0 {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		}
		// Find the user's wallet
		wallet, err := walletForUser(db, userID)
		if err != nil {
			// If wallet not found, return not found
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			return
		}
		description := req.Description // Use the provided description
		if description == "" {
			description = "Cashout" // Default description
		}
		// Apply the debit atomically; an overdraft is rejected, not clamped
		updated, err := ledger.ApplyDelta(db, wallet.ID, -req.Amount, domain.TxCashout, description)
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			// Insufficient funds: nothing changed, user can buy more chips
			c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient chips"})
			return
		}
		if err != nil {
			// Log the error with context
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // User ID
				"amount":  req.Amount,  // Debit amount
				"error":   err.Error(), // Error message
			}).Error("Cashout failed") // Log failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Cashout failed"})
			return
		}
		// Log successful cashout
		logrus.WithFields(logrus.Fields{
			"user_id": userID,           // User ID
			"amount":  req.Amount,       // Debit amount
			"type":    domain.TxCashout, // Transaction type
			"balance": updated.Balance,  // New balance
		}).Info("Chips cashed out") // Log debit
		invalidateWalletCache(rdb, userID.(uint)) // Invalidate caches
		// Return the updated wallet
		c.JSON(http.StatusOK, gin.H{"wallet": updated})
	}
}

// GetTransactionHistoryHandler returns all transactions for the authenticated user's wallet
func GetTransactionHistoryHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		userID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		// Get user's wallet
		wallet, err := walletForUser(db, userID)
		if err != nil {
			// Return not found if wallet doesn't exist
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			return
		}
		page := 1      // Default page
		pageSize := 20 // Default page size
		// If page exists in query
		if p := c.Query("page"); p != "" {
			// Convert page to integer
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v // Set page if valid
			}
		}
		// If page_size exists in query
		if ps := c.Query("page_size"); ps != "" {
			// Convert page_size to integer
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v // Set page size if valid
			}
		}
		offset := (page - 1) * pageSize // Calculate offset
		// Redis cache key
		cacheKey := "txhistory:user:" + strconv.Itoa(int(userID.(uint))) + ":page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize)
		ctx := context.Background() // Context for Redis operations
		var cached struct {
			Transactions []domain.Transaction `json:"transactions"` // List of transactions
			Page         int                  `json:"page"`         // Current page
			PageSize     int                  `json:"page_size"`    // Page size
			Total        int64                `json:"total"`        // Total transactions
			TotalPages   int                  `json:"total_pages"`  // Total pages
		}
		// Try to get from cache
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		// If found in cache, return it
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"transactions": cached.Transactions, // Cached transactions
				"page":         cached.Page,         // Current page
				"page_size":    cached.PageSize,     // Page size
				"total":        cached.Total,        // Total transactions
				"total_pages":  cached.TotalPages,   // Total pages
				"cached":       true,
			})
			return
		}
		var total int64 // Total count of transactions
		// Count total transactions for pagination
		if err := db.Model(&domain.Transaction{}).
			Where("wallet_id = ?", wallet.ID).
			Count(&total).Error; err != nil {
			// If counting fails, return error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count transactions"})
			return
		}
		var transactions []domain.Transaction // Slice to hold transactions
		// Fetch paginated transactions
		if err := db.Where("wallet_id = ?", wallet.ID).
			Order("created_at desc").
			Offset(offset).
			Limit(pageSize).
			Find(&transactions).Error; err != nil {
			// If fetching fails, return error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}
		// Calculate total pages
		totalPages := (int(total) + pageSize - 1) / pageSize
		resp := gin.H{
			"transactions": transactions, // List of transactions
			"page":         page,         // Current page
			"page_size":    pageSize,     // Page size
			"total":        total,        // Total transactions
			"total_pages":  totalPages,   // Total pages
			"cached":       false,        // Not from cache
		}
		// Cache the result for 60 seconds
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second)
		c.JSON(http.StatusOK, resp) // Return transaction history
	}
}
