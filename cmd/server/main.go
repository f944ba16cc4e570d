package main

import (
	"context"                        // context package is needed for Redis operations
	"log"                            // log package is needed for logging
	"chip_games/internal/api"        // Custom package for API handlers
	"chip_games/internal/config"     // Custom package for configuration
	"chip_games/internal/middleware" // Custom package for middleware
	"chip_games/internal/ws"         // Custom package for the websocket hub

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Setup Data Source Name (DSN) and connect to the database
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Setup the websocket hub for room broadcasts
	hub := ws.NewHub(cfg.WSOrigin)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Auth routes
	r.POST("/user", api.RegisterHandler(db))            // Registration endpoint
	r.GET("/user", api.LoginHandler(db, cfg.JWTSecret)) // Login endpoint

	auth := middleware.JWTAuthMiddleware(cfg.JWTSecret) // Shared JWT middleware

	// Wallet routes (protected by JWT)
	walletGroup := r.Group("/wallet")
	walletGroup.Use(auth)
	walletGroup.POST("", api.CreateWalletHandler(db))                                   // Create wallet endpoint
	walletGroup.GET("", api.GetWalletHandler(db, redisClient))                          // Get wallet endpoint
	walletGroup.POST("/buy", api.BuyChipsHandler(db, redisClient))                      // Buy chips endpoint
	walletGroup.POST("/cashout", api.CashoutHandler(db, redisClient))                   // Cashout endpoint
	walletGroup.GET("/transactions", api.GetTransactionHistoryHandler(db, redisClient)) // Transaction history endpoint

	// Tombola room routes (protected by JWT)
	roomGroup := r.Group("/rooms")
	roomGroup.Use(auth)
	roomGroup.POST("", api.CreateRoomHandler(db))                                 // Create room endpoint
	roomGroup.POST("/join", api.JoinRoomHandler(db, hub))                         // Join room endpoint
	roomGroup.GET("/:code", api.GetRoomHandler(db, redisClient))                  // Room snapshot (poll path)
	roomGroup.POST("/:code/start", api.StartRoomHandler(db, redisClient, hub))    // Start game endpoint (host)
	roomGroup.POST("/:code/draw", api.DrawHandler(db, redisClient, hub))          // Draw next ball endpoint (host)
	roomGroup.POST("/:code/finish", api.FinishRoomHandler(db, redisClient, hub))  // Finish game endpoint (host)
	roomGroup.POST("/:code/cards", api.BuyCardHandler(db, redisClient))           // Buy extra card endpoint
	roomGroup.GET("/:code/cards", api.ListCardsHandler(db))                       // List own cards endpoint

	// Websocket draw feed. Broadcast-only: clients never send game input over
	// the socket, so the feed is open like the big-screen view it mirrors.
	r.GET("/ws/rooms/:code", func(c *gin.Context) {
		hub.Serve(c.Writer, c.Request, c.Param("code"))
	})

	// Deal-or-No-Deal routes (protected by JWT)
	dealGroup := r.Group("/deal")
	dealGroup.Use(auth)
	dealGroup.POST("", api.StartDealHandler(db, redisClient))          // Start round endpoint (charges entry fee)
	dealGroup.GET("/:id", api.GetDealRoundHandler(db))                 // Round state endpoint
	dealGroup.POST("/:id/pick", api.PickCaseHandler(db))               // Pick own case endpoint
	dealGroup.POST("/:id/open", api.OpenCaseHandler(db, redisClient))  // Open case endpoint
	dealGroup.POST("/:id/deal", api.TakeDealHandler(db, redisClient))  // Accept offer endpoint
	dealGroup.POST("/:id/no-deal", api.NoDealHandler(db))              // Decline offer endpoint

	// Quiz and rewards routes (protected by JWT)
	quizGroup := r.Group("/quiz")
	quizGroup.Use(auth)
	quizGroup.GET("/question", api.GetQuestionHandler(db))        // Random question endpoint
	quizGroup.POST("/answer", api.AnswerHandler(db, redisClient)) // Answer grading endpoint

	r.POST("/ads/watch", auth, api.WatchAdHandler(db, redisClient))       // Ad reward endpoint
	r.GET("/rewards", auth, api.ListRewardsHandler())                     // Redemption catalog endpoint
	r.POST("/rewards/redeem", auth, api.RedeemHandler(db, redisClient))   // Redemption endpoint
	r.GET("/packages", auth, api.ListPackagesHandler())                   // Coin package catalog endpoint
	r.POST("/packages/buy", auth, api.BuyPackageHandler(db, redisClient)) // Package purchase endpoint
	r.GET("/leaderboard", auth, api.LeaderboardHandler(db, redisClient))  // Leaderboard endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	// Protect admin routes with JWT and role middleware
	adminGroup.Use(auth, middleware.RoleMiddleware(db, "admin"))
	adminGroup.GET("/users", api.ListUsersHandler(db, redisClient))                 // List users endpoint
	adminGroup.GET("/transactions", api.ListTransactionsHandler(db, redisClient))   // List transactions endpoint
	adminGroup.POST("/wallets/:id/balance", api.SetBalanceHandler(db, redisClient)) // Balance override endpoint
	adminGroup.POST("/questions", api.CreateQuestionHandler(db))                    // Create question endpoint

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
