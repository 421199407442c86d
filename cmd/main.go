package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"options-market/internal/auth"
	"options-market/internal/config"
	"options-market/internal/custody"
	"options-market/internal/database"
	"options-market/internal/handlers"
	"options-market/internal/jobs"
	"options-market/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	auth.InitJWT(cfg.App.JWTSecret)

	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	db := database.GetDB()

	// Services
	userService := services.NewUserService(db)
	ledgerService := services.NewLedgerService(db)
	locks := services.NewMarketLocks()
	marketService := services.NewMarketService(db, userService)
	stakeService := services.NewStakeService(db, ledgerService, locks, cfg.Engine.FeeRateBps)
	settlementService := services.NewSettlementService(db, userService, ledgerService, locks)
	oracleService := services.NewOracleService()

	// Custody is optional: without it balances live purely in the database.
	var custodyAdapter handlers.Custody
	if cfg.Custody.Backend == "solana" {
		adapter, err := custody.NewSolanaCustody(
			cfg.Custody.Network,
			cfg.Custody.TreasuryWallet,
			cfg.Custody.TreasuryKey,
			cfg.Custody.MinConfirmations,
		)
		if err != nil {
			log.Fatalf("Failed to initialize custody: %v", err)
		}
		custodyAdapter = adapter
		log.Printf("Custody: solana (%s), treasury %s", cfg.Custody.Network, cfg.Custody.TreasuryWallet)
	} else {
		log.Println("Custody: database-backed balances only")
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	marketHandler := handlers.NewMarketHandler(marketService)
	stakeHandler := handlers.NewStakeHandler(stakeService)
	settlementHandler := handlers.NewSettlementHandler(settlementService)
	walletHandler := handlers.NewWalletHandler(db, ledgerService, custodyAdapter)

	// Background resolution of expired markets
	resolver := jobs.NewMarketResolver(
		marketService,
		settlementService,
		oracleService,
		time.Duration(cfg.Engine.ResolveIntervalSeconds)*time.Second,
	)
	go resolver.Start()

	router := gin.Default()

	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/wallet", authHandler.WalletLogin)
	}

	authProtected := router.Group("/auth")
	authProtected.Use(auth.AuthMiddleware())
	{
		authProtected.GET("/me", authHandler.GetMe)
	}

	// Public market routes
	router.GET("/api/markets", marketHandler.GetMarkets)
	router.GET("/api/markets/:id", marketHandler.GetMarketByID)
	router.GET("/api/markets/:id/odds", marketHandler.GetOdds)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// Market lifecycle (operator checks happen in the services)
		api.POST("/markets", marketHandler.CreateMarket)
		api.POST("/markets/resolve-batch", settlementHandler.BatchResolve)
		api.POST("/markets/:id/resolve", settlementHandler.ResolveMarket)
		api.POST("/markets/:id/cancel", settlementHandler.CancelMarket)

		// Staking
		api.POST("/markets/:id/stake", stakeHandler.PlaceStake)
		api.POST("/markets/:id/exit", stakeHandler.EarlyExit)
		api.POST("/markets/:id/claim", stakeHandler.Claim)
		api.GET("/markets/:id/position", stakeHandler.GetPosition)
		api.GET("/positions", stakeHandler.GetMyPositions)

		// Wallet
		api.GET("/wallet/balance", walletHandler.GetBalance)
		api.POST("/wallet/deposit", walletHandler.Deposit)
		api.POST("/wallet/withdraw", walletHandler.Withdraw)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	resolver.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
