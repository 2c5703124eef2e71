package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tracklet/tracklet-api/internal/auth"
	"github.com/tracklet/tracklet-api/internal/database"
	"github.com/tracklet/tracklet-api/internal/inventory"
	"github.com/tracklet/tracklet-api/internal/notifications"
	"github.com/tracklet/tracklet-api/internal/orders"
	"github.com/tracklet/tracklet-api/internal/plants"
	"github.com/tracklet/tracklet-api/internal/rates"
	"github.com/tracklet/tracklet-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the gas distribution API server with graceful
// shutdown support. It sets up all required services, database connections,
// and API routes.
func main() {
	// Initialize database
	db, err := database.NewDatabase()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Initialize router
	router := gin.Default()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "tracklet-secret-key"
	}

	// Initialize services and handlers
	authService := auth.NewService(jwtSecret)
	authHandlers := auth.NewGinHandlers(authService)
	// Register test credentials
	authService.RegisterAPICredentials(auth.TestAPIKey, auth.TestAPISecret)

	plantService := plants.NewService(db)
	plantHandlers := plants.NewGinHandlers(plantService)

	inventoryService := inventory.NewService(db)
	inventoryHandlers := inventory.NewGinHandlers(inventoryService)

	rateService := rates.NewService(db)
	rateHandlers := rates.NewGinHandlers(rateService)

	notificationService := notifications.NewService(db)
	notificationHandlers := notifications.NewGinHandlers(notificationService)

	orderService := orders.NewService(db, inventoryService, plantService, notificationService)
	orderHandlers := orders.NewGinHandlers(orderService)

	// Create and start the low-stock monitor
	lowStockMonitor := notifications.NewMonitor(notificationService, plantService, inventoryService, decimal.NewFromInt(5))
	monitorCtx, monitorCancel := context.WithCancel(context.Background())
	defer monitorCancel()

	go lowStockMonitor.Start(monitorCtx)

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, jwtSecret, authHandlers, plantHandlers, inventoryHandlers, rateHandlers, orderHandlers, notificationHandlers)

	// Get port from env otherwise it's 8080
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Create server
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public endpoints for authentication
// - Plant, tank, order and notification routes: Protected by JWT authentication
// - Rate setting: Protected by internal network authentication
func setupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authHandlers *auth.GinHandlers,
	plantHandlers *plants.GinHandlers,
	inventoryHandlers *inventory.GinHandlers,
	rateHandlers *rates.GinHandlers,
	orderHandlers *orders.GinHandlers,
	notificationHandlers *notifications.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Gas plant routes
		plantGroup := v1.Group("/plants")
		plantGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			plantGroup.POST("", plantHandlers.RegisterPlantHandler())
			plantGroup.GET("", plantHandlers.ListPlantsHandler())
			plantGroup.GET("/:plant_id", plantHandlers.GetPlantHandler())
			plantGroup.PUT("/:plant_id", plantHandlers.UpdatePlantHandler())
		}

		// Tank and stock routes
		tankGroup := v1.Group("/tanks")
		tankGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			tankGroup.POST("", inventoryHandlers.CreateTankHandler())
			tankGroup.GET("/owner/:owner_id", inventoryHandlers.ListTanksHandler())
			tankGroup.GET("/owner/:owner_id/transactions", inventoryHandlers.ListTransactionsHandler())
			tankGroup.GET("/owner/:owner_id/stats", inventoryHandlers.StockStatsHandler())
			tankGroup.POST("/deduct-stock", inventoryHandlers.DeductStockHandler())
			tankGroup.POST("/deduct-stock-sequential", inventoryHandlers.DeductStockSequentialHandler())
			tankGroup.GET("/:tank_id", inventoryHandlers.GetTankHandler())
			tankGroup.PUT("/:tank_id", inventoryHandlers.UpdateTankHandler())
			tankGroup.DELETE("/:tank_id", inventoryHandlers.DeleteTankHandler())
			tankGroup.POST("/:tank_id/add-gas", inventoryHandlers.AddGasHandler())
			tankGroup.POST("/:tank_id/freeze-gas", inventoryHandlers.FreezeGasHandler())
			tankGroup.POST("/:tank_id/unfreeze-gas", inventoryHandlers.UnfreezeGasHandler())
		}

		// Order routes
		orderGroup := v1.Group("/orders")
		orderGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			orderGroup.POST("", orderHandlers.CreateOrderHandler())
			orderGroup.GET("/owner/:owner_id", orderHandlers.ListOrdersHandler())
			orderGroup.GET("/:order_id", orderHandlers.GetOrderHandler())
			orderGroup.PUT("/:order_id", orderHandlers.UpdateOrderHandler())
		}

		// Rate routes (setting a rate is an internal/super-admin action)
		rateGroup := v1.Group("/rates")
		{
			rateGroup.POST("", middleware.InternalAuth(jwtSecret), rateHandlers.SetRateHandler())
			rateGroup.GET("/current", middleware.JWTAuth(jwtSecret), rateHandlers.GetCurrentRateHandler())
			rateGroup.GET("/history", middleware.JWTAuth(jwtSecret), rateHandlers.GetHistoryHandler())
		}

		// Notification routes
		notificationGroup := v1.Group("/notifications")
		notificationGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			notificationGroup.GET("/recipient/:recipient_id", notificationHandlers.ListNotificationsHandler())
			notificationGroup.PUT("/recipient/:recipient_id/read-all", notificationHandlers.MarkAllReadHandler())
			notificationGroup.PUT("/:notification_id/read", notificationHandlers.MarkReadHandler())
		}
	}
}
