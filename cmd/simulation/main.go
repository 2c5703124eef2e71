package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tracklet/tracklet-api/internal/auth"
	"github.com/tracklet/tracklet-api/internal/database"
	"github.com/tracklet/tracklet-api/internal/inventory"
	"github.com/tracklet/tracklet-api/internal/notifications"
	"github.com/tracklet/tracklet-api/internal/orders"
	"github.com/tracklet/tracklet-api/internal/plants"
	"github.com/tracklet/tracklet-api/internal/rates"
)

const (
	minOrders     = 10
	maxOrders     = 60
	numWorkers    = 5
	serverAddress = "http://localhost:8080"
	jwtSecret     = "tracklet-secret-key"
)

var tankNames = []string{"Tank A", "Tank B", "Tank C"}

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))
	median = rs.durations[len(rs.durations)/2]

	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationClient handles HTTP communication with the gas distribution API
type simulationClient struct {
	baseURL   string
	authToken string
	client    *http.Client
	stats     map[string]*routeStats
}

// newSimulationClient creates and initializes a new simulation client
// It authenticates with the API and prepares performance tracking
func newSimulationClient() (*simulationClient, error) {
	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	sc := &simulationClient{
		baseURL: serverAddress,
		client:  client,
		stats: map[string]*routeStats{
			"auth":         {name: "Authentication"},
			"plant":        {name: "Register Plant"},
			"tank":         {name: "Create Tank"},
			"add_gas":      {name: "Add Gas"},
			"rate":         {name: "Set Rate"},
			"create_order": {name: "Create Order"},
			"accept_order": {name: "Accept Order"},
			"stock_stats":  {name: "Stock Stats"},
		},
	}

	token, err := sc.authenticate()
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	sc.authToken = token

	return sc, nil
}

// do sends an authenticated JSON request and decodes the envelope's data
// field into out (which may be nil for fire-and-forget calls).
func (sc *simulationClient) do(method, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequest(method, sc.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", sc.authToken))
	req.Header.Set("Content-Type", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Idempotency-Key", uuid.New().String())
	}

	resp, err := sc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("path", path).Str("response", string(respBody)).Msg("API response")

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s %s failed with status %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}

	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}
	return json.Unmarshal(result.Data, out)
}

// authenticate performs API authentication and returns a JWT token
func (sc *simulationClient) authenticate() (string, error) {
	start := time.Now()
	defer func() {
		sc.stats["auth"].addDuration(time.Since(start))
	}()

	credentials := map[string]string{
		"api_key":    auth.TestAPIKey,
		"api_secret": auth.TestAPISecret,
	}

	body, err := json.Marshal(credentials)
	if err != nil {
		return "", err
	}

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/token", sc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("authentication failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Token string `json:"jwt_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return result.Data.Token, nil
}

// registerPlant creates the gas plant the whole simulation runs against
func (sc *simulationClient) registerPlant() (string, error) {
	start := time.Now()
	defer func() {
		sc.stats["plant"].addDuration(time.Since(start))
	}()

	payload := map[string]interface{}{
		"name":         "Simulation Gas Plant",
		"email":        fmt.Sprintf("sim-%s@tracklet.local", uuid.New().String()[:8]),
		"phone":        "0300-0000000",
		"address":      "Industrial Estate",
		"per_kg_price": 260,
	}

	var plant plants.GasPlant
	if err := sc.do(http.MethodPost, "/api/v1/plants", payload, &plant); err != nil {
		sc.stats["plant"].failures++
		return "", err
	}
	return plant.PlantID, nil
}

// createTank registers one tank for the plant and fills it with gas
func (sc *simulationClient) createTank(ownerID, name string, capacity, initial int64) (string, error) {
	start := time.Now()
	defer func() {
		sc.stats["tank"].addDuration(time.Since(start))
	}()

	payload := map[string]interface{}{
		"name":           name,
		"location":       "Yard 1",
		"total_capacity": capacity,
		"owner_id":       ownerID,
	}

	var tank inventory.Tank
	if err := sc.do(http.MethodPost, "/api/v1/tanks", payload, &tank); err != nil {
		sc.stats["tank"].failures++
		return "", err
	}

	addStart := time.Now()
	err := sc.do(http.MethodPost, fmt.Sprintf("/api/v1/tanks/%s/add-gas", tank.TankID),
		map[string]interface{}{"amount": initial, "rate": 260}, nil)
	sc.stats["add_gas"].addDuration(time.Since(addStart))
	if err != nil {
		sc.stats["add_gas"].failures++
		return "", err
	}

	return tank.TankID, nil
}

// setRate publishes today's per-kg rate
func (sc *simulationClient) setRate(rate int64) error {
	start := time.Now()
	defer func() {
		sc.stats["rate"].addDuration(time.Since(start))
	}()

	if err := sc.do(http.MethodPost, "/api/v1/rates", map[string]interface{}{"rate": rate}, nil); err != nil {
		sc.stats["rate"].failures++
		return err
	}
	return nil
}

// createOrder submits a new order, returning its ID
func (sc *simulationClient) createOrder(ownerID string, quantity float64) (string, error) {
	start := time.Now()
	defer func() {
		sc.stats["create_order"].addDuration(time.Since(start))
	}()

	payload := map[string]interface{}{
		"owner_id":         ownerID,
		"customer_name":    fmt.Sprintf("Customer %d", rand.Intn(1000)),
		"customer_phone":   "0301-1234567",
		"delivery_address": "Main Street",
		"quantity":         quantity,
	}

	var order orders.Order
	if err := sc.do(http.MethodPost, "/api/v1/orders", payload, &order); err != nil {
		sc.stats["create_order"].failures++
		return "", err
	}
	if order.OrderID == "" {
		sc.stats["create_order"].failures++
		return "", fmt.Errorf("no order ID in response")
	}
	return order.OrderID, nil
}

// acceptOrder moves an order to in_progress, triggering the sequential
// stock deduction
func (sc *simulationClient) acceptOrder(orderID string) error {
	start := time.Now()
	defer func() {
		sc.stats["accept_order"].addDuration(time.Since(start))
	}()

	payload := map[string]interface{}{
		"status":      "in_progress",
		"driver_name": "Sim Driver",
	}
	if err := sc.do(http.MethodPut, "/api/v1/orders/"+orderID, payload, nil); err != nil {
		sc.stats["accept_order"].failures++
		return err
	}
	return nil
}

// getStockStats fetches the plant's current stock rollup
func (sc *simulationClient) getStockStats(ownerID string) (*inventory.StockStats, error) {
	start := time.Now()
	defer func() {
		sc.stats["stock_stats"].addDuration(time.Since(start))
	}()

	var stats inventory.StockStats
	if err := sc.do(http.MethodGet, fmt.Sprintf("/api/v1/tanks/owner/%s/stats", ownerID), nil, &stats); err != nil {
		sc.stats["stock_stats"].failures++
		return nil, err
	}
	return &stats, nil
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (sc *simulationClient) printPerformanceStats() {
	fmt.Println("\nAPI Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, stats := range sc.stats {
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

// main runs the gas distribution simulation
// It starts a local API server, provisions a plant with stocked tanks, and
// simulates concurrent customers placing orders that are then accepted
func main() {
	// Start the server in a goroutine
	go func() {
		if err := startServer(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for server to start
	time.Sleep(2 * time.Second)

	simClient, err := newSimulationClient()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize simulation client")
	}

	plantID, err := simClient.registerPlant()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register plant")
	}
	log.Info().Str("plant_id", plantID).Msg("Plant registered")

	// Three tanks, 100 tons capacity each, 80 tons stocked
	for _, name := range tankNames {
		tankID, err := simClient.createTank(plantID, name, 100, 80)
		if err != nil {
			log.Fatal().Err(err).Str("tank", name).Msg("Failed to create tank")
		}
		log.Info().Str("tank_id", tankID).Str("name", name).Msg("Tank created and stocked")
	}

	if err := simClient.setRate(265); err != nil {
		log.Fatal().Err(err).Msg("Failed to set rate")
	}

	targetOrders := rand.Intn(maxOrders-minOrders) + minOrders
	log.Info().Int("target_orders", targetOrders).Msg("Starting simulation")

	ordersChan := make(chan string, targetOrders)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			createOrdersHTTP(workerID, targetOrders/numWorkers, plantID, simClient, ordersChan)
		}(i)
	}

	wg.Wait()
	close(ordersChan)

	var orderIDs []string
	for orderID := range ordersChan {
		orderIDs = append(orderIDs, orderID)
	}
	log.Info().Int("orders_created", len(orderIDs)).Msg("All orders created")

	stats := struct {
		TotalOrders    int
		AcceptedOrders int
		FailedAccepts  int
		StartTime      time.Time
	}{
		StartTime:   time.Now(),
		TotalOrders: len(orderIDs),
	}

	// Accept every order; shortfalls surface here once the tanks run dry
	for _, orderID := range orderIDs {
		if err := simClient.acceptOrder(orderID); err != nil {
			log.Warn().Err(err).Str("order_id", orderID).Msg("Order acceptance rejected")
			stats.FailedAccepts++
			continue
		}
		stats.AcceptedOrders++
		log.Info().Str("order_id", orderID).Msg("Order accepted, stock deducted")
	}

	stockStats, err := simClient.getStockStats(plantID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch stock stats")
	}

	duration := time.Since(stats.StartTime)
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("GAS DISTRIBUTION SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf(`
Order Statistics
----------------
Total Orders:     %d
Accepted:         %d
Rejected (stock): %d
Duration:         %v

Stock Statistics
----------------
Total Capacity:   %s tons
Total Available:  %s tons
Total Frozen:     %s tons
Active Tanks:     %d of %d
Today Added:      %s tons
Today Deducted:   %s tons
Today Sales:      %s
`, stats.TotalOrders, stats.AcceptedOrders, stats.FailedAccepts,
		duration.Round(time.Millisecond),
		stockStats.TotalCapacity, stockStats.TotalAvailable, stockStats.TotalFrozen,
		stockStats.ActiveTanks, stockStats.TotalTanks,
		stockStats.TodayAdded, stockStats.TodayDeducted, stockStats.TodaySales)

	fmt.Println(strings.Repeat("=", 80))

	acceptRate := float64(stats.AcceptedOrders) / float64(stats.TotalOrders) * 100
	log.Info().
		Float64("accept_rate", acceptRate).
		Int("total_orders", stats.TotalOrders).
		Int("accepted_orders", stats.AcceptedOrders).
		Dur("duration", duration).
		Msg("Simulation completed")

	simClient.printPerformanceStats()
}

// createOrdersHTTP generates and submits random orders to the API
// Runs as a worker goroutine, sending created order IDs to ordersChan
func createOrdersHTTP(workerID, numOrders int, plantID string, simClient *simulationClient, ordersChan chan<- string) {
	for i := 0; i < numOrders; i++ {
		// Between 0.5 and 5 tons per order
		quantity := float64(rand.Intn(10)+1) * 0.5

		orderID, err := simClient.createOrder(plantID, quantity)
		if err != nil {
			log.Error().Err(err).
				Int("worker_id", workerID).
				Msg("Failed to create order")
			continue
		}

		ordersChan <- orderID
		log.Info().
			Int("worker_id", workerID).
			Str("order_id", orderID).
			Float64("quantity", quantity).
			Msg("Order created")

		// Random sleep between orders
		time.Sleep(time.Duration(rand.Intn(500)) * time.Millisecond)
	}
}

// startServer initializes and starts the gas distribution API server
// Sets up all required services, handlers and routes
func startServer() error {
	db, err := database.NewDatabase()
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	authService := auth.NewService(jwtSecret)
	authService.RegisterAPICredentials(auth.TestAPIKey, auth.TestAPISecret)

	plantService := plants.NewService(db)
	inventoryService := inventory.NewService(db)
	rateService := rates.NewService(db)
	notificationService := notifications.NewService(db)
	orderService := orders.NewService(db, inventoryService, plantService, notificationService)

	router := gin.Default()
	authHandlers := auth.NewGinHandlers(authService)
	plantHandlers := plants.NewGinHandlers(plantService)
	inventoryHandlers := inventory.NewGinHandlers(inventoryService)
	rateHandlers := rates.NewGinHandlers(rateService)
	notificationHandlers := notifications.NewGinHandlers(notificationService)
	orderHandlers := orders.NewGinHandlers(orderService)

	setupRoutes(router, authHandlers, plantHandlers, inventoryHandlers, rateHandlers, orderHandlers, notificationHandlers)

	return router.Run(":8080")
}

// setupRoutes configures all API endpoints and their handlers
// Groups routes by functionality; the simulation server skips auth
// middleware so the focus stays on the stock flow
func setupRoutes(
	router *gin.Engine,
	authHandlers *auth.GinHandlers,
	plantHandlers *plants.GinHandlers,
	inventoryHandlers *inventory.GinHandlers,
	rateHandlers *rates.GinHandlers,
	orderHandlers *orders.GinHandlers,
	notificationHandlers *notifications.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		plantGroup := v1.Group("/plants")
		{
			plantGroup.POST("", plantHandlers.RegisterPlantHandler())
			plantGroup.GET("/:plant_id", plantHandlers.GetPlantHandler())
		}

		tankGroup := v1.Group("/tanks")
		{
			tankGroup.POST("", inventoryHandlers.CreateTankHandler())
			tankGroup.GET("/owner/:owner_id", inventoryHandlers.ListTanksHandler())
			tankGroup.GET("/owner/:owner_id/stats", inventoryHandlers.StockStatsHandler())
			tankGroup.POST("/:tank_id/add-gas", inventoryHandlers.AddGasHandler())
		}

		orderGroup := v1.Group("/orders")
		{
			orderGroup.POST("", orderHandlers.CreateOrderHandler())
			orderGroup.GET("/:order_id", orderHandlers.GetOrderHandler())
			orderGroup.PUT("/:order_id", orderHandlers.UpdateOrderHandler())
		}

		rateGroup := v1.Group("/rates")
		{
			rateGroup.POST("", rateHandlers.SetRateHandler())
			rateGroup.GET("/current", rateHandlers.GetCurrentRateHandler())
		}

		notificationGroup := v1.Group("/notifications")
		{
			notificationGroup.GET("/recipient/:recipient_id", notificationHandlers.ListNotificationsHandler())
		}
	}
}
