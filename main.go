package main

import (
	"context"
	"encoding/json"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/username/priceboard/backend/src/config"
	"github.com/username/priceboard/backend/src/database"
	"github.com/username/priceboard/backend/src/handlers"
	"github.com/username/priceboard/backend/src/logger"
	"github.com/username/priceboard/backend/src/processors"
	"github.com/username/priceboard/backend/src/services"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Price board backend server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	defer database.DB.Close()
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Loading commodity catalog...", "path", config.Cfg.CatalogPath)
	catalog, err := config.LoadCatalog(config.Cfg.CatalogPath)
	if err != nil {
		logger.L.Error("Failed to load commodity catalog", "error", err)
		os.Exit(1)
	}

	exchangeRate, err := processors.NewExchangeRate(config.Cfg.SourceCurrency, config.Cfg.DisplayCurrency, config.Cfg.ConversionRate)
	if err != nil {
		logger.L.Error("Invalid exchange rate configuration", "error", err)
		os.Exit(1)
	}

	logger.L.Info("Initializing services and handlers...")
	hub := services.NewNotificationHub()
	watchlistService := services.NewWatchlistService(database.NewKVStore(database.DB), config.Cfg.WatchlistStorageKey, hub, nil)
	watchlistService.Load(context.Background())

	priceService := services.NewPriceService(config.Cfg.PriceAPIBaseURL, config.Cfg.PriceAPIKey, config.Cfg.PriceAPITimeout)
	boardService := services.NewBoardService(services.BoardOptions{
		Prices:      priceService,
		Normalizer:  processors.NewQuoteProcessor(exchangeRate, config.Cfg.SourceLabel, catalog.ExchangeLocations, nil),
		Categories:  processors.CategoryLookup(catalog.Categories),
		Rate:        exchangeRate,
		Watchlist:   watchlistService,
		Identifiers: catalog.Identifiers,
		ViewTTL:     config.Cfg.ViewCacheTTL,
	})

	boardHandler := handlers.NewBoardHandler(boardService)
	wsHandler := handlers.NewWebSocketHandler(boardService, hub, config.Cfg.SearchDebounce, config.Cfg.AllowedOrigins)

	logger.L.Info("Running initial load cycle...", "identifiers", len(catalog.Identifiers))
	if err := boardService.LoadData(context.Background()); err != nil {
		logger.L.Warn("Initial load produced no data, clients can retry", "error", err)
	}

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	rootMux.HandleFunc("GET /api/prices", boardHandler.HandleGetPrices)
	rootMux.HandleFunc("GET /api/filters", boardHandler.HandleGetFilters)
	rootMux.HandleFunc("GET /api/stats", boardHandler.HandleGetStats)
	rootMux.HandleFunc("POST /api/reload", boardHandler.HandleReload)
	rootMux.HandleFunc("GET /api/items/{name}", boardHandler.HandleGetItem)
	rootMux.HandleFunc("GET /api/watchlist", boardHandler.HandleGetWatchlist)
	rootMux.HandleFunc("POST /api/watchlist/toggle", boardHandler.HandleToggleWatchlist)
	rootMux.HandleFunc("GET /ws", wsHandler.HandleWebSocket)

	rootMux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Price board backend is running"})
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := handlers.CORSMiddleware(config.Cfg.AllowedOrigins)(handlers.RateLimitMiddleware(limiter)(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.L.Info("Server starting", "address", serverAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.Error("Failed to start server", "error", err)
			stdlog.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.L.Info("Shutdown signal received, draining connections...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L.Error("Graceful shutdown failed", "error", err)
		return
	}
	logger.L.Info("Server stopped gracefully.")
}
