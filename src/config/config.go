package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port         string
	LogLevel     string
	DatabasePath string

	PriceAPIBaseURL string
	PriceAPIKey     string
	PriceAPITimeout time.Duration // 0 means no per-request timeout

	CatalogPath string

	SourceCurrency  string
	DisplayCurrency string
	ConversionRate  float64 // display currency per unit of source currency
	SourceLabel     string

	SearchDebounce      time.Duration
	ViewCacheTTL        time.Duration
	WatchlistStorageKey string

	AllowedOrigins []string
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	cfg, err := loadFromEnv()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	Cfg = cfg

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, PriceAPI=%s, Rate=%g %s/%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.PriceAPIBaseURL, Cfg.ConversionRate, Cfg.DisplayCurrency, Cfg.SourceCurrency)
}

func loadFromEnv() (*AppConfig, error) {
	apiKey := getEnv("PRICE_API_KEY", "")
	if apiKey == "" {
		log.Println("WARNING: PRICE_API_KEY is not set. Requests to the price API will most likely be rejected.")
	}

	rate := getEnvAsFloat("CONVERSION_RATE", 15.5)
	if rate <= 0 {
		return nil, fmt.Errorf("CONVERSION_RATE must be positive, got %g", rate)
	}

	cfg := &AppConfig{
		Port:         getEnv("PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		DatabasePath: getEnv("DATABASE_PATH", "./priceboard.db"),

		PriceAPIBaseURL: getEnv("PRICE_API_BASE_URL", "https://api.api-ninjas.com/v1/commodityprice"),
		PriceAPIKey:     apiKey,
		PriceAPITimeout: getEnvAsDuration("PRICE_API_TIMEOUT", 0),

		CatalogPath: getEnv("CATALOG_PATH", ""),

		SourceCurrency:  strings.ToUpper(getEnv("SOURCE_CURRENCY", "USD")),
		DisplayCurrency: strings.ToUpper(getEnv("DISPLAY_CURRENCY", "GHS")),
		ConversionRate:  rate,
		SourceLabel:     getEnv("SOURCE_LABEL", "API Ninjas"),

		SearchDebounce:      getEnvAsDuration("SEARCH_DEBOUNCE", 300*time.Millisecond),
		ViewCacheTTL:        getEnvAsDuration("VIEW_CACHE_TTL", 5*time.Minute),
		WatchlistStorageKey: getEnv("WATCHLIST_STORAGE_KEY", "commodityWatchlist"),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	log.Printf("Invalid float value for %s ('%s'), using default: %g", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
