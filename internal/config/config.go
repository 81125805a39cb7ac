// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every tunable the pipeline reads from the environment.
type Config struct {
	DatabaseURL string

	PostcodesAPIURL string
	PostcodeRadiusM int
	OverpassURL     string
	ShopRadiusM     int

	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
	PostcodePacing    time.Duration
	OverpassPacing    time.Duration
	EnrichWorkers     int

	ModelDir      string
	DensityRaster string
	OutputDir     string

	FuelRateMovingLPerKM  float64
	FuelRateIdlingLPerHr  float64
	DwellBaseSeconds      float64
	DwellLogFactorSeconds float64

	MetricsAddr string
	ServerAddr  string
}

// Load reads the environment, after merging in a .env file when one exists.
// Invalid numeric values are errors rather than silent fallbacks.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		DatabaseURL:     databaseURL(),
		PostcodesAPIURL: getenvDefault("POSTCODES_API_URL", "https://api.postcodes.io/postcodes"),
		OverpassURL:     getenvDefault("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
		ModelDir:        getenvDefault("MODEL_DIR", "models"),
		DensityRaster:   getenvDefault("DENSITY_RASTER", "data/population_density.asc"),
		OutputDir:       getenvDefault("OUTPUT_DIR", "enrich"),
		MetricsAddr:     os.Getenv("METRICS_ADDR"),
		ServerAddr:      getenvDefault("SERVER_ADDR", ":8080"),
	}

	var err error
	if cfg.PostcodeRadiusM, err = getenvInt("POSTCODE_RADIUS_M", 2000); err != nil {
		return Config{}, err
	}
	if cfg.ShopRadiusM, err = getenvInt("SHOP_RADIUS_M", 500); err != nil {
		return Config{}, err
	}
	if cfg.RetryMaxAttempts, err = getenvInt("RETRY_MAX_ATTEMPTS", 3); err != nil {
		return Config{}, err
	}
	if cfg.RetryInitialDelay, err = getenvMillis("RETRY_INITIAL_DELAY_MS", 1000); err != nil {
		return Config{}, err
	}
	if cfg.PostcodePacing, err = getenvMillis("POSTCODE_PACING_MS", 100); err != nil {
		return Config{}, err
	}
	if cfg.OverpassPacing, err = getenvMillis("OVERPASS_PACING_MS", 300); err != nil {
		return Config{}, err
	}
	if cfg.EnrichWorkers, err = getenvInt("ENRICH_WORKERS", 4); err != nil {
		return Config{}, err
	}
	if cfg.FuelRateMovingLPerKM, err = getenvFloat("FUEL_RATE_MOVING_L_PER_KM", 0.47); err != nil {
		return Config{}, err
	}
	if cfg.FuelRateIdlingLPerHr, err = getenvFloat("FUEL_RATE_IDLING_L_PER_HOUR", 2.0); err != nil {
		return Config{}, err
	}
	if cfg.DwellBaseSeconds, err = getenvFloat("DWELL_BASE_SECONDS", 5); err != nil {
		return Config{}, err
	}
	if cfg.DwellLogFactorSeconds, err = getenvFloat("DWELL_LOG_FACTOR", 5); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// databaseURL prefers DATABASE_URL and falls back to assembling a connection
// string from the individual PG* variables.
func databaseURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}
	host := getenvDefault("PGHOST", "localhost")
	port := getenvDefault("PGPORT", "5432")
	user := getenvDefault("PGUSER", "postgres")
	password := os.Getenv("PGPASSWORD")
	dbname := getenvDefault("PGDATABASE", "gtfs")
	sslmode := getenvDefault("PGSSLMODE", "disable")
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvMillis(key string, fallback int) (time.Duration, error) {
	ms, err := getenvInt(key, fallback)
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}
