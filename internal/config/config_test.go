package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PostcodesAPIURL != "https://api.postcodes.io/postcodes" {
		t.Errorf("PostcodesAPIURL = %q", cfg.PostcodesAPIURL)
	}
	if cfg.PostcodeRadiusM != 2000 || cfg.ShopRadiusM != 500 {
		t.Errorf("radii = %d, %d, want 2000, 500", cfg.PostcodeRadiusM, cfg.ShopRadiusM)
	}
	if cfg.RetryMaxAttempts != 3 || cfg.RetryInitialDelay != time.Second {
		t.Errorf("retry = %d attempts, %v delay, want 3, 1s", cfg.RetryMaxAttempts, cfg.RetryInitialDelay)
	}
	if cfg.FuelRateMovingLPerKM != 0.47 || cfg.FuelRateIdlingLPerHr != 2.0 {
		t.Errorf("fuel rates = %v, %v, want 0.47, 2.0", cfg.FuelRateMovingLPerKM, cfg.FuelRateIdlingLPerHr)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SHOP_RADIUS_M", "750")
	t.Setenv("ENRICH_WORKERS", "8")
	t.Setenv("DATABASE_URL", "postgres://example/gtfs")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ShopRadiusM != 750 {
		t.Errorf("ShopRadiusM = %d, want 750", cfg.ShopRadiusM)
	}
	if cfg.EnrichWorkers != 8 {
		t.Errorf("EnrichWorkers = %d, want 8", cfg.EnrichWorkers)
	}
	if cfg.DatabaseURL != "postgres://example/gtfs" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
}

func TestLoadRejectsInvalidNumbers(t *testing.T) {
	t.Setenv("SHOP_RADIUS_M", "lots")
	if _, err := Load(); err == nil {
		t.Error("Load accepted a non-numeric SHOP_RADIUS_M")
	}
}
