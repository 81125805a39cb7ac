package core

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func fullRangeTable() MinMaxTable {
	r := FeatureRange{Min: 0, Max: math.Log1p(100)}
	return MinMaxTable{
		FeatureShops:      r,
		FeatureEmployed:   r,
		FeatureBusCommute: r,
		FeatureFrequency:  r,
		FeatureDensity:    r,
	}
}

func TestCustomerConvenienceBounds(t *testing.T) {
	c := NewScoreCalculator(fullRangeTable())

	tests := []struct {
		name     string
		features ScoreFeatures
		want     float64
	}{
		{
			name: "all features at range max",
			features: ScoreFeatures{
				ShopsNearbyCount:          100,
				EmployedTotal:             100,
				BusCommuteTotal:           100,
				AvgWeeklyFrequencyPerHour: 100,
				PopulationDensity:         100,
			},
			want: 1,
		},
		{
			name:     "all features at range min",
			features: ScoreFeatures{},
			want:     0,
		},
		{
			name: "negative sentinel floors to zero",
			features: ScoreFeatures{
				ShopsNearbyCount: -1,
			},
			want: 0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := c.CustomerConvenience(tc.features)
			if math.Abs(got-tc.want) > 1e-12 {
				t.Errorf("CustomerConvenience = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCustomerConvenienceIsMeanOfNormalisedFeatures(t *testing.T) {
	c := NewScoreCalculator(fullRangeTable())
	got := c.CustomerConvenience(ScoreFeatures{ShopsNearbyCount: 100})
	// One feature at max, four at min.
	want := 1.0 / 5.0
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("CustomerConvenience = %v, want %v", got, want)
	}
}

func TestCommuteOpportunityUsesTwoFeatures(t *testing.T) {
	c := NewScoreCalculator(fullRangeTable())
	got := c.CommuteOpportunity(ScoreFeatures{EmployedTotal: 100, BusCommuteTotal: 100})
	if math.Abs(got-1) > 1e-12 {
		t.Errorf("CommuteOpportunity = %v, want 1", got)
	}
}

func TestDegenerateRangesAreSkipped(t *testing.T) {
	table := fullRangeTable()
	table[FeatureShops] = FeatureRange{Min: 2, Max: 2}
	c := NewScoreCalculator(table)

	// The degenerate shops range drops out; the remaining four features sit
	// at their range max.
	got := c.CustomerConvenience(ScoreFeatures{
		ShopsNearbyCount:          1000,
		EmployedTotal:             100,
		BusCommuteTotal:           100,
		AvgWeeklyFrequencyPerHour: 100,
		PopulationDensity:         100,
	})
	if math.Abs(got-1) > 1e-12 {
		t.Errorf("CustomerConvenience = %v, want 1", got)
	}
}

func TestAllDegenerateRangesYieldZero(t *testing.T) {
	degenerate := MinMaxTable{}
	for name := range fullRangeTable() {
		degenerate[name] = FeatureRange{Min: 1, Max: 1}
	}
	c := NewScoreCalculator(degenerate)
	if got := c.CustomerConvenience(ScoreFeatures{ShopsNearbyCount: 50}); got != 0 {
		t.Errorf("CustomerConvenience = %v, want 0", got)
	}
}

func TestLoadMinMaxTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "min_max_values.json")
	content := `{"shops_nearby_count": {"min": 0, "max": 4.2}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadMinMaxTable(path)
	if err != nil {
		t.Fatalf("LoadMinMaxTable: %v", err)
	}
	if r := table[FeatureShops]; r.Min != 0 || r.Max != 4.2 {
		t.Errorf("got range %+v, want {0 4.2}", r)
	}

	if _, err := LoadMinMaxTable(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadMinMaxTable accepted a missing file")
	}
}
