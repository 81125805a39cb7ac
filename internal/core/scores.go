package core

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Feature names as recorded in the frozen min/max table.
const (
	FeatureShops      = "shops_nearby_count"
	FeatureEmployed   = "employed_total"
	FeatureBusCommute = "bus_commute_total"
	FeatureFrequency  = "avg_weekly_frequency_per_hour"
	FeatureDensity    = "population_density"
)

// FeatureRange is the min/max of a feature's ln(1+x) transform.
type FeatureRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// MinMaxTable maps a feature name to its log-transformed range. The table is
// computed once at training time over the full enriched dataset and loaded
// here as a frozen artifact; it is never recomputed per record.
type MinMaxTable map[string]FeatureRange

// LoadMinMaxTable reads the frozen min/max table. A missing or unparsable
// file is a run-level error.
func LoadMinMaxTable(path string) (MinMaxTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read min/max table: %w", err)
	}
	var table MinMaxTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse min/max table %s: %w", path, err)
	}
	return table, nil
}

// ScoreFeatures is the feature set the composite scores are derived from.
// Missing upstream values are carried as 0; negative sentinel values are
// floored to 0 before the log transform.
type ScoreFeatures struct {
	ShopsNearbyCount          float64
	EmployedTotal             float64
	BusCommuteTotal           float64
	AvgWeeklyFrequencyPerHour float64
	PopulationDensity         float64
}

// ScoreCalculator derives the two composite log-normalised scores from a
// frozen min/max table.
type ScoreCalculator struct {
	table MinMaxTable
}

func NewScoreCalculator(table MinMaxTable) *ScoreCalculator {
	return &ScoreCalculator{table: table}
}

// CustomerConvenience is the mean of the five normalised features. Features
// with a degenerate recorded range (max == min) are skipped rather than
// divided by zero; if every feature is degenerate the score is 0.
func (c *ScoreCalculator) CustomerConvenience(f ScoreFeatures) float64 {
	return c.mean([]featureValue{
		{FeatureShops, f.ShopsNearbyCount},
		{FeatureEmployed, f.EmployedTotal},
		{FeatureBusCommute, f.BusCommuteTotal},
		{FeatureFrequency, f.AvgWeeklyFrequencyPerHour},
		{FeatureDensity, f.PopulationDensity},
	})
}

// CommuteOpportunity is the mean of the normalised employment and bus-commute
// features, with the same degenerate-range skip rule.
func (c *ScoreCalculator) CommuteOpportunity(f ScoreFeatures) float64 {
	return c.mean([]featureValue{
		{FeatureEmployed, f.EmployedTotal},
		{FeatureBusCommute, f.BusCommuteTotal},
	})
}

type featureValue struct {
	name  string
	value float64
}

func (c *ScoreCalculator) mean(features []featureValue) float64 {
	var sum float64
	var n int
	for _, f := range features {
		r, ok := c.table[f.name]
		if !ok || r.Max <= r.Min {
			continue
		}
		v := f.value
		if v < 0 {
			v = 0
		}
		sum += (math.Log1p(v) - r.Min) / (r.Max - r.Min)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
