package core

import (
	"math"
	"testing"

	"transit_enrichment/internal/domain/model"
)

func TestParseGTFSTimeSeconds(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00:00", 0, false},
		{"08:30:15", 8*3600 + 30*60 + 15, false},
		// GTFS hours run past midnight for late-night trips.
		{"25:00:00", 90000, false},
		{" 09:00:00 ", 32400, false},
		{"09:00", 0, true},
		{"ab:cd:ef", 0, true},
		{"12:60:00", 0, true},
		{"12:00:60", 0, true},
		{"-1:00:00", 0, true},
	}
	for _, tc := range tests {
		got, err := ParseGTFSTimeSeconds(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseGTFSTimeSeconds(%q) accepted invalid input", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseGTFSTimeSeconds(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseGTFSTimeSeconds(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestScheduledIdleSeconds(t *testing.T) {
	e := IdleTimeEstimator{}
	tests := []struct {
		name string
		rows []model.StopTime
		want float64
	}{
		{"no rows", nil, 0},
		{
			"simple dwell",
			[]model.StopTime{
				{Arrival: "08:00:00", Departure: "08:01:00"},
				{Arrival: "08:10:00", Departure: "08:10:30"},
			},
			90,
		},
		{
			// Departure before arrival is a timetable artifact and passes
			// through unclamped.
			"negative dwell",
			[]model.StopTime{{Arrival: "08:01:00", Departure: "08:00:00"}},
			-60,
		},
		{
			"unparsable row contributes nothing",
			[]model.StopTime{
				{Arrival: "bad", Departure: "08:00:00"},
				{Arrival: "08:00:00", Departure: "08:00:10"},
			},
			10,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := e.ScheduledIdleSeconds(tc.rows); got != tc.want {
				t.Errorf("ScheduledIdleSeconds = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEstimatedIdleSeconds(t *testing.T) {
	e := IdleTimeEstimator{BaseDwellSeconds: 5, LogFactor: 5}
	stops := map[string]*model.EnrichedStop{
		"busy":       {ShopsNearbyCount: 20},
		"empty":      {ShopsNearbyCount: 0},
		"unresolved": {ShopsNearbyCount: -1},
	}

	tests := []struct {
		name    string
		stopIDs []string
		want    float64
	}{
		{"no stops", nil, 0},
		{"zero shops is base dwell only", []string{"empty"}, 5},
		{"unresolved count treated as zero shops", []string{"unresolved"}, 5},
		{"unknown stop treated as zero shops", []string{"missing"}, 5},
		{"shops add a log term", []string{"busy"}, 5 + 5*math.Log1p(20)},
		{
			"totals accumulate per visit",
			[]string{"busy", "empty", "busy"},
			2*(5+5*math.Log1p(20)) + 5,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := e.EstimatedIdleSeconds(tc.stopIDs, stops)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("EstimatedIdleSeconds = %v, want %v", got, tc.want)
			}
		})
	}
}
