package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"transit_enrichment/internal/domain/model"
)

// IdleTimeEstimator computes per-trip idle time: the scheduled part from
// timetable departure/arrival deltas, the estimated part from a dwell-time
// model driven by nearby-shop density at each stop.
type IdleTimeEstimator struct {
	BaseDwellSeconds float64
	LogFactor        float64
}

// ScheduledIdleSeconds sums (departure - arrival) over a trip's timetable
// rows. Negative deltas are timetable artifacts and pass through unclamped.
// Rows with unparsable times contribute nothing.
func (e IdleTimeEstimator) ScheduledIdleSeconds(stopTimes []model.StopTime) float64 {
	var total float64
	for _, st := range stopTimes {
		arrival, errA := ParseGTFSTimeSeconds(st.Arrival)
		departure, errD := ParseGTFSTimeSeconds(st.Departure)
		if errA != nil || errD != nil {
			continue
		}
		total += float64(departure - arrival)
	}
	return total
}

// EstimatedIdleSeconds models dwell time at each stop on a trip as
// base + factor * ln(1 + shops nearby). A stop absent from the enriched
// index, or one whose shop lookup never resolved, contributes zero shops.
func (e IdleTimeEstimator) EstimatedIdleSeconds(stopIDs []string, stops map[string]*model.EnrichedStop) float64 {
	var total float64
	for _, id := range stopIDs {
		var shops float64
		if stop, ok := stops[id]; ok && stop.ShopsNearbyCount > 0 {
			shops = float64(stop.ShopsNearbyCount)
		}
		total += e.BaseDwellSeconds + e.LogFactor*math.Log1p(shops)
	}
	return total
}

// ParseGTFSTimeSeconds parses an HH:MM:SS timetable value into seconds since
// midnight. GTFS allows hours of 24 and above for trips crossing midnight.
func ParseGTFSTimeSeconds(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid GTFS time %q", s)
	}
	h, errH := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	sec, errS := strconv.Atoi(parts[2])
	if errH != nil || errM != nil || errS != nil {
		return 0, fmt.Errorf("invalid GTFS time %q", s)
	}
	if h < 0 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("invalid GTFS time %q", s)
	}
	return h*3600 + m*60 + sec, nil
}
