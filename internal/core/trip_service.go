package core

import (
	"context"
	"fmt"
	"log"
	"sort"

	"transit_enrichment/internal/domain/model"
	"transit_enrichment/internal/metrics"
)

// TripStore provides the relational reads the trip pipeline needs. Shape
// points and stop times arrive already sorted by their sequence numbers.
type TripStore interface {
	Trips(ctx context.Context) ([]model.Trip, error)
	ShapePoints(ctx context.Context) (map[string][]model.ShapePoint, error)
	StopTimesByTrip(ctx context.Context) (map[string][]model.StopTime, error)
}

// PointEnricher enriches an ad hoc coordinate the way a stored stop would be.
type PointEnricher interface {
	EnrichPoint(ctx context.Context, lat, lon float64) *model.EnrichedStop
}

// TripService derives per-trip route distance, idle time, fuel usage and
// average convenience from GTFS data plus the enriched-stops index.
type TripService struct {
	store   TripStore
	idle    IdleTimeEstimator
	fuel    FuelEstimator
	metrics *metrics.Collector
}

func NewTripService(store TripStore, idle IdleTimeEstimator, fuel FuelEstimator, collector *metrics.Collector) *TripService {
	return &TripService{store: store, idle: idle, fuel: fuel, metrics: collector}
}

// EnrichTrips builds one enriched record per trip. Shape distances are
// computed once per shape and reused by every trip referencing it; a trip
// whose shape is missing or has fewer than two points gets distance 0 and a
// fuel estimate equal to the pure-idling term.
func (s *TripService) EnrichTrips(ctx context.Context, stops map[string]*model.EnrichedStop) ([]model.EnrichedTrip, error) {
	trips, err := s.store.Trips(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load trips: %w", err)
	}
	shapes, err := s.store.ShapePoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load shapes: %w", err)
	}
	stopTimes, err := s.store.StopTimesByTrip(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stop times: %w", err)
	}

	distances := make(map[string]float64, len(shapes))
	for shapeID, points := range shapes {
		distances[shapeID] = ShapeDistanceKM(points)
	}
	log.Printf("enriching %d trips across %d shapes", len(trips), len(shapes))
	s.metrics.TripsBatch(len(trips))

	enriched := make([]model.EnrichedTrip, 0, len(trips))
	for _, trip := range trips {
		timetable := stopTimes[trip.TripID]
		stopIDs := make([]string, 0, len(timetable))
		for _, st := range timetable {
			stopIDs = append(stopIDs, st.StopID)
		}
		enriched = append(enriched, s.buildTrip(trip, distances[trip.ShapeID], timetable, stopIDs, stops))
	}
	return enriched, nil
}

func (s *TripService) buildTrip(
	trip model.Trip,
	distanceKM float64,
	timetable []model.StopTime,
	stopIDs []string,
	stops map[string]*model.EnrichedStop,
) model.EnrichedTrip {
	scheduled := s.idle.ScheduledIdleSeconds(timetable)
	estimated := s.idle.EstimatedIdleSeconds(stopIDs, stops)
	totalIdle := scheduled + estimated

	s.metrics.TripEnriched()
	return model.EnrichedTrip{
		TripID:                    trip.TripID,
		RouteID:                   trip.RouteID,
		ShapeID:                   trip.ShapeID,
		TotalDistanceKM:           distanceKM,
		ScheduledTotalIdleSeconds: scheduled,
		EstimatedTotalIdleSeconds: estimated,
		TotalIdleSeconds:          totalIdle,
		EstimatedFuelUsageLiters:  s.fuel.Estimate(distanceKM, totalIdle),
		TripConvenienceScore:      meanConvenience(stopIDs, stops),
	}
}

// EnrichGeneratedRoute enriches a synthetic route that exists only as a shape
// point list and a stop list, not in the database: every stop is enriched ad
// hoc, scheduled idle is zero (there is no timetable) and the estimated dwell
// model supplies the idle term.
func (s *TripService) EnrichGeneratedRoute(
	ctx context.Context,
	enricher PointEnricher,
	shapeID string,
	points []model.ShapePoint,
	stops []model.Stop,
) ([]*model.EnrichedStop, model.EnrichedTrip, error) {
	if len(stops) == 0 {
		return nil, model.EnrichedTrip{}, fmt.Errorf("generated route %s has no stops", shapeID)
	}

	sorted := make([]model.ShapePoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })

	enrichedStops := make([]*model.EnrichedStop, 0, len(stops))
	index := make(map[string]*model.EnrichedStop, len(stops))
	stopIDs := make([]string, 0, len(stops))
	for _, stop := range stops {
		rec := enricher.EnrichPoint(ctx, stop.StopLat, stop.StopLon)
		rec.StopID = stop.StopID
		rec.StopName = stop.StopName
		enrichedStops = append(enrichedStops, rec)
		index[stop.StopID] = rec
		stopIDs = append(stopIDs, stop.StopID)
	}

	trip := s.buildTrip(
		model.Trip{TripID: shapeID, ShapeID: shapeID},
		ShapeDistanceKM(sorted),
		nil,
		stopIDs,
		index,
	)
	return enrichedStops, trip, nil
}

// meanConvenience averages the convenience scores of the trip's stops. Stops
// missing from the enriched index are excluded from the mean, not counted as
// zero; no scored stops at all yields 0.
func meanConvenience(stopIDs []string, stops map[string]*model.EnrichedStop) float64 {
	var sum float64
	var n int
	for _, id := range stopIDs {
		if rec, ok := stops[id]; ok {
			sum += rec.CustomerConvenienceScore
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
