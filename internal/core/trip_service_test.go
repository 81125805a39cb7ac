package core

import (
	"context"
	"math"
	"testing"

	"transit_enrichment/internal/domain/model"
)

type fakeTripStore struct {
	trips     []model.Trip
	shapes    map[string][]model.ShapePoint
	stopTimes map[string][]model.StopTime
}

func (f *fakeTripStore) Trips(ctx context.Context) ([]model.Trip, error) {
	return f.trips, nil
}

func (f *fakeTripStore) ShapePoints(ctx context.Context) (map[string][]model.ShapePoint, error) {
	return f.shapes, nil
}

func (f *fakeTripStore) StopTimesByTrip(ctx context.Context) (map[string][]model.StopTime, error) {
	return f.stopTimes, nil
}

func TestEnrichTrips(t *testing.T) {
	store := &fakeTripStore{
		trips: []model.Trip{
			{TripID: "t1", RouteID: "r1", ShapeID: "sh1"},
			{TripID: "t2", RouteID: "r1", ShapeID: "missing"},
		},
		shapes: map[string][]model.ShapePoint{
			"sh1": {{Lat: 0, Lon: 0, Sequence: 1}, {Lat: 1, Lon: 0, Sequence: 2}},
		},
		stopTimes: map[string][]model.StopTime{
			"t1": {
				{StopID: "a", Arrival: "08:00:00", Departure: "08:01:00", Sequence: 1},
				{StopID: "b", Arrival: "08:15:00", Departure: "08:15:00", Sequence: 2},
			},
		},
	}
	idle := IdleTimeEstimator{BaseDwellSeconds: 5, LogFactor: 5}
	fuel := FuelEstimator{MovingRateLPerKM: 0.5, IdlingRateLPerHour: 2}
	svc := NewTripService(store, idle, fuel, nil)

	stops := map[string]*model.EnrichedStop{
		"a": {StopID: "a", ShopsNearbyCount: 0, CustomerConvenienceScore: 0.4},
		"b": {StopID: "b", ShopsNearbyCount: 0, CustomerConvenienceScore: 0.8},
	}

	trips, err := svc.EnrichTrips(context.Background(), stops)
	if err != nil {
		t.Fatalf("EnrichTrips: %v", err)
	}
	if len(trips) != 2 {
		t.Fatalf("got %d trips, want 2", len(trips))
	}

	byID := map[string]model.EnrichedTrip{}
	for _, tr := range trips {
		byID[tr.TripID] = tr
	}

	t1 := byID["t1"]
	if t1.TotalDistanceKM < 110 || t1.TotalDistanceKM > 111 {
		t.Errorf("t1 distance = %v, want about 110.57", t1.TotalDistanceKM)
	}
	if t1.ScheduledTotalIdleSeconds != 60 {
		t.Errorf("t1 scheduled idle = %v, want 60", t1.ScheduledTotalIdleSeconds)
	}
	if t1.EstimatedTotalIdleSeconds != 10 {
		t.Errorf("t1 estimated idle = %v, want 10", t1.EstimatedTotalIdleSeconds)
	}
	if t1.TotalIdleSeconds != t1.ScheduledTotalIdleSeconds+t1.EstimatedTotalIdleSeconds {
		t.Error("t1 total idle is not the sum of its parts")
	}
	wantFuel := t1.TotalDistanceKM*0.5 + t1.TotalIdleSeconds/3600*2
	if math.Abs(t1.EstimatedFuelUsageLiters-wantFuel) > 1e-9 {
		t.Errorf("t1 fuel = %v, want %v", t1.EstimatedFuelUsageLiters, wantFuel)
	}
	if math.Abs(t1.TripConvenienceScore-0.6) > 1e-12 {
		t.Errorf("t1 convenience = %v, want 0.6", t1.TripConvenienceScore)
	}

	// A trip with no shape and no timetable still gets a record with zeros.
	t2 := byID["t2"]
	if t2.TotalDistanceKM != 0 || t2.TotalIdleSeconds != 0 || t2.EstimatedFuelUsageLiters != 0 {
		t.Errorf("t2 should be all zeros, got %+v", t2)
	}
}

func TestMeanConvenienceExcludesMissingStops(t *testing.T) {
	stops := map[string]*model.EnrichedStop{
		"a": {CustomerConvenienceScore: 1},
	}
	if got := meanConvenience([]string{"a", "unknown"}, stops); got != 1 {
		t.Errorf("meanConvenience = %v, want 1", got)
	}
	if got := meanConvenience([]string{"unknown"}, stops); got != 0 {
		t.Errorf("meanConvenience with no scored stops = %v, want 0", got)
	}
}

type fakePointEnricher struct{ shops int }

func (f fakePointEnricher) EnrichPoint(ctx context.Context, lat, lon float64) *model.EnrichedStop {
	return &model.EnrichedStop{StopLat: lat, StopLon: lon, ShopsNearbyCount: f.shops, CustomerConvenienceScore: 0.5}
}

func TestEnrichGeneratedRoute(t *testing.T) {
	idle := IdleTimeEstimator{BaseDwellSeconds: 5, LogFactor: 5}
	fuel := FuelEstimator{MovingRateLPerKM: 0.5, IdlingRateLPerHour: 2}
	svc := NewTripService(&fakeTripStore{}, idle, fuel, nil)

	// Points arrive out of order; distance must follow sequence order.
	points := []model.ShapePoint{
		{Lat: 1, Lon: 0, Sequence: 2},
		{Lat: 0, Lon: 0, Sequence: 1},
	}
	stops := []model.Stop{
		{StopID: "g1", StopName: "First", StopLat: 0, StopLon: 0},
		{StopID: "g2", StopName: "Second", StopLat: 1, StopLon: 0},
	}

	enriched, trip, err := svc.EnrichGeneratedRoute(context.Background(), fakePointEnricher{shops: 0}, "gen:1", points, stops)
	if err != nil {
		t.Fatalf("EnrichGeneratedRoute: %v", err)
	}
	if len(enriched) != 2 {
		t.Fatalf("got %d enriched stops, want 2", len(enriched))
	}
	if enriched[0].StopID != "g1" || enriched[0].StopName != "First" {
		t.Errorf("stop identity not carried through: %+v", enriched[0])
	}
	if trip.TotalDistanceKM < 110 || trip.TotalDistanceKM > 111 {
		t.Errorf("distance = %v, want about 110.57", trip.TotalDistanceKM)
	}
	// No timetable, so idle is purely the estimated dwell model.
	if trip.ScheduledTotalIdleSeconds != 0 {
		t.Errorf("scheduled idle = %v, want 0", trip.ScheduledTotalIdleSeconds)
	}
	if trip.EstimatedTotalIdleSeconds != 10 {
		t.Errorf("estimated idle = %v, want 10", trip.EstimatedTotalIdleSeconds)
	}
	if math.Abs(trip.TripConvenienceScore-0.5) > 1e-12 {
		t.Errorf("convenience = %v, want 0.5", trip.TripConvenienceScore)
	}
}

func TestEnrichGeneratedRouteRequiresStops(t *testing.T) {
	svc := NewTripService(&fakeTripStore{}, IdleTimeEstimator{}, FuelEstimator{}, nil)
	if _, _, err := svc.EnrichGeneratedRoute(context.Background(), fakePointEnricher{}, "gen:2", nil, nil); err == nil {
		t.Error("EnrichGeneratedRoute accepted a route with no stops")
	}
}
