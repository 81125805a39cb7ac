package model

// Trip is a raw GTFS trip row. ShapeID and TripHeadsign may be empty.
type Trip struct {
	TripID       string `db:"trip_id"`
	RouteID      string `db:"route_id"`
	ShapeID      string `db:"shape_id"`
	TripHeadsign string `db:"trip_headsign"`
}

// ShapePoint is one vertex of a trip geometry. Sequence order is significant:
// distance accumulation walks points sorted by Sequence, never by insertion
// order.
type ShapePoint struct {
	ShapeID  string  `db:"shape_id"`
	Lat      float64 `db:"shape_pt_lat"`
	Lon      float64 `db:"shape_pt_lon"`
	Sequence int     `db:"shape_pt_sequence"`
}

// StopTime is a raw GTFS timetable row. Arrival and Departure are GTFS
// HH:MM:SS strings, where hours of 24 and above are legal for trips crossing
// midnight.
type StopTime struct {
	TripID    string `db:"trip_id"`
	StopID    string `db:"stop_id"`
	Arrival   string `db:"arrival_time"`
	Departure string `db:"departure_time"`
	Sequence  int    `db:"stop_sequence"`
}

// RouteStop is one stop visit on a trip, joined with the stop's name and
// coordinates, in stop_sequence order.
type RouteStop struct {
	StopName string  `db:"stop_name"`
	StopLat  float64 `db:"stop_lat"`
	StopLon  float64 `db:"stop_lon"`
	Sequence int     `db:"stop_sequence"`
}

// EnrichedTrip is the per-trip record produced by trip enrichment.
// TotalIdleSeconds is always the sum of the scheduled and estimated parts.
type EnrichedTrip struct {
	TripID                    string  `json:"trip_id"`
	RouteID                   string  `json:"route_id"`
	ShapeID                   string  `json:"shape_id"`
	TotalDistanceKM           float64 `json:"total_distance_km"`
	ScheduledTotalIdleSeconds float64 `json:"scheduled_total_idle_seconds"`
	EstimatedTotalIdleSeconds float64 `json:"estimated_total_idle_seconds"`
	TotalIdleSeconds          float64 `json:"total_idle_seconds"`
	EstimatedFuelUsageLiters  float64 `json:"estimated_fuel_usage_liters"`
	TripConvenienceScore      float64 `json:"trip_convenience_score"`
}
