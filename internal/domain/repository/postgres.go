package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"transit_enrichment/internal/domain/model"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// GTFSRepository reads the GTFS tables, the postcode lookup table and the
// census tables, and persists enriched stop records.
type GTFSRepository struct {
	db *sqlx.DB
}

func NewGTFSRepository(connStr string) (*GTFSRepository, error) {
	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &GTFSRepository{db: db}, nil
}

func (r *GTFSRepository) Close() error { return r.db.Close() }

// Stops returns every GTFS stop.
func (r *GTFSRepository) Stops(ctx context.Context) ([]model.Stop, error) {
	const query = `SELECT stop_id, stop_name, stop_lat, stop_lon FROM stops`
	var stops []model.Stop
	if err := r.db.SelectContext(ctx, &stops, query); err != nil {
		return nil, fmt.Errorf("failed to query stops: %w", err)
	}
	return stops, nil
}

// CanonicalPostcode converts a raw postcode to the form the lookup table
// stores: uppercase, internal whitespace removed, then a single space
// re-inserted three characters from the end. Inputs shorter than three
// characters are returned unchanged.
func CanonicalPostcode(raw string) string {
	s := strings.ToUpper(strings.Join(strings.Fields(raw), ""))
	if len(s) < 3 {
		return s
	}
	return s[:len(s)-3] + " " + s[len(s)-3:]
}

// AreaCodesForPostcode resolves a postcode to its output-area and lower-layer
// super-output-area codes. A lookup miss logs a warning and returns the
// all-nil triple rather than failing the enrichment of the stop.
func (r *GTFSRepository) AreaCodesForPostcode(ctx context.Context, postcode string) (model.AreaCodes, error) {
	const query = `SELECT oa21cd, lsoa21cd, lsoa21nm FROM oa_lookup WHERE pcds = $1`
	var codes model.AreaCodes
	err := r.db.GetContext(ctx, &codes, query, CanonicalPostcode(postcode))
	if errors.Is(err, sql.ErrNoRows) {
		log.Printf("postcode %q not found in oa_lookup", postcode)
		return model.AreaCodes{}, nil
	}
	if err != nil {
		return model.AreaCodes{}, fmt.Errorf("failed to query oa_lookup: %w", err)
	}
	return codes, nil
}

// AreaCodeIndex overlays the repository with an in-memory snapshot of the
// whole oa_lookup table, so bulk enrichment passes resolve area codes without
// issuing one query per stop.
type AreaCodeIndex struct {
	*GTFSRepository
	index map[string]model.AreaCodes
}

// LoadPostcodeIndex reads all of oa_lookup into memory, keyed by
// space-stripped uppercase postcode.
func (r *GTFSRepository) LoadPostcodeIndex(ctx context.Context) (*AreaCodeIndex, error) {
	const query = `SELECT pcds, oa21cd, lsoa21cd, lsoa21nm FROM oa_lookup`
	var rows []struct {
		PCDS string `db:"pcds"`
		model.AreaCodes
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to load oa_lookup: %w", err)
	}

	index := make(map[string]model.AreaCodes, len(rows))
	for _, row := range rows {
		key := strings.ToUpper(strings.ReplaceAll(row.PCDS, " ", ""))
		index[key] = row.AreaCodes
	}
	return &AreaCodeIndex{GTFSRepository: r, index: index}, nil
}

// AreaCodesForPostcode resolves against the in-memory snapshot. Semantics
// match the repository method: a miss logs a warning and returns the all-nil
// triple.
func (i *AreaCodeIndex) AreaCodesForPostcode(ctx context.Context, postcode string) (model.AreaCodes, error) {
	key := strings.ToUpper(strings.Join(strings.Fields(postcode), ""))
	codes, ok := i.index[key]
	if !ok {
		log.Printf("postcode %q not found in oa_lookup", postcode)
		return model.AreaCodes{}, nil
	}
	return codes, nil
}

// CensusForOutputArea joins the population, occupancy and travel-to-work
// census tables on an output-area code. A missing code returns the all-nil
// profile: zero and unknown stay distinct downstream.
func (r *GTFSRepository) CensusForOutputArea(ctx context.Context, oaCode string) (model.CensusProfile, error) {
	const query = `
		SELECT
			t1.total AS oa21pop,
			t61.travel_total_16_plus_employed AS employed_total,
			t61.travel_bus AS bus_commute_total
		FROM oa_lookup AS oa
		LEFT JOIN ts001 AS t1 ON t1.geography = oa.oa21cd
		LEFT JOIN ts061 AS t61 ON t61.geography = oa.oa21cd
		WHERE oa.oa21cd = $1
		LIMIT 1`

	var profile model.CensusProfile
	err := r.db.GetContext(ctx, &profile, query, oaCode)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CensusProfile{}, nil
	}
	if err != nil {
		return model.CensusProfile{}, fmt.Errorf("failed to query census tables: %w", err)
	}
	return profile, nil
}

// Trips returns every GTFS trip.
func (r *GTFSRepository) Trips(ctx context.Context) ([]model.Trip, error) {
	const query = `
		SELECT trip_id, route_id,
		       COALESCE(shape_id, '') AS shape_id,
		       COALESCE(trip_headsign, '') AS trip_headsign
		FROM trips`
	var trips []model.Trip
	if err := r.db.SelectContext(ctx, &trips, query); err != nil {
		return nil, fmt.Errorf("failed to query trips: %w", err)
	}
	return trips, nil
}

// ShapePoints returns every shape's points grouped by shape id in sequence
// order.
func (r *GTFSRepository) ShapePoints(ctx context.Context) (map[string][]model.ShapePoint, error) {
	const query = `
		SELECT shape_id, shape_pt_lat, shape_pt_lon, shape_pt_sequence
		FROM shapes
		ORDER BY shape_id, shape_pt_sequence`
	var points []model.ShapePoint
	if err := r.db.SelectContext(ctx, &points, query); err != nil {
		return nil, fmt.Errorf("failed to query shapes: %w", err)
	}

	shapes := make(map[string][]model.ShapePoint)
	for _, p := range points {
		shapes[p.ShapeID] = append(shapes[p.ShapeID], p)
	}
	return shapes, nil
}

// StopTimesByTrip returns every timetable row grouped by trip id in stop
// sequence order.
func (r *GTFSRepository) StopTimesByTrip(ctx context.Context) (map[string][]model.StopTime, error) {
	const query = `
		SELECT trip_id, stop_id, arrival_time, departure_time, stop_sequence
		FROM stop_times
		ORDER BY trip_id, stop_sequence`
	var rows []model.StopTime
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to query stop_times: %w", err)
	}

	byTrip := make(map[string][]model.StopTime)
	for _, st := range rows {
		byTrip[st.TripID] = append(byTrip[st.TripID], st)
	}
	return byTrip, nil
}

// RouteIDs returns every distinct non-null route id.
func (r *GTFSRepository) RouteIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT route_id FROM trips WHERE route_id IS NOT NULL`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("failed to query route ids: %w", err)
	}
	return ids, nil
}

// ShapeIDsForRoute returns the distinct shape ids a route's trips reference.
func (r *GTFSRepository) ShapeIDsForRoute(ctx context.Context, routeID string) ([]string, error) {
	const query = `SELECT DISTINCT shape_id FROM trips WHERE route_id = $1 AND shape_id IS NOT NULL`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, routeID); err != nil {
		return nil, fmt.Errorf("failed to query shape ids for route %s: %w", routeID, err)
	}
	return ids, nil
}

// TripForShape returns one representative trip for a route and shape pair.
func (r *GTFSRepository) TripForShape(ctx context.Context, routeID, shapeID string) (model.Trip, bool, error) {
	const query = `
		SELECT trip_id, route_id,
		       COALESCE(shape_id, '') AS shape_id,
		       COALESCE(trip_headsign, '') AS trip_headsign
		FROM trips
		WHERE route_id = $1 AND shape_id = $2
		LIMIT 1`
	var trip model.Trip
	err := r.db.GetContext(ctx, &trip, query, routeID, shapeID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Trip{}, false, nil
	}
	if err != nil {
		return model.Trip{}, false, fmt.Errorf("failed to query trip for shape %s: %w", shapeID, err)
	}
	return trip, true, nil
}

// RouteStopsForTrip returns a trip's stop visits joined with stop names and
// coordinates, in stop_sequence order.
func (r *GTFSRepository) RouteStopsForTrip(ctx context.Context, tripID string) ([]model.RouteStop, error) {
	const query = `
		SELECT s.stop_name, s.stop_lat, s.stop_lon, st.stop_sequence
		FROM stops s
		JOIN stop_times st ON s.stop_id = st.stop_id
		WHERE st.trip_id = $1
		ORDER BY st.stop_sequence`
	var stops []model.RouteStop
	if err := r.db.SelectContext(ctx, &stops, query, tripID); err != nil {
		return nil, fmt.Errorf("failed to query stop sequence for trip %s: %w", tripID, err)
	}
	return stops, nil
}

// ShapePointsForShape returns one shape's points in sequence order.
func (r *GTFSRepository) ShapePointsForShape(ctx context.Context, shapeID string) ([]model.ShapePoint, error) {
	const query = `
		SELECT shape_id, shape_pt_lat, shape_pt_lon, shape_pt_sequence
		FROM shapes
		WHERE shape_id = $1
		ORDER BY shape_pt_sequence`
	var points []model.ShapePoint
	if err := r.db.SelectContext(ctx, &points, query, shapeID); err != nil {
		return nil, fmt.Errorf("failed to query points for shape %s: %w", shapeID, err)
	}
	return points, nil
}

// SaveEnrichedStops upserts the enrichment results into stops_enriched in a
// single transaction, keyed by stop id.
func (r *GTFSRepository) SaveEnrichedStops(ctx context.Context, stops map[string]*model.EnrichedStop) error {
	const query = `
		INSERT INTO stops_enriched (
			stop_id, stop_name, stop_lat, stop_lon,
			postcode, oa21cd, lsoa21cd, lsoa21nm,
			oa21pop, employed_total, bus_commute_total,
			shops_nearby_count, population_density,
			customer_convenience_score, commute_opportunity_score,
			avg_weekly_frequency_per_hour, cluster, cluster_category
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9,
			$10, $11, $12, $13, $14, $15, $16, $17, $18
		)
		ON CONFLICT (stop_id) DO UPDATE SET
			stop_name = EXCLUDED.stop_name,
			stop_lat = EXCLUDED.stop_lat,
			stop_lon = EXCLUDED.stop_lon,
			postcode = EXCLUDED.postcode,
			oa21cd = EXCLUDED.oa21cd,
			lsoa21cd = EXCLUDED.lsoa21cd,
			lsoa21nm = EXCLUDED.lsoa21nm,
			oa21pop = EXCLUDED.oa21pop,
			employed_total = EXCLUDED.employed_total,
			bus_commute_total = EXCLUDED.bus_commute_total,
			shops_nearby_count = EXCLUDED.shops_nearby_count,
			population_density = EXCLUDED.population_density,
			customer_convenience_score = EXCLUDED.customer_convenience_score,
			commute_opportunity_score = EXCLUDED.commute_opportunity_score,
			avg_weekly_frequency_per_hour = EXCLUDED.avg_weekly_frequency_per_hour,
			cluster = EXCLUDED.cluster,
			cluster_category = EXCLUDED.cluster_category`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(stops))
	for id := range stops {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		s := stops[id]
		_, err := tx.ExecContext(ctx, query,
			s.StopID, s.StopName, s.StopLat, s.StopLon,
			s.Postcode, s.OA21CD, s.LSOA21CD, s.LSOA21NM,
			s.OA21Pop, s.EmployedTotal, s.BusCommuteTotal,
			s.ShopsNearbyCount, s.PopulationDensity,
			s.CustomerConvenienceScore, s.CommuteOpportunityScore,
			s.AvgWeeklyFrequencyPerHour, s.Cluster, s.ClusterCategory,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert enriched stop %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit enriched stops: %w", err)
	}
	return nil
}
