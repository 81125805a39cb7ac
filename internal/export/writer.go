// Package export writes the pipeline's flat-file outputs: the enriched-stop
// JSON map, the enriched stop/trip CSV tables and the per-shape geometry
// files consumed by the mapping layer.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"transit_enrichment/internal/domain/model"
)

// stopCSVHeader fixes the enriched-stop column order for deterministic
// serialization.
var stopCSVHeader = []string{
	"stop_id", "stop_name", "stop_lat", "stop_lon",
	"postcode", "oa21cd", "lsoa21cd", "lsoa21nm",
	"oa21pop", "employed_total", "bus_commute_total",
	"shops_nearby_count", "population_density",
	"customer_convenience_score", "commute_opportunity_score",
	"avg_weekly_frequency_per_hour", "cluster", "cluster_category",
}

// WriteStopsJSON serializes the enriched stops as a JSON object keyed by
// stop id.
func WriteStopsJSON(path string, stops map[string]*model.EnrichedStop) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(stops, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal enriched stops: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadStopsJSON loads a previously written enriched-stop map.
func ReadStopsJSON(path string) (map[string]*model.EnrichedStop, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read enriched stops: %w", err)
	}
	var stops map[string]*model.EnrichedStop
	if err := json.Unmarshal(data, &stops); err != nil {
		return nil, fmt.Errorf("failed to parse enriched stops %s: %w", path, err)
	}
	return stops, nil
}

// WriteStopsCSV writes the enriched stops as a flat table, sorted by stop id.
// Nil fields serialize as empty cells.
func WriteStopsCSV(path string, stops map[string]*model.EnrichedStop) error {
	ids := make([]string, 0, len(stops))
	for id := range stops {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([][]string, 0, len(stops))
	for _, id := range ids {
		s := stops[id]
		rows = append(rows, []string{
			s.StopID, s.StopName, formatFloat(s.StopLat), formatFloat(s.StopLon),
			stringOrEmpty(s.Postcode), stringOrEmpty(s.OA21CD),
			stringOrEmpty(s.LSOA21CD), stringOrEmpty(s.LSOA21NM),
			intOrEmpty(s.OA21Pop), intOrEmpty(s.EmployedTotal), intOrEmpty(s.BusCommuteTotal),
			strconv.Itoa(s.ShopsNearbyCount), formatFloat(s.PopulationDensity),
			formatFloat(s.CustomerConvenienceScore), formatFloat(s.CommuteOpportunityScore),
			formatFloat(s.AvgWeeklyFrequencyPerHour),
			intOrEmpty(s.Cluster), stringOrEmpty(s.ClusterCategory),
		})
	}
	return writeCSV(path, stopCSVHeader, rows)
}

// WriteTripsCSV writes the enriched trips as a flat table.
func WriteTripsCSV(path string, trips []model.EnrichedTrip) error {
	header := []string{
		"trip_id", "route_id", "shape_id",
		"total_distance_km",
		"scheduled_total_idle_seconds", "estimated_total_idle_seconds", "total_idle_seconds",
		"estimated_fuel_usage_liters", "trip_convenience_score",
	}
	rows := make([][]string, 0, len(trips))
	for _, t := range trips {
		rows = append(rows, []string{
			t.TripID, t.RouteID, t.ShapeID,
			formatFloat(t.TotalDistanceKM),
			formatFloat(t.ScheduledTotalIdleSeconds),
			formatFloat(t.EstimatedTotalIdleSeconds),
			formatFloat(t.TotalIdleSeconds),
			formatFloat(t.EstimatedFuelUsageLiters),
			formatFloat(t.TripConvenienceScore),
		})
	}
	return writeCSV(path, header, rows)
}

// ShapeMetadata describes one exported shape for the mapping layer.
type ShapeMetadata struct {
	TripHeadsign   string `json:"trip_headsign"`
	RouteShortName string `json:"route_short_name"`
}

type geometryStop struct {
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Sequence int     `json:"sequence"`
}

// SafeShapeID makes a shape id usable in file names.
func SafeShapeID(shapeID string) string {
	return strings.NewReplacer(":", "_", ".", "_").Replace(shapeID)
}

// WriteShapeGeometry writes stops_<shape>.json and shape_<shape>.json for
// one shape. The shape file holds bare [lat, lon] pairs in sequence order.
func WriteShapeGeometry(dir, safeShapeID string, stops []model.RouteStop, points []model.ShapePoint) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	stopsJSON := make([]geometryStop, 0, len(stops))
	for _, s := range stops {
		stopsJSON = append(stopsJSON, geometryStop{
			Name:     s.StopName,
			Lat:      s.StopLat,
			Lon:      s.StopLon,
			Sequence: s.Sequence,
		})
	}
	if err := writeJSON(filepath.Join(dir, "stops_"+safeShapeID+".json"), stopsJSON); err != nil {
		return err
	}

	path := make([][2]float64, 0, len(points))
	for _, p := range points {
		path = append(path, [2]float64{p.Lat, p.Lon})
	}
	return writeJSON(filepath.Join(dir, "shape_"+safeShapeID+".json"), path)
}

// WriteShapeMetadata writes the shape_metadata.json index for all exported
// shapes.
func WriteShapeMetadata(dir string, meta map[string]ShapeMetadata) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return writeJSON(filepath.Join(dir, "shape_metadata.json"), meta)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func intOrEmpty(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
