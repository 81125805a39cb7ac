package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"transit_enrichment/internal/domain/model"
	"transit_enrichment/internal/export"
)

// GeometryStore provides the route/shape/stop-sequence reads geometry export
// needs.
type GeometryStore interface {
	RouteIDs(ctx context.Context) ([]string, error)
	ShapeIDsForRoute(ctx context.Context, routeID string) ([]string, error)
	TripForShape(ctx context.Context, routeID, shapeID string) (model.Trip, bool, error)
	RouteStopsForTrip(ctx context.Context, tripID string) ([]model.RouteStop, error)
	ShapePointsForShape(ctx context.Context, shapeID string) ([]model.ShapePoint, error)
}

// GeometryService exports per-shape stop and path JSON files plus a metadata
// index, for consumption by the mapping layer.
type GeometryService struct {
	store GeometryStore
}

func NewGeometryService(store GeometryStore) *GeometryService {
	return &GeometryService{store: store}
}

// Export writes geometry files for every shape of every route, or of a
// single route when routeID is non-empty. Shapes without a representative
// trip are skipped with a log line rather than failing the export.
func (s *GeometryService) Export(ctx context.Context, dir, routeID string) error {
	var routeIDs []string
	if routeID != "" {
		routeIDs = []string{routeID}
	} else {
		ids, err := s.store.RouteIDs(ctx)
		if err != nil {
			return fmt.Errorf("failed to load route ids: %w", err)
		}
		routeIDs = ids
	}

	meta := make(map[string]export.ShapeMetadata)
	for _, route := range routeIDs {
		shapeIDs, err := s.store.ShapeIDsForRoute(ctx, route)
		if err != nil {
			return fmt.Errorf("failed to load shapes for route %s: %w", route, err)
		}
		for _, shapeID := range shapeIDs {
			trip, ok, err := s.store.TripForShape(ctx, route, shapeID)
			if err != nil {
				return fmt.Errorf("failed to load trip for shape %s: %w", shapeID, err)
			}
			if !ok {
				log.Printf("no trip found for shape %s on route %s, skipping", shapeID, route)
				continue
			}

			stops, err := s.store.RouteStopsForTrip(ctx, trip.TripID)
			if err != nil {
				return fmt.Errorf("failed to load stop sequence for trip %s: %w", trip.TripID, err)
			}
			points, err := s.store.ShapePointsForShape(ctx, shapeID)
			if err != nil {
				return fmt.Errorf("failed to load points for shape %s: %w", shapeID, err)
			}

			safe := export.SafeShapeID(shapeID)
			if err := export.WriteShapeGeometry(dir, safe, stops, points); err != nil {
				return err
			}
			meta[safe] = export.ShapeMetadata{
				TripHeadsign:   trip.TripHeadsign,
				RouteShortName: routeShortName(trip.RouteID),
			}
		}
	}
	return export.WriteShapeMetadata(dir, meta)
}

// routeShortName derives a display name from a compound route id like
// "EY:EYAO055:55".
func routeShortName(routeID string) string {
	parts := strings.Split(routeID, ":")
	return parts[len(parts)-1]
}
