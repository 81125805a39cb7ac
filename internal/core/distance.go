package core

import (
	"transit_enrichment/internal/domain/model"

	"github.com/tidwall/geodesic"
)

// ShapeDistanceKM sums consecutive-pair geodesic distances along an ordered
// sequence of shape points, in kilometers. Fewer than two points is 0.
func ShapeDistanceKM(points []model.ShapePoint) float64 {
	var totalMeters float64
	for i := 0; i+1 < len(points); i++ {
		var meters float64
		geodesic.WGS84.Inverse(
			points[i].Lat, points[i].Lon,
			points[i+1].Lat, points[i+1].Lon,
			&meters, nil, nil,
		)
		totalMeters += meters
	}
	return totalMeters / 1000
}
