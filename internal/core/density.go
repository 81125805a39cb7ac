package core

import (
	"transit_enrichment/internal/raster"

	"github.com/wroge/wgs84"
)

// DensitySampler samples the population-density raster at WGS84 coordinates.
// The raster is projected in British National Grid (EPSG:27700), so every
// coordinate goes through the same reprojection before indexing — density
// values are only comparable across the dataset if the method never changes.
type DensitySampler struct {
	grid      *raster.Grid
	transform func(lon, lat, h float64) (east, north, h2 float64)
}

func NewDensitySampler(grid *raster.Grid) *DensitySampler {
	epsg := wgs84.EPSG()
	return &DensitySampler{
		grid:      grid,
		transform: wgs84.Transform(epsg.Code(4326), epsg.Code(27700)),
	}
}

// Density returns the sampled density, or 0.0 when the reprojected
// coordinate falls outside the raster extent or hits a no-data cell.
func (s *DensitySampler) Density(lat, lon float64) float64 {
	east, north, _ := s.transform(lon, lat, 0)
	v, ok := s.grid.Sample(east, north)
	if !ok {
		return 0
	}
	return v
}
