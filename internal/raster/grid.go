// Package raster reads single-band Esri ASCII grids, the interchange form of
// the population-density raster.
package raster

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Grid is a single-band raster in its native projected coordinate system.
// Cell values are row-major with the first row at the northern edge.
type Grid struct {
	Cols     int
	Rows     int
	XLL      float64
	YLL      float64
	CellSize float64
	NoData   float64

	values []float64
}

// Open parses an Esri ASCII grid file. The file is read fully into memory so
// a single Grid can be shared read-only across workers.
func Open(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open raster %s: %w", path, err)
	}
	defer f.Close()

	g := &Grid{NoData: math.NaN()}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	headerDone := false
	xCentered := false
	yCentered := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if !headerDone {
			key := strings.ToLower(fields[0])
			switch key {
			case "ncols", "nrows", "xllcorner", "yllcorner", "xllcenter", "yllcenter", "cellsize", "nodata_value":
				if len(fields) != 2 {
					return nil, fmt.Errorf("malformed raster header line %q", line)
				}
				v, err := strconv.ParseFloat(fields[1], 64)
				if err != nil {
					return nil, fmt.Errorf("malformed raster header value %q: %w", line, err)
				}
				switch key {
				case "ncols":
					g.Cols = int(v)
				case "nrows":
					g.Rows = int(v)
				case "xllcorner":
					g.XLL = v
					xCentered = false
				case "yllcorner":
					g.YLL = v
					yCentered = false
				case "xllcenter":
					g.XLL = v
					xCentered = true
				case "yllcenter":
					g.YLL = v
					yCentered = true
				case "cellsize":
					g.CellSize = v
				case "nodata_value":
					g.NoData = v
				}
				continue
			default:
				if g.Cols <= 0 || g.Rows <= 0 || g.CellSize <= 0 {
					return nil, fmt.Errorf("raster %s: data rows before a complete header", path)
				}
				// Center-registered origins shift to the cell's lower-left corner.
				if xCentered {
					g.XLL -= g.CellSize / 2
				}
				if yCentered {
					g.YLL -= g.CellSize / 2
				}
				headerDone = true
				g.values = make([]float64, 0, g.Cols*g.Rows)
			}
		}
		for _, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("malformed raster cell value %q: %w", field, err)
			}
			g.values = append(g.values, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read raster %s: %w", path, err)
	}
	if len(g.values) != g.Cols*g.Rows {
		return nil, fmt.Errorf("raster %s: expected %d cells, got %d", path, g.Cols*g.Rows, len(g.values))
	}
	return g, nil
}

// Sample returns the cell value at a projected coordinate. The second return
// is false when the coordinate falls outside the grid extent or the cell
// holds the no-data sentinel or NaN.
func (g *Grid) Sample(x, y float64) (float64, bool) {
	col := int(math.Floor((x - g.XLL) / g.CellSize))
	rowFromBottom := int(math.Floor((y - g.YLL) / g.CellSize))
	if col < 0 || col >= g.Cols || rowFromBottom < 0 || rowFromBottom >= g.Rows {
		return 0, false
	}
	row := g.Rows - 1 - rowFromBottom
	v := g.values[row*g.Cols+col]
	if math.IsNaN(v) || v == g.NoData {
		return 0, false
	}
	return v, true
}
