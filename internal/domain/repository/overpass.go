package repository

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"transit_enrichment/internal/retry"

	"github.com/serjvanilla/go-overpass"
)

// OverpassRepository counts mapped shops around a coordinate via the
// Overpass API.
type OverpassRepository struct {
	client  *overpass.Client
	timeout time.Duration
	radiusM int
	retry   retry.Policy
}

func NewOverpassRepository(endpoint string, timeout time.Duration, radiusM int, policy retry.Policy) *OverpassRepository {
	httpClient := &http.Client{
		Timeout: timeout,
	}
	client := overpass.NewWithSettings(endpoint, 2, httpClient)
	return &OverpassRepository{
		client:  &client,
		timeout: timeout,
		radiusM: radiusM,
		retry:   policy,
	}
}

// ShopCount returns the number of elements tagged with any "shop" value
// within the configured radius of the coordinate. Nodes, ways and relations
// all count once each.
func (r *OverpassRepository) ShopCount(ctx context.Context, lat, lon float64) (int, error) {
	query := fmt.Sprintf(`
		[out:json][timeout:90];
		(
			node["shop"](around:%d,%f,%f);
			way["shop"](around:%d,%f,%f);
			relation["shop"](around:%d,%f,%f);
		);
		out body;
	`,
		r.radiusM, lat, lon,
		r.radiusM, lat, lon,
		r.radiusM, lat, lon)

	var count int
	err := r.retry.Do(ctx, func() error {
		result, err := r.executeQuery(ctx, query)
		if err != nil {
			return err
		}
		count = len(result.Nodes) + len(result.Ways) + len(result.Relations)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count shops at (%f, %f): %w", lat, lon, err)
	}
	return count, nil
}

func (r *OverpassRepository) executeQuery(ctx context.Context, query string) (*overpass.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.client.Query(query)
	if err != nil {
		return nil, fmt.Errorf("overpass query failed: %w", err)
	}

	return &result, nil
}
