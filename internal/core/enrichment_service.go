package core

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"transit_enrichment/internal/domain/model"
	"transit_enrichment/internal/metrics"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Geocoder resolves coordinates to a postcode. A nil postcode with a nil
// error is a definitive "no postcode within radius"; an error means the
// lookup never resolved.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (*string, error)
}

// ShopCounter counts shops near a coordinate.
type ShopCounter interface {
	ShopCount(ctx context.Context, lat, lon float64) (int, error)
}

// DensitySource samples population density at a WGS84 coordinate.
type DensitySource interface {
	Density(lat, lon float64) float64
}

// StopStore provides the relational reads the stop pipeline needs.
// AreaCodesForPostcode receives the geocoder's postcode verbatim;
// implementations normalize it themselves before lookup.
type StopStore interface {
	Stops(ctx context.Context) ([]model.Stop, error)
	AreaCodesForPostcode(ctx context.Context, postcode string) (model.AreaCodes, error)
	CensusForOutputArea(ctx context.Context, oaCode string) (model.CensusProfile, error)
}

// EnrichmentOptions carries the scheduling knobs for bulk enrichment.
type EnrichmentOptions struct {
	Workers        int
	PostcodePacing time.Duration
	OverpassPacing time.Duration
}

// EnrichmentService orchestrates the full per-stop pipeline: reverse geocode,
// area-code and census lookups, shop counting, density sampling, composite
// scoring, frequency prediction and cluster assignment. Any stage may resolve
// to null/sentinel without aborting the record or the batch.
type EnrichmentService struct {
	store    StopStore
	geocoder Geocoder
	shops    ShopCounter
	density  DensitySource
	bundle   *ModelBundle
	metrics  *metrics.Collector

	workers      int
	postcodePace *rate.Limiter
	overpassPace *rate.Limiter
}

func NewEnrichmentService(
	store StopStore,
	geocoder Geocoder,
	shops ShopCounter,
	density DensitySource,
	bundle *ModelBundle,
	collector *metrics.Collector,
	opts EnrichmentOptions,
) *EnrichmentService {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &EnrichmentService{
		store:        store,
		geocoder:     geocoder,
		shops:        shops,
		density:      density,
		bundle:       bundle,
		metrics:      collector,
		workers:      workers,
		postcodePace: pacingLimiter(opts.PostcodePacing),
		overpassPace: pacingLimiter(opts.OverpassPacing),
	}
}

func pacingLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// EnrichStops enriches the whole stops table through a bounded worker pool
// and returns the records keyed by stop id. Per-record lookup failures are
// logged and encoded in the record's own fields; only loading the stop list
// itself can fail the batch.
func (s *EnrichmentService) EnrichStops(ctx context.Context) (map[string]*model.EnrichedStop, error) {
	stops, err := s.store.Stops(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stops: %w", err)
	}
	log.Printf("enriching %d stops with %d workers", len(stops), s.workers)
	s.metrics.StopsBatch(len(stops))

	records := make([]*model.EnrichedStop, len(stops))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, stop := range stops {
		i, stop := i, stop
		g.Go(func() error {
			records[i] = s.enrich(gctx, stop)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	enriched := make(map[string]*model.EnrichedStop, len(records))
	for _, rec := range records {
		if _, dup := enriched[rec.StopID]; dup {
			log.Printf("duplicate stop id %q, keeping the last record", rec.StopID)
		}
		enriched[rec.StopID] = rec
	}
	return enriched, nil
}

// EnrichPoint runs the same pipeline for an ad hoc coordinate that has no
// stop row behind it.
func (s *EnrichmentService) EnrichPoint(ctx context.Context, lat, lon float64) *model.EnrichedStop {
	return s.enrich(ctx, model.Stop{StopLat: lat, StopLon: lon})
}

func (s *EnrichmentService) enrich(ctx context.Context, stop model.Stop) *model.EnrichedStop {
	start := time.Now()
	rec := &model.EnrichedStop{
		StopID:           stop.StopID,
		StopName:         stop.StopName,
		StopLat:          stop.StopLat,
		StopLon:          stop.StopLon,
		ShopsNearbyCount: -1,
	}

	// Shop counting and density sampling depend only on the coordinate and
	// run alongside the postcode -> area -> census chain.
	coordDone := make(chan struct{})
	go func() {
		defer close(coordDone)
		rec.ShopsNearbyCount = s.countShops(ctx, stop.StopLat, stop.StopLon)
		rec.PopulationDensity = s.density.Density(stop.StopLat, stop.StopLon)
	}()

	s.resolveArea(ctx, rec)
	<-coordDone

	features := ScoreFeatures{
		ShopsNearbyCount:  float64(rec.ShopsNearbyCount),
		EmployedTotal:     floatOrZero(rec.EmployedTotal),
		BusCommuteTotal:   floatOrZero(rec.BusCommuteTotal),
		PopulationDensity: rec.PopulationDensity,
		// An unscored stop has no recorded frequency yet; 0 is the
		// documented default.
		AvgWeeklyFrequencyPerHour: 0,
	}
	rec.CustomerConvenienceScore = s.bundle.Scores.CustomerConvenience(features)
	rec.CommuteOpportunityScore = s.bundle.Scores.CommuteOpportunity(features)

	prediction, err := s.bundle.Frequency.Predict(frequencyVector(rec))
	if err != nil {
		log.Printf("stop %q: frequency prediction failed: %v", stop.StopID, err)
	} else {
		rec.AvgWeeklyFrequencyPerHour = prediction
	}

	// A stop whose output area never resolved cannot be meaningfully
	// clustered.
	if rec.OA21CD != nil {
		id, label := s.bundle.Cluster.Assign(
			floatOrZero(rec.OA21Pop),
			float64(rec.ShopsNearbyCount),
			floatOrZero(rec.EmployedTotal),
		)
		rec.Cluster = &id
		rec.ClusterCategory = &label
	}

	s.metrics.StopEnriched(time.Since(start))
	return rec
}

// resolveArea walks postcode -> area codes -> census statistics, leaving nil
// fields behind whichever stage misses.
func (s *EnrichmentService) resolveArea(ctx context.Context, rec *model.EnrichedStop) {
	if err := s.postcodePace.Wait(ctx); err != nil {
		return
	}
	postcode, err := s.geocoder.ReverseGeocode(ctx, rec.StopLat, rec.StopLon)
	switch {
	case err != nil:
		s.metrics.PostcodeLookup(metrics.OutcomeFailed)
		log.Printf("stop %q: reverse geocode failed: %v", rec.StopID, err)
		return
	case postcode == nil:
		s.metrics.PostcodeLookup(metrics.OutcomeMiss)
		return
	}
	s.metrics.PostcodeLookup(metrics.OutcomeOK)
	rec.Postcode = postcode

	codes, err := s.store.AreaCodesForPostcode(ctx, *postcode)
	if err != nil {
		log.Printf("stop %q: area code lookup failed: %v", rec.StopID, err)
		return
	}
	rec.OA21CD = codes.OA21CD
	rec.LSOA21CD = codes.LSOA21CD
	rec.LSOA21NM = codes.LSOA21NM
	if codes.OA21CD == nil {
		return
	}

	census, err := s.store.CensusForOutputArea(ctx, *codes.OA21CD)
	if err != nil {
		log.Printf("stop %q: census lookup failed: %v", rec.StopID, err)
		return
	}
	rec.OA21Pop = census.Population
	rec.EmployedTotal = census.EmployedTotal
	rec.BusCommuteTotal = census.BusCommuteTotal
}

func (s *EnrichmentService) countShops(ctx context.Context, lat, lon float64) int {
	if err := s.overpassPace.Wait(ctx); err != nil {
		return -1
	}
	count, err := s.shops.ShopCount(ctx, lat, lon)
	if err != nil {
		s.metrics.ShopLookup(metrics.OutcomeFailed)
		log.Printf("shop count failed for (%f, %f): %v", lat, lon, err)
		return -1
	}
	s.metrics.ShopLookup(metrics.OutcomeOK)
	return count
}

// frequencyVector builds the fixed-order predictor input. Unresolved values
// become NaN so the fitted imputer fills them; the -1 shops sentinel is a
// missing-data marker and is treated the same way.
func frequencyVector(rec *model.EnrichedStop) []float64 {
	vec := make([]float64, 0, FrequencyFeatureCount)
	if rec.ShopsNearbyCount < 0 {
		vec = append(vec, math.NaN())
	} else {
		vec = append(vec, float64(rec.ShopsNearbyCount))
	}
	vec = append(vec, rec.PopulationDensity)
	vec = append(vec, floatOrNaN(rec.OA21Pop))
	vec = append(vec, floatOrNaN(rec.EmployedTotal))
	vec = append(vec, floatOrNaN(rec.BusCommuteTotal))
	vec = append(vec, rec.CustomerConvenienceScore)
	vec = append(vec, rec.CommuteOpportunityScore)
	return vec
}

func floatOrZero(v *int) float64 {
	if v == nil {
		return 0
	}
	return float64(*v)
}

func floatOrNaN(v *int) float64 {
	if v == nil {
		return math.NaN()
	}
	return float64(*v)
}
