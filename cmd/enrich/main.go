package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"transit_enrichment/internal/api"
	"transit_enrichment/internal/config"
	"transit_enrichment/internal/core"
	"transit_enrichment/internal/domain/repository"
	"transit_enrichment/internal/export"
	"transit_enrichment/internal/infrastructure/postcoder"
	"transit_enrichment/internal/metrics"
	"transit_enrichment/internal/raster"
	"transit_enrichment/internal/retry"

	"github.com/urfave/cli/v2"
)

// overpassTimeout covers the server-side query timeout plus transfer time.
const overpassTimeout = 120 * time.Second

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	app := &cli.App{
		Name:  "enrich",
		Usage: "enrich GTFS stops and trips with geographic and demographic context",
		Commands: []*cli.Command{
			{
				Name:   "stops",
				Usage:  "enrich every stop and write JSON, CSV and database outputs",
				Action: runStops,
			},
			{
				Name:   "trips",
				Usage:  "derive per-trip distance, idle time and fuel from enriched stops",
				Action: runTrips,
			},
			{
				Name:  "geometry",
				Usage: "export per-shape stop and path geometry for the map layer",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "route",
						Usage: "export a single route id instead of all routes",
					},
				},
				Action: runGeometry,
			},
			{
				Name:   "serve",
				Usage:  "serve ad hoc point enrichment over HTTP",
				Action: runServe,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// pipeline bundles the wired-up services a command picks from.
type pipeline struct {
	cfg       config.Config
	repo      *repository.GTFSRepository
	trips     *core.TripService
	geometry  *core.GeometryService
	collector *metrics.Collector

	// set only when the pipeline was built with models
	bundle     *core.ModelBundle
	geocoder   core.Geocoder
	shops      core.ShopCounter
	density    core.DensitySource
	enrichOpts core.EnrichmentOptions
}

// newEnricher builds the stop enricher over a given store, so the bulk path
// can swap in the in-memory postcode index while serve mode queries per stop.
func (p *pipeline) newEnricher(store core.StopStore) *core.EnrichmentService {
	return core.NewEnrichmentService(store, p.geocoder, p.shops, p.density, p.bundle, p.collector, p.enrichOpts)
}

func buildPipeline(needModels bool) (*pipeline, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	repo, err := repository.NewGTFSRepository(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector()
	p := &pipeline{
		cfg:       cfg,
		repo:      repo,
		geometry:  core.NewGeometryService(repo),
		collector: collector,
	}

	idle := core.IdleTimeEstimator{
		BaseDwellSeconds: cfg.DwellBaseSeconds,
		LogFactor:        cfg.DwellLogFactorSeconds,
	}
	fuel := core.FuelEstimator{
		MovingRateLPerKM:   cfg.FuelRateMovingLPerKM,
		IdlingRateLPerHour: cfg.FuelRateIdlingLPerHr,
	}
	p.trips = core.NewTripService(repo, idle, fuel, collector)

	if !needModels {
		return p, nil
	}

	bundle, err := core.LoadModelBundle(cfg.ModelDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load model bundle: %w", err)
	}

	grid, err := raster.Open(cfg.DensityRaster)
	if err != nil {
		return nil, fmt.Errorf("failed to open density raster: %w", err)
	}

	policy := retry.Policy{
		MaxAttempts:  cfg.RetryMaxAttempts,
		InitialDelay: cfg.RetryInitialDelay,
	}
	p.bundle = bundle
	p.geocoder = postcoder.New(cfg.PostcodesAPIURL, cfg.PostcodeRadiusM, policy)
	p.shops = repository.NewOverpassRepository(cfg.OverpassURL, overpassTimeout, cfg.ShopRadiusM, policy)
	p.density = core.NewDensitySampler(grid)
	p.enrichOpts = core.EnrichmentOptions{
		Workers:        cfg.EnrichWorkers,
		PostcodePacing: cfg.PostcodePacing,
		OverpassPacing: cfg.OverpassPacing,
	}
	return p, nil
}

func runStops(c *cli.Context) error {
	p, err := buildPipeline(true)
	if err != nil {
		return err
	}
	defer p.repo.Close()
	p.serveMetrics()

	// The bulk pass resolves area codes from an in-memory snapshot of the
	// lookup table instead of one query per stop.
	index, err := p.repo.LoadPostcodeIndex(c.Context)
	if err != nil {
		return err
	}
	stops, err := p.newEnricher(index).EnrichStops(c.Context)
	if err != nil {
		return err
	}
	log.Printf("enriched %d stops", len(stops))

	if err := os.MkdirAll(p.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := export.WriteStopsJSON(filepath.Join(p.cfg.OutputDir, "enriched_stops_data.json"), stops); err != nil {
		return err
	}
	if err := export.WriteStopsCSV(filepath.Join(p.cfg.OutputDir, "enriched_stops_data.csv"), stops); err != nil {
		return err
	}
	if err := p.repo.SaveEnrichedStops(c.Context, stops); err != nil {
		return err
	}
	log.Printf("wrote enriched stops to %s", p.cfg.OutputDir)
	return nil
}

func runTrips(c *cli.Context) error {
	p, err := buildPipeline(false)
	if err != nil {
		return err
	}
	defer p.repo.Close()
	p.serveMetrics()

	stops, err := export.ReadStopsJSON(filepath.Join(p.cfg.OutputDir, "enriched_stops_data.json"))
	if err != nil {
		return fmt.Errorf("failed to read enriched stops (run the stops command first): %w", err)
	}

	trips, err := p.trips.EnrichTrips(c.Context, stops)
	if err != nil {
		return err
	}
	log.Printf("enriched %d trips", len(trips))

	if err := os.MkdirAll(p.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return export.WriteTripsCSV(filepath.Join(p.cfg.OutputDir, "enriched_trips_data.csv"), trips)
}

func runGeometry(c *cli.Context) error {
	p, err := buildPipeline(false)
	if err != nil {
		return err
	}
	defer p.repo.Close()

	dir := filepath.Join(p.cfg.OutputDir, "geometry")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create geometry directory: %w", err)
	}
	return p.geometry.Export(c.Context, dir, c.String("route"))
}

func runServe(c *cli.Context) error {
	p, err := buildPipeline(true)
	if err != nil {
		return err
	}
	defer p.repo.Close()
	p.serveMetrics()

	handler := api.NewHandler(p.newEnricher(p.repo))
	http.HandleFunc("/api/enrich", handler.Enrich)

	log.Printf("listening on %s", p.cfg.ServerAddr)
	return http.ListenAndServe(p.cfg.ServerAddr, nil)
}

func (p *pipeline) serveMetrics() {
	if p.cfg.MetricsAddr == "" {
		return
	}
	srv := p.collector.Serve(p.cfg.MetricsAddr)
	log.Printf("metrics on %s", srv.Addr)
}
