package model

// Stop is a raw GTFS stop row.
type Stop struct {
	StopID   string  `db:"stop_id"`
	StopName string  `db:"stop_name"`
	StopLat  float64 `db:"stop_lat"`
	StopLon  float64 `db:"stop_lon"`
}

// AreaCodes holds the census geography codes resolved from a postcode.
// A lookup miss leaves every field nil.
type AreaCodes struct {
	OA21CD   *string `db:"oa21cd"`
	LSOA21CD *string `db:"lsoa21cd"`
	LSOA21NM *string `db:"lsoa21nm"`
}

// CensusProfile holds per-output-area census statistics. Nil means the value
// is unknown, which is distinct from a genuine zero.
type CensusProfile struct {
	Population      *int `db:"oa21pop"`
	EmployedTotal   *int `db:"employed_total"`
	BusCommuteTotal *int `db:"bus_commute_total"`
}

// EnrichedStop is the complete per-stop record produced by the enrichment
// pipeline. It is constructed once, field-complete, and never mutated after
// being returned. Fields downstream of a failed lookup hold nil or the
// documented sentinel rather than being omitted.
type EnrichedStop struct {
	StopID   string  `json:"stop_id" db:"stop_id"`
	StopName string  `json:"stop_name" db:"stop_name"`
	StopLat  float64 `json:"stop_lat" db:"stop_lat"`
	StopLon  float64 `json:"stop_lon" db:"stop_lon"`

	Postcode *string `json:"postcode" db:"postcode"`
	OA21CD   *string `json:"oa21cd" db:"oa21cd"`
	LSOA21CD *string `json:"lsoa21cd" db:"lsoa21cd"`
	LSOA21NM *string `json:"lsoa21nm" db:"lsoa21nm"`

	OA21Pop         *int `json:"oa21pop" db:"oa21pop"`
	EmployedTotal   *int `json:"employed_total" db:"employed_total"`
	BusCommuteTotal *int `json:"bus_commute_total" db:"bus_commute_total"`

	// ShopsNearbyCount is -1 when the lookup never resolved. A confirmed
	// absence of shops is 0.
	ShopsNearbyCount  int     `json:"shops_nearby_count" db:"shops_nearby_count"`
	PopulationDensity float64 `json:"population_density" db:"population_density"`

	CustomerConvenienceScore  float64 `json:"customer_convenience_score" db:"customer_convenience_score"`
	CommuteOpportunityScore   float64 `json:"commute_opportunity_score" db:"commute_opportunity_score"`
	AvgWeeklyFrequencyPerHour float64 `json:"avg_weekly_frequency_per_hour" db:"avg_weekly_frequency_per_hour"`

	Cluster         *int    `json:"cluster" db:"cluster"`
	ClusterCategory *string `json:"cluster_category" db:"cluster_category"`
}
