package core

// FuelEstimator converts route distance and idle time into a fuel-usage
// estimate via a fixed two-term linear model. The rates are calibration
// constants supplied by configuration.
type FuelEstimator struct {
	MovingRateLPerKM   float64
	IdlingRateLPerHour float64
}

// Estimate returns liters of fuel for a trip.
func (e FuelEstimator) Estimate(distanceKM, idleSeconds float64) float64 {
	fuel := distanceKM * e.MovingRateLPerKM
	if e.IdlingRateLPerHour != 0 {
		fuel += idleSeconds / 3600 * e.IdlingRateLPerHour
	}
	return fuel
}
