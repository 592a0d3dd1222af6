package lot

import (
	"math"

	"github.com/parkd-io/parkd/internal/domain"
)

// RateStrategy resolves the hourly rate applied to a tariff class.
// The default strategy reads the lot's live rate table; a custom strategy
// can be supplied at construction for non-tabular pricing.
type RateStrategy func(class domain.Class) float64

// Rates is the lot's tariff table, one hourly rate per class.
type Rates struct {
	Small float64
	Large float64
}

// For returns the rate for the given class.
func (r Rates) For(class domain.Class) float64 {
	if class == domain.ClassLarge {
		return r.Large
	}
	return r.Small
}

// fee computes the charge for a stay of the given duration in seconds,
// rounded half away from zero to 2 decimal places.
func fee(seconds float64, hourlyRate float64) float64 {
	hours := seconds / 3600
	return math.Round(hours*hourlyRate*100) / 100
}
