package cost

// Call types tracked against the checkpoint's api_calls counters.
const (
	CallGeocoding           = "geocoding"
	CallNearbySearch        = "nearby_search"
	CallPlaceDetails        = "place_details"
	CallPlaceDetailsSkipped = "place_details_skipped"
)

// Rates holds per-call-type Places API pricing in USD.
type Rates struct {
	Geocoding    float64 `yaml:"geocoding" mapstructure:"geocoding"`
	NearbySearch float64 `yaml:"nearby_search" mapstructure:"nearby_search"`
	PlaceDetails float64 `yaml:"place_details" mapstructure:"place_details"`
}

// Calculator computes costs for Places API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Call returns the cost of a single API call of the given type.
// Unknown call types cost nothing.
func (c *Calculator) Call(callType string) float64 {
	switch callType {
	case CallGeocoding:
		return c.rates.Geocoding
	case CallNearbySearch:
		return c.rates.NearbySearch
	case CallPlaceDetails:
		return c.rates.PlaceDetails
	default:
		return 0
	}
}

// EstimateRun projects the cost of a Places run before it starts:
// one geocode per city, one nearby search per category-city pair, and
// a details call for each expected place (roughly 30 per search, the
// empirical page-one average).
func (c *Calculator) EstimateRun(categories, cities int) float64 {
	searches := categories * cities
	estimatedPlaces := searches * 30
	return float64(cities)*c.rates.Geocoding +
		float64(searches)*c.rates.NearbySearch +
		float64(estimatedPlaces)*c.rates.PlaceDetails
}

// DefaultRates returns the standard Google Maps Platform pricing
// (USD per request).
func DefaultRates() Rates {
	return Rates{
		Geocoding:    0.005,
		NearbySearch: 0.032,
		PlaceDetails: 0.017,
	}
}
