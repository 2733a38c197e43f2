package api

import "fmt"

type (
	// ProviderID identifies a registered capability provider
	ProviderID string

	// Strategy selects how rate quotes are ranked
	Strategy string

	// ShipmentRequest describes a shipment to quote or book. Dimensions are
	// optional; zero means unspecified
	ShipmentRequest struct {
		Origin        string  `json:"origin"`
		Destination   string  `json:"destination"`
		WeightKg      float64 `json:"weight_kg"`
		LengthCm      float64 `json:"length_cm,omitempty"`
		WidthCm       float64 `json:"width_cm,omitempty"`
		HeightCm      float64 `json:"height_cm,omitempty"`
		Description   string  `json:"description,omitempty"`
		OriginCountry string  `json:"origin_country,omitempty"`
		DestCountry   string  `json:"dest_country,omitempty"`
	}

	// RateQuote is a single provider quote for a shipment
	RateQuote struct {
		Provider     ProviderID `json:"provider"`
		ServiceName  string     `json:"service_name"`
		ServiceCode  string     `json:"service_code"`
		Price        float64    `json:"price"`
		Currency     string     `json:"currency"`
		DeliveryDays int        `json:"delivery_days"`
	}

	// ServiceabilityResult reports whether a provider can complete a route.
	// A false Serviceable flag is a normal result, not an error
	ServiceabilityResult struct {
		Origin      string     `json:"origin"`
		Destination string     `json:"destination"`
		Serviceable bool       `json:"serviceable"`
		Provider    ProviderID `json:"provider"`
		Services    []string   `json:"services,omitempty"`
		Message     string     `json:"message,omitempty"`
	}

	// LabelResponse is the result of a successful booking
	LabelResponse struct {
		TrackingNumber string     `json:"tracking_number"`
		LabelURL       string     `json:"label_url"`
		Provider       ProviderID `json:"provider"`
	}
)

const (
	StrategyCheapest  Strategy = "cheapest"
	StrategyFastest   Strategy = "fastest"
	StrategyBestValue Strategy = "best_value"
)

// VolumetricDivisor converts package volume in cubic centimeters to a
// billing weight in kilograms
const VolumetricDivisor = 5000.0

// BillableWeight returns the greater of the actual weight and the computed
// volumetric weight. Requests without full dimensions bill by actual weight
func (r *ShipmentRequest) BillableWeight() float64 {
	if r.LengthCm <= 0 || r.WidthCm <= 0 || r.HeightCm <= 0 {
		return r.WeightKg
	}
	dim := r.LengthCm * r.WidthCm * r.HeightCm / VolumetricDivisor
	if dim > r.WeightKg {
		return dim
	}
	return r.WeightKg
}

// Validate checks the request for required fields before any fan-out
func (r *ShipmentRequest) Validate() error {
	if r.Origin == "" {
		return fmt.Errorf("%w: origin required", ErrValidation)
	}
	if r.Destination == "" {
		return fmt.Errorf("%w: destination required", ErrValidation)
	}
	if r.WeightKg <= 0 {
		return fmt.Errorf("%w: weight must be positive", ErrValidation)
	}
	return nil
}

// ValidStrategy reports whether s names a known ranking strategy
func ValidStrategy(s Strategy) bool {
	switch s {
	case StrategyCheapest, StrategyFastest, StrategyBestValue:
		return true
	}
	return false
}
