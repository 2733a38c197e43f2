package api

type (
	// Intent is the closed enum of recognized request intents. The engine's
	// routing is total over this set; anything unrecognized maps to
	// IntentGeneral
	Intent string

	// IntentParams carries the parameters an intent classifier extracted
	// from the prompt
	IntentParams struct {
		Origin      string  `json:"origin,omitempty"`
		Destination string  `json:"destination,omitempty"`
		WeightKg    float64 `json:"weight_kg,omitempty"`
	}

	// Classification is the result of intent extraction
	Classification struct {
		Intent Intent       `json:"intent"`
		Params IntentParams `json:"extract_params"`
	}
)

const (
	IntentServiceability Intent = "serviceability_check"
	IntentRateRequest    Intent = "rate_request"
	IntentBookShipment   Intent = "book_shipment"
	IntentGeneral        Intent = "general_info"
)

// Normalize maps unknown intents onto IntentGeneral so routing stays total
func (i Intent) Normalize() Intent {
	switch i {
	case IntentServiceability, IntentRateRequest, IntentBookShipment,
		IntentGeneral:
		return i
	}
	return IntentGeneral
}
