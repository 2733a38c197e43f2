// Package carrier defines the capability adapter contract implemented by
// each external provider, and the registry that tracks the enabled set.
package carrier

import (
	"context"

	"github.com/courierhq/dispatch/pkg/api"
)

// Adapter is implemented once per capability provider. A not-serviceable
// route is reported through the result, never through the error; errors are
// reserved for infrastructure failures such as timeouts or malformed
// responses. CreateShipment is not idempotent: callers must not blindly
// retry a booking on an ambiguous failure
type Adapter interface {
	// ID returns the provider identifier used for registration and booking
	ID() api.ProviderID

	// Name returns the provider's display name
	Name() string

	// CheckServiceability reports whether the provider can complete the
	// route between origin and destination
	CheckServiceability(
		ctx context.Context, origin, destination string,
	) (*api.ServiceabilityResult, error)

	// GetRates returns zero or more quotes for the shipment
	GetRates(
		ctx context.Context, req *api.ShipmentRequest,
	) ([]api.RateQuote, error)

	// CreateShipment books the shipment with the selected service tier and
	// returns the tracking id and label reference
	CreateShipment(
		ctx context.Context, req *api.ShipmentRequest, serviceCode string,
	) (*api.LabelResponse, error)
}
