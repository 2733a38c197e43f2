package velocity

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/courierhq/dispatch/internal/carrier"
	"github.com/courierhq/dispatch/internal/config"
	"github.com/courierhq/dispatch/pkg/api"
)

// Adapter adapts the Velocity Express API to the carrier contract
type Adapter struct {
	client *Client
}

const (
	ProviderID = api.ProviderID("velocity")

	serviceabilityPath = "/v1/serviceability"
	ratesPath          = "/v1/rates"
	shipmentsPath      = "/v1/shipments"
)

var _ carrier.Adapter = (*Adapter)(nil)

// New creates the Velocity Express adapter
func New(cfg config.VelocityConfig, timeout time.Duration) *Adapter {
	return &Adapter{
		client: NewClient(cfg, timeout),
	}
}

func (a *Adapter) ID() api.ProviderID {
	return ProviderID
}

func (a *Adapter) Name() string {
	return "Velocity Express"
}

func (a *Adapter) CheckServiceability(
	ctx context.Context, origin, destination string,
) (*api.ServiceabilityResult, error) {
	data, err := a.client.post(ctx, serviceabilityPath, map[string]string{
		"origin":      origin,
		"destination": destination,
	})
	if err != nil {
		return nil, transportErr(err)
	}

	res := &api.ServiceabilityResult{
		Origin:      origin,
		Destination: destination,
		Serviceable: gjson.GetBytes(data, "serviceable").Bool(),
		Provider:    ProviderID,
		Message:     gjson.GetBytes(data, "message").String(),
	}
	for _, svc := range gjson.GetBytes(data, "services").Array() {
		res.Services = append(res.Services, svc.String())
	}
	return res, nil
}

func (a *Adapter) GetRates(
	ctx context.Context, req *api.ShipmentRequest,
) ([]api.RateQuote, error) {
	data, err := a.client.post(ctx, ratesPath, map[string]any{
		"origin":      req.Origin,
		"destination": req.Destination,
		"weight_kg":   req.BillableWeight(),
		"description": req.Description,
	})
	if err != nil {
		return nil, transportErr(err)
	}

	var quotes []api.RateQuote
	for _, rate := range gjson.GetBytes(data, "rates").Array() {
		quotes = append(quotes, api.RateQuote{
			Provider:     ProviderID,
			ServiceName:  rate.Get("service_name").String(),
			ServiceCode:  rate.Get("service_code").String(),
			Price:        rate.Get("price").Float(),
			Currency:     currencyOr(rate, "USD"),
			DeliveryDays: int(rate.Get("delivery_days").Int()),
		})
	}
	return quotes, nil
}

// CreateShipment books with a single non-retried request. A transport error
// here is ambiguous: the booking may or may not have been placed, so the
// caller must reconcile rather than retry
func (a *Adapter) CreateShipment(
	ctx context.Context, req *api.ShipmentRequest, serviceCode string,
) (*api.LabelResponse, error) {
	data, _, err := a.client.postOnce(ctx, shipmentsPath, map[string]any{
		"origin":       req.Origin,
		"destination":  req.Destination,
		"weight_kg":    req.BillableWeight(),
		"service_code": serviceCode,
		"description":  req.Description,
	})
	if err != nil {
		return nil, transportErr(err)
	}

	tracking := gjson.GetBytes(data, "tracking_number").String()
	if tracking == "" {
		return nil, fmt.Errorf(
			"%w: booking response missing tracking number",
			api.ErrAdapterTransport,
		)
	}
	return &api.LabelResponse{
		TrackingNumber: tracking,
		LabelURL:       gjson.GetBytes(data, "label_url").String(),
		Provider:       ProviderID,
	}, nil
}

func currencyOr(rate gjson.Result, fallback string) string {
	if c := rate.Get("currency").String(); c != "" {
		return c
	}
	return fallback
}

func transportErr(err error) error {
	return fmt.Errorf("%w: %w", api.ErrAdapterTransport, err)
}
