// Package mock provides the deterministic reference carrier adapter used
// for development and tests: fixed pricing tiers, a static non-serviceable
// route table, and simulated network latency.
package mock

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/courierhq/dispatch/internal/carrier"
	"github.com/courierhq/dispatch/pkg/api"
	"github.com/courierhq/dispatch/pkg/log"
)

type (
	// Adapter is the deterministic reference carrier
	Adapter struct {
		id      api.ProviderID
		name    string
		latency time.Duration
		tiers   []Tier
		blocked map[route]struct{}
	}

	// Tier is one service level with its pricing inputs
	Tier struct {
		Name      string
		Code      string
		BasePrice float64
		Days      int
	}

	// Option configures the adapter
	Option func(*Adapter)

	route struct {
		origin, destination string
	}
)

const (
	DefaultProviderID = api.ProviderID("mock")
	DefaultLatency    = 25 * time.Millisecond

	labelBaseURL = "https://mock-carrier.example.com/labels"
)

// DefaultTiers are the reference service levels
var DefaultTiers = []Tier{
	{Name: "Standard Ground", Code: "MOCK_STD", BasePrice: 10.0, Days: 5},
	{Name: "Express", Code: "MOCK_EXP", BasePrice: 20.0, Days: 2},
	{Name: "Priority Air", Code: "MOCK_PRI", BasePrice: 35.0, Days: 1},
}

// defaultBlocked is the static non-serviceable route table
var defaultBlocked = map[route]struct{}{
	{"00000", "99999"}: {},
	{"12345", "00000"}: {},
}

var _ carrier.Adapter = (*Adapter)(nil)

// New creates the reference adapter with default tiers and routes
func New(options ...Option) *Adapter {
	a := &Adapter{
		id:      DefaultProviderID,
		name:    "MockExpress",
		latency: DefaultLatency,
		tiers:   DefaultTiers,
		blocked: defaultBlocked,
	}
	for _, option := range options {
		option(a)
	}
	return a
}

// WithID overrides the provider id and display name, allowing several
// independent mock carriers in one registry
func WithID(id api.ProviderID, name string) Option {
	return func(a *Adapter) {
		a.id = id
		a.name = name
	}
}

// WithLatency overrides the simulated network latency
func WithLatency(d time.Duration) Option {
	return func(a *Adapter) {
		a.latency = d
	}
}

// WithTiers overrides the service tiers
func WithTiers(tiers []Tier) Option {
	return func(a *Adapter) {
		a.tiers = tiers
	}
}

func (a *Adapter) ID() api.ProviderID {
	return a.id
}

func (a *Adapter) Name() string {
	return a.name
}

func (a *Adapter) CheckServiceability(
	ctx context.Context, origin, destination string,
) (*api.ServiceabilityResult, error) {
	if err := a.sleep(ctx); err != nil {
		return nil, err
	}

	_, blocked := a.blocked[route{origin, destination}]
	res := &api.ServiceabilityResult{
		Origin:      origin,
		Destination: destination,
		Serviceable: !blocked,
		Provider:    a.id,
	}
	if blocked {
		res.Message = fmt.Sprintf("route not serviceable by %s", a.name)
	} else {
		for _, tier := range a.tiers {
			res.Services = append(res.Services, tier.Name)
		}
	}

	slog.Debug("Serviceability checked",
		log.Provider(a.id),
		slog.String("origin", origin),
		slog.String("destination", destination),
		slog.Bool("serviceable", res.Serviceable))
	return res, nil
}

func (a *Adapter) GetRates(
	ctx context.Context, req *api.ShipmentRequest,
) ([]api.RateQuote, error) {
	if err := a.sleep(ctx); err != nil {
		return nil, err
	}

	weight := req.BillableWeight()
	quotes := make([]api.RateQuote, 0, len(a.tiers))
	for _, tier := range a.tiers {
		quotes = append(quotes, api.RateQuote{
			Provider:     a.id,
			ServiceName:  tier.Name,
			ServiceCode:  tier.Code,
			Price:        roundCents(tier.BasePrice * weight),
			Currency:     "USD",
			DeliveryDays: tier.Days,
		})
	}

	slog.Debug("Rates fetched",
		log.Provider(a.id),
		slog.Int("quotes", len(quotes)),
		slog.Float64("billable_kg", weight))
	return quotes, nil
}

func (a *Adapter) CreateShipment(
	ctx context.Context, req *api.ShipmentRequest, serviceCode string,
) (*api.LabelResponse, error) {
	if err := a.sleep(ctx); err != nil {
		return nil, err
	}

	tracking := a.trackingNumber()
	stamp := time.Now().UTC().Format("20060102150405")
	res := &api.LabelResponse{
		TrackingNumber: tracking,
		LabelURL: fmt.Sprintf(
			"%s/%s_%s.pdf", labelBaseURL, tracking, stamp,
		),
		Provider: a.id,
	}

	slog.Info("Shipment created",
		log.Provider(a.id),
		slog.String("tracking_number", tracking),
		slog.String("service_code", serviceCode))
	return res, nil
}

func (a *Adapter) trackingNumber() string {
	suffix := strings.ToUpper(uuid.NewString()[:10])
	return "MOCK" + strings.ReplaceAll(suffix, "-", "0")
}

func (a *Adapter) sleep(ctx context.Context) error {
	if a.latency <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", api.ErrAdapterTransport, ctx.Err())
	case <-time.After(a.latency):
		return nil
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
