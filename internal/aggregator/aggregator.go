// Package aggregator fans one logical request out to every registered
// carrier adapter concurrently, isolating per-adapter failures and
// delegating quote ranking to the rates package.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/courierhq/dispatch/internal/carrier"
	"github.com/courierhq/dispatch/internal/rates"
	"github.com/courierhq/dispatch/pkg/api"
	"github.com/courierhq/dispatch/pkg/log"
)

// Aggregator coordinates multi-provider operations. Each adapter call is
// individually time-bounded by the configured timeout; total fan-out
// latency is bounded by the slowest responding adapter
type Aggregator struct {
	registry *carrier.Registry
	timeout  time.Duration
}

// New creates an aggregator over the registry with the per-adapter call
// timeout
func New(registry *carrier.Registry, timeout time.Duration) *Aggregator {
	return &Aggregator{
		registry: registry,
		timeout:  timeout,
	}
}

// CheckServiceabilityAll dispatches a serviceability check to every
// registered adapter concurrently. A failing adapter contributes nothing;
// zero registered adapters yield an empty result, not an error
func (a *Aggregator) CheckServiceabilityAll(
	ctx context.Context, origin, destination string,
) []api.ServiceabilityResult {
	adapters := a.registry.All()
	results := fanOut(ctx, a.timeout, adapters,
		func(ctx context.Context, ad carrier.Adapter) (
			*api.ServiceabilityResult, error,
		) {
			return ad.CheckServiceability(ctx, origin, destination)
		})

	res := make([]api.ServiceabilityResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			res = append(res, *r)
		}
	}
	slog.Info("Serviceability fan-out complete",
		slog.String("origin", origin),
		slog.String("destination", destination),
		slog.Int("responded", len(res)),
		slog.Int("registered", len(adapters)))
	return res
}

// GetRatesAll fetches quotes from every registered adapter concurrently and
// flattens the successful results into one list
func (a *Aggregator) GetRatesAll(
	ctx context.Context, req *api.ShipmentRequest,
) ([]api.RateQuote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	adapters := a.registry.All()
	results := fanOut(ctx, a.timeout, adapters,
		func(ctx context.Context, ad carrier.Adapter) (
			[]api.RateQuote, error,
		) {
			return ad.GetRates(ctx, req)
		})

	var quotes []api.RateQuote
	responded := 0
	for _, qs := range results {
		if qs != nil {
			responded++
			quotes = append(quotes, qs...)
		}
	}
	slog.Info("Rate fan-out complete",
		slog.Int("quotes", len(quotes)),
		slog.Int("responded", responded),
		slog.Int("registered", len(adapters)))
	return quotes, nil
}

// GetBestRates fetches all quotes and returns them ranked by strategy
func (a *Aggregator) GetBestRates(
	ctx context.Context, req *api.ShipmentRequest, strategy api.Strategy,
) ([]api.RateQuote, error) {
	quotes, err := a.GetRatesAll(ctx, req)
	if err != nil {
		return nil, err
	}
	return rates.Rank(quotes, strategy), nil
}

// CreateShipment books with a specific provider; no fan-out
func (a *Aggregator) CreateShipment(
	ctx context.Context, provider api.ProviderID,
	req *api.ShipmentRequest, serviceCode string,
) (*api.LabelResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	adapter, err := a.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return adapter.CreateShipment(ctx, req, serviceCode)
}

// CreateShipmentAuto ranks the available quotes and books the top-ranked
// provider. Booking is not retried: an error after dispatch is returned
// as-is because shipment creation is not idempotent
func (a *Aggregator) CreateShipmentAuto(
	ctx context.Context, req *api.ShipmentRequest, strategy api.Strategy,
) (*api.LabelResponse, *api.RateQuote, error) {
	ranked, err := a.GetBestRates(ctx, req, strategy)
	if err != nil {
		return nil, nil, err
	}
	best, ok := rates.SelectBest(ranked, strategy)
	if !ok {
		return nil, nil, fmt.Errorf(
			"%w: no quotes for %s -> %s",
			api.ErrNoProviderAvailable, req.Origin, req.Destination,
		)
	}

	slog.Info("Auto-selected quote",
		log.Provider(best.Provider),
		log.Strategy(strategy),
		slog.String("service_code", best.ServiceCode),
		slog.Float64("price", best.Price))

	label, err := a.CreateShipment(ctx, best.Provider, req, best.ServiceCode)
	if err != nil {
		return nil, nil, err
	}
	return label, &best, nil
}

// fanOut launches one goroutine per adapter before awaiting any result and
// joins once every dispatched call has settled. Failures are logged and
// yield the zero value; siblings are never cancelled on first failure
func fanOut[T any](
	ctx context.Context, timeout time.Duration, adapters []carrier.Adapter,
	call func(context.Context, carrier.Adapter) (T, error),
) []T {
	results := make([]T, len(adapters))
	var wg sync.WaitGroup
	for i, adapter := range adapters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			res, err := call(callCtx, adapter)
			if err != nil {
				slog.Warn("Adapter call failed",
					log.Provider(adapter.ID()),
					log.Error(err))
				return
			}
			results[i] = res
		}()
	}
	wg.Wait()
	return results
}
