package places

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/neexbeast/coffeemap/internal/geo"
	"github.com/neexbeast/coffeemap/internal/metrics"
)

// BreakerSettings controls when a provider's circuit opens.
type BreakerSettings struct {
	MinRequests  uint32        // requests in the window before the ratio is considered
	FailureRatio float64       // failure ratio that opens the circuit
	Interval     time.Duration // closed-state counting window
	Timeout      time.Duration // open-state cool-down before half-open
	HalfOpenMax  uint32        // trial requests allowed while half-open
}

// DefaultBreakerSettings opens after 60% failures across at least 10 requests
// in a minute and retries after 30 seconds.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MinRequests:  10,
		FailureRatio: 0.6,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		HalfOpenMax:  3,
	}
}

type breaker struct {
	name     string
	provider Provider
	cb       *gobreaker.CircuitBreaker[any]
}

func newBreaker(name string, p Provider, s BreakerSettings, log *slog.Logger) *breaker {
	metrics.BreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.HalfOpenMax,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("provider circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.BreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
		// A clean "no results" and a caller hanging up are not provider failures.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
	})

	return &breaker{name: name, provider: p, cb: cb}
}

// run executes fn under the breaker, recording outcome and latency.
func run[T any](b *breaker, fn func() (T, error)) (T, error) {
	var zero T
	start := time.Now()

	result, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	metrics.ProviderDuration.WithLabelValues(b.name).Observe(time.Since(start).Seconds())

	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			metrics.ProviderRequests.WithLabelValues(b.name, "rejected").Inc()
			return zero, &ProviderError{Provider: b.provider, Err: fmt.Errorf("%s: %w", b.name, err)}
		case errors.Is(err, ErrNotFound):
			metrics.ProviderRequests.WithLabelValues(b.name, "not_found").Inc()
		default:
			metrics.ProviderRequests.WithLabelValues(b.name, "failure").Inc()
		}
		return zero, err
	}
	metrics.ProviderRequests.WithLabelValues(b.name, "success").Inc()

	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker %s: unexpected result type %T", b.name, result)
	}
	return typed, nil
}

// State reports the breaker state, for health output.
func (b *breaker) State() string { return b.cb.State().String() }

// Name is the breaker's metric and health label.
func (b *breaker) Name() string { return b.name }

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

type nearbySearcher interface {
	Search(ctx context.Context, at geo.Coordinate) ([]Shop, error)
}

type detailFetcher interface {
	Detail(ctx context.Context, placeID string) (*ShopDetail, error)
}

type photoFetcher interface {
	Photo(ctx context.Context, reference string) (string, error)
}

type geocoder interface {
	Reverse(ctx context.Context, at geo.Coordinate) (geo.Address, error)
	Forward(ctx context.Context, text string) (geo.Coordinate, error)
}

// GuardedNearby wraps a nearby searcher with a circuit breaker.
type GuardedNearby struct {
	next nearbySearcher
	*breaker
}

// GuardNearby wraps next. p is the provider reported when the circuit is open.
func GuardNearby(name string, p Provider, next nearbySearcher, s BreakerSettings, log *slog.Logger) *GuardedNearby {
	return &GuardedNearby{next: next, breaker: newBreaker(name, p, s, log)}
}

func (g *GuardedNearby) Search(ctx context.Context, at geo.Coordinate) ([]Shop, error) {
	return run(g.breaker, func() ([]Shop, error) { return g.next.Search(ctx, at) })
}

// GuardedDetail wraps a detail fetcher with a circuit breaker.
type GuardedDetail struct {
	next detailFetcher
	*breaker
}

func GuardDetail(name string, p Provider, next detailFetcher, s BreakerSettings, log *slog.Logger) *GuardedDetail {
	return &GuardedDetail{next: next, breaker: newBreaker(name, p, s, log)}
}

func (g *GuardedDetail) Detail(ctx context.Context, placeID string) (*ShopDetail, error) {
	return run(g.breaker, func() (*ShopDetail, error) { return g.next.Detail(ctx, placeID) })
}

// GuardedGeocoder wraps both geocoding directions with one shared breaker.
type GuardedGeocoder struct {
	next geocoder
	*breaker
}

func GuardGeocoder(name string, p Provider, next geocoder, s BreakerSettings, log *slog.Logger) *GuardedGeocoder {
	return &GuardedGeocoder{next: next, breaker: newBreaker(name, p, s, log)}
}

func (g *GuardedGeocoder) Reverse(ctx context.Context, at geo.Coordinate) (geo.Address, error) {
	return run(g.breaker, func() (geo.Address, error) { return g.next.Reverse(ctx, at) })
}

func (g *GuardedGeocoder) Forward(ctx context.Context, text string) (geo.Coordinate, error) {
	return run(g.breaker, func() (geo.Coordinate, error) { return g.next.Forward(ctx, text) })
}

// GuardedPhoto wraps a photo fetcher with a circuit breaker.
type GuardedPhoto struct {
	next photoFetcher
	*breaker
}

func GuardPhoto(name string, p Provider, next photoFetcher, s BreakerSettings, log *slog.Logger) *GuardedPhoto {
	return &GuardedPhoto{next: next, breaker: newBreaker(name, p, s, log)}
}

func (g *GuardedPhoto) Photo(ctx context.Context, reference string) (string, error) {
	return run(g.breaker, func() (string, error) { return g.next.Photo(ctx, reference) })
}
