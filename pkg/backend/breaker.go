package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"github.com/soundprediction/aqqu/pkg/alert"
)

// BreakerSettings configures BreakerBackend.
type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	ReadyToTripRatio float64
	MinRequests      uint32
	// Alerter is notified, asynchronously, whenever the circuit opens.
	Alerter alert.Alerter
}

// BreakerBackend guards a Backend with a circuit breaker. While the circuit
// is open, executions fail fast with gobreaker.ErrOpenState.
type BreakerBackend struct {
	next Backend
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerBackend wraps next with a circuit breaker.
func NewBreakerBackend(next Backend, settings BreakerSettings, logger *slog.Logger) *BreakerBackend {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.MinRequests == 0 {
		settings.MinRequests = 3
	}
	if settings.ReadyToTripRatio <= 0 {
		settings.ReadyToTripRatio = 0.6
	}

	st := gobreaker.Settings{
		Name:        string(next.Provider()),
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= settings.MinRequests && failureRatio >= settings.ReadyToTripRatio
		},
		IsSuccessful: func(err error) bool {
			// Malformed queries say nothing about backend health.
			return err == nil || errors.Is(err, ErrUnsupportedQuery) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				logger.Error("Backend circuit breaker tripped", "backend", name, "from", from.String(), "to", to.String())
				if settings.Alerter != nil {
					go notifyOpen(settings.Alerter, logger, name, from, to)
				}
				return
			}
			logger.Warn("Backend circuit breaker state changed", "backend", name, "from", from.String(), "to", to.String())
		},
	}

	return &BreakerBackend{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

func notifyOpen(a alert.Alerter, logger *slog.Logger, name string, from, to gobreaker.State) {
	msg := fmt.Sprintf("Circuit breaker for backend '%s' changed status from %s to %s. Too many failed queries.", name, from, to)
	if err := a.Alert(fmt.Sprintf("URGENT: Backend circuit breaker tripped - %s", name), msg); err != nil {
		logger.Warn("Failed to send circuit breaker alert", "backend", name, "error", err)
	}
}

// Provider implements Backend.
func (b *BreakerBackend) Provider() Provider {
	return b.next.Provider()
}

// Close implements Backend.
func (b *BreakerBackend) Close() error {
	return b.next.Close()
}

// State returns the current circuit state.
func (b *BreakerBackend) State() gobreaker.State {
	return b.cb.State()
}

// Execute implements Backend.
func (b *BreakerBackend) Execute(ctx context.Context, q *StructuredQuery, acc *Accumulator) ([]Row, error) {
	rows, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Execute(ctx, q, acc)
	})
	if err != nil {
		return nil, err
	}
	return rows.([]Row), nil
}

// LoadFixture implements Loader when the wrapped backend does.
func (b *BreakerBackend) LoadFixture(ctx context.Context, f *Fixture) error {
	loader, ok := b.next.(Loader)
	if !ok {
		return errors.New("wrapped backend cannot load fixtures")
	}
	return loader.LoadFixture(ctx, f)
}
