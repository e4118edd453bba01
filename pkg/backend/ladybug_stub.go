//go:build !cgo

package backend

import (
	"context"
	"errors"
	"log/slog"
)

// ErrCGORequired is returned when the Ladybug backend is used without CGO support
var ErrCGORequired = errors.New("ladybug backend requires CGO; build with CGO_ENABLED=1")

// LadybugBackend is a stub implementation when CGO is disabled.
type LadybugBackend struct{}

// NewLadybugBackend returns an error when CGO is disabled
func NewLadybugBackend(dbPath string, logger *slog.Logger) (*LadybugBackend, error) {
	return nil, ErrCGORequired
}

// Provider implements Backend.
func (k *LadybugBackend) Provider() Provider {
	return ProviderLadybug
}

// Close is a no-op
func (k *LadybugBackend) Close() error {
	return nil
}

// Execute returns ErrCGORequired
func (k *LadybugBackend) Execute(ctx context.Context, q *StructuredQuery, acc *Accumulator) ([]Row, error) {
	return nil, ErrCGORequired
}

// LoadFixture returns ErrCGORequired
func (k *LadybugBackend) LoadFixture(ctx context.Context, f *Fixture) error {
	return ErrCGORequired
}
