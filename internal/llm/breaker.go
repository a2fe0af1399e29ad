// In file: internal/llm/breaker.go
package llm

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker refuses calls to a failing provider.
var ErrCircuitOpen = errors.New("completion provider circuit breaker is open")

// callerDoneError marks a failure caused by the caller's own context ending
// (agent time budget, client disconnect). It does not count against the provider.
type callerDoneError struct {
	err error
}

func (e *callerDoneError) Error() string { return e.err.Error() }
func (e *callerDoneError) Unwrap() error { return e.err }

func isProviderHealthy(err error) bool {
	var done *callerDoneError
	return err == nil || errors.As(err, &done)
}

// BreakerClient wraps an LLMClient with a circuit breaker. After a run of
// consecutive failures it fails fast until the provider has had time to recover.
// It never retries a call.
type BreakerClient struct {
	next    LLMClient
	circuit *gobreaker.CircuitBreaker
}

var _ LLMClient = (*BreakerClient)(nil)

// BreakerSettings tunes the breaker. Zero values select the defaults.
type BreakerSettings struct {
	// ConsecutiveFailures opens the circuit once reached. Default 5.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the circuit stays open before probing. Default 30s.
	OpenTimeout time.Duration
}

func NewBreakerClient(name string, next LLMClient, settings BreakerSettings) *BreakerClient {
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = 5
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = 30 * time.Second
	}
	threshold := settings.ConsecutiveFailures

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         name,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      settings.OpenTimeout,
		IsSuccessful: isProviderHealthy,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	})

	return &BreakerClient{next: next, circuit: cb}
}

func (b *BreakerClient) Generate(ctx context.Context, messages []Message, config *GenerationConfig) (*GenerationResult, error) {
	result, err := b.circuit.Execute(func() (interface{}, error) {
		res, err := b.next.Generate(ctx, messages, config)
		if err != nil && ctx.Err() != nil {
			return nil, &callerDoneError{err: err}
		}
		return res, err
	})
	var done *callerDoneError
	if errors.As(err, &done) {
		return nil, done.err
	}
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, goerr.Wrap(ErrCircuitOpen, err.Error(), goerr.T(ErrTagProvider))
		}
		return nil, err
	}

	res, ok := result.(*GenerationResult)
	if !ok {
		return nil, goerr.New("unexpected result type from circuit breaker")
	}
	return res, nil
}

// State reports the breaker state ("closed", "half-open" or "open").
func (b *BreakerClient) State() string {
	return b.circuit.State().String()
}
