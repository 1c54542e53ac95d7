package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// BreakerSettings configures the circuit breaker around a publisher.
type BreakerSettings struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerSettings trips after five consecutive publish failures and
// probes the broker again after thirty seconds.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:             "rabbitmq-publisher",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakerPublisher stops calling a failing broker until it has had time to
// recover. Rejected publishes return gobreaker.ErrOpenState or
// gobreaker.ErrTooManyRequests.
type BreakerPublisher struct {
	next   PublisherInterface
	cb     *gobreaker.CircuitBreaker
	logger zerolog.Logger
}

func NewBreakerPublisher(next PublisherInterface, settings BreakerSettings, logger zerolog.Logger) *BreakerPublisher {
	p := &BreakerPublisher{next: next, logger: logger}

	p.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("publisher circuit breaker changed state")
		},
	})

	return p
}

func (p *BreakerPublisher) Publish(ctx context.Context, routingKey string, eventData interface{}) error {
	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.next.Publish(ctx, routingKey, eventData)
	})
	return err
}

func (p *BreakerPublisher) Close() error {
	return p.next.Close()
}

// IsOpen reports whether err was returned because the breaker rejected the call.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
