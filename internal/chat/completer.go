package chat

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"github.com/vnmchuo/eagleeye/internal/provider"
)

// ErrUnavailable is returned while the provider's circuit is open.
var ErrUnavailable = errors.New("ai provider temporarily unavailable")

// Completer guards a provider with a circuit breaker that opens after three
// consecutive failures.
type Completer struct {
	provider provider.Provider
	breaker  *gobreaker.CircuitBreaker
}

func NewCompleter(p provider.Provider) *Completer {
	settings := gobreaker.Settings{
		Name:        p.Name(),
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &Completer{
		provider: p,
		breaker:  gobreaker.NewCircuitBreaker(settings),
	}
}

func (c *Completer) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.provider.Complete(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrUnavailable
		}
		return nil, err
	}
	return result.(*provider.Response), nil
}

func (c *Completer) State() gobreaker.State {
	return c.breaker.State()
}

func (c *Completer) Name() string {
	return c.provider.Name()
}
