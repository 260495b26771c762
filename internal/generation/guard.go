// Package generation wraps the AI provider manager with the guardrails the
// call path needs: a hard per-call timeout and a circuit breaker so a
// misbehaving provider cannot stall live calls.
package generation

import (
	"context"
	"time"

	"github.com/glamhair/patglam-agent/pkg/ai"
	"github.com/glamhair/patglam-agent/pkg/circuitbreaker"
)

// Guard fronts an ai.Manager. Every call runs under its own deadline and
// through a shared breaker; when the breaker is open the call fails fast
// with circuitbreaker.ErrOpen and callers fall back to scripted output.
type Guard struct {
	manager *ai.Manager
	breaker *circuitbreaker.CircuitBreaker
	timeout time.Duration
}

func NewGuard(manager *ai.Manager, timeout time.Duration) *Guard {
	return &Guard{
		manager: manager,
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig()),
		timeout: timeout,
	}
}

func (g *Guard) GenerateTurn(ctx context.Context, req *ai.TurnRequest) (string, error) {
	return g.execute(ctx, func(ctx context.Context) (string, error) {
		return g.manager.GenerateTurn(ctx, req)
	})
}

func (g *Guard) RewriteLine(ctx context.Context, req *ai.RewriteRequest) (string, error) {
	return g.execute(ctx, func(ctx context.Context) (string, error) {
		return g.manager.RewriteLine(ctx, req)
	})
}

func (g *Guard) SummarizeLead(ctx context.Context, req *ai.SummaryRequest) (string, error) {
	return g.execute(ctx, func(ctx context.Context) (string, error) {
		return g.manager.SummarizeLead(ctx, req)
	})
}

func (g *Guard) execute(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var result string
	err := g.breaker.Execute(ctx, func() error {
		out, err := fn(ctx)
		if err != nil {
			return err
		}
		result = out
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}
