package asr

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Guarded bounds the number of concurrent calls into an engine. Engines that
// are not concurrency safe get a single slot, which makes calls mutually
// exclusive while still honoring context cancellation.
type Guarded struct {
	Engine
	sem   *semaphore.Weighted
	slots int64
}

// NewGuarded wraps engine with at most maxConcurrent in-flight calls
func NewGuarded(engine Engine, maxConcurrent int) *Guarded {
	slots := int64(maxConcurrent)
	if slots < 1 || !engine.ConcurrencySafe() {
		slots = 1
	}
	return &Guarded{
		Engine: engine,
		sem:    semaphore.NewWeighted(slots),
		slots:  slots,
	}
}

// Slots returns the number of concurrent calls allowed
func (g *Guarded) Slots() int {
	return int(g.slots)
}

// Transcribe waits for a free slot and calls the wrapped engine
func (g *Guarded) Transcribe(ctx context.Context, in Input, params Params) (*Output, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer g.sem.Release(1)

	return g.Engine.Transcribe(ctx, in, params)
}

// HealthCheck forwards to the wrapped engine when it supports it
func (g *Guarded) HealthCheck(ctx context.Context) error {
	if hc, ok := g.Engine.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
