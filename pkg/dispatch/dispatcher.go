// Package dispatch fans device inspections out over a bounded worker pool and
// collects their outcomes.
package dispatch

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/netinspect/netinspect/pkg/inspect"
	"github.com/netinspect/netinspect/pkg/inventory"
)

// Inspector runs one device inspection. *inspect.Executor satisfies it.
type Inspector interface {
	Inspect(dev inventory.Device) inspect.Outcome
}

// Dispatcher owns the worker pool. Worker count defaults to the CPU count
// when zero or negative.
type Dispatcher struct {
	inspector Inspector
	precheck  *Precheck
	workers   int
	logger    zerolog.Logger
}

func NewDispatcher(inspector Inspector, workers int, logger zerolog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Dispatcher{
		inspector: inspector,
		workers:   workers,
		logger:    logger.With().Str("component", "dispatch").Logger(),
	}
}

// WithPrecheck enables the optional reachability probe before each task.
func (d *Dispatcher) WithPrecheck(p *Precheck) *Dispatcher {
	d.precheck = p
	return d
}

// RunAll inspects every device, at most `workers` concurrently, and returns
// one outcome per device in input order. A panicking task is converted into a
// failed outcome; it never takes down sibling tasks or the pool. Context
// cancellation stops dispatching new tasks; tasks already running finish.
func (d *Dispatcher) RunAll(ctx context.Context, devices []inventory.Device) []inspect.Outcome {
	outcomes := make([]inspect.Outcome, len(devices))

	var wg sync.WaitGroup
	sem := make(chan struct{}, d.workers)

	d.logger.Info().Int("devices", len(devices)).Int("workers", d.workers).Msg("inspection run starting")

	for i, dev := range devices {
		select {
		case <-ctx.Done():
			d.logger.Warn().Err(ctx.Err()).Msg("run cancelled, not dispatching remaining devices")
			for j := i; j < len(devices); j++ {
				outcomes[j] = inspect.Outcome{Host: devices[j].Host, Err: ctx.Err()}
			}
			wg.Wait()
			return outcomes
		default:
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, dev inventory.Device) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[idx] = d.runOne(ctx, dev)
		}(i, dev)
	}

	wg.Wait()

	done := 0
	for _, o := range outcomes {
		if o.Success {
			done++
		}
	}
	d.logger.Info().Int("succeeded", done).Int("failed", len(outcomes)-done).Msg("inspection run finished")
	return outcomes
}

// runOne executes a single task with panic isolation.
func (d *Dispatcher) runOne(ctx context.Context, dev inventory.Device) (outcome inspect.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Str("host", dev.Host).Interface("panic", r).Msg("inspection task panicked")
			outcome = inspect.Outcome{
				Host: dev.Host,
				Err:  fmt.Errorf("inspection task panicked: %v", r),
			}
		}
	}()

	if d.precheck != nil {
		d.precheck.Probe(ctx, dev.Host)
	}
	return d.inspector.Inspect(dev)
}
