package metrics

import (
	"context"

	coremetrics "github.com/microgrid-lab/mgsim/core/metrics"
	"github.com/microgrid-lab/mgsim/internal/eventbus"
)

// StartStepCollector subscribes to the step event bus and forwards every
// event to the sink. It stops when the context is canceled.
func StartStepCollector(ctx context.Context, bus *eventbus.TypedBus[coremetrics.StepEvent], sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				_ = sink.RecordStep(ev)
			}
		}
	}()
}
