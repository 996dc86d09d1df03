package notification

import (
	"context"
	"log"
	"time"

	"github.com/opsledger/opsledger/internal/config"
)

// Dispatcher attempts delivery of an event to every configured sink in
// sequence. Sinks are probed once at construction from configuration
// presence; there is no dynamic registry and no persisted sink state.
type Dispatcher struct {
	sinks  []Sink
	dryRun bool
}

// NewDispatcher builds the capability list from sink configuration. A sink
// with no configuration simply does not appear in the list.
func NewDispatcher(cfg config.SinkConfig, dryRun bool) *Dispatcher {
	var sinks []Sink
	if cfg.Discord != nil {
		sinks = append(sinks, NewDiscord(*cfg.Discord))
	}
	if cfg.Apprise != nil {
		sinks = append(sinks, NewApprise(*cfg.Apprise))
	}
	return &Dispatcher{sinks: sinks, dryRun: dryRun}
}

// NewDispatcherWithSinks creates a dispatcher over an explicit sink list.
func NewDispatcherWithSinks(sinks []Sink, dryRun bool) *Dispatcher {
	return &Dispatcher{sinks: sinks, dryRun: dryRun}
}

// Sinks returns the configured sinks.
func (d *Dispatcher) Sinks() []Sink {
	return d.sinks
}

// DeliveryResult reports one sink attempt.
type DeliveryResult struct {
	Sink string
	Err  error
}

// Dispatch applies the category delivery policy and attempts every
// configured sink. One sink's failure or latency delays but never prevents
// the attempt on the next sink. The returned slice has one entry per
// attempted sink; a policy-skipped event returns nil.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) []DeliveryResult {
	if !e.Category.DeliverOn(e.Status) {
		return nil
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	if d.dryRun {
		log.Printf("[dry-run] would notify %d sink(s): %s (%s)", len(d.sinks), e.Title(), e.Status)
		return nil
	}

	results := make([]DeliveryResult, 0, len(d.sinks))
	for _, sink := range d.sinks {
		err := sink.Send(ctx, e)
		if err != nil {
			log.Printf("Failed to send notification via %s: %v", sink.Name(), err)
		}
		results = append(results, DeliveryResult{Sink: sink.Name(), Err: err})
	}
	return results
}
