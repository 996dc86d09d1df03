// Package healthpass runs the recurring fleet health pass: probe, record,
// alert on what is new since the previous pass, then advance the last-check
// marker and signal the dead-man's-switch.
package healthpass

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/opsledger/opsledger/internal/ledger"
	"github.com/opsledger/opsledger/internal/models"
	"github.com/opsledger/opsledger/internal/notification"
)

// Prober produces health check rows for the probe phase. probe.Pinger is
// the production implementation.
type Prober interface {
	Run(ctx context.Context) []models.HealthCheck
}

// Pass wires one health pass. The state store bounds the alert window so
// repeated runs do not re-alert on already-seen failures.
type Pass struct {
	state      *ledger.StateStore
	recorder   *ledger.Recorder
	queries    *ledger.Queries
	dispatcher *notification.Dispatcher
	heartbeat  *notification.HeartbeatSink // nil when unconfigured
	pinger     Prober                      // nil when no hosts configured
	author     string
	dryRun     bool
}

// New creates a health pass. heartbeat and pinger may be nil.
func New(state *ledger.StateStore, recorder *ledger.Recorder, queries *ledger.Queries,
	dispatcher *notification.Dispatcher, heartbeat *notification.HeartbeatSink,
	pinger Prober, author string, dryRun bool) *Pass {
	return &Pass{
		state:      state,
		recorder:   recorder,
		queries:    queries,
		dispatcher: dispatcher,
		heartbeat:  heartbeat,
		pinger:     pinger,
		author:     author,
		dryRun:     dryRun,
	}
}

// Summary reports what one pass did.
type Summary struct {
	Since          time.Time `json:"since"`
	ChecksRecorded int       `json:"checks_recorded"`
	NewFailures    int       `json:"new_failures"`
	Alerted        int       `json:"alerted"`
	HeartbeatSent  bool      `json:"heartbeat_sent"`
}

// Run executes one pass. Infrastructure failures (ledger, sinks) are
// reported in the returned error but never abort the remaining independent
// steps; a failed pass withholds the heartbeat so the external monitor
// notices.
func (p *Pass) Run(ctx context.Context) (Summary, error) {
	start := time.Now().UTC()
	var summary Summary
	var passErr error

	since, err := p.state.ReadLastCheck(ctx)
	if err != nil {
		return summary, fmt.Errorf("health pass: %w", err)
	}
	summary.Since = since

	// Probe phase: findings become ledger rows, never pass errors.
	if p.pinger != nil {
		checks := p.pinger.Run(ctx)
		if len(checks) > 0 {
			if err := p.recorder.RecordHealthChecks(ctx, checks); err != nil {
				log.Printf("WARNING: %v", err)
				passErr = err
			} else if !p.dryRun {
				// In dry-run the recorder wrote nothing, so the
				// summary must not claim otherwise.
				summary.ChecksRecorded = len(checks)
			}
		}
	}

	failures, err := p.queries.FailuresSince(ctx, since)
	if err != nil {
		log.Printf("WARNING: health pass window query: %v", err)
		passErr = err
	}
	summary.NewFailures = len(failures)

	for _, f := range failures {
		results := p.dispatcher.Dispatch(ctx, failureEvent(f, p.author))
		if len(results) > 0 {
			summary.Alerted++
		}
	}

	// Finalization: advance the marker to the pass start so failures
	// recorded while this pass ran fall into the next window.
	if err := p.state.WriteLastCheck(ctx, start); err != nil {
		log.Printf("WARNING: %v", err)
		passErr = err
	}

	if passErr == nil && p.heartbeat != nil && !p.dryRun {
		if err := p.heartbeat.Ping(ctx, "OK", time.Since(start)); err != nil {
			// A missed heartbeat is the external monitor's signal, not a
			// pass failure.
			log.Printf("Failed to send heartbeat: %v", err)
		} else {
			summary.HeartbeatSent = true
		}
	}

	return summary, passErr
}

func failureEvent(f ledger.Failure, author string) notification.Event {
	return notification.Event{
		Category:  notification.CategoryHealth,
		Subject:   f.Hostname,
		Operation: "Health Check",
		Status:    notification.StatusFromRecord(statusFor(f)),
		Detail:    f.Detail,
		Fields: []notification.Field{
			{Name: "Check", Value: f.Name, Inline: true},
			{Name: "Source", Value: f.Source, Inline: true},
		},
		Timestamp: f.Timestamp,
		Author:    author,
	}
}

func statusFor(f ledger.Failure) string {
	if f.Status == models.CheckWarning || f.Status == models.StatusPartial {
		return models.StatusPartial
	}
	return models.StatusFailed
}
