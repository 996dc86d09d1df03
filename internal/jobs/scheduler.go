// Package jobs schedules the serve-mode background passes: retention
// sweep, health pass and the Docker size collector.
package jobs

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/opsledger/opsledger/internal/config"
	"github.com/opsledger/opsledger/internal/healthpass"
	"github.com/opsledger/opsledger/internal/ledger"
	"github.com/opsledger/opsledger/internal/probe"
)

// Scheduler manages background jobs
type Scheduler struct {
	cron      *cron.Cron
	schedule  config.ScheduleConfig
	sweeper   *ledger.Sweeper
	pass      *healthpass.Pass
	collector *probe.DockerCollector // nil when no Docker hosts configured
	recorder  *ledger.Recorder
}

// NewScheduler creates a scheduler over the given components. collector
// may be nil.
func NewScheduler(schedule config.ScheduleConfig, sweeper *ledger.Sweeper,
	pass *healthpass.Pass, collector *probe.DockerCollector, recorder *ledger.Recorder) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		schedule:  schedule,
		sweeper:   sweeper,
		pass:      pass,
		collector: collector,
		recorder:  recorder,
	}
}

// Start registers and starts the background jobs.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule.HealthPass, s.runHealthPass); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.schedule.Sweep, s.runSweep); err != nil {
		return err
	}
	if s.collector != nil {
		if _, err := s.cron.AddFunc(s.schedule.DockerSizes, s.runDockerSizes); err != nil {
			return err
		}
	}

	s.cron.Start()
	log.Println("Job scheduler started")
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Job scheduler stopped")
}

func (s *Scheduler) runHealthPass() {
	log.Println("Running health pass...")
	summary, err := s.pass.Run(context.Background())
	if err != nil {
		log.Printf("Health pass finished with errors: %v", err)
		return
	}
	log.Printf("Health pass complete: %d checks, %d new failures, heartbeat=%t",
		summary.ChecksRecorded, summary.NewFailures, summary.HeartbeatSent)
}

func (s *Scheduler) runSweep() {
	log.Println("Running retention sweep...")
	for _, res := range s.sweeper.Sweep(context.Background()) {
		if res.Err != nil {
			log.Printf("Sweep of %s failed: %v", res.Table, res.Err)
		}
	}
}

func (s *Scheduler) runDockerSizes() {
	log.Println("Running docker size collection...")
	ctx := context.Background()
	rows, errs := s.collector.Collect(ctx)
	for _, err := range errs {
		log.Printf("Docker size collection: %v", err)
	}
	if err := s.recorder.RecordDockerSizes(ctx, rows); err != nil {
		log.Printf("WARNING: %v", err)
		return
	}
	log.Printf("Recorded %d docker size rows", len(rows))
}
