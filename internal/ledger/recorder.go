// Package ledger implements the operation ledger: an append-mostly event
// log written by operational runs and read by dashboards and the health
// pass. Rows are immutable once written; the version-history upsert and
// the singleton state row are the only exceptions.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/opsledger/opsledger/internal/models"
)

// ErrLedgerWrite marks a failed ledger write. Callers surface it as a
// secondary, distinctly-labeled warning. It must never mask the outcome
// of the operation being recorded, and must never suppress alert fan-out.
var ErrLedgerWrite = errors.New("ledger write failed")

// Publisher receives newly recorded ledger events for live streaming.
type Publisher interface {
	Publish(eventType string, payload interface{})
}

// Recorder appends operation outcomes to the ledger. In dry-run mode every
// write is skipped and logged instead.
type Recorder struct {
	db     *gorm.DB
	events Publisher
	dryRun bool
	now    func() time.Time
}

// NewRecorder creates a recorder against the given store.
func NewRecorder(db *gorm.DB, dryRun bool) *Recorder {
	return &Recorder{
		db:     db,
		dryRun: dryRun,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetPublisher attaches a live-event publisher. Optional; recording never
// depends on it.
func (r *Recorder) SetPublisher(p Publisher) {
	r.events = p
}

// RecordBackup appends one backup row. The caller records failed attempts
// too, with a FAILED_ filename and zero size.
func (r *Recorder) RecordBackup(ctx context.Context, b models.Backup) error {
	b.Hostname = normalizeHost(b.Hostname)
	b.Application = strings.TrimSpace(b.Application)
	if b.Timestamp.IsZero() {
		b.Timestamp = r.now()
	}

	if r.dryRun {
		log.Printf("[dry-run] would record backup %s/%s file=%s", b.Hostname, b.Application, b.FileName)
		return nil
	}

	if err := r.db.WithContext(ctx).Create(&b).Error; err != nil {
		return fmt.Errorf("%w: backup row for %s/%s: %v", ErrLedgerWrite, b.Hostname, b.Application, err)
	}
	r.publish("backup", b)
	return nil
}

// RecordUpdate upserts a version-history row. Re-observing the same
// (application, hostname, version) refreshes status and timestamp rather
// than duplicating.
func (r *Recorder) RecordUpdate(ctx context.Context, u models.Update) error {
	u.Hostname = normalizeHost(u.Hostname)
	u.Application = strings.TrimSpace(u.Application)
	if u.Status == "" {
		u.Status = models.StatusSuccess
	}
	if u.Timestamp.IsZero() {
		u.Timestamp = r.now()
	}

	if r.dryRun {
		log.Printf("[dry-run] would record update %s/%s version=%s status=%s", u.Hostname, u.Application, u.Version, u.Status)
		return nil
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "application"}, {Name: "hostname"}, {Name: "version"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"update_type", "update_subtype", "status", "timestamp",
		}),
	}).Create(&u).Error
	if err != nil {
		return fmt.Errorf("%w: update row for %s/%s %s: %v", ErrLedgerWrite, u.Hostname, u.Application, u.Version, err)
	}
	r.publish("update", u)
	return nil
}

// RecordMaintenance appends one maintenance row, written unconditionally
// even when the run failed.
func (r *Recorder) RecordMaintenance(ctx context.Context, m models.Maintenance) error {
	m.Hostname = normalizeHost(m.Hostname)
	m.Application = strings.TrimSpace(m.Application)
	if m.Timestamp.IsZero() {
		m.Timestamp = r.now()
	}

	if r.dryRun {
		log.Printf("[dry-run] would record maintenance %s/%s type=%s status=%s", m.Hostname, m.Application, m.MaintenanceType, m.Status)
		return nil
	}

	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("%w: maintenance row for %s/%s: %v", ErrLedgerWrite, m.Hostname, m.Application, err)
	}
	r.publish("maintenance", m)
	return nil
}

// RecordHealthChecks batch-inserts one row per check per host.
func (r *Recorder) RecordHealthChecks(ctx context.Context, checks []models.HealthCheck) error {
	if len(checks) == 0 {
		return nil
	}
	ts := r.now()
	for i := range checks {
		checks[i].Hostname = normalizeHost(checks[i].Hostname)
		if checks[i].Timestamp.IsZero() {
			checks[i].Timestamp = ts
		}
	}

	if r.dryRun {
		log.Printf("[dry-run] would record %d health check rows", len(checks))
		return nil
	}

	if err := r.db.WithContext(ctx).Create(&checks).Error; err != nil {
		return fmt.Errorf("%w: health check batch of %d: %v", ErrLedgerWrite, len(checks), err)
	}
	r.publish("health_checks", checks)
	return nil
}

// RecordRestore appends one restore/rollback/verify row.
func (r *Recorder) RecordRestore(ctx context.Context, rs models.Restore) error {
	rs.Hostname = normalizeHost(rs.Hostname)
	rs.Application = strings.TrimSpace(rs.Application)
	if rs.Operation == "" {
		rs.Operation = models.OpRestore
	}
	if rs.Timestamp.IsZero() {
		rs.Timestamp = r.now()
	}

	if r.dryRun {
		log.Printf("[dry-run] would record %s %s/%s source=%s status=%s", rs.Operation, rs.Hostname, rs.Application, rs.SourceFile, rs.Status)
		return nil
	}

	if err := r.db.WithContext(ctx).Create(&rs).Error; err != nil {
		return fmt.Errorf("%w: restore row for %s/%s: %v", ErrLedgerWrite, rs.Hostname, rs.Application, err)
	}
	r.publish("restore", rs)
	return nil
}

// RecordDockerSizes batch-inserts container size snapshots.
func (r *Recorder) RecordDockerSizes(ctx context.Context, sizes []models.DockerSize) error {
	if len(sizes) == 0 {
		return nil
	}
	ts := r.now()
	for i := range sizes {
		sizes[i].Hostname = normalizeHost(sizes[i].Hostname)
		if sizes[i].Timestamp.IsZero() {
			sizes[i].Timestamp = ts
		}
	}

	if r.dryRun {
		log.Printf("[dry-run] would record %d docker size rows", len(sizes))
		return nil
	}

	if err := r.db.WithContext(ctx).Create(&sizes).Error; err != nil {
		return fmt.Errorf("%w: docker size batch of %d: %v", ErrLedgerWrite, len(sizes), err)
	}
	r.publish("docker_sizes", sizes)
	return nil
}

// RecordRun appends one playbook run row.
func (r *Recorder) RecordRun(ctx context.Context, run models.PlaybookRun) error {
	run.Hostname = normalizeHost(run.Hostname)
	if run.Timestamp.IsZero() {
		run.Timestamp = r.now()
	}

	if r.dryRun {
		log.Printf("[dry-run] would record run %s on %s", run.Playbook, run.Hostname)
		return nil
	}

	if err := r.db.WithContext(ctx).Create(&run).Error; err != nil {
		return fmt.Errorf("%w: playbook run row for %s: %v", ErrLedgerWrite, run.Playbook, err)
	}
	r.publish("playbook_run", run)
	return nil
}

func (r *Recorder) publish(eventType string, payload interface{}) {
	if r.events != nil {
		r.events.Publish(eventType, payload)
	}
}

func normalizeHost(hostname string) string {
	return strings.ToLower(strings.TrimSpace(hostname))
}
