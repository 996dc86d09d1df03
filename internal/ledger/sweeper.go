package ledger

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/opsledger/opsledger/internal/config"
)

// Sweeper deletes ledger rows older than their table's horizon. The
// updates table is exempt: it is a version history, not a run log.
// Deletion is not transactional across tables; a failed table is reported
// and skipped, never rolled back.
type Sweeper struct {
	db        *gorm.DB
	retention config.RetentionConfig
	dryRun    bool
	now       func() time.Time
}

// NewSweeper creates a sweeper with the given retention horizons.
func NewSweeper(db *gorm.DB, retention config.RetentionConfig, dryRun bool) *Sweeper {
	return &Sweeper{
		db:        db,
		retention: retention,
		dryRun:    dryRun,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SweepResult reports what one pass deleted (or, in dry-run, would delete).
type SweepResult struct {
	Table   string `json:"table"`
	Deleted int64  `json:"deleted"`
	Err     error  `json:"-"`
}

func (s *Sweeper) tables() []struct {
	name    string
	horizon time.Duration
} {
	return []struct {
		name    string
		horizon time.Duration
	}{
		{"backups", s.retention.Default},
		{"maintenance", s.retention.Default},
		{"restores", s.retention.Default},
		{"playbook_runs", s.retention.Default},
		{"health_checks", s.retention.HealthCheck},
		{"docker_sizes", s.retention.DockerSizes},
	}
}

// Sweep runs one retention pass. Re-running with no expired rows is a
// no-op. In dry-run mode it counts expired rows without deleting.
func (s *Sweeper) Sweep(ctx context.Context) []SweepResult {
	now := s.now()
	results := make([]SweepResult, 0, 6)

	for _, t := range s.tables() {
		cutoff := now.Add(-t.horizon)

		if s.dryRun {
			var n int64
			err := s.db.WithContext(ctx).Table(t.name).Where("timestamp < ?", cutoff).Count(&n).Error
			if err != nil {
				log.Printf("Sweep preview failed for %s: %v", t.name, err)
				results = append(results, SweepResult{Table: t.name, Err: err})
				continue
			}
			log.Printf("[dry-run] would delete %d rows from %s older than %s", n, t.name, cutoff.Format(time.RFC3339))
			results = append(results, SweepResult{Table: t.name, Deleted: n})
			continue
		}

		res := s.db.WithContext(ctx).Exec("DELETE FROM "+t.name+" WHERE timestamp < ?", cutoff)
		if res.Error != nil {
			log.Printf("Sweep failed for %s: %v", t.name, res.Error)
			results = append(results, SweepResult{Table: t.name, Err: res.Error})
			continue
		}
		if res.RowsAffected > 0 {
			log.Printf("Swept %d rows from %s", res.RowsAffected, t.name)
		}
		results = append(results, SweepResult{Table: t.name, Deleted: res.RowsAffected})
	}

	return results
}
