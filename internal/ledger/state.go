package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/opsledger/opsledger/internal/models"
)

// bootstrapWindow is the "since" window returned on first run, before any
// health pass has recorded a last-check timestamp.
const bootstrapWindow = time.Hour

// StateStore reads and advances the singleton last-check marker used to
// bound the "new since last pass" alert window. At most one writer runs at
// a time by operational convention, so the read-then-write pair needs no
// locking beyond the store's own atomicity.
type StateStore struct {
	db     *gorm.DB
	dryRun bool
	now    func() time.Time
}

// NewStateStore creates a state store against the given database.
func NewStateStore(db *gorm.DB, dryRun bool) *StateStore {
	return &StateStore{
		db:     db,
		dryRun: dryRun,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ReadLastCheck returns the last health-check timestamp, defaulting to one
// hour ago when no row exists yet.
func (s *StateStore) ReadLastCheck(ctx context.Context) (time.Time, error) {
	var state models.HealthCheckState
	err := s.db.WithContext(ctx).First(&state, 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.now().Add(-bootstrapWindow), nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("reading last check: %w", err)
	}
	return state.LastCheck.UTC(), nil
}

// WriteLastCheck upserts the singleton row. The value only ever advances:
// a write older than the stored timestamp is a no-op.
func (s *StateStore) WriteLastCheck(ctx context.Context, t time.Time) error {
	t = t.UTC()

	if s.dryRun {
		log.Printf("[dry-run] would advance last check to %s", t.Format(time.RFC3339))
		return nil
	}

	var state models.HealthCheckState
	err := s.db.WithContext(ctx).First(&state, 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		state = models.HealthCheckState{ID: 1, LastCheck: t}
		if err := s.db.WithContext(ctx).Create(&state).Error; err != nil {
			return fmt.Errorf("%w: health check state: %v", ErrLedgerWrite, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading last check before write: %w", err)
	}

	if !t.After(state.LastCheck) {
		return nil
	}

	err = s.db.WithContext(ctx).Model(&models.HealthCheckState{}).
		Where("id = ?", 1).
		Update("last_check", t).Error
	if err != nil {
		return fmt.Errorf("%w: health check state: %v", ErrLedgerWrite, err)
	}
	return nil
}
