// Package notification fans operation outcomes out to independently
// optional delivery sinks. A sink exists only if its configuration is
// present; a missing sink is skipped silently and one sink's failure never
// affects another. There is no queueing and no retry: a missed
// notification is not resent.
package notification

import (
	"context"
	"fmt"
	"time"
)

// Status is the normalized outcome carried in an alert payload.
type Status string

const (
	StatusSuccessful Status = "successful"
	StatusFailed     Status = "failed"
	StatusPartial    Status = "partial"
)

// StatusFromRecord maps a ledger status string (success/failed/partial)
// to the payload form.
func StatusFromRecord(s string) Status {
	switch s {
	case "success", "successful":
		return StatusSuccessful
	case "partial":
		return StatusPartial
	default:
		return StatusFailed
	}
}

// Category classifies the operation for delivery policy. The policy is
// category-dependent, not per-sink.
type Category int

const (
	CategoryBackup Category = iota
	CategoryRestore
	CategoryRollback
	CategoryDeploy
	CategoryBuild
	CategoryMaintenance
	CategoryHealth
	CategoryHeartbeat
)

// String returns the category label used in logs and payloads.
func (c Category) String() string {
	switch c {
	case CategoryBackup:
		return "backup"
	case CategoryRestore:
		return "restore"
	case CategoryRollback:
		return "rollback"
	case CategoryDeploy:
		return "deploy"
	case CategoryBuild:
		return "build"
	case CategoryMaintenance:
		return "maintenance"
	case CategoryHealth:
		return "health"
	case CategoryHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// DeliverOn reports whether an event with the given status should be
// delivered for this category. Backup-class operations always fire,
// routine maintenance and health fire on failure only, and the heartbeat
// fires on success only.
func (c Category) DeliverOn(status Status) bool {
	switch c {
	case CategoryBackup, CategoryRestore, CategoryRollback, CategoryDeploy, CategoryBuild:
		return true
	case CategoryMaintenance, CategoryHealth:
		return status != StatusSuccessful
	case CategoryHeartbeat:
		return status == StatusSuccessful
	default:
		return true
	}
}

// Field is one structured name/value pair in an alert payload.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Event is the normalized, transport-agnostic notification payload.
type Event struct {
	Category  Category
	Subject   string // e.g. application or host
	Operation string // e.g. "Backup", "Restore"
	Status    Status
	Detail    string
	Fields    []Field
	URL       string
	Timestamp time.Time
	Author    string
}

// Title derives the payload title as "{subject} {operation}".
func (e Event) Title() string {
	return fmt.Sprintf("%s %s", e.Subject, e.Operation)
}

// Body derives the payload body as "{Status}[ — {detail}]".
func (e Event) Body() string {
	body := capitalize(string(e.Status))
	if e.Detail != "" {
		body += " — " + e.Detail
	}
	return body
}

// Color returns the severity color for rich sinks.
func (e Event) Color() int {
	switch e.Status {
	case StatusSuccessful:
		return 0x00FF00 // green
	case StatusPartial:
		return 0xFFA500 // orange
	default:
		return 0xFF0000 // red
	}
}

// Sink is one independent delivery channel.
type Sink interface {
	// Name returns the unique identifier for this sink
	Name() string

	// Send delivers the event. Errors are isolated to the sink.
	Send(ctx context.Context, e Event) error
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
