// Package task holds the download task model shared by the queue, the
// dispatcher and the ledger.
package task

import (
	"time"

	"github.com/mediagrab/mediagrab/internal/platform"
)

// Status of a download task. Transitions are one-directional:
// Pending -> Completed or Pending -> Failed. A task never re-enters Pending.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) String() string { return string(s) }

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task is one user-submitted URL awaiting or having undergone a fetch
// attempt. Rows are retained forever; only on-disk artifacts are reclaimed.
type Task struct {
	ID           int64
	UserID       int64
	ChatID       int64
	MessageID    int
	URL          string
	Platform     string
	Status       Status
	FilePath     string
	FileSize     int64
	ErrorMessage string
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// Descriptor is the unit of work placed on the download queue. The task row
// already exists in the ledger (status pending) when a descriptor is queued.
type Descriptor struct {
	TaskID    int64
	UserID    int64
	ChatID    int64
	MessageID int
	URL       string
	Platform  platform.Platform
}
