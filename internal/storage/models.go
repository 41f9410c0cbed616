package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateHash is returned when an insert violates the unique
// constraint on content_hash. Content is addressed by its own digest,
// so a duplicate hash means the exact content already exists.
var ErrDuplicateHash = errors.New("content hash already exists")

// ContentRecord is one stored piece of generated learning content.
// Records are immutable once written; updated_at is bookkeeping only.
type ContentRecord struct {
	ContentHash   string
	Content       string
	UserMessage   string
	Topics        []string
	Languages     []string
	Frameworks    []string
	Level         string
	LearningStyle string
	Model         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Selector identifies one enumeration combination for existence checks.
type Selector struct {
	Topic         string
	Language      string
	Framework     string
	Level         string
	LearningStyle string
}

// Run is the persisted summary of one generation driver run.
type Run struct {
	ID         string
	Model      string
	Generated  int
	Skipped    int
	Errors     int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Feedback is a learner rating attached to a content record. Rows are
// removed automatically when the referenced content is deleted.
type Feedback struct {
	ID          string
	ContentHash string
	Rating      int
	Notes       string
	CreatedAt   time.Time
}
