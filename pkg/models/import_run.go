package models

import (
	"time"

	"github.com/google/uuid"
)

// Import run states. A run moves strictly forward through the pipeline
// states and terminates in Completed or Failed. Row-level problems do
// not fail a run; only format-level errors do.
const (
	ImportStateStarted     = "started"
	ImportStateReading     = "reading"
	ImportStateNormalizing = "normalizing"
	ImportStateResolving   = "resolving"
	ImportStateAggregating = "aggregating"
	ImportStatePersisting  = "persisting"
	ImportStateCompleted   = "completed"
	ImportStateFailed      = "failed"
)

// Warning kinds attached to an import run.
const (
	WarningResolutionConflict = "resolution_conflict"
	WarningComputationAnomaly = "computation_anomaly"
)

// RowError records a recoverable per-row failure. The row is skipped
// and the run continues.
type RowError struct {
	RowIndex int    `json:"row_index"`
	Message  string `json:"message"`
}

// Warning records a non-fatal anomaly (duplicate normalized keys in
// the store, amounts floored at zero).
type Warning struct {
	Kind     string `json:"kind"`
	RowIndex int    `json:"row_index,omitempty"`
	Message  string `json:"message"`
}

// ImportCounts tracks created/updated/skipped record counts for one
// class of records within a run.
type ImportCounts struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// ImportRun is the audit record of one pipeline execution over a
// single source. It is owned by the coordinator while the run is in
// flight and immutable once finalized.
type ImportRun struct {
	ID         uuid.UUID    `json:"id"`
	SourceID   string       `json:"source_id"`
	State      string       `json:"state"`
	Entities   ImportCounts `json:"entities"`
	Sales      ImportCounts `json:"sales"`
	RowErrors  []RowError   `json:"row_errors"`
	Warnings   []Warning    `json:"warnings"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}

// Result is the caller-facing summary of a finished run.
type Result struct {
	RunID    uuid.UUID    `json:"run_id"`
	SourceID string       `json:"source_id"`
	State    string       `json:"state"`
	Entities ImportCounts `json:"entities"`
	Sales    ImportCounts `json:"sales"`
	Errors   []RowError   `json:"errors"`
	Warnings []Warning    `json:"warnings,omitempty"`
}
