package audit

import "time"

// Outcome is the final disposition of one query attempt.
type Outcome string

const (
	OutcomeAllowed Outcome = "allowed"
	OutcomeBlocked Outcome = "blocked"
	OutcomeError   Outcome = "error"
)

// Decision is the immutable record of one access decision: who asked, what
// was asked, what was actually executed, which rows came back and how it
// ended. Once recorded it is never updated or deleted here; retention is an
// operational concern outside this core.
type Decision struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	RecordIDs []int64   `json:"record_ids,omitempty"`
	Query     string    `json:"query,omitempty"`
	Rewritten string    `json:"rewritten,omitempty"`
	Outcome   Outcome   `json:"outcome"`
	At        time.Time `json:"at"`
}
