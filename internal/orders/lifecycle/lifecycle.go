// Package lifecycle defines the production order stage sequence and status
// set. Stages model the physical workstations an order moves through; the
// operational status is orthogonal to the stage. All transition rules the
// engine enforces are expressed here as pure functions so the terminal-state
// and override paths stay centrally testable.
package lifecycle

import "prodline_backend/platform/apperr"

// Stage is the physical workstation a production order is currently at.
type Stage string

const (
	StageCutting   Stage = "cutting"
	StageSewing    Stage = "sewing"
	StageReview    Stage = "review"
	StagePackaging Stage = "packaging"
)

// stageSequence is the fixed forward order of workstations. Regular advances
// walk this list one step at a time; only the administrative override may
// place an order elsewhere.
var stageSequence = []Stage{StageCutting, StageSewing, StageReview, StagePackaging}

// Status is the operational state of a production order, orthogonal to stage.
type Status string

const (
	StatusInProduction Status = "in_production"
	StatusStopped      Status = "stopped"
	StatusPaused       Status = "paused"
	StatusCompleted    Status = "completed"
	StatusFinished     Status = "finished"
	StatusCancelled    Status = "cancelled"
)

// terminalStatuses are absorbing: once reached, no further status transition
// is permitted.
var terminalStatuses = map[Status]bool{
	StatusCompleted: true,
	StatusFinished:  true,
	StatusCancelled: true,
}

// Stages returns the workstation sequence in forward order.
func Stages() []Stage {
	out := make([]Stage, len(stageSequence))
	copy(out, stageSequence)
	return out
}

// Statuses returns all valid operational statuses.
func Statuses() []Status {
	return []Status{
		StatusInProduction,
		StatusStopped,
		StatusPaused,
		StatusCompleted,
		StatusFinished,
		StatusCancelled,
	}
}

// NextStage returns the stage following s in the fixed sequence.
// ok is false when s is the final stage or unknown.
func NextStage(s Stage) (next Stage, ok bool) {
	for i, stage := range stageSequence {
		if stage == s && i+1 < len(stageSequence) {
			return stageSequence[i+1], true
		}
	}
	return "", false
}

// IsFinalStage reports whether s is the last workstation in the sequence.
func IsFinalStage(s Stage) bool {
	return s == stageSequence[len(stageSequence)-1]
}

// IsTerminal reports whether the status is absorbing.
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	for _, stage := range stageSequence {
		if stage == s {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, status := range Statuses() {
		if status == s {
			return true
		}
	}
	return false
}

// ParseStage validates a wire/database value as a Stage.
func ParseStage(value string) (Stage, error) {
	s := Stage(value)
	if !s.Valid() {
		return "", apperr.Validation("unknown stage: " + value)
	}
	return s, nil
}

// ParseStatus validates a wire/database value as a Status.
func ParseStatus(value string) (Status, error) {
	s := Status(value)
	if !s.Valid() {
		return "", apperr.Validation("unknown status: " + value)
	}
	return s, nil
}
