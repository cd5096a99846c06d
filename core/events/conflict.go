package events

import "github.com/harborops/berthd/core/model"

// ConflictEvent is published after a detector sweep that changed the conflict
// ledger.
type ConflictEvent struct {
	Opened   []model.Conflict
	OpenNow  int
	Severity model.Severity // highest severity among newly opened conflicts
}
