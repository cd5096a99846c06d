// Package events defines the allocation related events emitted on the event bus.
//
// Available event types:
//   - SuggestionEvent: ranked berth suggestions served for a vessel
//   - CommitEvent: a suggestion accepted into the schedule
//   - LifecycleEvent: arrival, berthing or departure recorded on a call
//   - ConflictEvent: conflicts opened or resolved by a detector sweep
//   - ReoptEvent: outcome of a re-optimization run
package events
