package suggest

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/harborops/berthd/core/constraint"
	"github.com/harborops/berthd/core/model"
	"github.com/harborops/berthd/core/schedule"
	"github.com/harborops/berthd/core/scoring"
)

// DefaultTopN is the number of suggestions returned when the caller does not
// ask for a specific count.
const DefaultTopN = 3

// Suggestion is one ranked feasible berth option for a vessel.
type Suggestion struct {
	ID        string
	VesselID  string
	BerthID   string
	Window    model.Window
	Score     float64
	Breakdown scoring.Breakdown
	Reasons   []string
	// SnapshotVersion pins the schedule state the suggestion was computed
	// against; committing it later against a changed schedule is rejected.
	SnapshotVersion uint64
	DataDegraded    bool
}

// ErrInfeasible is the sentinel every infeasibility error unwraps to.
var ErrInfeasible = errors.New("no feasible berth")

// NoFeasibleBerthError reports that no berth satisfies the hard constraints
// for the requested window, naming the first-failing rule and the earliest
// time at which some berth frees up.
type NoFeasibleBerthError struct {
	VesselID       string
	FirstViolation constraint.Violation
	EarliestRetry  time.Time
}

func (e *NoFeasibleBerthError) Error() string {
	return fmt.Sprintf("no feasible berth for vessel %s (%s: %s), earliest retry %s",
		e.VesselID, e.FirstViolation.RuleID, e.FirstViolation.Message,
		e.EarliestRetry.Format(time.RFC3339))
}

func (e *NoFeasibleBerthError) Unwrap() error { return ErrInfeasible }

// Service ranks feasible berths for one vessel by orchestrating the
// constraint validator and the scoring engine. It is stateless and safe for
// concurrent use across suggestion requests.
type Service struct {
	validator *constraint.Validator
	scorer    *scoring.Engine
}

// New creates a suggestion service.
func New(validator *constraint.Validator, scorer *scoring.Engine) *Service {
	return &Service{validator: validator, scorer: scorer}
}

// orderCandidates puts berths of the vessel's declared type family first;
// other compatible types follow as fallback, each group sorted by id.
func orderCandidates(vessel model.Vessel, berths []model.Berth) []model.Berth {
	ordered := append([]model.Berth(nil), berths...)
	sort.Slice(ordered, func(i, j int) bool {
		ei, ej := ordered[i].Type == vessel.Type, ordered[j].Type == vessel.Type
		if ei != ej {
			return ei
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

// physicallyEligible reports whether every violation is time-shiftable, so
// retrying with a later window could succeed.
func physicallyEligible(res constraint.Result) bool {
	for _, v := range res.Violations {
		switch v.RuleID {
		case constraint.RuleBerthInactive, constraint.RuleBerthType,
			constraint.RuleFitLOA, constraint.RuleFitBeam, constraint.RuleFitDraft:
			return false
		}
	}
	return true
}

// Suggest returns the top-N feasible berths for the vessel arriving at
// preferredEta, scored and annotated with reasoning. When no berth is
// feasible it returns a NoFeasibleBerthError.
func (s *Service) Suggest(snap schedule.Snapshot, vessel model.Vessel, berths []model.Berth, preferredEta time.Time, topN int) ([]Suggestion, error) {
	if topN <= 0 {
		topN = DefaultTopN
	}
	w := model.NewWindow(preferredEta, vessel.EstimatedDwell())

	var (
		suggestions    []Suggestion
		firstViolation *constraint.Violation
		earliestRetry  time.Time
	)
	buffer := s.validator.Config().Buffer()
	for _, berth := range orderCandidates(vessel, berths) {
		res := s.validator.Check(snap, vessel, berth, w, "")
		if !res.Feasible() {
			if firstViolation == nil {
				firstViolation = res.First()
			}
			// a retry time only makes sense when the berth fits the vessel
			// and merely the timing failed
			if physicallyEligible(res) {
				avail := snap.EarliestAvailability(berth.ID, preferredEta, buffer)
				avail = berth.NextMaintenanceEnd(avail)
				if earliestRetry.IsZero() || avail.Before(earliestRetry) {
					earliestRetry = avail
				}
			}
			continue
		}
		score, breakdown := s.scorer.Score(vessel, berth, w, preferredEta)
		suggestions = append(suggestions, Suggestion{
			ID:              uuid.NewString(),
			VesselID:        vessel.ID,
			BerthID:         berth.ID,
			Window:          w,
			Score:           score,
			Breakdown:       breakdown,
			Reasons:         breakdown.Reasons(vessel, berth),
			SnapshotVersion: snap.Version,
			DataDegraded:    res.DataDegraded,
		})
	}

	if len(suggestions) == 0 {
		if firstViolation == nil {
			firstViolation = &constraint.Violation{
				RuleID:  constraint.RuleBerthInactive,
				Message: "no candidate berths",
			}
		}
		if earliestRetry.IsZero() {
			earliestRetry = preferredEta
		}
		return nil, &NoFeasibleBerthError{
			VesselID:       vessel.ID,
			FirstViolation: *firstViolation,
			EarliestRetry:  earliestRetry,
		}
	}

	// score desc, then lower wait, then berth id for determinism
	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		if suggestions[i].Breakdown.Wait != suggestions[j].Breakdown.Wait {
			return suggestions[i].Breakdown.Wait < suggestions[j].Breakdown.Wait
		}
		return suggestions[i].BerthID < suggestions[j].BerthID
	})
	if len(suggestions) > topN {
		suggestions = suggestions[:topN]
	}
	return suggestions, nil
}
