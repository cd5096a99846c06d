package constraint

import (
	"fmt"

	"github.com/harborops/berthd/core/model"
	"github.com/harborops/berthd/core/schedule"
)

// Hard constraint rule identifiers. Violations always carry one of these so
// callers can act on the specific rule that failed.
const (
	RuleBerthInactive = "berth_inactive"
	RuleBerthType     = "berth_type"
	RuleFitLOA        = "physical_fit_loa"
	RuleFitBeam       = "physical_fit_beam"
	RuleFitDraft      = "physical_fit_draft"
	RuleTimeOverlap   = "time_overlap"
	RuleMaintenance   = "maintenance_window"
	RuleTidalWindow   = "tidal_window"
	RuleWeatherUnsafe = "weather_unsafe"
	RuleResourcePilot = "resource_pilot"
	RuleResourceTug   = "resource_tug"
	RuleResourceCrane = "resource_crane"
)

// Violation describes one failed hard constraint.
type Violation struct {
	RuleID   string
	Severity model.Severity
	Message  string
}

// Result summarizes a validation run.
type Result struct {
	Checked    int
	Satisfied  int
	Violations []Violation
	// DataDegraded is set when an upstream feed (weather, resources, tides)
	// was missing and a conservative default was substituted.
	DataDegraded bool
}

// Feasible reports whether the triple passed every hard constraint.
func (r Result) Feasible() bool { return len(r.Violations) == 0 }

// First returns the first violation, or nil when feasible.
func (r Result) First() *Violation {
	if len(r.Violations) == 0 {
		return nil
	}
	return &r.Violations[0]
}

func (r *Result) check(ok bool, v Violation) {
	r.Checked++
	if ok {
		r.Satisfied++
		return
	}
	r.Violations = append(r.Violations, v)
}

// WeatherProvider resolves the blended operational impact factor for a berth
// location over a window. The second return value is false when no data
// covers the window.
type WeatherProvider interface {
	ImpactFactor(location string, w model.Window) (float64, bool)
}

// ResourcePool reports how many units of a resource type are obtainable over
// a window, beyond what the schedule snapshot already reserves.
type ResourcePool interface {
	Available(t model.ResourceType, w model.Window) int
}

// Validator gates assignments on the hard physical and safety constraints.
// It is a pure function of a schedule snapshot and the reference series and
// may run concurrently across suggestion requests.
type Validator struct {
	cfg       Config
	tides     model.TideTable
	weather   WeatherProvider
	resources ResourcePool
}

// New creates a Validator. Weather and resources may be nil when the feeds
// are not wired; checks then degrade to conservative defaults and flag
// reduced confidence on the result.
func New(cfg Config, tides model.TideTable, weather WeatherProvider, resources ResourcePool) *Validator {
	cfg.SetDefaults()
	return &Validator{cfg: cfg, tides: tides, weather: weather, resources: resources}
}

// Config returns the active configuration.
func (v *Validator) Config() Config { return v.cfg }

// Check validates a (vessel, berth, window) triple against the snapshot.
// exclude names an assignment id ignored by the overlap check, for
// re-validation of an existing entry. An inactive berth short-circuits: the
// remaining checks are meaningless against a closed berth.
func (v *Validator) Check(snap schedule.Snapshot, vessel model.Vessel, berth model.Berth, w model.Window, exclude string) Result {
	var res Result

	res.check(berth.Active, Violation{
		RuleID:   RuleBerthInactive,
		Severity: model.SeverityCritical,
		Message:  fmt.Sprintf("berth %s is not in service", berth.ID),
	})
	if !berth.Active {
		return res
	}

	v.checkPhysicalFit(&res, vessel, berth)
	v.checkOverlap(&res, snap, berth, w, exclude)
	v.checkMaintenance(&res, berth, w)
	v.checkTide(&res, vessel, w)
	v.checkWeather(&res, berth, w)
	v.checkResources(&res, snap, vessel, w)
	return res
}

func (v *Validator) checkPhysicalFit(res *Result, vessel model.Vessel, berth model.Berth) {
	res.check(vessel.Type.CompatibleWith(berth.Type), Violation{
		RuleID:   RuleBerthType,
		Severity: model.SeverityCritical,
		Message:  fmt.Sprintf("%s vessel cannot be worked at %s berth %s", vessel.Type, berth.Type, berth.ID),
	})
	res.check(vessel.LOA <= berth.Length, Violation{
		RuleID:   RuleFitLOA,
		Severity: model.SeverityCritical,
		Message:  fmt.Sprintf("loa %.2fm exceeds berth length %.2fm", vessel.LOA, berth.Length),
	})
	if berth.MaxBeam > 0 {
		res.check(vessel.Beam <= berth.MaxBeam, Violation{
			RuleID:   RuleFitBeam,
			Severity: model.SeverityCritical,
			Message:  fmt.Sprintf("beam %.2fm exceeds berth max beam %.2fm", vessel.Beam, berth.MaxBeam),
		})
	}
	res.check(vessel.Draft <= berth.MaxDraft, Violation{
		RuleID:   RuleFitDraft,
		Severity: model.SeverityCritical,
		Message:  fmt.Sprintf("draft %.2fm exceeds berth max draft %.2fm", vessel.Draft, berth.MaxDraft),
	})
}

func (v *Validator) checkOverlap(res *Result, snap schedule.Snapshot, berth model.Berth, w model.Window, exclude string) {
	buffer := v.cfg.Buffer()
	for _, a := range snap.ActiveAtBerth(berth.ID) {
		if a.ID == exclude {
			continue
		}
		if a.Window.OverlapsWithBuffer(w, buffer) {
			res.check(false, Violation{
				RuleID:   RuleTimeOverlap,
				Severity: model.SeverityCritical,
				Message:  fmt.Sprintf("window collides with assignment %s (vessel %s) within the %s buffer", a.ID, a.VesselID, buffer),
			})
			return
		}
	}
	res.check(true, Violation{})
}

func (v *Validator) checkMaintenance(res *Result, berth model.Berth, w model.Window) {
	m, blocked := berth.UnderMaintenance(w)
	msg := ""
	if blocked {
		msg = fmt.Sprintf("berth %s under maintenance until %s (%s)", berth.ID, m.Window.To.Format("2006-01-02 15:04"), m.Reason)
	}
	res.check(!blocked, Violation{
		RuleID:   RuleMaintenance,
		Severity: model.SeverityCritical,
		Message:  msg,
	})
}

func (v *Validator) checkTide(res *Result, vessel model.Vessel, w model.Window) {
	if !vessel.DeepDraft(v.cfg.DeepDraftMeters) {
		res.check(true, Violation{})
		return
	}
	high, ok := v.tides.NearestHighTide(w.From)
	if !ok {
		// no tide series for a deep-draft vessel: fail closed
		res.DataDegraded = true
		res.check(false, Violation{
			RuleID:   RuleTidalWindow,
			Severity: model.SeverityHigh,
			Message:  "requires tide wait: no tide data covering the arrival",
		})
		return
	}
	dist := w.From.Sub(high.Timestamp)
	if dist < 0 {
		dist = -dist
	}
	res.check(dist <= v.cfg.TideTolerance(), Violation{
		RuleID:   RuleTidalWindow,
		Severity: model.SeverityHigh,
		Message:  fmt.Sprintf("requires tide wait: nearest high tide at %s is %s from the eta", high.Timestamp.Format("15:04"), dist.Round(0)),
	})
}

// exposureMargin tightens the weather floor for berths more exposed to
// open water.
func exposureMargin(e model.ExposureClass) float64 {
	switch e {
	case model.ExposureExposed:
		return 0.15
	case model.ExposureModerate:
		return 0.05
	default:
		return 0
	}
}

func (v *Validator) checkWeather(res *Result, berth model.Berth, w model.Window) {
	factor := v.cfg.MissingWeatherFactor
	if v.weather != nil {
		if f, ok := v.weather.ImpactFactor(berth.ID, w); ok {
			factor = f
		} else {
			res.DataDegraded = true
		}
	} else {
		res.DataDegraded = true
	}
	floor := v.cfg.WeatherFloor + exposureMargin(berth.Exposure)
	res.check(factor >= floor, Violation{
		RuleID:   RuleWeatherUnsafe,
		Severity: model.SeverityHigh,
		Message:  fmt.Sprintf("weather impact %.2f below safe floor %.2f for %s berth", factor, floor, berth.Exposure),
	})
}

func (v *Validator) checkResources(res *Result, snap schedule.Snapshot, vessel model.Vessel, w model.Window) {
	demand := model.DemandFor(vessel)
	if v.resources == nil {
		// resource feed not wired: assume obtainable, flag reduced confidence
		res.DataDegraded = true
		res.check(true, Violation{})
		res.check(true, Violation{})
		res.check(true, Violation{})
		return
	}
	checks := []struct {
		rule   string
		typ    model.ResourceType
		needed int
	}{
		{RuleResourcePilot, model.ResourcePilot, demand.Pilots},
		{RuleResourceTug, model.ResourceTug, demand.Tugs},
		{RuleResourceCrane, model.ResourceCrane, demand.Cranes},
	}
	for _, c := range checks {
		avail := v.resources.Available(c.typ, w)
		res.check(avail >= c.needed, Violation{
			RuleID:   c.rule,
			Severity: model.SeverityMedium,
			Message:  fmt.Sprintf("%d of %d %ss available in window", avail, c.needed, c.typ),
		})
	}
}
