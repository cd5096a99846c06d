package prediction

import "time"

// PredictedEta is the upstream arrival estimate for a vessel. The core never
// derives it from raw telemetry; AIS tracking and the prediction model live
// outside and feed this contract.
type PredictedEta struct {
	VesselID      string
	Timestamp     time.Time
	Confidence    float64 // [0, 1]
	ReasonFactors []string
	SpeedKnots    float64
	CourseDeg     float64
}

// EtaPredictor resolves the latest arrival estimate for a vessel. The second
// return value is false when no estimate is known.
type EtaPredictor interface {
	PredictedEta(vesselID string) (PredictedEta, bool)
}

// MockPredictor returns configured estimates, for tests and offline runs.
type MockPredictor struct {
	Etas map[string]PredictedEta
}

// PredictedEta returns the configured estimate for the vessel.
func (m MockPredictor) PredictedEta(id string) (PredictedEta, bool) {
	if m.Etas == nil {
		return PredictedEta{}, false
	}
	e, ok := m.Etas[id]
	return e, ok
}
