package events

// SuggestionEvent is published when a ranked suggestion set is served.
type SuggestionEvent struct {
	VesselID     string
	Count        int
	TopBerthID   string
	TopScore     float64
	DataDegraded bool
}
