package metrics

// MultiSink fans allocation events out to multiple sinks.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) each(fn func(Sink) error) error {
	for _, s := range m.Sinks {
		if err := fn(s); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiSink) RecordSuggestion(ev SuggestionEvent) error {
	return m.each(func(s Sink) error { return s.RecordSuggestion(ev) })
}

func (m *MultiSink) RecordCommit(ev CommitEvent) error {
	return m.each(func(s Sink) error { return s.RecordCommit(ev) })
}

func (m *MultiSink) RecordConflicts(evs []ConflictEvent) error {
	return m.each(func(s Sink) error { return s.RecordConflicts(evs) })
}

func (m *MultiSink) RecordOptimize(ev OptimizeEvent) error {
	return m.each(func(s Sink) error { return s.RecordOptimize(ev) })
}

func (m *MultiSink) RecordReopt(ev ReoptEvent) error {
	return m.each(func(s Sink) error { return s.RecordReopt(ev) })
}

func (m *MultiSink) RecordLifecycle(ev LifecycleEvent) error {
	return m.each(func(s Sink) error { return s.RecordLifecycle(ev) })
}
