package scenarios

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harborops/berthd/core/model"
)

// BerthDef declares one berth of the scenario port.
type BerthDef struct {
	ID       string  `yaml:"id"`
	Length   float64 `yaml:"length"`
	MaxDraft float64 `yaml:"max_draft"`
	Cranes   int     `yaml:"cranes"`
	Type     string  `yaml:"type"`
}

func (b BerthDef) ToModel() (model.Berth, error) {
	t, err := model.ParseVesselType(b.Type)
	if err != nil {
		return model.Berth{}, err
	}
	return model.Berth{
		ID:       b.ID,
		Length:   b.Length,
		MaxDraft: b.MaxDraft,
		Cranes:   b.Cranes,
		Type:     t,
		Active:   true,
	}, nil
}

// VesselDef declares one arrival. EtaOffsetHours is relative to the scenario
// start so scenario files stay clock-independent.
type VesselDef struct {
	ID             string  `yaml:"id"`
	LOA            float64 `yaml:"loa"`
	Beam           float64 `yaml:"beam"`
	Draft          float64 `yaml:"draft"`
	Type           string  `yaml:"type"`
	Priority       int     `yaml:"priority,omitempty"`
	CargoVolume    float64 `yaml:"cargo_volume"`
	EtaOffsetHours float64 `yaml:"eta_offset_hours"`
}

func (v VesselDef) ToModel() (model.Vessel, error) {
	t, err := model.ParseVesselType(v.Type)
	if err != nil {
		return model.Vessel{}, err
	}
	priority := v.Priority
	if priority == 0 {
		priority = model.PriorityNormal
	}
	return model.Vessel{
		ID:          v.ID,
		LOA:         v.LOA,
		Beam:        v.Beam,
		Draft:       v.Draft,
		Type:        t,
		Priority:    priority,
		CargoVolume: v.CargoVolume,
	}, nil
}

func (v VesselDef) Eta(start time.Time) time.Time {
	return start.Add(time.Duration(v.EtaOffsetHours * float64(time.Hour)))
}

// Expected states the scenario outcome.
type Expected struct {
	Placed     int `yaml:"placed"`
	Unassigned int `yaml:"unassigned"`
	Conflicts  int `yaml:"conflicts"`
}

// Scenario is one declarative allocation case: a port, a day of arrivals and
// the outcome the planner must reach.
type Scenario struct {
	Name         string      `yaml:"name"`
	Description  string      `yaml:"description,omitempty"`
	HorizonHours int         `yaml:"horizon_hours"`
	Berths       []BerthDef  `yaml:"berths"`
	Vessels      []VesselDef `yaml:"vessels"`
	Expected     Expected    `yaml:"expected"`
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.HorizonHours == 0 {
		sc.HorizonHours = 48
	}
	return &sc, nil
}
