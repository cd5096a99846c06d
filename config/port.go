package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harborops/berthd/core/model"
)

// PortData is the decoded port reference dataset: the static layout and
// environmental series the engine works against.
type PortData struct {
	Berths    []model.Berth
	Vessels   []model.Vessel
	Resources map[model.ResourceType][]string
	Tides     model.TideTable
	Weather   []model.WeatherSnapshot
}

type portFile struct {
	Berths []struct {
		ID              string  `json:"id" yaml:"id"`
		Name            string  `json:"name" yaml:"name"`
		Length          float64 `json:"length" yaml:"length"`
		MaxDraft        float64 `json:"max_draft" yaml:"max_draft"`
		MaxBeam         float64 `json:"max_beam" yaml:"max_beam"`
		Cranes          int     `json:"cranes" yaml:"cranes"`
		Type            string  `json:"type" yaml:"type"`
		Active          *bool   `json:"active" yaml:"active"`
		Exposure        string  `json:"exposure" yaml:"exposure"`
		PriorityCapable bool    `json:"priority_capable" yaml:"priority_capable"`
		Maintenance     []struct {
			From   time.Time `json:"from" yaml:"from"`
			To     time.Time `json:"to" yaml:"to"`
			Reason string    `json:"reason" yaml:"reason"`
		} `json:"maintenance" yaml:"maintenance"`
	} `json:"berths" yaml:"berths"`
	Vessels []struct {
		ID             string  `json:"id" yaml:"id"`
		Name           string  `json:"name" yaml:"name"`
		LOA            float64 `json:"loa" yaml:"loa"`
		Beam           float64 `json:"beam" yaml:"beam"`
		Draft          float64 `json:"draft" yaml:"draft"`
		Type           string  `json:"type" yaml:"type"`
		Priority       int     `json:"priority" yaml:"priority"`
		DangerousGoods string  `json:"dangerous_goods" yaml:"dangerous_goods"`
		CargoVolume    float64 `json:"cargo_volume" yaml:"cargo_volume"`
	} `json:"vessels" yaml:"vessels"`
	Resources map[string][]string `json:"resources" yaml:"resources"`
	Tides     []struct {
		Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
		Height    float64   `json:"height" yaml:"height"`
		Type      string    `json:"type" yaml:"type"`
	} `json:"tides" yaml:"tides"`
	Weather []struct {
		Timestamp    time.Time `json:"timestamp" yaml:"timestamp"`
		Location     string    `json:"location" yaml:"location"`
		WindSpeed    float64   `json:"wind_speed" yaml:"wind_speed"`
		WaveHeight   float64   `json:"wave_height" yaml:"wave_height"`
		Visibility   float64   `json:"visibility" yaml:"visibility"`
		ImpactFactor float64   `json:"impact_factor" yaml:"impact_factor"`
	} `json:"weather" yaml:"weather"`
}

// LoadPort reads and validates a port dataset file (yaml or json).
func LoadPort(path string) (*PortData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f portFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &f)
	case ".json":
		err = json.Unmarshal(raw, &f)
	default:
		return nil, fmt.Errorf("unsupported port dataset format: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("decode port dataset: %w", err)
	}
	return f.convert()
}

func (f portFile) convert() (*PortData, error) {
	data := &PortData{Resources: make(map[model.ResourceType][]string)}

	for _, b := range f.Berths {
		bt, err := model.ParseVesselType(b.Type)
		if err != nil {
			return nil, fmt.Errorf("berth %s: %w", b.ID, err)
		}
		exposure, err := parseExposure(b.Exposure)
		if err != nil {
			return nil, fmt.Errorf("berth %s: %w", b.ID, err)
		}
		berth := model.Berth{
			ID:              b.ID,
			Name:            b.Name,
			Length:          b.Length,
			MaxDraft:        b.MaxDraft,
			MaxBeam:         b.MaxBeam,
			Cranes:          b.Cranes,
			Type:            bt,
			Active:          b.Active == nil || *b.Active,
			Exposure:        exposure,
			PriorityCapable: b.PriorityCapable,
		}
		for _, m := range b.Maintenance {
			berth.Maintenance = append(berth.Maintenance, model.MaintenanceWindow{
				Window: model.Window{From: m.From, To: m.To},
				Reason: m.Reason,
			})
		}
		if err := berth.Validate(); err != nil {
			return nil, err
		}
		data.Berths = append(data.Berths, berth)
	}

	for _, v := range f.Vessels {
		vt, err := model.ParseVesselType(v.Type)
		if err != nil {
			return nil, fmt.Errorf("vessel %s: %w", v.ID, err)
		}
		priority := v.Priority
		if priority == 0 {
			priority = model.PriorityNormal
		}
		vessel := model.Vessel{
			ID:             v.ID,
			Name:           v.Name,
			LOA:            v.LOA,
			Beam:           v.Beam,
			Draft:          v.Draft,
			Type:           vt,
			Priority:       priority,
			DangerousGoods: v.DangerousGoods,
			CargoVolume:    v.CargoVolume,
		}
		if err := vessel.Validate(); err != nil {
			return nil, err
		}
		data.Vessels = append(data.Vessels, vessel)
	}

	for name, ids := range f.Resources {
		t, err := parseResourceType(name)
		if err != nil {
			return nil, err
		}
		data.Resources[t] = ids
	}

	for _, e := range f.Tides {
		tt := model.TideHigh
		if strings.EqualFold(e.Type, "low") {
			tt = model.TideLow
		}
		data.Tides = append(data.Tides, model.TidalWindow{
			Timestamp: e.Timestamp, Height: e.Height, Type: tt,
		})
	}

	for _, w := range f.Weather {
		data.Weather = append(data.Weather, model.WeatherSnapshot{
			Timestamp:    w.Timestamp,
			Location:     w.Location,
			WindSpeed:    w.WindSpeed,
			WaveHeight:   w.WaveHeight,
			Visibility:   w.Visibility,
			ImpactFactor: model.ClampImpact(w.ImpactFactor),
		})
	}
	return data, nil
}

func parseExposure(s string) (model.ExposureClass, error) {
	switch strings.ToLower(s) {
	case "", "sheltered":
		return model.ExposureSheltered, nil
	case "moderate":
		return model.ExposureModerate, nil
	case "exposed":
		return model.ExposureExposed, nil
	default:
		return 0, fmt.Errorf("unknown exposure class %q", s)
	}
}

func parseResourceType(s string) (model.ResourceType, error) {
	switch strings.ToLower(strings.TrimSuffix(s, "s")) {
	case "pilot":
		return model.ResourcePilot, nil
	case "tug":
		return model.ResourceTug, nil
	case "crane":
		return model.ResourceCrane, nil
	default:
		return 0, fmt.Errorf("unknown resource type %q", s)
	}
}
