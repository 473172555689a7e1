package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Weather is a current-conditions snapshot for a district.
type Weather struct {
	District    string  `json:"district"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Description string  `json:"description"`
	WindSpeed   float64 `json:"wind_speed"`

	// HasTemperature is false when the upstream payload carried no temperature,
	// which callers treat as "no data".
	HasTemperature bool `json:"-"`
}

func (w *Weather) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	if v, ok := m["district"].(string); ok {
		w.District = v
	}
	if v, ok := m["description"].(string); ok {
		w.Description = v
	}
	if v, ok := AsFloat(m["temperature"]); ok {
		w.Temperature = v
		w.HasTemperature = true
	}
	if v, ok := AsFloat(m["humidity"]); ok {
		w.Humidity = v
	}
	if v, ok := AsFloat(m["wind_speed"]); ok {
		w.WindSpeed = v
	}
	return nil
}

// AsFloat accepts JSON numbers and numeric strings.
func AsFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
