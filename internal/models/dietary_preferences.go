package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
)

// Legacy rows were written double-encoded; one extra level is plenty in practice.
const maxDietaryDecodeDepth = 3

// DietaryPreferences is the typed form of the user_profiles.dietary_preferences blob.
// The canonical wire form is a JSON object; every read path goes through ParseDietaryPreferences.
type DietaryPreferences struct {
	Type string `json:"type,omitempty"`
	Goal string `json:"goal,omitempty"`
}

func (d DietaryPreferences) IsZero() bool {
	return d.Type == "" && d.Goal == ""
}

// String returns the canonical JSON object encoding.
func (d DietaryPreferences) String() string {
	encoded, err := json.Marshal(struct {
		Type string `json:"type,omitempty"`
		Goal string `json:"goal,omitempty"`
	}(d))
	if err != nil {
		return "{}"
	}
	return string(encoded)
}

func (d *DietaryPreferences) UnmarshalJSON(data []byte) error {
	*d = parseDietaryJSON(data, 0)
	return nil
}

func (d *DietaryPreferences) Scan(src any) error {
	*d = ParseDietaryPreferences(src)
	return nil
}

func (d DietaryPreferences) Value() (driver.Value, error) {
	return d.String(), nil
}

// ParseDietaryPreferences accepts a JSON string (optionally double-encoded), raw bytes, a decoded map,
// the typed value or nil. Malformed input yields the empty value instead of an error.
func ParseDietaryPreferences(raw any) DietaryPreferences {
	switch value := raw.(type) {
	case nil:
		return DietaryPreferences{}
	case DietaryPreferences:
		return value
	case *DietaryPreferences:
		if value == nil {
			return DietaryPreferences{}
		}
		return *value
	case string:
		return parseDietaryJSON([]byte(value), 0)
	case []byte:
		return parseDietaryJSON(value, 0)
	case json.RawMessage:
		return parseDietaryJSON(value, 0)
	case map[string]any:
		return dietaryFromMap(value)
	default:
		return DietaryPreferences{}
	}
}

func parseDietaryJSON(data []byte, depth int) DietaryPreferences {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || depth > maxDietaryDecodeDepth {
		return DietaryPreferences{}
	}

	switch trimmed[0] {
	case '"':
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return DietaryPreferences{}
		}
		return parseDietaryJSON([]byte(inner), depth+1)
	case '{':
		var decoded map[string]any
		if err := json.Unmarshal(trimmed, &decoded); err != nil {
			return DietaryPreferences{}
		}
		return dietaryFromMap(decoded)
	default:
		return DietaryPreferences{}
	}
}

func dietaryFromMap(values map[string]any) DietaryPreferences {
	var prefs DietaryPreferences
	if dietType, ok := values["type"].(string); ok {
		prefs.Type = dietType
	} else if dietType, ok := values["diet_type"].(string); ok {
		prefs.Type = dietType
	}
	if goal, ok := values["goal"].(string); ok {
		prefs.Goal = goal
	}
	return prefs
}
