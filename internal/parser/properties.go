package parser

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// PropertiesName is the file custom commands write into a run directory
// to contribute attribute values.
const PropertiesName = "properties.json"

// ReadProperties loads the properties.json of a run directory, if any.
// The file holds a flat JSON object; numeric values are taken as-is and
// booleans become 0/1. Other value types are rejected so that a typo in
// a custom parser fails loudly instead of silently dropping data.
//
// A missing file is not an error: the run then contributes only derived
// and log-parsed attributes.
func ReadProperties(dir string) (map[string]float64, error) {
	data, err := os.ReadFile(filepath.Join(dir, PropertiesName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", PropertiesName, err)
	}

	props := make(map[string]float64, len(raw))
	for name, v := range raw {
		switch val := v.(type) {
		case float64:
			props[name] = val
		case bool:
			if val {
				props[name] = 1
			} else {
				props[name] = 0
			}
		default:
			return nil, fmt.Errorf("property %q: unsupported value type %T", name, v)
		}
	}
	return props, nil
}
