package filmgrade

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/maps"
)

// Names returns field names in sorted order.
func (m CaptureMetadata) Names() []string {
	names := maps.Keys(m)
	sort.Strings(names)
	return names
}

// ParseMetadataJSON reads a camera dictionary from a JSON object, see FromDictionary.
func ParseMetadataJSON(data []byte) (CaptureMetadata, error) {
	var dict map[string]any
	if err := json.Unmarshal(data, &dict); err != nil {
		return nil, fmt.Errorf("parse metadata json: %w", err)
	}
	return FromDictionary(dict), nil
}

// MarshalJSON writes metadata as a flat JSON object that ParseMetadataJSON reads back.
//
// Rationals are written as "num/den" strings, coordinates as signed decimal degrees,
// non-finite numbers as null.
func (m CaptureMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m))
	for _, name := range m.Names() {
		out[name] = jsonValue(m[name])
	}
	return json.Marshal(out)
}

func jsonValue(v Value) any {
	switch tv := v.(type) {
	case String:
		return string(tv)
	case Int:
		return int64(tv)
	case Float:
		return finite(float64(tv))
	case Rational:
		return tv.String()
	case Rationals:
		fs := make([]any, 0, len(tv))
		for _, r := range tv {
			fs = append(fs, finite(r.Float64()))
		}
		return fs
	case Coordinate:
		return finite(tv.Signed())
	case Altitude:
		return finite(float64(tv))
	}
	return nil
}

func finite(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
