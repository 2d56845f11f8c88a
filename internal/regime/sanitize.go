package regime

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/aristath/sentinel-desk/internal/domain"
)

// Sanitize keeps only the keys declared for version whose values coerce to
// the declared kind. It returns the cleaned regime and the dropped keys in
// sorted order. Stale keys from an earlier version never survive.
func Sanitize(version domain.AllocatorVersion, r domain.Regime) (domain.Regime, []string, error) {
	fields, err := Fields(version)
	if err != nil {
		return nil, nil, err
	}

	declared := make(map[string]Field, len(fields))
	for _, f := range fields {
		declared[f.Key] = f
	}

	out := make(domain.Regime, len(r))
	var dropped []string
	for key, value := range r {
		f, ok := declared[key]
		if !ok {
			dropped = append(dropped, key)
			continue
		}
		coerced, ok := Coerce(f, value)
		if !ok {
			dropped = append(dropped, key)
			continue
		}
		out[key] = coerced
	}
	sort.Strings(dropped)
	return out, dropped, nil
}

// Coerce converts a decoded value to the field's kind. JSON-typed fields
// accept objects, arrays and JSON text.
func Coerce(f Field, value any) (any, bool) {
	switch f.Kind {
	case KindSelect:
		s, ok := value.(string)
		if !ok {
			return nil, false
		}
		for _, opt := range f.Options {
			if opt == s {
				return s, true
			}
		}
		return nil, false

	case KindNumber:
		var n float64
		switch v := value.(type) {
		case float64:
			n = v
		case float32:
			n = float64(v)
		case int:
			n = float64(v)
		case int64:
			n = float64(v)
		case json.Number:
			parsed, err := v.Float64()
			if err != nil {
				return nil, false
			}
			n = parsed
		default:
			return nil, false
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, false
		}
		if (f.Min != nil && n < *f.Min) || (f.Max != nil && n > *f.Max) {
			return nil, false
		}
		return n, true

	case KindToggle:
		b, ok := value.(bool)
		return b, ok

	case KindJSON:
		switch v := value.(type) {
		case map[string]any, []any:
			return v, true
		case string:
			var doc any
			if err := json.Unmarshal([]byte(v), &doc); err != nil {
				return nil, false
			}
			return doc, true
		}
		return nil, false
	}
	return nil, false
}

// ParseField parses raw operator input for key under version. Malformed
// numbers and malformed JSON are rejected with a ValidationError naming the
// field.
func ParseField(version domain.AllocatorVersion, key, raw string) (any, error) {
	f, ok := Lookup(version, key)
	if !ok {
		return nil, &domain.ValidationError{Field: key, Value: raw, Reason: "is not a regime field of allocator " + string(version.Normalize())}
	}

	raw = strings.TrimSpace(raw)
	switch f.Kind {
	case KindNumber:
		n, err := domain.ParseNumber(key, raw)
		if err != nil {
			return nil, err
		}
		if v, ok := Coerce(f, n); ok {
			return v, nil
		}
		return nil, &domain.ValidationError{Field: key, Value: raw, Reason: "is out of range"}

	case KindToggle:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, &domain.ValidationError{Field: key, Value: raw, Reason: "is not a boolean"}
		}
		return b, nil

	case KindJSON:
		var doc any
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, &domain.ValidationError{Field: key, Value: raw, Reason: "is not valid JSON: " + err.Error()}
		}
		switch doc.(type) {
		case map[string]any, []any:
			return doc, nil
		}
		return nil, &domain.ValidationError{Field: key, Value: raw, Reason: "must be a JSON object or array"}

	default:
		if v, ok := Coerce(f, raw); ok {
			return v, nil
		}
		return nil, &domain.ValidationError{Field: key, Value: raw, Reason: "must be one of [" + strings.Join(f.Options, " ") + "]"}
	}
}
