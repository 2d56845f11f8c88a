// Package ticks folds server decision records and locally synthesized ones
// into a single, deduplicated, newest-first history.
package ticks

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/sentinel-desk/internal/domain"
	"github.com/google/uuid"
)

// TimestampLayout is fixed width, so lexicographic order equals time order.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// DecisionKey is the payload key a synthetic tick stores the raw response under.
const DecisionKey = "decision"

// Epoch is the normalized form of a missing or unparseable timestamp.
var Epoch = time.Unix(0, 0).UTC().Format(TimestampLayout)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// millisThreshold separates unix seconds from unix milliseconds.
const millisThreshold = 1e11

// FormatTime renders t in the normalized layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// NormalizeTimestamp converts a loosely typed timestamp (string, unix seconds
// or unix milliseconds) into TimestampLayout. Anything else becomes Epoch.
func NormalizeTimestamp(raw any) string {
	switch v := raw.(type) {
	case nil:
		return Epoch
	case string:
		return normalizeString(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return Epoch
		}
		return fromUnix(f)
	case float64:
		return fromUnix(v)
	case float32:
		return fromUnix(float64(v))
	case int:
		return fromUnix(float64(v))
	case int64:
		return fromUnix(float64(v))
	case time.Time:
		if v.IsZero() {
			return Epoch
		}
		return FormatTime(v)
	default:
		return Epoch
	}
}

func normalizeString(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return Epoch
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return FormatTime(t)
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromUnix(f)
	}
	return Epoch
}

func fromUnix(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Epoch
	}
	if math.Abs(f) >= millisThreshold {
		return FormatTime(time.UnixMilli(int64(f)))
	}
	sec, frac := math.Modf(f)
	return FormatTime(time.Unix(int64(sec), int64(frac*1e9)))
}

// Normalize returns t with its timestamp in TimestampLayout.
func Normalize(t domain.Tick) domain.Tick {
	t.Timestamp = NormalizeTimestamp(t.Timestamp)
	return t
}

// FromDocument parses a tick out of a loosely shaped decision document. The
// id is read from tick_id or id; the timestamp from timestamp, created_at or
// ts. The whole document is kept as the payload. ok is false when the
// document carries no usable id.
func FromDocument(doc map[string]any) (tick domain.Tick, ok bool) {
	if doc == nil {
		return domain.Tick{}, false
	}
	tick.ID = firstString(doc, "tick_id", "id")
	tick.Timestamp = NormalizeTimestamp(firstValue(doc, "timestamp", "created_at", "ts"))
	tick.Metadata = metadataFrom(doc)
	tick.Payload = doc
	tick.Explanation = doc["explanation"]
	tick.RiskMetrics = numericMap(doc["risk_metrics"])
	return tick, tick.ID != ""
}

// Synthesize fabricates a client-side tick for a decision response that had
// no identifier. The raw response is kept under DecisionKey.
func Synthesize(payload map[string]any, now time.Time) domain.Tick {
	tick := domain.Tick{
		ID:        uuid.New().String(),
		Timestamp: FormatTime(now),
		Payload:   map[string]any{DecisionKey: payload},
		Synthetic: true,
	}
	if payload != nil {
		tick.Metadata = metadataFrom(payload)
		tick.Explanation = payload["explanation"]
		tick.RiskMetrics = numericMap(payload["risk_metrics"])
	}
	syntheticTotal.Inc()
	return tick
}

// DecisionDocument returns the raw decision a tick was built from: the
// reserved payload entry for synthetic ticks, the payload itself otherwise.
func DecisionDocument(t domain.Tick) map[string]any {
	if t.Synthetic {
		if doc, ok := t.Payload[DecisionKey].(map[string]any); ok {
			return doc
		}
	}
	return t.Payload
}

func metadataFrom(doc map[string]any) domain.TickMetadata {
	nested, _ := doc["metadata"].(map[string]any)
	field := func(key string) string {
		if v := firstString(nested, key); v != "" {
			return v
		}
		return firstString(doc, key)
	}
	return domain.TickMetadata{
		PlanID:      field("plan_id"),
		WindowStart: field("window_start"),
		WindowEnd:   field("window_end"),
	}
}

func firstValue(doc map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := doc[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(doc map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := doc[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		case int, int64:
			return fmt.Sprint(v)
		}
	}
	return ""
}

func numericMap(raw any) map[string]float64 {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if f, ok := toFloat(v); ok {
			out[k] = f
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
