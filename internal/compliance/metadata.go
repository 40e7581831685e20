package compliance

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/yungbote/minesafe-compliance/internal/domain/safety"
)

// number reads a numeric metadata value. Missing, non-numeric and
// non-finite values report ok=false.
func number(md map[string]any, key string) (float64, bool) {
	if md == nil {
		return 0, false
	}
	raw, ok := md[key]
	if !ok || raw == nil {
		return 0, false
	}
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if f != f || f > 1e15 || f < -1e15 {
		return 0, false
	}
	return f, true
}

// positive is number restricted to values > 0; zero and negatives count as absent.
func positive(md map[string]any, key string) (float64, bool) {
	f, ok := number(md, key)
	if !ok || f <= 0 {
		return 0, false
	}
	return f, true
}

func truthy(md map[string]any, key string) bool {
	if md == nil {
		return false
	}
	switch v := md[key].(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	case int:
		return v != 0
	case json.Number:
		return v.String() != "0" && v.String() != ""
	default:
		return true
	}
}

// Zone extracts the trimmed zone tag. ok reports whether the key was present
// at all; non-string values count as a blank zone.
func Zone(md map[string]any) (zone string, ok bool) {
	if md == nil {
		return "", false
	}
	raw, ok := md[safety.MetaZone]
	if !ok {
		return "", false
	}
	if s, isStr := raw.(string); isStr {
		return strings.TrimSpace(s), true
	}
	return "", true
}
