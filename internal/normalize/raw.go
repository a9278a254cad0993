package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/opengrove/groupfeed/internal/types"
)

// Accessors over types.RawItem. Backend records arrive with inconsistent field
// names and numeric encodings, so every read goes through these rather than
// direct map indexing. None of them mutate the record.

func rawString(r types.RawItem, keys ...string) string {
	for _, k := range keys {
		if v, ok := r[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func rawInt(r types.RawItem, keys ...string) (int64, bool) {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		if n, ok := toInt64(v); ok {
			return n, true
		}
	}
	return 0, false
}

func rawCount(r types.RawItem, keys ...string) int {
	n, ok := rawInt(r, keys...)
	if !ok || n < 0 {
		return 0
	}
	return int(n)
}

func rawBool(r types.RawItem, keys ...string) bool {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case bool:
			return t
		case string:
			return t == "true" || t == "1"
		case float64:
			return t != 0
		}
	}
	return false
}

func rawMap(r types.RawItem, keys ...string) types.RawItem {
	for _, k := range keys {
		if v, ok := r[k]; ok {
			if m, ok := v.(map[string]any); ok {
				return types.RawItem(m)
			}
		}
	}
	return nil
}

func rawSlice(r types.RawItem, keys ...string) []any {
	for _, k := range keys {
		if v, ok := r[k]; ok {
			if s, ok := v.([]any); ok {
				return s
			}
		}
	}
	return nil
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case float64:
		return int64(t), true
	case int:
		return int64(t), true
	case int64:
		return t, true
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	}
	return 0, false
}

// rawTime parses a timestamp from the first key that yields one. Accepted
// encodings: RFC3339, RFC3339 without zone, and unix seconds.
func rawTime(r types.RawItem, keys ...string) time.Time {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
				if ts, err := time.Parse(layout, t); err == nil {
					return ts
				}
			}
		case float64:
			if t > 0 {
				return time.Unix(int64(t), 0).UTC()
			}
		}
	}
	return time.Time{}
}
