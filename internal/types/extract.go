package types

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// =============================================================================
// LOOSE VALUE EXTRACTION
// =============================================================================
//
// Model output is only loosely typed: a field that should be an integer may
// arrive as 12, 12.0, "12" or "12.0", and a string field may arrive as a
// number. These helpers coerce the values a json.Decoder produces with
// UseNumber enabled:
//   - string
//   - json.Number
//   - float64:  when decoded without UseNumber
//   - bool
//   - nil:      explicit JSON null
//   - map[string]interface{}, []interface{}: never coerced

// offsetLimit bounds coerced integers so later arithmetic cannot overflow.
const offsetLimit = 1 << 53

// ExtractString extracts a string representation of a scalar value.
// Returns ("", false) for null and composite values.
func ExtractString(v interface{}) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < offsetLimit {
			return strconv.FormatInt(int64(x), 10), true
		}
		return strconv.FormatFloat(x, 'g', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}

// ExtractInt extracts an integer from a number or numeric string.
// Non-integral, non-finite and non-numeric values report false. Magnitudes
// beyond 2^53 are clamped.
func ExtractInt(v interface{}) (int, bool) {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return clampInt(float64(n)), true
		}
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return intFromFloat(f)
	case float64:
		return intFromFloat(x)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return clampInt(float64(n)), true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return intFromFloat(f)
	default:
		return 0, false
	}
}

func intFromFloat(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return clampInt(f), true
}

func clampInt(f float64) int {
	if f > offsetLimit {
		return offsetLimit
	}
	if f < -offsetLimit {
		return -offsetLimit
	}
	return int(f)
}
