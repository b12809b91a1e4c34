package extract

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	reNumericOnly   = regexp.MustCompile(`^[\d,.\s円￥¥]+$`)
	reLeadingNumber = regexp.MustCompile(`^[-+]?(?:\d+(?:\.\d*)?|\.\d+)`)
	numberStrip     = strings.NewReplacer(",", "", "¥", "", "￥", "", "円", "")
)

// ParseNumber converts vendor values into a float.
// Numbers are returned as-is; strings are stripped of thousands separators,
// yen markers and whitespace, then the leading numeric prefix is read, so
// "2個" is 2. Anything unusable yields 0, which callers treat as "unknown".
func ParseNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		return parseNumberString(n)
	default:
		return 0
	}
}

func parseNumberString(s string) float64 {
	cleaned := strings.Join(strings.Fields(numberStrip.Replace(s)), "")
	if cleaned == "" {
		return 0
	}
	prefix := reLeadingNumber.FindString(cleaned)
	if prefix == "" {
		return 0
	}
	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// IsNumericOnly reports whether s holds nothing but digits, separators and yen markers.
func IsNumericOnly(s string) bool {
	return reNumericOnly.MatchString(strings.TrimSpace(s))
}
