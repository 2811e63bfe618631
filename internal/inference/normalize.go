package inference

import (
	"fmt"
	"math"
	"reflect"
)

// NormalizeLabel narrows a predicted label to a JSON/CSV safe value:
// integral numbers become int64, other finite numbers float64, and
// non-finite floats their string spelling. Strings and bools pass through.
func NormalizeLabel(v any) any {
	switch t := v.(type) {
	case nil, string, bool, int64:
		return t
	case float64:
		return narrowFloat(t)
	case float32:
		return narrowFloat(float64(t))
	case fmt.Stringer:
		return t.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return fmt.Sprint(u)
		}
		return int64(u)
	case reflect.Float32, reflect.Float64:
		return narrowFloat(rv.Float())
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	default:
		return fmt.Sprint(v)
	}
}

func narrowFloat(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	// 2^53 bounds the integers a float64 holds exactly.
	if f == math.Trunc(f) && math.Abs(f) <= 1<<53 {
		return int64(f)
	}
	return f
}

// NormalizeProbabilities copies vec, replacing non-finite entries with 0.
func NormalizeProbabilities(vec []float64) []float64 {
	out := make([]float64, len(vec))
	for i, p := range vec {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			continue
		}
		out[i] = p
	}
	return out
}
