package record

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// rank orders values of different kinds against each other.
func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case int64, float64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}

// Compare returns -1, 0 or 1 ordering a before, equal to, or after b.
//
// Numbers compare numerically regardless of int/float kind and strings that
// look like numbers compare numerically against numbers, the way values
// read back from a loosely typed collection file are expected to behave.
// Values of unrelated kinds are ordered nil < bool < number < string <
// everything else, and anything left compares by its string form.
func Compare(a, b any) int {
	a, b = Normalize(a), Normalize(b)

	if fa, ok := numeric(a); ok {
		if fb, ok := numeric(b); ok {
			return compareFloats(fa, fb)
		}
	}

	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch va := a.(type) {
	case nil:
		return 0
	case bool:
		vb := b.(bool)
		switch {
		case va == vb:
			return 0
		case !va:
			return -1
		default:
			return 1
		}
	case string:
		return strings.Compare(va, b.(string))
	}
	return strings.Compare(ToString(a), ToString(b))
}

// Equal reports loose equality: numbers are equal across kinds, nested
// records and sequences are compared element-wise.
func Equal(a, b any) bool {
	a, b = Normalize(a), Normalize(b)
	switch va := a.(type) {
	case *Map:
		vb, ok := b.(*Map)
		if !ok || va.Len() != vb.Len() {
			return false
		}
		equal := true
		va.Range(func(k string, v any) bool {
			other, exists := vb.Get(k)
			if !exists || !Equal(v, other) {
				equal = false
			}
			return equal
		})
		return equal
	case []any:
		vb, ok := b.([]any)
		if !ok || len(va) != len(vb) {
			return false
		}
		for i := range va {
			if !Equal(va[i], vb[i]) {
				return false
			}
		}
		return true
	}
	if _, ok := b.(*Map); ok {
		return false
	}
	if _, ok := b.([]any); ok {
		return false
	}
	return Compare(a, b) == 0
}

// ToFloat converts numbers and numeric strings to float64.
func ToFloat(v any) (float64, bool) {
	return numeric(Normalize(v))
}

// ToString converts any value to the string used for loose comparisons
// and for keys derived from field values.
func ToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case *Map:
		return t.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func numeric(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
