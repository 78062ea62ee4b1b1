package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/arthur-debert/pipestore/pipe"
	"github.com/arthur-debert/pipestore/record"
	"github.com/arthur-debert/pipestore/types"
)

// Supported comparison operators.
const (
	OpEqual        = "="
	OpNotEqual     = "!="
	OpGreater      = ">"
	OpGreaterEqual = ">="
	OpLess         = "<"
	OpLessEqual    = "<="
	OpIn           = "in"
	OpNotIn        = "not in"
	OpMatch        = "match"
	OpBetween      = "between"
)

// operatorAliases maps accepted spellings to their canonical operator.
var operatorAliases = map[string]string{
	"=":       OpEqual,
	"==":      OpEqual,
	"!=":      OpNotEqual,
	"<>":      OpNotEqual,
	">":       OpGreater,
	">=":      OpGreaterEqual,
	"<":       OpLess,
	"<=":      OpLessEqual,
	"in":      OpIn,
	"not in":  OpNotIn,
	"match":   OpMatch,
	"between": OpBetween,
}

// NormalizeOperator returns the canonical spelling of op, or false when op
// is not supported.
func NormalizeOperator(op string) (string, bool) {
	key := strings.Join(strings.Fields(strings.ToLower(op)), " ")
	canonical, ok := operatorAliases[key]
	return canonical, ok
}

// Compile turns a key/operator/value triple into a predicate. All
// validation happens here so a bad filter fails when it is added, never
// while rows are being scanned.
func Compile(key, op string, value any) (pipe.Predicate, error) {
	canonical, ok := NormalizeOperator(op)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported operator %q", types.ErrInvalidFilterSpec, op)
	}

	field := func(rec *record.Map) (any, bool) {
		a := record.Access(rec)
		if !a.Has(key) {
			return nil, false
		}
		return a.Get(key), true
	}

	value = record.Normalize(value)

	switch canonical {
	case OpEqual:
		return func(rec *record.Map) bool {
			v, _ := field(rec)
			return record.Equal(v, value)
		}, nil
	case OpNotEqual:
		return func(rec *record.Map) bool {
			v, _ := field(rec)
			return !record.Equal(v, value)
		}, nil
	case OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
		test := ordering(canonical)
		return func(rec *record.Map) bool {
			v, ok := field(rec)
			if !ok || v == nil {
				return false
			}
			return test(record.Compare(v, value))
		}, nil
	case OpIn, OpNotIn:
		candidates := asList(value)
		negate := canonical == OpNotIn
		return func(rec *record.Map) bool {
			v, _ := field(rec)
			found := false
			for _, c := range candidates {
				if record.Equal(v, c) {
					found = true
					break
				}
			}
			return found != negate
		}, nil
	case OpMatch:
		pattern, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: match needs a string pattern, got %T", types.ErrInvalidFilterSpec, value)
		}
		re, err := compilePattern(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrInvalidFilterSpec, err)
		}
		return func(rec *record.Map) bool {
			v, ok := field(rec)
			if !ok || v == nil {
				return false
			}
			return re.MatchString(record.ToString(v))
		}, nil
	case OpBetween:
		bounds, ok := value.([]any)
		if !ok || len(bounds) != 2 {
			return nil, fmt.Errorf("%w: between needs exactly two bounds, got %v", types.ErrInvalidFilterSpec, value)
		}
		low, high := bounds[0], bounds[1]
		return func(rec *record.Map) bool {
			v, ok := field(rec)
			if !ok || v == nil {
				return false
			}
			return record.Compare(v, low) >= 0 && record.Compare(v, high) <= 0
		}, nil
	}

	return nil, fmt.Errorf("%w: unsupported operator %q", types.ErrInvalidFilterSpec, op)
}

func ordering(op string) func(int) bool {
	switch op {
	case OpGreater:
		return func(c int) bool { return c > 0 }
	case OpGreaterEqual:
		return func(c int) bool { return c >= 0 }
	case OpLess:
		return func(c int) bool { return c < 0 }
	default:
		return func(c int) bool { return c <= 0 }
	}
}

func asList(value any) []any {
	if list, ok := value.([]any); ok {
		return list
	}
	return []any{value}
}

// delimitedPattern matches "/body/flags" style patterns.
var delimitedPattern = regexp.MustCompile(`^/(.*)/([imsU]*)$`)

// compilePattern accepts a plain Go regexp or a /pattern/flags literal.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if m := delimitedPattern.FindStringSubmatch(pattern); m != nil {
		if m[2] != "" {
			return regexp.Compile("(?" + m[2] + ")" + m[1])
		}
		return regexp.Compile(m[1])
	}
	return regexp.Compile(pattern)
}
