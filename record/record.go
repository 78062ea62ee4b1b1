// Package record implements the document tree stored in a collection.
//
// A record is an insertion-ordered map from string keys to values. Values
// form a small tagged union that every other package relies on:
//
//   - nil
//   - bool
//   - int64 and float64
//   - string
//   - []any (a sequence of values)
//   - *Map (a nested record)
//
// Map.Set normalises anything else that has an obvious mapping (Go integer
// kinds, float32, map[string]any, typed slices) so code reading a record
// only ever has to handle the kinds above.
package record

import (
	"fmt"
	"reflect"
	"sort"
)

// Map is an ordered string-keyed record. The zero value is not usable,
// create maps with New.
type Map struct {
	keys   []string
	values map[string]any
}

// New returns an empty record.
func New() *Map {
	return &Map{values: make(map[string]any)}
}

// FromPairs builds a record from alternating key/value arguments.
// It panics on an odd argument count or a non-string key, which is always
// a programming error at the call site.
func FromPairs(kv ...any) *Map {
	if len(kv)%2 != 0 {
		panic("record.FromPairs: odd number of arguments")
	}
	m := New()
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("record.FromPairs: key %v is not a string", kv[i]))
		}
		m.Set(key, kv[i+1])
	}
	return m
}

// FromNative converts a Go map into a record. Go maps carry no order, so
// keys are sorted to keep the result deterministic.
func FromNative(src map[string]any) *Map {
	m := New()
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m.Set(k, src[k])
	}
	return m
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order. The slice is a copy.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present, even with a nil value.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Set stores value under key. New keys are appended, existing keys keep
// their position.
func (m *Map) Set(key string, value any) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = Normalize(value)
}

// Delete removes key and reports whether it was present.
func (m *Map) Delete(key string) bool {
	if m == nil {
		return false
	}
	if _, exists := m.values[key]; !exists {
		return false
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return true
}

// Range calls fn for every entry in order until fn returns false.
// fn must not add or remove keys.
func (m *Map) Range(fn func(key string, value any) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// Clone returns a deep copy. Nested maps and sequences are copied too, so
// the clone can be mutated freely.
func (m *Map) Clone() *Map {
	if m == nil {
		return nil
	}
	out := &Map{
		keys:   make([]string, len(m.keys)),
		values: make(map[string]any, len(m.values)),
	}
	copy(out.keys, m.keys)
	for k, v := range m.values {
		out.values[k] = cloneValue(v)
	}
	return out
}

// Merge copies every top-level entry of other into m, overwriting
// existing keys.
func (m *Map) Merge(other *Map) {
	other.Range(func(k string, v any) bool {
		m.Set(k, cloneValue(v))
		return true
	})
}

// ToNative converts the record into plain Go maps and slices.
func (m *Map) ToNative() map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m.keys))
	for _, k := range m.keys {
		out[k] = toNative(m.values[k])
	}
	return out
}

// String renders the record as compact JSON.
func (m *Map) String() string {
	b, err := m.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("record(%v)", err)
	}
	return string(b)
}

func toNative(v any) any {
	switch t := v.(type) {
	case *Map:
		return t.ToNative()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = toNative(e)
		}
		return out
	default:
		return v
	}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case *Map:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Normalize maps a Go value onto the record value union.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil, bool, int64, float64, string, *Map:
		return v
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}
		return out
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return int64(t)
	case float32:
		return float64(t)
	case map[string]any:
		return FromNative(t)
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			native := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				native[iter.Key().String()] = iter.Value().Interface()
			}
			return FromNative(native)
		}
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return Normalize(rv.Elem().Interface())
	}
	return v
}
