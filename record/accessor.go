package record

import (
	"strconv"
	"strings"
)

// Wildcard is the path segment that addresses every element of a
// sequence or map node.
const Wildcard = "*"

// Accessor reads and writes record fields by dotted path, e.g.
// "address.city" or "tags.0". A key that literally contains dots is
// found first by Get, Has and Remove before the path is split.
type Accessor struct {
	root *Map
}

// Access wraps m for path based access. Writes go to m itself.
func Access(m *Map) Accessor {
	return Accessor{root: m}
}

// Record returns the wrapped record.
func (a Accessor) Record() *Map {
	return a.root
}

// Has reports whether every segment of path exists.
func (a Accessor) Has(path string) bool {
	if path == "" || a.root == nil {
		return false
	}
	if a.root.Has(path) {
		return true
	}
	var node any = a.root
	for _, seg := range splitPath(path) {
		next, ok := child(node, seg)
		if !ok {
			return false
		}
		node = next
	}
	return true
}

// Get returns the value at path, or nil when any segment is missing.
// An empty path returns the whole record.
func (a Accessor) Get(path string) any {
	if path == "" {
		return a.root
	}
	if v, ok := a.root.Get(path); ok {
		return v
	}
	var node any = a.root
	for _, seg := range splitPath(path) {
		next, ok := child(node, seg)
		if !ok {
			return nil
		}
		node = next
	}
	return node
}

// Set writes value at path, creating intermediate records as needed.
// A "*" segment applies the rest of the path to every element of the node
// it addresses. Existing leaf values are only replaced when overwrite is
// true.
func (a Accessor) Set(path string, value any, overwrite bool) {
	if path == "" {
		return
	}
	setPath(a.root, splitPath(path), Normalize(value), overwrite)
}

// Remove deletes the value at path. Missing intermediate segments are
// created as empty records, the same way Set walks the path.
func (a Accessor) Remove(path string) {
	if path == "" {
		return
	}
	if a.root.Delete(path) {
		return
	}
	if m, ok := removePath(a.root, splitPath(path)).(*Map); ok && m != a.root {
		*a.root = *m
	}
}

func splitPath(path string) []string {
	return strings.Split(path, ".")
}

func child(node any, seg string) (any, bool) {
	switch n := node.(type) {
	case *Map:
		return n.Get(seg)
	case []any:
		idx, ok := index(seg, len(n))
		if !ok {
			return nil, false
		}
		return n[idx], true
	}
	return nil, false
}

// index parses seg as a position within a sequence of length n.
func index(seg string, n int) (int, bool) {
	idx, err := strconv.Atoi(seg)
	if err != nil || idx < 0 || idx >= n {
		return 0, false
	}
	return idx, true
}

// sequenceToMap turns a sequence into a record keyed by position so a
// non-numeric segment can be written into it.
func sequenceToMap(seq []any) *Map {
	m := New()
	for i, v := range seq {
		m.Set(strconv.Itoa(i), v)
	}
	return m
}

// setPath writes into node and returns the node that should replace it in
// its parent. Only non-container nodes are replaced.
func setPath(node any, segs []string, value any, overwrite bool) any {
	seg, rest := segs[0], segs[1:]

	if seg == Wildcard {
		switch n := node.(type) {
		case *Map:
			for _, k := range n.keys {
				if len(rest) > 0 {
					n.values[k] = setPath(n.values[k], rest, value, overwrite)
				} else if overwrite {
					n.values[k] = cloneValue(value)
				}
			}
			return n
		case []any:
			for i := range n {
				if len(rest) > 0 {
					n[i] = setPath(n[i], rest, value, overwrite)
				} else if overwrite {
					n[i] = cloneValue(value)
				}
			}
			return n
		default:
			return []any{}
		}
	}

	switch n := node.(type) {
	case *Map:
		if len(rest) > 0 {
			current, exists := n.Get(seg)
			if !exists {
				current = New()
				n.Set(seg, current)
			}
			n.values[seg] = setPath(current, rest, value, overwrite)
		} else if overwrite || !n.Has(seg) {
			n.Set(seg, cloneValue(value))
		}
		return n
	case []any:
		if idx, ok := index(seg, len(n)); ok {
			if len(rest) > 0 {
				n[idx] = setPath(n[idx], rest, value, overwrite)
			} else if overwrite {
				n[idx] = cloneValue(value)
			}
			return n
		}
		if seg == strconv.Itoa(len(n)) {
			if len(rest) > 0 {
				return append(n, setPath(New(), rest, value, overwrite))
			}
			return append(n, cloneValue(value))
		}
		return setPath(sequenceToMap(n), segs, value, overwrite)
	default:
		return setPath(New(), segs, value, overwrite)
	}
}

// removePath deletes the last segment below node and returns the node
// that should replace it in its parent.
func removePath(node any, segs []string) any {
	seg, rest := segs[0], segs[1:]

	if seg == Wildcard {
		switch n := node.(type) {
		case *Map:
			if len(rest) == 0 {
				return New()
			}
			for _, k := range n.keys {
				n.values[k] = removePath(n.values[k], rest)
			}
			return n
		case []any:
			if len(rest) == 0 {
				return []any{}
			}
			for i := range n {
				n[i] = removePath(n[i], rest)
			}
			return n
		default:
			return node
		}
	}

	switch n := node.(type) {
	case *Map:
		if len(rest) == 0 {
			n.Delete(seg)
			return n
		}
		current, exists := n.Get(seg)
		if !exists {
			current = New()
			n.Set(seg, current)
		}
		n.values[seg] = removePath(current, rest)
		return n
	case []any:
		idx, ok := index(seg, len(n))
		if !ok {
			if len(rest) == 0 {
				return n
			}
			return removePath(sequenceToMap(n), segs)
		}
		if len(rest) == 0 {
			return append(n[:idx:idx], n[idx+1:]...)
		}
		n[idx] = removePath(n[idx], rest)
		return n
	default:
		if len(rest) == 0 {
			return node
		}
		return removePath(New(), segs)
	}
}
