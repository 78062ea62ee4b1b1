// Package pipe provides the stages a query is built from.
//
// Every stage turns an ordered list of keyed rows into another one. Only
// LimiterPipe and SorterPipe change the order, only FilterPipe and
// LimiterPipe drop rows, and only MapperPipe changes a row's content or
// key. Stages never touch the store; they work on the rows handed to them.
package pipe

import (
	"github.com/arthur-debert/pipestore/record"
)

// Row is one record travelling through a pipeline together with the key
// it is stored under.
type Row struct {
	// Key is the identifier the row is (or will be) stored under.
	Key string
	// Record is the row content.
	Record *record.Map
	// PrevKey is set when a mapper changed the identifier. It holds the
	// key the row was loaded with, so save/update can drop the old entry.
	PrevKey string
}

// OriginalKey returns the key the row was loaded with.
func (r Row) OriginalKey() string {
	if r.PrevKey != "" {
		return r.PrevKey
	}
	return r.Key
}

// Rows is an ordered sequence of rows.
type Rows []Row

// FromMap turns a document map into rows in insertion order. Values that
// are not records are skipped. Records are not copied.
func FromMap(docs *record.Map) Rows {
	rows := make(Rows, 0, docs.Len())
	docs.Range(func(key string, value any) bool {
		if rec, ok := value.(*record.Map); ok {
			rows = append(rows, Row{Key: key, Record: rec})
		}
		return true
	})
	return rows
}

// Clone deep copies every row so a pipeline can mutate records without
// affecting the source.
func (rs Rows) Clone() Rows {
	out := make(Rows, len(rs))
	for i, r := range rs {
		out[i] = Row{Key: r.Key, Record: r.Record.Clone(), PrevKey: r.PrevKey}
	}
	return out
}

// Records returns the row contents in order.
func (rs Rows) Records() []*record.Map {
	out := make([]*record.Map, len(rs))
	for i, r := range rs {
		out[i] = r.Record
	}
	return out
}

// Keys returns the row keys in order.
func (rs Rows) Keys() []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Key
	}
	return out
}

// Pipe is a single pipeline stage.
type Pipe interface {
	Process(rows Rows) (Rows, error)
}

// Run passes rows through every pipe in order and stops at the first
// error.
func Run(rows Rows, pipes []Pipe) (Rows, error) {
	for _, p := range pipes {
		var err error
		if rows, err = p.Process(rows); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// Clone returns an independent copy of a pipe so a builder can be forked
// without sharing stages that are still mutated in place.
func Clone(p Pipe) Pipe {
	switch t := p.(type) {
	case *FilterPipe:
		return &FilterPipe{filters: append([]filter(nil), t.filters...)}
	case *MapperPipe:
		return &MapperPipe{mappers: append([]MapFunc(nil), t.mappers...)}
	case *LimiterPipe:
		c := *t
		return &c
	default:
		return p
	}
}
