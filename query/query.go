// Package query builds lazy pipelines against a document store.
//
// A Builder collects pipe stages through fluent composition calls and runs
// nothing until a terminal method (Get, First, Count, Update, Delete,
// Save, ...) hands the stages to the store that created it.
//
//	rows, err := st.Query().
//		Where("score", ">=", 80).
//		SortBy("score", types.Desc).
//		Take(10).
//		Get("name", "score:points")
//
// Composition calls never return errors. Problems such as an unknown
// operator are detected when the call is made, kept on the builder (see
// Err) and returned by every terminal method without touching the store.
package query

import (
	"fmt"
	"strings"

	"github.com/arthur-debert/pipestore/pipe"
	"github.com/arthur-debert/pipestore/record"
	"github.com/arthur-debert/pipestore/types"
)

// Executor runs finished pipelines. It is implemented by the document
// store, which must reject builders created by another executor.
type Executor interface {
	ExecuteGet(q *Builder) (pipe.Rows, error)
	ExecuteUpdate(q *Builder, fields *record.Map) (int, error)
	ExecuteDelete(q *Builder) (int, error)
	ExecuteSave(q *Builder) (int, error)
}

// Source is anything that can start a fresh query, usually a store.
type Source interface {
	Query() *Builder
}

// Builder accumulates pipe stages for one executor.
type Builder struct {
	exec  Executor
	pipes []pipe.Pipe
	err   error
}

// New returns an empty builder bound to exec.
func New(exec Executor) *Builder {
	return &Builder{exec: exec}
}

// Executor returns the executor the builder belongs to.
func (b *Builder) Executor() Executor {
	return b.exec
}

// Pipes returns the current stages.
func (b *Builder) Pipes() []pipe.Pipe {
	out := make([]pipe.Pipe, len(b.pipes))
	copy(out, b.pipes)
	return out
}

// Err returns the first composition error, if any.
func (b *Builder) Err() error {
	return b.err
}

// Clone returns an independent builder with copies of every stage.
func (b *Builder) Clone() *Builder {
	c := &Builder{exec: b.exec, err: b.err, pipes: make([]pipe.Pipe, len(b.pipes))}
	for i, p := range b.pipes {
		c.pipes[i] = pipe.Clone(p)
	}
	return c
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

func (b *Builder) last() pipe.Pipe {
	if len(b.pipes) == 0 {
		return nil
	}
	return b.pipes[len(b.pipes)-1]
}

// Filter appends a predicate with an explicit combinator. Consecutive
// filters share one FilterPipe.
func (b *Builder) Filter(pred pipe.Predicate, comb types.Combinator) *Builder {
	if _, ok := types.ParseCombinator(string(comb)); !ok {
		return b.fail(fmt.Errorf("%w: unsupported combinator %q", types.ErrInvalidFilterSpec, comb))
	}
	fp, ok := b.last().(*pipe.FilterPipe)
	if !ok {
		fp = pipe.NewFilterPipe()
		b.pipes = append(b.pipes, fp)
	}
	if err := fp.Add(pred, comb); err != nil {
		return b.fail(err)
	}
	return b
}

// Where keeps rows whose field at key compares to value with op.
// See Compile for the supported operators.
func (b *Builder) Where(key, op string, value any) *Builder {
	return b.where(key, op, value, types.And)
}

// OrWhere is Where joined with OR to the filters before it.
func (b *Builder) OrWhere(key, op string, value any) *Builder {
	return b.where(key, op, value, types.Or)
}

// WhereFunc keeps rows accepted by pred.
func (b *Builder) WhereFunc(pred pipe.Predicate) *Builder {
	return b.Filter(pred, types.And)
}

// OrWhereFunc is WhereFunc joined with OR.
func (b *Builder) OrWhereFunc(pred pipe.Predicate) *Builder {
	return b.Filter(pred, types.Or)
}

func (b *Builder) where(key, op string, value any, comb types.Combinator) *Builder {
	pred, err := Compile(key, op, value)
	if err != nil {
		return b.fail(fmt.Errorf("where %s %s: %w", key, op, err))
	}
	return b.Filter(pred, comb)
}

// addMapper appends fn, reusing a trailing MapperPipe.
func (b *Builder) addMapper(fn pipe.MapFunc) *Builder {
	mp, ok := b.last().(*pipe.MapperPipe)
	if !ok {
		mp = pipe.NewMapperPipe()
		b.pipes = append(b.pipes, mp)
	}
	mp.Add(fn)
	return b
}

// Map replaces every row with the record fn returns. fn receives a copy
// and may return it modified. Returning nil empties the row's fields.
//
// When the returned record carries an identifier different from the row
// key, the row is re-keyed and remembers its original key so Save can
// move the stored record.
func (b *Builder) Map(fn func(rec *record.Map) *record.Map) *Builder {
	return b.MapE(func(rec *record.Map) (*record.Map, error) {
		return fn(rec), nil
	})
}

// MapE is Map for mappers that can fail. The error aborts the terminal
// call that runs the pipeline.
func (b *Builder) MapE(fn func(rec *record.Map) (*record.Map, error)) *Builder {
	return b.addMapper(func(row pipe.Row) (pipe.Row, error) {
		out, err := fn(row.Record.Clone())
		if err != nil {
			return row, err
		}
		if out == nil {
			out = record.New()
		}
		if id, ok := out.Get(types.IDField); ok && id != nil {
			newKey := record.ToString(id)
			switch {
			case newKey == row.OriginalKey():
				row.Key, row.PrevKey = newKey, ""
			case newKey != row.Key:
				row.PrevKey = row.OriginalKey()
				row.Key = newKey
			}
		}
		row.Record = out
		return row, nil
	})
}

// Select projects every row onto the named columns and drops everything
// else. A column may be renamed with "column:alias"; dotted columns read
// nested values. Missing columns are set to nil.
func (b *Builder) Select(columns ...string) *Builder {
	type projection struct{ from, to string }
	projections := make([]projection, len(columns))
	for i, col := range columns {
		from, to, found := strings.Cut(col, ":")
		if !found {
			to = from
		}
		projections[i] = projection{from: strings.TrimSpace(from), to: strings.TrimSpace(to)}
	}
	return b.Map(func(rec *record.Map) *record.Map {
		a := record.Access(rec)
		out := record.New()
		for _, p := range projections {
			out.Set(p.to, a.Get(p.from))
		}
		return out
	})
}

// SortBy orders rows by the value at key.
func (b *Builder) SortBy(key string, dir types.Direction) *Builder {
	return b.SortByFunc(func(rec *record.Map) any {
		return record.Access(rec).Get(key)
	}, dir)
}

// SortByFunc orders rows by the value fn computes. Every call adds a new
// sort stage; the last one added decides the final order.
func (b *Builder) SortByFunc(fn pipe.KeyFunc, dir types.Direction) *Builder {
	sp, err := pipe.NewSorterPipe(fn, dir)
	if err != nil {
		return b.fail(err)
	}
	b.pipes = append(b.pipes, sp)
	return b
}

func (b *Builder) limiter() *pipe.LimiterPipe {
	lp, ok := b.last().(*pipe.LimiterPipe)
	if !ok {
		lp = pipe.NewLimiterPipe()
		b.pipes = append(b.pipes, lp)
	}
	return lp
}

// Skip drops the first offset rows.
func (b *Builder) Skip(offset int) *Builder {
	b.limiter().SetOffset(offset)
	return b
}

// Take keeps at most limit rows. An optional offset replaces the current
// one; without it a previous Skip still applies.
func (b *Builder) Take(limit int, offset ...int) *Builder {
	lp := b.limiter()
	lp.SetLimit(limit)
	if len(offset) > 0 {
		lp.SetOffset(offset[0])
	}
	return b
}
