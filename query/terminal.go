package query

import (
	"github.com/arthur-debert/pipestore/pipe"
	"github.com/arthur-debert/pipestore/record"
)

// Rows runs the pipeline and returns keyed rows in pipeline order.
func (b *Builder) Rows() (pipe.Rows, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.exec.ExecuteGet(b)
}

// Get runs the pipeline and returns the records in pipeline order. With
// columns, a Select is applied first without changing b.
func (b *Builder) Get(columns ...string) ([]*record.Map, error) {
	q := b
	if len(columns) > 0 {
		q = b.Clone().Select(columns...)
	}
	rows, err := q.Rows()
	if err != nil {
		return nil, err
	}
	return rows.Records(), nil
}

// First returns the first record of the pipeline, or nil when it is
// empty.
func (b *Builder) First(columns ...string) (*record.Map, error) {
	recs, err := b.Clone().Take(1).Get(columns...)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return recs[0], nil
}

// Count returns the number of rows the pipeline produces.
func (b *Builder) Count() (int, error) {
	rows, err := b.Rows()
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// values collects the value at key for every row, skipping nils.
func (b *Builder) values(key string) ([]any, error) {
	rows, err := b.Rows()
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		if v := record.Access(row.Record).Get(key); v != nil {
			out = append(out, v)
		}
	}
	return out, nil
}

// Sum adds up the numeric values at key. Non-numeric values are ignored.
func (b *Builder) Sum(key string) (float64, error) {
	vals, err := b.values(key)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, v := range vals {
		if f, ok := record.ToFloat(v); ok {
			sum += f
		}
	}
	return sum, nil
}

// Avg returns the mean of the numeric values at key, or 0 when there are
// none.
func (b *Builder) Avg(key string) (float64, error) {
	vals, err := b.values(key)
	if err != nil {
		return 0, err
	}
	var sum float64
	var n int
	for _, v := range vals {
		if f, ok := record.ToFloat(v); ok {
			sum += f
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

// Min returns the smallest non-nil value at key, or nil.
func (b *Builder) Min(key string) (any, error) {
	return b.extreme(key, -1)
}

// Max returns the largest non-nil value at key, or nil.
func (b *Builder) Max(key string) (any, error) {
	return b.extreme(key, 1)
}

func (b *Builder) extreme(key string, want int) (any, error) {
	vals, err := b.values(key)
	if err != nil || len(vals) == 0 {
		return nil, err
	}
	best := vals[0]
	for _, v := range vals[1:] {
		if record.Compare(v, best) == want {
			best = v
		}
	}
	return best, nil
}

// Lists returns the value at key for every row, in order. Missing values
// are nil.
func (b *Builder) Lists(key string) ([]any, error) {
	rows, err := b.Rows()
	if err != nil {
		return nil, err
	}
	out := make([]any, len(rows))
	for i, row := range rows {
		out[i] = record.Access(row.Record).Get(key)
	}
	return out, nil
}

// ListsBy returns the value at key for every row keyed by the value at
// resultKey. Later rows win on duplicate keys.
func (b *Builder) ListsBy(key, resultKey string) (*record.Map, error) {
	rows, err := b.Rows()
	if err != nil {
		return nil, err
	}
	out := record.New()
	for _, row := range rows {
		a := record.Access(row.Record)
		out.Set(record.ToString(a.Get(resultKey)), a.Get(key))
	}
	return out, nil
}

// Update merges fields into every selected record and returns how many
// records were changed. Dotted keys in fields write nested values.
func (b *Builder) Update(fields *record.Map) (int, error) {
	if b.err != nil {
		return 0, b.err
	}
	if fields == nil {
		fields = record.New()
	}
	return b.exec.ExecuteUpdate(b, fields)
}

// Delete removes every selected record and returns how many were removed.
func (b *Builder) Delete() (int, error) {
	if b.err != nil {
		return 0, b.err
	}
	return b.exec.ExecuteDelete(b)
}

// Save writes the rows produced by the pipeline back under their keys and
// returns how many were written.
func (b *Builder) Save() (int, error) {
	if b.err != nil {
		return 0, b.err
	}
	return b.exec.ExecuteSave(b)
}
