package pipe

import (
	"fmt"
	"sort"

	"github.com/arthur-debert/pipestore/record"
	"github.com/arthur-debert/pipestore/types"
)

// KeyFunc computes the value a row is sorted by.
type KeyFunc func(rec *record.Map) any

// SorterPipe orders rows by a computed key. The sort is stable, so rows
// with equal keys keep their relative order.
type SorterPipe struct {
	key KeyFunc
	dir types.Direction
}

// NewSorterPipe validates the direction and returns the stage.
func NewSorterPipe(key KeyFunc, dir types.Direction) (*SorterPipe, error) {
	normalized, ok := types.ParseDirection(string(dir))
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidSortDirection, dir)
	}
	return &SorterPipe{key: key, dir: normalized}, nil
}

// Direction returns the configured direction.
func (p *SorterPipe) Direction() types.Direction {
	return p.dir
}

// Process implements Pipe.
func (p *SorterPipe) Process(rows Rows) (Rows, error) {
	type keyed struct {
		key any
		row Row
	}
	pairs := make([]keyed, len(rows))
	for i, row := range rows {
		pairs[i] = keyed{key: p.key(row.Record), row: row}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		c := record.Compare(pairs[i].key, pairs[j].key)
		if p.dir == types.Desc {
			return c > 0
		}
		return c < 0
	})

	out := make(Rows, len(pairs))
	for i, kr := range pairs {
		out[i] = kr.row
	}
	return out, nil
}
