package pipe

import (
	"fmt"

	"github.com/arthur-debert/pipestore/record"
	"github.com/arthur-debert/pipestore/types"
)

// Predicate decides whether a record matches.
type Predicate func(rec *record.Map) bool

type filter struct {
	pred Predicate
	comb types.Combinator
}

// FilterPipe keeps the rows its predicates accept.
//
// Predicates are folded left to right starting from true: each one is
// combined with the running result using its own combinator. There is no
// operator precedence, so [p1 AND, p2 AND, p3 OR] evaluates as
// ((true && p1) && p2) || p3.
type FilterPipe struct {
	filters []filter
}

// NewFilterPipe returns an empty filter stage that keeps every row.
func NewFilterPipe() *FilterPipe {
	return &FilterPipe{}
}

// Add registers a predicate. Combinators other than AND/OR are rejected.
func (p *FilterPipe) Add(pred Predicate, comb types.Combinator) error {
	normalized, ok := types.ParseCombinator(string(comb))
	if !ok {
		return fmt.Errorf("%w: unsupported combinator %q", types.ErrInvalidFilterSpec, comb)
	}
	p.filters = append(p.filters, filter{pred: pred, comb: normalized})
	return nil
}

// Len returns the number of registered predicates.
func (p *FilterPipe) Len() int {
	return len(p.filters)
}

// Match runs the fold for a single record.
func (p *FilterPipe) Match(rec *record.Map) bool {
	result := true
	for _, f := range p.filters {
		switch f.comb {
		case types.And:
			result = result && f.pred(rec)
		case types.Or:
			result = result || f.pred(rec)
		}
	}
	return result
}

// Process implements Pipe.
func (p *FilterPipe) Process(rows Rows) (Rows, error) {
	out := make(Rows, 0, len(rows))
	for _, row := range rows {
		if p.Match(row.Record) {
			out = append(out, row)
		}
	}
	return out, nil
}
