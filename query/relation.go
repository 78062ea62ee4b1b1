package query

import (
	"fmt"

	"github.com/arthur-debert/pipestore/record"
	"github.com/arthur-debert/pipestore/types"
)

// WithOne attaches to every row the first record of target whose
// otherKey compares with op to the row's thisKey, stored under alias.
// target is a Source (usually a store) or a *Builder, which is cloned for
// each row so its own stages apply before the join condition.
//
// Every row runs its own sub-query against target.
func (b *Builder) WithOne(target any, alias, otherKey, op, thisKey string) *Builder {
	return b.with(target, alias, otherKey, op, thisKey, false)
}

// WithMany is WithOne attaching every matching record as a sequence.
func (b *Builder) WithMany(target any, alias, otherKey, op, thisKey string) *Builder {
	return b.with(target, alias, otherKey, op, thisKey, true)
}

func (b *Builder) with(target any, alias, otherKey, op, thisKey string, many bool) *Builder {
	var fresh func() *Builder
	switch t := target.(type) {
	case *Builder:
		fresh = t.Clone
	case Source:
		fresh = t.Query
	default:
		return b.fail(fmt.Errorf("%w: %T", types.ErrInvalidRelationTarget, target))
	}
	if _, ok := NormalizeOperator(op); !ok {
		return b.fail(fmt.Errorf("%w: unsupported relation operator %q", types.ErrInvalidFilterSpec, op))
	}

	return b.MapE(func(rec *record.Map) (*record.Map, error) {
		sub := fresh().Where(otherKey, op, record.Access(rec).Get(thisKey))
		a := record.Access(rec)
		if many {
			related, err := sub.Get()
			if err != nil {
				return nil, fmt.Errorf("loading %s: %w", alias, err)
			}
			seq := make([]any, len(related))
			for i, r := range related {
				seq[i] = r
			}
			a.Set(alias, seq, true)
			return rec, nil
		}
		related, err := sub.First()
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", alias, err)
		}
		if related == nil {
			a.Set(alias, nil, true)
		} else {
			a.Set(alias, related, true)
		}
		return rec, nil
	})
}
