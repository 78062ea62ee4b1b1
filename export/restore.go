package export

import (
	"fmt"
	"path/filepath"

	"github.com/arthur-debert/pipestore/record"
	"github.com/arthur-debert/pipestore/store"
	"github.com/arthur-debert/pipestore/types"
)

// Restore writes every collection of a into dir, replacing existing
// content. Each collection is written in a single transaction so a
// failure leaves its previous file in place. The returned stores are not
// registered with store.Open.
func Restore(a *Archive, dir string, opts ...store.Option) ([]*store.Store, error) {
	restored := make([]*store.Store, 0, len(a.Collections))
	for _, c := range a.Collections {
		s, err := store.New(filepath.Join(dir, sanitizeName(c.Name)), opts...)
		if err != nil {
			return restored, err
		}
		docs := c.Documents
		committed, err := s.Transaction(func(s *store.Store) error {
			if _, err := s.Truncate(); err != nil {
				return err
			}
			var insertErr error
			docs.Range(func(key string, value any) bool {
				rec, ok := value.(*record.Map)
				if !ok {
					insertErr = fmt.Errorf("entry %q is not a record", key)
					return false
				}
				rec = rec.Clone()
				if v, has := rec.Get(types.IDField); !has || v == nil {
					rec.Set(types.IDField, key)
				}
				_, insertErr = s.Insert(rec)
				return insertErr == nil
			})
			return insertErr
		})
		if err != nil {
			return restored, fmt.Errorf("failed to restore %s: %w", c.Name, err)
		}
		if !committed {
			return restored, fmt.Errorf("failed to write %s", s.Path())
		}
		restored = append(restored, s)
	}
	return restored, nil
}
