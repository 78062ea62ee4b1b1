// Package export dumps collections into a zip archive and restores them.
//
// An archive holds one pretty printed JSON file per collection plus a
// manifest.json describing them. Restoring writes every collection
// through a store, so the target stores may use any format.
package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/arthur-debert/pipestore/record"
	"github.com/arthur-debert/pipestore/store"
)

// ManifestName is the archive entry describing its collections.
const ManifestName = "manifest.json"

// Archive is the in-memory form of an export.
type Archive struct {
	Created     time.Time
	Collections []Collection
}

// Collection is one exported document map.
type Collection struct {
	Name      string
	Documents *record.Map
}

// Manifest is written to ManifestName.
type Manifest struct {
	Created     time.Time       `json:"created"`
	Collections []ManifestEntry `json:"collections"`
}

// ManifestEntry describes one collection file in the archive.
type ManifestEntry struct {
	Name      string `json:"name"`
	File      string `json:"file"`
	Documents int    `json:"documents"`
}

// Collect reads the current content of every store.
func Collect(now time.Time, stores ...*store.Store) (*Archive, error) {
	a := &Archive{Created: now}
	seen := make(map[string]bool)
	for _, s := range stores {
		if seen[s.Name()] {
			return nil, fmt.Errorf("collection %q exported twice", s.Name())
		}
		seen[s.Name()] = true

		rows, err := s.Query().Rows()
		if err != nil {
			return nil, fmt.Errorf("failed to read collection %s: %w", s.Name(), err)
		}
		docs := record.New()
		for _, row := range rows {
			docs.Set(row.Key, row.Record)
		}
		a.Collections = append(a.Collections, Collection{Name: s.Name(), Documents: docs})
	}
	return a, nil
}

// Manifest describes the archive.
func (a *Archive) Manifest() Manifest {
	m := Manifest{Created: a.Created, Collections: make([]ManifestEntry, 0, len(a.Collections))}
	for _, c := range a.Collections {
		m.Collections = append(m.Collections, ManifestEntry{
			Name:      c.Name,
			File:      entryName(c.Name),
			Documents: c.Documents.Len(),
		})
	}
	return m
}

// Collection returns the named collection, or nil.
func (a *Archive) Collection(name string) *Collection {
	for i := range a.Collections {
		if a.Collections[i].Name == name {
			return &a.Collections[i]
		}
	}
	return nil
}

func entryName(collection string) string {
	return sanitizeName(collection) + ".json"
}

func decodeManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return m, nil
}
