// Package testutil provides seeded collections for tests.
package testutil

import (
	"embed"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/pipestore/record"
	"github.com/arthur-debert/pipestore/store"
	"github.com/google/go-cmp/cmp"
)

//go:embed testdata/*.json
var fixtures embed.FS

// Fixture is a temporary directory holding seeded collections.
type Fixture struct {
	Dir    string
	People *store.Store
	Teams  *store.Store
}

// LoadFixture copies the people and teams collections into a temporary
// directory and opens an unregistered store for each.
//
// People holds three records keyed A, B and C with scores 80, 76 and 95.
// Teams holds "red" (lead A) and "blue" (lead B).
func LoadFixture(t *testing.T, opts ...store.Option) *Fixture {
	t.Helper()
	dir := t.TempDir()
	return &Fixture{
		Dir:    dir,
		People: LoadCollection(t, dir, "people", opts...),
		Teams:  LoadCollection(t, dir, "teams", opts...),
	}
}

// LoadCollection seeds dir with the named fixture collection and returns
// a store for it.
func LoadCollection(t *testing.T, dir, name string, opts ...store.Option) *store.Store {
	t.Helper()
	data, err := fixtures.ReadFile("testdata/" + name + ".json")
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	base := filepath.Join(dir, name)
	if err := os.WriteFile(base+".json", data, 0o644); err != nil {
		t.Fatalf("failed to seed fixture %s: %v", name, err)
	}
	s, err := store.New(base, opts...)
	if err != nil {
		t.Fatalf("failed to create store %s: %v", name, err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// Field returns the value of field in every record, in order.
func Field(recs []*record.Map, field string) []any {
	out := make([]any, len(recs))
	for i, rec := range recs {
		out[i] = record.Access(rec).Get(field)
	}
	return out
}

// AssertIDs fails the test unless recs carry exactly the given
// identifiers, in order.
func AssertIDs(t *testing.T, recs []*record.Map, want ...string) {
	t.Helper()
	got := make([]string, len(recs))
	for i, rec := range recs {
		got[i] = record.ToString(record.Access(rec).Get("_id"))
	}
	if want == nil {
		want = []string{}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("record ids mismatch (-want +got):\n%s", diff)
	}
}

// AssertField fails the test unless the record's field equals want.
func AssertField(t *testing.T, rec *record.Map, field string, want any) {
	t.Helper()
	if rec == nil {
		t.Fatalf("expected a record with %s=%v, got nil", field, want)
	}
	got := record.Access(rec).Get(field)
	if !record.Equal(got, want) {
		t.Errorf("%s: expected %v, got %v", field, want, got)
	}
}
