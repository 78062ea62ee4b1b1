package query

import (
	"errors"
	"testing"

	"github.com/arthur-debert/pipestore/pipe"
	"github.com/arthur-debert/pipestore/record"
	"github.com/arthur-debert/pipestore/types"
	"github.com/google/go-cmp/cmp"
)

// memExecutor is an in-memory Executor used to test builders without a
// file backed store.
type memExecutor struct {
	docs  *record.Map
	calls int
}

func newMemExecutor(recs ...*record.Map) *memExecutor {
	docs := record.New()
	for _, r := range recs {
		id, _ := r.Get(types.IDField)
		docs.Set(record.ToString(id), r)
	}
	return &memExecutor{docs: docs}
}

func (m *memExecutor) Query() *Builder { return New(m) }

func (m *memExecutor) run(q *Builder) (pipe.Rows, error) {
	if q.Executor() != m {
		return nil, types.ErrCrossStoreQuery
	}
	m.calls++
	return pipe.Run(pipe.FromMap(m.docs.Clone()), q.Pipes())
}

func (m *memExecutor) ExecuteGet(q *Builder) (pipe.Rows, error) { return m.run(q) }

func (m *memExecutor) ExecuteUpdate(q *Builder, fields *record.Map) (int, error) {
	rows, err := m.run(q)
	if err != nil {
		return 0, err
	}
	for _, row := range rows {
		v, _ := m.docs.Get(row.OriginalKey())
		rec := v.(*record.Map)
		fields.Range(func(k string, val any) bool {
			record.Access(rec).Set(k, val, true)
			return true
		})
	}
	return len(rows), nil
}

func (m *memExecutor) ExecuteDelete(q *Builder) (int, error) {
	rows, err := m.run(q)
	if err != nil {
		return 0, err
	}
	for _, row := range rows {
		m.docs.Delete(row.OriginalKey())
	}
	return len(rows), nil
}

func (m *memExecutor) ExecuteSave(q *Builder) (int, error) {
	rows, err := m.run(q)
	if err != nil {
		return 0, err
	}
	for _, row := range rows {
		if row.PrevKey != "" {
			m.docs.Delete(row.PrevKey)
		}
		m.docs.Set(row.Key, row.Record)
	}
	return len(rows), nil
}

func people() *memExecutor {
	return newMemExecutor(
		record.FromPairs("_id", "A", "name", "Ann", "email", "ann@example.com", "score", 80, "team", "red"),
		record.FromPairs("_id", "B", "name", "Bob", "email", "bob@example.org", "score", 76, "team", "blue"),
		record.FromPairs("_id", "C", "name", "Cid", "email", "cid@example.com", "score", 95, "team", "red"),
	)
}

func names(t *testing.T, recs []*record.Map) []string {
	t.Helper()
	out := make([]string, len(recs))
	for i, r := range recs {
		v, _ := r.Get("name")
		out[i], _ = v.(string)
	}
	return out
}

func mustGet(t *testing.T, q *Builder, columns ...string) []*record.Map {
	t.Helper()
	recs, err := q.Get(columns...)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	return recs
}

func TestPipeMergeRules(t *testing.T) {
	ex := people()

	q := ex.Query().
		Where("score", ">", 1).
		Where("score", "<", 100).
		Map(func(r *record.Map) *record.Map { return r }).
		Map(func(r *record.Map) *record.Map { return r }).
		SortBy("name", types.Asc).
		SortBy("score", types.Desc).
		Skip(1).
		Take(1)

	var kinds []string
	for _, p := range q.Pipes() {
		switch p.(type) {
		case *pipe.FilterPipe:
			kinds = append(kinds, "filter")
		case *pipe.MapperPipe:
			kinds = append(kinds, "mapper")
		case *pipe.SorterPipe:
			kinds = append(kinds, "sorter")
		case *pipe.LimiterPipe:
			kinds = append(kinds, "limiter")
		}
	}
	want := []string{"filter", "mapper", "sorter", "sorter", "limiter"}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("pipe chain mismatch (-want +got):\n%s", diff)
	}

	lp := q.Pipes()[4].(*pipe.LimiterPipe)
	if lp.Offset() != 1 || lp.Limit() != 1 {
		t.Errorf("limiter should be merged in place, got offset %d limit %d", lp.Offset(), lp.Limit())
	}
}

func TestWhereOperators(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		op    string
		value any
		want  []string
	}{
		{"equal", "team", "=", "red", []string{"Ann", "Cid"}},
		{"not equal", "team", "!=", "red", []string{"Bob"}},
		{"greater", "score", ">", 80, []string{"Cid"}},
		{"greater equal", "score", ">=", 80, []string{"Ann", "Cid"}},
		{"less", "score", "<", 80, []string{"Bob"}},
		{"less equal", "score", "<=", 80, []string{"Ann", "Bob"}},
		{"in", "name", "in", []string{"Bob", "Cid"}, []string{"Bob", "Cid"}},
		{"not in", "name", "NOT  IN", []string{"Bob", "Cid"}, []string{"Ann"}},
		{"match", "email", "match", `\.com$`, []string{"Ann", "Cid"}},
		{"match delimited", "name", "match", `/^b/i`, []string{"Bob"}},
		{"between", "score", "between", []any{76, 80}, []string{"Ann", "Bob"}},
		{"missing field never orders", "age", ">", 0, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(t, mustGet(t, people().Query().Where(tt.key, tt.op, tt.value)))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("result mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWhereLeavesCallerValuesAlone(t *testing.T) {
	bounds := []any{76, 80}
	candidates := []any{int32(80), uint8(95)}

	got := names(t, mustGet(t, people().Query().
		Where("score", "between", bounds).
		Where("score", "in", candidates)))
	if diff := cmp.Diff([]string{"Ann"}, got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{76, 80}, bounds); diff != "" {
		t.Errorf("between bounds were rewritten (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{int32(80), uint8(95)}, candidates); diff != "" {
		t.Errorf("in candidates were rewritten (-want +got):\n%s", diff)
	}
}

func TestConstructionErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(q *Builder) *Builder
		want  error
	}{
		{"unknown operator", func(q *Builder) *Builder { return q.Where("score", "~", 1) }, types.ErrInvalidFilterSpec},
		{"between with one bound", func(q *Builder) *Builder { return q.Where("score", "between", []any{1}) }, types.ErrInvalidFilterSpec},
		{"between with three bounds", func(q *Builder) *Builder { return q.Where("score", "between", []any{1, 2, 3}) }, types.ErrInvalidFilterSpec},
		{"bad regexp", func(q *Builder) *Builder { return q.Where("name", "match", "(") }, types.ErrInvalidFilterSpec},
		{"bad combinator", func(q *Builder) *Builder { return q.Filter(func(*record.Map) bool { return true }, "XOR") }, types.ErrInvalidFilterSpec},
		{"bad direction", func(q *Builder) *Builder { return q.SortBy("score", "up") }, types.ErrInvalidSortDirection},
		{"bad relation target", func(q *Builder) *Builder { return q.WithOne("nope", "x", "a", "=", "b") }, types.ErrInvalidRelationTarget},
		{"undefined macro", func(q *Builder) *Builder { return q.Macro("does-not-exist") }, types.ErrUndefinedExtension},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := people()
			q := tt.build(ex.Query())

			if !errors.Is(q.Err(), tt.want) {
				t.Fatalf("expected %v at construction, got %v", tt.want, q.Err())
			}
			if _, err := q.Get(); !errors.Is(err, tt.want) {
				t.Errorf("terminal should return construction error, got %v", err)
			}
			if _, err := q.Delete(); !errors.Is(err, tt.want) {
				t.Errorf("delete should return construction error, got %v", err)
			}
			if ex.calls != 0 {
				t.Errorf("executor must not run, ran %d times", ex.calls)
			}
		})
	}
}

func TestOrWhereFoldsLeftToRight(t *testing.T) {
	// score>90 AND team=blue OR name=Ann -> ((true && s>90) && blue) || Ann
	got := names(t, mustGet(t, people().Query().
		Where("score", ">", 90).
		Where("team", "=", "blue").
		OrWhere("name", "=", "Ann")))

	if diff := cmp.Diff([]string{"Ann"}, got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestSelect(t *testing.T) {
	recs := mustGet(t, people().Query().Where("_id", "=", "A"), "name", "score:points", "missing")
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	want := map[string]any{"name": "Ann", "points": int64(80), "missing": nil}
	if diff := cmp.Diff(want, recs[0].ToNative()); diff != "" {
		t.Errorf("projection mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"name", "points", "missing"}, recs[0].Keys()); diff != "" {
		t.Errorf("projection order mismatch (-want +got):\n%s", diff)
	}
}

func TestGetWithColumnsDoesNotChangeBuilder(t *testing.T) {
	q := people().Query()
	_ = mustGet(t, q, "name")
	if len(q.Pipes()) != 0 {
		t.Errorf("Get(columns) must not add stages to the builder, got %d", len(q.Pipes()))
	}
}

func TestMapTracksRenamedKeys(t *testing.T) {
	ex := people()
	rows, err := ex.Query().Where("_id", "=", "B").Map(func(r *record.Map) *record.Map {
		r.Set("_id", "B2")
		return r
	}).Rows()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Key != "B2" || rows[0].PrevKey != "B" {
		t.Fatalf("expected row B2 renamed from B, got %+v", rows)
	}
	if rows[0].Record.Has("_prev_id") {
		t.Error("previous key must not leak into the record")
	}

	n, err := ex.Query().Where("_id", "=", "B").Map(func(r *record.Map) *record.Map {
		r.Set("_id", "B2")
		return r
	}).Save()
	if err != nil || n != 1 {
		t.Fatalf("save failed: %d %v", n, err)
	}
	if ex.docs.Has("B") || !ex.docs.Has("B2") {
		t.Errorf("expected B moved to B2, keys now %v", ex.docs.Keys())
	}
}

func TestMapNilEmptiesRecord(t *testing.T) {
	recs := mustGet(t, people().Query().Map(func(*record.Map) *record.Map { return nil }))
	if len(recs) != 3 {
		t.Fatalf("mapper must not drop rows, got %d", len(recs))
	}
	for _, r := range recs {
		if r.Len() != 0 {
			t.Errorf("expected empty record, got %s", r)
		}
	}
}

func TestFirst(t *testing.T) {
	ex := people()

	rec, err := ex.Query().SortBy("score", types.Desc).First()
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := rec.Get("name"); v != "Cid" {
		t.Errorf("expected Cid, got %v", v)
	}

	rec, err = ex.Query().Skip(1).First("name")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]any{"name": "Bob"}, rec.ToNative()); diff != "" {
		t.Errorf("first after skip mismatch (-want +got):\n%s", diff)
	}

	rec, err = ex.Query().Where("score", ">", 1000).First()
	if err != nil || rec != nil {
		t.Errorf("expected nil record, got %v %v", rec, err)
	}
}

func TestAggregates(t *testing.T) {
	ex := people()
	ex.docs.Set("D", record.FromPairs("_id", "D", "name", "Dee", "score", "n/a"))

	count, err := ex.Query().Count()
	if err != nil || count != 4 {
		t.Errorf("count = %d, %v", count, err)
	}
	sum, _ := ex.Query().Sum("score")
	if sum != 251 {
		t.Errorf("sum = %v, want 251", sum)
	}
	avg, _ := ex.Query().Where("team", "=", "red").Avg("score")
	if avg != 87.5 {
		t.Errorf("avg = %v, want 87.5", avg)
	}
	minV, _ := ex.Query().Where("_id", "!=", "D").Min("score")
	if minV != int64(76) {
		t.Errorf("min = %v, want 76", minV)
	}
	maxV, _ := ex.Query().Where("_id", "!=", "D").Max("score")
	if maxV != int64(95) {
		t.Errorf("max = %v, want 95", maxV)
	}
	none, _ := ex.Query().Max("nothing")
	if none != nil {
		t.Errorf("max of missing field = %v, want nil", none)
	}
	emptyAvg, _ := ex.Query().Avg("nothing")
	if emptyAvg != 0 {
		t.Errorf("avg of missing field = %v, want 0", emptyAvg)
	}
}

func TestLists(t *testing.T) {
	ex := people()

	list, err := ex.Query().Lists("name")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{"Ann", "Bob", "Cid"}, list); diff != "" {
		t.Errorf("lists mismatch (-want +got):\n%s", diff)
	}

	keyed, err := ex.Query().ListsBy("score", "name")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Ann", "Bob", "Cid"}, keyed.Keys()); diff != "" {
		t.Errorf("keyed order mismatch (-want +got):\n%s", diff)
	}
	if v, _ := keyed.Get("Bob"); v != int64(76) {
		t.Errorf("expected Bob -> 76, got %v", v)
	}
}

func TestRelations(t *testing.T) {
	ex := people()
	teams := newMemExecutor(
		record.FromPairs("_id", "red", "label", "Red Team"),
		record.FromPairs("_id", "blue", "label", "Blue Team"),
	)

	t.Run("with one from a source", func(t *testing.T) {
		recs := mustGet(t, ex.Query().WithOne(teams, "teamInfo", "_id", "=", "team"))
		for _, r := range recs {
			team := record.Access(r).Get("team")
			label := record.Access(r).Get("teamInfo.label")
			want := map[any]string{"red": "Red Team", "blue": "Blue Team"}[team]
			if label != want {
				t.Errorf("%v: expected %q, got %v", team, want, label)
			}
		}
	})

	t.Run("with many from a builder", func(t *testing.T) {
		members := ex.Query().SortBy("score", types.Desc)
		recs := mustGet(t, teams.Query().WithMany(members, "members", "team", "=", "_id"))
		red := recs[0]
		seq, ok := record.Access(red).Get("members").([]any)
		if !ok || len(seq) != 2 {
			t.Fatalf("expected 2 red members, got %v", record.Access(red).Get("members"))
		}
		first := seq[0].(*record.Map)
		if v, _ := first.Get("name"); v != "Cid" {
			t.Errorf("builder stages should apply to the relation, got %v first", v)
		}
		if len(members.Pipes()) != 1 {
			t.Error("relation must not modify the target builder")
		}
	})

	t.Run("missing relation is nil", func(t *testing.T) {
		recs := mustGet(t, ex.Query().WithOne(teams, "teamInfo", "_id", "=", "nope"))
		for _, r := range recs {
			if v, ok := r.Get("teamInfo"); !ok || v != nil {
				t.Errorf("expected nil relation, got %v (present %v)", v, ok)
			}
		}
	})
}

func TestMacros(t *testing.T) {
	RegisterMacro("highScorers", func(b *Builder, args ...any) *Builder {
		return b.Where("score", ">=", args[0])
	})

	got := names(t, mustGet(t, people().Query().Macro("highScorers", 80)))
	if diff := cmp.Diff([]string{"Ann", "Cid"}, got); diff != "" {
		t.Errorf("macro result mismatch (-want +got):\n%s", diff)
	}

	found := false
	for _, name := range Macros() {
		if name == "highScorers" {
			found = true
		}
	}
	if !found {
		t.Error("registered macro should be listed")
	}
}

func TestCrossExecutorRejected(t *testing.T) {
	a, b := people(), people()
	q := a.Query()
	if _, err := b.ExecuteGet(q); !errors.Is(err, types.ErrCrossStoreQuery) {
		t.Errorf("expected ErrCrossStoreQuery, got %v", err)
	}
}
