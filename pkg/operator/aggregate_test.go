package operator

import (
	"testing"

	"github.com/mnohosten/laura-db/pkg/tuple"
)

func aggregateFixtureRows() []*tuple.Tuple {
	rows := [][4]interface{}{
		{1, 1, 3, "E"},
		{2, 1, 3, "G"},
		{3, 1, 4, "A"},
		{4, 2, 4, "G"},
		{5, 2, 5, "G"},
		{6, 2, 5, "G"},
	}
	out := make([]*tuple.Tuple, len(rows))
	for i, r := range rows {
		out[i] = tuple.New(
			tuple.IntField(int64(r[0].(int))),
			tuple.IntField(int64(r[1].(int))),
			tuple.IntField(int64(r[2].(int))),
			tuple.StringField(r[3].(string)),
		)
	}
	return out
}

func aggregateFixtureChild(t *testing.T) Operator {
	t.Helper()
	schema := mustSchema(t, []string{"c0", "c1", "c2", "c3"},
		[]tuple.Type{tuple.TypeInt, tuple.TypeInt, tuple.TypeInt, tuple.TypeString})
	return NewTupleIterator(schema, aggregateFixtureRows())
}

// TestAggregateGroupedCountMax groups by two columns and checks Count and
// Max are computed correctly per group.
func TestAggregateGroupedCountMax(t *testing.T) {
	child := aggregateFixtureChild(t)
	agg, err := NewAggregate(child,
		[]int{1, 2}, []string{"g1", "g2"},
		[]int{3, 0}, []string{"cnt", "mx"},
		[]AggOp{AggCount, AggMax},
	)
	if err != nil {
		t.Fatalf("NewAggregate: %v", err)
	}
	if err := agg.Open(); err != nil {
		t.Fatal(err)
	}
	defer agg.Close()

	want := map[[2]int64][2]int64{
		{1, 3}: {2, 2},
		{1, 4}: {1, 3},
		{2, 4}: {1, 4},
		{2, 5}: {2, 6},
	}
	got := 0
	for {
		tup, ok, err := agg.Next()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		got++
		key := [2]int64{tup.Fields[0].Int, tup.Fields[1].Int}
		wantCntMax, ok := want[key]
		if !ok {
			t.Fatalf("unexpected group %v", key)
		}
		if tup.Fields[2].Int != wantCntMax[0] || tup.Fields[3].Int != wantCntMax[1] {
			t.Fatalf("group %v: got count=%d max=%d, want count=%d max=%d",
				key, tup.Fields[2].Int, tup.Fields[3].Int, wantCntMax[0], wantCntMax[1])
		}
	}
	if got != len(want) {
		t.Fatalf("got %d groups, want %d", got, len(want))
	}
}

// TestAggregateNoGroupBy checks Sum/Avg/Min/Max over the whole input when
// no group-by columns are given, producing exactly one output row.
func TestAggregateNoGroupBy(t *testing.T) {
	child := aggregateFixtureChild(t)
	agg, err := NewAggregate(child,
		nil, nil,
		[]int{1, 0, 3, 3}, []string{"sum1", "avg0", "min3", "max3"},
		[]AggOp{AggSum, AggAvg, AggMin, AggMax},
	)
	if err != nil {
		t.Fatalf("NewAggregate: %v", err)
	}
	if err := agg.Open(); err != nil {
		t.Fatal(err)
	}
	defer agg.Close()

	tup, ok, err := agg.Next()
	if err != nil || !ok {
		t.Fatalf("Next: ok=%v err=%v", ok, err)
	}
	if tup.Fields[0].Int != 9 {
		t.Errorf("sum(col1) = %d, want 9", tup.Fields[0].Int)
	}
	if tup.Fields[1].Int != 3 {
		t.Errorf("avg(col0) = %d, want 3", tup.Fields[1].Int)
	}
	if tup.Fields[2].Str != "A" {
		t.Errorf("min(col3) = %q, want A", tup.Fields[2].Str)
	}
	if tup.Fields[3].Str != "G" {
		t.Errorf("max(col3) = %q, want G", tup.Fields[3].Str)
	}

	if _, ok, _ := agg.Next(); ok {
		t.Fatal("expected exactly one output row when grouping by nothing")
	}
}

func TestAggregateEmptyChildProducesNoRows(t *testing.T) {
	schema := mustSchema(t, []string{"c0"}, []tuple.Type{tuple.TypeInt})
	child := NewTupleIterator(schema, nil)
	agg, err := NewAggregate(child, nil, nil, []int{0}, []string{"cnt"}, []AggOp{AggCount})
	if err != nil {
		t.Fatal(err)
	}
	if err := agg.Open(); err != nil {
		t.Fatal(err)
	}
	defer agg.Close()
	if _, ok, _ := agg.Next(); ok {
		t.Fatal("expected zero rows when no groupby columns and an empty child")
	}
}

func TestAggregateSumOnNonIntegerPanics(t *testing.T) {
	schema := mustSchema(t, []string{"s"}, []tuple.Type{tuple.TypeString})
	child := NewTupleIterator(schema, []*tuple.Tuple{tuple.New(tuple.StringField("x"))})

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic summing a non-integer field")
		}
	}()
	NewAggregate(child, nil, nil, []int{0}, []string{"sum"}, []AggOp{AggSum})
}
