package operator

import (
	"testing"

	"github.com/mnohosten/laura-db/pkg/tuple"
)

func mustSchema(t *testing.T, names []string, types []tuple.Type) *tuple.Schema {
	t.Helper()
	s, err := tuple.NewSchema(names, types)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return s
}

func TestTupleIteratorYieldsInOrder(t *testing.T) {
	schema := mustSchema(t, []string{"id"}, []tuple.Type{tuple.TypeInt})
	rows := []*tuple.Tuple{
		tuple.New(tuple.IntField(1)),
		tuple.New(tuple.IntField(2)),
		tuple.New(tuple.IntField(3)),
	}
	it := NewTupleIterator(schema, rows)
	if err := it.Open(); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		tup, ok, err := it.Next()
		if err != nil || !ok {
			t.Fatalf("Next(%d): ok=%v err=%v", i, ok, err)
		}
		if tup.Fields[0].Int != int64(i+1) {
			t.Fatalf("Next(%d) = %d, want %d", i, tup.Fields[0].Int, i+1)
		}
	}
	if _, ok, _ := it.Next(); ok {
		t.Fatal("expected exhaustion after 3 tuples")
	}

	if err := it.Rewind(); err != nil {
		t.Fatal(err)
	}
	tup, ok, err := it.Next()
	if err != nil || !ok || tup.Fields[0].Int != 1 {
		t.Fatalf("Next() after Rewind = %v ok=%v err=%v, want 1", tup, ok, err)
	}

	if err := it.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOperatorProtocolMisuseOnUnopened(t *testing.T) {
	schema := mustSchema(t, []string{"id"}, []tuple.Type{tuple.TypeInt})
	it := NewTupleIterator(schema, nil)

	assertPanics := func(name string, fn func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Fatalf("%s on unopened operator should panic", name)
			}
		}()
		fn()
	}

	assertPanics("Next", func() { it.Next() })
	assertPanics("Close", func() { it.Close() })
	assertPanics("Rewind", func() { it.Rewind() })
}

func TestOperatorOpenIsNoOpWhenAlreadyOpen(t *testing.T) {
	schema := mustSchema(t, []string{"id"}, []tuple.Type{tuple.TypeInt})
	it := NewTupleIterator(schema, []*tuple.Tuple{tuple.New(tuple.IntField(9))})
	if err := it.Open(); err != nil {
		t.Fatal(err)
	}
	it.Next() // advance past position 0
	if err := it.Open(); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := it.Next(); ok {
		t.Fatal("second Open should not reset iteration position")
	}
}
