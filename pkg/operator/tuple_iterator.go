package operator

import "github.com/mnohosten/laura-db/pkg/tuple"

// TupleIterator is a generic in-memory operator: it owns a fixed slice of
// tuples and a schema, and yields them in order. Used directly in tests and
// as a leaf child of other operators.
type TupleIterator struct {
	schema *tuple.Schema
	tuples []*tuple.Tuple
	pos    int
	open   bool
}

// NewTupleIterator builds a TupleIterator over tuples, not yet open.
func NewTupleIterator(schema *tuple.Schema, tuples []*tuple.Tuple) *TupleIterator {
	return &TupleIterator{schema: schema, tuples: tuples}
}

func (it *TupleIterator) Open() error {
	if it.open {
		return nil
	}
	it.open = true
	it.pos = 0
	return nil
}

func (it *TupleIterator) Next() (*tuple.Tuple, bool, error) {
	requireOpen(it.open, "Next")
	if it.pos >= len(it.tuples) {
		return nil, false, nil
	}
	t := it.tuples[it.pos]
	it.pos++
	return t, true, nil
}

func (it *TupleIterator) Rewind() error {
	requireOpen(it.open, "Rewind")
	it.pos = 0
	return nil
}

func (it *TupleIterator) Close() error {
	requireOpen(it.open, "Close")
	it.open = false
	return nil
}

func (it *TupleIterator) GetSchema() *tuple.Schema {
	return it.schema
}
