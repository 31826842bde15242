package operator

import (
	"fmt"

	"github.com/mnohosten/laura-db/pkg/tuple"
)

// Predicate is one of the six binary comparisons a nested-loop join may use
// to relate one field on each side.
type Predicate int

const (
	PredEq Predicate = iota
	PredNe
	PredLt
	PredLe
	PredGt
	PredGe
)

func (p Predicate) evaluate(left, right tuple.Field) bool {
	cmp := left.Compare(right)
	switch p {
	case PredEq:
		return cmp == 0
	case PredNe:
		return cmp != 0
	case PredLt:
		return cmp < 0
	case PredLe:
		return cmp <= 0
	case PredGt:
		return cmp > 0
	case PredGe:
		return cmp >= 0
	default:
		panic(fmt.Sprintf("operator: unknown join predicate %d", p))
	}
}

// NestedLoopJoin joins outer and inner on an arbitrary predicate over one
// field from each side. Output tuples are the field-wise concatenation of
// outer then inner.
type NestedLoopJoin struct {
	outer, inner       Operator
	outerField         int
	innerField         int
	pred               Predicate
	schema             *tuple.Schema
	open               bool
	currentOuter       *tuple.Tuple
}

// NewNestedLoopJoin builds a nested-loop join of outer and inner on
// outer.Fields[outerField] pred inner.Fields[innerField].
func NewNestedLoopJoin(outer, inner Operator, outerField int, innerField int, pred Predicate) *NestedLoopJoin {
	return &NestedLoopJoin{
		outer:      outer,
		inner:      inner,
		outerField: outerField,
		innerField: innerField,
		pred:       pred,
		schema:     outer.GetSchema().Concat(inner.GetSchema()),
	}
}

func (j *NestedLoopJoin) Open() error {
	if j.open {
		return nil
	}
	if err := j.outer.Open(); err != nil {
		return fmt.Errorf("operator: nested-loop join open outer: %w", err)
	}
	if err := j.inner.Open(); err != nil {
		return fmt.Errorf("operator: nested-loop join open inner: %w", err)
	}
	j.open = true
	return j.advanceOuter()
}

// advanceOuter pulls the next outer tuple, or sets currentOuter to nil when
// the outer child is exhausted.
func (j *NestedLoopJoin) advanceOuter() error {
	t, ok, err := j.outer.Next()
	if err != nil {
		return fmt.Errorf("operator: nested-loop join advance outer: %w", err)
	}
	if !ok {
		j.currentOuter = nil
		return nil
	}
	j.currentOuter = t
	return nil
}

func (j *NestedLoopJoin) Next() (*tuple.Tuple, bool, error) {
	requireOpen(j.open, "Next")
	for j.currentOuter != nil {
		innerTuple, ok, err := j.inner.Next()
		if err != nil {
			return nil, false, fmt.Errorf("operator: nested-loop join advance inner: %w", err)
		}
		if !ok {
			if err := j.inner.Rewind(); err != nil {
				return nil, false, fmt.Errorf("operator: nested-loop join rewind inner: %w", err)
			}
			if err := j.advanceOuter(); err != nil {
				return nil, false, err
			}
			continue
		}
		if j.pred.evaluate(j.currentOuter.Fields[j.outerField], innerTuple.Fields[j.innerField]) {
			return j.currentOuter.Concat(innerTuple), true, nil
		}
	}
	return nil, false, nil
}

func (j *NestedLoopJoin) Rewind() error {
	requireOpen(j.open, "Rewind")
	if err := j.outer.Rewind(); err != nil {
		return fmt.Errorf("operator: nested-loop join rewind outer: %w", err)
	}
	if err := j.inner.Rewind(); err != nil {
		return fmt.Errorf("operator: nested-loop join rewind inner: %w", err)
	}
	return j.advanceOuter()
}

func (j *NestedLoopJoin) Close() error {
	requireOpen(j.open, "Close")
	j.open = false
	if err := j.outer.Close(); err != nil {
		return fmt.Errorf("operator: nested-loop join close outer: %w", err)
	}
	if err := j.inner.Close(); err != nil {
		return fmt.Errorf("operator: nested-loop join close inner: %w", err)
	}
	return nil
}

func (j *NestedLoopJoin) GetSchema() *tuple.Schema {
	return j.schema
}

// HashJoin is an equi-join that builds a hash map over the right (inner)
// child at construction time, then probes it once per left tuple, emitting
// one output per matched right tuple in the order it was inserted during
// the build phase.
type HashJoin struct {
	left        Operator
	leftField   int
	rightField  int
	buildMap    map[interface{}][]*tuple.Tuple
	rightSchema *tuple.Schema
	schema      *tuple.Schema

	open        bool
	currentLeft *tuple.Tuple
	matches     []*tuple.Tuple
	matchPos    int
}

// NewHashJoin builds a hash join of left and right on
// left.Fields[leftField] == right.Fields[rightField]. right is opened,
// drained into the build map, and closed immediately, before this function
// returns.
func NewHashJoin(left, right Operator, leftField, rightField int) (*HashJoin, error) {
	if err := right.Open(); err != nil {
		return nil, fmt.Errorf("operator: hash join open build side: %w", err)
	}
	buildMap := make(map[interface{}][]*tuple.Tuple)
	for {
		t, ok, err := right.Next()
		if err != nil {
			return nil, fmt.Errorf("operator: hash join build: %w", err)
		}
		if !ok {
			break
		}
		key := tuple.New(t.Fields[rightField]).Key()
		buildMap[key] = append(buildMap[key], t)
	}
	rightSchema := right.GetSchema()
	if err := right.Close(); err != nil {
		return nil, fmt.Errorf("operator: hash join close build side: %w", err)
	}

	return &HashJoin{
		left:        left,
		leftField:   leftField,
		rightField:  rightField,
		buildMap:    buildMap,
		rightSchema: rightSchema,
		schema:      left.GetSchema().Concat(rightSchema),
	}, nil
}

func (j *HashJoin) Open() error {
	if j.open {
		return nil
	}
	if err := j.left.Open(); err != nil {
		return fmt.Errorf("operator: hash join open probe side: %w", err)
	}
	j.open = true
	return j.advanceLeft()
}

// advanceLeft pulls the next left tuple and resets the matched-right-tuple
// queue for it, or sets currentLeft to nil when the left child is
// exhausted.
func (j *HashJoin) advanceLeft() error {
	t, ok, err := j.left.Next()
	if err != nil {
		return fmt.Errorf("operator: hash join advance probe side: %w", err)
	}
	if !ok {
		j.currentLeft = nil
		j.matches = nil
		j.matchPos = 0
		return nil
	}
	j.currentLeft = t
	key := tuple.New(t.Fields[j.leftField]).Key()
	j.matches = j.buildMap[key]
	j.matchPos = 0
	return nil
}

func (j *HashJoin) Next() (*tuple.Tuple, bool, error) {
	requireOpen(j.open, "Next")
	for j.currentLeft != nil {
		if j.matchPos < len(j.matches) {
			r := j.matches[j.matchPos]
			j.matchPos++
			return j.currentLeft.Concat(r), true, nil
		}
		if err := j.advanceLeft(); err != nil {
			return nil, false, err
		}
	}
	return nil, false, nil
}

func (j *HashJoin) Rewind() error {
	requireOpen(j.open, "Rewind")
	if err := j.left.Rewind(); err != nil {
		return fmt.Errorf("operator: hash join rewind probe side: %w", err)
	}
	return j.advanceLeft()
}

// Close releases the left (probe-side) child. The right (build-side) child
// was already closed during construction.
func (j *HashJoin) Close() error {
	requireOpen(j.open, "Close")
	j.open = false
	return j.left.Close()
}

func (j *HashJoin) GetSchema() *tuple.Schema {
	return j.schema
}
