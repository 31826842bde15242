package operator

import (
	"fmt"

	"github.com/mnohosten/laura-db/pkg/tuple"
)

// AggOp names a supported aggregate function.
type AggOp int

const (
	AggCount AggOp = iota
	AggSum
	AggMin
	AggMax
	AggAvg
)

func (op AggOp) String() string {
	switch op {
	case AggCount:
		return "count"
	case AggSum:
		return "sum"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggAvg:
		return "avg"
	default:
		return "unknown"
	}
}

// aggState tracks one aggregate column's running state for one group.
type aggState struct {
	op          AggOp
	count       int64
	sum         int64
	minMax      tuple.Field
	initialized bool
}

func newAggState(op AggOp) *aggState {
	return &aggState{op: op}
}

func (s *aggState) update(v tuple.Field) {
	switch s.op {
	case AggCount:
		s.count++
	case AggSum:
		if v.Type != tuple.TypeInt {
			panic(fmt.Sprintf("operator: sum requires an integer field, got %s", v.Type))
		}
		s.sum += v.Int
	case AggAvg:
		if v.Type != tuple.TypeInt {
			panic(fmt.Sprintf("operator: avg requires an integer field, got %s", v.Type))
		}
		s.sum += v.Int
		s.count++
	case AggMin:
		if !s.initialized || v.Compare(s.minMax) < 0 {
			s.minMax = v
			s.initialized = true
		}
	case AggMax:
		if !s.initialized || v.Compare(s.minMax) > 0 {
			s.minMax = v
			s.initialized = true
		}
	default:
		panic(fmt.Sprintf("operator: unknown aggregate op %d", s.op))
	}
}

func (s *aggState) finalValue() tuple.Field {
	switch s.op {
	case AggCount:
		return tuple.IntField(s.count)
	case AggSum:
		return tuple.IntField(s.sum)
	case AggAvg:
		return tuple.IntField(s.sum / s.count)
	case AggMin, AggMax:
		return s.minMax
	default:
		panic(fmt.Sprintf("operator: unknown aggregate op %d", s.op))
	}
}

func aggOutputType(op AggOp, inputType tuple.Type) tuple.Type {
	switch op {
	case AggCount, AggSum, AggAvg:
		return tuple.TypeInt
	case AggMin, AggMax:
		return inputType
	default:
		panic(fmt.Sprintf("operator: unknown aggregate op %d", op))
	}
}

type group struct {
	keyFields []tuple.Field
	states    []*aggState
}

// Aggregate is a grouped (or whole-input) aggregation operator. It is eager:
// all grouping happens at construction time, draining the child completely;
// Open/Next/Rewind/Close thereafter just walk a cached result vector.
type Aggregate struct {
	schema  *tuple.Schema
	results []*tuple.Tuple
	pos     int
	open    bool
}

// NewAggregate builds an Aggregate over child, grouping by groupByIndices
// (named groupByNames in the output) and computing aggOps over aggIndices
// (named aggNames in the output). child is opened, fully drained, and
// closed during construction.
func NewAggregate(child Operator, groupByIndices []int, groupByNames []string, aggIndices []int, aggNames []string, aggOps []AggOp) (*Aggregate, error) {
	if len(aggIndices) != len(aggNames) || len(aggIndices) != len(aggOps) {
		return nil, fmt.Errorf("operator: aggregate column indices (%d), names (%d), and ops (%d) must have equal length", len(aggIndices), len(aggNames), len(aggOps))
	}
	if len(groupByIndices) != len(groupByNames) {
		return nil, fmt.Errorf("operator: groupby indices (%d) and names (%d) must have equal length", len(groupByIndices), len(groupByNames))
	}

	childSchema := child.GetSchema()
	outNames := make([]string, 0, len(groupByNames)+len(aggNames))
	outTypes := make([]tuple.Type, 0, len(groupByNames)+len(aggNames))
	outNames = append(outNames, groupByNames...)
	for _, idx := range groupByIndices {
		outTypes = append(outTypes, childSchema.Types[idx])
	}
	for i, idx := range aggIndices {
		outNames = append(outNames, aggNames[i])
		outTypes = append(outTypes, aggOutputType(aggOps[i], childSchema.Types[idx]))
	}
	schema, err := tuple.NewSchema(outNames, outTypes)
	if err != nil {
		return nil, fmt.Errorf("operator: build aggregate output schema: %w", err)
	}

	if err := child.Open(); err != nil {
		return nil, fmt.Errorf("operator: aggregate open child: %w", err)
	}

	groups := make(map[interface{}]*group)
	order := make([]interface{}, 0)
	for {
		t, ok, err := child.Next()
		if err != nil {
			return nil, fmt.Errorf("operator: aggregate drain child: %w", err)
		}
		if !ok {
			break
		}

		keyTuple := t.Project(groupByIndices)
		key := keyTuple.Key()
		g, exists := groups[key]
		if !exists {
			g = &group{keyFields: keyTuple.Fields, states: make([]*aggState, len(aggOps))}
			for i, op := range aggOps {
				g.states[i] = newAggState(op)
			}
			groups[key] = g
			order = append(order, key)
		}
		for i, idx := range aggIndices {
			g.states[i].update(t.Fields[idx])
		}
	}
	if err := child.Close(); err != nil {
		return nil, fmt.Errorf("operator: aggregate close child: %w", err)
	}

	results := make([]*tuple.Tuple, 0, len(order))
	for _, key := range order {
		g := groups[key]
		fields := make([]tuple.Field, 0, len(g.keyFields)+len(g.states))
		fields = append(fields, g.keyFields...)
		for _, s := range g.states {
			fields = append(fields, s.finalValue())
		}
		results = append(results, tuple.New(fields...))
	}

	return &Aggregate{schema: schema, results: results}, nil
}

func (a *Aggregate) Open() error {
	if a.open {
		return nil
	}
	a.open = true
	a.pos = 0
	return nil
}

func (a *Aggregate) Next() (*tuple.Tuple, bool, error) {
	requireOpen(a.open, "Next")
	if a.pos >= len(a.results) {
		return nil, false, nil
	}
	t := a.results[a.pos]
	a.pos++
	return t, true, nil
}

func (a *Aggregate) Rewind() error {
	requireOpen(a.open, "Rewind")
	a.pos = 0
	return nil
}

// Close marks the operator closed. The child was already closed during
// construction, matching the eager-materialization contract: there is
// nothing left to release downstream.
func (a *Aggregate) Close() error {
	requireOpen(a.open, "Close")
	a.open = false
	return nil
}

func (a *Aggregate) GetSchema() *tuple.Schema {
	return a.schema
}
