// Package operator implements the in-memory query operators that sit above
// pkg/storage: a scan over a container's heap file, grouped aggregation, and
// join, all composing through one capability set.
package operator

import (
	"fmt"

	"github.com/mnohosten/laura-db/pkg/tuple"
)

// Operator is the capability set every node in an operator tree implements.
// Calling Next, Close, or Rewind on an operator that is not open is a
// programming error and panics; Open on an already-open operator is a no-op.
type Operator interface {
	Open() error
	Next() (*tuple.Tuple, bool, error)
	Close() error
	Rewind() error
	GetSchema() *tuple.Schema
}

// ErrNotOpen is the panic value used to report protocol misuse: calling
// Next, Close, or Rewind before Open (or after Close).
type ErrNotOpen struct {
	Op string
}

func (e *ErrNotOpen) Error() string {
	return fmt.Sprintf("operator: %s called on a non-open operator", e.Op)
}

// requireOpen panics with ErrNotOpen if open is false, used by every
// operator implementation to enforce the protocol at the top of Next,
// Close, and Rewind.
func requireOpen(open bool, op string) {
	if !open {
		panic(&ErrNotOpen{Op: op})
	}
}
