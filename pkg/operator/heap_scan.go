package operator

import (
	"fmt"

	"github.com/mnohosten/laura-db/pkg/storage"
	"github.com/mnohosten/laura-db/pkg/tuple"
)

// HeapScan adapts a StorageManager's HeapFileIterator over one container
// into the Operator protocol, decoding each page payload into a tuple via a
// Codec bound to schema. It is the glue between the byte-opaque page layer
// below and the tuple-typed operators above.
type HeapScan struct {
	sm          *storage.StorageManager
	containerID uint16
	schema      *tuple.Schema
	codec       *tuple.Codec

	iter *storage.HeapFileIterator
	open bool
}

// NewHeapScan builds a HeapScan over containerID, decoding payloads
// according to schema.
func NewHeapScan(sm *storage.StorageManager, containerID uint16, schema *tuple.Schema) *HeapScan {
	return &HeapScan{
		sm:          sm,
		containerID: containerID,
		schema:      schema,
		codec:       tuple.NewCodec(schema),
	}
}

func (s *HeapScan) Open() error {
	if s.open {
		return nil
	}
	iter, err := s.sm.GetIterator(s.containerID)
	if err != nil {
		return fmt.Errorf("operator: open heap scan of container %d: %w", s.containerID, err)
	}
	s.iter = iter
	s.open = true
	return nil
}

func (s *HeapScan) Next() (*tuple.Tuple, bool, error) {
	requireOpen(s.open, "Next")
	data, _, ok := s.iter.Next()
	if !ok {
		return nil, false, nil
	}
	t, err := s.codec.Decode(data)
	if err != nil {
		return nil, false, fmt.Errorf("operator: decode tuple from container %d: %w", s.containerID, err)
	}
	return t, true, nil
}

// Rewind restarts the heap-file iterator at its first page/slot.
func (s *HeapScan) Rewind() error {
	requireOpen(s.open, "Rewind")
	s.iter.Rewind()
	return nil
}

// Close releases the underlying heap-file iterator. HeapScan has no
// children to close; it is a leaf.
func (s *HeapScan) Close() error {
	requireOpen(s.open, "Close")
	s.open = false
	if s.iter != nil {
		return s.iter.Close()
	}
	return nil
}

func (s *HeapScan) GetSchema() *tuple.Schema {
	return s.schema
}
