package storage

// HeapFileIterator walks a heap file's live values in ascending
// (page_id, slot_id) order. Go has no destructor-based cleanup, so
// callers must call Close explicitly when they stop iterating early.
type HeapFileIterator struct {
	hf          *HeapFile
	containerID uint16
	currentPage PageID
	pageIter    *PageIterator
	closed      bool
}

// Next returns the next live (bytes, value_id) pair, or ok=false once
// every page in the file has been exhausted.
func (it *HeapFileIterator) Next() ([]byte, ValueID, bool) {
	if it.closed {
		return nil, ValueID{}, false
	}

	for {
		numPages := it.hf.NumPages()
		if int(it.currentPage) >= numPages {
			return nil, ValueID{}, false
		}

		if it.pageIter == nil {
			page, err := it.hf.ReadPage(it.currentPage)
			if err != nil {
				// A gap in logical ids (e.g. after a future page-removal
				// feature) would surface here; for now every page 0..N-1
				// is expected present, so this only triggers on a bug.
				it.currentPage++
				continue
			}
			it.pageIter = page.Iterator()
		}

		data, slot, ok := it.pageIter.Next()
		if !ok {
			it.pageIter = nil
			it.currentPage++
			continue
		}

		return data, ValueID{ContainerID: it.containerID, PageID: it.currentPage, SlotID: slot}, true
	}
}

// Rewind resets the iterator to the first page/slot.
func (it *HeapFileIterator) Rewind() {
	it.currentPage = 0
	it.pageIter = nil
	it.closed = false
}

// Close marks the iterator exhausted. Safe to call multiple times.
func (it *HeapFileIterator) Close() error {
	it.closed = true
	it.pageIter = nil
	return nil
}
