package storage

import (
	"encoding/binary"
	"fmt"
	"sort"
)

const (
	// PageSize is the fixed size, in bytes, of every page in a heap file.
	PageSize = 4096

	// fixedHeaderBytes is the size of the page header excluding the slot
	// directory: 2 bytes page_id, 1 byte open_slot-present flag, 2 bytes
	// open_slot value, 2 bytes directory entry count.
	fixedHeaderBytes = 7

	// dirEntryBytes is the size of a single slot directory entry: 2 bytes
	// slot_id, 2 bytes end_offset, 2 bytes length.
	dirEntryBytes = 6
)

// PageID identifies a page within a heap file. Page ids are logical: a
// page's position on disk is unrelated to its id (see HeapFile.ReadPage).
type PageID uint16

// SlotID identifies a value's slot within a page's directory.
type SlotID uint16

type dirEntry struct {
	SlotID    SlotID
	EndOffset uint16
	Length    uint16 // 0 marks a tombstone
}

// Page is an in-memory slotted page: a directory of (end_offset, length)
// entries keyed by slot id, and a body holding payloads packed from the
// high end of the page downward. Deleting a value does not shrink the
// directory; only body space is ever reclaimed.
type Page struct {
	id            PageID
	openSlot      *SlotID
	dir           []dirEntry
	body          []byte // always len == PageSize; header region left zeroed
	usedBodyBytes uint16
}

// NewPage creates an empty page with the given logical id. The first
// insert is always assigned slot 0.
func NewPage(id PageID) *Page {
	zero := SlotID(0)
	return &Page{
		id:       id,
		openSlot: &zero,
		body:     make([]byte, PageSize),
	}
}

// ID returns the page's logical id.
func (p *Page) ID() PageID {
	return p.id
}

// GetHeaderSize returns the size, in bytes, of the header as it would
// serialize: the fixed prefix plus one directory entry per slot ever
// allocated, including tombstoned ones.
func (p *Page) GetHeaderSize() int {
	return fixedHeaderBytes + dirEntryBytes*len(p.dir)
}

// GetFreeSpace returns the number of additional payload bytes the page
// can currently accept, given its current header size and used body
// bytes. Inserting into a brand-new slot costs an additional 6 header
// bytes; callers computing whether an insert of a given length fits
// must account for that themselves (see AddValue).
func (p *Page) GetFreeSpace() int {
	return PageSize - p.GetHeaderSize() - int(p.usedBodyBytes)
}

func (p *Page) findEntry(slot SlotID) (*dirEntry, int) {
	for i := range p.dir {
		if p.dir[i].SlotID == slot {
			return &p.dir[i], i
		}
	}
	return nil, -1
}

// findNextSlot computes the slot id that the next AddValue should use:
// the lowest tombstoned slot id, or one past the highest slot id if
// there is no tombstone, or nil if the directory cannot grow further.
func (p *Page) findNextSlot() *SlotID {
	var min, max SlotID
	min = ^SlotID(0)
	hasTombstone := false
	hasAny := false
	for _, e := range p.dir {
		if e.Length == 0 {
			if e.SlotID < min {
				min = e.SlotID
			}
			hasTombstone = true
		}
		if !hasAny || e.SlotID > max {
			max = e.SlotID
			hasAny = true
		}
	}
	if hasTombstone {
		s := min
		return &s
	}
	if !hasAny {
		s := SlotID(0)
		return &s
	}
	if max == ^SlotID(0) {
		return nil
	}
	next := max + 1
	return &next
}

// AddValue inserts bytes into the page, choosing the lowest available
// slot id. It returns the assigned slot and true on success, or false if
// bytes is empty, the page has no open slot, or there is not enough free
// space (accounting for the extra 6 header bytes a brand-new slot costs).
func (p *Page) AddValue(bytes []byte) (SlotID, bool) {
	if len(bytes) == 0 || p.openSlot == nil {
		return 0, false
	}
	slot := *p.openSlot
	entry, idx := p.findEntry(slot)
	isNew := entry == nil

	extra := 0
	if isNew {
		extra = dirEntryBytes
	}
	if len(bytes) > p.GetFreeSpace()-extra {
		return 0, false
	}

	length := uint16(len(bytes))
	endOffset := PageSize - int(p.usedBodyBytes) - 1
	start := endOffset - len(bytes) + 1
	copy(p.body[start:endOffset+1], bytes)
	p.usedBodyBytes += length

	if isNew {
		p.dir = append(p.dir, dirEntry{SlotID: slot, EndOffset: uint16(endOffset), Length: length})
		sort.Slice(p.dir, func(i, j int) bool { return p.dir[i].SlotID < p.dir[j].SlotID })
	} else {
		p.dir[idx].EndOffset = uint16(endOffset)
		p.dir[idx].Length = length
	}

	p.openSlot = p.findNextSlot()
	return slot, true
}

// GetValue returns the bytes stored at slot, or false if the slot does
// not exist or is tombstoned.
func (p *Page) GetValue(slot SlotID) ([]byte, bool) {
	entry, _ := p.findEntry(slot)
	if entry == nil || entry.Length == 0 {
		return nil, false
	}
	start := int(entry.EndOffset) - int(entry.Length) + 1
	out := make([]byte, entry.Length)
	copy(out, p.body[start:int(entry.EndOffset)+1])
	return out, true
}

// DeleteValue tombstones slot's directory entry and compacts the body so
// the freed bytes become available to later inserts. It returns false if
// the slot does not exist or is already tombstoned. The directory entry
// itself is never removed, so the header never shrinks.
func (p *Page) DeleteValue(slot SlotID) bool {
	entry, idx := p.findEntry(slot)
	if entry == nil || entry.Length == 0 {
		return false
	}

	length := int(entry.Length)
	deletedStart := int(entry.EndOffset) - length + 1
	headerSize := p.GetHeaderSize()

	// Every payload packed between the header and the deleted value sits
	// at a lower address (it was inserted more recently); shift that
	// whole block up by length to close the gap.
	blob := make([]byte, deletedStart-headerSize)
	copy(blob, p.body[headerSize:deletedStart])
	copy(p.body[headerSize+length:deletedStart+length], blob)
	for i := headerSize; i < headerSize+length; i++ {
		p.body[i] = 0
	}

	for i := range p.dir {
		if p.dir[i].Length > 0 && int(p.dir[i].EndOffset) < deletedStart {
			p.dir[i].EndOffset += uint16(length)
		}
	}

	p.dir[idx].EndOffset = 0
	p.dir[idx].Length = 0
	p.usedBodyBytes -= uint16(length)
	p.openSlot = p.findNextSlot()
	return true
}

// ToBytes serializes the page to exactly PageSize bytes, in the layout:
// offset 0 page_id (2), offset 2 open_slot-present flag (1), offset 3
// open_slot value (2, defined iff flag=1), offset 5 directory entry count
// (2), offset 7.. directory entries sorted by slot_id ascending (6 bytes
// each: slot_id, end_offset, length), remainder payload bytes.
func (p *Page) ToBytes() []byte {
	buf := make([]byte, PageSize)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(p.id))

	if p.openSlot != nil {
		buf[2] = 1
		binary.LittleEndian.PutUint16(buf[3:5], uint16(*p.openSlot))
	}
	binary.LittleEndian.PutUint16(buf[5:7], uint16(len(p.dir)))

	sorted := make([]dirEntry, len(p.dir))
	copy(sorted, p.dir)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SlotID < sorted[j].SlotID })

	idx := fixedHeaderBytes
	for _, e := range sorted {
		binary.LittleEndian.PutUint16(buf[idx:idx+2], uint16(e.SlotID))
		binary.LittleEndian.PutUint16(buf[idx+2:idx+4], e.EndOffset)
		binary.LittleEndian.PutUint16(buf[idx+4:idx+6], e.Length)
		idx += dirEntryBytes
	}

	copy(buf[idx:], p.body[idx:])
	return buf
}

// PageFromBytes deserializes a page previously produced by ToBytes.
func PageFromBytes(data []byte) (*Page, error) {
	if len(data) != PageSize {
		return nil, fmt.Errorf("storage: page data is %d bytes, want %d", len(data), PageSize)
	}

	id := PageID(binary.LittleEndian.Uint16(data[0:2]))
	flag := data[2]
	var openSlot *SlotID
	if flag == 1 {
		s := SlotID(binary.LittleEndian.Uint16(data[3:5]))
		openSlot = &s
	}

	n := int(binary.LittleEndian.Uint16(data[5:7]))
	dir := make([]dirEntry, 0, n)
	idx := fixedHeaderBytes
	var used uint16
	for i := 0; i < n; i++ {
		if idx+dirEntryBytes > len(data) {
			return nil, fmt.Errorf("storage: page directory entry %d extends past page bounds", i)
		}
		e := dirEntry{
			SlotID:    SlotID(binary.LittleEndian.Uint16(data[idx : idx+2])),
			EndOffset: binary.LittleEndian.Uint16(data[idx+2 : idx+4]),
			Length:    binary.LittleEndian.Uint16(data[idx+4 : idx+6]),
		}
		dir = append(dir, e)
		used += e.Length
		idx += dirEntryBytes
	}

	body := make([]byte, PageSize)
	copy(body, data)

	return &Page{id: id, openSlot: openSlot, dir: dir, body: body, usedBodyBytes: used}, nil
}

// Iterator returns an iterator over the page's live values in ascending
// slot id order.
func (p *Page) Iterator() *PageIterator {
	sorted := make([]dirEntry, len(p.dir))
	copy(sorted, p.dir)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SlotID < sorted[j].SlotID })
	return &PageIterator{page: p, sorted: sorted}
}

// PageIterator walks a page's live values in ascending slot id order,
// skipping tombstones.
type PageIterator struct {
	page   *Page
	sorted []dirEntry
	pos    int
}

// Next returns the next live (bytes, slot_id) pair, or ok=false when the
// page is exhausted.
func (it *PageIterator) Next() (data []byte, slot SlotID, ok bool) {
	for it.pos < len(it.sorted) {
		e := it.sorted[it.pos]
		it.pos++
		if e.Length == 0 {
			continue
		}
		start := int(e.EndOffset) - int(e.Length) + 1
		out := make([]byte, e.Length)
		copy(out, it.page.body[start:int(e.EndOffset)+1])
		return out, e.SlotID, true
	}
	return nil, 0, false
}
