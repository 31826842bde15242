package storage

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// HeapFile is a single container's on-disk sequence of pages: the
// concatenation of page_size-byte pages, with no file header. A page's
// position in the file is unrelated to its logical id; pages are located
// by scanning and matching the id embedded in each page's own header.
// This is deliberately not an offset = page_id * page_size index -
// logical ids can arrive in any order, and the file never reorders pages
// once written.
type HeapFile struct {
	mu          sync.RWMutex
	file        *os.File
	containerID uint16
	numPages    int
	cipher      *PageCipher // nil disables page-at-rest encryption

	reads  int64
	writes int64
}

// NewHeapFile opens (creating if necessary) the heap file backing a
// container at path.
func NewHeapFile(path string, containerID uint16) (*HeapFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("storage: open heap file %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("storage: stat heap file %s: %w", path, err)
	}
	if info.Size()%PageSize != 0 {
		f.Close()
		return nil, fmt.Errorf("storage: heap file %s size %d is not a multiple of page size", path, info.Size())
	}

	return &HeapFile{
		file:        f,
		containerID: containerID,
		numPages:    int(info.Size() / PageSize),
	}, nil
}

// SetCipher enables page-at-rest encryption for every subsequent read and
// write. Pages already on disk in plaintext must be rewritten (e.g. via a
// read-then-write pass) before this takes effect for them.
func (hf *HeapFile) SetCipher(c *PageCipher) {
	hf.mu.Lock()
	defer hf.mu.Unlock()
	hf.cipher = c
}

// readSlot reads one page-sized region at the given file slot and
// decrypts it if a cipher is set.
func (hf *HeapFile) readSlot(slot int) ([]byte, error) {
	buf := make([]byte, PageSize)
	if _, err := hf.file.ReadAt(buf, int64(slot)*PageSize); err != nil && err != io.EOF {
		return nil, err
	}
	if hf.cipher != nil {
		buf = hf.cipher.Decrypt(slot, buf)
	}
	return buf, nil
}

// writeSlot encrypts (if a cipher is set) and writes one page-sized
// region at the given file slot.
func (hf *HeapFile) writeSlot(slot int, plaintext []byte) error {
	out := plaintext
	if hf.cipher != nil {
		out = hf.cipher.Encrypt(slot, plaintext)
	}
	_, err := hf.file.WriteAt(out, int64(slot)*PageSize)
	return err
}

// NumPages returns the number of pages currently written to the file.
func (hf *HeapFile) NumPages() int {
	hf.mu.RLock()
	defer hf.mu.RUnlock()
	return hf.numPages
}

// ReadPage scans the file page by page, decoding each page's header to
// find the one whose logical id matches pageID. It fails if no page in
// the file carries that id.
func (hf *HeapFile) ReadPage(pageID PageID) (*Page, error) {
	hf.mu.Lock()
	defer hf.mu.Unlock()
	return hf.readPageLocked(pageID)
}

func (hf *HeapFile) readPageLocked(pageID PageID) (*Page, error) {
	for slot := 0; slot < hf.numPages; slot++ {
		buf, err := hf.readSlot(slot)
		if err != nil {
			return nil, fmt.Errorf("storage: read heap file offset %d: %w", slot, err)
		}
		p, err := PageFromBytes(buf)
		if err != nil {
			return nil, fmt.Errorf("storage: decode page at file offset %d: %w", slot, err)
		}
		hf.reads++
		if p.ID() == pageID {
			return p, nil
		}
	}
	return nil, fmt.Errorf("storage: no page with logical id %d in container %d", pageID, hf.containerID)
}

// WritePage writes p back to disk. If a page with p's logical id already
// exists in the file, it is overwritten in place; otherwise p is
// appended as a new page.
func (hf *HeapFile) WritePage(p *Page) error {
	hf.mu.Lock()
	defer hf.mu.Unlock()

	for slot := 0; slot < hf.numPages; slot++ {
		buf, err := hf.readSlot(slot)
		if err != nil {
			return fmt.Errorf("storage: scan heap file offset %d: %w", slot, err)
		}
		existing, err := PageFromBytes(buf)
		if err != nil {
			return fmt.Errorf("storage: decode page at file offset %d: %w", slot, err)
		}
		if existing.ID() == p.ID() {
			if err := hf.writeSlot(slot, p.ToBytes()); err != nil {
				return fmt.Errorf("storage: overwrite page %d: %w", p.ID(), err)
			}
			hf.writes++
			return nil
		}
	}

	if err := hf.writeSlot(hf.numPages, p.ToBytes()); err != nil {
		return fmt.Errorf("storage: append page %d: %w", p.ID(), err)
	}
	hf.numPages++
	hf.writes++
	return nil
}

// Iterator returns a fresh HeapFileIterator over this file's live values
// in page/slot order.
func (hf *HeapFile) Iterator() *HeapFileIterator {
	return &HeapFileIterator{hf: hf, containerID: hf.containerID}
}

// Stats reports cumulative read/write counts, surfaced through the admin
// and introspection layers; this is pure observability, not used for any
// caching or recovery decision.
func (hf *HeapFile) Stats() (reads, writes int64, numPages int) {
	hf.mu.RLock()
	defer hf.mu.RUnlock()
	return hf.reads, hf.writes, hf.numPages
}

// Close releases the underlying file handle.
func (hf *HeapFile) Close() error {
	hf.mu.Lock()
	defer hf.mu.Unlock()
	return hf.file.Close()
}

// WriteTo streams the file's raw on-disk bytes (still encrypted, if a
// cipher is set) to w, used by pkg/snapshot to back up a container without
// re-deriving page layout.
func (hf *HeapFile) WriteTo(w io.Writer) (int64, error) {
	hf.mu.RLock()
	defer hf.mu.RUnlock()
	return io.Copy(w, io.NewSectionReader(hf.file, 0, int64(hf.numPages)*PageSize))
}

// ReadFrom replaces the file's contents with raw page bytes read from r,
// truncating any existing content and recomputing the page count. The
// caller is responsible for ensuring r's size is a multiple of PageSize.
func (hf *HeapFile) ReadFrom(r io.Reader) (int64, error) {
	hf.mu.Lock()
	defer hf.mu.Unlock()

	if err := hf.file.Truncate(0); err != nil {
		return 0, fmt.Errorf("storage: truncate heap file for import: %w", err)
	}
	if _, err := hf.file.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("storage: seek heap file for import: %w", err)
	}
	n, err := io.Copy(hf.file, r)
	if err != nil {
		return n, fmt.Errorf("storage: import heap file contents: %w", err)
	}
	if n%PageSize != 0 {
		return n, fmt.Errorf("storage: imported %d bytes is not a multiple of page size %d", n, PageSize)
	}
	hf.numPages = int(n / PageSize)
	return n, nil
}
