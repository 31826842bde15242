package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
)

// OpType tags what kind of storage operation an OpLog record describes.
type OpType uint8

const (
	OpInsert OpType = iota
	OpUpdate
	OpDelete
	OpCreateContainer
	OpRemoveContainer
	OpShutdown
)

func (t OpType) String() string {
	switch t {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	case OpCreateContainer:
		return "create_container"
	case OpRemoveContainer:
		return "remove_container"
	case OpShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// opRecordSize is the fixed on-disk size of one OpLog record: 8-byte
// sequence number, 1-byte op, 2-byte container id, 2-byte page id, 2-byte
// slot id.
const opRecordSize = 15

// OpLog is an append-only record of storage operations, kept purely for
// observability: nothing in this module reads it back, and unlike a
// write-ahead log it is never replayed on startup; this design has no
// crash recovery beyond clean shutdown.
type OpLog struct {
	mu   sync.Mutex
	file *os.File
	seq  uint64
}

// NewOpLog opens (creating if necessary) an append-only log file at path.
func NewOpLog(path string) (*OpLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("storage: open op log %s: %w", path, err)
	}
	return &OpLog{file: f}, nil
}

// Append records one operation and returns its sequence number.
func (l *OpLog) Append(op OpType, containerID uint16, pageID PageID, slotID SlotID) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	buf := make([]byte, opRecordSize)
	binary.LittleEndian.PutUint64(buf[0:8], l.seq)
	buf[8] = byte(op)
	binary.LittleEndian.PutUint16(buf[9:11], containerID)
	binary.LittleEndian.PutUint16(buf[11:13], uint16(pageID))
	binary.LittleEndian.PutUint16(buf[13:15], uint16(slotID))

	if _, err := l.file.Write(buf); err != nil {
		return 0, fmt.Errorf("storage: append op log record: %w", err)
	}
	return l.seq, nil
}

// Close flushes and closes the underlying file.
func (l *OpLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("storage: sync op log: %w", err)
	}
	return l.file.Close()
}
