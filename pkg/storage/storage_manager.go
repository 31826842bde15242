package storage

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Config holds storage manager configuration.
type Config struct {
	DataDir string
	// Temp marks this manager's directory for removal on Close, used by
	// tests and by ephemeral scratch containers. Shutdown should never be
	// called on a temp manager; there is no checkpoint worth writing to a
	// directory that is about to be deleted.
	Temp bool
}

// StorageManager owns a shared mapping from container id to heap file,
// protected by a reader-writer lock, plus the directory where all
// container files live.
type StorageManager struct {
	mu         sync.RWMutex
	containers map[uint16]*HeapFile
	dataDir    string
	temp       bool
	oplog      *OpLog
}

const opLogFile = "oplog"

// logOp appends to the manager's operation log if one is open. Failures
// are logged, not propagated: the op log is pure observability and must
// never turn a storage operation's success into a failure.
func (sm *StorageManager) logOp(op OpType, containerID uint16, pageID PageID, slotID SlotID) {
	if sm.oplog == nil {
		return
	}
	if _, err := sm.oplog.Append(op, containerID, pageID, slotID); err != nil {
		log.Printf("storage: oplog append failed: %v", err)
	}
}

func containerPath(dataDir string, id uint16) string {
	return filepath.Join(dataDir, fmt.Sprintf("c%d", id))
}

const containerMapFile = "c_map"

// New opens a storage manager rooted at config.DataDir. If a container-map
// sidecar is present, every listed container is reopened; if it is
// missing, the manager starts with no containers.
func New(config Config) (*StorageManager, error) {
	if err := os.MkdirAll(config.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("storage: create data directory %s: %w", config.DataDir, err)
	}

	sm := &StorageManager{
		containers: make(map[uint16]*HeapFile),
		dataDir:    config.DataDir,
		temp:       config.Temp,
	}

	ids, err := readContainerMap(config.DataDir)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		hf, err := NewHeapFile(containerPath(config.DataDir, id), id)
		if err != nil {
			return nil, fmt.Errorf("storage: reopen container %d listed in %s: %w", id, containerMapFile, err)
		}
		sm.containers[id] = hf
	}

	oplog, err := NewOpLog(filepath.Join(config.DataDir, opLogFile))
	if err != nil {
		return nil, fmt.Errorf("storage: open operation log: %w", err)
	}
	sm.oplog = oplog

	log.Printf("storage: opened manager at %s with %d container(s)", config.DataDir, len(sm.containers))
	return sm, nil
}

// NewTemp opens a temp storage manager: a scratch directory that is
// removed entirely on Close and must never receive a Shutdown call.
func NewTemp(dataDir string) (*StorageManager, error) {
	return New(Config{DataDir: dataDir, Temp: true})
}

func readContainerMap(dataDir string) ([]uint16, error) {
	path := filepath.Join(dataDir, containerMapFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}

	var raw struct {
		Count      uint16   `json:"count"`
		Containers []uint16 `json:"containers"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w", path, err)
	}
	if int(raw.Count) != len(raw.Containers) {
		return nil, fmt.Errorf("storage: %s header count %d does not match %d listed ids", path, raw.Count, len(raw.Containers))
	}
	return raw.Containers, nil
}

// CreateContainer creates a new, empty heap file for id, replacing any
// prior entry for the same id.
func (sm *StorageManager) CreateContainer(id uint16) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if old, ok := sm.containers[id]; ok {
		old.Close()
	}
	hf, err := NewHeapFile(containerPath(sm.dataDir, id), id)
	if err != nil {
		return fmt.Errorf("storage: create container %d: %w", id, err)
	}
	sm.containers[id] = hf
	sm.logOp(OpCreateContainer, id, 0, 0)
	return nil
}

// RemoveContainer closes and deletes container id's backing file.
func (sm *StorageManager) RemoveContainer(id uint16) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	hf, ok := sm.containers[id]
	if !ok {
		return fmt.Errorf("storage: remove container %d: not found", id)
	}
	hf.Close()
	delete(sm.containers, id)
	if err := os.Remove(containerPath(sm.dataDir, id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: remove container %d file: %w", id, err)
	}
	sm.logOp(OpRemoveContainer, id, 0, 0)
	return nil
}

func (sm *StorageManager) heapFile(container uint16) (*HeapFile, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	hf, ok := sm.containers[container]
	if !ok {
		return nil, fmt.Errorf("storage: container %d not found", container)
	}
	return hf, nil
}

// HeapFile exposes a container's backing heap file, used by pkg/snapshot to
// export/import its raw page bytes.
func (sm *StorageManager) HeapFile(container uint16) (*HeapFile, error) {
	return sm.heapFile(container)
}

// InsertValue stores bytes in container, returning the ValueID it was
// assigned. It panics if len(bytes) exceeds the page size, matching the
// spec's "total function except for this one programming error" design.
func (sm *StorageManager) InsertValue(container uint16, bytes []byte) (ValueID, error) {
	if len(bytes) > PageSize {
		panic(fmt.Sprintf("storage: insert of %d bytes exceeds page size %d", len(bytes), PageSize))
	}

	hf, err := sm.heapFile(container)
	if err != nil {
		return ValueID{}, err
	}

	n := hf.NumPages()
	for pid := 0; pid < n; pid++ {
		page, err := hf.ReadPage(PageID(pid))
		if err != nil {
			return ValueID{}, fmt.Errorf("storage: insert into container %d: %w", container, err)
		}
		if slot, ok := page.AddValue(bytes); ok {
			if err := hf.WritePage(page); err != nil {
				return ValueID{}, fmt.Errorf("storage: insert into container %d: %w", container, err)
			}
			id := ValueID{ContainerID: container, PageID: PageID(pid), SlotID: slot}
			sm.logOp(OpInsert, id.ContainerID, id.PageID, id.SlotID)
			return id, nil
		}
	}

	page := NewPage(PageID(n))
	slot, ok := page.AddValue(bytes)
	if !ok {
		return ValueID{}, fmt.Errorf("storage: insert into container %d: value does not fit in an empty page", container)
	}
	if err := hf.WritePage(page); err != nil {
		return ValueID{}, fmt.Errorf("storage: insert into container %d: %w", container, err)
	}
	id := ValueID{ContainerID: container, PageID: PageID(n), SlotID: slot}
	sm.logOp(OpInsert, id.ContainerID, id.PageID, id.SlotID)
	return id, nil
}

// InsertValues inserts each value in order, returning their assigned ids
// in the same order. It stops and returns an error on the first failure.
func (sm *StorageManager) InsertValues(container uint16, values [][]byte) ([]ValueID, error) {
	ids := make([]ValueID, 0, len(values))
	for _, v := range values {
		id, err := sm.InsertValue(container, v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// GetValue returns the bytes stored at id, or an error if the container,
// page, or slot is absent.
func (sm *StorageManager) GetValue(id ValueID) ([]byte, error) {
	hf, err := sm.heapFile(id.ContainerID)
	if err != nil {
		return nil, err
	}
	page, err := hf.ReadPage(id.PageID)
	if err != nil {
		return nil, fmt.Errorf("storage: get value %s: %w", id, err)
	}
	v, ok := page.GetValue(id.SlotID)
	if !ok {
		return nil, fmt.Errorf("storage: get value %s: slot not present", id)
	}
	return v, nil
}

// DeleteValue removes the value at id. Delete is total: it returns no
// error even if the container, page, or slot was already absent.
func (sm *StorageManager) DeleteValue(id ValueID) error {
	hf, err := sm.heapFile(id.ContainerID)
	if err != nil {
		return nil
	}
	page, err := hf.ReadPage(id.PageID)
	if err != nil {
		return nil
	}
	if page.DeleteValue(id.SlotID) {
		if err := hf.WritePage(page); err != nil {
			return fmt.Errorf("storage: delete value %s: %w", id, err)
		}
		sm.logOp(OpDelete, id.ContainerID, id.PageID, id.SlotID)
	}
	return nil
}

// UpdateValue deletes the value at id and inserts bytes as a new value,
// returning the new id, which is generally not equal to id.
func (sm *StorageManager) UpdateValue(id ValueID, bytes []byte) (ValueID, error) {
	if err := sm.DeleteValue(id); err != nil {
		return ValueID{}, err
	}
	return sm.InsertValue(id.ContainerID, bytes)
}

// GetIterator returns a HeapFileIterator over container's heap file.
func (sm *StorageManager) GetIterator(container uint16) (*HeapFileIterator, error) {
	hf, err := sm.heapFile(container)
	if err != nil {
		return nil, err
	}
	return hf.Iterator(), nil
}

// Shutdown persists the current set of container ids to the container-map
// sidecar. Safe to call multiple times; must never be called on a temp
// manager.
func (sm *StorageManager) Shutdown() error {
	if sm.temp {
		return fmt.Errorf("storage: shutdown called on a temp manager")
	}
	sm.mu.RLock()
	ids := make([]uint16, 0, len(sm.containers))
	for id := range sm.containers {
		ids = append(ids, id)
	}
	sm.mu.RUnlock()

	payload := struct {
		Count      uint16   `json:"count"`
		Containers []uint16 `json:"containers"`
	}{Count: uint16(len(ids)), Containers: ids}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", containerMapFile, err)
	}
	path := filepath.Join(sm.dataDir, containerMapFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	sm.logOp(OpShutdown, 0, 0, 0)
	log.Printf("storage: shutdown persisted %d container(s) to %s", len(ids), path)
	return nil
}

// Reset deletes and recreates the storage directory, clearing the
// container map.
func (sm *StorageManager) Reset() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for _, hf := range sm.containers {
		hf.Close()
	}
	sm.containers = make(map[uint16]*HeapFile)

	if err := os.RemoveAll(sm.dataDir); err != nil {
		return fmt.Errorf("storage: reset: remove %s: %w", sm.dataDir, err)
	}
	if err := os.MkdirAll(sm.dataDir, 0755); err != nil {
		return fmt.Errorf("storage: reset: recreate %s: %w", sm.dataDir, err)
	}
	return nil
}

// ClearCache is a no-op: this design has no buffer pool to clear.
func (sm *StorageManager) ClearCache() {}

// ContainerIDs returns the currently-known container ids, used by the
// admin and introspection surfaces.
func (sm *StorageManager) ContainerIDs() []uint16 {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	ids := make([]uint16, 0, len(sm.containers))
	for id := range sm.containers {
		ids = append(ids, id)
	}
	return ids
}

// ContainerStats reports page count and cumulative read/write counters
// for container id.
func (sm *StorageManager) ContainerStats(id uint16) (numPages int, reads, writes int64, err error) {
	hf, err := sm.heapFile(id)
	if err != nil {
		return 0, 0, 0, err
	}
	reads, writes, numPages = hf.Stats()
	return numPages, reads, writes, nil
}

// Close releases every open heap file. If this is a temp manager, its
// entire data directory is removed afterward.
func (sm *StorageManager) Close() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	var firstErr error
	for id, hf := range sm.containers {
		if err := hf.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("storage: close container %d: %w", id, err)
		}
	}
	sm.containers = make(map[uint16]*HeapFile)

	if sm.oplog != nil {
		if err := sm.oplog.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("storage: close op log: %w", err)
		}
	}

	if sm.temp {
		if err := os.RemoveAll(sm.dataDir); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("storage: remove temp directory %s: %w", sm.dataDir, err)
		}
	}
	return firstErr
}
