package storage

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func TestStorageManagerInsertGetDelete(t *testing.T) {
	sm, err := New(Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sm.Close()

	if err := sm.CreateContainer(1); err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}

	id, err := sm.InsertValue(1, []byte("hello"))
	if err != nil {
		t.Fatalf("InsertValue: %v", err)
	}

	got, err := sm.GetValue(id)
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("GetValue = %q, want %q", got, "hello")
	}

	if err := sm.DeleteValue(id); err != nil {
		t.Fatalf("DeleteValue: %v", err)
	}
	if _, err := sm.GetValue(id); err == nil {
		t.Fatal("expected error getting a deleted value")
	}

	// Delete is total: deleting again, or deleting a never-existed id,
	// must not error.
	if err := sm.DeleteValue(id); err != nil {
		t.Fatalf("second DeleteValue should be a no-op, got: %v", err)
	}
	if err := sm.DeleteValue(ValueID{ContainerID: 1, PageID: 99, SlotID: 99}); err != nil {
		t.Fatalf("DeleteValue of a never-existed id should be a no-op, got: %v", err)
	}
}

func TestStorageManagerInsertSpansMultiplePages(t *testing.T) {
	sm, err := New(Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	defer sm.Close()
	if err := sm.CreateContainer(1); err != nil {
		t.Fatal(err)
	}

	payload := make([]byte, 200)
	var ids []ValueID
	for i := 0; i < 100; i++ {
		id, err := sm.InsertValue(1, payload)
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	numPages, _, _, err := sm.ContainerStats(1)
	if err != nil {
		t.Fatal(err)
	}
	if numPages < 2 {
		t.Fatalf("expected inserts to span multiple pages, got %d page(s)", numPages)
	}

	for _, id := range ids {
		if _, err := sm.GetValue(id); err != nil {
			t.Fatalf("GetValue(%s): %v", id, err)
		}
	}
}

func TestStorageManagerInsertPanicsOnOversizedValue(t *testing.T) {
	sm, err := New(Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	defer sm.Close()
	sm.CreateContainer(1)

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected InsertValue to panic on an oversized value")
		}
	}()
	sm.InsertValue(1, make([]byte, PageSize+1))
}

// TestStorageManagerSurvivesShutdownRestart checks that shutdown and
// restart preserve every previously-issued value id across three
// containers.
func TestStorageManagerSurvivesShutdownRestart(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	sm, err := New(Config{DataDir: dir})
	if err != nil {
		t.Fatal(err)
	}

	containerIDs := []uint16{1, 5, 9}
	for _, id := range containerIDs {
		if err := sm.CreateContainer(id); err != nil {
			t.Fatalf("CreateContainer(%d): %v", id, err)
		}
	}

	type stored struct {
		id    ValueID
		bytes []byte
	}
	var all []stored
	for i := 0; i < 1000; i++ {
		cid := containerIDs[i%len(containerIDs)]
		b := make([]byte, 8+i%64)
		rand.Read(b)
		id, err := sm.InsertValue(cid, b)
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		all = append(all, stored{id, b})
	}

	preShutdownPages := make(map[uint16]int)
	for _, id := range containerIDs {
		n, _, _, err := sm.ContainerStats(id)
		if err != nil {
			t.Fatal(err)
		}
		preShutdownPages[id] = n
	}

	if err := sm.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := sm.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	restarted, err := New(Config{DataDir: dir})
	if err != nil {
		t.Fatalf("reopen after shutdown: %v", err)
	}
	defer restarted.Close()

	for _, s := range all {
		got, err := restarted.GetValue(s.id)
		if err != nil {
			t.Fatalf("GetValue(%s) after restart: %v", s.id, err)
		}
		if !bytes.Equal(got, s.bytes) {
			t.Fatalf("value at %s changed across restart", s.id)
		}
	}
	for _, id := range containerIDs {
		n, _, _, err := restarted.ContainerStats(id)
		if err != nil {
			t.Fatal(err)
		}
		if n != preShutdownPages[id] {
			t.Fatalf("container %d: num_pages after restart = %d, want %d", id, n, preShutdownPages[id])
		}
	}
}

func TestStorageManagerTempRemovesDirOnClose(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "temp-store")
	sm, err := NewTemp(dir)
	if err != nil {
		t.Fatal(err)
	}
	sm.CreateContainer(1)
	sm.InsertValue(1, []byte("x"))

	if err := sm.Shutdown(); err == nil {
		t.Fatal("expected Shutdown on a temp manager to error")
	}
	if err := sm.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("temp directory still present after Close (stat err: %v)", err)
	}
	if _, err := New(Config{DataDir: dir}); err != nil {
		// Directory should be gone; New recreates it empty, which is fine -
		// the point is no stale container files survive.
		t.Fatalf("unexpected error reopening removed temp dir: %v", err)
	}
}
