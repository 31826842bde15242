package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestHeapFileWriteReadByLogicalID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c1")
	hf, err := NewHeapFile(path, 1)
	if err != nil {
		t.Fatalf("NewHeapFile: %v", err)
	}
	defer hf.Close()

	p5 := NewPage(5)
	p5.AddValue([]byte("page five"))
	if err := hf.WritePage(p5); err != nil {
		t.Fatalf("WritePage(5): %v", err)
	}

	p2 := NewPage(2)
	p2.AddValue([]byte("page two"))
	if err := hf.WritePage(p2); err != nil {
		t.Fatalf("WritePage(2): %v", err)
	}

	if hf.NumPages() != 2 {
		t.Fatalf("NumPages() = %d, want 2", hf.NumPages())
	}

	got, err := hf.ReadPage(5)
	if err != nil {
		t.Fatalf("ReadPage(5): %v", err)
	}
	if got.ID() != 5 {
		t.Fatalf("ReadPage(5).ID() = %d, want 5", got.ID())
	}
	v, ok := got.GetValue(0)
	if !ok || !bytes.Equal(v, []byte("page five")) {
		t.Fatalf("unexpected value in page 5: %v ok=%v", v, ok)
	}

	got, err = hf.ReadPage(2)
	if err != nil {
		t.Fatalf("ReadPage(2): %v", err)
	}
	if got.ID() != 2 {
		t.Fatalf("ReadPage(2).ID() = %d, want 2", got.ID())
	}
}

func TestHeapFileWritePageOverwritesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c1")
	hf, err := NewHeapFile(path, 1)
	if err != nil {
		t.Fatalf("NewHeapFile: %v", err)
	}
	defer hf.Close()

	p := NewPage(0)
	p.AddValue([]byte("v1"))
	if err := hf.WritePage(p); err != nil {
		t.Fatal(err)
	}

	p.AddValue([]byte("v2"))
	if err := hf.WritePage(p); err != nil {
		t.Fatal(err)
	}

	if hf.NumPages() != 1 {
		t.Fatalf("NumPages() = %d, want 1 (overwrite, not append)", hf.NumPages())
	}

	reloaded, err := hf.ReadPage(0)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := reloaded.GetValue(1); !ok {
		t.Fatal("expected second insert to be present after overwrite")
	}
}

func TestHeapFileEncryptedRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c1")
	hf, err := NewHeapFile(path, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer hf.Close()

	cipher, err := NewPageCipher("correct horse battery staple", []byte("fixed-test-salt-0123456789abcd"))
	if err != nil {
		t.Fatalf("NewPageCipher: %v", err)
	}
	hf.SetCipher(cipher)

	p := NewPage(3)
	p.AddValue([]byte("secret"))
	if err := hf.WritePage(p); err != nil {
		t.Fatalf("WritePage: %v", err)
	}

	got, err := hf.ReadPage(3)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	v, ok := got.GetValue(0)
	if !ok || !bytes.Equal(v, []byte("secret")) {
		t.Fatalf("decrypted value = %v, ok=%v", v, ok)
	}

	raw := make([]byte, PageSize)
	if _, err := os.ReadFile(path); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.ReadAt(raw, 0); err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(raw, []byte("secret")) {
		t.Fatal("plaintext value is visible in the on-disk bytes")
	}
}

func TestHeapFileIteratorOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c1")
	hf, err := NewHeapFile(path, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer hf.Close()

	for i, s := range []string{"a", "b", "c"} {
		p := NewPage(PageID(i))
		p.AddValue([]byte(s))
		if err := hf.WritePage(p); err != nil {
			t.Fatal(err)
		}
	}

	it := hf.Iterator()
	defer it.Close()

	var got []string
	for {
		data, vid, ok := it.Next()
		if !ok {
			break
		}
		if vid.PageID != PageID(len(got)) {
			t.Fatalf("unexpected page order: got page %d at position %d", vid.PageID, len(got))
		}
		got = append(got, string(data))
	}
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
