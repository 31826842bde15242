// Package snapshot exports and imports one container's heap file as a
// compressed archive, for backup and restore. This operates on the heap
// file's raw page bytes, not on the tuples stored in it; the on-disk page
// format itself is unchanged by compression - only the archive produced on
// export is compressed.
package snapshot

import (
	"bytes"
	"fmt"
	"io"

	"github.com/mnohosten/laura-db/pkg/compression"
	"github.com/mnohosten/laura-db/pkg/encryption"
	"github.com/mnohosten/laura-db/pkg/storage"
)

// Export writes a compressed copy of container's current heap file to w,
// using cfg (DefaultConfig if nil). If enc is non-nil, the compressed
// archive is additionally encrypted before being written; an archive is a
// variable-length blob, unlike a page, so enc's nonce-prepending format is
// not a problem here the way it is for page-at-rest encryption.
func Export(sm *storage.StorageManager, container uint16, w io.Writer, cfg *compression.Config, enc *encryption.Encryptor) error {
	hf, err := sm.HeapFile(container)
	if err != nil {
		return fmt.Errorf("snapshot: export container %d: %w", container, err)
	}

	var raw bytes.Buffer
	if _, err := hf.WriteTo(&raw); err != nil {
		return fmt.Errorf("snapshot: export container %d: %w", container, err)
	}

	comp, err := compression.NewCompressor(cfg)
	if err != nil {
		return fmt.Errorf("snapshot: create compressor: %w", err)
	}
	out, err := comp.Compress(raw.Bytes())
	if err != nil {
		return fmt.Errorf("snapshot: compress container %d: %w", container, err)
	}

	if enc != nil {
		out, err = enc.Encrypt(out)
		if err != nil {
			return fmt.Errorf("snapshot: encrypt archive: %w", err)
		}
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("snapshot: write archive: %w", err)
	}
	return nil
}

// Import replaces container's heap file contents with the archive read
// from r, reversing Export. cfg and enc must match the ones Export was
// called with. The container must already exist (see
// StorageManager.CreateContainer).
func Import(sm *storage.StorageManager, container uint16, r io.Reader, cfg *compression.Config, enc *encryption.Encryptor) error {
	hf, err := sm.HeapFile(container)
	if err != nil {
		return fmt.Errorf("snapshot: import container %d: %w", container, err)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("snapshot: read archive: %w", err)
	}
	if enc != nil {
		raw, err = enc.Decrypt(raw)
		if err != nil {
			return fmt.Errorf("snapshot: decrypt archive: %w", err)
		}
	}

	comp, err := compression.NewCompressor(cfg)
	if err != nil {
		return fmt.Errorf("snapshot: create compressor: %w", err)
	}
	decompressed, err := comp.Decompress(raw)
	if err != nil {
		return fmt.Errorf("snapshot: decompress container %d: %w", container, err)
	}

	if _, err := hf.ReadFrom(bytes.NewReader(decompressed)); err != nil {
		return fmt.Errorf("snapshot: import container %d: %w", container, err)
	}
	return nil
}
