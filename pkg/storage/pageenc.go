package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// PageCipher optionally encrypts pages at rest. Ordinary AES-CTR usage
// stores a random nonce alongside the ciphertext, but a page's on-disk
// layout has no room to grow: every byte is already accounted for by the
// directory and body. The IV is instead derived deterministically from
// the page's physical slot (its position in the file), which a reader
// always knows before decrypting - unlike the page's logical id, which
// lives inside the encrypted header and so cannot seed its own
// decryption. This trades perfect semantic security for a fixed-size
// ciphertext: reusing a slot's IV across an overwrite of that slot is a
// known weakness this design accepts for an at-rest, not in-transit,
// threat model.
type PageCipher struct {
	block cipher.Block
}

// NewPageCipher derives a 32-byte AES-256 key from passphrase via PBKDF2
// (100,000 iterations, SHA-256), matching the KDF parameters the teacher
// repo's encryptor uses for password-derived keys.
func NewPageCipher(passphrase string, salt []byte) (*PageCipher, error) {
	key := pbkdf2.Key([]byte(passphrase), salt, 100000, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("storage: init page cipher: %w", err)
	}
	return &PageCipher{block: block}, nil
}

func (pc *PageCipher) slotIV(slot int) []byte {
	iv := make([]byte, aes.BlockSize)
	binary.BigEndian.PutUint64(iv[0:8], uint64(slot))
	return iv
}

// Encrypt returns the AES-CTR encryption of a page's serialized bytes for
// the given file slot, exactly len(plaintext) bytes long.
func (pc *PageCipher) Encrypt(slot int, plaintext []byte) []byte {
	stream := cipher.NewCTR(pc.block, pc.slotIV(slot))
	ciphertext := make([]byte, len(plaintext))
	stream.XORKeyStream(ciphertext, plaintext)
	return ciphertext
}

// Decrypt is the inverse of Encrypt; AES-CTR is its own inverse given the
// same key and IV.
func (pc *PageCipher) Decrypt(slot int, ciphertext []byte) []byte {
	return pc.Encrypt(slot, ciphertext)
}
