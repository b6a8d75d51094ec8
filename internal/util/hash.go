package util

import (
	"encoding/hex"
	"hash"
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// BookIDLength is the number of hex characters kept from the digest.
const BookIDLength = 16

var bookIDKey = []byte("e-oasis-mcp/book-id")

func newBookHash() hash.Hash {
	// A key shorter than 64 bytes never fails.
	h, _ := blake2b.New256(bookIDKey)
	return h
}

// BookID derives the library identifier of a book from its raw bytes.
func BookID(data []byte) string {
	h := newBookHash()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))[:BookIDLength]
}

// BookIDFromFile streams the file through the same digest as BookID.
func BookIDFromFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	h := newBookHash()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "failed to read %s", path)
	}
	return hex.EncodeToString(h.Sum(nil))[:BookIDLength], nil
}

// ContentHash digests an ordered list of chapter texts. Chapter boundaries
// are part of the digest, so moving text between chapters changes it.
func ContentHash(texts []string) string {
	h, _ := blake2b.New256(nil)
	for _, text := range texts {
		io.WriteString(h, text)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
