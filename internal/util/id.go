package util

import (
	"crypto/rand"
	"encoding/hex"
)

const idBytes = 12

// NewID returns a random identifier such as "ver_3f9c...". The store uses
// the prefixes art_, ver_ and doc_; laws are keyed by their slug instead.
func NewID(prefix string) string {
	bytes := make([]byte, idBytes)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}
