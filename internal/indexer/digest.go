// Package indexer builds and reconciles content-addressed Merkle indexes
// over directory trees.
package indexer

import (
	"crypto/sha1" //nolint:gosec // digest algorithm is a data-format contract, not a security primitive
	"encoding/hex"
)

// ObjectHash uniquely identifies any Blob or Tree: a 20-byte SHA-1 digest.
type ObjectHash [20]byte

// Hex renders an ObjectHash as lower-case, zero-padded, 40-character hex.
func (h ObjectHash) Hex() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero hash, the default tree's placeholder.
func (h ObjectHash) IsZero() bool {
	return h == ObjectHash{}
}

func sha1Sum(data []byte) ObjectHash {
	return sha1.Sum(data) //nolint:gosec
}

// blobHash computes the content-addressed identity of a text file:
// sha1("blob " + ext + " " + content), where ext has no leading dot.
func blobHash(content []byte, ext string) ObjectHash {
	buf := make([]byte, 0, len(content)+len(ext)+6)
	buf = append(buf, "blob "...)
	buf = append(buf, ext...)
	buf = append(buf, ' ')
	buf = append(buf, content...)
	return sha1Sum(buf)
}

// treeHash computes a directory's identity from its children's hashes, in
// walker order. Depends only on the child hashes, not their names or count.
func treeHash(children []ObjectHash) ObjectHash {
	buf := make([]byte, 0, 4+20*len(children))
	buf = append(buf, "tree"...)
	for _, c := range children {
		buf = append(buf, c[:]...)
	}
	return sha1Sum(buf)
}
