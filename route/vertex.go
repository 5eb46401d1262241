// Package route holds the small types shared between the
// channel graph and the path finder: node identifiers, directed channel
// descriptors, and the hops a computed route is made of.
package route

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec"
)

// Vertex is a simple alias for the serialized compressed public key of a
// node, used as a graph vertex identifier.
type Vertex [33]byte

// NewVertex returns a new Vertex given a public key.
func NewVertex(pub *btcec.PublicKey) Vertex {
	var v Vertex
	copy(v[:], pub.SerializeCompressed())
	return v
}

// NewVertexFromBytes returns a new Vertex given the serialized compressed
// bytes of a public key.
func NewVertexFromBytes(b []byte) (Vertex, error) {
	var v Vertex
	if len(b) != len(v) {
		return v, errVertexLength(len(b))
	}
	copy(v[:], b)
	return v, nil
}

// NewVertexFromStr returns a new Vertex given the hex-encoded bytes of a
// public key.
func NewVertexFromStr(s string) (Vertex, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Vertex{}, err
	}
	return NewVertexFromBytes(b)
}

// String returns a human readable version of the Vertex.
func (v Vertex) String() string {
	return hex.EncodeToString(v[:])
}

type errVertexLength int

func (e errVertexLength) Error() string {
	return fmt.Sprintf("invalid vertex length, expected 33 bytes, got %d", int(e))
}
