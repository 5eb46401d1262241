// Package chanvalidate supplies the signature-verification collaborator
// the routing core calls out to. Validator is the narrow interface the
// router depends on; ECDSAValidator is the real btcec-backed default.
package chanvalidate

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec"
	"github.com/breez/lnrouter/lnwire"
	"github.com/breez/lnrouter/route"
)

// featureBytes returns the wire encoding of a feature vector, or nil if
// fv is unset.
func featureBytes(fv *lnwire.RawFeatureVector) []byte {
	if fv == nil {
		return nil
	}
	var buf bytes.Buffer
	// Encode never fails against a bytes.Buffer.
	_ = fv.Encode(&buf)
	return buf.Bytes()
}

// Validator authenticates gossip messages before the router mutates
// state on their account. A failed validation must never mutate router
// state.
type Validator interface {
	// ValidateChannelAnnouncement checks the four signatures carried by
	// a ChannelAnnouncement against its witness fields.
	ValidateChannelAnnouncement(ann *lnwire.ChannelAnnouncement) error

	// ValidateChannelUpdate checks a ChannelUpdate's signature against
	// the node key that originated it (desc.A).
	ValidateChannelUpdate(u *lnwire.ChannelUpdate, signer route.Vertex) error

	// ValidateNodeAnnouncement checks a NodeAnnouncement's signature
	// against its own advertised node key.
	ValidateNodeAnnouncement(n *lnwire.NodeAnnouncement) error
}

// ECDSAValidator is the default Validator, verifying compact 64-byte
// (r||s) ECDSA signatures over the double-SHA256 digest of each
// message's witness fields.
type ECDSAValidator struct{}

// NewECDSAValidator returns a ready-to-use ECDSAValidator.
func NewECDSAValidator() *ECDSAValidator {
	return &ECDSAValidator{}
}

func sigFromBytes(sig lnwire.Sig) *btcec.Signature {
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:])
	return &btcec.Signature{R: r, S: s}
}

func verify(pubKeyBytes []byte, sig lnwire.Sig, digest []byte) error {
	pubKey, err := btcec.ParsePubKey(pubKeyBytes, btcec.S256())
	if err != nil {
		return fmt.Errorf("invalid public key: %v", err)
	}

	if !sigFromBytes(sig).Verify(digest, pubKey) {
		return fmt.Errorf("signature verification failed")
	}

	return nil
}

// announcementDigest hashes the witness fields of a ChannelAnnouncement:
// everything but the four signatures.
func announcementDigest(ann *lnwire.ChannelAnnouncement) []byte {
	h := sha256.New()
	h.Write(featureBytes(ann.Features))
	h.Write(ann.ChainHash[:])
	scid := ann.ShortChannelID.ToUint64()
	h.Write(uint64Bytes(scid))
	h.Write(ann.NodeID1[:])
	h.Write(ann.NodeID2[:])
	h.Write(ann.BitcoinKey1[:])
	h.Write(ann.BitcoinKey2[:])
	sum := h.Sum(nil)
	sum2 := sha256.Sum256(sum)
	return sum2[:]
}

func updateDigest(u *lnwire.ChannelUpdate) []byte {
	h := sha256.New()
	h.Write(u.ChainHash[:])
	h.Write(uint64Bytes(u.ShortChannelID.ToUint64()))
	h.Write(uint32Bytes(u.Timestamp))
	h.Write([]byte{byte(u.MessageFlags), byte(u.ChannelFlags)})
	h.Write(uint16Bytes(u.TimeLockDelta))
	h.Write(uint64Bytes(u.HtlcMinimumMsat))
	h.Write(uint32Bytes(u.BaseFee))
	h.Write(uint32Bytes(u.FeeRate))
	h.Write(uint64Bytes(u.HtlcMaximumMsat))
	sum := h.Sum(nil)
	sum2 := sha256.Sum256(sum)
	return sum2[:]
}

func nodeAnnDigest(n *lnwire.NodeAnnouncement) []byte {
	h := sha256.New()
	h.Write(featureBytes(n.Features))
	h.Write(uint32Bytes(n.Timestamp))
	h.Write(n.NodeID[:])
	h.Write(n.RGBColor[:])
	h.Write(n.Alias[:])
	for _, addr := range n.Addresses {
		h.Write([]byte(addr))
	}
	sum := h.Sum(nil)
	sum2 := sha256.Sum256(sum)
	return sum2[:]
}

// ValidateChannelAnnouncement implements Validator.
func (v *ECDSAValidator) ValidateChannelAnnouncement(ann *lnwire.ChannelAnnouncement) error {
	digest := announcementDigest(ann)

	checks := []struct {
		pubKey [33]byte
		sig    lnwire.Sig
	}{
		{ann.NodeID1, ann.NodeSig1},
		{ann.NodeID2, ann.NodeSig2},
		{ann.BitcoinKey1, ann.BitcoinSig1},
		{ann.BitcoinKey2, ann.BitcoinSig2},
	}

	for _, c := range checks {
		if err := verify(c.pubKey[:], c.sig, digest); err != nil {
			return fmt.Errorf("channel announcement: %v", err)
		}
	}

	return nil
}

// ValidateChannelUpdate implements Validator.
func (v *ECDSAValidator) ValidateChannelUpdate(u *lnwire.ChannelUpdate, signer route.Vertex) error {
	digest := updateDigest(u)
	if err := verify(signer[:], u.Signature, digest); err != nil {
		return fmt.Errorf("channel update: %v", err)
	}
	return nil
}

// ValidateNodeAnnouncement implements Validator.
func (v *ECDSAValidator) ValidateNodeAnnouncement(n *lnwire.NodeAnnouncement) error {
	digest := nodeAnnDigest(n)
	if err := verify(n.NodeID[:], n.Signature, digest); err != nil {
		return fmt.Errorf("node announcement: %v", err)
	}
	return nil
}

func uint64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

func uint32Bytes(v uint32) []byte {
	b := make([]byte, 4)
	for i := 3; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

func uint16Bytes(v uint16) []byte {
	return []byte{byte(v >> 8), byte(v)}
}
