package lnwire

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Sig is a fixed-size placeholder for a DER-decoded, 64-byte compact
// ECDSA signature. Actual signature encoding/decoding off the wire is
// handled by the collaborator named in chanvalidate; this type only
// carries the bytes through the router.
type Sig [64]byte

// ChanUpdateMsgFlags is a bitfield signaling optional fields present in a
// ChannelUpdate.
type ChanUpdateMsgFlags uint8

const (
	// ChanUpdateOptionMaxHtlc is the bit that indicates whether the
	// optional htlc_maximum_msat field is present in this ChannelUpdate.
	ChanUpdateOptionMaxHtlc ChanUpdateMsgFlags = 1 << iota
)

// ChanUpdateChanFlags is a bitfield carrying the direction bit and the
// enabled bit for a ChannelUpdate.
type ChanUpdateChanFlags uint8

const (
	// ChanUpdateDirection indicates the direction of a channel update.
	// If the bit is clear, then it's a node1 -> node2 update; otherwise
	// it's a node2 -> node1 update.
	ChanUpdateDirection ChanUpdateChanFlags = 1 << iota

	// ChanUpdateDisabled, if set, signals that the channel is not
	// currently able to route any payments.
	ChanUpdateDisabled
)

// IsDisabled returns true if the ChanUpdateDisabled bit is set.
func (c ChanUpdateChanFlags) IsDisabled() bool {
	return c&ChanUpdateDisabled == ChanUpdateDisabled
}

// ChannelAnnouncement announces the existence of a channel between two
// nodes, authenticated by four signatures over the announcement's witness
// fields (two node signatures, two bitcoin signatures).
type ChannelAnnouncement struct {
	// NodeSig1, NodeSig2 are signatures by the node keys over the
	// announcement.
	NodeSig1, NodeSig2 Sig

	// BitcoinSig1, BitcoinSig2 are signatures by the bitcoin keys that
	// control the channel's funding output, proving the announcement is
	// tied to a real on-chain channel.
	BitcoinSig1, BitcoinSig2 Sig

	// ShortChannelID is the compact identifier of the channel's funding
	// outpoint.
	ShortChannelID ShortChannelID

	// NodeID1, NodeID2 are the advertising nodes' identity public keys,
	// serialized compressed. NodeID1 is always lexicographically less
	// than NodeID2.
	NodeID1, NodeID2 [33]byte

	// BitcoinKey1, BitcoinKey2 are the public keys used by each node to
	// sign the funding transaction, serialized compressed.
	BitcoinKey1, BitcoinKey2 [33]byte

	// ChainHash denotes the target chain that this channel was opened
	// within.
	ChainHash chainhash.Hash

	// Features is an opaque set of bytes for any future feature
	// extensions.
	Features *RawFeatureVector
}

// ChannelUpdate is a timestamped, directional, signed declaration of one
// side's forwarding policy for a channel.
type ChannelUpdate struct {
	// Signature is a signature over the remaining fields, made with the
	// node key of whichever side originated this update.
	Signature Sig

	// ChainHash denotes the target chain that this update applies to.
	ChainHash chainhash.Hash

	// ShortChannelID identifies the channel this policy applies to.
	ShortChannelID ShortChannelID

	// Timestamp is the unix time this update was generated at. Per
	// (channel, direction), only the update with the highest timestamp
	// is retained.
	Timestamp uint32

	// MessageFlags carries optional-field presence bits.
	MessageFlags ChanUpdateMsgFlags

	// ChannelFlags carries the direction bit and the enabled bit.
	ChannelFlags ChanUpdateChanFlags

	// TimeLockDelta is the minimum number of blocks this node requires
	// to be added to the expiry of HTLCs forwarded over this channel.
	TimeLockDelta uint16

	// HtlcMinimumMsat is the minimum HTLC value this channel will
	// forward, expressed in millisatoshi.
	HtlcMinimumMsat uint64

	// BaseFee is the base fee, in millisatoshi, charged for any HTLC
	// forwarded over this channel.
	BaseFee uint32

	// FeeRate is the fee rate, in millionths, charged proportional to
	// the forwarded HTLC's value.
	FeeRate uint32

	// HtlcMaximumMsat is the maximum HTLC value this channel will
	// forward. It is only meaningful when ChanUpdateOptionMaxHtlc is set
	// in MessageFlags.
	HtlcMaximumMsat uint64
}

// Direction returns 0 if this update governs the node1->node2 direction,
// and 1 otherwise.
func (c *ChannelUpdate) Direction() uint8 {
	if c.ChannelFlags&ChanUpdateDirection == 0 {
		return 0
	}
	return 1
}

// IsDisabled returns true if this update marks the channel as disabled in
// its advertised direction.
func (c *ChannelUpdate) IsDisabled() bool {
	return c.ChannelFlags.IsDisabled()
}

// NodeAnnouncement is a timestamped, signed self-description of a node.
type NodeAnnouncement struct {
	// Signature is a signature over the remaining fields, made with the
	// node's own identity key.
	Signature Sig

	// Features is the set of protocol features this node supports.
	Features *RawFeatureVector

	// Timestamp is the unix time this announcement was generated at.
	Timestamp uint32

	// NodeID is the node's identity public key, serialized compressed.
	NodeID [33]byte

	// RGBColor is the node's preferred display color.
	RGBColor [3]byte

	// Alias is a free-form, user-supplied moniker for the node.
	Alias [32]byte

	// Addresses is the set of network addresses the node advertises it
	// can be reached at.
	Addresses []string
}

// QueryChannelRange is sent by a node wishing to learn what channels a
// peer knows of within a range of blocks.
type QueryChannelRange struct {
	ChainHash        chainhash.Hash
	FirstBlockHeight uint32
	NumBlocks        uint32
}

// ReplyChannelRange is the (possibly chunked) response to a
// QueryChannelRange, carrying the set of short channel ids the replying
// node knows of within the requested range.
type ReplyChannelRange struct {
	QueryChannelRange

	// Complete is 1 if this is the final chunk of a streamed reply.
	Complete uint8

	// ShortChanIDs is the ordered list of short channel ids the remote
	// peer knows of in the queried window.
	ShortChanIDs []ShortChannelID
}

// QueryShortChannelID requests the full announcement/update/node-ann set
// for the given channels.
type QueryShortChannelID struct {
	ChainHash    chainhash.Hash
	ShortChanIDs []ShortChannelID
}

// ReplyShortChanIDsEnd terminates a streamed response to a
// QueryShortChannelID.
type ReplyShortChanIDsEnd struct {
	ChainHash chainhash.Hash
	Complete  uint8
}

// ErrorCode enumerates the reasons a protocol Error may be sent to a peer.
type ErrorCode uint8

const (
	// ErrInvalidSignature indicates a gossip message failed signature
	// verification.
	ErrInvalidSignature ErrorCode = iota

	// ErrUnknownChainHash indicates a message referenced a chain this
	// node does not serve.
	ErrUnknownChainHash
)

// Error is the protocol-level message sent back to a misbehaving peer.
// It never accompanies a state mutation.
type Error struct {
	Code ErrorCode
	Data []byte
}
