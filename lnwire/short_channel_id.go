package lnwire

import (
	"fmt"
	"strconv"
	"strings"
)

// ShortChannelID represents the set of data which is needed to retrieve the
// most basic information of the channel, such as: funding block height, the
// position of the transaction within the block, and also the position of
// the output within the funding transaction. The fields are packed into a
// single uint64 as:
//
//	(BlockHeight << 40) | (TxIndex << 16) | OutputIndex
type ShortChannelID struct {
	// BlockHeight is the height of the block where the funding
	// transaction was confirmed. Only the lower 24 bits are significant.
	BlockHeight uint32

	// TxIndex is the index of the funding transaction within the block.
	// Only the lower 24 bits are significant.
	TxIndex uint32

	// TxPosition is the index of the output within the funding
	// transaction. Only the lower 16 bits are significant.
	TxPosition uint16
}

// peerIDMarker is the high byte that, when set on a ShortChannelID's block
// height field, identifies a synthetic peer-id rather than a real funding
// outpoint. Synthetic ids never appear in the channel graph; they're used
// only as a placeholder key before a channel's real short-channel-id is
// known.
const peerIDMarker = 0xFF

// NewShortChanIDFromInt converts a uint64 short channel id, as carried
// on the wire, to a ShortChannelID struct.
func NewShortChanIDFromInt(chanID uint64) ShortChannelID {
	return ShortChannelID{
		BlockHeight: uint32(chanID >> 40),
		TxIndex:     uint32(chanID>>16) & 0xFFFFFF,
		TxPosition:  uint16(chanID),
	}
}

// ToUint64 converts the ShortChannelID into a unit64 used to identify the
// channel in the gossip database and p2p queries. This is the inverse
// function of NewShortChanIDFromInt.
func (c ShortChannelID) ToUint64() uint64 {
	return ((uint64(c.BlockHeight) << 40) | (uint64(c.TxIndex) << 16) |
		(uint64(c.TxPosition)))
}

// IsPeerID reports whether this ShortChannelID is a synthetic identifier
// encoding the trailing bytes of a node's compressed public key rather than
// a funding outpoint. The high byte of the block height field (0xFF)
// marks these; they must never be inserted into the channel graph.
func (c ShortChannelID) IsPeerID() bool {
	return (c.BlockHeight >> 16) == peerIDMarker
}

// String returns the string representation of the short channel ID. The
// display format is "BlockHeightxTxIndexxTxPosition".
func (c ShortChannelID) String() string {
	return fmt.Sprintf("%dx%dx%d", c.BlockHeight, c.TxIndex, c.TxPosition)
}

// NewShortChanIDFromString parses the textual "HxTxO" representation of a
// short channel id back into a ShortChannelID. It is the inverse of
// String, and round-trips losslessly for any value produced by String.
func NewShortChanIDFromString(s string) (ShortChannelID, error) {
	parts := strings.Split(s, "x")
	if len(parts) != 3 {
		return ShortChannelID{}, fmt.Errorf("short channel id %q "+
			"must have the form BlockxTxxOutput", s)
	}

	height, err := strconv.ParseUint(parts[0], 10, 24)
	if err != nil {
		return ShortChannelID{}, fmt.Errorf("invalid block height: %v", err)
	}
	txIndex, err := strconv.ParseUint(parts[1], 10, 24)
	if err != nil {
		return ShortChannelID{}, fmt.Errorf("invalid tx index: %v", err)
	}
	txPosition, err := strconv.ParseUint(parts[2], 10, 16)
	if err != nil {
		return ShortChannelID{}, fmt.Errorf("invalid output index: %v", err)
	}

	return ShortChannelID{
		BlockHeight: uint32(height),
		TxIndex:     uint32(txIndex),
		TxPosition:  uint16(txPosition),
	}, nil
}

// Less reports whether c sorts before other under the unsigned total
// ordering required of the channels map: comparison is done
// on the packed uint64 form, which already orders first by block height,
// then tx index, then output index.
func (c ShortChannelID) Less(other ShortChannelID) bool {
	return c.ToUint64() < other.ToUint64()
}
