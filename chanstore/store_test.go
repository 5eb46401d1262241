package chanstore

import (
	"path/filepath"
	"testing"

	"github.com/breez/lnrouter/lnwire"
	"github.com/breez/lnrouter/route"
)

func testVertex(b byte) route.Vertex {
	var v route.Vertex
	v[0] = 0x02
	v[32] = b
	return v
}

func testScid(height uint32) lnwire.ShortChannelID {
	return lnwire.ShortChannelID{BlockHeight: height}
}

func testAnnouncement(id lnwire.ShortChannelID) *lnwire.ChannelAnnouncement {
	return &lnwire.ChannelAnnouncement{
		ShortChannelID: id,
		NodeID1:        testVertex(1),
		NodeID2:        testVertex(2),
	}
}

func testUpdate(id lnwire.ShortChannelID, direction uint8, timestamp uint32) *lnwire.ChannelUpdate {
	var flags lnwire.ChanUpdateChanFlags
	if direction == 1 {
		flags = lnwire.ChanUpdateDirection
	}
	return &lnwire.ChannelUpdate{
		ShortChannelID: id,
		ChannelFlags:   flags,
		Timestamp:      timestamp,
		BaseFee:        100,
	}
}

// runStoreTests exercises the full ChannelGraphStore contract against any
// implementation.
func runStoreTests(t *testing.T, store ChannelGraphStore) {
	t.Helper()

	id := testScid(1000)
	signer := testVertex(1)

	if err := store.AddChannel(testAnnouncement(id)); err != nil {
		t.Fatalf("AddChannel: %v", err)
	}

	channels, err := store.ListChannels()
	if err != nil {
		t.Fatalf("ListChannels: %v", err)
	}
	if len(channels) != 1 {
		t.Fatalf("expected 1 channel, got %d", len(channels))
	}
	if _, ok := channels[id]; !ok {
		t.Fatalf("stored channel not listed")
	}

	// An update for an unknown channel must be refused.
	if err := store.AddChannelUpdate(testUpdate(testScid(9999), 0, 1), signer); err == nil {
		t.Fatalf("expected error storing update for unknown channel")
	}

	if err := store.AddChannelUpdate(testUpdate(id, 0, 1), signer); err != nil {
		t.Fatalf("AddChannelUpdate: %v", err)
	}
	if err := store.AddChannelUpdate(testUpdate(id, 1, 2), testVertex(2)); err != nil {
		t.Fatalf("AddChannelUpdate direction 1: %v", err)
	}
	if err := store.UpdateChannelUpdate(testUpdate(id, 0, 3), signer); err != nil {
		t.Fatalf("UpdateChannelUpdate: %v", err)
	}

	updates, err := store.ListChannelUpdates()
	if err != nil {
		t.Fatalf("ListChannelUpdates: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates (one per direction), got %d", len(updates))
	}
	for _, u := range updates {
		if u.Direction() == 0 && u.Timestamp != 3 {
			t.Fatalf("direction-0 update not replaced, timestamp=%d", u.Timestamp)
		}
	}

	// Removing the channel cascades to its updates.
	if err := store.RemoveChannel(id); err != nil {
		t.Fatalf("RemoveChannel: %v", err)
	}
	channels, err = store.ListChannels()
	if err != nil {
		t.Fatalf("ListChannels: %v", err)
	}
	if len(channels) != 0 {
		t.Fatalf("expected channel removed, got %d", len(channels))
	}
	updates, err = store.ListChannelUpdates()
	if err != nil {
		t.Fatalf("ListChannelUpdates: %v", err)
	}
	if len(updates) != 0 {
		t.Fatalf("expected updates cascaded away, got %d", len(updates))
	}

	node := &lnwire.NodeAnnouncement{NodeID: testVertex(7), Timestamp: 1}
	if err := store.AddNode(node); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := store.UpdateNode(&lnwire.NodeAnnouncement{NodeID: testVertex(7), Timestamp: 2}); err != nil {
		t.Fatalf("UpdateNode: %v", err)
	}
	if err := store.RemoveNode(testVertex(7)); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}
	// Removing an absent node is a no-op, not an error.
	if err := store.RemoveNode(testVertex(8)); err != nil {
		t.Fatalf("RemoveNode absent: %v", err)
	}
}

func TestMemStore(t *testing.T) {
	runStoreTests(t, NewMemStore())
}

func TestBoltStore(t *testing.T) {
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "graph.db"))
	if err != nil {
		t.Fatalf("NewBoltStore: %v", err)
	}
	defer store.Close()

	runStoreTests(t, store)
}

func TestBoltStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.db")

	store, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("NewBoltStore: %v", err)
	}

	id := testScid(2000)
	if err := store.AddChannel(testAnnouncement(id)); err != nil {
		t.Fatalf("AddChannel: %v", err)
	}
	if err := store.AddChannelUpdate(testUpdate(id, 0, 1), testVertex(1)); err != nil {
		t.Fatalf("AddChannelUpdate: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	channels, err := reopened.ListChannels()
	if err != nil {
		t.Fatalf("ListChannels: %v", err)
	}
	if _, ok := channels[id]; !ok {
		t.Fatalf("channel lost across reopen")
	}
	updates, err := reopened.ListChannelUpdates()
	if err != nil {
		t.Fatalf("ListChannelUpdates: %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("expected 1 update after reopen, got %d", len(updates))
	}
}
