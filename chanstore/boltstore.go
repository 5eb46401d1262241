package chanstore

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"

	"github.com/breez/lnrouter/lnwire"
	"github.com/breez/lnrouter/route"
	bolt "github.com/coreos/bbolt"
)

var (
	channelsBucket = []byte("channels")
	updatesBucket  = []byte("updates")
	nodesBucket    = []byte("nodes")
)

// BoltStore is a ChannelGraphStore backed by a bbolt database, one
// top-level bucket per collection.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if necessary) a BoltStore at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{channelsBucket, updatesBucket, nodesBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	log.Debugf("Channel graph store opened at %v", path)

	return &BoltStore{db: db}, nil
}

// Close releases the underlying bbolt database handle.
func (b *BoltStore) Close() error {
	return b.db.Close()
}

func scidKey(id lnwire.ShortChannelID) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id.ToUint64())
	return key
}

func encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(b []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(v)
}

// ListChannels implements ChannelGraphStore.
func (b *BoltStore) ListChannels() (map[lnwire.ShortChannelID]*lnwire.ChannelAnnouncement, error) {
	out := make(map[lnwire.ShortChannelID]*lnwire.ChannelAnnouncement)

	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(channelsBucket)
		return bucket.ForEach(func(k, v []byte) error {
			var ann lnwire.ChannelAnnouncement
			if err := decode(v, &ann); err != nil {
				return err
			}
			out[ann.ShortChannelID] = &ann
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// ListChannelUpdates implements ChannelGraphStore.
func (b *BoltStore) ListChannelUpdates() ([]*lnwire.ChannelUpdate, error) {
	var out []*lnwire.ChannelUpdate

	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(updatesBucket)
		return bucket.ForEach(func(k, v []byte) error {
			var pair [2]lnwire.ChannelUpdate
			if err := decode(v, &pair); err != nil {
				return err
			}
			for i := range pair {
				if pair[i].Timestamp != 0 {
					u := pair[i]
					out = append(out, &u)
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// AddChannel implements ChannelGraphStore.
func (b *BoltStore) AddChannel(ann *lnwire.ChannelAnnouncement) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		v, err := encode(*ann)
		if err != nil {
			return err
		}
		return tx.Bucket(channelsBucket).Put(scidKey(ann.ShortChannelID), v)
	})
}

// RemoveChannel implements ChannelGraphStore.
func (b *BoltStore) RemoveChannel(id lnwire.ShortChannelID) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(channelsBucket).Delete(scidKey(id)); err != nil {
			return err
		}
		return tx.Bucket(updatesBucket).Delete(scidKey(id))
	})
}

func (b *BoltStore) storeUpdate(u *lnwire.ChannelUpdate) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(channelsBucket)
		if bucket.Get(scidKey(u.ShortChannelID)) == nil {
			return fmt.Errorf("unknown channel %v", u.ShortChannelID)
		}

		updates := tx.Bucket(updatesBucket)
		key := scidKey(u.ShortChannelID)

		var pair [2]lnwire.ChannelUpdate
		if raw := updates.Get(key); raw != nil {
			if err := decode(raw, &pair); err != nil {
				return err
			}
		}
		pair[u.Direction()] = *u

		v, err := encode(pair)
		if err != nil {
			return err
		}
		return updates.Put(key, v)
	})
}

// AddChannelUpdate implements ChannelGraphStore.
func (b *BoltStore) AddChannelUpdate(u *lnwire.ChannelUpdate, signer route.Vertex) error {
	return b.storeUpdate(u)
}

// UpdateChannelUpdate implements ChannelGraphStore.
func (b *BoltStore) UpdateChannelUpdate(u *lnwire.ChannelUpdate, signer route.Vertex) error {
	return b.storeUpdate(u)
}

// AddNode implements ChannelGraphStore.
func (b *BoltStore) AddNode(n *lnwire.NodeAnnouncement) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		v, err := encode(*n)
		if err != nil {
			return err
		}
		return tx.Bucket(nodesBucket).Put(n.NodeID[:], v)
	})
}

// UpdateNode implements ChannelGraphStore.
func (b *BoltStore) UpdateNode(n *lnwire.NodeAnnouncement) error {
	return b.AddNode(n)
}

// RemoveNode implements ChannelGraphStore.
func (b *BoltStore) RemoveNode(id route.Vertex) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(nodesBucket).Delete(id[:])
	})
}
