package routing

import (
	"time"

	"github.com/breez/lnrouter/chanstore"
	"github.com/breez/lnrouter/chanvalidate"
	"github.com/breez/lnrouter/route"
	"github.com/breez/lnrouter/subscribe"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Default housekeeping intervals and thresholds.
const (
	// DefaultChannelExcludeDuration is how long an ExcludeChannel
	// exclusion lasts before LiftChannelExclusion fires.
	DefaultChannelExcludeDuration = 2 * time.Minute

	// DefaultBroadcastInterval is the period of the (no-op)
	// TickBroadcast tick.
	DefaultBroadcastInterval = 30 * time.Second

	// staleBlockThreshold is the number of blocks (~2 weeks at 144
	// blocks/day) after which a channel with no recent update becomes a
	// pruning candidate.
	staleBlockThreshold = 2016

	// staleUpdateThreshold is the age, in seconds, beyond which a
	// channel's most recent update no longer keeps it alive.
	staleUpdateThreshold = 1_209_600
)

// Config bundles every collaborator and knob the router needs.
type Config struct {
	// ChainHash is the chain this router instance serves; gossip
	// referencing any other hash is rejected as a protocol violation.
	ChainHash chainhash.Hash

	// NodeID is this node's own identity, used to orient private
	// channel updates.
	NodeID route.Vertex

	// BroadcastInterval is the period of TickBroadcast. The tick itself
	// is currently a no-op, but the interval is still configurable so
	// the owning process can schedule it consistently.
	BroadcastInterval time.Duration

	// ChannelExcludeDuration is how long a temporary ExcludeChannel
	// exclusion lasts before being lifted.
	ChannelExcludeDuration time.Duration

	// NoGraphUpdatingOnStartup, when set, skips rebuilding the in-memory
	// graph from persisted channels/updates at Start. Useful for fast
	// restarts of a mobile-profile node that's about to be handed a
	// fresh snapshot anyway.
	NoGraphUpdatingOnStartup bool

	// Store is the persistence collaborator.
	Store chanstore.ChannelGraphStore

	// Validator authenticates gossip messages.
	Validator chanvalidate.Validator

	// PeerNotifier, when set, receives every outbound gossip query and
	// query reply directly. When nil, those messages are published on
	// Notifier as sendQueryAttempt values instead, for deployments that
	// bridge outbound traffic themselves.
	PeerNotifier PeerNotifier

	// Notifier fans out ChannelLost/NodeDiscovered/NodeUpdated/NodeLost/
	// ChannelUpdateReceived events to subscribers.
	Notifier *subscribe.Server

	// SelfLink supplies our own node identity for orienting private
	// channel updates.
	SelfLink SelfChannelLink
}

func (c *Config) setDefaults() {
	if c.BroadcastInterval == 0 {
		c.BroadcastInterval = DefaultBroadcastInterval
	}
	if c.ChannelExcludeDuration == 0 {
		c.ChannelExcludeDuration = DefaultChannelExcludeDuration
	}
	if c.Notifier == nil {
		c.Notifier = subscribe.NewServer()
	}
}
