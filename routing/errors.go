package routing

import "github.com/go-errors/errors"

// Sentinel errors surfaced by the router.
var (
	// ErrRouteNotFound is returned when either route endpoint is absent
	// from the working graph, or no path connects them.
	ErrRouteNotFound = errors.New("unable to find a path to destination")

	// ErrCannotRouteToSelf is returned when a route is requested from a
	// node to itself.
	ErrCannotRouteToSelf = errors.New("source and destination are the same")

	// ErrUnknownChannel is returned (internally; never surfaced to a
	// peer as anything but an acknowledgement) when a channel update
	// references a channel we've never seen and isn't under
	// validation.
	ErrUnknownChannel = errors.New("channel update received for unknown channel")

	// ErrOutdatedUpdate is returned when an update's timestamp is not
	// strictly greater than the one already stored for its desc.
	ErrOutdatedUpdate = errors.New("update timestamp is not newer than stored update")

	// ErrChannelDuplicate is returned when a channel announcement
	// duplicates one already accepted into the graph.
	ErrChannelDuplicate = errors.New("channel announcement already known")

	// ErrRouterShuttingDown is returned by every public method once Stop
	// has been called.
	ErrRouterShuttingDown = errors.New("router is shutting down")
)

// ProtocolViolation describes a gossip message that failed
// authentication or otherwise malformed the protocol. It must never
// mutate router state, only generate a reply to the peer.
type ProtocolViolation struct {
	Peer   PeerID
	Reason string
}

// Error implements the error interface.
func (e *ProtocolViolation) Error() string {
	return "protocol violation from " + e.Peer.String() + ": " + e.Reason
}
