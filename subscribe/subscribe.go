// Package subscribe provides a simple, type-agnostic publish/subscribe
// server, used by the router as its outbound event bus.
package subscribe

import (
	"sync"
	"sync/atomic"

	"github.com/go-errors/errors"
)

// ErrServerStopped is returned by SendUpdate and Subscribe once Stop has
// been called.
var ErrServerStopped = errors.New("subscription server has been stopped")

// Client represents a single subscriber. Updates is closed when the
// server stops or Cancel is called.
type Client struct {
	id     uint64
	server *Server

	updates chan interface{}

	cancelOnce sync.Once
}

// Updates returns the channel on which this client receives every update
// sent to the server after it subscribed.
func (c *Client) Updates() <-chan interface{} {
	return c.updates
}

// Cancel unregisters the client from the server and closes its channel.
func (c *Client) Cancel() {
	c.cancelOnce.Do(func() {
		c.server.removeClient(c.id)
		close(c.updates)
	})
}

// Server fans out updates sent via SendUpdate to every currently
// registered Client. It is the event bus carrying ChannelUpdateReceived,
// ChannelLost, NodeDiscovered, NodeUpdated, and NodeLost.
type Server struct {
	started uint32
	stopped uint32

	mu      sync.Mutex
	clients map[uint64]*Client
	nextID  uint64
}

// NewServer creates a new, unstarted Server.
func NewServer() *Server {
	return &Server{
		clients: make(map[uint64]*Client),
	}
}

// Start marks the server as started. Subscribe and SendUpdate do not
// check this mark: both work before Start as well. It is idempotent.
func (s *Server) Start() error {
	atomic.StoreUint32(&s.started, 1)
	return nil
}

// Stop cancels every current subscriber and prevents further ones. It is
// idempotent.
func (s *Server) Stop() error {
	if !atomic.CompareAndSwapUint32(&s.stopped, 0, 1) {
		return nil
	}

	s.mu.Lock()
	clients := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.Cancel()
	}

	return nil
}

// Subscribe registers a new Client that will receive every future
// SendUpdate call.
func (s *Server) Subscribe() (*Client, error) {
	if atomic.LoadUint32(&s.stopped) == 1 {
		return nil, ErrServerStopped
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	c := &Client{
		id:      s.nextID,
		server:  s,
		updates: make(chan interface{}, 20),
	}
	s.clients[c.id] = c

	return c, nil
}

// SendUpdate publishes event to every currently registered client. Slow
// or absent subscribers never block the sender: a client whose buffer is
// full simply misses the update.
func (s *Server) SendUpdate(event interface{}) error {
	if atomic.LoadUint32(&s.stopped) == 1 {
		return ErrServerStopped
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.clients {
		select {
		case c.updates <- event:
		default:
		}
	}

	return nil
}

func (s *Server) removeClient(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, id)
}
