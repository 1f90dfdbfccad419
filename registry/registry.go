// registry/registry.go
package registry

import (
	"sync"
	"time"

	"github.com/wfunc/boardserver/network"
)

// Client is the opaque handle of one live connection.
type Client struct {
	ID         string
	UserID     string
	Conn       network.Connection
	CreatedAt  time.Time
	lastActive time.Time
	mutex      sync.RWMutex
}

func NewClient(id, userID string, conn network.Connection) *Client {
	now := time.Now()
	return &Client{
		ID:         id,
		UserID:     userID,
		Conn:       conn,
		CreatedAt:  now,
		lastActive: now,
	}
}

func (c *Client) Send(event string, data []byte) error {
	c.Touch()
	return c.Conn.Send(event, data)
}

func (c *Client) GetID() string {
	return c.ID
}

func (c *Client) Touch() {
	c.mutex.Lock()
	c.lastActive = time.Now()
	c.mutex.Unlock()
}

func (c *Client) LastActive() time.Time {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.lastActive
}

func (c *Client) Close() error {
	return c.Conn.Close()
}

// Hook is told about a connection that went away.
type Hook func(clientID string)

// Registry tracks live connections and notifies hooks when one is removed.
type Registry struct {
	clients map[string]*Client
	hooks   []Hook
	mutex   sync.RWMutex
}

func New() *Registry {
	return &Registry{
		clients: make(map[string]*Client),
	}
}

// OnUnregister adds a hook run, in registration order, for every removed client.
func (r *Registry) OnUnregister(h Hook) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.hooks = append(r.hooks, h)
}

// Register adds c. It reports false if the id is already live.
func (r *Registry) Register(c *Client) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, exists := r.clients[c.ID]; exists {
		return false
	}
	r.clients[c.ID] = c
	return true
}

// Unregister removes the client and runs the hooks. Hooks run only for the
// call that actually removed it, outside the registry lock.
func (r *Registry) Unregister(clientID string) bool {
	r.mutex.Lock()
	if _, exists := r.clients[clientID]; !exists {
		r.mutex.Unlock()
		return false
	}
	delete(r.clients, clientID)
	hooks := append([]Hook(nil), r.hooks...)
	r.mutex.Unlock()

	for _, h := range hooks {
		h(clientID)
	}
	return true
}

func (r *Registry) Get(clientID string) (*Client, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	c, exists := r.clients[clientID]
	return c, exists
}

func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.clients)
}

// List returns every live client.
func (r *Registry) List() []*Client {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		result = append(result, c)
	}
	return result
}

func (r *Registry) GetByUserID(userID string) []*Client {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []*Client
	for _, c := range r.clients {
		if c.UserID == userID {
			result = append(result, c)
		}
	}
	return result
}
