package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/janic0/LiveSelect/domain"
)

// client is one participant's persistent identity, decoupled from any
// single transport connection. Owned exclusively by the Registry.
type client struct {
	id             string
	connected      bool
	roomID         string
	selectedID     string
	conn           domain.Connection
	disconnectedAt time.Time
}

// Member is a copy-out view of a client record. Mutating a Member has
// no effect on the registry.
type Member struct {
	ID         string
	Connected  bool
	RoomID     string
	SelectedID string
	Conn       domain.Connection
}

func (m Member) InRoom() bool { return m.RoomID != "" }

type Registry struct {
	clients map[string]*client
	mu      sync.RWMutex
}

func New() *Registry {
	return &Registry{
		clients: make(map[string]*client),
	}
}

// Resolve maps an inbound message to a client record. A recognized
// token resumes that session; failing that, the connection's previously
// bound id resumes; otherwise a fresh session is minted. Resolution
// never fails. Resuming rebinds the session to conn and closes any
// superseded handle, so at most one transport handle is authoritative
// per session.
func (r *Registry) Resolve(token, bound string, conn domain.Connection) (Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[token]; ok {
		r.rebind(c, conn)
		return view(c), false
	}
	if c, ok := r.clients[bound]; ok {
		r.rebind(c, conn)
		return view(c), false
	}

	c := &client{
		id:        uuid.New().String(),
		connected: true,
		conn:      conn,
	}
	r.clients[c.id] = c
	slog.Info("session created", "clientId", c.id)
	return view(c), true
}

func (r *Registry) rebind(c *client, conn domain.Connection) {
	if c.conn != nil && c.conn != conn {
		c.conn.Close()
	}
	c.conn = conn
	c.connected = true
}

// Disconnect marks the session offline, but only if conn is still the
// authoritative handle; a superseded socket closing late is ignored.
func (r *Registry) Disconnect(id string, conn domain.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[id]
	if !ok || c.conn != conn {
		return
	}
	c.connected = false
	c.disconnectedAt = time.Now()
	slog.Info("session disconnected", "clientId", id)
}

func (r *Registry) SetRoom(id, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[id]; ok {
		c.roomID = roomID
	}
}

func (r *Registry) SetSelected(id, optionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[id]; ok {
		c.selectedID = optionID
	}
}

func (r *Registry) Get(id string) (Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	if !ok {
		return Member{}, false
	}
	return view(c), true
}

// Members returns every client affiliated with the room, connected or
// not. The slice is a copy and safe to iterate without the lock.
func (r *Registry) Members(roomID string) []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Member
	for _, c := range r.clients {
		if c.roomID == roomID {
			out = append(out, view(c))
		}
	}
	return out
}

// Reap deletes sessions that have been disconnected for longer than
// ttl and returns how many were removed.
func (r *Registry) Reap(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	reaped := 0
	for id, c := range r.clients {
		if !c.connected && c.disconnectedAt.Before(cutoff) {
			delete(r.clients, id)
			reaped++
		}
	}
	if reaped > 0 {
		slog.Info("sessions reaped", "count", reaped)
	}
	return reaped
}

func (r *Registry) Counts() (total, connected int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total = len(r.clients)
	for _, c := range r.clients {
		if c.connected {
			connected++
		}
	}
	return total, connected
}

func view(c *client) Member {
	return Member{
		ID:         c.id,
		Connected:  c.connected,
		RoomID:     c.roomID,
		SelectedID: c.selectedID,
		Conn:       c.conn,
	}
}
