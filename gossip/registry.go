package gossip

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/maxpoletaev/butterfly/membership"
)

//go:generate mockgen -source=registry.go -destination=registry_mock.go -package=gossip

// MemberRegistry resolves member ids to their gossip address.
type MemberRegistry interface {
	Get(id string) (membership.Membership, bool)
	HasMember(id string) bool
}

// ConnRegistry keeps one rumor RPC connection per member, dialing lazily.
type ConnRegistry struct {
	mut            sync.RWMutex
	connections    map[string]Client
	inProgress     singleflight.Group
	members        MemberRegistry
	connectTimeout time.Duration
	dialer         Dialer
}

func NewConnRegistry(members MemberRegistry, dialer Dialer) *ConnRegistry {
	return &ConnRegistry{
		connections:    make(map[string]Client),
		connectTimeout: 5 * time.Second,
		members:        members,
		dialer:         dialer,
	}
}

func (r *ConnRegistry) get(id string) (Client, bool) {
	r.mut.RLock()

	conn, ok := r.connections[id]
	if !ok {
		r.mut.RUnlock()
		return nil, false
	}

	// The connection is present but was closed manually, so it is not usable.
	// Need to reacquire the lock and remove it from the registry.
	if conn.IsClosed() {
		r.mut.RUnlock()
		r.mut.Lock()

		// A new connection might have been created while we were waiting for the lock.
		if conn, ok := r.connections[id]; ok && !conn.IsClosed() {
			r.mut.Unlock()
			return conn, true
		}

		delete(r.connections, id)
		r.mut.Unlock()

		return nil, false
	}

	r.mut.RUnlock()

	return conn, true
}

func (r *ConnRegistry) connect(id string) (Client, error) {
	// Concurrent callers for the same member share a single dial.
	v, err, _ := r.inProgress.Do(id, func() (any, error) {
		if conn, ok := r.get(id); ok {
			return conn, nil
		}

		m, ok := r.members.Get(id)
		if !ok {
			return nil, membership.ErrMemberNotFound
		}

		ctx, cancel := context.WithTimeout(context.Background(), r.connectTimeout)
		defer cancel()

		addr := m.Member.GossipAddr()

		conn, err := r.dialer.DialContext(ctx, addr)
		if err != nil {
			return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
		}

		r.mut.Lock()
		defer r.mut.Unlock()

		// Check if the connection has been added manually while we were dialing.
		if old, ok := r.connections[id]; ok && !old.IsClosed() {
			_ = conn.Close()
			return old, nil
		}

		r.connections[id] = conn

		return conn, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(Client), nil
}

// Get returns a connection to the member with the given ID, dialing it if
// there is none yet.
func (r *ConnRegistry) Get(id string) (Client, error) {
	if conn, ok := r.get(id); ok {
		return conn, nil
	}

	return r.connect(id)
}

// Put adds a connection to the registry. If a connection to the member with
// the same ID already exists, the old connection is closed.
func (r *ConnRegistry) Put(id string, conn Client) {
	r.mut.Lock()
	defer r.mut.Unlock()

	if old, ok := r.connections[id]; ok {
		_ = old.Close()
	}

	r.connections[id] = conn
}

// Remove closes and forgets the connection to the member.
func (r *ConnRegistry) Remove(id string) {
	r.mut.Lock()
	defer r.mut.Unlock()

	if conn, ok := r.connections[id]; ok {
		_ = conn.Close()
		delete(r.connections, id)
	}
}

// CollectGarbage closes and removes the connections that are closed or
// belong to members that are no longer on the list.
func (r *ConnRegistry) CollectGarbage() {
	r.mut.Lock()
	defer r.mut.Unlock()

	for id, conn := range r.connections {
		if !r.members.HasMember(id) {
			_ = conn.Close()
			delete(r.connections, id)

			continue
		}

		if conn.IsClosed() {
			delete(r.connections, id)
		}
	}
}

// Close closes all connections.
func (r *ConnRegistry) Close() {
	r.mut.Lock()
	defer r.mut.Unlock()

	for id, conn := range r.connections {
		_ = conn.Close()
		delete(r.connections, id)
	}
}

// Len returns the number of open connections.
func (r *ConnRegistry) Len() int {
	r.mut.RLock()
	defer r.mut.RUnlock()

	return len(r.connections)
}
