package gossip

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/maxpoletaev/butterfly/membership"
)

func testMembership(id string) membership.Membership {
	return membership.Membership{
		Member: membership.Member{ID: id, Address: "192.168.10.1", GossipPort: 8000},
	}
}

func TestRegistry_GetExisting(t *testing.T) {
	ctrl := gomock.NewController(t)
	conn := NewMockClient(ctrl)
	conn.EXPECT().IsClosed().Return(false).AnyTimes()

	members := NewMockMemberRegistry(ctrl)
	dialer := NewMockDialer(ctrl)
	registry := NewConnRegistry(members, dialer)
	registry.connections["a"] = conn

	got, err := registry.Get("a")
	require.NoError(t, err)
	require.Equal(t, conn, got)
}

func TestRegistry_GetClosed(t *testing.T) {
	ctrl := gomock.NewController(t)
	closedConn := NewMockClient(ctrl)
	closedConn.EXPECT().IsClosed().Return(true).Times(2)

	members := NewMockMemberRegistry(ctrl)
	members.EXPECT().Get("a").Return(testMembership("a"), true)

	dialer := NewMockDialer(ctrl)
	conn := NewMockClient(ctrl)
	dialer.EXPECT().DialContext(gomock.Any(), "192.168.10.1:8000").Return(conn, nil)

	registry := NewConnRegistry(members, dialer)
	registry.connections["a"] = closedConn

	got, err := registry.Get("a")
	require.NoError(t, err)
	require.Equal(t, conn, got)
}

func TestRegistry_GetUnknownMember(t *testing.T) {
	ctrl := gomock.NewController(t)

	members := NewMockMemberRegistry(ctrl)
	members.EXPECT().Get("a").Return(membership.Membership{}, false)

	registry := NewConnRegistry(members, NewMockDialer(ctrl))

	_, err := registry.Get("a")
	require.ErrorIs(t, err, membership.ErrMemberNotFound)
}

func TestRegistry_GetConcurrent(t *testing.T) {
	ctrl := gomock.NewController(t)

	members := NewMockMemberRegistry(ctrl)
	members.EXPECT().Get("a").Return(testMembership("a"), true).MinTimes(1)

	dialer := NewMockDialer(ctrl)
	dialer.EXPECT().DialContext(
		gomock.Any(), "192.168.10.1:8000",
	).DoAndReturn(func(ctx context.Context, addr string) (Client, error) {
		time.Sleep(100 * time.Millisecond) // Simulate network latency.
		conn := NewMockClient(ctrl)
		conn.EXPECT().IsClosed().Return(false).AnyTimes()
		return conn, nil
	}).Times(1)

	concurrency := 10
	registry := NewConnRegistry(members, dialer)
	connections := make([]Client, concurrency)
	errs := make([]error, concurrency)

	wg := sync.WaitGroup{}
	wg.Add(concurrency)

	begin := make(chan struct{})

	for i := 0; i < concurrency; i++ {
		go func(i int) {
			defer wg.Done()
			<-begin

			conn, err := registry.Get("a")
			connections[i] = conn
			errs[i] = err
		}(i)
	}

	close(begin)
	wg.Wait()

	for i := 0; i < concurrency; i++ {
		require.NoError(t, errs[i], "connection %d", i)
		require.NotNil(t, connections[i], "connection %d", i)
		require.Equal(t, connections[0], connections[i])
	}

	require.Equal(t, 1, registry.Len())
}

func TestRegistry_CollectGarbage(t *testing.T) {
	ctrl := gomock.NewController(t)

	gone := NewMockClient(ctrl)
	gone.EXPECT().Close().Return(nil)

	alive := NewMockClient(ctrl)
	alive.EXPECT().IsClosed().Return(false)

	members := NewMockMemberRegistry(ctrl)
	members.EXPECT().HasMember("gone").Return(false)
	members.EXPECT().HasMember("alive").Return(true)

	registry := NewConnRegistry(members, NewMockDialer(ctrl))
	registry.connections["gone"] = gone
	registry.connections["alive"] = alive

	registry.CollectGarbage()
	require.Equal(t, 1, registry.Len())

	alive.EXPECT().Close().Return(nil)
	registry.Remove("alive")
	require.Equal(t, 0, registry.Len())
}
