// Package discovery registers ring members in etcd, so that new members can
// find seeds without a static peer list.
package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	clientv3 "go.etcd.io/etcd/client/v3"
	"golang.org/x/exp/slices"

	"github.com/maxpoletaev/butterfly/internal/generic"
)

// Prefix is the etcd key prefix member addresses are stored under.
const Prefix = "/butterfly/members/"

// Client is the part of the etcd client the registry uses.
type Client interface {
	Grant(ctx context.Context, ttl int64) (*clientv3.LeaseGrantResponse, error)
	KeepAlive(ctx context.Context, id clientv3.LeaseID) (<-chan *clientv3.LeaseKeepAliveResponse, error)
	Revoke(ctx context.Context, id clientv3.LeaseID) (*clientv3.LeaseRevokeResponse, error)
	Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error)
	Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error)
}

func NewClient(endpoints []string) (*clientv3.Client, error) {
	return clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
}

// Registry keeps the local member registered under a lease for as long as it
// runs. The registration disappears on its own when the member dies.
type Registry struct {
	cli    Client
	ttl    int64
	logger log.Logger

	mut    sync.Mutex
	lease  clientv3.LeaseID
	cancel context.CancelFunc
}

func NewRegistry(cli Client, ttl int64, logger log.Logger) *Registry {
	return &Registry{
		cli:    cli,
		ttl:    ttl,
		logger: logger,
	}
}

// Register stores the SWIM address of the member and keeps the lease alive in
// the background until Deregister is called.
func (r *Registry) Register(ctx context.Context, id, swimAddr string) error {
	lease, err := r.cli.Grant(ctx, r.ttl)
	if err != nil {
		return fmt.Errorf("failed to grant lease: %w", err)
	}

	if _, err := r.cli.Put(ctx, Prefix+id, swimAddr, clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("failed to register member: %w", err)
	}

	keepAliveCtx, cancel := context.WithCancel(context.Background())

	ch, err := r.cli.KeepAlive(keepAliveCtx, lease.ID)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to keep lease alive: %w", err)
	}

	r.mut.Lock()
	r.lease, r.cancel = lease.ID, cancel
	r.mut.Unlock()

	go func() {
		// The channel has to be drained, otherwise the client logs a warning on
		// every keepalive.
		for range ch {
		}

		level.Debug(r.logger).Log("msg", "etcd lease keepalive stopped", "lease", lease.ID)
	}()

	level.Info(r.logger).Log("msg", "registered in etcd", "key", Prefix+id, "lease", lease.ID)

	return nil
}

// Peers returns the registered addresses by member id.
func (r *Registry) Peers(ctx context.Context) (map[string]string, error) {
	resp, err := r.cli.Get(ctx, Prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	peers := make(map[string]string, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		peers[strings.TrimPrefix(string(kv.Key), Prefix)] = string(kv.Value)
	}

	return peers, nil
}

// Seeds returns the addresses of all registered members except the local one,
// sorted.
func (r *Registry) Seeds(ctx context.Context, selfID string) ([]string, error) {
	peers, err := r.Peers(ctx)
	if err != nil {
		return nil, err
	}

	delete(peers, selfID)

	seeds := generic.MapValues(peers)
	slices.Sort(seeds)

	return seeds, nil
}

// Deregister revokes the lease, which removes the registration.
func (r *Registry) Deregister(ctx context.Context) error {
	r.mut.Lock()
	lease, cancel := r.lease, r.cancel
	r.lease, r.cancel = 0, nil
	r.mut.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()

	if _, err := r.cli.Revoke(ctx, lease); err != nil {
		return fmt.Errorf("failed to revoke lease: %w", err)
	}

	return nil
}
