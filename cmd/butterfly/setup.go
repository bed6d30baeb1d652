package main

import (
	"context"
	"fmt"
	"os"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/maxpoletaev/butterfly/discovery"
	"github.com/maxpoletaev/butterfly/election"
	"github.com/maxpoletaev/butterfly/internal/ringkey"
	"github.com/maxpoletaev/butterfly/membership"
	"github.com/maxpoletaev/butterfly/rumor"
	"github.com/maxpoletaev/butterfly/server"
	"github.com/maxpoletaev/butterfly/storage"
)

type shutdownFunc func(ctx context.Context) error

var noopShutdown = func(ctx context.Context) error { return nil }

func setupLogger(opts *options) (kitlog.Logger, shutdownFunc) {
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)

	if !opts.Verbose {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	return logger, noopShutdown
}

func setupStorage(opts *options, logger kitlog.Logger) (*storage.Store, shutdownFunc, error) {
	if opts.DataDir == "" {
		level.Info(logger).Log("msg", "no data dir given, state will not be persisted")
		return nil, noopShutdown, nil
	}

	store, err := storage.Open(opts.DataDir)
	if err != nil {
		return nil, nil, err
	}

	shutdown := func(ctx context.Context) error {
		logger.Log("msg", "closing storage")
		return store.Close()
	}

	return store, shutdown, nil
}

func setupRingKey(opts *options) (*ringkey.Key, error) {
	if opts.RingKeyFile == "" {
		return nil, nil
	}

	data, err := os.ReadFile(opts.RingKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read ring key: %w", err)
	}

	return ringkey.Parse(data)
}

// setupDiscovery returns the seeds registered in etcd, if any endpoints are
// given. The local member is registered once the server knows its address.
func setupDiscovery(ctx context.Context, opts *options, logger kitlog.Logger) (*discovery.Registry, []string, shutdownFunc, error) {
	endpoints := parseAddrs(opts.EtcdEndpoints)
	if len(endpoints) == 0 {
		return nil, nil, noopShutdown, nil
	}

	cli, err := discovery.NewClient(endpoints)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	registry := discovery.NewRegistry(cli, opts.EtcdLeaseTTL, logger)

	seeds, err := registry.Seeds(ctx, opts.NodeID)
	if err != nil {
		_ = cli.Close()
		return nil, nil, nil, err
	}

	level.Info(logger).Log("msg", "discovered seeds in etcd", "count", len(seeds))

	shutdown := func(ctx context.Context) error {
		logger.Log("msg", "deregistering from etcd")

		if err := registry.Deregister(ctx); err != nil {
			_ = cli.Close()
			return err
		}

		return cli.Close()
	}

	return registry, seeds, shutdown, nil
}

func serverConfig(opts *options, logger kitlog.Logger) *server.Config {
	conf := server.DefaultConfig()
	conf.Member = membership.Member{
		ID:        opts.NodeID,
		Address:   opts.AdvertiseAddr,
		Permanent: opts.Permanent,
	}
	conf.SwimBindAddr = opts.SwimBindAddr
	conf.GossipBindAddr = opts.GossipBindAddr
	conf.Seeds = parseAddrs(opts.Peers)
	conf.Logger = logger

	conf.HealthObserver = func(m membership.Member, health membership.Health) {
		level.Info(logger).Log("msg", "member health changed", "member_id", m.ID, "health", health)
	}

	return conf
}

func setupServer(conf *server.Config, logger kitlog.Logger) (*server.Server, shutdownFunc, error) {
	srv, err := server.Start(conf)
	if err != nil {
		return nil, nil, err
	}

	shutdown := func(ctx context.Context) error {
		logger.Log("msg", "leaving the ring")

		if err := srv.Leave(ctx); err != nil {
			return fmt.Errorf("failed to leave the ring: %w", err)
		}

		return nil
	}

	return srv, shutdown, nil
}

// loggingService stands in for a supervised service process. It only reports
// the role it was given.
type loggingService struct {
	group  string
	logger kitlog.Logger
}

func (s *loggingService) Start(ctx context.Context, role election.Role) error {
	level.Info(s.logger).Log("msg", "service started", "group", s.group, "role", role)
	return nil
}

func (s *loggingService) Stop(ctx context.Context) error {
	level.Info(s.logger).Log("msg", "service stopped", "group", s.group)
	return nil
}

func setupElection(opts *options, srv *server.Server, logger kitlog.Logger) *election.Machine {
	srv.InsertService(rumor.Service{
		ServiceGroup: opts.ServiceGroup,
		Suitability:  opts.Suitability,
		Initialized:  true,
	})

	return election.New(
		opts.ServiceGroup,
		srv,
		&loggingService{group: opts.ServiceGroup, logger: logger},
		election.WithLogger(logger),
	)
}
