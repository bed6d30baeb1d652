package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/log/level"
	"github.com/jessevdk/go-flags"
	"golang.org/x/sync/errgroup"

	"github.com/maxpoletaev/butterfly/api"
)

const (
	electionTick    = time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}

		os.Exit(2)
	}

	appctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, closeLogger := setupLogger(opts)

	store, closeStorage, err := setupStorage(opts, logger)
	if err != nil {
		level.Error(logger).Log("msg", "failed to open storage", "err", err)
		os.Exit(1)
	}

	key, err := setupRingKey(opts)
	if err != nil {
		level.Error(logger).Log("msg", "failed to load ring key", "err", err)
		os.Exit(1)
	}

	registry, seeds, closeDiscovery, err := setupDiscovery(appctx, opts, logger)
	if err != nil {
		level.Error(logger).Log("msg", "failed to discover seeds", "err", err)
		os.Exit(1)
	}

	conf := serverConfig(opts, logger)
	conf.Seeds = append(conf.Seeds, seeds...)
	conf.RingKey = key

	if store != nil {
		conf.Storage = store
	}

	srv, closeServer, err := setupServer(conf, logger)
	if err != nil {
		level.Error(logger).Log("msg", "failed to start server", "err", err)
		os.Exit(1)
	}

	if registry != nil {
		self := srv.Self().Member
		if err := registry.Register(appctx, self.ID, self.SwimAddr()); err != nil {
			level.Error(logger).Log("msg", "failed to register in etcd", "err", err)
		}
	}

	// Components must be shut down in a particular order.
	shutdownOrder := []shutdownFunc{
		closeDiscovery,
		closeServer,
		closeStorage,
		closeLogger,
	}

	g, ctx := errgroup.WithContext(appctx)

	if opts.HTTPBindAddr != "" {
		g.Go(func() error {
			return api.StartServer(ctx, srv, logger, opts.HTTPBindAddr)
		})
	}

	if opts.ServiceGroup != "" {
		machine := setupElection(opts, srv, logger)

		g.Go(func() error {
			machine.Run(ctx, electionTick)
			return nil
		})
	}

	// Block until we receive a signal to shut down, or one of the components fails.
	<-ctx.Done()
	level.Info(logger).Log("msg", "shutting down")

	if err := g.Wait(); err != nil {
		level.Error(logger).Log("msg", "component failed", "err", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	for _, f := range shutdownOrder {
		if err := f(shutdownCtx); err != nil {
			level.Error(logger).Log("msg", "failed to shutdown component", "err", err)
		}
	}
}
