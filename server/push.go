package server

import (
	"context"
	"sync"
	"time"

	"github.com/go-kit/log/level"

	"github.com/maxpoletaev/butterfly/gossip"
	"github.com/maxpoletaev/butterfly/internal/grpcutil"
	"github.com/maxpoletaev/butterfly/internal/multierror"
	"github.com/maxpoletaev/butterfly/internal/telemetry"
	"github.com/maxpoletaev/butterfly/membership"
	"github.com/maxpoletaev/butterfly/rumor"
)

// gcEvery is the number of push rounds between connection garbage collections.
const gcEvery = 60

// runPush periodically pushes hot rumors to random alive members.
func (s *Server) runPush() {
	ticker := time.NewTicker(s.conf.GossipInterval)
	defer ticker.Stop()

	var pushes int

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}

		if s.Paused() {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.conf.GossipInterval)
		err := s.pushRumors(ctx)
		cancel()

		if err != nil {
			level.Debug(s.logger).Log("msg", "rumor push failed", "err", err)
		}

		if pushes++; pushes%gcEvery == 0 {
			s.conns.CollectGarbage()
		}
	}
}

// pushRumors sends a batch of hot rumors to PushFanout random alive members
// concurrently. The returned error combines the failures of every target.
func (s *Server) pushRumors(ctx context.Context) error {
	errs := multierror.New[string]()
	wg := sync.WaitGroup{}

	for _, target := range s.members.RandomAlive(s.conf.PushFanout) {
		if s.isBlocked(target.ID) {
			continue
		}

		wg.Add(1)

		go func(target membership.Member) {
			defer wg.Done()

			err := s.pushTo(ctx, target.ID)
			telemetry.RumorPush.WithLabelValues(grpcutil.ResultLabel(err)).Inc()

			if err != nil {
				errs.Add(target.ID, err)

				if grpcutil.IsUnreachable(err) {
					s.conns.Remove(target.ID)
				}
			}
		}(target)
	}

	wg.Wait()

	return errs.Combined()
}

func (s *Server) pushTo(ctx context.Context, memberID string) error {
	keys := s.rumors.Take(memberID, s.conf.PushBatchSize)
	if len(keys) == 0 {
		return nil
	}

	envelopes := make([]rumor.Envelope, 0, len(keys))
	sent := make([]rumor.Key, 0, len(keys))
	stored := make([]rumor.Key, 0, len(keys))

	for _, key := range keys {
		if key.Kind != rumor.KindMember {
			stored = append(stored, key)
			continue
		}

		if m, ok := s.members.Get(key.Key); ok {
			envelopes = append(envelopes, rumor.WrapMember(m))
			sent = append(sent, key)
		}
	}

	for _, env := range s.rumors.Envelopes(stored) {
		key, err := env.Key()
		if err != nil {
			continue
		}

		envelopes = append(envelopes, env)
		sent = append(sent, key)
	}

	if len(envelopes) == 0 {
		return nil
	}

	b, err := rumor.Marshal(envelopes)
	if err != nil {
		return err
	}

	if b, err = s.seal(b); err != nil {
		return err
	}

	conn, err := s.conns.Get(memberID)
	if err != nil {
		return err
	}

	req := &gossip.PushRequest{From: s.members.SelfID(), Rumors: b}
	if _, err := conn.Push(ctx, req); err != nil {
		return err
	}

	s.rumors.UpdateHeat(memberID, sent)

	return nil
}
