package server

import (
	"fmt"
	"time"

	"github.com/go-kit/log/level"

	"github.com/maxpoletaev/butterfly/membership"
	"github.com/maxpoletaev/butterfly/rumor"
)

// restore creates the member list and loads the persisted state. A restarted
// member comes back with an incarnation higher than the persisted one, so that
// its old suspicions and departures do not apply to it.
func (s *Server) restore(self *membership.Member) error {
	if s.conf.Storage == nil {
		s.members = membership.NewList(*self)
		return nil
	}

	members, envelopes, err := s.conf.Storage.Load()
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	for _, m := range members {
		if m.Member.ID == self.ID && m.Member.Incarnation >= self.Incarnation {
			self.Incarnation = m.Member.Incarnation + 1
		}
	}

	s.members = membership.NewList(*self)

	for _, m := range members {
		// Restored members are piggybacked again, the others may have missed them.
		if m.Member.ID != self.ID && s.members.Insert(m.Member, m.Health) {
			s.rumors.ResetHeat(rumor.MemberKey(m.Member.ID))
		}
	}

	var restored int

	for _, env := range envelopes {
		if env.Kind == rumor.KindMember {
			continue
		}

		r, err := env.Unwrap()
		if err != nil {
			level.Warn(s.logger).Log("msg", "skipping invalid persisted rumor", "err", err)
			continue
		}

		if s.rumors.Merge(r) {
			restored++
		}
	}

	level.Info(s.logger).Log("msg", "state restored", "members", len(members), "rumors", restored, "incarnation", self.Incarnation)

	return nil
}

func (s *Server) persist() error {
	members := s.members.Members()
	stored := s.rumors.All()

	envelopes := make([]rumor.Envelope, 0, len(stored))
	for _, r := range stored {
		envelopes = append(envelopes, rumor.Wrap(r))
	}

	return s.conf.Storage.Save(members, envelopes)
}

func (s *Server) runPersist() {
	ticker := time.NewTicker(s.conf.PersistInterval)
	defer ticker.Stop()

	var lastMembers, lastRumors uint64

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}

		members, rumors := s.members.UpdateCounter(), s.rumors.UpdateCounter()
		if members == lastMembers && rumors == lastRumors {
			continue
		}

		if err := s.persist(); err != nil {
			level.Error(s.logger).Log("msg", "failed to persist state", "err", err)
			continue
		}

		lastMembers, lastRumors = members, rumors
	}
}
