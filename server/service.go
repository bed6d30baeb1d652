package server

import (
	"context"
	"fmt"

	"github.com/go-kit/log/level"

	"github.com/maxpoletaev/butterfly/internal/sealed"
	"github.com/maxpoletaev/butterfly/membership"
	"github.com/maxpoletaev/butterfly/rumor"
)

// InsertService announces that the local member runs a service in the group.
// The incarnation is bumped automatically when the rumor already exists, so
// that the update supersedes the previous one.
func (s *Server) InsertService(svc rumor.Service) rumor.Service {
	svc.MemberID = s.members.SelfID()

	if r, ok := s.rumors.Get(svc.Key()); ok {
		if curr := r.(rumor.Service); svc.Incarnation <= curr.Incarnation {
			svc.Incarnation = curr.Incarnation + 1
		}
	}

	s.rumors.Insert(svc)

	if e, ok := s.groupElection(svc.ServiceGroup); ok && !e.Finished() {
		s.vote(svc.ServiceGroup)
	}

	return svc
}

// UpdateServiceConfig gossips a new configuration to the service group. The
// payload is encrypted for the recipients when any are given.
func (s *Server) UpdateServiceConfig(group string, payload []byte, recipients []string) (rumor.ServiceConfig, error) {
	cfg := rumor.ServiceConfig{ServiceGroup: group, Config: payload}

	if len(recipients) > 0 {
		ciphertext, err := sealed.Encrypt(payload, recipients)
		if err != nil {
			return rumor.ServiceConfig{}, fmt.Errorf("failed to encrypt config: %w", err)
		}

		cfg.Config, cfg.Encrypted = ciphertext, true
	}

	if r, ok := s.rumors.Get(cfg.Key()); ok {
		cfg.Incarnation = r.(rumor.ServiceConfig).Incarnation + 1
	}

	s.rumors.Insert(cfg)

	return cfg, nil
}

// UpdateServiceFile gossips a named file to the service group.
func (s *Server) UpdateServiceFile(group, filename string, body []byte, recipients []string) (rumor.ServiceFile, error) {
	f := rumor.ServiceFile{ServiceGroup: group, Filename: filename, Body: body}

	if len(recipients) > 0 {
		ciphertext, err := sealed.Encrypt(body, recipients)
		if err != nil {
			return rumor.ServiceFile{}, fmt.Errorf("failed to encrypt file: %w", err)
		}

		f.Body, f.Encrypted = ciphertext, true
	}

	if r, ok := s.rumors.Get(f.Key()); ok {
		f.Incarnation = r.(rumor.ServiceFile).Incarnation + 1
	}

	s.rumors.Insert(f)

	return f, nil
}

// Depart permanently removes a member from the ring. The departure is
// gossiped and the member is never let back in with the same id.
func (s *Server) Depart(memberID string) {
	s.rumors.Insert(rumor.Departure{MemberID: memberID})
	s.departMember(memberID)
}

// Leave departs the local member, makes a best effort to tell the others
// and stops the server.
func (s *Server) Leave(ctx context.Context) error {
	self := s.members.Depart()
	s.rumors.ResetHeat(rumor.MemberKey(self.ID))

	level.Info(s.logger).Log("msg", "leaving the ring", "incarnation", self.Incarnation)

	err := s.pushRumors(ctx)

	// A ping round spreads the departure to the members the push missed.
	for _, m := range s.members.RandomAlive(s.conf.PushFanout) {
		s.sendPing(m, nil)
	}

	s.Stop()

	return err
}

// Members returns the current member list snapshot.
func (s *Server) Members() []membership.Membership {
	return s.members.Members()
}

// Rumors returns every stored rumor ordered by key.
func (s *Server) Rumors() []rumor.Rumor {
	return s.rumors.All()
}
