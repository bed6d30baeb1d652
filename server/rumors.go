package server

import (
	"github.com/go-kit/log/level"

	"github.com/maxpoletaev/butterfly/internal/telemetry"
	"github.com/maxpoletaev/butterfly/membership"
	"github.com/maxpoletaev/butterfly/rumor"
)

// applyMembership merges member rumors piggybacked on a SWIM message or pushed
// over the rumor RPC.
func (s *Server) applyMembership(ms []membership.Membership) {
	for _, m := range ms {
		s.applyMember(m)
	}
}

func (s *Server) applyMember(m membership.Membership) {
	if m.Member.ID == "" {
		return
	}

	if m.Member.ID == s.members.SelfID() {
		if s.members.ObserveSelf(m) {
			self := s.members.Self()
			s.rumors.ResetHeat(rumor.MemberKey(self.Member.ID))

			level.Info(s.logger).Log("msg", "refuted suspicion", "health", m.Health, "incarnation", self.Member.Incarnation)
		}

		return
	}

	s.insertMember(m.Member, m.Health)
}

// insertMember merges a member rumor into the list. Members that are known to
// have departed are not added back.
func (s *Server) insertMember(m membership.Member, health membership.Health) bool {
	if health != membership.HealthDeparted && !s.members.HasMember(m.ID) && s.hasDeparted(m.ID) {
		return false
	}

	before, known := s.members.Health(m.ID)

	if !s.members.Insert(m, health) {
		return false
	}

	s.memberChanged(m, known, before)

	return true
}

// markAlive applies a direct proof of life, such as an ack.
func (s *Server) markAlive(m membership.Member) bool {
	if !s.members.HasMember(m.ID) && s.hasDeparted(m.ID) {
		return false
	}

	before, known := s.members.Health(m.ID)

	if !s.members.MarkAlive(m) {
		return false
	}

	s.memberChanged(m, known, before)

	return true
}

func (s *Server) hasDeparted(memberID string) bool {
	_, ok := s.rumors.Get(rumor.Departure{MemberID: memberID}.Key())
	return ok
}

func (s *Server) memberChanged(m membership.Member, known bool, before membership.Health) {
	s.rumors.ResetHeat(rumor.MemberKey(m.ID))

	curr, ok := s.members.Get(m.ID)
	if !ok {
		return
	}

	if !known || curr.Health != before {
		s.healthChanged(curr)
	}
}

func (s *Server) healthChanged(m membership.Membership) {
	telemetry.HealthTransitions.WithLabelValues(m.Health.String()).Inc()

	level.Info(s.logger).Log("msg", "member health changed", "member", m.Member.ID, "health", m.Health, "incarnation", m.Member.Incarnation)

	if s.conf.HealthObserver != nil {
		s.conf.HealthObserver(m.Member, m.Health)
	}

	s.updateMemberGauge()
}

func (s *Server) updateMemberGauge() {
	counts := make(map[membership.Health]int, 4)
	for _, m := range s.members.Members() {
		counts[m.Health]++
	}

	for _, h := range []membership.Health{
		membership.HealthAlive,
		membership.HealthSuspect,
		membership.HealthConfirmed,
		membership.HealthDeparted,
	} {
		telemetry.Members.WithLabelValues(h.String()).Set(float64(counts[h]))
	}
}

// departMember applies a departure of a member. The member does not have to be
// known yet, a placeholder keeps it from joining back.
func (s *Server) departMember(memberID string) {
	if memberID == s.members.SelfID() {
		self := s.members.Self()
		self.Health = membership.HealthDeparted
		s.members.ObserveSelf(self)
		s.rumors.ResetHeat(rumor.MemberKey(memberID))

		level.Warn(s.logger).Log("msg", "local member has been departed by the ring")

		return
	}

	m, ok := s.members.Get(memberID)
	if !ok {
		m = membership.Membership{Member: membership.Member{ID: memberID}}
	}

	s.insertMember(m.Member, membership.HealthDeparted)
}

// processRumors applies a batch of rumors received from another member.
func (s *Server) processRumors(from string, envelopes []rumor.Envelope) {
	var elections []string

	for _, env := range envelopes {
		if env.Kind == rumor.KindMember {
			if env.Member == nil {
				telemetry.DecodeErrors.Inc()
				continue
			}

			s.applyMember(*env.Member)

			continue
		}

		r, err := env.Unwrap()
		if err != nil {
			telemetry.DecodeErrors.Inc()
			level.Warn(s.logger).Log("msg", "dropping invalid rumor", "from", from, "kind", env.Kind, "err", err)

			continue
		}

		if !s.rumors.Merge(r) {
			continue
		}

		level.Debug(s.logger).Log("msg", "rumor updated", "from", from, "key", r.Key())

		switch v := r.(type) {
		case rumor.Departure:
			s.departMember(v.MemberID)
		case rumor.Election:
			elections = append(elections, v.ServiceGroup)
		case rumor.Service:
			if m, ok := s.groupElection(v.ServiceGroup); ok && !m.Finished() {
				elections = append(elections, v.ServiceGroup)
			}
		}
	}

	for _, group := range elections {
		s.vote(group)
	}
}
