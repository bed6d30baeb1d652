package server

import (
	"time"

	"github.com/go-kit/log/level"

	"github.com/maxpoletaev/butterfly/membership"
	"github.com/maxpoletaev/butterfly/rumor"
)

// runExpire moves members through the suspect, confirmed and departed states
// once their deadlines pass.
func (s *Server) runExpire() {
	ticker := time.NewTicker(s.conf.ExpireInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}

		if s.Paused() {
			continue
		}

		s.expire(time.Now())
	}
}

func (s *Server) expire(now time.Time) {
	timeout := s.conf.Timing.SuspicionTimeout(s.members.Len())

	for _, m := range s.members.Since(membership.HealthSuspect) {
		if now.Sub(m.Since) >= timeout {
			s.confirmMember(m, timeout)
		}
	}

	if s.conf.ConfirmedExpiry > 0 {
		for _, m := range s.members.Since(membership.HealthConfirmed) {
			if !m.Member.Permanent && now.Sub(m.Since) >= s.conf.ConfirmedExpiry {
				s.Depart(m.Member.ID)
			}
		}
	}

	if s.conf.DepartedPruneAfter > 0 {
		for _, m := range s.members.Since(membership.HealthDeparted) {
			if now.Sub(m.Since) >= s.conf.DepartedPruneAfter {
				s.pruneMember(m.Member.ID)
			}
		}
	}

	for _, group := range s.rumors.Keys(rumor.KindElection) {
		if e, ok := s.groupElection(group); ok && !e.Finished() {
			s.vote(group)
		}
	}
}

// confirmMember confirms a member whose suspicion has expired, unless it has
// been revived since the snapshot was taken.
func (s *Server) confirmMember(m membership.Timed, timeout time.Duration) {
	if !s.members.Confirm(m.Member.ID, m.Member.Incarnation, m.Since) {
		return
	}

	level.Debug(s.logger).Log("msg", "suspicion expired", "member", m.Member.ID, "timeout", timeout)
	s.memberChanged(m.Member, true, membership.HealthSuspect)
}

// pruneMember forgets a departed member along with its services. The departure
// rumor is kept, it stops the member from being learned back from gossip.
func (s *Server) pruneMember(memberID string) {
	if err := s.members.Remove(memberID); err != nil {
		level.Warn(s.logger).Log("msg", "failed to prune member", "member", memberID, "err", err)
		return
	}

	for _, group := range s.rumors.Keys(rumor.KindService) {
		key := rumor.Service{MemberID: memberID, ServiceGroup: group}.Key()

		if err := s.rumors.Remove(key); err == nil {
			s.rumors.Prune(group)
		}
	}

	s.rumors.Heat().Forget(rumor.MemberKey(memberID))
	s.rumors.Heat().ForgetMember(memberID)
	s.conns.Remove(memberID)
	s.updateMemberGauge()

	level.Info(s.logger).Log("msg", "pruned departed member", "member", memberID)
}
