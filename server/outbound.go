package server

import (
	"sync/atomic"
	"time"

	"github.com/go-kit/log/level"

	"github.com/maxpoletaev/butterfly/internal/telemetry"
	"github.com/maxpoletaev/butterfly/membership"
	"github.com/maxpoletaev/butterfly/swim"
)

const (
	probeDirect   = "direct"
	probeIndirect = "indirect"
	probeFailed   = "failed"
)

// runOutbound is the failure detector loop. Every protocol period it probes
// the next member of the check list, a fresh randomly ordered list is taken
// for every traversal.
func (s *Server) runOutbound() {
	period := s.conf.Timing.ProtocolPeriod

	level.Info(s.logger).Log("msg", "failure detector loop started", "protocol_period", period)

	for !s.stopped() {
		checkList := s.members.CheckList()

		if len(checkList) == 0 {
			if !s.Paused() {
				s.pingSeeds()
			}

			if !s.sleep(period) {
				return
			}
		}

		for _, m := range checkList {
			started := time.Now()

			if !s.Paused() {
				if s.members.AliveCount() == 0 {
					s.pingSeeds()
				}

				s.probe(m)
			}

			if !s.sleep(period - time.Since(started)) {
				return
			}
		}

		atomic.AddUint64(&s.rounds, 1)
		telemetry.Rounds.Inc()
	}
}

// pingSeeds pings every seed to (re)join the ring. The seeds are not members
// yet, their ids are learned from the acks.
func (s *Server) pingSeeds() {
	self := s.members.Self().Member

	for _, addr := range s.conf.Seeds {
		if addr == self.SwimAddr() {
			continue
		}

		s.send(swim.NewPing(self, nil), addr, "")
	}
}

// probe runs a single SWIM probe of the member: a direct ping, then indirect
// pings through other alive members, then a suspicion.
func (s *Server) probe(target membership.Member) {
	curr, ok := s.members.Get(target.ID)
	if !ok || curr.Health == membership.HealthDeparted {
		return
	}

	target = curr.Member

	s.drainAcks()
	s.sendPing(target, nil)

	if s.waitAck(target.ID, s.conf.Timing.PingTimeout) {
		telemetry.ProbeResults.WithLabelValues(probeDirect).Inc()
		return
	}

	via := s.members.RandomAlive(s.conf.PingReqFanout, target.ID)
	for _, m := range via {
		s.sendPingReq(m, target)
	}

	if len(via) > 0 && s.waitAck(target.ID, s.conf.Timing.PingReqTimeout) {
		telemetry.ProbeResults.WithLabelValues(probeIndirect).Inc()
		return
	}

	telemetry.ProbeResults.WithLabelValues(probeFailed).Inc()

	// The member may have changed while we were waiting.
	curr, ok = s.members.Get(target.ID)
	if !ok || curr.Health != membership.HealthAlive {
		return
	}

	level.Debug(s.logger).Log("msg", "probe failed, suspecting member", "member", target.ID, "indirect", len(via))
	s.insertMember(curr.Member, membership.HealthSuspect)
}

// waitAck waits for an ack from the member. Acks from other members, late
// answers to previous probes, are discarded.
func (s *Server) waitAck(memberID string, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case from := <-s.acks:
			if from.ID == memberID {
				return true
			}
		case <-timer.C:
			return false
		case <-s.stop:
			return false
		}
	}
}

func (s *Server) drainAcks() {
	for {
		select {
		case <-s.acks:
		default:
			return
		}
	}
}
