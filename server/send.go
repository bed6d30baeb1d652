package server

import (
	"github.com/go-kit/log/level"

	"github.com/maxpoletaev/butterfly/internal/ringkey"
	"github.com/maxpoletaev/butterfly/internal/telemetry"
	"github.com/maxpoletaev/butterfly/membership"
	"github.com/maxpoletaev/butterfly/rumor"
	"github.com/maxpoletaev/butterfly/swim"
)

// maxPiggyback limits the number of member rumors considered for a single
// datagram. Whatever does not fit the size limit is dropped anyway.
const maxPiggyback = 32

// piggyback selects the member rumors to attach to a message for the
// recipient: the local member first, then the recipient itself if it is not
// alive, so that it learns about the suspicion and can refute it, then the
// hottest member rumors for the recipient.
func (s *Server) piggyback(recipientID string) ([]membership.Membership, []rumor.Key) {
	self := s.members.Self()

	ms := make([]membership.Membership, 0, maxPiggyback)
	ms = append(ms, self)

	if recipientID != "" {
		if r, ok := s.members.Get(recipientID); ok && r.Health != membership.HealthAlive {
			ms = append(ms, r)
		}
	}

	for _, key := range s.rumors.TakeByKind(recipientID, rumor.KindMember, maxPiggyback) {
		if len(ms) == maxPiggyback {
			break
		}

		if key.Key == self.Member.ID || key.Key == recipientID {
			continue
		}

		if m, ok := s.members.Get(key.Key); ok {
			ms = append(ms, m)
		}
	}

	keys := make([]rumor.Key, len(ms))
	for i := range ms {
		keys[i] = rumor.MemberKey(ms[i].Member.ID)
	}

	return ms, keys
}

func (s *Server) seal(b []byte) ([]byte, error) {
	if s.conf.RingKey == nil {
		return b, nil
	}

	return s.conf.RingKey.Seal(b)
}

func (s *Server) open(b []byte) ([]byte, error) {
	if s.conf.RingKey == nil {
		return b, nil
	}

	return s.conf.RingKey.Open(b)
}

func (s *Server) overhead() int {
	if s.conf.RingKey == nil {
		return 0
	}

	return ringkey.Overhead
}

// send piggybacks membership rumors for the recipient onto the message and
// sends it to addr. The recipient id may be empty when it is not known yet,
// as with seeds. Messages to blocked members are silently dropped.
func (s *Server) send(msg *swim.Message, addr string, recipientID string) {
	if recipientID != "" && s.isBlocked(recipientID) {
		level.Debug(s.logger).Log("msg", "not sending to blocked member", "type", msg.Type, "to", recipientID)
		return
	}

	ms, keys := s.piggyback(recipientID)
	msg.Membership = ms

	b, n, err := swim.EncodeWithin(msg, swim.MaxMessageSize, s.overhead())
	if err != nil {
		level.Error(s.logger).Log("msg", "failed to encode message", "type", msg.Type, "err", err)
		return
	}

	if b, err = s.seal(b); err != nil {
		level.Error(s.logger).Log("msg", "failed to seal message", "type", msg.Type, "err", err)
		return
	}

	if err := s.swim.WriteToAddr(b, addr); err != nil {
		if !s.stopped() {
			level.Warn(s.logger).Log("msg", "failed to send message", "type", msg.Type, "to", addr, "err", err)
		}

		return
	}

	telemetry.SwimSent.WithLabelValues(msg.Type.String()).Inc()

	// Heat is updated after a send attempt, UDP gives no delivery guarantees.
	if recipientID != "" {
		s.rumors.UpdateHeat(recipientID, keys[:n])
	}
}

func (s *Server) sendPing(target membership.Member, forwardTo *membership.Member) {
	s.send(swim.NewPing(s.members.Self().Member, forwardTo), target.SwimAddr(), target.ID)
}

func (s *Server) sendPingReq(via membership.Member, target membership.Member) {
	s.send(swim.NewPingReq(s.members.Self().Member, target), via.SwimAddr(), via.ID)
}
