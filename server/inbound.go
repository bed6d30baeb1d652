package server

import (
	"errors"
	"net"

	"github.com/go-kit/log/level"

	"github.com/maxpoletaev/butterfly/internal/telemetry"
	"github.com/maxpoletaev/butterfly/membership"
	"github.com/maxpoletaev/butterfly/swim"
)

// runInbound reads datagrams from the SWIM socket until the server is stopped.
func (s *Server) runInbound() {
	for {
		b, addr, err := s.swim.ReadFrom(s.conf.ReadTimeout)
		if err != nil {
			switch {
			case errors.Is(err, swim.ErrTimeout):
				continue
			case errors.Is(err, swim.ErrClosed):
				return
			default:
				if s.stopped() {
					return
				}

				level.Warn(s.logger).Log("msg", "failed to read datagram", "err", err)

				continue
			}
		}

		if s.Paused() {
			continue
		}

		s.handleDatagram(b, addr)
	}
}

func (s *Server) handleDatagram(b []byte, addr *net.UDPAddr) {
	plain, err := s.open(b)
	if err != nil {
		telemetry.DecodeErrors.Inc()
		level.Warn(s.logger).Log("msg", "failed to open datagram", "from", addr, "err", err)

		return
	}

	msg, err := swim.Decode(plain)
	if err != nil {
		telemetry.DecodeErrors.Inc()
		level.Warn(s.logger).Log("msg", "failed to decode datagram", "from", addr, "err", err)

		return
	}

	telemetry.SwimReceived.WithLabelValues(msg.Type.String()).Inc()

	from := msg.From()

	// Relayed acks are passed through, the requester decides for itself.
	if s.isBlocked(from.ID) && !(msg.Type == swim.TypeAck && msg.ForwardTo() != nil) {
		level.Debug(s.logger).Log("msg", "dropping message from blocked member", "type", msg.Type, "from", from.ID)
		return
	}

	switch msg.Type {
	case swim.TypePing:
		s.handlePing(msg, addr)
	case swim.TypeAck:
		s.handleAck(msg, plain)
	case swim.TypePingReq:
		s.handlePingReq(msg)
	}
}

func (s *Server) handlePing(msg *swim.Message, addr *net.UDPAddr) {
	from := msg.From()

	// Acks go back to where the ping came from, which may differ from the
	// advertised address of the sender.
	s.send(swim.NewAck(s.members.Self().Member, msg.ForwardTo()), addr.String(), from.ID)

	s.markAlive(from)
	s.applyMembership(msg.Membership)
}

func (s *Server) handleAck(msg *swim.Message, raw []byte) {
	from := msg.From()

	if fwd := msg.ForwardTo(); fwd != nil && fwd.ID != s.members.SelfID() {
		s.relayAck(raw, fwd)
		return
	}

	s.markAlive(from)

	select {
	case s.acks <- from:
	default:
		level.Debug(s.logger).Log("msg", "ack queue is full, dropping ack", "from", from.ID)
	}

	s.applyMembership(msg.Membership)
}

// relayAck forwards an ack to the member that has requested the indirect
// probe. The datagram is resealed but otherwise sent as is.
func (s *Server) relayAck(raw []byte, to *membership.Member) {
	if s.isBlocked(to.ID) {
		return
	}

	b, err := s.seal(raw)
	if err != nil {
		level.Error(s.logger).Log("msg", "failed to seal relayed ack", "err", err)
		return
	}

	if err := s.swim.WriteToAddr(b, to.SwimAddr()); err != nil {
		level.Warn(s.logger).Log("msg", "failed to relay ack", "to", to.ID, "err", err)
		return
	}

	telemetry.SwimSent.WithLabelValues(swim.TypeAck.String()).Inc()
}

func (s *Server) handlePingReq(msg *swim.Message) {
	from := msg.From()

	s.markAlive(from)
	s.applyMembership(msg.Membership)

	target := msg.PingReq.Target
	s.sendPing(target, &from)
}
