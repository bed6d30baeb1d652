package server

import (
	"context"

	"github.com/go-kit/log/level"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/maxpoletaev/butterfly/gossip"
	"github.com/maxpoletaev/butterfly/internal/telemetry"
	"github.com/maxpoletaev/butterfly/rumor"
)

// pullServer is the receiving side of the rumor RPC.
type pullServer struct {
	s *Server
}

var _ gossip.Server = (*pullServer)(nil)

func (p *pullServer) Push(ctx context.Context, req *gossip.PushRequest) (*gossip.PushResponse, error) {
	s := p.s

	if s.Paused() || s.isBlocked(req.From) {
		return &gossip.PushResponse{}, nil
	}

	b, err := s.open(req.Rumors)
	if err != nil {
		telemetry.DecodeErrors.Inc()
		level.Warn(s.logger).Log("msg", "failed to open rumors", "from", req.From, "err", err)

		return nil, status.Error(codes.InvalidArgument, "failed to open rumors")
	}

	envelopes, err := rumor.Unmarshal(b)
	if err != nil {
		telemetry.DecodeErrors.Inc()
		level.Warn(s.logger).Log("msg", "failed to decode rumors", "from", req.From, "err", err)

		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	s.processRumors(req.From, envelopes)

	return &gossip.PushResponse{}, nil
}
