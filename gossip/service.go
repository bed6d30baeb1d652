package gossip

import (
	"context"

	"google.golang.org/grpc"
)

const pushMethod = "/butterfly.Gossip/Push"

// PushRequest carries a batch of rumor envelopes. Rumors is the CBOR encoded
// batch, sealed with the ring key when one is configured.
type PushRequest struct {
	From   string `cbor:"1,keyasint"`
	Rumors []byte `cbor:"2,keyasint"`
}

type PushResponse struct{}

// Server is implemented by the receiving side of the rumor RPC.
type Server interface {
	Push(ctx context.Context, req *PushRequest) (*PushResponse, error)
}

func pushHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PushRequest)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(Server).Push(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: pushMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).Push(ctx, req.(*PushRequest))
	}

	return interceptor(ctx, in, info, handler)
}

// ServiceDesc describes the rumor RPC. Messages are plain structs encoded with
// the CBOR codec, so there is no generated code behind it.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "butterfly.Gossip",
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Push",
			Handler:    pushHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gossip",
}

// RegisterServer registers the rumor RPC on the gRPC server.
func RegisterServer(s grpc.ServiceRegistrar, srv Server) {
	s.RegisterService(&ServiceDesc, srv)
}
