package gossip

//go:generate mockgen -source=client.go -destination=client_mock.go -package=gossip

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding/gzip"
)

// Client is a connection to the rumor RPC of a remote member.
type Client interface {
	Push(ctx context.Context, req *PushRequest) (*PushResponse, error)
	IsClosed() bool
	Close() error
}

// Dialer creates new client connections.
type Dialer interface {
	DialContext(ctx context.Context, addr string) (Client, error)
}

type grpcClient struct {
	conn *grpc.ClientConn
}

func (c *grpcClient) Push(ctx context.Context, req *PushRequest) (*PushResponse, error) {
	resp := new(PushResponse)

	err := c.conn.Invoke(ctx, pushMethod, req, resp,
		grpc.CallContentSubtype(CodecName),
		grpc.UseCompressor(gzip.Name),
	)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *grpcClient) IsClosed() bool {
	return c.conn.GetState() == connectivity.Shutdown
}

func (c *grpcClient) Close() error {
	return c.conn.Close()
}

// GRPCDialer dials the rumor RPC over plain gRPC. The payload is sealed with
// the ring key on the application level, so the transport is not encrypted.
type GRPCDialer struct{}

func (GRPCDialer) DialContext(ctx context.Context, addr string) (Client, error) {
	conn, err := grpc.DialContext(
		ctx,
		addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("grpc dial failed: %w", err)
	}

	return &grpcClient{conn: conn}, nil
}
