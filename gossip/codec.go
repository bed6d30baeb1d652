package gossip

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content subtype of the rumor RPC.
const CodecName = "cbor"

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func newCodec() *cborCodec {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("gossip: cbor encoder initialization failed: " + err.Error())
	}

	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("gossip: cbor decoder initialization failed: " + err.Error())
	}

	return &cborCodec{enc: enc, dec: dec}
}

func (c *cborCodec) Marshal(v any) ([]byte, error) {
	b, err := c.enc.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cbor marshal failed: %w", err)
	}

	return b, nil
}

func (c *cborCodec) Unmarshal(data []byte, v any) error {
	if err := c.dec.Unmarshal(data, v); err != nil {
		return fmt.Errorf("cbor unmarshal failed: %w", err)
	}

	return nil
}

func (c *cborCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(newCodec())
}
