package swim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/maxpoletaev/butterfly/membership"
)

func testMember(id string) membership.Member {
	return membership.Member{
		ID:          id,
		Incarnation: 7,
		Address:     "10.0.0.1",
		SwimPort:    9638,
		GossipPort:  9639,
	}
}

func testMemberships(n int) []membership.Membership {
	ms := make([]membership.Membership, n)

	for i := range ms {
		m := testMember("3f7c1d0e-5b9a-4c1e-8f0d-6a2b9c4e7d1" + string(rune('a'+i%26)))
		m.Permanent = i%2 == 0
		ms[i] = membership.Membership{Member: m, Health: membership.Health(i % 4)}
	}

	return ms
}

func TestCodec_RoundTrip(t *testing.T) {
	forward := testMember("c")

	tests := map[string]*Message{
		"Ping":               NewPing(testMember("a"), nil),
		"PingForwarded":      NewPing(testMember("a"), &forward),
		"Ack":                NewAck(testMember("b"), nil),
		"AckForwarded":       NewAck(testMember("b"), &forward),
		"PingReq":            NewPingReq(testMember("a"), testMember("b")),
		"IDOnlyMember":       NewPing(membership.Member{ID: "a"}, nil),
		"ZeroIncarnationAck": NewAck(membership.Member{ID: "a"}, nil),
	}

	for name, msg := range tests {
		t.Run(name, func(t *testing.T) {
			msg.Membership = testMemberships(3)

			b, err := Encode(msg)
			require.NoError(t, err)

			decoded, err := Decode(b)
			require.NoError(t, err)
			assert.Equal(t, msg, decoded)

			again, err := Encode(decoded)
			require.NoError(t, err)
			assert.Equal(t, b, again)
		})
	}
}

func TestCodec_NoMembership(t *testing.T) {
	msg := NewAck(testMember("a"), nil)

	b, err := Encode(msg)
	require.NoError(t, err)

	decoded, err := Decode(b)
	require.NoError(t, err)
	assert.Nil(t, decoded.Membership)
	assert.Equal(t, TypeAck, decoded.Type)
	assert.Equal(t, "a", decoded.From().ID)
	assert.Nil(t, decoded.ForwardTo())
}

func TestCodec_Truncated(t *testing.T) {
	msg := NewPingReq(testMember("a"), testMember("b"))
	msg.Membership = testMemberships(2)

	b, err := Encode(msg)
	require.NoError(t, err)

	for _, n := range []int{0, 1, 5, len(b) / 2, len(b) - 1} {
		_, err := Decode(b[:n])
		assert.Error(t, err, "prefix of %d bytes", n)
	}

	_, err = Decode([]byte{0xff, 0xff, 0xff})
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestCodec_PayloadMismatch(t *testing.T) {
	_, err := Encode(&Message{Type: TypeAck, Ping: &Ping{}})
	assert.ErrorIs(t, err, ErrPayloadMismatch)

	_, err = Encode(&Message{Type: TypePing})
	assert.ErrorIs(t, err, ErrPayloadMismatch)

	_, err = Encode(&Message{Type: TypePing, Ping: &Ping{}, Ack: &Ack{}})
	assert.ErrorIs(t, err, ErrPayloadMismatch)

	_, err = Encode(&Message{Type: 9, Ping: &Ping{}})
	assert.ErrorIs(t, err, ErrUnknownType)

	// A ping payload declared as an ack.
	b, err := Encode(NewPing(testMember("a"), nil))
	require.NoError(t, err)

	b[1] = byte(TypeAck)
	_, err = Decode(b)
	assert.ErrorIs(t, err, ErrPayloadMismatch)
}

func TestCodec_EncodeWithin(t *testing.T) {
	msg := NewPing(testMember("a"), nil)
	msg.Membership = testMemberships(40)

	full, err := Encode(msg)
	require.NoError(t, err)
	require.Greater(t, len(full), MaxMessageSize)

	b, n, err := EncodeWithin(msg, MaxMessageSize, 41)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(b)+41, MaxMessageSize)
	assert.Greater(t, n, 0)
	assert.Less(t, n, len(msg.Membership))

	decoded, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, msg.Membership[:n], decoded.Membership)

	// The header alone does not fit.
	_, _, err = EncodeWithin(msg, 10, 0)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestCodec_EmptyID(t *testing.T) {
	anonymous := membership.Member{Address: "127.0.0.1", SwimPort: 1}

	tests := map[string]*Message{
		"PingSender":    NewPing(anonymous, nil),
		"AckSender":     NewAck(anonymous, nil),
		"ForwardTo":     NewAck(testMember("a"), &anonymous),
		"PingReqSender": NewPingReq(anonymous, testMember("b")),
		"PingReqTarget": NewPingReq(testMember("a"), anonymous),
	}

	for name, msg := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Encode(msg)
			assert.ErrorIs(t, err, ErrEmptyID)

			// A foreign encoder may still put it on the wire.
			_, err = Decode(appendHeader(nil, msg))
			assert.ErrorIs(t, err, ErrEmptyID)
		})
	}
}

func TestCodec_PortOutOfRange(t *testing.T) {
	for _, field := range []protowire.Number{fieldMemberSwimPort, fieldMemberGossipPort} {
		member := protowire.AppendTag(nil, fieldMemberID, protowire.BytesType)
		member = protowire.AppendString(member, "a")
		member = protowire.AppendTag(member, field, protowire.VarintType)
		member = protowire.AppendVarint(member, 70000)

		probe := protowire.AppendTag(nil, fieldProbeFrom, protowire.BytesType)
		probe = protowire.AppendBytes(probe, member)

		b := protowire.AppendTag(nil, fieldSwimType, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(TypePing))
		b = protowire.AppendTag(b, fieldSwimPing, protowire.BytesType)
		b = protowire.AppendBytes(b, probe)

		_, err := Decode(b)
		assert.ErrorIs(t, err, ErrInvalidPort, "field %d", field)
	}
}
