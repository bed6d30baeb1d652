package swim

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/maxpoletaev/butterfly/membership"
)

var (
	ErrTruncated       = errors.New("swim: truncated message")
	ErrPayloadMismatch = errors.New("swim: payload does not match message type")
	ErrUnknownType     = errors.New("swim: unknown message type")
	ErrTooLarge        = errors.New("swim: message does not fit the size limit")
	ErrEmptyID         = errors.New("swim: member without id")
	ErrInvalidPort     = errors.New("swim: port out of range")
)

// Field numbers of the wire messages.
const (
	fieldSwimType       protowire.Number = 1
	fieldSwimPing       protowire.Number = 2
	fieldSwimAck        protowire.Number = 3
	fieldSwimPingReq    protowire.Number = 4
	fieldSwimMembership protowire.Number = 5

	fieldMemberID          protowire.Number = 1
	fieldMemberIncarnation protowire.Number = 2
	fieldMemberAddress     protowire.Number = 3
	fieldMemberSwimPort    protowire.Number = 4
	fieldMemberGossipPort  protowire.Number = 5
	fieldMemberPermanent   protowire.Number = 6

	fieldMembershipMember protowire.Number = 1
	fieldMembershipHealth protowire.Number = 2

	fieldProbeFrom      protowire.Number = 1
	fieldProbeForwardTo protowire.Number = 2
	fieldProbeTarget    protowire.Number = 2
)

func appendMember(b []byte, m *membership.Member) []byte {
	if m.ID != "" {
		b = protowire.AppendTag(b, fieldMemberID, protowire.BytesType)
		b = protowire.AppendString(b, m.ID)
	}

	if m.Incarnation != 0 {
		b = protowire.AppendTag(b, fieldMemberIncarnation, protowire.VarintType)
		b = protowire.AppendVarint(b, m.Incarnation)
	}

	if m.Address != "" {
		b = protowire.AppendTag(b, fieldMemberAddress, protowire.BytesType)
		b = protowire.AppendString(b, m.Address)
	}

	if m.SwimPort != 0 {
		b = protowire.AppendTag(b, fieldMemberSwimPort, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.SwimPort))
	}

	if m.GossipPort != 0 {
		b = protowire.AppendTag(b, fieldMemberGossipPort, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.GossipPort))
	}

	if m.Permanent {
		b = protowire.AppendTag(b, fieldMemberPermanent, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}

	return b
}

func appendEmbedded(b []byte, num protowire.Number, fn func([]byte) []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, fn(nil))
}

func appendMembership(b []byte, m *membership.Membership) []byte {
	b = appendEmbedded(b, fieldMembershipMember, func(b []byte) []byte {
		return appendMember(b, &m.Member)
	})

	if m.Health != 0 {
		b = protowire.AppendTag(b, fieldMembershipHealth, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.Health))
	}

	return b
}

func appendProbe(b []byte, from *membership.Member, second protowire.Number, other *membership.Member) []byte {
	b = appendEmbedded(b, fieldProbeFrom, func(b []byte) []byte {
		return appendMember(b, from)
	})

	if other != nil {
		b = appendEmbedded(b, second, func(b []byte) []byte {
			return appendMember(b, other)
		})
	}

	return b
}

func appendHeader(b []byte, msg *Message) []byte {
	b = protowire.AppendTag(b, fieldSwimType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(msg.Type))

	switch msg.Type {
	case TypePing:
		b = appendEmbedded(b, fieldSwimPing, func(b []byte) []byte {
			return appendProbe(b, &msg.Ping.From, fieldProbeForwardTo, msg.Ping.ForwardTo)
		})
	case TypeAck:
		b = appendEmbedded(b, fieldSwimAck, func(b []byte) []byte {
			return appendProbe(b, &msg.Ack.From, fieldProbeForwardTo, msg.Ack.ForwardTo)
		})
	case TypePingReq:
		b = appendEmbedded(b, fieldSwimPingReq, func(b []byte) []byte {
			return appendProbe(b, &msg.PingReq.From, fieldProbeTarget, &msg.PingReq.Target)
		})
	}

	return b
}

func appendMembershipField(b []byte, m *membership.Membership) []byte {
	return appendEmbedded(b, fieldSwimMembership, func(b []byte) []byte {
		return appendMembership(b, m)
	})
}

// Encode serializes the message with all of its memberships.
func Encode(msg *Message) ([]byte, error) {
	if err := msg.validate(); err != nil {
		return nil, err
	}

	b := appendHeader(nil, msg)
	for i := range msg.Membership {
		b = appendMembershipField(b, &msg.Membership[i])
	}

	return b, nil
}

// EncodeWithin serializes the message so that the result plus the given
// overhead (such as the ring key envelope) fits into limit bytes. Memberships
// that do not fit are dropped from the tail. It returns the encoded message
// and the number of memberships that made it.
func EncodeWithin(msg *Message, limit, overhead int) ([]byte, int, error) {
	if err := msg.validate(); err != nil {
		return nil, 0, err
	}

	b := appendHeader(nil, msg)
	if len(b)+overhead > limit {
		return nil, 0, ErrTooLarge
	}

	var n int

	for i := range msg.Membership {
		next := appendMembershipField(b, &msg.Membership[i])
		if len(next)+overhead > limit {
			break
		}

		b = next
		n++
	}

	return b, n, nil
}

type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

// consumeFields walks the fields of a message, calling fn for each one. The
// function returns the number of bytes consumed, or zero to skip the field.
func consumeFields(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrTruncated, protowire.ParseError(n))
		}

		b = b[n:]

		read, err := fn(num, typ, b)
		if err != nil {
			return err
		}

		if read == 0 {
			if read = protowire.ConsumeFieldValue(num, typ, b); read < 0 {
				return fmt.Errorf("%w: %v", ErrTruncated, protowire.ParseError(read))
			}
		}

		b = b[read:]
	}

	return nil
}

func consumeVarint(b []byte) (uint64, int, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, fmt.Errorf("%w: %v", ErrTruncated, protowire.ParseError(n))
	}

	return v, n, nil
}

func consumeBytes(b []byte) ([]byte, int, error) {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, fmt.Errorf("%w: %v", ErrTruncated, protowire.ParseError(n))
	}

	return v, n, nil
}

func decodeMember(b []byte) (membership.Member, error) {
	var m membership.Member

	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldMemberID && typ == protowire.BytesType:
			v, n, err := consumeBytes(b)
			m.ID = string(v)

			return n, err

		case num == fieldMemberIncarnation && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			m.Incarnation = v

			return n, err

		case num == fieldMemberAddress && typ == protowire.BytesType:
			v, n, err := consumeBytes(b)
			m.Address = string(v)

			return n, err

		case num == fieldMemberSwimPort && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return n, err
			}

			if v > math.MaxUint16 {
				return n, fmt.Errorf("%w: %d", ErrInvalidPort, v)
			}

			m.SwimPort = uint16(v)

			return n, nil

		case num == fieldMemberGossipPort && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return n, err
			}

			if v > math.MaxUint16 {
				return n, fmt.Errorf("%w: %d", ErrInvalidPort, v)
			}

			m.GossipPort = uint16(v)

			return n, nil

		case num == fieldMemberPermanent && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			m.Permanent = protowire.DecodeBool(v)

			return n, err
		}

		return 0, nil
	})

	return m, err
}

func decodeMembership(b []byte) (membership.Membership, error) {
	var m membership.Membership

	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldMembershipMember && typ == protowire.BytesType:
			v, n, err := consumeBytes(b)
			if err != nil {
				return 0, err
			}

			m.Member, err = decodeMember(v)

			return n, err

		case num == fieldMembershipHealth && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			if v > uint64(membership.HealthDeparted) {
				return 0, fmt.Errorf("swim: invalid health %d", v)
			}

			m.Health = membership.Health(v)

			return n, err
		}

		return 0, nil
	})

	return m, err
}

// decodeProbe decodes the common shape of Ping, Ack and PingReq: the sender
// in field 1 and an optional second member in field 2.
func decodeProbe(b []byte) (from membership.Member, other *membership.Member, err error) {
	err = consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.BytesType || (num != fieldProbeFrom && num != fieldProbeForwardTo) {
			return 0, nil
		}

		v, n, err := consumeBytes(b)
		if err != nil {
			return 0, err
		}

		m, err := decodeMember(v)
		if err != nil {
			return 0, err
		}

		if num == fieldProbeFrom {
			from = m
		} else {
			other = &m
		}

		return n, nil
	})

	return from, other, err
}

// Decode parses a datagram produced by Encode.
func Decode(b []byte) (*Message, error) {
	var (
		msg     = &Message{}
		hasType bool
	)

	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == fieldSwimType && typ == protowire.VarintType {
			v, n, err := consumeVarint(b)
			msg.Type = Type(v)
			hasType = true

			return n, err
		}

		if typ != protowire.BytesType {
			return 0, nil
		}

		switch num {
		case fieldSwimPing, fieldSwimAck, fieldSwimPingReq:
			v, n, err := consumeBytes(b)
			if err != nil {
				return 0, err
			}

			from, other, err := decodeProbe(v)
			if err != nil {
				return 0, err
			}

			switch num {
			case fieldSwimPing:
				msg.Ping = &Ping{From: from, ForwardTo: other}
			case fieldSwimAck:
				msg.Ack = &Ack{From: from, ForwardTo: other}
			case fieldSwimPingReq:
				if other == nil {
					return 0, fmt.Errorf("%w: pingreq without target", ErrPayloadMismatch)
				}

				msg.PingReq = &PingReq{From: from, Target: *other}
			}

			return n, nil

		case fieldSwimMembership:
			v, n, err := consumeBytes(b)
			if err != nil {
				return 0, err
			}

			m, err := decodeMembership(v)
			if err != nil {
				return 0, err
			}

			msg.Membership = append(msg.Membership, m)

			return n, nil
		}

		return 0, nil
	})

	if err != nil {
		return nil, err
	}

	if !hasType {
		return nil, fmt.Errorf("%w: missing type", ErrTruncated)
	}

	if err := msg.validate(); err != nil {
		return nil, err
	}

	return msg, nil
}
