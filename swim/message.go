package swim

import (
	"fmt"

	"github.com/maxpoletaev/butterfly/membership"
)

// MaxMessageSize is the largest datagram sent or received. It is kept well
// below the typical MTU so that messages are never fragmented.
const MaxMessageSize = 1024

type Type uint8

const (
	TypePing Type = iota
	TypeAck
	TypePingReq
)

func (t Type) String() string {
	switch t {
	case TypePing:
		return "ping"
	case TypeAck:
		return "ack"
	case TypePingReq:
		return "pingreq"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Ping is a direct probe. ForwardTo is set when the ping is sent on behalf of
// another member, who will receive the ack through the sender.
type Ping struct {
	From      membership.Member
	ForwardTo *membership.Member
}

// Ack is the reply to a ping. It copies ForwardTo from the ping it answers.
type Ack struct {
	From      membership.Member
	ForwardTo *membership.Member
}

// PingReq asks the receiver to probe Target on behalf of the sender.
type PingReq struct {
	From   membership.Member
	Target membership.Member
}

// Message is a single SWIM datagram. Exactly one of Ping, Ack and PingReq is
// set, according to Type. Every message piggybacks membership rumors.
type Message struct {
	Type       Type
	Ping       *Ping
	Ack        *Ack
	PingReq    *PingReq
	Membership []membership.Membership
}

func NewPing(from membership.Member, forwardTo *membership.Member) *Message {
	return &Message{Type: TypePing, Ping: &Ping{From: from, ForwardTo: forwardTo}}
}

func NewAck(from membership.Member, forwardTo *membership.Member) *Message {
	return &Message{Type: TypeAck, Ack: &Ack{From: from, ForwardTo: forwardTo}}
}

func NewPingReq(from, target membership.Member) *Message {
	return &Message{Type: TypePingReq, PingReq: &PingReq{From: from, Target: target}}
}

// From returns the member that sent the message.
func (m *Message) From() membership.Member {
	switch m.Type {
	case TypePing:
		return m.Ping.From
	case TypeAck:
		return m.Ack.From
	case TypePingReq:
		return m.PingReq.From
	default:
		return membership.Member{}
	}
}

// ForwardTo returns the member the message is forwarded to, if any.
func (m *Message) ForwardTo() *membership.Member {
	switch m.Type {
	case TypePing:
		return m.Ping.ForwardTo
	case TypeAck:
		return m.Ack.ForwardTo
	default:
		return nil
	}
}

func (m *Message) validate() error {
	var set int

	for _, ok := range []bool{m.Ping != nil, m.Ack != nil, m.PingReq != nil} {
		if ok {
			set++
		}
	}

	if set != 1 {
		return ErrPayloadMismatch
	}

	switch m.Type {
	case TypePing:
		if m.Ping == nil {
			return ErrPayloadMismatch
		}
	case TypeAck:
		if m.Ack == nil {
			return ErrPayloadMismatch
		}
	case TypePingReq:
		if m.PingReq == nil {
			return ErrPayloadMismatch
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownType, m.Type)
	}

	if m.From().ID == "" {
		return fmt.Errorf("%w: sender", ErrEmptyID)
	}

	if fwd := m.ForwardTo(); fwd != nil && fwd.ID == "" {
		return fmt.Errorf("%w: forward_to", ErrEmptyID)
	}

	if m.Type == TypePingReq && m.PingReq.Target.ID == "" {
		return fmt.Errorf("%w: target", ErrEmptyID)
	}

	return nil
}
