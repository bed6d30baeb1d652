package membership

import (
	"fmt"
	"net"
	"strconv"

	"github.com/google/uuid"
)

// DefaultPort is used for both the SWIM (UDP) and the gossip (TCP) listeners
// unless configured otherwise.
const DefaultPort = 9638

// Health is the state of a member as seen by the failure detector. The numeric
// order is the severity order used to resolve conflicts between rumors with
// the same incarnation.
type Health uint8

const (
	// HealthAlive is the status of a member that responds to probes.
	HealthAlive Health = iota

	// HealthSuspect is the status of a member that has failed both direct and
	// indirect probes, but still has time to refute the suspicion.
	HealthSuspect

	// HealthConfirmed is the status of a member whose suspicion has expired
	// without a rebuttal.
	HealthConfirmed

	// HealthDeparted is the status of a member that has left the ring for
	// good. It is terminal.
	HealthDeparted
)

// String returns the string representation of the health.
func (h Health) String() string {
	switch h {
	case HealthAlive:
		return "alive"
	case HealthSuspect:
		return "suspect"
	case HealthConfirmed:
		return "confirmed"
	case HealthDeparted:
		return "departed"
	default:
		return ""
	}
}

// WorseThan returns true if the health is more severe than the other one.
func (h Health) WorseThan(other Health) bool {
	return h > other
}

// ParseHealth is the inverse of Health.String.
func ParseHealth(s string) (Health, error) {
	switch s {
	case "alive":
		return HealthAlive, nil
	case "suspect":
		return HealthSuspect, nil
	case "confirmed":
		return HealthConfirmed, nil
	case "departed":
		return HealthDeparted, nil
	default:
		return 0, fmt.Errorf("unknown health: %q", s)
	}
}

// Member is a single ring member.
type Member struct {
	// ID is an opaque unique identifier, UUID by default.
	ID string `cbor:"1,keyasint"`
	// Incarnation is bumped only by the member itself when it has to refute
	// a suspicion.
	Incarnation uint64 `cbor:"2,keyasint"`
	// Address is the IP address advertised to other members.
	Address string `cbor:"3,keyasint"`
	// SwimPort is the UDP port of the failure detector.
	SwimPort uint16 `cbor:"4,keyasint"`
	// GossipPort is the TCP port of the rumor RPC.
	GossipPort uint16 `cbor:"5,keyasint"`
	// Permanent members are probed even when confirmed dead and never expire.
	Permanent bool `cbor:"6,keyasint"`
}

// NewID generates a new random member identifier.
func NewID() string {
	return uuid.New().String()
}

// SwimAddr returns the host:port of the failure detector.
func (m *Member) SwimAddr() string {
	return net.JoinHostPort(m.Address, strconv.Itoa(int(m.SwimPort)))
}

// GossipAddr returns the host:port of the rumor RPC.
func (m *Member) GossipAddr() string {
	return net.JoinHostPort(m.Address, strconv.Itoa(int(m.GossipPort)))
}

// Membership is a member together with its health. This is what is actually
// gossiped around as a member rumor.
type Membership struct {
	Member Member `cbor:"1,keyasint"`
	Health Health `cbor:"2,keyasint"`
}

func (m Membership) String() string {
	return fmt.Sprintf("%s@%d(%s)", m.Member.ID, m.Member.Incarnation, m.Health)
}
