package server

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-kit/log"

	"github.com/maxpoletaev/butterfly/gossip"
	"github.com/maxpoletaev/butterfly/internal/ringkey"
	"github.com/maxpoletaev/butterfly/membership"
	"github.com/maxpoletaev/butterfly/rumor"
)

// Timing controls the failure detector.
type Timing struct {
	// ProtocolPeriod is the time given to a single probe. One member is
	// probed per period.
	ProtocolPeriod time.Duration

	// PingTimeout is how long to wait for an ack to a direct ping.
	PingTimeout time.Duration

	// PingReqTimeout is how long to wait for an ack relayed by other members
	// after the direct ping has timed out.
	PingReqTimeout time.Duration

	// SuspicionMult scales the suspicion timeout, see SuspicionTimeout.
	SuspicionMult int
}

func DefaultTiming() Timing {
	return Timing{
		ProtocolPeriod: 3100 * time.Millisecond,
		PingTimeout:    1000 * time.Millisecond,
		PingReqTimeout: 2100 * time.Millisecond,
		SuspicionMult:  3,
	}
}

// SuspicionTimeout is how long a member of a ring of the given size stays
// suspect before it is confirmed dead. Larger rings get a longer grace period,
// since a refutation needs more hops to travel.
func (t Timing) SuspicionTimeout(members int) time.Duration {
	scale := 1.0
	if members > 1 {
		scale = math.Max(1, math.Ceil(math.Log10(float64(members))))
	}

	return time.Duration(float64(t.SuspicionMult) * scale * float64(t.ProtocolPeriod))
}

func (t Timing) Validate() error {
	if t.PingTimeout <= 0 || t.PingReqTimeout <= 0 {
		return errors.New("ping and pingreq timeouts must be positive")
	}

	if t.PingTimeout+t.PingReqTimeout > t.ProtocolPeriod {
		return fmt.Errorf("ping timeout (%s) plus pingreq timeout (%s) exceed the protocol period (%s)",
			t.PingTimeout, t.PingReqTimeout, t.ProtocolPeriod)
	}

	if t.SuspicionMult <= 0 {
		return errors.New("suspicion multiplier must be positive")
	}

	return nil
}

// Storage persists the member list and the rumors between restarts.
type Storage interface {
	Save(members []membership.Membership, rumors []rumor.Envelope) error
	Load() ([]membership.Membership, []rumor.Envelope, error)
}

// HealthObserver is called every time the local view of a member health
// changes, including the first time a member is seen.
type HealthObserver func(m membership.Member, health membership.Health)

type Config struct {
	// Member describes the local member. Empty ID is replaced with a random
	// one; zero ports are replaced with the actual bound ports.
	Member membership.Member

	// SwimBindAddr is the UDP address of the failure detector.
	SwimBindAddr string

	// GossipBindAddr is the TCP address of the rumor RPC.
	GossipBindAddr string

	// Seeds are SWIM addresses (host:port) pinged while no other member is alive.
	Seeds []string

	Timing Timing

	// PingReqFanout is the number of members asked to probe a member that
	// did not answer a direct ping.
	PingReqFanout int

	// PushFanout is the number of members rumors are pushed to every GossipInterval.
	PushFanout int

	// PushBatchSize limits the number of rumors in a single push.
	PushBatchSize int

	GossipInterval time.Duration

	// ExpireInterval is how often suspicion deadlines are checked.
	ExpireInterval time.Duration

	// ConfirmedExpiry is how long a confirmed member stays on the list before
	// it is declared departed. Zero disables the expiry.
	ConfirmedExpiry time.Duration

	// DepartedPruneAfter is how long a departed member stays on the list
	// before it is removed along with its service rumors. Zero disables pruning.
	DepartedPruneAfter time.Duration

	// MaxTransmissions is the number of times a rumor is sent to each member.
	MaxTransmissions int

	// MinimumQuorum is the smallest group population that may elect a leader.
	MinimumQuorum int

	// ReadTimeout bounds a single blocking read of the UDP socket, so that the
	// inbound loop notices pause and stop in time.
	ReadTimeout time.Duration

	// AckQueueSize is the capacity of the channel acks are handed to the
	// outbound engine through. Acks are dropped when it is full.
	AckQueueSize int

	// RingKey encrypts all traffic when set.
	RingKey *ringkey.Key

	// Storage persists state every PersistInterval and on stop when set.
	Storage         Storage
	PersistInterval time.Duration

	HealthObserver HealthObserver

	// Dialer is used to connect to the rumor RPC of other members.
	Dialer gossip.Dialer

	// Logger is go-kit logger used to record debug messages and non-critical
	// errors while protocol execution. If not provided, it will be totally silent.
	Logger log.Logger
}

// DefaultConfig creates a Config with reasonable default values.
func DefaultConfig() *Config {
	return &Config{
		SwimBindAddr:       fmt.Sprintf("0.0.0.0:%d", membership.DefaultPort),
		GossipBindAddr:     fmt.Sprintf("0.0.0.0:%d", membership.DefaultPort),
		Timing:             DefaultTiming(),
		PingReqFanout:      3,
		PushFanout:         5,
		PushBatchSize:      100,
		GossipInterval:     1 * time.Second,
		ExpireInterval:     100 * time.Millisecond,
		ConfirmedExpiry:    0,
		DepartedPruneAfter: 0,
		MaxTransmissions:   rumor.DefaultMaxTransmissions,
		MinimumQuorum:      3,
		ReadTimeout:        100 * time.Millisecond,
		AckQueueSize:       64,
		PersistInterval:    30 * time.Second,
		Dialer:             gossip.GRPCDialer{},
		Logger:             log.NewNopLogger(),
	}
}

func (c *Config) Validate() error {
	if err := c.Timing.Validate(); err != nil {
		return fmt.Errorf("invalid timing: %w", err)
	}

	switch {
	case c.PingReqFanout <= 0:
		return errors.New("pingreq fanout must be positive")
	case c.PushFanout <= 0:
		return errors.New("push fanout must be positive")
	case c.PushBatchSize <= 0:
		return errors.New("push batch size must be positive")
	case c.GossipInterval <= 0:
		return errors.New("gossip interval must be positive")
	case c.ExpireInterval <= 0:
		return errors.New("expire interval must be positive")
	case c.ReadTimeout <= 0:
		return errors.New("read timeout must be positive")
	case c.AckQueueSize <= 0:
		return errors.New("ack queue size must be positive")
	case c.Storage != nil && c.PersistInterval <= 0:
		return errors.New("persist interval must be positive")
	case c.Logger == nil:
		return errors.New("logger is required")
	case c.Dialer == nil:
		return errors.New("dialer is required")
	}

	return nil
}
