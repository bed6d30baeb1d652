// Package election drives the supervised service of a single service group
// through the leader election: it waits for the quorum, starts or joins the
// election, and starts the service as the leader or a follower once the
// election is finished.
package election

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/maxpoletaev/butterfly/census"
)

// DefaultElectionTimeout is how long an election may run without finishing
// before it is restarted at the next term.
const DefaultElectionTimeout = 30 * time.Second

type State uint8

const (
	StateInit State = iota
	StateMinimumQuorum
	StateWaitingForQuorum
	StateCheckForElection
	StateStartElection
	StateElection
	StateBecomeLeader
	StateBecomeFollower
	StateStarting
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateMinimumQuorum:
		return "minimum_quorum"
	case StateWaitingForQuorum:
		return "waiting_for_quorum"
	case StateCheckForElection:
		return "check_for_election"
	case StateStartElection:
		return "start_election"
	case StateElection:
		return "election"
	case StateBecomeLeader:
		return "become_leader"
	case StateBecomeFollower:
		return "become_follower"
	case StateStarting:
		return "starting"
	default:
		return ""
	}
}

type Role uint8

const (
	RoleNone Role = iota
	RoleLeader
	RoleFollower
)

func (r Role) String() string {
	switch r {
	case RoleLeader:
		return "leader"
	case RoleFollower:
		return "follower"
	default:
		return "none"
	}
}

// Cluster is the part of the gossip server the machine depends on.
type Cluster interface {
	Census(group string) *census.Group
	StartElection(group string, term uint64) error
}

// Service is the supervised service. Start is retried on every tick until it
// succeeds.
type Service interface {
	Start(ctx context.Context, role Role) error
	Stop(ctx context.Context) error
}

type Machine struct {
	group   string
	cluster Cluster
	service Service
	logger  log.Logger

	electionTimeout time.Duration
	now             func() time.Time

	state   State
	role    Role
	term    uint64
	started time.Time
}

type Option func(m *Machine)

func WithLogger(logger log.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

func WithElectionTimeout(timeout time.Duration) Option {
	return func(m *Machine) {
		m.electionTimeout = timeout
	}
}

func withClock(now func() time.Time) Option {
	return func(m *Machine) {
		m.now = now
	}
}

func New(group string, cluster Cluster, service Service, opts ...Option) *Machine {
	m := &Machine{
		group:           group,
		cluster:         cluster,
		service:         service,
		logger:          log.NewNopLogger(),
		electionTimeout: DefaultElectionTimeout,
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.logger = log.With(m.logger, "group", group)

	return m
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) Role() Role {
	return m.role
}

// Run ticks the machine every interval until the context is done. The
// service is stopped on exit.
func (m *Machine) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// The original context is done, stopping should not be canceled straight away.
			m.abdicate(context.Background())
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick advances the machine by one step and returns the new state. The census
// is read once per step, the service hooks run after the read is complete.
func (m *Machine) Tick(ctx context.Context) State {
	prev := m.state

	switch m.state {
	case StateInit:
		m.state = StateMinimumQuorum
	case StateMinimumQuorum:
		m.minimumQuorum()
	case StateWaitingForQuorum:
		m.waitingForQuorum()
	case StateCheckForElection:
		m.checkForElection(ctx)
	case StateStartElection:
		m.startElection()
	case StateElection:
		m.election(ctx)
	case StateBecomeLeader:
		m.become(ctx, RoleLeader)
	case StateBecomeFollower:
		m.become(ctx, RoleFollower)
	case StateStarting:
		m.starting(ctx)
	}

	if m.state != prev {
		level.Debug(m.logger).Log("msg", "election state changed", "from", prev, "to", m.state)
	}

	return m.state
}

func (m *Machine) minimumQuorum() {
	if m.cluster.Census(m.group).MinimumQuorum() {
		m.state = StateWaitingForQuorum
	}
}

func (m *Machine) waitingForQuorum() {
	if m.cluster.Census(m.group).HasQuorum() {
		m.state = StateCheckForElection
	}
}

func (m *Machine) checkForElection(ctx context.Context) {
	g := m.cluster.Census(m.group)

	if !g.HasQuorum() {
		m.quorumLost(ctx)
		return
	}

	if leader, ok := g.Leader(); ok {
		m.followLeader(g, leader)
		return
	}

	if e, ok := g.Election(); ok && !e.Finished() {
		m.observeTerm(e.Term)
		m.state = StateElection

		return
	}

	m.state = StateStartElection
}

func (m *Machine) followLeader(g *census.Group, leader census.Entry) {
	me, _ := g.Me()

	switch {
	case leader.MemberID() == me.MemberID() && m.role != RoleLeader:
		m.state = StateBecomeLeader
	case leader.MemberID() != me.MemberID() && m.role != RoleFollower:
		m.state = StateBecomeFollower
	}
}

func (m *Machine) observeTerm(term uint64) {
	if term != m.term {
		m.term = term
		m.started = m.now()
	}
}

func (m *Machine) startElection() {
	term := m.term + 1
	if e, ok := m.cluster.Census(m.group).Election(); ok && e.Term >= term {
		term = e.Term + 1
	}

	if err := m.cluster.StartElection(m.group, term); err != nil {
		level.Warn(m.logger).Log("msg", "failed to start election", "term", term, "err", err)
		return
	}

	level.Info(m.logger).Log("msg", "election started", "term", term)

	m.observeTerm(term)
	m.state = StateElection
}

func (m *Machine) election(ctx context.Context) {
	g := m.cluster.Census(m.group)

	if !g.HasQuorum() {
		m.quorumLost(ctx)
		return
	}

	e, ok := g.Election()
	if !ok {
		m.state = StateStartElection
		return
	}

	m.observeTerm(e.Term)

	if e.Finished() {
		if g.HasLeader() {
			m.state = StateCheckForElection
		} else {
			// The winner is gone already.
			m.state = StateStartElection
		}

		return
	}

	if m.now().Sub(m.started) >= m.electionTimeout {
		level.Info(m.logger).Log("msg", "election timed out", "term", e.Term)
		m.state = StateStartElection
	}
}

func (m *Machine) become(ctx context.Context, role Role) {
	if m.role != RoleNone && m.role != role {
		m.abdicate(ctx)
	}

	level.Info(m.logger).Log("msg", "election finished", "role", role, "term", m.term)

	m.role = role
	m.state = StateStarting
}

func (m *Machine) starting(ctx context.Context) {
	if err := m.service.Start(ctx, m.role); err != nil {
		level.Error(m.logger).Log("msg", "failed to start service", "role", m.role, "err", err)
		return
	}

	m.state = StateCheckForElection
}

func (m *Machine) quorumLost(ctx context.Context) {
	if m.role != RoleNone {
		level.Warn(m.logger).Log("msg", "quorum lost, abdicating", "role", m.role)
		m.abdicate(ctx)
	}

	m.state = StateWaitingForQuorum
}

func (m *Machine) abdicate(ctx context.Context) {
	if m.role == RoleNone {
		return
	}

	if err := m.service.Stop(ctx); err != nil {
		level.Error(m.logger).Log("msg", "failed to stop service", "role", m.role, "err", err)
	}

	m.role = RoleNone
}
