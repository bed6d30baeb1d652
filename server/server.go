package server

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"google.golang.org/grpc"

	"github.com/maxpoletaev/butterfly/gossip"
	"github.com/maxpoletaev/butterfly/internal/lockmap"
	"github.com/maxpoletaev/butterfly/internal/set"
	"github.com/maxpoletaev/butterfly/membership"
	"github.com/maxpoletaev/butterfly/rumor"
	"github.com/maxpoletaev/butterfly/swim"
)

var (
	ErrNotInGroup = errors.New("local member is not in the service group")
)

// Server runs the failure detector and the rumor dissemination of a single
// ring member.
//
// Locking: the member list and the rumor store each have their own lock. No
// code path holds both of them at once, every operation takes a snapshot of
// one and releases it before touching the other.
type Server struct {
	conf   *Config
	logger log.Logger

	members *membership.List
	rumors  *rumor.Store
	conns   *gossip.ConnRegistry

	swim       *swim.UDPTransport
	gossipLis  net.Listener
	grpcServer *grpc.Server

	acks   chan membership.Member
	paused int32
	rounds uint64

	blockMut sync.RWMutex
	blocked  set.Set[string]

	// elections serializes votes per service group.
	elections *lockmap.Map[string]

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Start binds the sockets, restores the persisted state and starts all
// background loops. Bind errors are returned as is.
func Start(conf *Config) (*Server, error) {
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Ensure that the original config is not modified.
	conf = func() *Config { c := *conf; return &c }()

	transport, err := swim.Listen(conf.SwimBindAddr)
	if err != nil {
		return nil, err
	}

	lis, err := net.Listen("tcp", conf.GossipBindAddr)
	if err != nil {
		_ = transport.Close()
		return nil, fmt.Errorf("failed to listen tcp port on %s: %w", conf.GossipBindAddr, err)
	}

	self := conf.Member
	if self.ID == "" {
		self.ID = membership.NewID()
	}

	if self.SwimPort == 0 {
		self.SwimPort = uint16(transport.LocalAddr().Port)
	}

	if self.GossipPort == 0 {
		self.GossipPort = uint16(lis.Addr().(*net.TCPAddr).Port)
	}

	if self.Address == "" {
		self.Address = advertiseAddr(transport.LocalAddr().IP)
	}

	s := &Server{
		conf:      conf,
		logger:    log.With(conf.Logger, "self", self.ID),
		rumors:    rumor.NewStore(conf.MaxTransmissions),
		swim:      transport,
		gossipLis: lis,
		acks:      make(chan membership.Member, conf.AckQueueSize),
		blocked:   set.New[string](),
		elections: lockmap.New[string](),
		stop:      make(chan struct{}),
	}

	if err := s.restore(&self); err != nil {
		_ = transport.Close()
		_ = lis.Close()

		return nil, err
	}

	s.rumors.ResetHeat(rumor.MemberKey(self.ID))
	s.conns = gossip.NewConnRegistry(s.members, conf.Dialer)

	s.grpcServer = grpc.NewServer()
	gossip.RegisterServer(s.grpcServer, &pullServer{s: s})

	s.startLoops()

	level.Info(s.logger).Log(
		"msg", "server started",
		"swim_addr", self.SwimAddr(),
		"gossip_addr", self.GossipAddr(),
		"incarnation", self.Incarnation,
	)

	return s, nil
}

func advertiseAddr(ip net.IP) string {
	if ip == nil || ip.IsUnspecified() {
		return "127.0.0.1"
	}

	return ip.String()
}

func (s *Server) startLoops() {
	loops := []func(){
		s.runInbound,
		s.runOutbound,
		s.runExpire,
		s.runPush,
	}

	if s.conf.Storage != nil {
		loops = append(loops, s.runPersist)
	}

	for _, loop := range loops {
		s.wg.Add(1)

		go func(loop func()) {
			defer s.wg.Done()
			loop()
		}(loop)
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		if err := s.grpcServer.Serve(s.gossipLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			level.Error(s.logger).Log("msg", "gossip server failed", "err", err)
		}
	}()
}

// Stop stops all background loops and closes the sockets. The state is
// persisted one last time when storage is configured.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)

		_ = s.swim.Close()
		s.grpcServer.Stop()
		s.wg.Wait()
		s.conns.Close()

		if s.conf.Storage != nil {
			if err := s.persist(); err != nil {
				level.Error(s.logger).Log("msg", "failed to persist state", "err", err)
			}
		}

		level.Info(s.logger).Log("msg", "server stopped")
	})
}

func (s *Server) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// sleep waits for the given duration and returns false if the server was
// stopped in the meantime.
func (s *Server) sleep(d time.Duration) bool {
	if d <= 0 {
		return !s.stopped()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-s.stop:
		return false
	}
}

// ID returns the id of the local member.
func (s *Server) ID() string {
	return s.members.SelfID()
}

// Self returns the local member.
func (s *Server) Self() membership.Membership {
	return s.members.Self()
}

// MemberList gives read access to the member list.
func (s *Server) MemberList() *membership.List {
	return s.members
}

// RumorStore gives read access to the rumor store.
func (s *Server) RumorStore() *rumor.Store {
	return s.rumors
}

// Round returns the number of completed traversals of the member list.
func (s *Server) Round() uint64 {
	return atomic.LoadUint64(&s.rounds)
}

// Pause freezes the failure detector: incoming datagrams are dropped and no
// probes or pushes are sent until Resume.
func (s *Server) Pause() {
	atomic.StoreInt32(&s.paused, 1)
	level.Info(s.logger).Log("msg", "paused")
}

func (s *Server) Resume() {
	atomic.StoreInt32(&s.paused, 0)
	level.Info(s.logger).Log("msg", "resumed")
}

func (s *Server) Paused() bool {
	return atomic.LoadInt32(&s.paused) == 1
}

// Block drops all traffic to and from the member. Used to simulate network
// partitions.
func (s *Server) Block(memberID string) {
	s.blockMut.Lock()
	s.blocked.Add(memberID)
	s.blockMut.Unlock()
}

func (s *Server) Unblock(memberID string) {
	s.blockMut.Lock()
	s.blocked.Remove(memberID)
	s.blockMut.Unlock()
}

func (s *Server) isBlocked(memberID string) bool {
	s.blockMut.RLock()
	defer s.blockMut.RUnlock()

	return s.blocked.Has(memberID)
}

// SwimAddr returns the bound UDP address.
func (s *Server) SwimAddr() string {
	self := s.members.Self().Member
	return net.JoinHostPort(self.Address, strconv.Itoa(int(self.SwimPort)))
}
