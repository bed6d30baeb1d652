// Package census derives the per-service-group view of the ring from the
// member list and the rumor store. A census is a read-only snapshot; it is
// rebuilt every time it is needed and never gossiped itself.
package census

import (
	"errors"
	"sort"

	"github.com/maxpoletaev/butterfly/internal/generic"
	"github.com/maxpoletaev/butterfly/internal/sealed"
	"github.com/maxpoletaev/butterfly/membership"
	"github.com/maxpoletaev/butterfly/rumor"
)

// DefaultMinimumQuorum is the smallest population a group must have before it
// is allowed to elect a leader.
const DefaultMinimumQuorum = 3

var (
	ErrNoConfig = errors.New("census: group has no config")
	ErrNoFile   = errors.New("census: group has no such file")
)

// Entry is a single member of a service group.
type Entry struct {
	Service rumor.Service
	Health  membership.Health
	Leader  bool
}

func (e Entry) MemberID() string {
	return e.Service.MemberID
}

func (e Entry) Alive() bool {
	return e.Health == membership.HealthAlive
}

// Snapshot is everything a census is built from. Health of members missing
// from the Health map is unknown and they are counted as not alive.
type Snapshot struct {
	Group         string
	SelfID        string
	MinimumQuorum int
	Services      []rumor.Service
	Health        map[string]membership.Health
	Election      *rumor.Election
	Config        *rumor.ServiceConfig
	Files         []rumor.ServiceFile
}

// Group is the census of a single service group.
type Group struct {
	name      string
	selfID    string
	minQuorum int
	entries   []Entry
	election  *rumor.Election
	config    *rumor.ServiceConfig
	files     map[string]rumor.ServiceFile
}

func New(s Snapshot) *Group {
	g := &Group{
		name:      s.Group,
		selfID:    s.SelfID,
		minQuorum: s.MinimumQuorum,
		election:  s.Election,
		config:    s.Config,
		files:     make(map[string]rumor.ServiceFile, len(s.Files)),
	}

	if g.minQuorum <= 0 {
		g.minQuorum = DefaultMinimumQuorum
	}

	for _, svc := range s.Services {
		health, ok := s.Health[svc.MemberID]
		if !ok {
			health = membership.HealthConfirmed
		}

		if health == membership.HealthDeparted {
			continue
		}

		g.entries = append(g.entries, Entry{Service: svc, Health: health})
	}

	sort.Slice(g.entries, func(i, j int) bool {
		return g.entries[i].Service.MemberID < g.entries[j].Service.MemberID
	})

	if leader, ok := g.leaderIndex(); ok {
		g.entries[leader].Leader = true
	}

	for _, f := range s.Files {
		g.files[f.Filename] = f
	}

	return g
}

func (g *Group) Name() string {
	return g.name
}

func (g *Group) find(memberID string) (int, bool) {
	i := sort.Search(len(g.entries), func(i int) bool {
		return g.entries[i].Service.MemberID >= memberID
	})

	if i < len(g.entries) && g.entries[i].Service.MemberID == memberID {
		return i, true
	}

	return 0, false
}

func (g *Group) leaderIndex() (int, bool) {
	if g.election == nil || !g.election.Finished() {
		return 0, false
	}

	i, ok := g.find(g.election.MemberID)
	if !ok || !g.entries[i].Alive() {
		return 0, false
	}

	return i, true
}

// TotalPopulation is the number of members of the group that have not departed.
func (g *Group) TotalPopulation() int {
	return len(g.entries)
}

// AlivePopulation is the number of alive members of the group.
func (g *Group) AlivePopulation() int {
	var n int

	for _, e := range g.entries {
		if e.Alive() {
			n++
		}
	}

	return n
}

// MinimumQuorum reports whether the group is large enough to elect a leader.
func (g *Group) MinimumQuorum() bool {
	return g.TotalPopulation() >= g.minQuorum
}

// HasQuorum reports whether the minimum quorum is met and a strict majority
// of the group is alive.
func (g *Group) HasQuorum() bool {
	return g.MinimumQuorum() && g.AlivePopulation()*2 > g.TotalPopulation()
}

// Leader returns the winner of the finished election if it is alive.
func (g *Group) Leader() (Entry, bool) {
	i, ok := g.leaderIndex()
	if !ok {
		return Entry{}, false
	}

	return g.entries[i], true
}

func (g *Group) HasLeader() bool {
	_, ok := g.leaderIndex()
	return ok
}

// Me returns the entry of the local member.
func (g *Group) Me() (Entry, bool) {
	return g.Member(g.selfID)
}

func (g *Group) Member(memberID string) (Entry, bool) {
	i, ok := g.find(memberID)
	if !ok {
		return Entry{}, false
	}

	return g.entries[i], true
}

// Members returns all entries sorted by member id.
func (g *Group) Members() []Entry {
	return append([]Entry(nil), g.entries...)
}

// Election returns the current election of the group, if any.
func (g *Group) Election() (rumor.Election, bool) {
	if g.election == nil {
		return rumor.Election{}, false
	}

	return *g.election, true
}

// AllAliveVoted reports whether every alive member of the group has voted in
// the election.
func (g *Group) AllAliveVoted(e rumor.Election) bool {
	for _, entry := range g.entries {
		if entry.Alive() && !e.HasVote(entry.MemberID()) {
			return false
		}
	}

	return true
}

// BestCandidate returns the most suitable alive member of the group.
func (g *Group) BestCandidate() (Entry, bool) {
	var (
		best  Entry
		found bool
	)

	for _, e := range g.entries {
		if !e.Alive() {
			continue
		}

		if !found || rumor.BetterCandidate(e.MemberID(), e.Service.Suitability, best.MemberID(), best.Service.Suitability) {
			best, found = e, true
		}
	}

	return best, found
}

// Config returns the raw config rumor of the group.
func (g *Group) Config() (rumor.ServiceConfig, bool) {
	if g.config == nil {
		return rumor.ServiceConfig{}, false
	}

	return *g.config, true
}

// ConfigPayload returns the group config, decrypting it with the identity
// when it is encrypted.
func (g *Group) ConfigPayload(identity string) ([]byte, error) {
	if g.config == nil {
		return nil, ErrNoConfig
	}

	return payload(g.config.Encrypted, g.config.Config, identity)
}

// FilePayload returns the contents of a group file, decrypting it with the
// identity when it is encrypted.
func (g *Group) FilePayload(name, identity string) ([]byte, error) {
	f, ok := g.files[name]
	if !ok {
		return nil, ErrNoFile
	}

	return payload(f.Encrypted, f.Body, identity)
}

// Files returns the names of the group files, sorted.
func (g *Group) Files() []string {
	return generic.SortedKeys(g.files)
}

func payload(encrypted bool, data []byte, identity string) ([]byte, error) {
	if !encrypted {
		return data, nil
	}

	return sealed.Decrypt(data, identity)
}

// Ring is the census of every service group known to the local member.
type Ring struct {
	groups map[string]*Group
}

func NewRing(groups ...*Group) *Ring {
	r := &Ring{groups: make(map[string]*Group, len(groups))}
	for _, g := range groups {
		r.groups[g.name] = g
	}

	return r
}

func (r *Ring) Group(name string) (*Group, bool) {
	g, ok := r.groups[name]
	return g, ok
}

// Groups returns all groups sorted by name.
func (r *Ring) Groups() []*Group {
	groups := make([]*Group, 0, len(r.groups))
	for _, g := range r.groups {
		groups = append(groups, g)
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].name < groups[j].name
	})

	return groups
}
