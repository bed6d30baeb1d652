package membership

import (
	"encoding/binary"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/twmb/murmur3"

	"github.com/maxpoletaev/butterfly/internal/generic"
)

var (
	ErrMemberNotFound = errors.New("member not found")
)

type entry struct {
	member Member
	health Health
	since  time.Time
}

// Timed is a member snapshot together with the time it entered its current state.
type Timed struct {
	Membership
	Since time.Time
}

// List is the local view of the ring. It is safe for concurrent use. All
// methods take the lock only for the duration of the call and return copies.
type List struct {
	mut     sync.RWMutex
	selfID  string
	members map[string]*entry
	updates uint64
	now     func() time.Time
}

// NewList creates a list containing only the local member, which is always alive.
func NewList(self Member) *List {
	l := &List{
		selfID:  self.ID,
		members: make(map[string]*entry, 1),
		now:     time.Now,
	}

	l.members[self.ID] = &entry{
		member: self,
		health: HealthAlive,
		since:  l.now(),
	}

	return l
}

// SelfID returns the ID of the local member.
func (l *List) SelfID() string {
	return l.selfID
}

// Self returns the local member.
func (l *List) Self() Membership {
	l.mut.RLock()
	defer l.mut.RUnlock()

	e := l.members[l.selfID]

	return Membership{Member: e.member, Health: e.health}
}

// UpdateSelf replaces the local member, keeping its health. Used when ports
// become known after binding.
func (l *List) UpdateSelf(fn func(m *Member)) Member {
	l.mut.Lock()
	defer l.mut.Unlock()

	e := l.members[l.selfID]
	fn(&e.member)
	e.member.ID = l.selfID
	l.updates++

	return e.member
}

func (l *List) store(m Member, h Health) {
	l.members[m.ID] = &entry{member: m, health: h, since: l.now()}
	l.updates++
}

// Insert merges the given member rumor into the list and returns true if it
// superseded the stored state. A higher incarnation always wins; at the same
// incarnation the more severe health wins. Departed is terminal and an
// explicit departure wins regardless of the incarnation.
func (l *List) Insert(m Member, h Health) bool {
	l.mut.Lock()
	defer l.mut.Unlock()

	// The local member is changed only through ObserveSelf.
	if m.ID == l.selfID || m.ID == "" {
		return false
	}

	curr, ok := l.members[m.ID]
	if !ok {
		l.store(m, h)
		return true
	}

	if curr.health == HealthDeparted {
		return false
	}

	if h == HealthDeparted {
		m.Incarnation = generic.Max(m.Incarnation, curr.member.Incarnation)
		l.store(m, h)

		return true
	}

	switch {
	case m.Incarnation > curr.member.Incarnation:
		l.store(m, h)
		return true
	case m.Incarnation == curr.member.Incarnation && h.WorseThan(curr.health):
		l.store(m, h)
		return true
	}

	return false
}

// MarkAlive records direct evidence that the member is alive, such as an ack.
// Unlike Insert, it brings a suspect member back at the same incarnation.
// Confirmed and departed members have to refute with a higher incarnation.
func (l *List) MarkAlive(m Member) bool {
	if m.ID == "" {
		return false
	}

	l.mut.Lock()
	defer l.mut.Unlock()

	curr, ok := l.members[m.ID]
	if !ok {
		l.store(m, HealthAlive)
		return true
	}

	switch {
	case m.ID == l.selfID, curr.health == HealthDeparted:
		return false
	case m.Incarnation > curr.member.Incarnation:
		l.store(m, HealthAlive)
		return true
	case m.Incarnation == curr.member.Incarnation && curr.health == HealthSuspect:
		l.store(m, HealthAlive)
		return true
	}

	return false
}

// Confirm moves a suspect member to confirmed. The member must still be in
// the suspicion it was snapshotted in: same incarnation and suspect since the
// same time. An ack or a refutation that came in between wins.
func (l *List) Confirm(id string, incarnation uint64, since time.Time) bool {
	l.mut.Lock()
	defer l.mut.Unlock()

	e, ok := l.members[id]
	if !ok || id == l.selfID {
		return false
	}

	if e.health != HealthSuspect || e.member.Incarnation != incarnation || !e.since.Equal(since) {
		return false
	}

	l.store(e.member, HealthConfirmed)

	return true
}

// ObserveSelf applies a rumor about the local member. It returns true when the
// local incarnation was bumped to refute a suspicion, in which case the new
// self state must be disseminated. An accusation older than the current
// incarnation is stale and ignored, so that every suspicion episode causes
// exactly one bump.
func (l *List) ObserveSelf(rumor Membership) bool {
	l.mut.Lock()
	defer l.mut.Unlock()

	self := l.members[l.selfID]
	if self.health == HealthDeparted {
		return false
	}

	switch rumor.Health {
	case HealthSuspect, HealthConfirmed:
		if rumor.Member.Incarnation < self.member.Incarnation {
			return false
		}

		m := self.member
		m.Incarnation = rumor.Member.Incarnation + 1
		l.store(m, HealthAlive)

		return true

	case HealthDeparted:
		if rumor.Member.Incarnation >= self.member.Incarnation {
			l.store(self.member, HealthDeparted)
		}

	case HealthAlive:
		// Someone knows a newer incarnation of us, probably from before a restart.
		if rumor.Member.Incarnation > self.member.Incarnation {
			m := self.member
			m.Incarnation = rumor.Member.Incarnation
			l.store(m, HealthAlive)
		}
	}

	return false
}

// Depart marks the local member as departed at a new incarnation.
func (l *List) Depart() Member {
	l.mut.Lock()
	defer l.mut.Unlock()

	m := l.members[l.selfID].member
	m.Incarnation++
	l.store(m, HealthDeparted)

	return m
}

// Get returns the member with the given ID.
func (l *List) Get(id string) (Membership, bool) {
	l.mut.RLock()
	defer l.mut.RUnlock()

	e, ok := l.members[id]
	if !ok {
		return Membership{}, false
	}

	return Membership{Member: e.member, Health: e.health}, true
}

// Health returns the health of the member with the given ID.
func (l *List) Health(id string) (Health, bool) {
	l.mut.RLock()
	defer l.mut.RUnlock()

	e, ok := l.members[id]
	if !ok {
		return 0, false
	}

	return e.health, true
}

func (l *List) HasMember(id string) bool {
	l.mut.RLock()
	defer l.mut.RUnlock()

	_, ok := l.members[id]

	return ok
}

// Members returns a snapshot of all known members including the local one,
// sorted by ID.
func (l *List) Members() []Membership {
	l.mut.RLock()
	defer l.mut.RUnlock()

	members := make([]Membership, 0, len(l.members))
	for _, e := range l.members {
		members = append(members, Membership{Member: e.member, Health: e.health})
	}

	sort.Slice(members, func(i, j int) bool {
		return members[i].Member.ID < members[j].Member.ID
	})

	return members
}

// CheckList returns the members to probe during one traversal in random
// order. Departed members are never probed; confirmed members only if they
// are permanent.
func (l *List) CheckList() []Member {
	l.mut.RLock()
	defer l.mut.RUnlock()

	members := make([]Member, 0, len(l.members))

	for id, e := range l.members {
		if id == l.selfID || e.health == HealthDeparted {
			continue
		}

		if e.health == HealthConfirmed && !e.member.Permanent {
			continue
		}

		members = append(members, e.member)
	}

	generic.Shuffle(members)

	return members
}

// RandomAlive returns up to k random alive members other than the local one
// and the excluded ones.
func (l *List) RandomAlive(k int, exclude ...string) []Member {
	l.mut.RLock()

	members := make([]Member, 0, len(l.members))

	for id, e := range l.members {
		if id == l.selfID || e.health != HealthAlive {
			continue
		}

		members = append(members, e.member)
	}

	l.mut.RUnlock()

	generic.Shuffle(members)

	selected := make([]Member, 0, k)

	for _, m := range members {
		if len(selected) == k {
			break
		}

		excluded := false

		for _, id := range exclude {
			if m.ID == id {
				excluded = true
				break
			}
		}

		if !excluded {
			selected = append(selected, m)
		}
	}

	return selected
}

// Since returns the members in the given health state along with the time
// they have entered that state.
func (l *List) Since(h Health) []Timed {
	l.mut.RLock()
	defer l.mut.RUnlock()

	var timed []Timed

	for id, e := range l.members {
		if id != l.selfID && e.health == h {
			timed = append(timed, Timed{
				Membership: Membership{Member: e.member, Health: e.health},
				Since:      e.since,
			})
		}
	}

	return timed
}

// Remove deletes a departed member from the list. Other members can not be
// removed, since they would be re-learned from gossip straight away.
func (l *List) Remove(id string) error {
	l.mut.Lock()
	defer l.mut.Unlock()

	e, ok := l.members[id]
	if !ok {
		return ErrMemberNotFound
	}

	if e.health != HealthDeparted || id == l.selfID {
		return errors.New("only departed members can be removed")
	}

	delete(l.members, id)
	l.updates++

	return nil
}

// Len returns the number of known members including the local one.
func (l *List) Len() int {
	l.mut.RLock()
	defer l.mut.RUnlock()

	return len(l.members)
}

// AliveCount returns the number of alive members other than the local one.
func (l *List) AliveCount() int {
	l.mut.RLock()
	defer l.mut.RUnlock()

	var n int

	for id, e := range l.members {
		if id != l.selfID && e.health == HealthAlive {
			n++
		}
	}

	return n
}

// UpdateCounter is incremented on every change of the list.
func (l *List) UpdateCounter() uint64 {
	l.mut.RLock()
	defer l.mut.RUnlock()

	return l.updates
}

// Digest returns an order-independent hash of the (id, incarnation, health)
// triples. Two members with the same digest have converged.
func (l *List) Digest() uint64 {
	l.mut.RLock()
	defer l.mut.RUnlock()

	var digest uint64

	buf := make([]byte, 9)

	for id, e := range l.members {
		h := murmur3.New64()
		_, _ = h.Write([]byte(id))

		binary.BigEndian.PutUint64(buf, e.member.Incarnation)
		buf[8] = byte(e.health)
		_, _ = h.Write(buf)

		digest ^= h.Sum64()
	}

	return digest
}
