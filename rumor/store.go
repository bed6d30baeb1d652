package rumor

import (
	"errors"
	"sort"
	"sync"

	"github.com/maxpoletaev/butterfly/internal/generic"
)

var (
	ErrNotFound = errors.New("rumor not found")
)

// Store holds the latest version of every rumor, indexed by kind, key and id,
// together with the heat map used to decide what to send to whom.
type Store struct {
	mut     sync.RWMutex
	rumors  map[Kind]map[string]map[string]Rumor
	updates uint64
	heat    *Heat
}

func NewStore(maxTransmissions int) *Store {
	return &Store{
		rumors: make(map[Kind]map[string]map[string]Rumor),
		heat:   NewHeat(maxTransmissions),
	}
}

// Heat returns the heat map of the store. Member rumors are not stored here,
// but their heat is accounted in the same map.
func (s *Store) Heat() *Heat {
	return s.heat
}

func (s *Store) mergeLocked(r Rumor) bool {
	key := r.Key()

	byKey, ok := s.rumors[key.Kind]
	if !ok {
		byKey = make(map[string]map[string]Rumor)
		s.rumors[key.Kind] = byKey
	}

	byID, ok := byKey[key.Key]
	if !ok {
		byID = make(map[string]Rumor)
		byKey[key.Key] = byID
	}

	merged, changed := merge(byID[key.ID], r)
	if changed {
		byID[key.ID] = merged
		s.updates++
	}

	return changed
}

// Merge applies a rumor received from another member. It returns true if the
// stored rumor has changed, in which case its heat is reset so that it is
// disseminated further.
func (s *Store) Merge(r Rumor) bool {
	s.mut.Lock()
	changed := s.mergeLocked(r)
	s.mut.Unlock()

	if changed {
		s.heat.Start(r.Key())
	}

	return changed
}

// Insert applies a rumor originated locally. Depending on the reset policy of
// the rumor kind, the heat is reset even if the rumor did not change.
func (s *Store) Insert(r Rumor) bool {
	s.mut.Lock()
	changed := s.mergeLocked(r)
	s.mut.Unlock()

	if changed || ResetPolicy(r.Key().Kind) == ResetAlways {
		s.heat.Start(r.Key())
	}

	return changed
}

// Get returns a single rumor.
func (s *Store) Get(key Key) (Rumor, bool) {
	s.mut.RLock()
	defer s.mut.RUnlock()

	r, ok := s.rumors[key.Kind][key.Key][key.ID]

	return r, ok
}

// ByKey returns all rumors of the given kind and key, sorted by id.
func (s *Store) ByKey(kind Kind, key string) []Rumor {
	s.mut.RLock()
	defer s.mut.RUnlock()

	byID := s.rumors[kind][key]
	ids := generic.SortedKeys(byID)

	rumors := make([]Rumor, 0, len(ids))
	for _, id := range ids {
		rumors = append(rumors, byID[id])
	}

	return rumors
}

// Keys returns the rumor keys (usually service groups) known for the kind.
func (s *Store) Keys(kind Kind) []string {
	s.mut.RLock()
	defer s.mut.RUnlock()

	return generic.SortedKeys(s.rumors[kind])
}

// All returns every stored rumor ordered by key.
func (s *Store) All() []Rumor {
	s.mut.RLock()

	rumors := make([]Rumor, 0)

	for _, byKey := range s.rumors {
		for _, byID := range byKey {
			for _, r := range byID {
				rumors = append(rumors, r)
			}
		}
	}

	s.mut.RUnlock()

	sort.Slice(rumors, func(i, j int) bool {
		return rumors[i].Key().Less(rumors[j].Key())
	})

	return rumors
}

// Remove deletes a single rumor and its heat.
func (s *Store) Remove(key Key) error {
	s.mut.Lock()

	byID, ok := s.rumors[key.Kind][key.Key]
	if !ok {
		s.mut.Unlock()
		return ErrNotFound
	}

	if _, ok := byID[key.ID]; !ok {
		s.mut.Unlock()
		return ErrNotFound
	}

	delete(byID, key.ID)

	if len(byID) == 0 {
		delete(s.rumors[key.Kind], key.Key)
	}

	s.updates++
	s.mut.Unlock()

	s.heat.Forget(key)

	return nil
}

// Prune removes the service group that has no service rumors left, along with
// its election. It returns true if anything was removed.
func (s *Store) Prune(group string) bool {
	s.mut.Lock()

	if len(s.rumors[KindService][group]) > 0 {
		s.mut.Unlock()
		return false
	}

	var removed []Key

	for _, kind := range []Kind{KindService, KindElection} {
		for id := range s.rumors[kind][group] {
			removed = append(removed, Key{Kind: kind, Key: group, ID: id})
		}

		delete(s.rumors[kind], group)
	}

	if len(removed) > 0 {
		s.updates++
	}

	s.mut.Unlock()

	for _, key := range removed {
		s.heat.Forget(key)
	}

	return len(removed) > 0
}

// ResetHeat restarts the dissemination of a rumor.
func (s *Store) ResetHeat(key Key) {
	s.heat.Start(key)
}

// RumorsFor returns the keys of rumors that are still hot for the member, the
// coolest first.
func (s *Store) RumorsFor(memberID string) []Key {
	return s.heat.Hot(memberID, nil)
}

// Take returns at most n hot rumors for the member.
func (s *Store) Take(memberID string, n int) []Key {
	keys := s.heat.Hot(memberID, nil)
	if len(keys) > n {
		keys = keys[:n]
	}

	return keys
}

// TakeByKind returns at most n hot rumors of the given kind for the member.
func (s *Store) TakeByKind(memberID string, kind Kind, n int) []Key {
	keys := s.heat.Hot(memberID, func(key Key) bool {
		return key.Kind == kind
	})

	if len(keys) > n {
		keys = keys[:n]
	}

	return keys
}

// UpdateHeat records that the rumors have been sent to the member once more.
func (s *Store) UpdateHeat(memberID string, keys []Key) {
	s.heat.Cool(memberID, keys)
}

// HeatOf returns the heat of a rumor for the member.
func (s *Store) HeatOf(key Key, memberID string) int {
	return s.heat.Of(key, memberID)
}

// UpdateCounter is incremented on every change of the store.
func (s *Store) UpdateCounter() uint64 {
	s.mut.RLock()
	defer s.mut.RUnlock()

	return s.updates
}

// Len returns the total number of stored rumors.
func (s *Store) Len() int {
	s.mut.RLock()
	defer s.mut.RUnlock()

	var n int

	for _, byKey := range s.rumors {
		for _, byID := range byKey {
			n += len(byID)
		}
	}

	return n
}
