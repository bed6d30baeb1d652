package rumor

import (
	"sort"
	"sync"
)

// DefaultMaxTransmissions is the number of times a rumor is sent to each
// member before it is considered cold for that member.
const DefaultMaxTransmissions = 3

// Heat tracks how many times each rumor has been sent to each member. A rumor
// that has not been sent to a member yet has zero heat for that member.
type Heat struct {
	mut  sync.RWMutex
	max  int
	heat map[Key]map[string]int
}

func NewHeat(maxTransmissions int) *Heat {
	if maxTransmissions <= 0 {
		maxTransmissions = DefaultMaxTransmissions
	}

	return &Heat{
		max:  maxTransmissions,
		heat: make(map[Key]map[string]int),
	}
}

// MaxTransmissions returns the heat at which a rumor stops being sent.
func (h *Heat) MaxTransmissions() int {
	return h.max
}

// Start (re)starts the dissemination of the rumor: its heat is reset to zero
// for every member.
func (h *Heat) Start(key Key) {
	h.mut.Lock()
	defer h.mut.Unlock()

	h.heat[key] = make(map[string]int)
}

// Forget drops the heat of a rumor that no longer exists.
func (h *Heat) Forget(key Key) {
	h.mut.Lock()
	defer h.mut.Unlock()

	delete(h.heat, key)
}

// ForgetMember drops all the heat accounted to the given member.
func (h *Heat) ForgetMember(memberID string) {
	h.mut.Lock()
	defer h.mut.Unlock()

	for _, perMember := range h.heat {
		delete(perMember, memberID)
	}
}

// Of returns the heat of the rumor for the given member.
func (h *Heat) Of(key Key, memberID string) int {
	h.mut.RLock()
	defer h.mut.RUnlock()

	return h.heat[key][memberID]
}

// Hot returns the keys of rumors that are still hot for the member, coolest
// first so that fresh rumors are prioritized when the message size is limited.
// Ties are broken by the key order. Rumors that are not started are skipped.
func (h *Heat) Hot(memberID string, filter func(Key) bool) []Key {
	h.mut.RLock()

	type hotKey struct {
		key  Key
		heat int
	}

	hot := make([]hotKey, 0, len(h.heat))

	for key, perMember := range h.heat {
		if filter != nil && !filter(key) {
			continue
		}

		if heat := perMember[memberID]; heat < h.max {
			hot = append(hot, hotKey{key: key, heat: heat})
		}
	}

	h.mut.RUnlock()

	sort.Slice(hot, func(i, j int) bool {
		if hot[i].heat != hot[j].heat {
			return hot[i].heat < hot[j].heat
		}

		return hot[i].key.Less(hot[j].key)
	})

	keys := make([]Key, len(hot))
	for i := range hot {
		keys[i] = hot[i].key
	}

	return keys
}

// Cool increments the heat of each rumor for the given member, meaning it
// has been sent once more. Unknown keys are ignored.
func (h *Heat) Cool(memberID string, keys []Key) {
	h.mut.Lock()
	defer h.mut.Unlock()

	for _, key := range keys {
		perMember, ok := h.heat[key]
		if !ok {
			continue
		}

		if perMember[memberID] < h.max {
			perMember[memberID]++
		}
	}
}
