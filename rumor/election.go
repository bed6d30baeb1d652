package rumor

import (
	"github.com/maxpoletaev/butterfly/internal/set"
)

type ElectionStatus uint8

const (
	ElectionRunning ElectionStatus = iota + 1
	ElectionFinished
)

func (s ElectionStatus) String() string {
	switch s {
	case ElectionRunning:
		return "running"
	case ElectionFinished:
		return "finished"
	default:
		return ""
	}
}

// Election is the state of a leader election in a service group. MemberID is
// the candidate currently believed to be the best, Votes are the members that
// agree with that belief.
type Election struct {
	ServiceGroup string         `cbor:"1,keyasint"`
	MemberID     string         `cbor:"2,keyasint"`
	Suitability  uint64         `cbor:"3,keyasint"`
	Term         uint64         `cbor:"4,keyasint"`
	Status       ElectionStatus `cbor:"5,keyasint"`
	Votes        []string       `cbor:"6,keyasint"`
}

// NewElection creates a running election where the candidate votes for itself.
func NewElection(group, candidate string, suitability, term uint64) Election {
	return Election{
		ServiceGroup: group,
		MemberID:     candidate,
		Suitability:  suitability,
		Term:         term,
		Status:       ElectionRunning,
		Votes:        []string{candidate},
	}
}

func (e Election) Key() Key {
	return Key{Kind: KindElection, Key: e.ServiceGroup, ID: electionID}
}

func (Election) isRumor() {}

func (e Election) Finished() bool {
	return e.Status == ElectionFinished
}

func (e Election) HasVote(memberID string) bool {
	for _, v := range e.Votes {
		if v == memberID {
			return true
		}
	}

	return false
}

// WithVote returns a copy of the election with the vote of the given member added.
func (e Election) WithVote(memberID string) Election {
	e.Votes = unionVotes(e.Votes, []string{memberID})
	return e
}

// Finish returns a copy of the election marked as finished.
func (e Election) Finish() Election {
	e.Status = ElectionFinished
	e.Votes = append([]string(nil), e.Votes...)

	return e
}

// BetterCandidate reports whether candidate a is preferred over candidate b.
// A higher suitability wins, ties go to the lexicographically lowest ID.
func BetterCandidate(aID string, aSuitability uint64, bID string, bSuitability uint64) bool {
	if aSuitability != bSuitability {
		return aSuitability > bSuitability
	}

	return aID < bID
}

func unionVotes(a, b []string) []string {
	return set.Sorted(set.New(a...).And(set.New(b...)))
}

func mergeElection(current, incoming Election) (Rumor, bool) {
	if incoming.Term != current.Term {
		if incoming.Term > current.Term {
			return incoming, true
		}

		return current, false
	}

	if incoming.Status != current.Status {
		if incoming.Finished() {
			return incoming, true
		}

		return current, false
	}

	if incoming.MemberID != current.MemberID {
		if BetterCandidate(incoming.MemberID, incoming.Suitability, current.MemberID, current.Suitability) {
			return incoming, true
		}

		return current, false
	}

	votes := unionVotes(current.Votes, incoming.Votes)
	if len(votes) == len(current.Votes) {
		return current, false
	}

	merged := current
	merged.Votes = votes

	return merged, true
}
