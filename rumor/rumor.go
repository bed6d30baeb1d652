package rumor

import (
	"fmt"
)

// Kind identifies the semantic type of a rumor.
type Kind uint8

const (
	KindMember Kind = iota + 1
	KindService
	KindServiceConfig
	KindServiceFile
	KindElection
	KindDeparture
)

func (k Kind) String() string {
	switch k {
	case KindMember:
		return "member"
	case KindService:
		return "service"
	case KindServiceConfig:
		return "service_config"
	case KindServiceFile:
		return "service_file"
	case KindElection:
		return "election"
	case KindDeparture:
		return "departure"
	default:
		return ""
	}
}

// Key identifies a single rumor. Kind and Key address a group of rumors
// (usually a service group), ID distinguishes rumors within the group.
type Key struct {
	Kind Kind
	Key  string
	ID   string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Kind, k.Key, k.ID)
}

// Less defines a total order on keys, used to break heat ties.
func (k Key) Less(other Key) bool {
	if k.Kind != other.Kind {
		return k.Kind < other.Kind
	}

	if k.Key != other.Key {
		return k.Key < other.Key
	}

	return k.ID < other.ID
}

// MemberKey is the key of the member rumor about the given member. Member
// rumors are owned by the member list; the store only tracks their heat.
func MemberKey(memberID string) Key {
	return Key{Kind: KindMember, Key: memberID, ID: memberID}
}

// Rumor is one of Service, ServiceConfig, ServiceFile, Election or Departure.
// Rumors are values and must be treated as immutable once stored.
type Rumor interface {
	Key() Key
	isRumor()
}

// merge resolves the conflict between the stored rumor and the incoming one
// with the same key. It returns the rumor to keep and whether it differs from
// the current one.
func merge(current, incoming Rumor) (Rumor, bool) {
	if current == nil {
		return incoming, true
	}

	switch in := incoming.(type) {
	case Service:
		curr := current.(Service)
		if in.Incarnation > curr.Incarnation {
			return in, true
		}
	case ServiceConfig:
		curr := current.(ServiceConfig)
		if in.Incarnation > curr.Incarnation {
			return in, true
		}
	case ServiceFile:
		curr := current.(ServiceFile)
		if in.Incarnation > curr.Incarnation {
			return in, true
		}
	case Election:
		return mergeElection(current.(Election), in)
	case Departure:
		// Departure is a one-way fact, the first one is as good as any other.
	default:
		panic(fmt.Sprintf("unknown rumor type: %T", incoming))
	}

	return current, false
}

// Policy controls when a local insert resets the rumor heat.
type Policy uint8

const (
	// ResetOnChange resets the heat only when the merge changed the stored rumor.
	ResetOnChange Policy = iota

	// ResetAlways resets the heat on every local insert, giving a manual
	// re-announcement a full retransmission budget even if nothing changed.
	ResetAlways
)

// ResetPolicy returns the heat reset policy for local inserts of the given kind.
// Rumors received from other members always reset the heat on change only.
func ResetPolicy(kind Kind) Policy {
	switch kind {
	case KindServiceConfig, KindServiceFile, KindDeparture:
		return ResetAlways
	default:
		return ResetOnChange
	}
}
