package rumor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxpoletaev/butterfly/membership"
)

func TestStore_MergeResetsHeatOnChange(t *testing.T) {
	s := NewStore(3)
	svc := Service{MemberID: "a", ServiceGroup: "redis.default", Incarnation: 1}

	require.True(t, s.Merge(svc))
	assert.Equal(t, []Key{svc.Key()}, s.RumorsFor("b"))

	s.UpdateHeat("b", []Key{svc.Key()})
	s.UpdateHeat("b", []Key{svc.Key()})
	assert.Equal(t, 2, s.HeatOf(svc.Key(), "b"))

	// Same rumor again is not a change, so the heat stays.
	require.False(t, s.Merge(svc))
	assert.Equal(t, 2, s.HeatOf(svc.Key(), "b"))

	svc.Incarnation++
	require.True(t, s.Merge(svc))
	assert.Equal(t, 0, s.HeatOf(svc.Key(), "b"))
}

func TestStore_InsertResetPolicy(t *testing.T) {
	s := NewStore(3)
	cfg := ServiceConfig{ServiceGroup: "redis.default", Incarnation: 1, Config: []byte("x")}
	svc := Service{MemberID: "a", ServiceGroup: "redis.default", Incarnation: 1}

	require.True(t, s.Insert(cfg))
	require.True(t, s.Insert(svc))

	for i := 0; i < 3; i++ {
		s.UpdateHeat("b", []Key{cfg.Key(), svc.Key()})
	}

	assert.Empty(t, s.RumorsFor("b"))

	// Re-inserting an unchanged config rumor restarts its dissemination,
	// an unchanged service rumor does not.
	assert.False(t, s.Insert(cfg))
	assert.False(t, s.Insert(svc))
	assert.Equal(t, []Key{cfg.Key()}, s.RumorsFor("b"))
}

func TestStore_RumorsForOrder(t *testing.T) {
	s := NewStore(3)

	s1 := Service{MemberID: "a", ServiceGroup: "redis.default"}
	s2 := Service{MemberID: "b", ServiceGroup: "redis.default"}
	d := Departure{MemberID: "z"}

	s.Insert(s2)
	s.Insert(d)
	s.Insert(s1)

	assert.Equal(t, []Key{s1.Key(), s2.Key(), d.Key()}, s.RumorsFor("m"))

	s.UpdateHeat("m", []Key{s1.Key()})
	assert.Equal(t, []Key{s2.Key(), d.Key(), s1.Key()}, s.RumorsFor("m"))

	// Heat is per member.
	assert.Equal(t, []Key{s1.Key(), s2.Key(), d.Key()}, s.RumorsFor("n"))

	assert.Equal(t, []Key{s2.Key()}, s.Take("m", 1))
	assert.Equal(t, []Key{d.Key()}, s.TakeByKind("m", KindDeparture, 5))
}

func TestStore_MemberHeat(t *testing.T) {
	s := NewStore(2)
	key := MemberKey("a")

	s.ResetHeat(key)
	assert.Equal(t, []Key{key}, s.TakeByKind("b", KindMember, 10))

	s.UpdateHeat("b", []Key{key})
	s.UpdateHeat("b", []Key{key})
	s.UpdateHeat("b", []Key{key})
	assert.Equal(t, 2, s.HeatOf(key, "b"))
	assert.Empty(t, s.TakeByKind("b", KindMember, 10))

	// Member rumors have no payload in the store.
	assert.Empty(t, s.Envelopes([]Key{key}))
}

func TestStore_RemoveAndPrune(t *testing.T) {
	s := NewStore(3)

	svc := Service{MemberID: "a", ServiceGroup: "redis.default", Incarnation: 1}
	election := NewElection("redis.default", "a", 0, 1)

	s.Insert(svc)
	s.Insert(election)
	assert.Equal(t, 2, s.Len())

	// The group still has a service rumor.
	assert.False(t, s.Prune("redis.default"))

	require.NoError(t, s.Remove(svc.Key()))
	assert.ErrorIs(t, s.Remove(svc.Key()), ErrNotFound)

	assert.True(t, s.Prune("redis.default"))
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.RumorsFor("b"))
	assert.Empty(t, s.Keys(KindElection))
}

func TestStore_ByKey(t *testing.T) {
	s := NewStore(3)

	s.Insert(Service{MemberID: "c", ServiceGroup: "redis.default"})
	s.Insert(Service{MemberID: "a", ServiceGroup: "redis.default"})
	s.Insert(Service{MemberID: "b", ServiceGroup: "nginx.default"})

	rumors := s.ByKey(KindService, "redis.default")
	require.Len(t, rumors, 2)
	assert.Equal(t, "a", rumors[0].(Service).MemberID)
	assert.Equal(t, "c", rumors[1].(Service).MemberID)

	assert.Equal(t, []string{"nginx.default", "redis.default"}, s.Keys(KindService))
	assert.Len(t, s.All(), 3)
	assert.Equal(t, uint64(3), s.UpdateCounter())
}

func TestEnvelope_RoundTrip(t *testing.T) {
	rumors := []Rumor{
		Service{MemberID: "a", ServiceGroup: "redis.default", Incarnation: 4, Package: "core/redis", Initialized: true, Suitability: 7},
		ServiceConfig{ServiceGroup: "redis.default", Incarnation: 2, Config: []byte("port = 6379")},
		ServiceFile{ServiceGroup: "redis.default", Incarnation: 1, Filename: "redis.conf", Body: []byte("x")},
		NewElection("redis.default", "a", 7, 3).WithVote("b"),
		Departure{MemberID: "z"},
	}

	envelopes := make([]Envelope, 0, len(rumors)+1)
	for _, r := range rumors {
		envelopes = append(envelopes, Wrap(r))
	}

	member := membership.Membership{
		Member: membership.Member{ID: "a", Incarnation: 2, Address: "10.0.0.1", SwimPort: 9638, GossipPort: 9639},
		Health: membership.HealthSuspect,
	}

	envelopes = append(envelopes, WrapMember(member))

	data, err := Marshal(envelopes)
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	require.Len(t, decoded, len(envelopes))

	for i, r := range rumors {
		got, err := decoded[i].Unwrap()
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	last := decoded[len(decoded)-1]
	require.NotNil(t, last.Member)
	assert.Equal(t, member, *last.Member)

	key, err := last.Key()
	require.NoError(t, err)
	assert.Equal(t, MemberKey("a"), key)
}

func TestEnvelope_Invalid(t *testing.T) {
	_, err := Envelope{Kind: KindService}.Unwrap()
	assert.ErrorIs(t, err, ErrEmptyEnvelope)

	_, err = Envelope{Kind: KindService, Departure: &Departure{MemberID: "a"}}.Unwrap()
	assert.ErrorIs(t, err, ErrEmptyEnvelope)

	_, err = Envelope{Kind: KindDeparture, Departure: &Departure{}, Service: &Service{}}.Unwrap()
	assert.ErrorIs(t, err, ErrPayloadMismatch)

	_, err = Envelope{Kind: 42}.Unwrap()
	assert.ErrorIs(t, err, ErrUnknownRumorKind)

	_, err = Unmarshal([]byte{0xff, 0x00})
	assert.Error(t, err)
}
