package storage

import (
	"testing"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxpoletaev/butterfly/membership"
	"github.com/maxpoletaev/butterfly/rumor"
)

func openTestStore(t *testing.T, fs vfs.FS) *Store {
	s, err := Open("/data", WithFS(fs))
	require.NoError(t, err)

	return s
}

func TestStore_SaveLoad(t *testing.T) {
	fs := vfs.NewMem()
	s := openTestStore(t, fs)

	members := []membership.Membership{
		{Member: membership.Member{ID: "a", Incarnation: 3, Address: "10.0.0.1", SwimPort: 9638}},
		{Member: membership.Member{ID: "b"}, Health: membership.HealthSuspect},
	}

	rumors := []rumor.Envelope{
		rumor.Wrap(rumor.Service{MemberID: "a", ServiceGroup: "redis.default", Incarnation: 2}),
		rumor.Wrap(rumor.NewElection("redis.default", "a", 1, 4)),
		rumor.Wrap(rumor.Departure{MemberID: "c"}),
	}

	require.NoError(t, s.Save(members, rumors))
	require.NoError(t, s.Close())

	// Reopen to make sure the snapshot survives.
	s = openTestStore(t, fs)
	defer s.Close()

	gotMembers, gotRumors, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, members, gotMembers)
	require.Len(t, gotRumors, 3)

	for _, env := range gotRumors {
		r, err := env.Unwrap()
		require.NoError(t, err)

		switch v := r.(type) {
		case rumor.Service:
			assert.Equal(t, uint64(2), v.Incarnation)
		case rumor.Election:
			assert.Equal(t, uint64(4), v.Term)
			assert.Equal(t, []string{"a"}, v.Votes)
		case rumor.Departure:
			assert.Equal(t, "c", v.MemberID)
		default:
			t.Fatalf("unexpected rumor: %T", r)
		}
	}
}

func TestStore_SaveReplacesSnapshot(t *testing.T) {
	s := openTestStore(t, vfs.NewMem())
	defer s.Close()

	require.NoError(t, s.Save(
		[]membership.Membership{{Member: membership.Member{ID: "a"}}, {Member: membership.Member{ID: "b"}}},
		[]rumor.Envelope{rumor.Wrap(rumor.Departure{MemberID: "c"})},
	))

	require.NoError(t, s.Save([]membership.Membership{{Member: membership.Member{ID: "a"}}}, nil))

	members, rumors, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, members, 1)
	assert.Empty(t, rumors)
}

func TestStore_LoadEmpty(t *testing.T) {
	s := openTestStore(t, vfs.NewMem())
	defer s.Close()

	members, rumors, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, members)
	assert.Empty(t, rumors)
}

func TestStore_SaveRejectsEmptyEnvelope(t *testing.T) {
	s := openTestStore(t, vfs.NewMem())
	defer s.Close()

	err := s.Save(nil, []rumor.Envelope{{Kind: rumor.KindService}})
	assert.ErrorIs(t, err, rumor.ErrEmptyEnvelope)
}

func TestKey_RoundTrip(t *testing.T) {
	key := rumor.Key{Kind: rumor.KindServiceFile, Key: "redis.default", ID: "motd"}

	prefix, got, err := decodeKey(encodeKey(prefixRumor, key))
	require.NoError(t, err)
	assert.Equal(t, prefixRumor, prefix)
	assert.Equal(t, key, got)
}
