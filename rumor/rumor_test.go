package rumor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_Service(t *testing.T) {
	current := Service{MemberID: "a", ServiceGroup: "redis.default", Incarnation: 2}

	merged, changed := merge(current, Service{MemberID: "a", ServiceGroup: "redis.default", Incarnation: 1})
	assert.False(t, changed)
	assert.Equal(t, current, merged)

	merged, changed = merge(current, current)
	assert.False(t, changed)
	assert.Equal(t, current, merged)

	newer := Service{MemberID: "a", ServiceGroup: "redis.default", Incarnation: 3, Initialized: true}
	merged, changed = merge(current, newer)
	assert.True(t, changed)
	assert.Equal(t, newer, merged)
}

func TestMerge_ServiceConfig(t *testing.T) {
	current := ServiceConfig{ServiceGroup: "redis.default", Incarnation: 5, Config: []byte("a=1")}

	_, changed := merge(current, ServiceConfig{ServiceGroup: "redis.default", Incarnation: 5, Config: []byte("a=2")})
	assert.False(t, changed)

	merged, changed := merge(current, ServiceConfig{ServiceGroup: "redis.default", Incarnation: 6, Config: []byte("a=2")})
	assert.True(t, changed)
	assert.Equal(t, []byte("a=2"), merged.(ServiceConfig).Config)
}

func TestMerge_Departure(t *testing.T) {
	merged, changed := merge(nil, Departure{MemberID: "a"})
	assert.True(t, changed)
	assert.Equal(t, Departure{MemberID: "a"}, merged)

	_, changed = merge(merged, Departure{MemberID: "a"})
	assert.False(t, changed)
}

func TestMerge_Election(t *testing.T) {
	type test struct {
		current  Election
		incoming Election
		changed  bool
		want     Election
	}

	election := func(candidate string, suitability, term uint64, status ElectionStatus, votes ...string) Election {
		return Election{
			ServiceGroup: "redis.default",
			MemberID:     candidate,
			Suitability:  suitability,
			Term:         term,
			Status:       status,
			Votes:        votes,
		}
	}

	tests := map[string]test{
		"HigherTermWins": {
			current:  election("a", 10, 1, ElectionFinished, "a", "b"),
			incoming: election("b", 0, 2, ElectionRunning, "b"),
			changed:  true,
			want:     election("b", 0, 2, ElectionRunning, "b"),
		},
		"LowerTermLoses": {
			current:  election("b", 0, 2, ElectionRunning, "b"),
			incoming: election("a", 10, 1, ElectionFinished, "a", "b"),
			changed:  false,
			want:     election("b", 0, 2, ElectionRunning, "b"),
		},
		"FinishedBeatsRunning": {
			current:  election("a", 10, 1, ElectionRunning, "a", "b", "c"),
			incoming: election("b", 0, 1, ElectionFinished, "b", "c"),
			changed:  true,
			want:     election("b", 0, 1, ElectionFinished, "b", "c"),
		},
		"RunningDoesNotReopenFinished": {
			current:  election("b", 0, 1, ElectionFinished, "b", "c"),
			incoming: election("a", 10, 1, ElectionRunning, "a"),
			changed:  false,
			want:     election("b", 0, 1, ElectionFinished, "b", "c"),
		},
		"MoreSuitableCandidateWins": {
			current:  election("a", 1, 1, ElectionRunning, "a", "b"),
			incoming: election("c", 5, 1, ElectionRunning, "c"),
			changed:  true,
			want:     election("c", 5, 1, ElectionRunning, "c"),
		},
		"LowestIDWinsTie": {
			current:  election("b", 1, 1, ElectionRunning, "b"),
			incoming: election("a", 1, 1, ElectionRunning, "a"),
			changed:  true,
			want:     election("a", 1, 1, ElectionRunning, "a"),
		},
		"WorseCandidateLoses": {
			current:  election("a", 1, 1, ElectionRunning, "a"),
			incoming: election("b", 1, 1, ElectionRunning, "b", "c"),
			changed:  false,
			want:     election("a", 1, 1, ElectionRunning, "a"),
		},
		"SameCandidateVotesAreUnioned": {
			current:  election("a", 1, 1, ElectionRunning, "a", "c"),
			incoming: election("a", 1, 1, ElectionRunning, "a", "b"),
			changed:  true,
			want:     election("a", 1, 1, ElectionRunning, "a", "b", "c"),
		},
		"SubsetOfVotesIsNotAChange": {
			current:  election("a", 1, 1, ElectionRunning, "a", "b", "c"),
			incoming: election("a", 1, 1, ElectionRunning, "c", "a"),
			changed:  false,
			want:     election("a", 1, 1, ElectionRunning, "a", "b", "c"),
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			merged, changed := merge(tt.current, tt.incoming)
			assert.Equal(t, tt.changed, changed)
			assert.Equal(t, tt.want, merged)
		})
	}
}

func TestMerge_ElectionIsCommutative(t *testing.T) {
	a := NewElection("redis.default", "a", 1, 3).WithVote("b")
	b := NewElection("redis.default", "a", 1, 3).WithVote("c")
	c := NewElection("redis.default", "b", 2, 3)

	mergeAll := func(rumors ...Election) Rumor {
		var current Rumor
		for _, r := range rumors {
			current, _ = merge(current, r)
		}

		return current
	}

	want := mergeAll(a, b, c)
	assert.Equal(t, want, mergeAll(c, b, a))
	assert.Equal(t, want, mergeAll(b, c, a))
	assert.Equal(t, "b", want.(Election).MemberID)
}

func TestElection_WithVote(t *testing.T) {
	e := NewElection("redis.default", "b", 0, 1)
	assert.Equal(t, []string{"b"}, e.Votes)

	voted := e.WithVote("a").WithVote("c").WithVote("a")
	assert.Equal(t, []string{"a", "b", "c"}, voted.Votes)
	assert.True(t, voted.HasVote("c"))

	// The original value is left intact.
	assert.Equal(t, []string{"b"}, e.Votes)
	assert.False(t, e.HasVote("c"))

	finished := voted.Finish()
	assert.True(t, finished.Finished())
	assert.False(t, voted.Finished())
}

func TestBetterCandidate(t *testing.T) {
	assert.True(t, BetterCandidate("b", 2, "a", 1))
	assert.True(t, BetterCandidate("a", 1, "b", 1))
	assert.False(t, BetterCandidate("b", 1, "a", 1))
	assert.False(t, BetterCandidate("a", 0, "b", 1))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "service/redis.default/a", Service{MemberID: "a", ServiceGroup: "redis.default"}.Key().String())
	assert.Equal(t, "election/redis.default/election", NewElection("redis.default", "a", 0, 0).Key().String())
	assert.Equal(t, "departure/departure/a", Departure{MemberID: "a"}.Key().String())

	require.True(t, Key{Kind: KindMember}.Less(Key{Kind: KindService}))
	require.True(t, Key{Kind: KindService, Key: "a"}.Less(Key{Kind: KindService, Key: "b"}))
	require.True(t, Key{Kind: KindService, Key: "a", ID: "1"}.Less(Key{Kind: KindService, Key: "a", ID: "2"}))
	require.False(t, Key{Kind: KindService, Key: "a", ID: "1"}.Less(Key{Kind: KindService, Key: "a", ID: "1"}))
}

func TestResetPolicy(t *testing.T) {
	assert.Equal(t, ResetOnChange, ResetPolicy(KindService))
	assert.Equal(t, ResetOnChange, ResetPolicy(KindElection))
	assert.Equal(t, ResetAlways, ResetPolicy(KindServiceConfig))
	assert.Equal(t, ResetAlways, ResetPolicy(KindServiceFile))
	assert.Equal(t, ResetAlways, ResetPolicy(KindDeparture))
}
