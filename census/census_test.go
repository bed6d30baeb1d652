package census

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxpoletaev/butterfly/internal/sealed"
	"github.com/maxpoletaev/butterfly/membership"
	"github.com/maxpoletaev/butterfly/rumor"
)

const group = "redis.default"

func services(ids ...string) []rumor.Service {
	svcs := make([]rumor.Service, 0, len(ids))
	for _, id := range ids {
		svcs = append(svcs, rumor.Service{MemberID: id, ServiceGroup: group})
	}

	return svcs
}

func TestGroup_Quorum(t *testing.T) {
	type test struct {
		health        map[string]membership.Health
		total         int
		alive         int
		minimumQuorum bool
		hasQuorum     bool
	}

	alive := membership.HealthAlive
	suspect := membership.HealthSuspect
	confirmed := membership.HealthConfirmed
	departed := membership.HealthDeparted

	tests := map[string]test{
		"AllAlive": {
			health:        map[string]membership.Health{"a": alive, "b": alive, "c": alive},
			total:         3,
			alive:         3,
			minimumQuorum: true,
			hasQuorum:     true,
		},
		"TooSmall": {
			health:        map[string]membership.Health{"a": alive, "b": alive, "c": departed},
			total:         2,
			alive:         2,
			minimumQuorum: false,
			hasQuorum:     false,
		},
		"Majority": {
			health:        map[string]membership.Health{"a": alive, "b": alive, "c": suspect},
			total:         3,
			alive:         2,
			minimumQuorum: true,
			hasQuorum:     true,
		},
		"Minority": {
			health:        map[string]membership.Health{"a": alive, "b": confirmed, "c": suspect},
			total:         3,
			alive:         1,
			minimumQuorum: true,
			hasQuorum:     false,
		},
		"UnknownHealthIsNotAlive": {
			health:        map[string]membership.Health{"a": alive},
			total:         3,
			alive:         1,
			minimumQuorum: true,
			hasQuorum:     false,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			g := New(Snapshot{
				Group:    group,
				SelfID:   "a",
				Services: services("a", "b", "c"),
				Health:   tt.health,
			})

			assert.Equal(t, tt.total, g.TotalPopulation())
			assert.Equal(t, tt.alive, g.AlivePopulation())
			assert.Equal(t, tt.minimumQuorum, g.MinimumQuorum())
			assert.Equal(t, tt.hasQuorum, g.HasQuorum())

			// Quorum always implies the minimum quorum and a strict majority.
			if g.HasQuorum() {
				assert.True(t, g.MinimumQuorum())
				assert.Greater(t, g.AlivePopulation()*2, g.TotalPopulation())
			}
		})
	}
}

func TestGroup_EvenSplitHasNoQuorum(t *testing.T) {
	g := New(Snapshot{
		Group:    group,
		Services: services("a", "b", "c", "d"),
		Health: map[string]membership.Health{
			"a": membership.HealthAlive,
			"b": membership.HealthAlive,
			"c": membership.HealthConfirmed,
			"d": membership.HealthConfirmed,
		},
	})

	assert.True(t, g.MinimumQuorum())
	assert.False(t, g.HasQuorum())
}

func TestGroup_Leader(t *testing.T) {
	health := map[string]membership.Health{
		"a": membership.HealthAlive,
		"b": membership.HealthAlive,
		"c": membership.HealthAlive,
	}

	running := rumor.NewElection(group, "b", 0, 1)
	g := New(Snapshot{Group: group, SelfID: "a", Services: services("a", "b", "c"), Health: health, Election: &running})
	assert.False(t, g.HasLeader())

	finished := running.WithVote("a").WithVote("c").Finish()
	g = New(Snapshot{Group: group, SelfID: "a", Services: services("a", "b", "c"), Health: health, Election: &finished})
	require.True(t, g.HasLeader())

	leader, ok := g.Leader()
	require.True(t, ok)
	assert.Equal(t, "b", leader.MemberID())
	assert.True(t, leader.Leader)

	var leaders int

	for _, e := range g.Members() {
		if e.Leader {
			leaders++
		}
	}

	assert.Equal(t, 1, leaders)

	me, ok := g.Me()
	require.True(t, ok)
	assert.Equal(t, "a", me.MemberID())
	assert.False(t, me.Leader)

	// A dead winner is no leader.
	health["b"] = membership.HealthConfirmed
	g = New(Snapshot{Group: group, SelfID: "a", Services: services("a", "b", "c"), Health: health, Election: &finished})
	assert.False(t, g.HasLeader())
}

func TestGroup_AllAliveVoted(t *testing.T) {
	g := New(Snapshot{
		Group:    group,
		Services: services("a", "b", "c"),
		Health: map[string]membership.Health{
			"a": membership.HealthAlive,
			"b": membership.HealthAlive,
			"c": membership.HealthSuspect,
		},
	})

	e := rumor.NewElection(group, "a", 0, 1)
	assert.False(t, g.AllAliveVoted(e))
	assert.True(t, g.AllAliveVoted(e.WithVote("b")))
}

func TestGroup_BestCandidate(t *testing.T) {
	svcs := services("a", "b", "c")
	svcs[1].Suitability = 5
	svcs[2].Suitability = 9

	g := New(Snapshot{
		Group:    group,
		Services: svcs,
		Health: map[string]membership.Health{
			"a": membership.HealthAlive,
			"b": membership.HealthAlive,
			"c": membership.HealthConfirmed,
		},
	})

	best, ok := g.BestCandidate()
	require.True(t, ok)
	assert.Equal(t, "b", best.MemberID())
}

func TestGroup_ConfigPayload(t *testing.T) {
	priv, pub, err := sealed.GenerateIdentity()
	require.NoError(t, err)

	ciphertext, err := sealed.Encrypt([]byte("port = 6379"), []string{pub})
	require.NoError(t, err)

	g := New(Snapshot{Group: group})
	_, err = g.ConfigPayload(priv)
	assert.ErrorIs(t, err, ErrNoConfig)

	g = New(Snapshot{
		Group:  group,
		Config: &rumor.ServiceConfig{ServiceGroup: group, Encrypted: true, Config: ciphertext},
		Files:  []rumor.ServiceFile{{ServiceGroup: group, Filename: "motd", Body: []byte("hi")}},
	})

	payload, err := g.ConfigPayload(priv)
	require.NoError(t, err)
	assert.Equal(t, []byte("port = 6379"), payload)

	body, err := g.FilePayload("motd", "")
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), body)
	assert.Equal(t, []string{"motd"}, g.Files())

	_, err = g.FilePayload("missing", "")
	assert.ErrorIs(t, err, ErrNoFile)
}

func TestRing(t *testing.T) {
	r := NewRing(New(Snapshot{Group: "b"}), New(Snapshot{Group: "a"}))

	groups := r.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, "a", groups[0].Name())

	_, ok := r.Group("b")
	assert.True(t, ok)
}
