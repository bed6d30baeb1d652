package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/maxpoletaev/butterfly/api/model"
	"github.com/maxpoletaev/butterfly/census"
	"github.com/maxpoletaev/butterfly/membership"
	"github.com/maxpoletaev/butterfly/rumor"
)

func testRing() *census.Ring {
	health := map[string]membership.Health{
		"a": membership.HealthAlive,
		"b": membership.HealthAlive,
		"c": membership.HealthSuspect,
	}

	services := []rumor.Service{
		{MemberID: "a", ServiceGroup: "redis.default", Suitability: 1},
		{MemberID: "b", ServiceGroup: "redis.default"},
		{MemberID: "c", ServiceGroup: "redis.default"},
	}

	finished := rumor.NewElection("redis.default", "a", 1, 2).WithVote("b").Finish()
	running := rumor.NewElection("nginx.default", "b", 0, 1)

	return census.NewRing(
		census.New(census.Snapshot{
			Group:    "redis.default",
			SelfID:   "a",
			Services: services,
			Health:   health,
			Election: &finished,
		}),
		census.New(census.Snapshot{
			Group:    "nginx.default",
			SelfID:   "a",
			Services: []rumor.Service{{MemberID: "b", ServiceGroup: "nginx.default"}},
			Health:   health,
			Election: &running,
		}),
	)
}

func TestCensusHandler_getCensus(t *testing.T) {
	var (
		mux     = chi.NewMux()
		ctrl    = gomock.NewController(t)
		cluster = NewMockCluster(ctrl)
	)

	cluster.EXPECT().CensusRing().Return(testRing())
	NewCensusHandler(cluster).Register(mux)

	req := httptest.NewRequest("GET", "/census", nil)
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp model.CensusResponse
	err := json.NewDecoder(recorder.Body).Decode(&resp)
	require.NoError(t, err, "failed to unmarshal response: %v", err)

	require.Equal(t, model.CensusResponse{
		Groups: []model.CensusGroup{
			{
				Name:            "nginx.default",
				TotalPopulation: 1,
				AlivePopulation: 1,
				Members: []model.CensusEntry{
					{MemberID: "b", Health: "alive"},
				},
			},
			{
				Name:            "redis.default",
				TotalPopulation: 3,
				AlivePopulation: 2,
				MinimumQuorum:   true,
				HasQuorum:       true,
				Leader:          "a",
				Members: []model.CensusEntry{
					{MemberID: "a", Health: "alive", Leader: true, Suitability: 1},
					{MemberID: "b", Health: "alive"},
					{MemberID: "c", Health: "suspect"},
				},
			},
		},
	}, resp)
}

func TestCensusHandler_getElections(t *testing.T) {
	var (
		mux     = chi.NewMux()
		ctrl    = gomock.NewController(t)
		cluster = NewMockCluster(ctrl)
	)

	cluster.EXPECT().CensusRing().Return(testRing())
	NewCensusHandler(cluster).Register(mux)

	req := httptest.NewRequest("GET", "/election", nil)
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp model.ElectionResponse
	err := json.NewDecoder(recorder.Body).Decode(&resp)
	require.NoError(t, err, "failed to unmarshal response: %v", err)

	require.Equal(t, model.ElectionResponse{
		Elections: []model.Election{
			{ServiceGroup: "nginx.default", Candidate: "b", Term: 1, Status: "running", Votes: []string{"b"}},
		},
	}, resp)
}
