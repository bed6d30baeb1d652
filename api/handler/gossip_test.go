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
	"github.com/maxpoletaev/butterfly/membership"
	"github.com/maxpoletaev/butterfly/rumor"
)

func TestGossipHandler_getGossip(t *testing.T) {
	tests := map[string]struct {
		members  []membership.Membership
		rumors   []rumor.Rumor
		wantBody model.GossipResponse
	}{
		"SelfOnly": {
			members: []membership.Membership{
				{Member: membership.Member{ID: "a", Address: "10.0.0.1", SwimPort: 9638, GossipPort: 9639}},
			},
			wantBody: model.GossipResponse{
				ID: "a",
				MemberList: []model.Member{
					{ID: "a", Address: "10.0.0.1", SwimPort: 9638, GossipPort: 9639, Health: "alive"},
				},
				RumorList: []model.Rumor{},
				Detector:  model.Detector{Round: 7},
			},
		},
		"WithRumors": {
			members: []membership.Membership{
				{Member: membership.Member{ID: "a"}},
				{Member: membership.Member{ID: "b", Incarnation: 2}, Health: membership.HealthSuspect},
			},
			rumors: []rumor.Rumor{
				rumor.Departure{MemberID: "c"},
			},
			wantBody: model.GossipResponse{
				ID: "a",
				MemberList: []model.Member{
					{ID: "a", Health: "alive"},
					{ID: "b", Incarnation: 2, Health: "suspect"},
				},
				RumorList: []model.Rumor{
					{Kind: "departure", Key: "departure", ID: "c", Data: map[string]any{"MemberID": "c"}},
				},
				Detector: model.Detector{Round: 7},
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var (
				mux     = chi.NewMux()
				ctrl    = gomock.NewController(t)
				cluster = NewMockCluster(ctrl)
			)

			cluster.EXPECT().ID().Return("a")
			cluster.EXPECT().Members().Return(tt.members)
			cluster.EXPECT().Rumors().Return(tt.rumors)
			cluster.EXPECT().Round().Return(uint64(7))
			cluster.EXPECT().Paused().Return(false)

			NewGossipHandler(cluster).Register(mux)

			req := httptest.NewRequest("GET", "/gossip", nil)
			recorder := httptest.NewRecorder()
			mux.ServeHTTP(recorder, req)

			require.Equal(t, http.StatusOK, recorder.Code)

			var resp model.GossipResponse
			err := json.NewDecoder(recorder.Body).Decode(&resp)
			require.NoError(t, err, "failed to unmarshal response: %v", err)

			require.Equal(t, tt.wantBody, resp)
		})
	}
}
